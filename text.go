package kagari

import (
	"regexp"
	"strings"
)

var (
	mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@([a-zA-Z0-9_]+)(?:@([a-zA-Z0-9.\-]+[a-zA-Z0-9]))?`)
	hashtagPattern = regexp.MustCompile(`(?:^|[^\w#])#([^\s#.,!?'"\x60:;\[\]{}()]+)`)
)

// Mention is a parsed @user or @user@host token.
type Mention struct {
	Username string
	Host     string
}

// ExtractMentions parses mention tokens out of opaque note text.
func ExtractMentions(text string) []Mention {
	var mentions []Mention
	seen := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		mention := Mention{Username: m[1], Host: ToPuny(m[2])}
		key := mention.Username + "@" + mention.Host
		if seen[key] {
			continue
		}
		seen[key] = true
		mentions = append(mentions, mention)
	}
	return mentions
}

// ExtractHashtags parses hashtag tokens out of opaque note text. Tags longer
// than 128 characters are dropped and at most 32 are kept.
func ExtractHashtags(text string) []string {
	var tags []string
	seen := map[string]bool{}
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		if len([]rune(tag)) > 128 || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) >= 32 {
			break
		}
	}
	return tags
}
