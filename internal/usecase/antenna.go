package usecase

import (
	"context"
	"strings"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
)

// CheckHitAntenna evaluates one antenna against one note. Checks are ordered
// cheapest first and each failure returns immediately.
func (e *FanoutEngine) CheckHitAntenna(ctx context.Context, antenna *domain.Antenna, note *domain.Note, author *domain.Actor) (bool, error) {
	if note.Visibility == kagari.VisibilitySpecified {
		return false, nil
	}

	blockees, err := e.relationships.BlockeeIDsOf(ctx, author.ID)
	if err != nil {
		return false, err
	}
	if containsString(blockees, antenna.ActorID) {
		return false, nil
	}

	if note.Visibility == kagari.VisibilityFollowers {
		if antenna.ActorID != author.ID {
			following, err := e.relationships.IsFollowing(ctx, antenna.ActorID, author.ID)
			if err != nil {
				return false, err
			}
			if !following {
				return false, nil
			}
		}
	}

	if !antenna.WithReplies && note.ReplyID != nil {
		return false, nil
	}

	ok, err := e.antennaSourceMatches(ctx, antenna, author)
	if err != nil || !ok {
		return false, err
	}

	if !keywordGroupsMatch(antenna.Keywords, note.Text, antenna.CaseSensitive, true) {
		return false, nil
	}
	if keywordGroupsMatch(antenna.ExcludeKeywords, note.Text, antenna.CaseSensitive, false) {
		return false, nil
	}

	if antenna.WithFile && len(note.FileIDs) == 0 {
		return false, nil
	}

	return true, nil
}

func (e *FanoutEngine) antennaSourceMatches(ctx context.Context, antenna *domain.Antenna, author *domain.Actor) (bool, error) {
	switch antenna.Src {
	case domain.AntennaSrcHome:
		if antenna.ActorID == author.ID {
			return true, nil
		}
		return e.relationships.IsFollowing(ctx, antenna.ActorID, author.ID)
	case domain.AntennaSrcList:
		if antenna.UserListID == nil {
			return false, nil
		}
		members, err := e.relationships.ListMemberIDs(ctx, *antenna.UserListID)
		if err != nil {
			return false, err
		}
		return containsString(members, author.ID), nil
	case domain.AntennaSrcGroup:
		if antenna.UserGroupID == nil {
			return false, nil
		}
		members, err := e.relationships.GroupMemberIDs(ctx, *antenna.UserGroupID)
		if err != nil {
			return false, err
		}
		return containsString(members, author.ID), nil
	case domain.AntennaSrcUsers:
		handle := kagari.FullHandle(author.Username, author.Host, e.config.FQDN)
		for _, entry := range antenna.Users {
			candidate := strings.TrimPrefix(strings.TrimSpace(entry), "@")
			if !strings.Contains(candidate, "@") {
				candidate = candidate + "@" + kagari.ToPuny(e.config.FQDN)
			}
			if strings.EqualFold(candidate, handle) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

// keywordGroupsMatch evaluates OR-of-AND keyword groups against text. All
// matching is substring. emptyResult is the verdict when no usable group is
// configured: include-groups pass vacuously, exclude-groups do not.
func keywordGroupsMatch(groups [][]string, text string, caseSensitive, emptyResult bool) bool {
	subject := text
	if !caseSensitive {
		subject = strings.ToLower(text)
	}

	sawGroup := false
	for _, group := range groups {
		keywords := make([]string, 0, len(group))
		for _, kw := range group {
			if strings.TrimSpace(kw) != "" {
				keywords = append(keywords, kw)
			}
		}
		if len(keywords) == 0 {
			continue
		}
		sawGroup = true

		all := true
		for _, kw := range keywords {
			if !caseSensitive {
				kw = strings.ToLower(kw)
			}
			if !strings.Contains(subject, kw) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}

	if !sawGroup {
		return emptyResult
	}
	return false
}
