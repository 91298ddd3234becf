package domain

import "time"

// Note is a unit of content. ThreadID always resolves to the root of the
// reply chain; it is empty on a root note (the note's own id is the thread).
type Note struct {
	ID         string    `json:"id"`
	URI        string    `json:"uri"`
	ActorID    string    `json:"actorId"`
	ActorHost  string    `json:"actorHost,omitempty"`
	Text       string    `json:"text,omitempty"`
	CW         string    `json:"cw,omitempty"`
	Visibility string    `json:"visibility"`
	LocalOnly  bool      `json:"localOnly"`
	CreatedAt  time.Time `json:"createdAt"`

	// UpdatedAt stays nil until the first edit.
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`

	ReplyID   *string `json:"replyId,omitempty"`
	RenoteID  *string `json:"renoteId,omitempty"`
	ThreadID  *string `json:"threadId,omitempty"`
	ChannelID *string `json:"channelId,omitempty"`

	Mentions        []string `json:"mentions,omitempty"`
	VisibleActorIDs []string `json:"visibleActorIds,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	FileIDs         []string `json:"fileIds,omitempty"`

	// Denormalized parent authorship, avoids a join during fan-out.
	ReplyActorID    *string `json:"replyActorId,omitempty"`
	ReplyActorHost  *string `json:"replyActorHost,omitempty"`
	RenoteActorID   *string `json:"renoteActorId,omitempty"`
	RenoteActorHost *string `json:"renoteActorHost,omitempty"`
}

// EffectiveThreadID is the thread the note belongs to for mute matching.
func (n *Note) EffectiveThreadID() string {
	if n.ThreadID != nil {
		return *n.ThreadID
	}
	return n.ID
}

// IsRenote reports whether the note renotes another.
func (n *Note) IsRenote() bool {
	return n.RenoteID != nil
}

// IsQuote reports whether the note renotes another while adding text.
func (n *Note) IsQuote() bool {
	return n.RenoteID != nil && n.Text != ""
}
