package domain

import "time"

// Notification reasons. Mention is the weakest; any other reason outranks
// it when both apply to the same recipient in one fan-out pass.
const (
	NotificationMention = "mention"
	NotificationReply   = "reply"
	NotificationRenote  = "renote"
	NotificationQuote   = "quote"
	NotificationUpdate  = "update"
	NotificationMove    = "move"
)

// Notification is a persisted per-recipient notice.
type Notification struct {
	ID           string    `json:"id"`
	RecipientID  string    `json:"recipientId"`
	NotifierID   string    `json:"notifierId"`
	Type         string    `json:"type"`
	NoteID       *string   `json:"noteId,omitempty"`
	MoveTargetID *string   `json:"moveTargetId,omitempty"`
	IsRead       bool      `json:"isRead"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NoteUnread marks a note as unread for a recipient.
type NoteUnread struct {
	ActorID     string `json:"actorId"`
	NoteID      string `json:"noteId"`
	IsSpecified bool   `json:"isSpecified"`
	IsMentioned bool   `json:"isMentioned"`
}
