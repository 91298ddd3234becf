package models

import (
	"time"

	"gorm.io/datatypes"
)

type Note struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text"`
	URI        string    `json:"uri" gorm:"type:text;uniqueIndex;not null"`
	ActorID    string    `json:"actorId" gorm:"type:text;index;not null"`
	Actor      Actor     `json:"-" gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE;"`
	ActorHost  string    `json:"actorHost" gorm:"type:text;not null;default:''"`
	Text       string    `json:"text" gorm:"type:text"`
	CW         string    `json:"cw" gorm:"type:text"`
	Visibility string    `json:"visibility" gorm:"type:text;not null;index"`
	LocalOnly  bool      `json:"localOnly" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"createdAt" gorm:"type:timestamp with time zone;not null"`

	RepliesCount int64 `json:"repliesCount" gorm:"not null;default:0"`
	RenoteCount  int64 `json:"renoteCount" gorm:"not null;default:0"`
	Score        int64 `json:"score" gorm:"not null;default:0"`

	UpdatedAt *time.Time `json:"updatedAt" gorm:"type:timestamp with time zone"`

	ReplyID   *string `json:"replyId" gorm:"type:text;index"`
	RenoteID  *string `json:"renoteId" gorm:"type:text;index"`
	ThreadID  *string `json:"threadId" gorm:"type:text;index"`
	ChannelID *string `json:"channelId" gorm:"type:text;index"`

	Mentions        datatypes.JSONSlice[string] `json:"mentions"`
	VisibleActorIDs datatypes.JSONSlice[string] `json:"visibleActorIds"`
	Tags            datatypes.JSONSlice[string] `json:"tags"`
	FileIDs         datatypes.JSONSlice[string] `json:"fileIds"`

	ReplyActorID    *string `json:"replyActorId" gorm:"type:text"`
	ReplyActorHost  *string `json:"replyActorHost" gorm:"type:text"`
	RenoteActorID   *string `json:"renoteActorId" gorm:"type:text"`
	RenoteActorHost *string `json:"renoteActorHost" gorm:"type:text"`
}

// MutedNote marks a note as suppressed for one actor, e.g. by a word mute.
type MutedNote struct {
	ID      string `json:"id" gorm:"primaryKey;type:text"`
	ActorID string `json:"actorId" gorm:"type:text;index:muted_note_pair,unique;not null"`
	NoteID  string `json:"noteId" gorm:"type:text;index:muted_note_pair,unique;not null"`
	Note    Note   `json:"-" gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE;"`
	Reason  string `json:"reason" gorm:"type:text;not null"`
}

// Hashtag is the per-tag usage counter feeding trends.
type Hashtag struct {
	Name       string    `json:"name" gorm:"primaryKey;type:text"`
	NotesCount int64     `json:"notesCount" gorm:"not null;default:0"`
	MDate      time.Time `json:"mdate" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}
