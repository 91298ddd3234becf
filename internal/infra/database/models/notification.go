package models

import (
	"time"
)

type Notification struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	RecipientID  string    `json:"recipientId" gorm:"type:text;index;not null"`
	NotifierID   string    `json:"notifierId" gorm:"type:text;not null"`
	Type         string    `json:"type" gorm:"type:text;not null"`
	NoteID       *string   `json:"noteId" gorm:"type:text"`
	MoveTargetID *string   `json:"moveTargetId" gorm:"type:text"`
	IsRead       bool      `json:"isRead" gorm:"not null;default:false"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type NoteUnread struct {
	ActorID     string `json:"actorId" gorm:"primaryKey;type:text"`
	NoteID      string `json:"noteId" gorm:"primaryKey;type:text;index"`
	Note        Note   `json:"-" gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE;"`
	IsSpecified bool   `json:"isSpecified" gorm:"not null;default:false"`
	IsMentioned bool   `json:"isMentioned" gorm:"not null;default:false"`
}
