package models

import (
	"time"

	"gorm.io/datatypes"
)

// Instance is the per-remote-host federation record.
type Instance struct {
	Host                    string     `json:"host" gorm:"primaryKey;type:text"`
	IsBlocked               bool       `json:"isBlocked" gorm:"not null;default:false"`
	NotesCount              int64      `json:"notesCount" gorm:"not null;default:0"`
	LatestRequestReceivedAt *time.Time `json:"latestRequestReceivedAt" gorm:"type:timestamp with time zone"`
	LastCommunicatedAt      *time.Time `json:"lastCommunicatedAt" gorm:"type:timestamp with time zone"`
	IsNotResponding         bool       `json:"isNotResponding" gorm:"not null;default:false"`
	CDate                   time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Webhook struct {
	ID      string                      `json:"id" gorm:"primaryKey;type:text"`
	ActorID string                      `json:"actorId" gorm:"type:text;index;not null"`
	URL     string                      `json:"url" gorm:"type:text;not null"`
	Secret  string                      `json:"secret" gorm:"type:text"`
	On      datatypes.JSONSlice[string] `json:"on"`
	Active  bool                        `json:"active" gorm:"not null;default:true"`
}

// RelaySubscription is a relay the server pushes public activities to.
type RelaySubscription struct {
	ID       string `json:"id" gorm:"primaryKey;type:text"`
	InboxURL string `json:"inboxUrl" gorm:"type:text;uniqueIndex;not null"`
	Status   string `json:"status" gorm:"type:text;not null;default:'accepted'"`
}
