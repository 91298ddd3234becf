package models

import (
	"time"
)

// Actor holds both local and remote identities. Host is "" for local actors.
type Actor struct {
	ID            string     `json:"id" gorm:"primaryKey;type:text"`
	Username      string     `json:"username" gorm:"type:text;not null;index:actor_handle,unique,composite:handle"`
	Host          string     `json:"host" gorm:"type:text;not null;default:'';index;index:actor_handle,unique,composite:handle"`
	URI           string     `json:"uri" gorm:"type:text;uniqueIndex"`
	Inbox         string     `json:"inbox" gorm:"type:text"`
	SharedInbox   string     `json:"sharedInbox" gorm:"type:text"`
	FollowersURI  string     `json:"followersUri" gorm:"type:text"`
	DisplayName   string     `json:"displayName" gorm:"type:text"`
	IsSuspended   bool       `json:"isSuspended" gorm:"not null;default:false"`
	IsSilenced    bool       `json:"isSilenced" gorm:"not null;default:false"`
	MovedToID     *string    `json:"movedToId" gorm:"type:text"`
	NotesCount    int64      `json:"notesCount" gorm:"not null;default:0"`
	LastFetchedAt *time.Time `json:"lastFetchedAt" gorm:"type:timestamp with time zone"`
	CDate         time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate         time.Time  `json:"mdate" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// PublicKey is keyed by the key URI; one row per actor.
type PublicKey struct {
	KeyID   string `json:"keyId" gorm:"primaryKey;type:text"`
	ActorID string `json:"actorId" gorm:"type:text;uniqueIndex;not null"`
	Actor   Actor  `json:"-" gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE;"`
	KeyPem  string `json:"keyPem" gorm:"type:text;not null"`
}
