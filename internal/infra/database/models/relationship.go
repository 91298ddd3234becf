package models

import (
	"time"

	"gorm.io/datatypes"
)

type Follow struct {
	FollowerID   string    `json:"followerId" gorm:"primaryKey;type:text"`
	FolloweeID   string    `json:"followeeId" gorm:"primaryKey;type:text;index"`
	FollowerHost string    `json:"followerHost" gorm:"type:text;not null;default:''"`
	FolloweeHost string    `json:"followeeHost" gorm:"type:text;not null;default:''"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Blocking struct {
	BlockerID string    `json:"blockerId" gorm:"primaryKey;type:text"`
	BlockeeID string    `json:"blockeeId" gorm:"primaryKey;type:text;index"`
	CDate     time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Muting struct {
	MuterID   string     `json:"muterId" gorm:"primaryKey;type:text"`
	MuteeID   string     `json:"muteeId" gorm:"primaryKey;type:text;index"`
	ExpiresAt *time.Time `json:"expiresAt" gorm:"type:timestamp with time zone"`
	CDate     time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type ThreadMuting struct {
	ActorID  string                      `json:"actorId" gorm:"primaryKey;type:text"`
	ThreadID string                      `json:"threadId" gorm:"primaryKey;type:text;index"`
	Reasons  datatypes.JSONSlice[string] `json:"reasons"`
}

type WordMuteRule struct {
	ID       string                      `json:"id" gorm:"primaryKey;type:text"`
	ActorID  string                      `json:"actorId" gorm:"type:text;index;not null"`
	Keywords datatypes.JSONSlice[string] `json:"keywords"`
}

type UserListMember struct {
	ListID  string `json:"listId" gorm:"primaryKey;type:text"`
	ActorID string `json:"actorId" gorm:"primaryKey;type:text;index"`
}

type UserGroupMember struct {
	GroupID string `json:"groupId" gorm:"primaryKey;type:text"`
	ActorID string `json:"actorId" gorm:"primaryKey;type:text;index"`
}
