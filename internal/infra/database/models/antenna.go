package models

import (
	"time"

	"gorm.io/datatypes"
)

type Antenna struct {
	ID              string                          `json:"id" gorm:"primaryKey;type:text"`
	ActorID         string                          `json:"actorId" gorm:"type:text;index;not null"`
	Actor           Actor                           `json:"-" gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE;"`
	Name            string                          `json:"name" gorm:"type:text;not null"`
	Src             string                          `json:"src" gorm:"type:text;not null"`
	UserListID      *string                         `json:"userListId" gorm:"type:text"`
	UserGroupID     *string                         `json:"userGroupId" gorm:"type:text"`
	Users           datatypes.JSONSlice[string]     `json:"users"`
	Keywords        datatypes.JSONType[[][]string]  `json:"keywords"`
	ExcludeKeywords datatypes.JSONType[[][]string]  `json:"excludeKeywords"`
	CaseSensitive   bool                            `json:"caseSensitive" gorm:"not null;default:false"`
	WithReplies     bool                            `json:"withReplies" gorm:"not null;default:false"`
	WithFile        bool                            `json:"withFile" gorm:"not null;default:false"`
	CDate           time.Time                       `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type AntennaNote struct {
	AntennaID string    `json:"antennaId" gorm:"primaryKey;type:text"`
	NoteID    string    `json:"noteId" gorm:"primaryKey;type:text;index"`
	Note      Note      `json:"-" gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE;"`
	CDate     time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
