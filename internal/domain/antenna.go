package domain

// Antenna sources. Designation mirrors the persisted `src` column.
const (
	AntennaSrcHome  = "home"
	AntennaSrcList  = "list"
	AntennaSrcGroup = "group"
	AntennaSrcUsers = "users"
)

// Antenna is a saved filter owned by one local actor, matched against every
// newly visible note. Keywords are OR-of-AND groups; ExcludeKeywords
// suppress a hit when any group fully matches.
type Antenna struct {
	ID              string     `json:"id"`
	ActorID         string     `json:"actorId"`
	Name            string     `json:"name"`
	Src             string     `json:"src"`
	UserListID      *string    `json:"userListId,omitempty"`
	UserGroupID     *string    `json:"userGroupId,omitempty"`
	Users           []string   `json:"users,omitempty"`
	Keywords        [][]string `json:"keywords,omitempty"`
	ExcludeKeywords [][]string `json:"excludeKeywords,omitempty"`
	CaseSensitive   bool       `json:"caseSensitive"`
	WithReplies     bool       `json:"withReplies"`
	WithFile        bool       `json:"withFile"`
}
