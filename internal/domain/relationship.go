package domain

import "time"

// Follow is a follower→followee edge. Hosts are denormalized so fan-out can
// split local and remote followers without a join.
type Follow struct {
	FollowerID   string `json:"followerId"`
	FolloweeID   string `json:"followeeId"`
	FollowerHost string `json:"followerHost,omitempty"`
	FolloweeHost string `json:"followeeHost,omitempty"`
}

// Blocking is a blocker→blockee edge.
type Blocking struct {
	BlockerID string `json:"blockerId"`
	BlockeeID string `json:"blockeeId"`
}

// Muting is a muter→mutee suppression with optional expiry.
type Muting struct {
	MuterID   string     `json:"muterId"`
	MuteeID   string     `json:"muteeId"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Active reports whether the mute applies at the given instant.
func (m *Muting) Active(now time.Time) bool {
	return m.ExpiresAt == nil || m.ExpiresAt.After(now)
}

// ThreadMuting suppresses notifications of the listed reasons for one thread.
type ThreadMuting struct {
	ActorID  string   `json:"actorId"`
	ThreadID string   `json:"threadId"`
	Reasons  []string `json:"reasons"`
}

// WordMuteRule hides notes whose text contains every keyword of the rule.
type WordMuteRule struct {
	ActorID  string   `json:"actorId"`
	Keywords []string `json:"keywords"`
}

// MoveBatch is the precomputed, all-or-nothing set of writes applying an
// actor move: the move edge itself, one notification per local follower and
// the block/mute propagation onto the target.
type MoveBatch struct {
	OriginID         string
	TargetID         string
	LocalFollowerIDs []string
	NewBlockerIDs    []string
	NewMuterIDs      []string
}
