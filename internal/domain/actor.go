package domain

import "time"

// Actor is a local or remote identity. Host is empty for local actors.
type Actor struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Host          string     `json:"host,omitempty"`
	URI           string     `json:"uri"`
	Inbox         string     `json:"inbox,omitempty"`
	SharedInbox   string     `json:"sharedInbox,omitempty"`
	FollowersURI  string     `json:"followersUri,omitempty"`
	DisplayName   string     `json:"displayName,omitempty"`
	IsSuspended   bool       `json:"isSuspended"`
	IsSilenced    bool       `json:"isSilenced"`
	MovedToID     *string    `json:"movedToId,omitempty"`
	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`
}

// IsLocal reports whether the actor lives on this server.
func (a *Actor) IsLocal() bool {
	return a.Host == ""
}

// IsRemote reports whether the actor lives on another server.
func (a *Actor) IsRemote() bool {
	return a.Host != ""
}

// PublicKey is the signing key owned by exactly one actor.
type PublicKey struct {
	KeyID   string `json:"keyId"`
	ActorID string `json:"actorId"`
	KeyPem  string `json:"keyPem"`
}

// AuthUser pairs an actor with its verified public key. It is only produced
// by the directory and never persisted; it is the authorization context
// handed to the dispatcher.
type AuthUser struct {
	Actor *Actor
	Key   *PublicKey
}
