package kagari

import "encoding/json"

// Actor is the wire representation of a remote identity document.
type Actor struct {
	Context           json.RawMessage `json:"@context,omitempty"`
	ID                string          `json:"id"`
	Type              string          `json:"type"`
	PreferredUsername string          `json:"preferredUsername"`
	Name              string          `json:"name,omitempty"`
	Summary           string          `json:"summary,omitempty"`
	Inbox             string          `json:"inbox"`
	Outbox            string          `json:"outbox,omitempty"`
	Followers         string          `json:"followers,omitempty"`
	Following         string          `json:"following,omitempty"`
	Endpoints         *Endpoints      `json:"endpoints,omitempty"`
	PublicKey         *Key            `json:"publicKey,omitempty"`
	MovedTo           string          `json:"movedTo,omitempty"`
	AlsoKnownAs       []string        `json:"alsoKnownAs,omitempty"`
	Suspended         bool            `json:"suspended,omitempty"`
}

// Endpoints carries the shared inbox when the remote server exposes one.
type Endpoints struct {
	SharedInbox string `json:"sharedInbox,omitempty"`
}

// Key is the public key block of an actor document. Owner points back at the
// actor; the directory enforces that relation before trusting the key.
type Key struct {
	ID           string `json:"id"`
	Type         string `json:"type,omitempty"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

var actorTypes = map[string]bool{
	"Person":       true,
	"Service":      true,
	"Group":        true,
	"Organization": true,
	"Application":  true,
}

// IsActorType reports whether the wire type denotes an identity document.
func IsActorType(apType string) bool {
	return actorTypes[apType]
}

// IsKeyLike reports whether a resolved object carries enough of a key block
// to be treated as one, even if it is not a full actor document.
func IsKeyLike(k *Key) bool {
	return k != nil && k.Owner != "" && k.PublicKeyPem != ""
}
