package kagari

import (
	"encoding/json"
	"time"
)

const (
	// ContentTypeActivityJSON is the preferred machine-readable media type.
	ContentTypeActivityJSON = "application/activity+json; charset=utf-8"
	// ContentTypeLDJSON is the secondary machine-readable media type.
	ContentTypeLDJSON = `application/ld+json; profile="https://www.w3.org/ns/activitystreams"; charset=utf-8`

	// PublicAddress marks a note as publicly addressed.
	PublicAddress = "https://www.w3.org/ns/activitystreams#Public"
)

// Activity type discriminators handled by the dispatcher. Anything else is
// ActivityUnknown and skipped explicitly.
const (
	ActivityCreate  = "Create"
	ActivityUpdate  = "Update"
	ActivityMove    = "Move"
	ActivityUnknown = "Unknown"
)

// Activity is the partially-typed envelope pushed into an inbox. Only the
// fields the dispatcher needs are decoded; everything else stays raw.
type Activity struct {
	Context   json.RawMessage `json:"@context,omitempty"`
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Actor     ObjectRef       `json:"actor,omitempty"`
	Object    ObjectRef       `json:"object,omitempty"`
	Target    ObjectRef       `json:"target,omitempty"`
	Signature *LdSignature    `json:"signature,omitempty"`
}

// Kind maps the wire type onto the closed set of handled variants.
func (a *Activity) Kind() string {
	switch a.Type {
	case ActivityCreate, ActivityUpdate, ActivityMove:
		return a.Type
	default:
		return ActivityUnknown
	}
}

// ParseActivity decodes a raw inbox body into an envelope.
func ParseActivity(raw []byte) (Activity, error) {
	var activity Activity
	err := json.Unmarshal(raw, &activity)
	return activity, err
}

// LdSignature is the legacy embedded linked-data signature block.
type LdSignature struct {
	Type           string `json:"type"`
	Creator        string `json:"creator"`
	Created        string `json:"created,omitempty"`
	Domain         string `json:"domain,omitempty"`
	Nonce          string `json:"nonce,omitempty"`
	SignatureValue string `json:"signatureValue"`
}

// ObjectRef is a reference that arrives either as a bare id string or as an
// inlined object with an `id` field. Raw keeps the inlined document so the
// dispatcher can interpret it without a second fetch.
type ObjectRef struct {
	ID  string
	Raw json.RawMessage
}

func (r *ObjectRef) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		r.ID = id
		r.Raw = nil
		return nil
	}

	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	r.ID = probe.ID
	r.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (r ObjectRef) MarshalJSON() ([]byte, error) {
	if r.Raw != nil {
		return r.Raw, nil
	}
	return json.Marshal(r.ID)
}

// IsZero reports whether the reference is absent.
func (r ObjectRef) IsZero() bool {
	return r.ID == "" && r.Raw == nil
}

// Tag is a mention/hashtag hint embedded in a note document.
type Tag struct {
	Type string `json:"type"`
	Href string `json:"href,omitempty"`
	Name string `json:"name,omitempty"`
}

// Attachment is a file reference embedded in a note document.
type Attachment struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url"`
}

// Note is the wire representation of a content unit.
type Note struct {
	Context      json.RawMessage `json:"@context,omitempty"`
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	AttributedTo ObjectRef       `json:"attributedTo,omitempty"`
	Content      string          `json:"content,omitempty"`
	Source       *NoteSource     `json:"source,omitempty"`
	InReplyTo    ObjectRef       `json:"inReplyTo,omitempty"`
	QuoteURL     string          `json:"quoteUrl,omitempty"`
	To           []string        `json:"to,omitempty"`
	CC           []string        `json:"cc,omitempty"`
	Tag          []Tag           `json:"tag,omitempty"`
	Attachment   []Attachment    `json:"attachment,omitempty"`
	Published    *time.Time      `json:"published,omitempty"`
	Updated      *time.Time      `json:"updated,omitempty"`
}

// NoteSource carries the unrendered text of a note, when the origin server
// exposes it.
type NoteSource struct {
	Content   string `json:"content"`
	MediaType string `json:"mediaType,omitempty"`
}

// IsPost reports whether the wire type is a content unit kind.
func IsPost(apType string) bool {
	switch apType {
	case "Note", "Article", "Question", "Page":
		return true
	}
	return false
}

// Visibility levels of a content unit, ordered from widest to narrowest.
const (
	VisibilityPublic    = "public"
	VisibilityHome      = "home"
	VisibilityFollowers = "followers"
	VisibilitySpecified = "specified"
)

// DeriveVisibility maps to/cc addressing onto a visibility level.
// followersURI is the author's followers collection.
func DeriveVisibility(to, cc []string, followersURI string) string {
	if contains(to, PublicAddress) {
		return VisibilityPublic
	}
	if contains(cc, PublicAddress) {
		return VisibilityHome
	}
	if followersURI != "" && (contains(to, followersURI) || contains(cc, followersURI)) {
		return VisibilityFollowers
	}
	return VisibilitySpecified
}

// Addressing is the inverse of DeriveVisibility: it maps a visibility level
// back onto to/cc addressing for outbound activities. Specified notes carry
// their recipients separately.
func Addressing(visibility, followersURI string) (to, cc []string) {
	switch visibility {
	case VisibilityPublic:
		return []string{PublicAddress}, []string{followersURI}
	case VisibilityHome:
		return []string{followersURI}, []string{PublicAddress}
	case VisibilityFollowers:
		return []string{followersURI}, nil
	default:
		return nil, nil
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
