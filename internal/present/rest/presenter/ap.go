package presenter

import (
	"encoding/json"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
)

var apContext = json.RawMessage(`["https://www.w3.org/ns/activitystreams","https://w3id.org/security/v1"]`)

// RenderActor builds the dereferenceable document of a local actor.
func RenderActor(config *domain.Config, actor *domain.Actor, key *domain.PublicKey) *kagari.Actor {
	base := config.BaseURL + "/users/" + actor.ID
	doc := &kagari.Actor{
		Context:           apContext,
		ID:                base,
		Type:              "Person",
		PreferredUsername: actor.Username,
		Name:              actor.DisplayName,
		Inbox:             base + "/inbox",
		Outbox:            base + "/outbox",
		Followers:         base + "/followers",
		Following:         base + "/following",
		Endpoints:         &kagari.Endpoints{SharedInbox: config.BaseURL + "/inbox"},
	}
	if key != nil {
		doc.PublicKey = &kagari.Key{
			ID:           base + "#main-key",
			Type:         "Key",
			Owner:        base,
			PublicKeyPem: key.KeyPem,
		}
	}
	if actor.MovedToID != nil {
		doc.MovedTo = config.BaseURL + "/users/" + *actor.MovedToID
	}
	return doc
}

// RenderNote builds the dereferenceable document of a local note.
func RenderNote(config *domain.Config, author *domain.Actor, note *domain.Note) *kagari.Note {
	followers := config.BaseURL + "/users/" + author.ID + "/followers"
	to, cc := kagari.Addressing(note.Visibility, followers)

	doc := &kagari.Note{
		Context:      apContext,
		ID:           note.URI,
		Type:         "Note",
		AttributedTo: kagari.ObjectRef{ID: config.BaseURL + "/users/" + author.ID},
		Content:      note.Text,
		To:           to,
		CC:           cc,
		Published:    &note.CreatedAt,
		Updated:      note.UpdatedAt,
	}
	for _, tag := range note.Tags {
		doc.Tag = append(doc.Tag, kagari.Tag{Type: "Hashtag", Name: "#" + tag})
	}
	return doc
}

// RenderCreate wraps a note document in its Create activity.
func RenderCreate(config *domain.Config, author *domain.Actor, note *domain.Note) (*kagari.Activity, error) {
	object := RenderNote(config, author, note)
	object.Context = nil
	raw, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}
	return &kagari.Activity{
		Context: apContext,
		ID:      note.URI + "/activity",
		Type:    kagari.ActivityCreate,
		Actor:   kagari.ObjectRef{ID: config.BaseURL + "/users/" + author.ID},
		Object:  kagari.ObjectRef{ID: note.URI, Raw: raw},
	}, nil
}

// OrderedCollection is the bare collection shell served for outbox and
// follower listings. Pages are not exposed.
type OrderedCollection struct {
	Context json.RawMessage `json:"@context"`
	ID      string          `json:"id"`
	Type    string          `json:"type"`
}

func RenderCollection(id string) *OrderedCollection {
	return &OrderedCollection{
		Context: apContext,
		ID:      id,
		Type:    "OrderedCollection",
	}
}

// WebfingerLink is one JRD link entry.
type WebfingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}

// Webfinger is the JRD document answering acct: lookups.
type Webfinger struct {
	Subject string          `json:"subject"`
	Links   []WebfingerLink `json:"links"`
}

func RenderWebfinger(config *domain.Config, actor *domain.Actor) *Webfinger {
	uri := config.BaseURL + "/users/" + actor.ID
	return &Webfinger{
		Subject: "acct:" + actor.Username + "@" + config.FQDN,
		Links: []WebfingerLink{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: uri,
			},
		},
	}
}
