package usecase

import (
	"context"
	"testing"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
)

const (
	remoteActorURI = "https://remote.example/users/alice"
	remoteKeyID    = remoteActorURI + "#main-key"
)

func remoteActorDoc() *kagari.Actor {
	return &kagari.Actor{
		ID:                remoteActorURI,
		Type:              "Person",
		PreferredUsername: "alice",
		Inbox:             "https://remote.example/users/alice/inbox",
		PublicKey: &kagari.Key{
			ID:           remoteKeyID,
			Owner:        remoteActorURI,
			PublicKeyPem: "-----BEGIN PUBLIC KEY-----\n...\n-----END PUBLIC KEY-----",
		},
	}
}

func TestResolveByKeyIDFetchesAndRetriesOnce(t *testing.T) {
	actors := newMockActorStore()
	resolver := newMockResolver()
	resolver.actors[remoteActorURI] = remoteActorDoc()

	d := NewActorDirectory(actors, resolver)

	user, err := d.ResolveByKeyID(context.Background(), remoteKeyID)
	if err != nil {
		t.Fatal(err)
	}
	if user == nil || user.Actor.URI != remoteActorURI {
		t.Fatalf("resolved %+v", user)
	}
	if user.Key == nil || user.Key.KeyID != remoteKeyID {
		t.Fatalf("key not resolved: %+v", user.Key)
	}
	if len(resolver.fetches) != 1 {
		t.Errorf("fetched %d times, want 1", len(resolver.fetches))
	}

	// Second resolution is a cache hit.
	if _, err := d.ResolveByKeyID(context.Background(), remoteKeyID); err != nil {
		t.Fatal(err)
	}
	if len(resolver.fetches) != 1 {
		t.Errorf("cache hit still fetched, %d fetches", len(resolver.fetches))
	}
}

func TestResolveByKeyIDPrefersStore(t *testing.T) {
	actors := newMockActorStore()
	actors.add(&domain.Actor{ID: "a1", URI: remoteActorURI, Host: "remote.example"})
	actors.keys[remoteKeyID] = &domain.PublicKey{KeyID: remoteKeyID, ActorID: "a1", KeyPem: "pem"}

	resolver := newMockResolver()
	d := NewActorDirectory(actors, resolver)

	user, err := d.ResolveByKeyID(context.Background(), remoteKeyID)
	if err != nil {
		t.Fatal(err)
	}
	if user == nil || user.Actor.ID != "a1" {
		t.Fatalf("resolved %+v", user)
	}
	if len(resolver.fetches) != 0 {
		t.Errorf("stored key should not trigger a fetch, got %d", len(resolver.fetches))
	}
}

func TestResolveByKeyIDUnknownKeyReturnsNil(t *testing.T) {
	actors := newMockActorStore()
	resolver := newMockResolver()
	// The owner document resolves but carries a different key id.
	doc := remoteActorDoc()
	doc.PublicKey.ID = remoteActorURI + "#other-key"
	resolver.actors[remoteActorURI] = doc

	d := NewActorDirectory(actors, resolver)

	user, err := d.ResolveByKeyID(context.Background(), remoteKeyID)
	if err != nil {
		t.Fatal(err)
	}
	if user != nil {
		t.Errorf("resolved %+v, want nil", user)
	}
}

func TestMaterializeRejectsForeignKeyOwner(t *testing.T) {
	actors := newMockActorStore()
	resolver := newMockResolver()
	doc := remoteActorDoc()
	doc.PublicKey.Owner = "https://evil.example/users/mallory"
	resolver.actors[remoteActorURI] = doc

	d := NewActorDirectory(actors, resolver)

	if _, err := d.ResolveByKeyID(context.Background(), remoteKeyID); err == nil {
		t.Error("a key owned by another actor must not materialize")
	}
}

func TestRefreshActorBypassesCache(t *testing.T) {
	actors := newMockActorStore()
	resolver := newMockResolver()
	resolver.actors[remoteActorURI] = remoteActorDoc()

	d := NewActorDirectory(actors, resolver)

	if _, err := d.ResolveByActorURI(context.Background(), remoteActorURI); err != nil {
		t.Fatal(err)
	}
	before := len(resolver.fetches)

	doc, actor, err := d.RefreshActor(context.Background(), remoteActorURI)
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != remoteActorURI || actor.URI != remoteActorURI {
		t.Errorf("refreshed doc=%q actor=%q", doc.ID, actor.URI)
	}
	if len(resolver.fetches) != before+1 {
		t.Errorf("refresh must hit the network, fetches %d -> %d", before, len(resolver.fetches))
	}
}

func TestGetOrFetchKnownActorSkipsNetwork(t *testing.T) {
	actors := newMockActorStore()
	actors.add(&domain.Actor{ID: "a1", URI: remoteActorURI, Host: "remote.example"})
	resolver := newMockResolver()

	d := NewActorDirectory(actors, resolver)

	actor, err := d.GetOrFetch(context.Background(), remoteActorURI)
	if err != nil {
		t.Fatal(err)
	}
	if actor == nil || actor.ID != "a1" {
		t.Fatalf("got %+v", actor)
	}
	if len(resolver.fetches) != 0 {
		t.Errorf("stored actor should not trigger a fetch")
	}
}
