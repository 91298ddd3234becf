package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
)

var tracer = otel.Tracer("usecase")

const directoryCacheTTL = 2 * time.Hour

// ActorDirectory resolves actors and their signing keys from cache, store,
// or a remote fetch. Two cache indices cover the same record: one by key id
// and one by actor uri. Cache hits are trusted for authentication only;
// trust-sensitive reads (moves, profile updates) go through RefreshActor.
type ActorDirectory struct {
	actors   ActorStore
	resolver Resolver

	byKeyID *cache.Cache
	byURI   *cache.Cache
}

func NewActorDirectory(actors ActorStore, resolver Resolver) *ActorDirectory {
	return &ActorDirectory{
		actors:   actors,
		resolver: resolver,
		byKeyID:  cache.New(directoryCacheTTL, 3*time.Hour),
		byURI:    cache.New(directoryCacheTTL, 3*time.Hour),
	}
}

// ResolveByKeyID resolves a signature key id to an authenticated actor.
// Resolution order: key-id cache, store, remote fetch of the key owner with
// exactly one store retry.
func (d *ActorDirectory) ResolveByKeyID(ctx context.Context, keyID string) (*domain.AuthUser, error) {
	ctx, span := tracer.Start(ctx, "Directory.ResolveByKeyID")
	defer span.End()

	if cached, ok := d.byKeyID.Get(keyID); ok {
		return cached.(*domain.AuthUser), nil
	}

	user, err := d.lookupByKeyID(ctx, keyID)
	if err == nil {
		d.remember(user)
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return nil, err
	}

	// The key is unknown; fetch its owner and retry the lookup once.
	if _, err := d.GetOrFetch(ctx, kagari.StripFragment(keyID)); err != nil {
		span.RecordError(err)
		return nil, err
	}
	user, err = d.lookupByKeyID(ctx, keyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}
	d.remember(user)
	return user, nil
}

// ResolveByActorURI resolves an actor uri to an authenticated actor, fetching
// and materializing the actor when it is not yet known.
func (d *ActorDirectory) ResolveByActorURI(ctx context.Context, uri string) (*domain.AuthUser, error) {
	ctx, span := tracer.Start(ctx, "Directory.ResolveByActorURI")
	defer span.End()

	if cached, ok := d.byURI.Get(uri); ok {
		return cached.(*domain.AuthUser), nil
	}

	actor, err := d.GetOrFetch(ctx, uri)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if actor == nil {
		return nil, nil
	}

	key, err := d.actors.GetKeyByActorID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}

	user := &domain.AuthUser{Actor: actor, Key: key}
	d.remember(user)
	return user, nil
}

// GetOrFetch returns the stored actor for the uri, fetching and materializing
// it on a miss with exactly one store retry.
func (d *ActorDirectory) GetOrFetch(ctx context.Context, uri string) (*domain.Actor, error) {
	ctx, span := tracer.Start(ctx, "Directory.GetOrFetch")
	defer span.End()

	actor, err := d.actors.GetActorByURI(ctx, uri)
	if err == nil {
		return actor, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return nil, err
	}

	if err := d.fetchAndMaterialize(ctx, uri); err != nil {
		span.RecordError(err)
		return nil, err
	}

	actor, err = d.actors.GetActorByURI(ctx, uri)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, err
	}
	return actor, nil
}

// RefreshActor re-fetches the authoritative remote representation, bypassing
// every cache, and updates the stored record. Returns the wire document so
// callers can read fields not mirrored locally, such as alsoKnownAs.
func (d *ActorDirectory) RefreshActor(ctx context.Context, uri string) (*kagari.Actor, *domain.Actor, error) {
	ctx, span := tracer.Start(ctx, "Directory.RefreshActor")
	defer span.End()

	doc, err := d.resolver.FetchActorFresh(ctx, uri)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	if err := d.materialize(ctx, doc); err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	actor, err := d.actors.GetActorByURI(ctx, doc.ID)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	d.byURI.Delete(actor.URI)
	if doc.PublicKey != nil {
		d.byKeyID.Delete(doc.PublicKey.ID)
	}
	return doc, actor, nil
}

func (d *ActorDirectory) remember(user *domain.AuthUser) {
	if user.Key != nil {
		d.byKeyID.Set(user.Key.KeyID, user, cache.DefaultExpiration)
	}
	d.byURI.Set(user.Actor.URI, user, cache.DefaultExpiration)
}

func (d *ActorDirectory) lookupByKeyID(ctx context.Context, keyID string) (*domain.AuthUser, error) {
	key, err := d.actors.GetKeyByKeyID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	actor, err := d.actors.GetActor(ctx, key.ActorID)
	if err != nil {
		return nil, err
	}
	return &domain.AuthUser{Actor: actor, Key: key}, nil
}

func (d *ActorDirectory) fetchAndMaterialize(ctx context.Context, uri string) error {
	doc, err := d.resolver.FetchActor(ctx, uri)
	if err != nil {
		return err
	}
	return d.materialize(ctx, doc)
}

// materialize writes a remote actor document into the store.
func (d *ActorDirectory) materialize(ctx context.Context, doc *kagari.Actor) error {
	if !kagari.IsActorType(doc.Type) {
		return errors.Errorf("document %s is not an actor (%s)", doc.ID, doc.Type)
	}

	host, err := kagari.ExtractPunyHost(doc.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	actor := &domain.Actor{
		ID:            uuid.New().String(),
		Username:      doc.PreferredUsername,
		Host:          host,
		URI:           doc.ID,
		Inbox:         doc.Inbox,
		FollowersURI:  doc.Followers,
		DisplayName:   doc.Name,
		IsSuspended:   doc.Suspended,
		LastFetchedAt: &now,
	}
	if doc.Endpoints != nil {
		actor.SharedInbox = doc.Endpoints.SharedInbox
	}

	var key *domain.PublicKey
	if kagari.IsKeyLike(doc.PublicKey) {
		if kagari.StripFragment(doc.PublicKey.Owner) != doc.ID {
			return errors.Errorf("actor %s carries a key owned by %s", doc.ID, doc.PublicKey.Owner)
		}
		key = &domain.PublicKey{
			KeyID:  doc.PublicKey.ID,
			KeyPem: doc.PublicKey.PublicKeyPem,
		}
	}

	return d.actors.UpsertActor(ctx, actor, key)
}
