package usecase

import (
	"context"
	"time"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
)

// ActorStore defines persistence/lookup for actors and their keys.
type ActorStore interface {
	GetActor(ctx context.Context, id string) (*domain.Actor, error)
	GetActorByURI(ctx context.Context, uri string) (*domain.Actor, error)
	GetActorByHandle(ctx context.Context, username, host string) (*domain.Actor, error)
	GetKeyByKeyID(ctx context.Context, keyID string) (*domain.PublicKey, error)
	GetKeyByActorID(ctx context.Context, actorID string) (*domain.PublicKey, error)
	UpsertActor(ctx context.Context, actor *domain.Actor, key *domain.PublicKey) error
	IncrementNotesCount(ctx context.Context, actorID string) error
}

// NoteStore defines persistence/lookup for notes.
type NoteStore interface {
	GetNote(ctx context.Context, id string) (*domain.Note, error)
	GetNoteByURI(ctx context.Context, uri string) (*domain.Note, error)
	CreateNote(ctx context.Context, note *domain.Note) error
	UpdateNote(ctx context.Context, note *domain.Note) error
	MarkUpdated(ctx context.Context, id string, at time.Time) error
	IncrementReplies(ctx context.Context, id string) error
	IncrementRenoteCount(ctx context.Context, id string) error
	CountSameRenotes(ctx context.Context, actorID, renoteID, excludeNoteID string) (int64, error)
	UpdateHashtags(ctx context.Context, tags []string) error
}

// RelationshipStore defines lookup for the social graph.
type RelationshipStore interface {
	LocalFollowerIDs(ctx context.Context, actorID string) ([]string, error)
	RemoteFollowers(ctx context.Context, actorID string) ([]domain.Actor, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	BlockeeIDsOf(ctx context.Context, blockerID string) ([]string, error)
	BlockerIDsOf(ctx context.Context, blockeeID string) ([]string, error)
	MuterIDsOf(ctx context.Context, muteeID string) ([]string, error)
	IsMuted(ctx context.Context, muterID, muteeID string) (bool, error)
	ThreadMutes(ctx context.Context, actorID string, threadIDs []string) ([]domain.ThreadMuting, error)
	ListWordMuteRules(ctx context.Context) ([]domain.WordMuteRule, error)
	ListMemberIDs(ctx context.Context, listID string) ([]string, error)
	GroupMemberIDs(ctx context.Context, groupID string) ([]string, error)
	ApplyMove(ctx context.Context, batch domain.MoveBatch) error
}

// NotificationStore defines persistence for notifications and unread markers.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	InsertUnread(ctx context.Context, u *domain.NoteUnread) error
	InsertMutedNote(ctx context.Context, actorID, noteID, reason string) error
}

// AntennaStore defines lookup and timeline writes for antennas.
type AntennaStore interface {
	ListAntennas(ctx context.Context) ([]domain.Antenna, error)
	AddNote(ctx context.Context, antennaID, noteID string) error
	RemoveNoteFromAll(ctx context.Context, noteID string) error
}

// InstanceStore defines lookup/updates for per-host federation records.
type InstanceStore interface {
	IsBlocked(ctx context.Context, host string) (bool, error)
	IncrementNotes(ctx context.Context, host string) error
	ListRelayInboxes(ctx context.Context) ([]string, error)
}

// WebhookStore defines lookup for registered webhooks.
type WebhookStore interface {
	ListActive(ctx context.Context, actorIDs []string) ([]domain.Webhook, error)
}

// Resolver fetches remote ActivityPub documents.
type Resolver interface {
	Fetch(ctx context.Context, uri string, result any) error
	FetchActor(ctx context.Context, uri string) (*kagari.Actor, error)
	FetchActorFresh(ctx context.Context, uri string) (*kagari.Actor, error)
}

// Deliverer hands a note off to the outbound delivery queue. Retry and
// backoff live behind this interface.
type Deliverer interface {
	DeliverNote(ctx context.Context, author *domain.Actor, note *domain.Note, inboxes []string) error
}

// WebhookDeliverer posts an event to a registered webhook endpoint.
type WebhookDeliverer interface {
	Deliver(ctx context.Context, hook domain.Webhook, event string, payload any) error
}

// SignalPublisher pushes realtime events to connected clients.
type SignalPublisher interface {
	PublishNote(ctx context.Context, channel string, note *domain.Note) error
	PublishNotification(ctx context.Context, recipientID string, n *domain.Notification) error
}

// SearchIndexer feeds the search backend.
type SearchIndexer interface {
	IndexNote(ctx context.Context, note *domain.Note) error
}

// Gate is the host-block predicate consulted by every remote-facing path.
type Gate interface {
	IsBlocked(ctx context.Context, host string) bool
}
