package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
)

type mockActorStore struct {
	mu     sync.Mutex
	actors map[string]*domain.Actor
	keys   map[string]*domain.PublicKey
}

func newMockActorStore() *mockActorStore {
	return &mockActorStore{
		actors: map[string]*domain.Actor{},
		keys:   map[string]*domain.PublicKey{},
	}
}

func (m *mockActorStore) add(actor *domain.Actor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actors[actor.ID] = actor
}

func (m *mockActorStore) GetActor(ctx context.Context, id string) (*domain.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.actors[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, domain.NotFoundError{Resource: "actor"}
}

func (m *mockActorStore) GetActorByURI(ctx context.Context, uri string) (*domain.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.actors {
		if a.URI == uri {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "actor"}
}

func (m *mockActorStore) GetActorByHandle(ctx context.Context, username, host string) (*domain.Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.actors {
		if a.Username == username && a.Host == host {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "actor"}
}

func (m *mockActorStore) GetKeyByKeyID(ctx context.Context, keyID string) (*domain.PublicKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.keys[keyID]; ok {
		copied := *k
		return &copied, nil
	}
	return nil, domain.NotFoundError{Resource: "public key"}
}

func (m *mockActorStore) GetKeyByActorID(ctx context.Context, actorID string) (*domain.PublicKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if k.ActorID == actorID {
			copied := *k
			return &copied, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "public key"}
}

func (m *mockActorStore) UpsertActor(ctx context.Context, actor *domain.Actor, key *domain.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.actors {
		if existing.URI == actor.URI {
			actor.ID = existing.ID
			break
		}
	}
	copied := *actor
	m.actors[actor.ID] = &copied
	if key != nil {
		key.ActorID = actor.ID
		keyCopy := *key
		m.keys[key.KeyID] = &keyCopy
	}
	return nil
}

func (m *mockActorStore) IncrementNotesCount(ctx context.Context, actorID string) error {
	return nil
}

type mockNoteStore struct {
	mu          sync.Mutex
	notes       map[string]*domain.Note
	renoteBumps []string
	replyBumps  []string
	hashtags    [][]string
}

func newMockNoteStore() *mockNoteStore {
	return &mockNoteStore{notes: map[string]*domain.Note{}}
}

func (m *mockNoteStore) add(note *domain.Note) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[note.ID] = note
}

func (m *mockNoteStore) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notes[id]; ok {
		copied := *n
		return &copied, nil
	}
	return nil, domain.NotFoundError{Resource: "note"}
}

func (m *mockNoteStore) GetNoteByURI(ctx context.Context, uri string) (*domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notes {
		if n.URI == uri {
			copied := *n
			return &copied, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "note"}
}

func (m *mockNoteStore) CreateNote(ctx context.Context, note *domain.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notes {
		if n.URI == note.URI {
			return domain.DuplicateError{Resource: "note"}
		}
	}
	copied := *note
	m.notes[note.ID] = &copied
	return nil
}

func (m *mockNoteStore) UpdateNote(ctx context.Context, note *domain.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.notes[note.ID]
	if !ok {
		return domain.NotFoundError{Resource: "note"}
	}
	existing.Text = note.Text
	existing.CW = note.CW
	existing.Tags = note.Tags
	existing.UpdatedAt = note.UpdatedAt
	return nil
}

func (m *mockNoteStore) MarkUpdated(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notes[id]; ok {
		n.UpdatedAt = &at
	}
	return nil
}

func (m *mockNoteStore) IncrementReplies(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyBumps = append(m.replyBumps, id)
	return nil
}

func (m *mockNoteStore) IncrementRenoteCount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renoteBumps = append(m.renoteBumps, id)
	return nil
}

func (m *mockNoteStore) CountSameRenotes(ctx context.Context, actorID, renoteID, excludeNoteID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notes {
		if n.ActorID == actorID && n.RenoteID != nil && *n.RenoteID == renoteID && n.ID != excludeNoteID {
			count++
		}
	}
	return count, nil
}

func (m *mockNoteStore) UpdateHashtags(ctx context.Context, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashtags = append(m.hashtags, tags)
	return nil
}

func (m *mockNoteStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notes)
}

type mockRelationshipStore struct {
	mu             sync.Mutex
	localFollowers map[string][]string
	remoteFollows  map[string][]domain.Actor
	following      map[string]bool // follower+"/"+followee
	blockers       map[string][]string
	blockees       map[string][]string
	muters         map[string][]string
	muted          map[string]bool // muter+"/"+mutee
	threadMutes    []domain.ThreadMuting
	wordRules      []domain.WordMuteRule
	listMembers    map[string][]string
	groupMembers   map[string][]string
	appliedMoves   []domain.MoveBatch
}

func newMockRelationshipStore() *mockRelationshipStore {
	return &mockRelationshipStore{
		localFollowers: map[string][]string{},
		remoteFollows:  map[string][]domain.Actor{},
		following:      map[string]bool{},
		blockers:       map[string][]string{},
		blockees:       map[string][]string{},
		muters:         map[string][]string{},
		muted:          map[string]bool{},
		listMembers:    map[string][]string{},
		groupMembers:   map[string][]string{},
	}
}

func (m *mockRelationshipStore) LocalFollowerIDs(ctx context.Context, actorID string) ([]string, error) {
	return m.localFollowers[actorID], nil
}

func (m *mockRelationshipStore) RemoteFollowers(ctx context.Context, actorID string) ([]domain.Actor, error) {
	return m.remoteFollows[actorID], nil
}

func (m *mockRelationshipStore) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return m.following[followerID+"/"+followeeID], nil
}

func (m *mockRelationshipStore) BlockeeIDsOf(ctx context.Context, blockerID string) ([]string, error) {
	return m.blockees[blockerID], nil
}

func (m *mockRelationshipStore) BlockerIDsOf(ctx context.Context, blockeeID string) ([]string, error) {
	return m.blockers[blockeeID], nil
}

func (m *mockRelationshipStore) MuterIDsOf(ctx context.Context, muteeID string) ([]string, error) {
	return m.muters[muteeID], nil
}

func (m *mockRelationshipStore) IsMuted(ctx context.Context, muterID, muteeID string) (bool, error) {
	return m.muted[muterID+"/"+muteeID], nil
}

func (m *mockRelationshipStore) ThreadMutes(ctx context.Context, actorID string, threadIDs []string) ([]domain.ThreadMuting, error) {
	var out []domain.ThreadMuting
	for _, mute := range m.threadMutes {
		if mute.ActorID != actorID {
			continue
		}
		for _, id := range threadIDs {
			if mute.ThreadID == id {
				out = append(out, mute)
				break
			}
		}
	}
	return out, nil
}

func (m *mockRelationshipStore) ListWordMuteRules(ctx context.Context) ([]domain.WordMuteRule, error) {
	return m.wordRules, nil
}

func (m *mockRelationshipStore) ListMemberIDs(ctx context.Context, listID string) ([]string, error) {
	return m.listMembers[listID], nil
}

func (m *mockRelationshipStore) GroupMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	return m.groupMembers[groupID], nil
}

func (m *mockRelationshipStore) ApplyMove(ctx context.Context, batch domain.MoveBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appliedMoves = append(m.appliedMoves, batch)
	return nil
}

type mockNotificationStore struct {
	mu            sync.Mutex
	notifications []domain.Notification
	unreads       []domain.NoteUnread
	mutedNotes    [][3]string
}

func (m *mockNotificationStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *mockNotificationStore) InsertUnread(ctx context.Context, u *domain.NoteUnread) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreads = append(m.unreads, *u)
	return nil
}

func (m *mockNotificationStore) InsertMutedNote(ctx context.Context, actorID, noteID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutedNotes = append(m.mutedNotes, [3]string{actorID, noteID, reason})
	return nil
}

type mockAntennaStore struct {
	mu       sync.Mutex
	antennas []domain.Antenna
	added    [][2]string
	removed  []string
}

func (m *mockAntennaStore) ListAntennas(ctx context.Context) ([]domain.Antenna, error) {
	return m.antennas, nil
}

func (m *mockAntennaStore) AddNote(ctx context.Context, antennaID, noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, [2]string{antennaID, noteID})
	return nil
}

func (m *mockAntennaStore) RemoveNoteFromAll(ctx context.Context, noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, noteID)
	return nil
}

type mockInstanceStore struct {
	mu      sync.Mutex
	blocked map[string]bool
	relays  []string
	bumped  []string
}

func (m *mockInstanceStore) IsBlocked(ctx context.Context, host string) (bool, error) {
	return m.blocked[host], nil
}

func (m *mockInstanceStore) IncrementNotes(ctx context.Context, host string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bumped = append(m.bumped, host)
	return nil
}

func (m *mockInstanceStore) ListRelayInboxes(ctx context.Context) ([]string, error) {
	return m.relays, nil
}

type mockWebhookStore struct {
	hooks []domain.Webhook
}

func (m *mockWebhookStore) ListActive(ctx context.Context, actorIDs []string) ([]domain.Webhook, error) {
	var out []domain.Webhook
	for _, h := range m.hooks {
		for _, id := range actorIDs {
			if h.ActorID == id && h.Active {
				out = append(out, h)
			}
		}
	}
	return out, nil
}

type mockDeliverer struct {
	mu      sync.Mutex
	inboxes [][]string
}

func (m *mockDeliverer) DeliverNote(ctx context.Context, author *domain.Actor, note *domain.Note, inboxes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inboxes = append(m.inboxes, inboxes)
	return nil
}

type mockWebhookDeliverer struct {
	mu     sync.Mutex
	events []string
}

func (m *mockWebhookDeliverer) Deliver(ctx context.Context, hook domain.Webhook, event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, hook.ID+":"+event)
	return nil
}

type mockSignal struct {
	mu       sync.Mutex
	channels []string
}

func (m *mockSignal) PublishNote(ctx context.Context, channel string, note *domain.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, channel)
	return nil
}

func (m *mockSignal) PublishNotification(ctx context.Context, recipientID string, n *domain.Notification) error {
	return nil
}

type mockSearch struct {
	mu      sync.Mutex
	indexed []string
}

func (m *mockSearch) IndexNote(ctx context.Context, note *domain.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = append(m.indexed, note.ID)
	return nil
}

type mockResolver struct {
	mu      sync.Mutex
	actors  map[string]*kagari.Actor
	fetches []string
}

func newMockResolver() *mockResolver {
	return &mockResolver{actors: map[string]*kagari.Actor{}}
}

func (m *mockResolver) Fetch(ctx context.Context, uri string, result any) error {
	return domain.NotFoundError{Resource: "object"}
}

func (m *mockResolver) FetchActor(ctx context.Context, uri string) (*kagari.Actor, error) {
	m.mu.Lock()
	m.fetches = append(m.fetches, uri)
	m.mu.Unlock()
	if a, ok := m.actors[uri]; ok {
		return a, nil
	}
	return nil, domain.NotFoundError{Resource: "actor"}
}

func (m *mockResolver) FetchActorFresh(ctx context.Context, uri string) (*kagari.Actor, error) {
	return m.FetchActor(ctx, uri)
}

// fanoutFixture bundles a fully mocked engine for the tests.
type fanoutFixture struct {
	engine        *FanoutEngine
	actors        *mockActorStore
	notes         *mockNoteStore
	relationships *mockRelationshipStore
	notifications *mockNotificationStore
	antennas      *mockAntennaStore
	instances     *mockInstanceStore
	webhooks      *mockWebhookStore
	deliverer     *mockDeliverer
	hooks         *mockWebhookDeliverer
	signal        *mockSignal
	search        *mockSearch
}

func newFanoutFixture() *fanoutFixture {
	f := &fanoutFixture{
		actors:        newMockActorStore(),
		notes:         newMockNoteStore(),
		relationships: newMockRelationshipStore(),
		notifications: &mockNotificationStore{},
		antennas:      &mockAntennaStore{},
		instances:     &mockInstanceStore{blocked: map[string]bool{}},
		webhooks:      &mockWebhookStore{},
		deliverer:     &mockDeliverer{},
		hooks:         &mockWebhookDeliverer{},
		signal:        &mockSignal{},
		search:        &mockSearch{},
	}
	config := &domain.Config{FQDN: "kagari.example", BaseURL: "https://kagari.example"}
	f.engine = NewFanoutEngine(
		config,
		f.actors, f.notes, f.relationships, f.notifications, f.antennas,
		f.instances, f.webhooks, f.deliverer, f.hooks, f.signal, f.search,
	)
	return f
}
