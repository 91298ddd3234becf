package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/service"
	"github.com/kagari-social/kagari/internal/usecase"
)

type stubActors struct {
	actors map[string]*domain.Actor
	keys   map[string]*domain.PublicKey
}

func (m *stubActors) GetActor(ctx context.Context, id string) (*domain.Actor, error) {
	if a, ok := m.actors[id]; ok {
		return a, nil
	}
	return nil, domain.NotFoundError{Resource: "actor"}
}

func (m *stubActors) GetActorByURI(ctx context.Context, uri string) (*domain.Actor, error) {
	return nil, domain.NotFoundError{Resource: "actor"}
}

func (m *stubActors) GetActorByHandle(ctx context.Context, username, host string) (*domain.Actor, error) {
	for _, a := range m.actors {
		if a.Username == username && a.Host == host {
			return a, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "actor"}
}

func (m *stubActors) GetKeyByKeyID(ctx context.Context, keyID string) (*domain.PublicKey, error) {
	return nil, domain.NotFoundError{Resource: "public key"}
}

func (m *stubActors) GetKeyByActorID(ctx context.Context, actorID string) (*domain.PublicKey, error) {
	if k, ok := m.keys[actorID]; ok {
		return k, nil
	}
	return nil, domain.NotFoundError{Resource: "public key"}
}

func (m *stubActors) UpsertActor(ctx context.Context, actor *domain.Actor, key *domain.PublicKey) error {
	return nil
}

func (m *stubActors) IncrementNotesCount(ctx context.Context, actorID string) error { return nil }

type stubNotes struct {
	notes map[string]*domain.Note
}

func (m *stubNotes) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	if n, ok := m.notes[id]; ok {
		return n, nil
	}
	return nil, domain.NotFoundError{Resource: "note"}
}

func (m *stubNotes) GetNoteByURI(ctx context.Context, uri string) (*domain.Note, error) {
	return nil, domain.NotFoundError{Resource: "note"}
}

func (m *stubNotes) CreateNote(ctx context.Context, note *domain.Note) error { return nil }
func (m *stubNotes) UpdateNote(ctx context.Context, note *domain.Note) error { return nil }
func (m *stubNotes) MarkUpdated(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (m *stubNotes) IncrementReplies(ctx context.Context, id string) error     { return nil }
func (m *stubNotes) IncrementRenoteCount(ctx context.Context, id string) error { return nil }
func (m *stubNotes) CountSameRenotes(ctx context.Context, actorID, renoteID, excludeNoteID string) (int64, error) {
	return 0, nil
}
func (m *stubNotes) UpdateHashtags(ctx context.Context, tags []string) error { return nil }

type stubEnqueuer struct {
	bodies [][]byte
}

func (m *stubEnqueuer) Enqueue(ctx context.Context, req *http.Request, body []byte) error {
	m.bodies = append(m.bodies, body)
	return nil
}

type restFixture struct {
	handler  *Handler
	echo     *echo.Echo
	enqueuer *stubEnqueuer
	actors   *stubActors
	notes    *stubNotes
}

func newRestFixture(allowUnsignedFetches bool) *restFixture {
	config := &domain.Config{
		FQDN:    "kagari.example",
		BaseURL: "https://kagari.example",
		Federation: domain.Federation{
			AllowUnsignedFetches: allowUnsignedFetches,
		},
	}

	actors := &stubActors{
		actors: map[string]*domain.Actor{
			"alice-id": {ID: "alice-id", Username: "alice", URI: "https://kagari.example/users/alice-id"},
		},
		keys: map[string]*domain.PublicKey{
			"alice-id": {KeyID: "https://kagari.example/users/alice-id#main-key", ActorID: "alice-id", KeyPem: "-----BEGIN PUBLIC KEY-----\n"},
		},
	}
	notes := &stubNotes{
		notes: map[string]*domain.Note{
			"note-pub": {
				ID: "note-pub", URI: "https://kagari.example/notes/note-pub",
				ActorID: "alice-id", Text: "hello", Visibility: "public",
				Tags: []string{"greeting"}, CreatedAt: time.Now(),
			},
			"note-followers": {
				ID: "note-followers", URI: "https://kagari.example/notes/note-followers",
				ActorID: "alice-id", Text: "secret", Visibility: "followers",
				CreatedAt: time.Now(),
			},
		},
	}

	auth := service.NewAuthService(config, usecase.NewActorDirectory(actors, nil), service.NewInstanceGate(config, nil))
	enqueuer := &stubEnqueuer{}
	handler := NewHandler(config, auth, enqueuer, actors, notes, nil, nil)

	e := echo.New()
	handler.RegisterRoutes(e)
	return &restFixture{handler: handler, echo: e, enqueuer: enqueuer, actors: actors, notes: notes}
}

func (f *restFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func TestInboxRejectsUnsignedDelivery(t *testing.T) {
	f := newRestFixture(false)
	req := httptest.NewRequest(http.MethodPost, "/inbox", strings.NewReader(`{"type":"Create"}`))

	rec := f.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if len(f.enqueuer.bodies) != 0 {
		t.Error("unsigned delivery must not be queued")
	}
}

func TestInboxRejectsMalformedSignature(t *testing.T) {
	f := newRestFixture(false)
	req := httptest.NewRequest(http.MethodPost, "/inbox", strings.NewReader(`{"type":"Create"}`))
	req.Header.Set("Signature", "not a signature")

	rec := f.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestInboxQueuesWellFormedDelivery(t *testing.T) {
	f := newRestFixture(false)
	body := `{"id":"https://remote.example/activities/1","type":"Create"}`
	req := httptest.NewRequest(http.MethodPost, "/users/alice-id/inbox", strings.NewReader(body))
	req.Header.Set("Signature", `keyId="https://remote.example/users/bob#main-key",algorithm="rsa-sha256",headers="(request-target) host date",signature="deadbeef"`)

	rec := f.do(req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if len(f.enqueuer.bodies) != 1 || string(f.enqueuer.bodies[0]) != body {
		t.Error("body must be queued unmodified")
	}
}

func TestActorFetchDeniedWithoutSignature(t *testing.T) {
	f := newRestFixture(false)
	req := httptest.NewRequest(http.MethodGet, "/users/alice-id", nil)
	req.Header.Set("Accept", "application/activity+json")

	rec := f.do(req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestActorFetchInAllowAllMode(t *testing.T) {
	f := newRestFixture(true)
	req := httptest.NewRequest(http.MethodGet, "/users/alice-id", nil)
	req.Header.Set("Accept", "application/activity+json")

	rec := f.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=180" {
		t.Errorf("cache control = %q", cc)
	}

	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc["preferredUsername"] != "alice" {
		t.Errorf("preferredUsername = %v", doc["preferredUsername"])
	}
	key, ok := doc["publicKey"].(map[string]any)
	if !ok {
		t.Fatal("actor document is missing its key block")
	}
	if key["owner"] != "https://kagari.example/users/alice-id" {
		t.Errorf("key owner = %v", key["owner"])
	}
}

func TestHTMLPreferringFetchFallsThrough(t *testing.T) {
	f := newRestFixture(true)
	req := httptest.NewRequest(http.MethodGet, "/users/alice-id", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/activity+json;q=0.1")

	rec := f.do(req)
	if rec.Code != http.StatusNotAcceptable {
		t.Errorf("status = %d, want 406", rec.Code)
	}
}

func TestRestrictedNoteIsIndistinguishableFromMissing(t *testing.T) {
	f := newRestFixture(true)

	for _, id := range []string{"note-followers", "note-nonexistent"} {
		req := httptest.NewRequest(http.MethodGet, "/notes/"+id, nil)
		req.Header.Set("Accept", "application/activity+json")
		rec := f.do(req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("note %s: status = %d, want 404", id, rec.Code)
		}
	}
}

func TestPublicNoteActivityIsServed(t *testing.T) {
	f := newRestFixture(true)
	req := httptest.NewRequest(http.MethodGet, "/notes/note-pub/activity", nil)
	req.Header.Set("Accept", "application/ld+json")

	rec := f.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc["type"] != "Create" {
		t.Errorf("type = %v", doc["type"])
	}
	if doc["id"] != "https://kagari.example/notes/note-pub/activity" {
		t.Errorf("id = %v", doc["id"])
	}
	object, ok := doc["object"].(map[string]any)
	if !ok {
		t.Fatal("activity object is not inlined")
	}
	if object["content"] != "hello" {
		t.Errorf("object content = %v", object["content"])
	}
}

func TestWebfinger(t *testing.T) {
	f := newRestFixture(false)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/webfinger?resource=acct:alice@kagari.example", nil)
	rec := f.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var jrd struct {
		Subject string `json:"subject"`
		Links   []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &jrd); err != nil {
		t.Fatal(err)
	}
	if jrd.Subject != "acct:alice@kagari.example" {
		t.Errorf("subject = %q", jrd.Subject)
	}
	if len(jrd.Links) != 1 || jrd.Links[0].Href != "https://kagari.example/users/alice-id" {
		t.Errorf("links = %+v", jrd.Links)
	}

	req = httptest.NewRequest(http.MethodGet, "/.well-known/webfinger?resource=acct:alice@elsewhere.example", nil)
	if rec := f.do(req); rec.Code != http.StatusNotFound {
		t.Errorf("foreign host lookup: status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/.well-known/webfinger", nil)
	if rec := f.do(req); rec.Code != http.StatusBadRequest {
		t.Errorf("missing resource: status = %d, want 400", rec.Code)
	}
}

func TestCollectionFetch(t *testing.T) {
	f := newRestFixture(true)
	req := httptest.NewRequest(http.MethodGet, "/users/alice-id/followers", nil)
	req.Header.Set("Accept", "application/activity+json")

	rec := f.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc["type"] != "OrderedCollection" {
		t.Errorf("type = %v", doc["type"])
	}
}
