package rest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/present/rest/presenter"
	"github.com/kagari-social/kagari/internal/service"
	"github.com/kagari-social/kagari/internal/usecase"
)

const maxActivityBytes = 1 << 20

// InboxEnqueuer hands an accepted delivery to the processing queue.
type InboxEnqueuer interface {
	Enqueue(ctx context.Context, req *http.Request, body []byte) error
}

type Handler struct {
	config     *domain.Config
	auth       *service.AuthService
	inbox      InboxEnqueuer
	actors     usecase.ActorStore
	notes      usecase.NoteStore
	noteCreate *usecase.NoteCreateUsecase
	signal     *service.SignalService
}

func NewHandler(
	config *domain.Config,
	auth *service.AuthService,
	inbox InboxEnqueuer,
	actors usecase.ActorStore,
	notes usecase.NoteStore,
	noteCreate *usecase.NoteCreateUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		config:     config,
		auth:       auth,
		inbox:      inbox,
		actors:     actors,
		notes:      notes,
		noteCreate: noteCreate,
		signal:     signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/inbox", h.handleInbox)
	e.POST("/users/:id/inbox", h.handleInbox)

	e.GET("/users/:id", h.handleActor)
	e.GET("/users/:id/outbox", h.handleCollection)
	e.GET("/users/:id/followers", h.handleCollection)
	e.GET("/users/:id/following", h.handleCollection)
	e.GET("/notes/:id", h.handleNote)
	e.GET("/notes/:id/activity", h.handleNoteActivity)

	e.GET("/.well-known/webfinger", h.handleWebfinger)

	e.POST("/api/notes/create", h.handleCreateNote)
	e.GET("/streaming", h.handleStreaming)
}

// handleInbox accepts a delivery and answers before doing any work. Only
// the signature header shape is checked synchronously; verification and
// dispatch happen in the worker.
func (h *Handler) handleInbox(c echo.Context) error {
	ctx := c.Request().Context()

	header := c.Request().Header.Get("Signature")
	if header == "" {
		return presenter.Unauthorized(c, "request is not signed")
	}
	if _, err := kagari.ParseSignatureHeader(header); err != nil {
		return presenter.Unauthorized(c, "malformed signature header")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxActivityBytes+1))
	if err != nil {
		return presenter.BadRequest(c, err)
	}
	if len(body) > maxActivityBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "payload too large"})
	}

	if err := h.inbox.Enqueue(ctx, c.Request(), body); err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.Accepted(c)
}

func (h *Handler) handleActor(c echo.Context) error {
	ctx := c.Request().Context()

	if !prefersActivityJSON(c) {
		return echo.ErrNotAcceptable
	}
	if ok, err := h.gateFetch(c); !ok {
		return err
	}

	actor, err := h.actors.GetActor(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "no such user")
		}
		return presenter.InternalError(c, err)
	}
	if actor.IsRemote() || actor.IsSuspended {
		return presenter.NotFound(c, "no such user")
	}

	key, err := h.actors.GetKeyByActorID(ctx, actor.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return presenter.InternalError(c, err)
	}
	return presenter.ActivityJSON(c, presenter.RenderActor(h.config, actor, key))
}

func (h *Handler) handleCollection(c echo.Context) error {
	ctx := c.Request().Context()

	if !prefersActivityJSON(c) {
		return echo.ErrNotAcceptable
	}
	if ok, err := h.gateFetch(c); !ok {
		return err
	}

	actor, err := h.actors.GetActor(ctx, c.Param("id"))
	if err != nil || actor.IsRemote() {
		return presenter.NotFound(c, "no such user")
	}
	return presenter.ActivityJSON(c, presenter.RenderCollection(h.config.BaseURL+c.Request().URL.Path))
}

func (h *Handler) handleNote(c echo.Context) error {
	note, author, done, resp := h.fetchableNote(c)
	if done {
		return resp
	}
	return presenter.ActivityJSON(c, presenter.RenderNote(h.config, author, note))
}

func (h *Handler) handleNoteActivity(c echo.Context) error {
	note, author, done, resp := h.fetchableNote(c)
	if done {
		return resp
	}
	activity, err := presenter.RenderCreate(h.config, author, note)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.ActivityJSON(c, activity)
}

// fetchableNote loads a local note for dereferencing. Restricted and
// local-only notes are indistinguishable from missing ones. done means a
// response was already produced and the handler should return resp.
func (h *Handler) fetchableNote(c echo.Context) (note *domain.Note, author *domain.Actor, done bool, resp error) {
	ctx := c.Request().Context()

	if !prefersActivityJSON(c) {
		return nil, nil, true, echo.ErrNotAcceptable
	}
	if ok, err := h.gateFetch(c); !ok {
		return nil, nil, true, err
	}

	note, err := h.notes.GetNote(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, true, presenter.NotFound(c, "no such note")
		}
		return nil, nil, true, presenter.InternalError(c, err)
	}
	if note.ActorHost != "" || note.LocalOnly ||
		(note.Visibility != kagari.VisibilityPublic && note.Visibility != kagari.VisibilityHome) {
		return nil, nil, true, presenter.NotFound(c, "no such note")
	}

	author, err = h.actors.GetActor(ctx, note.ActorID)
	if err != nil {
		return nil, nil, true, presenter.InternalError(c, err)
	}
	return note, author, false, nil
}

// gateFetch runs the signed-fetch gate and writes the deny response itself.
// The verdict's cache policy is applied on the allow path.
func (h *Handler) gateFetch(c echo.Context) (bool, error) {
	verdict, err := h.auth.ValidateFetchSignature(c.Request().Context(), c.Request())
	if err != nil {
		return false, presenter.InternalError(c, err)
	}
	if !verdict.Allowed {
		return false, presenter.Forbidden(c)
	}
	if verdict.CacheControl != "" {
		c.Response().Header().Set("Cache-Control", verdict.CacheControl)
	}
	return true, nil
}

// prefersActivityJSON reports whether the Accept header ranks a machine
// representation above HTML. Requests preferring HTML fall through to the
// web frontend, which this server does not carry.
func prefersActivityJSON(c echo.Context) bool {
	accept := c.Request().Header.Get("Accept")
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch mediaType {
		case "application/activity+json", "application/ld+json", "application/json", "*/*":
			return true
		case "text/html":
			return false
		}
	}
	return false
}

func (h *Handler) handleWebfinger(c echo.Context) error {
	ctx := c.Request().Context()

	resource := c.QueryParam("resource")
	if resource == "" {
		return presenter.BadRequestMessage(c, "resource parameter is required")
	}

	handle := strings.TrimPrefix(resource, "acct:")
	handle = strings.TrimPrefix(handle, "@")
	username, host, ok := strings.Cut(handle, "@")
	if !ok || username == "" {
		return presenter.BadRequestMessage(c, "unsupported resource")
	}
	if kagari.ToPuny(host) != kagari.ToPuny(h.config.FQDN) {
		return presenter.NotFound(c, "no such user")
	}

	actor, err := h.actors.GetActorByHandle(ctx, username, "")
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "no such user")
		}
		return presenter.InternalError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/jrd+json; charset=utf-8")
	return c.JSON(http.StatusOK, presenter.RenderWebfinger(h.config, actor))
}

func (h *Handler) handleCreateNote(c echo.Context) error {
	ctx := c.Request().Context()

	var input usecase.CreateNoteInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	note, err := h.noteCreate.Create(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return presenter.NotFound(c, "author not found")
		}
		return presenter.BadRequest(c, err)
	}
	return presenter.OK(c, note)
}
