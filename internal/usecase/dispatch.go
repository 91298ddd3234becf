package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/keyedlock"
)

// ActivityDispatcher interprets an authenticated activity and applies an
// idempotent state transition. Perform returns a non-empty skip reason for
// malformed, unauthorized or duplicate input; an error only for failures
// worth retrying.
type ActivityDispatcher struct {
	directory     *ActorDirectory
	actors        ActorStore
	notes         NoteStore
	relationships RelationshipStore
	fanout        *FanoutEngine
	locks         *keyedlock.Registry
}

func NewActivityDispatcher(
	directory *ActorDirectory,
	actors ActorStore,
	notes NoteStore,
	relationships RelationshipStore,
	fanout *FanoutEngine,
	locks *keyedlock.Registry,
) *ActivityDispatcher {
	return &ActivityDispatcher{
		directory:     directory,
		actors:        actors,
		notes:         notes,
		relationships: relationships,
		fanout:        fanout,
		locks:         locks,
	}
}

// Perform dispatches one activity on behalf of the authenticated actor.
func (d *ActivityDispatcher) Perform(ctx context.Context, actor *domain.Actor, activity *kagari.Activity) (string, error) {
	ctx, span := tracer.Start(ctx, "Dispatcher.Perform")
	defer span.End()

	if actor.IsSuspended {
		return "actor is suspended", nil
	}

	switch activity.Kind() {
	case kagari.ActivityCreate:
		return d.create(ctx, actor, activity)
	case kagari.ActivityUpdate:
		return d.update(ctx, actor, activity)
	case kagari.ActivityMove:
		return d.move(ctx, actor, activity)
	default:
		return fmt.Sprintf("unhandled activity type %s", activity.Type), nil
	}
}

func (d *ActivityDispatcher) create(ctx context.Context, actor *domain.Actor, activity *kagari.Activity) (string, error) {
	ctx, span := tracer.Start(ctx, "Dispatcher.Create")
	defer span.End()

	object, skip := decodeNoteObject(&activity.Object)
	if skip != "" {
		return skip, nil
	}
	if kagari.StripFragment(object.AttributedTo.ID) != actor.URI {
		return "object is not attributed to the acting actor", nil
	}

	release := d.locks.Acquire(object.ID)
	defer release()

	if _, err := d.notes.GetNoteByURI(ctx, object.ID); err == nil {
		return "duplicate", nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return "", err
	}

	note, skip, err := d.materializeNote(ctx, actor, object)
	if err != nil || skip != "" {
		return skip, err
	}

	if err := d.notes.CreateNote(ctx, note); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return "duplicate", nil
		}
		span.RecordError(err)
		return "", err
	}

	if err := d.fanout.Run(ctx, actor, note, false, true); err != nil {
		span.RecordError(err)
		return "", err
	}
	return "", nil
}

func (d *ActivityDispatcher) update(ctx context.Context, actor *domain.Actor, activity *kagari.Activity) (string, error) {
	ctx, span := tracer.Start(ctx, "Dispatcher.Update")
	defer span.End()

	if kagari.StripFragment(activity.Actor.ID) != actor.URI {
		return "invalid actor", nil
	}
	if activity.Object.IsZero() {
		return "no object", nil
	}

	objectType, err := probeType(activity.Object.Raw)
	if err != nil {
		return "object is not interpretable", nil
	}

	switch {
	case kagari.IsActorType(objectType):
		if activity.Object.ID != actor.URI {
			return "cannot update another actor", nil
		}
		return d.updateActor(ctx, actor)
	case kagari.IsPost(objectType):
		return d.updateNote(ctx, actor, &activity.Object)
	default:
		return fmt.Sprintf("unknown object type %s", objectType), nil
	}
}

// updateActor applies a profile refresh from the authoritative document,
// never from the delivered object. The cached copy cannot be trusted here.
func (d *ActivityDispatcher) updateActor(ctx context.Context, actor *domain.Actor) (string, error) {
	if _, _, err := d.directory.RefreshActor(ctx, actor.URI); err != nil {
		return "", err
	}
	return "", nil
}

func (d *ActivityDispatcher) updateNote(ctx context.Context, actor *domain.Actor, ref *kagari.ObjectRef) (string, error) {
	ctx, span := tracer.Start(ctx, "Dispatcher.UpdateNote")
	defer span.End()

	object, skip := decodeNoteObject(ref)
	if skip != "" {
		return skip, nil
	}
	if kagari.StripFragment(object.AttributedTo.ID) != actor.URI {
		return "object is not attributed to the acting actor", nil
	}

	// The lock spans the existence check and the write so two concurrent
	// deliveries of the same object cannot race past the check.
	release := d.locks.Acquire(object.ID)
	defer release()

	existing, err := d.notes.GetNoteByURI(ctx, object.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// The Create never arrived; materialize the note now and stamp it
		// as updated.
		note, skip, err := d.materializeNote(ctx, actor, object)
		if err != nil || skip != "" {
			return skip, err
		}
		if err := d.notes.CreateNote(ctx, note); err != nil {
			span.RecordError(err)
			return "", err
		}
		at := time.Now()
		if object.Updated != nil {
			at = *object.Updated
		}
		if err := d.notes.MarkUpdated(ctx, note.ID, at); err != nil {
			span.RecordError(err)
			return "", err
		}
		return "", d.fanout.Run(ctx, actor, note, false, true)
	}
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	if existing.ActorID != actor.ID {
		return "not the author", nil
	}

	existing.Text = object.Content
	if object.Source != nil {
		existing.Text = object.Source.Content
	}
	existing.Tags = kagari.ExtractHashtags(existing.Text)
	if err := d.notes.UpdateNote(ctx, existing); err != nil {
		span.RecordError(err)
		return "", err
	}

	return "", d.fanout.Run(ctx, actor, existing, false, false)
}

func (d *ActivityDispatcher) move(ctx context.Context, actor *domain.Actor, activity *kagari.Activity) (string, error) {
	ctx, span := tracer.Start(ctx, "Dispatcher.Move")
	defer span.End()

	if activity.Object.ID != actor.URI {
		return "only self moves are accepted", nil
	}
	if actor.MovedToID != nil {
		return "actor has already moved", nil
	}
	targetURI := activity.Target.ID
	if targetURI == "" {
		return "no move target", nil
	}

	// The acceptance list lives on the target's authoritative document.
	// Cached copies are stale by definition here.
	targetDoc, target, err := d.directory.RefreshActor(ctx, targetURI)
	if err != nil {
		return "", err
	}
	if !containsString(targetDoc.AlsoKnownAs, actor.URI) {
		return "move target does not acknowledge the origin", nil
	}
	if target.IsSuspended {
		return "move target is suspended", nil
	}

	batch, err := d.buildMoveBatch(ctx, actor.ID, target.ID)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if err := d.relationships.ApplyMove(ctx, batch); err != nil {
		span.RecordError(err)
		return "", err
	}
	d.directory.byURI.Delete(actor.URI)
	return "", nil
}

// buildMoveBatch computes the move side effects as set differences, so
// replays and pre-existing relationships never produce duplicate rows.
func (d *ActivityDispatcher) buildMoveBatch(ctx context.Context, originID, targetID string) (domain.MoveBatch, error) {
	batch := domain.MoveBatch{OriginID: originID, TargetID: targetID}

	followers, err := d.relationships.LocalFollowerIDs(ctx, originID)
	if err != nil {
		return batch, err
	}
	batch.LocalFollowerIDs = followers

	originBlockers, err := d.relationships.BlockerIDsOf(ctx, originID)
	if err != nil {
		return batch, err
	}
	targetBlockers, err := d.relationships.BlockerIDsOf(ctx, targetID)
	if err != nil {
		return batch, err
	}
	batch.NewBlockerIDs = difference(originBlockers, targetBlockers)

	originMuters, err := d.relationships.MuterIDsOf(ctx, originID)
	if err != nil {
		return batch, err
	}
	targetMuters, err := d.relationships.MuterIDsOf(ctx, targetID)
	if err != nil {
		return batch, err
	}
	batch.NewMuterIDs = difference(originMuters, targetMuters)

	return batch, nil
}

// materializeNote turns a delivered note document into a domain note.
// Embedded mention/tag hints are trusted only when consistent with the text.
func (d *ActivityDispatcher) materializeNote(ctx context.Context, author *domain.Actor, object *kagari.Note) (*domain.Note, string, error) {
	text := object.Content
	if object.Source != nil {
		text = object.Source.Content
	}

	note := &domain.Note{
		ID:         uuid.New().String(),
		URI:        object.ID,
		ActorID:    author.ID,
		ActorHost:  author.Host,
		Text:       text,
		Visibility: kagari.DeriveVisibility(object.To, object.CC, author.FollowersURI),
		CreatedAt:  time.Now(),
		Tags:       kagari.ExtractHashtags(text),
	}
	if object.Published != nil {
		note.CreatedAt = *object.Published
	}

	if !object.InReplyTo.IsZero() {
		parent, err := d.notes.GetNoteByURI(ctx, object.InReplyTo.ID)
		if err == nil {
			note.ReplyID = &parent.ID
			note.ReplyActorID = &parent.ActorID
			note.ReplyActorHost = &parent.ActorHost
			thread := parent.EffectiveThreadID()
			note.ThreadID = &thread
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, "", err
		}
	}

	if object.QuoteURL != "" {
		quoted, err := d.notes.GetNoteByURI(ctx, object.QuoteURL)
		if err == nil {
			note.RenoteID = &quoted.ID
			note.RenoteActorID = &quoted.ActorID
			note.RenoteActorHost = &quoted.ActorHost
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, "", err
		}
	}

	mentions, skip, err := d.resolveMentions(ctx, object, note.Text)
	if err != nil || skip != "" {
		return nil, skip, err
	}
	note.Mentions = mentions

	if note.Visibility == kagari.VisibilitySpecified {
		note.VisibleActorIDs = d.resolveAddressees(ctx, object.To)
	}

	return note, "", nil
}

// resolveMentions maps mention hints or parsed mention tokens onto known
// actor ids. Hinted hrefs are used only when every href also appears in the
// addressing, otherwise the text is parsed from scratch.
func (d *ActivityDispatcher) resolveMentions(ctx context.Context, object *kagari.Note, text string) ([]string, string, error) {
	var uris []string
	hintsConsistent := true
	for _, tag := range object.Tag {
		if tag.Type != "Mention" || tag.Href == "" {
			continue
		}
		if !containsString(object.To, tag.Href) && !containsString(object.CC, tag.Href) {
			hintsConsistent = false
			break
		}
		uris = append(uris, tag.Href)
	}

	var mentions []string
	if hintsConsistent && len(uris) > 0 {
		for _, uri := range uris {
			actor, err := d.directory.GetOrFetch(ctx, uri)
			if err != nil || actor == nil {
				continue
			}
			mentions = append(mentions, actor.ID)
		}
		return mentions, "", nil
	}

	for _, m := range kagari.ExtractMentions(text) {
		if m.Host == "" {
			continue
		}
		actor, err := d.actors.GetActorByHandle(ctx, m.Username, m.Host)
		if err != nil {
			continue
		}
		mentions = append(mentions, actor.ID)
	}
	return mentions, "", nil
}

// resolveAddressees maps direct addressing uris onto known actor ids,
// skipping anything unresolvable.
func (d *ActivityDispatcher) resolveAddressees(ctx context.Context, to []string) []string {
	var ids []string
	for _, uri := range to {
		if uri == kagari.PublicAddress {
			continue
		}
		actor, err := d.actors.GetActorByURI(ctx, uri)
		if err != nil {
			continue
		}
		ids = append(ids, actor.ID)
	}
	return ids
}

func decodeNoteObject(ref *kagari.ObjectRef) (*kagari.Note, string) {
	if ref.Raw == nil {
		return nil, "object is not inlined"
	}
	var object kagari.Note
	if err := json.Unmarshal(ref.Raw, &object); err != nil {
		return nil, "object is not interpretable"
	}
	if !kagari.IsPost(object.Type) {
		return nil, fmt.Sprintf("unhandled object type %s", object.Type)
	}
	if object.ID == "" {
		return nil, "object has no id"
	}
	return &object, ""
}

func probeType(raw json.RawMessage) (string, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", err
	}
	return probe.Type, nil
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// difference returns the members of a not present in b.
func difference(a, b []string) []string {
	exclude := make(map[string]bool, len(b))
	for _, v := range b {
		exclude[v] = true
	}
	var out []string
	for _, v := range a {
		if !exclude[v] {
			out = append(out, v)
		}
	}
	return out
}
