package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/lookupcache"
)

// FanoutEngine runs the side effects of an accepted note create/update.
// Each responsibility is individually best-effort: statistics, word mutes,
// antennas and webhooks are spawned without awaiting completion, and a
// failure in one never blocks the others. Notification insertion and
// delivery-recipient computation run synchronously so the caller's job
// retry covers them.
type FanoutEngine struct {
	config        *domain.Config
	actors        ActorStore
	notes         NoteStore
	relationships RelationshipStore
	notifications NotificationStore
	antennas      AntennaStore
	instances     InstanceStore
	webhooks      WebhookStore
	deliverer     Deliverer
	hookDeliverer WebhookDeliverer
	signal        SignalPublisher
	search        SearchIndexer

	wordMuteRules *lookupcache.Cache[[]domain.WordMuteRule]
	antennaList   *lookupcache.Cache[[]domain.Antenna]
}

func NewFanoutEngine(
	config *domain.Config,
	actors ActorStore,
	notes NoteStore,
	relationships RelationshipStore,
	notifications NotificationStore,
	antennas AntennaStore,
	instances InstanceStore,
	webhooks WebhookStore,
	deliverer Deliverer,
	hookDeliverer WebhookDeliverer,
	signal SignalPublisher,
	search SearchIndexer,
) *FanoutEngine {
	e := &FanoutEngine{
		config:        config,
		actors:        actors,
		notes:         notes,
		relationships: relationships,
		notifications: notifications,
		antennas:      antennas,
		instances:     instances,
		webhooks:      webhooks,
		deliverer:     deliverer,
		hookDeliverer: hookDeliverer,
		signal:        signal,
		search:        search,
	}
	e.wordMuteRules = lookupcache.New(5*time.Minute, func(ctx context.Context, _ string) ([]domain.WordMuteRule, error) {
		return relationships.ListWordMuteRules(ctx)
	})
	e.antennaList = lookupcache.New(5*time.Minute, func(ctx context.Context, _ string) ([]domain.Antenna, error) {
		return antennas.ListAntennas(ctx)
	})
	return e
}

// Run fans one accepted note out. created distinguishes a fresh note from an
// edit; silent suppresses notifications for an otherwise normal create.
func (e *FanoutEngine) Run(ctx context.Context, author *domain.Actor, note *domain.Note, silent, created bool) error {
	ctx, span := tracer.Start(ctx, "Fanout.Run")
	defer span.End()

	// Spawned work outlives the triggering job.
	bg := context.WithoutCancel(ctx)

	if created {
		go e.updateStatistics(bg, author, note)
	}
	go e.scanWordMutes(bg, author, note)
	go e.fanoutAntennas(bg, author, note, created)

	if !silent {
		if created {
			if err := e.deliverNotifications(ctx, author, note); err != nil {
				span.RecordError(err)
				return err
			}
		} else {
			e.notifyWatchers(ctx, author, note)
		}
	}

	if author.IsLocal() && !note.LocalOnly && created {
		if err := e.deliverFederated(ctx, author, note); err != nil {
			span.RecordError(err)
			return err
		}
	}

	if err := e.search.IndexNote(ctx, note); err != nil {
		slog.Error("search indexing failed",
			slog.String("note", note.ID),
			slog.String("error", err.Error()),
		)
	}

	event := "note:created"
	if !created {
		event = "note:updated"
	}
	if err := e.signal.PublishNote(ctx, event, note); err != nil {
		slog.Error("signal publish failed",
			slog.String("note", note.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// updateStatistics bumps the author, instance and parent counters.
func (e *FanoutEngine) updateStatistics(ctx context.Context, author *domain.Actor, note *domain.Note) {
	if err := e.actors.IncrementNotesCount(ctx, author.ID); err != nil {
		slog.Error("notes count update failed", slog.String("error", err.Error()))
	}
	if author.IsRemote() {
		if err := e.instances.IncrementNotes(ctx, author.Host); err != nil {
			slog.Error("instance stats update failed", slog.String("error", err.Error()))
		}
	}

	if note.ReplyID != nil {
		if err := e.notes.IncrementReplies(ctx, *note.ReplyID); err != nil {
			slog.Error("reply count update failed", slog.String("error", err.Error()))
		}
	}
	if note.RenoteID != nil {
		// Only the first renote by this actor scores the target.
		count, err := e.notes.CountSameRenotes(ctx, note.ActorID, *note.RenoteID, note.ID)
		if err == nil && count == 0 {
			if err := e.notes.IncrementRenoteCount(ctx, *note.RenoteID); err != nil {
				slog.Error("renote count update failed", slog.String("error", err.Error()))
			}
		}
	}

	if note.Visibility == kagari.VisibilityPublic || note.Visibility == kagari.VisibilityHome {
		if len(note.Tags) > 0 {
			if err := e.notes.UpdateHashtags(ctx, note.Tags); err != nil {
				slog.Error("hashtag update failed", slog.String("error", err.Error()))
			}
		}
	}
}

// scanWordMutes tests the note against every local actor's muted-word rules
// and records a suppression marker per hit.
func (e *FanoutEngine) scanWordMutes(ctx context.Context, author *domain.Actor, note *domain.Note) {
	rules, err := e.wordMuteRules.Get(ctx, "all")
	if err != nil {
		slog.Error("word mute rules load failed", slog.String("error", err.Error()))
		return
	}
	for _, rule := range rules {
		if rule.ActorID == author.ID {
			continue
		}
		if matchesWordMute(note.Text, rule.Keywords) {
			if err := e.notifications.InsertMutedNote(ctx, rule.ActorID, note.ID, "word"); err != nil {
				slog.Error("muted note insert failed", slog.String("error", err.Error()))
			}
		}
	}
}

// matchesWordMute reports whether the text contains every keyword of the
// rule. Matching is substring, case-insensitive.
func matchesWordMute(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" || !strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// fanoutAntennas evaluates every antenna against the note. On update the
// note is first removed from all antenna timelines so re-insertion cannot
// hit duplicate keys.
func (e *FanoutEngine) fanoutAntennas(ctx context.Context, author *domain.Actor, note *domain.Note, created bool) {
	if !created {
		if err := e.antennas.RemoveNoteFromAll(ctx, note.ID); err != nil {
			slog.Error("antenna cleanup failed", slog.String("error", err.Error()))
			return
		}
	}

	list, err := e.antennaList.Get(ctx, "all")
	if err != nil {
		slog.Error("antenna list load failed", slog.String("error", err.Error()))
		return
	}
	for i := range list {
		antenna := &list[i]
		hit, err := e.CheckHitAntenna(ctx, antenna, note, author)
		if err != nil {
			slog.Error("antenna check failed",
				slog.String("antenna", antenna.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !hit {
			continue
		}
		if err := e.antennas.AddNote(ctx, antenna.ID, note.ID); err != nil {
			slog.Error("antenna insert failed",
				slog.String("antenna", antenna.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := e.signal.PublishNote(ctx, "antenna:"+antenna.ID, note); err != nil {
			slog.Error("antenna signal failed", slog.String("error", err.Error()))
		}
	}
}

// deliverNotifications builds the per-recipient intent queue for a fresh
// note and flushes it through the mute filters.
func (e *FanoutEngine) deliverNotifications(ctx context.Context, author *domain.Actor, note *domain.Note) error {
	manager := NewNotificationManager(e.relationships, e.notifications, e.signal, author, note)

	// Remote recipients are reached through federated delivery, never
	// through local notifications.
	if note.Visibility == kagari.VisibilitySpecified {
		for _, id := range note.VisibleActorIDs {
			if e.isLocalActor(ctx, id) {
				manager.Push(id, domain.NotificationMention)
			}
		}
	} else {
		for _, id := range note.Mentions {
			if e.isLocalActor(ctx, id) {
				manager.Push(id, domain.NotificationMention)
			}
		}
	}

	if note.ReplyActorID != nil && localID(note.ReplyActorHost) {
		manager.Push(*note.ReplyActorID, domain.NotificationReply)
	}
	if note.RenoteActorID != nil && localID(note.RenoteActorHost) {
		reason := domain.NotificationRenote
		if note.IsQuote() {
			reason = domain.NotificationQuote
		}
		manager.Push(*note.RenoteActorID, reason)
	}

	delivered, err := manager.Deliver(ctx)
	if err != nil {
		return err
	}

	go e.deliverWebhooks(context.WithoutCancel(ctx), author, note, delivered)
	return nil
}

// notifyWatchers emits an update notice to the recipients the note already
// reached; an edit never notifies anyone new.
func (e *FanoutEngine) notifyWatchers(ctx context.Context, author *domain.Actor, note *domain.Note) {
	manager := NewNotificationManager(e.relationships, e.notifications, e.signal, author, note)
	for _, id := range note.Mentions {
		if e.isLocalActor(ctx, id) {
			manager.Push(id, domain.NotificationUpdate)
		}
	}
	if note.ReplyActorID != nil && localID(note.ReplyActorHost) {
		manager.Push(*note.ReplyActorID, domain.NotificationUpdate)
	}
	if _, err := manager.Deliver(ctx); err != nil {
		slog.Error("watcher notification failed", slog.String("error", err.Error()))
	}
}

// deliverWebhooks posts the note to each recipient's subscribed webhooks.
// The author's own hooks always get a note event, whether or not anyone
// was notified.
func (e *FanoutEngine) deliverWebhooks(ctx context.Context, author *domain.Actor, note *domain.Note, delivered map[string]string) {
	events := make(map[string]string, len(delivered)+1)
	for id, reason := range delivered {
		events[id] = reason
	}
	events[author.ID] = domain.WebhookEventNote

	recipients := make([]string, 0, len(events))
	for id := range events {
		recipients = append(recipients, id)
	}
	hooks, err := e.webhooks.ListActive(ctx, recipients)
	if err != nil {
		slog.Error("webhook lookup failed", slog.String("error", err.Error()))
		return
	}
	for _, hook := range hooks {
		event := events[hook.ActorID]
		if !hook.Subscribed(event) {
			continue
		}
		if err := e.hookDeliverer.Deliver(ctx, hook, event, note); err != nil {
			slog.Error("webhook delivery failed",
				slog.String("webhook", hook.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// deliverFederated computes the remote recipient set and hands it to the
// delivery queue. Direct recipients always receive the note; followers are
// added for public/home/followers visibility; relays for public only.
func (e *FanoutEngine) deliverFederated(ctx context.Context, author *domain.Actor, note *domain.Note) error {
	inboxes := map[string]bool{}

	addActor := func(a *domain.Actor) {
		if a == nil || a.IsLocal() {
			return
		}
		inbox := a.Inbox
		if a.SharedInbox != "" {
			inbox = a.SharedInbox
		}
		if inbox != "" {
			inboxes[inbox] = true
		}
	}

	for _, id := range note.Mentions {
		actor, err := e.actors.GetActor(ctx, id)
		if err != nil {
			continue
		}
		addActor(actor)
	}
	if note.ReplyActorID != nil && note.ReplyActorHost != nil && *note.ReplyActorHost != "" {
		if actor, err := e.actors.GetActor(ctx, *note.ReplyActorID); err == nil {
			addActor(actor)
		}
	}
	if note.RenoteActorID != nil && note.RenoteActorHost != nil && *note.RenoteActorHost != "" {
		if actor, err := e.actors.GetActor(ctx, *note.RenoteActorID); err == nil {
			addActor(actor)
		}
	}

	switch note.Visibility {
	case kagari.VisibilityPublic, kagari.VisibilityHome, kagari.VisibilityFollowers:
		followers, err := e.relationships.RemoteFollowers(ctx, author.ID)
		if err != nil {
			return err
		}
		for i := range followers {
			addActor(&followers[i])
		}
	}

	if note.Visibility == kagari.VisibilityPublic {
		relays, err := e.instances.ListRelayInboxes(ctx)
		if err != nil {
			return err
		}
		for _, inbox := range relays {
			inboxes[inbox] = true
		}
	}

	if len(inboxes) == 0 {
		return nil
	}
	targets := make([]string, 0, len(inboxes))
	for inbox := range inboxes {
		targets = append(targets, inbox)
	}
	return e.deliverer.DeliverNote(ctx, author, note, targets)
}

// localID reports whether a denormalized host column denotes a local actor.
func localID(host *string) bool {
	return host == nil || *host == ""
}

func (e *FanoutEngine) isLocalActor(ctx context.Context, id string) bool {
	actor, err := e.actors.GetActor(ctx, id)
	return err == nil && actor.IsLocal()
}

// NotificationManager collects per-recipient notification intents for one
// note and flushes them through the mute filters. At most one intent per
// recipient survives; a queued mention may be upgraded to any stronger
// reason but a non-mention reason is never downgraded back to mention.
type NotificationManager struct {
	relationships RelationshipStore
	notifications NotificationStore
	signal        SignalPublisher
	author        *domain.Actor
	note          *domain.Note

	order   []string
	reasons map[string]string
}

func NewNotificationManager(
	relationships RelationshipStore,
	notifications NotificationStore,
	signal SignalPublisher,
	author *domain.Actor,
	note *domain.Note,
) *NotificationManager {
	return &NotificationManager{
		relationships: relationships,
		notifications: notifications,
		signal:        signal,
		author:        author,
		note:          note,
		reasons:       map[string]string{},
	}
}

// Push queues an intent. Self-notifications are dropped.
func (m *NotificationManager) Push(recipientID, reason string) {
	if recipientID == "" || recipientID == m.author.ID {
		return
	}
	existing, ok := m.reasons[recipientID]
	if !ok {
		m.order = append(m.order, recipientID)
		m.reasons[recipientID] = reason
		return
	}
	if existing == domain.NotificationMention && reason != domain.NotificationMention {
		m.reasons[recipientID] = reason
	}
}

// Reason returns the queued reason for a recipient, if any.
func (m *NotificationManager) Reason(recipientID string) (string, bool) {
	reason, ok := m.reasons[recipientID]
	return reason, ok
}

// Deliver flushes the queue. Each intent is checked against a direct user
// mute and a thread mute whose reason set covers the intent's reason; either
// suppression drops the intent. Returns the recipients actually notified,
// keyed to their reason.
func (m *NotificationManager) Deliver(ctx context.Context) (map[string]string, error) {
	delivered := map[string]string{}

	threadIDs := []string{m.note.EffectiveThreadID()}
	if m.note.RenoteID != nil {
		threadIDs = append(threadIDs, *m.note.RenoteID)
	}

	for _, recipientID := range m.order {
		reason := m.reasons[recipientID]

		muted, err := m.relationships.IsMuted(ctx, recipientID, m.author.ID)
		if err != nil {
			return delivered, err
		}
		if muted {
			continue
		}

		threadMutes, err := m.relationships.ThreadMutes(ctx, recipientID, threadIDs)
		if err != nil {
			return delivered, err
		}
		if threadMuteCovers(threadMutes, reason) {
			continue
		}

		notification := &domain.Notification{
			RecipientID: recipientID,
			NotifierID:  m.author.ID,
			Type:        reason,
			NoteID:      &m.note.ID,
		}
		if err := m.notifications.CreateNotification(ctx, notification); err != nil {
			return delivered, err
		}

		unread := &domain.NoteUnread{
			ActorID:     recipientID,
			NoteID:      m.note.ID,
			IsSpecified: m.note.Visibility == kagari.VisibilitySpecified,
			IsMentioned: reason == domain.NotificationMention || reason == domain.NotificationReply,
		}
		if err := m.notifications.InsertUnread(ctx, unread); err != nil {
			return delivered, err
		}

		if err := m.signal.PublishNotification(ctx, recipientID, notification); err != nil {
			slog.Error("notification signal failed", slog.String("error", err.Error()))
		}

		delivered[recipientID] = reason
	}
	return delivered, nil
}

// threadMuteCovers reports whether any mute's reason set includes the
// intent's reason. Suppression is overlap against the configured reasons,
// so a mute with no reasons suppresses nothing.
func threadMuteCovers(mutes []domain.ThreadMuting, reason string) bool {
	for _, mute := range mutes {
		for _, r := range mute.Reasons {
			if r == reason {
				return true
			}
		}
	}
	return false
}
