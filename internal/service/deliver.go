package service

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/kagari-social/kagari"
	"github.com/kagari-social/kagari/internal/domain"
)

// DeliverQueueKey is the redis list the outbound delivery workers consume.
const DeliverQueueKey = "kagari:deliver"

// DeliveryJob is one signed POST the delivery worker owes a remote inbox.
// Retry and backoff are the worker's concern.
type DeliveryJob struct {
	Inbox   string          `json:"inbox"`
	ActorID string          `json:"actorId"`
	Payload json.RawMessage `json:"payload"`
}

// DeliverService renders accepted local notes into activities and enqueues
// one delivery job per target inbox.
type DeliverService struct {
	config *domain.Config
	rdb    *redis.Client
}

func NewDeliverService(config *domain.Config, redisClient *redis.Client) *DeliverService {
	return &DeliverService{
		config: config,
		rdb:    redisClient,
	}
}

func (s *DeliverService) DeliverNote(ctx context.Context, author *domain.Actor, note *domain.Note, inboxes []string) error {
	ctx, span := tracer.Start(ctx, "Deliver.Service.DeliverNote")
	defer span.End()

	payload, err := s.renderCreate(author, note)
	if err != nil {
		span.RecordError(err)
		return err
	}

	for _, inbox := range inboxes {
		job := DeliveryJob{
			Inbox:   inbox,
			ActorID: author.ID,
			Payload: payload,
		}
		raw, err := json.Marshal(job)
		if err != nil {
			return err
		}
		if err := s.rdb.LPush(ctx, DeliverQueueKey, raw).Err(); err != nil {
			span.RecordError(err)
			return errors.Wrap(err, "failed to enqueue delivery")
		}
	}
	return nil
}

// renderCreate builds the Create activity wrapping the note document.
func (s *DeliverService) renderCreate(author *domain.Actor, note *domain.Note) (json.RawMessage, error) {
	object := s.renderNote(author, note)
	rawObject, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}

	activity := kagari.Activity{
		Context: json.RawMessage(`"https://www.w3.org/ns/activitystreams"`),
		ID:      note.URI + "/activity",
		Type:    kagari.ActivityCreate,
		Actor:   kagari.ObjectRef{ID: author.URI},
		Object:  kagari.ObjectRef{ID: note.URI, Raw: rawObject},
	}
	return json.Marshal(activity)
}

func (s *DeliverService) renderNote(author *domain.Actor, note *domain.Note) *kagari.Note {
	to, cc := kagari.Addressing(note.Visibility, author.FollowersURI)

	object := &kagari.Note{
		ID:           note.URI,
		Type:         "Note",
		AttributedTo: kagari.ObjectRef{ID: author.URI},
		Content:      note.Text,
		To:           to,
		CC:           cc,
		Published:    &note.CreatedAt,
		Updated:      note.UpdatedAt,
	}
	for _, tag := range note.Tags {
		object.Tag = append(object.Tag, kagari.Tag{Type: "Hashtag", Name: "#" + tag})
	}
	return object
}
