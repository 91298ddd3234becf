package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/kagari-social/kagari/internal/domain"
)

// Event is the envelope published to realtime subscribers.
type Event struct {
	Type string `json:"type"`
	Body any    `json:"body"`
}

// SignalService fans realtime events out over redis pub/sub.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, channel string, event Event) error {
	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, channel, jsonstr).Err()
}

func (s *SignalService) PublishNote(ctx context.Context, channel string, note *domain.Note) error {
	return s.Publish(ctx, channel, Event{Type: "note", Body: note})
}

func (s *SignalService) PublishNotification(ctx context.Context, recipientID string, n *domain.Notification) error {
	return s.Publish(ctx, "user:"+recipientID, Event{Type: "notification", Body: n})
}

// Subscribe opens a pub/sub subscription for the streaming endpoint.
func (s *SignalService) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return s.rdb.Subscribe(ctx, channels...)
}
