package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/kagari-social/kagari/internal/domain"
)

// SearchStreamKey is the redis stream the external indexer tails.
const SearchStreamKey = "kagari:search"

// SearchService feeds accepted notes to the search indexer over a redis
// stream, so indexing lag never touches the ingest path.
type SearchService struct {
	rdb *redis.Client
}

func NewSearchService(redisClient *redis.Client) *SearchService {
	return &SearchService{
		rdb: redisClient,
	}
}

func (s *SearchService) IndexNote(ctx context.Context, note *domain.Note) error {
	raw, err := json.Marshal(note)
	if err != nil {
		return err
	}
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: SearchStreamKey,
		Values: map[string]any{"note": raw},
	}).Err()
}
