package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/infra/database/models"
)

type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// ListActive returns every active webhook of the given actors.
func (r *WebhookRepository) ListActive(ctx context.Context, actorIDs []string) ([]domain.Webhook, error) {
	if len(actorIDs) == 0 {
		return nil, nil
	}
	var records []models.Webhook
	err := r.db.WithContext(ctx).
		Where("actor_id IN ? AND active", actorIDs).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	hooks := make([]domain.Webhook, 0, len(records))
	for _, rec := range records {
		hooks = append(hooks, domain.Webhook{
			ID:      rec.ID,
			ActorID: rec.ActorID,
			URL:     rec.URL,
			Secret:  rec.Secret,
			On:      rec.On,
			Active:  rec.Active,
		})
	}
	return hooks, nil
}
