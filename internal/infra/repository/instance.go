package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kagari-social/kagari/internal/infra/database/models"
)

type InstanceRepository struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// IsBlocked reports whether the host carries an administrative block.
func (r *InstanceRepository) IsBlocked(ctx context.Context, host string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Instance{}).
		Where("host = ? AND is_blocked", host).
		Count(&count).Error
	return count > 0, err
}

// Touch records that the host just talked to us, creating the instance
// record on first contact.
func (r *InstanceRepository) Touch(ctx context.Context, host string) error {
	now := time.Now()
	record := models.Instance{
		Host:                    host,
		LatestRequestReceivedAt: &now,
		LastCommunicatedAt:      &now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "host"}},
		DoUpdates: clause.Assignments(map[string]any{
			"latest_request_received_at": now,
			"last_communicated_at":       now,
			"is_not_responding":          false,
		}),
	}).Create(&record).Error
}

func (r *InstanceRepository) IncrementNotes(ctx context.Context, host string) error {
	return r.db.WithContext(ctx).Model(&models.Instance{}).
		Where("host = ?", host).
		UpdateColumn("notes_count", gorm.Expr("notes_count + 1")).Error
}

// ListRelayInboxes returns the inbox urls of accepted relays.
func (r *InstanceRepository) ListRelayInboxes(ctx context.Context) ([]string, error) {
	var inboxes []string
	err := r.db.WithContext(ctx).Model(&models.RelaySubscription{}).
		Where("status = 'accepted'").
		Pluck("inbox_url", &inboxes).Error
	return inboxes, err
}
