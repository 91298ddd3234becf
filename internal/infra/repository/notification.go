package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/infra/database/models"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	record := models.Notification{
		ID:           n.ID,
		RecipientID:  n.RecipientID,
		NotifierID:   n.NotifierID,
		Type:         n.Type,
		NoteID:       n.NoteID,
		MoveTargetID: n.MoveTargetID,
	}
	err := r.db.WithContext(ctx).Create(&record).Error
	return convertError(err, "notification")
}

func (r *NotificationRepository) InsertUnread(ctx context.Context, u *domain.NoteUnread) error {
	record := models.NoteUnread{
		ActorID:     u.ActorID,
		NoteID:      u.NoteID,
		IsSpecified: u.IsSpecified,
		IsMentioned: u.IsMentioned,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
}

func (r *NotificationRepository) InsertMutedNote(ctx context.Context, actorID, noteID, reason string) error {
	record := models.MutedNote{
		ID:      uuid.New().String(),
		ActorID: actorID,
		NoteID:  noteID,
		Reason:  reason,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
}
