package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/infra/database/models"
)

type RelationshipRepository struct {
	db *gorm.DB
}

func NewRelationshipRepository(db *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// LocalFollowerIDs returns ids of local actors following the given actor.
func (r *RelationshipRepository) LocalFollowerIDs(ctx context.Context, actorID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followee_id = ? AND follower_host = ''", actorID).
		Pluck("follower_id", &ids).Error
	return ids, err
}

// RemoteFollowers returns remote actors following the given actor, with
// inbox data for delivery.
func (r *RelationshipRepository) RemoteFollowers(ctx context.Context, actorID string) ([]domain.Actor, error) {
	var records []models.Actor
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = actors.id").
		Where("follows.followee_id = ? AND actors.host <> ''", actorID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	followers := make([]domain.Actor, 0, len(records))
	for i := range records {
		followers = append(followers, *actorToDomain(&records[i]))
	}
	return followers, nil
}

func (r *RelationshipRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

// BlockeeIDsOf returns the ids the given actor blocks.
func (r *RelationshipRepository) BlockeeIDsOf(ctx context.Context, blockerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Blocking{}).
		Where("blocker_id = ?", blockerID).
		Pluck("blockee_id", &ids).Error
	return ids, err
}

// BlockerIDsOf returns the ids of actors blocking the given actor.
func (r *RelationshipRepository) BlockerIDsOf(ctx context.Context, blockeeID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Blocking{}).
		Where("blockee_id = ?", blockeeID).
		Pluck("blocker_id", &ids).Error
	return ids, err
}

// MuterIDsOf returns the ids of actors muting the given actor.
func (r *RelationshipRepository) MuterIDsOf(ctx context.Context, muteeID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Muting{}).
		Where("mutee_id = ?", muteeID).
		Pluck("muter_id", &ids).Error
	return ids, err
}

// IsMuted reports whether muter has an active mute on mutee.
func (r *RelationshipRepository) IsMuted(ctx context.Context, muterID, muteeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Muting{}).
		Where("muter_id = ? AND mutee_id = ?", muterID, muteeID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Count(&count).Error
	return count > 0, err
}

// ThreadMutes returns the actor's mute records for any of the given threads.
func (r *RelationshipRepository) ThreadMutes(ctx context.Context, actorID string, threadIDs []string) ([]domain.ThreadMuting, error) {
	var records []models.ThreadMuting
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND thread_id IN ?", actorID, threadIDs).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	mutes := make([]domain.ThreadMuting, 0, len(records))
	for _, rec := range records {
		mutes = append(mutes, domain.ThreadMuting{
			ActorID:  rec.ActorID,
			ThreadID: rec.ThreadID,
			Reasons:  rec.Reasons,
		})
	}
	return mutes, nil
}

func (r *RelationshipRepository) ListWordMuteRules(ctx context.Context) ([]domain.WordMuteRule, error) {
	var records []models.WordMuteRule
	err := r.db.WithContext(ctx).Find(&records).Error
	if err != nil {
		return nil, err
	}
	rules := make([]domain.WordMuteRule, 0, len(records))
	for _, rec := range records {
		rules = append(rules, domain.WordMuteRule{ActorID: rec.ActorID, Keywords: rec.Keywords})
	}
	return rules, nil
}

func (r *RelationshipRepository) ListMemberIDs(ctx context.Context, listID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.UserListMember{}).
		Where("list_id = ?", listID).
		Pluck("actor_id", &ids).Error
	return ids, err
}

func (r *RelationshipRepository) GroupMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.UserGroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("actor_id", &ids).Error
	return ids, err
}

// ApplyMove executes the whole move batch in one transaction: the move edge
// on the origin, one notification per local follower, and the block/mute
// propagation onto the target.
func (r *RelationshipRepository) ApplyMove(ctx context.Context, batch domain.MoveBatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Actor{}).
			Where("id = ?", batch.OriginID).
			Update("moved_to_id", batch.TargetID).Error
		if err != nil {
			return err
		}

		for _, followerID := range batch.LocalFollowerIDs {
			notification := models.Notification{
				ID:           uuid.New().String(),
				RecipientID:  followerID,
				NotifierID:   batch.OriginID,
				Type:         domain.NotificationMove,
				MoveTargetID: &batch.TargetID,
			}
			if err := tx.Create(&notification).Error; err != nil {
				return err
			}
		}

		for _, blockerID := range batch.NewBlockerIDs {
			block := models.Blocking{BlockerID: blockerID, BlockeeID: batch.TargetID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&block).Error; err != nil {
				return err
			}
		}

		for _, muterID := range batch.NewMuterIDs {
			mute := models.Muting{MuterID: muterID, MuteeID: batch.TargetID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&mute).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
