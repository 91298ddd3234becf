package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/infra/database/models"
)

type ActorRepository struct {
	db *gorm.DB
}

func NewActorRepository(db *gorm.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

func (r *ActorRepository) GetActor(ctx context.Context, id string) (*domain.Actor, error) {
	var actor models.Actor
	err := r.db.WithContext(ctx).Take(&actor, "id = ?", id).Error
	if err != nil {
		return nil, convertError(err, "actor")
	}
	return actorToDomain(&actor), nil
}

func (r *ActorRepository) GetActorByURI(ctx context.Context, uri string) (*domain.Actor, error) {
	var actor models.Actor
	err := r.db.WithContext(ctx).Take(&actor, "uri = ?", uri).Error
	if err != nil {
		return nil, convertError(err, "actor")
	}
	return actorToDomain(&actor), nil
}

func (r *ActorRepository) GetActorByHandle(ctx context.Context, username, host string) (*domain.Actor, error) {
	var actor models.Actor
	err := r.db.WithContext(ctx).
		Where("lower(username) = lower(?) AND host = ?", username, host).
		Take(&actor).Error
	if err != nil {
		return nil, convertError(err, "actor")
	}
	return actorToDomain(&actor), nil
}

func (r *ActorRepository) GetKeyByKeyID(ctx context.Context, keyID string) (*domain.PublicKey, error) {
	var key models.PublicKey
	err := r.db.WithContext(ctx).Take(&key, "key_id = ?", keyID).Error
	if err != nil {
		return nil, convertError(err, "public key")
	}
	return keyToDomain(&key), nil
}

func (r *ActorRepository) GetKeyByActorID(ctx context.Context, actorID string) (*domain.PublicKey, error) {
	var key models.PublicKey
	err := r.db.WithContext(ctx).Take(&key, "actor_id = ?", actorID).Error
	if err != nil {
		return nil, convertError(err, "public key")
	}
	return keyToDomain(&key), nil
}

// UpsertActor materializes a remote actor and its key, refreshing an
// existing record in place. The pair is written atomically.
func (r *ActorRepository) UpsertActor(ctx context.Context, actor *domain.Actor, key *domain.PublicKey) error {
	record := actorToModel(actor)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "uri"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "host", "inbox", "shared_inbox", "followers_uri",
				"display_name", "is_suspended", "last_fetched_at", "m_date",
			}),
		}).Create(record).Error
		if err != nil {
			return errors.Wrap(err, "failed to upsert actor")
		}

		// The insert may have resolved to an existing row; reuse its id.
		var existing models.Actor
		if err := tx.Take(&existing, "uri = ?", actor.URI).Error; err != nil {
			return err
		}
		actor.ID = existing.ID

		if key == nil {
			return nil
		}
		keyRecord := models.PublicKey{
			KeyID:   key.KeyID,
			ActorID: existing.ID,
			KeyPem:  key.KeyPem,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"key_id", "key_pem"}),
		}).Create(&keyRecord).Error
		if err != nil {
			return errors.Wrap(err, "failed to upsert public key")
		}
		key.ActorID = existing.ID
		return nil
	})
}

func (r *ActorRepository) IncrementNotesCount(ctx context.Context, actorID string) error {
	return r.db.WithContext(ctx).Model(&models.Actor{}).
		Where("id = ?", actorID).
		Updates(map[string]any{
			"notes_count": gorm.Expr("notes_count + 1"),
			"m_date":      gorm.Expr("clock_timestamp()"),
		}).Error
}

func actorToDomain(m *models.Actor) *domain.Actor {
	return &domain.Actor{
		ID:            m.ID,
		Username:      m.Username,
		Host:          m.Host,
		URI:           m.URI,
		Inbox:         m.Inbox,
		SharedInbox:   m.SharedInbox,
		FollowersURI:  m.FollowersURI,
		DisplayName:   m.DisplayName,
		IsSuspended:   m.IsSuspended,
		IsSilenced:    m.IsSilenced,
		MovedToID:     m.MovedToID,
		LastFetchedAt: m.LastFetchedAt,
	}
}

func actorToModel(a *domain.Actor) *models.Actor {
	return &models.Actor{
		ID:            a.ID,
		Username:      a.Username,
		Host:          a.Host,
		URI:           a.URI,
		Inbox:         a.Inbox,
		SharedInbox:   a.SharedInbox,
		FollowersURI:  a.FollowersURI,
		DisplayName:   a.DisplayName,
		IsSuspended:   a.IsSuspended,
		IsSilenced:    a.IsSilenced,
		MovedToID:     a.MovedToID,
		LastFetchedAt: a.LastFetchedAt,
	}
}

func keyToDomain(m *models.PublicKey) *domain.PublicKey {
	return &domain.PublicKey{
		KeyID:   m.KeyID,
		ActorID: m.ActorID,
		KeyPem:  m.KeyPem,
	}
}
