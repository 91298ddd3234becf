package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/infra/database/models"
)

type NoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	var note models.Note
	err := r.db.WithContext(ctx).Take(&note, "id = ?", id).Error
	if err != nil {
		return nil, convertError(err, "note")
	}
	return noteToDomain(&note), nil
}

func (r *NoteRepository) GetNoteByURI(ctx context.Context, uri string) (*domain.Note, error) {
	var note models.Note
	err := r.db.WithContext(ctx).Take(&note, "uri = ?", uri).Error
	if err != nil {
		return nil, convertError(err, "note")
	}
	return noteToDomain(&note), nil
}

func (r *NoteRepository) CreateNote(ctx context.Context, note *domain.Note) error {
	err := r.db.WithContext(ctx).Create(noteToModel(note)).Error
	return convertError(err, "note")
}

// UpdateNote applies a field-level edit and stamps UpdatedAt.
func (r *NoteRepository) UpdateNote(ctx context.Context, note *domain.Note) error {
	now := time.Now()
	note.UpdatedAt = &now
	return r.db.WithContext(ctx).Model(&models.Note{}).
		Where("id = ?", note.ID).
		Updates(map[string]any{
			"text":       note.Text,
			"cw":         note.CW,
			"tags":       datatypes.NewJSONSlice(note.Tags),
			"file_ids":   datatypes.NewJSONSlice(note.FileIDs),
			"updated_at": now,
		}).Error
}

// MarkUpdated stamps UpdatedAt without touching content, used when an
// out-of-order Update materialized the note via the Create path.
func (r *NoteRepository) MarkUpdated(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Note{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}

func (r *NoteRepository) IncrementReplies(ctx context.Context, id string) error {
	// Reply counters live in a denormalized column on the parent.
	return r.db.WithContext(ctx).Model(&models.Note{}).
		Where("id = ?", id).
		UpdateColumn("replies_count", gorm.Expr("replies_count + 1")).Error
}

// IncrementRenoteCount bumps the renote counter and score of the target.
func (r *NoteRepository) IncrementRenoteCount(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Note{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"renote_count": gorm.Expr("renote_count + 1"),
			"score":        gorm.Expr("score + 1"),
		}).Error
}

// CountSameRenotes counts other renotes of renoteID by the same actor.
func (r *NoteRepository) CountSameRenotes(ctx context.Context, actorID, renoteID, excludeNoteID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Note{}).
		Where("actor_id = ? AND renote_id = ? AND id <> ?", actorID, renoteID, excludeNoteID).
		Count(&count).Error
	return count, err
}

// UpdateHashtags bumps usage counters for each tag.
func (r *NoteRepository) UpdateHashtags(ctx context.Context, tags []string) error {
	for _, tag := range tags {
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"notes_count": gorm.Expr("hashtags.notes_count + 1"),
				"m_date":      gorm.Expr("clock_timestamp()"),
			}),
		}).Create(&models.Hashtag{Name: tag, NotesCount: 1}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func noteToDomain(m *models.Note) *domain.Note {
	return &domain.Note{
		ID:              m.ID,
		URI:             m.URI,
		ActorID:         m.ActorID,
		ActorHost:       m.ActorHost,
		Text:            m.Text,
		CW:              m.CW,
		Visibility:      m.Visibility,
		LocalOnly:       m.LocalOnly,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		ReplyID:         m.ReplyID,
		RenoteID:        m.RenoteID,
		ThreadID:        m.ThreadID,
		ChannelID:       m.ChannelID,
		Mentions:        m.Mentions,
		VisibleActorIDs: m.VisibleActorIDs,
		Tags:            m.Tags,
		FileIDs:         m.FileIDs,
		ReplyActorID:    m.ReplyActorID,
		ReplyActorHost:  m.ReplyActorHost,
		RenoteActorID:   m.RenoteActorID,
		RenoteActorHost: m.RenoteActorHost,
	}
}

func noteToModel(n *domain.Note) *models.Note {
	return &models.Note{
		ID:              n.ID,
		URI:             n.URI,
		ActorID:         n.ActorID,
		ActorHost:       n.ActorHost,
		Text:            n.Text,
		CW:              n.CW,
		Visibility:      n.Visibility,
		LocalOnly:       n.LocalOnly,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
		ReplyID:         n.ReplyID,
		RenoteID:        n.RenoteID,
		ThreadID:        n.ThreadID,
		ChannelID:       n.ChannelID,
		Mentions:        datatypes.NewJSONSlice(n.Mentions),
		VisibleActorIDs: datatypes.NewJSONSlice(n.VisibleActorIDs),
		Tags:            datatypes.NewJSONSlice(n.Tags),
		FileIDs:         datatypes.NewJSONSlice(n.FileIDs),
		ReplyActorID:    n.ReplyActorID,
		ReplyActorHost:  n.ReplyActorHost,
		RenoteActorID:   n.RenoteActorID,
		RenoteActorHost: n.RenoteActorHost,
	}
}
