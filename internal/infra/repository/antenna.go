package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kagari-social/kagari/internal/domain"
	"github.com/kagari-social/kagari/internal/infra/database/models"
)

type AntennaRepository struct {
	db *gorm.DB
}

func NewAntennaRepository(db *gorm.DB) *AntennaRepository {
	return &AntennaRepository{db: db}
}

func (r *AntennaRepository) ListAntennas(ctx context.Context) ([]domain.Antenna, error) {
	var records []models.Antenna
	err := r.db.WithContext(ctx).Find(&records).Error
	if err != nil {
		return nil, err
	}
	antennas := make([]domain.Antenna, 0, len(records))
	for i := range records {
		antennas = append(antennas, *antennaToDomain(&records[i]))
	}
	return antennas, nil
}

// AddNote files a note into an antenna timeline. Replays are harmless.
func (r *AntennaRepository) AddNote(ctx context.Context, antennaID, noteID string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.AntennaNote{AntennaID: antennaID, NoteID: noteID}).Error
}

func (r *AntennaRepository) RemoveNoteFromAll(ctx context.Context, noteID string) error {
	return r.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Delete(&models.AntennaNote{}).Error
}

func antennaToDomain(m *models.Antenna) *domain.Antenna {
	return &domain.Antenna{
		ID:              m.ID,
		ActorID:         m.ActorID,
		Name:            m.Name,
		Src:             m.Src,
		UserListID:      m.UserListID,
		UserGroupID:     m.UserGroupID,
		Users:           m.Users,
		Keywords:        m.Keywords.Data(),
		ExcludeKeywords: m.ExcludeKeywords.Data(),
		CaseSensitive:   m.CaseSensitive,
		WithReplies:     m.WithReplies,
		WithFile:        m.WithFile,
	}
}
