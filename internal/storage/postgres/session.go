package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/skogeo/hear-me-out-cake/internal/models"
	"github.com/skogeo/hear-me-out-cake/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Load(id string) (*models.Session, error) {
	var session models.Session
	err := s.db.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		Preload("Participants.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return &session, nil
}

func (s *SessionStore) Save(session *models.Session) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
			Omit("Participants").Create(session).Error; err != nil {
			return fmt.Errorf("save session %s: %w", session.ID, err)
		}

		// Replace the participant rows wholesale. The aggregate is small
		// and this keeps removals (leave, image replacement) in sync
		// without diffing.
		var old []models.Participant
		if err := tx.Where("session_id = ?", session.ID).Find(&old).Error; err != nil {
			return err
		}
		for _, p := range old {
			if err := tx.Where("participant_id = ?", p.ID).
				Delete(&models.ParticipantImage{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("session_id = ?", session.ID).
			Delete(&models.Participant{}).Error; err != nil {
			return err
		}

		for i := range session.Participants {
			session.Participants[i].SessionID = session.ID
			if err := tx.Create(&session.Participants[i]).Error; err != nil {
				return fmt.Errorf("save participant %s: %w", session.Participants[i].ID, err)
			}
		}
		return nil
	})
}

func (s *SessionStore) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var participants []models.Participant
		if err := tx.Where("session_id = ?", id).Find(&participants).Error; err != nil {
			return err
		}
		for _, p := range participants {
			if err := tx.Where("participant_id = ?", p.ID).
				Delete(&models.ParticipantImage{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("session_id = ?", id).
			Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Session{}, "id = ?", id).Error
	})
}

func (s *SessionStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var stale []models.Session
	if err := s.db.Where("created_at < ?", cutoff).Find(&stale).Error; err != nil {
		return 0, err
	}
	for _, session := range stale {
		if err := s.Delete(session.ID); err != nil {
			return 0, err
		}
	}
	return int64(len(stale)), nil
}
