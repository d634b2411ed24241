// Package memory is a map-backed SessionStore used in tests and when the
// server runs without a database.
package memory

import (
	"sync"
	"time"

	"github.com/skogeo/hear-me-out-cake/internal/models"
	"github.com/skogeo/hear-me-out-cake/internal/storage"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*models.Session)}
}

func (s *SessionStore) Load(id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneSession(session), nil
}

func (s *SessionStore) Save(session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, session := range s.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// cloneSession deep-copies the aggregate so cached mutations never alias
// stored state.
func cloneSession(session *models.Session) *models.Session {
	clone := *session
	clone.Participants = make([]models.Participant, len(session.Participants))
	for i, p := range session.Participants {
		cp := p
		cp.Images = make([]models.ParticipantImage, len(p.Images))
		copy(cp.Images, p.Images)
		clone.Participants[i] = cp
	}
	return &clone
}
