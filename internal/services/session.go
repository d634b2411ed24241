package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/skogeo/hear-me-out-cake/internal/models"
	"github.com/skogeo/hear-me-out-cake/internal/storage"

	"github.com/google/uuid"
)

// SessionService is the state machine over cached session aggregates. Every
// transition is atomic: preconditions are checked first and a failed
// transition mutates nothing. Successful transitions recompute the derived
// fields, write the aggregate through to the store and return a payload the
// caller broadcasts.
type SessionService struct {
	cache *SessionCache
	store storage.SessionStore
	now   func() time.Time
	newID func() string
}

func NewSessionService(cache *SessionCache, store storage.SessionStore) *SessionService {
	return &SessionService{
		cache: cache,
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *SessionService) CreateSession() (*models.Session, error) {
	session := &models.Session{
		ID:                 s.sessionID(),
		Status:             models.SessionStatusWaiting,
		CurrentRevealIndex: -1,
		CanStart:           false,
		Participants:       []models.Participant{},
		CreatedAt:          s.now(),
	}

	if err := s.store.Save(session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.cache.Put(session)

	return session, nil
}

func (s *SessionService) GetSession(sessionID string) (*SessionSummary, error) {
	var summary SessionSummary
	err := s.cache.With(sessionID, func(session *models.Session) error {
		summary = SessionSummary{
			ID:                 session.ID,
			Status:             session.Status,
			ParticipantsCount:  len(session.Participants),
			CanStart:           session.CanStart,
			CurrentRevealIndex: session.CurrentRevealIndex,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Join adds a participant, or reconnects one when the username already
// exists in the session. Reconnection rebinds the stored participant to the
// new connection without changing its position in the reveal order.
func (s *SessionService) Join(sessionID, connectionID, username string) (*JoinResult, error) {
	var result JoinResult
	err := s.cache.With(sessionID, func(session *models.Session) error {
		var participant *models.Participant
		for i := range session.Participants {
			if session.Participants[i].Username == username {
				participant = &session.Participants[i]
				break
			}
		}

		if participant != nil {
			participant.ConnectionID = connectionID
			result.Rejoin = true
		} else {
			session.Participants = append(session.Participants, models.Participant{
				ID:           s.newID(),
				SessionID:    session.ID,
				ConnectionID: connectionID,
				Username:     username,
				Ready:        false,
				JoinedAt:     s.now(),
				Images:       []models.ParticipantImage{},
			})
			participant = &session.Participants[len(session.Participants)-1]
		}

		recomputeDerived(session)
		if err := s.store.Save(session); err != nil {
			return fmt.Errorf("persist join: %w", err)
		}

		result.Participant = cloneParticipant(*participant)
		result.Snapshot = snapshot(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Leave is the explicit logout: the participant record and its images are
// removed from the session. Compare Disconnect, which preserves them.
func (s *SessionService) Leave(sessionID, connectionID string) (*SessionSnapshot, error) {
	var snap *SessionSnapshot
	err := s.cache.With(sessionID, func(session *models.Session) error {
		idx := -1
		for i := range session.Participants {
			if session.Participants[i].ConnectionID == connectionID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrParticipantNotFound
		}

		session.Participants = append(session.Participants[:idx], session.Participants[idx+1:]...)

		recomputeDerived(session)
		if err := s.store.Save(session); err != nil {
			return fmt.Errorf("persist leave: %w", err)
		}

		snap = snapshot(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Disconnect handles a transport-level drop. The participant is located by
// connection id across all live sessions; its ready flag is reset but the
// record and uploaded images are preserved so the same username can silently
// reconnect. Returns ErrParticipantNotFound when the connection was not a
// participant anywhere.
func (s *SessionService) Disconnect(connectionID string) (string, *SessionSnapshot, error) {
	var (
		sessionID string
		snap      *SessionSnapshot
		saveErr   error
	)
	s.cache.Each(func(session *models.Session) bool {
		for i := range session.Participants {
			if session.Participants[i].ConnectionID != connectionID {
				continue
			}
			session.Participants[i].Ready = false
			session.Participants[i].ConnectionID = ""

			recomputeDerived(session)
			if err := s.store.Save(session); err != nil {
				saveErr = fmt.Errorf("persist disconnect: %w", err)
				return false
			}

			sessionID = session.ID
			snap = snapshot(session)
			return false
		}
		return true
	})

	if saveErr != nil {
		return "", nil, saveErr
	}
	if snap == nil {
		return "", nil, ErrParticipantNotFound
	}
	return sessionID, snap, nil
}

func (s *SessionService) SetReady(sessionID, connectionID string, ready bool) (*SessionSnapshot, error) {
	var snap *SessionSnapshot
	err := s.cache.With(sessionID, func(session *models.Session) error {
		participant := findByConnection(session, connectionID)
		if participant == nil {
			return ErrParticipantNotFound
		}

		participant.Ready = ready
		if !ready {
			// Fast path: one participant backing out makes the session
			// unstartable before anything else is recomputed.
			session.CanStart = false
		}

		recomputeDerived(session)
		if err := s.store.Save(session); err != nil {
			return fmt.Errorf("persist ready state: %w", err)
		}

		snap = snapshot(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// UploadImages replaces the actor's whole image list. Accumulation is the
// client's job; the server only ever sees the final list.
func (s *SessionService) UploadImages(sessionID, connectionID string, images []ImageUpload) (*SessionSnapshot, error) {
	var snap *SessionSnapshot
	err := s.cache.With(sessionID, func(session *models.Session) error {
		participant := findByConnection(session, connectionID)
		if participant == nil {
			return ErrParticipantNotFound
		}

		replaced := make([]models.ParticipantImage, len(images))
		for i, img := range images {
			replaced[i] = models.ParticipantImage{
				ParticipantID: participant.ID,
				URL:           img.URL,
				CharacterName: img.CharacterName,
				OrderNum:      i,
			}
		}
		participant.Images = replaced

		recomputeDerived(session)
		if err := s.store.Save(session); err != nil {
			return fmt.Errorf("persist images: %w", err)
		}

		snap = snapshot(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Start moves the session from waiting to viewing. It succeeds at most once
// per session; viewing never reverts to waiting.
func (s *SessionService) Start(sessionID string) (*StartResult, error) {
	var result StartResult
	err := s.cache.With(sessionID, func(session *models.Session) error {
		if session.Status != models.SessionStatusWaiting {
			return fmt.Errorf("%w: session already started", ErrInvalidState)
		}
		if !session.CanStart {
			return fmt.Errorf("%w: not all participants are ready", ErrInvalidState)
		}

		session.Status = models.SessionStatusViewing
		session.CurrentRevealIndex = -1

		recomputeDerived(session)
		if err := s.store.Save(session); err != nil {
			return fmt.Errorf("persist start: %w", err)
		}

		snap := snapshot(session)
		result = StartResult{
			CurrentRevealIndex: snap.CurrentRevealIndex,
			Participants:       snap.Participants,
			Status:             snap.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RevealNext advances the server-authoritative reveal cursor by exactly one.
// Index i means participants[0..i] are revealed; clients never compute the
// index themselves.
func (s *SessionService) RevealNext(sessionID string) (*RevealResult, error) {
	var result RevealResult
	err := s.cache.With(sessionID, func(session *models.Session) error {
		if session.Status != models.SessionStatusViewing {
			return fmt.Errorf("%w: session is not viewing", ErrInvalidState)
		}
		if session.CurrentRevealIndex >= len(session.Participants)-1 {
			return ErrRevealExhausted
		}

		session.CurrentRevealIndex++

		if err := s.store.Save(session); err != nil {
			return fmt.Errorf("persist reveal: %w", err)
		}

		snap := snapshot(session)
		result = RevealResult{
			CurrentRevealIndex: snap.CurrentRevealIndex,
			Participants:       snap.Participants,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *SessionService) sessionID() string {
	return strings.ReplaceAll(s.newID(), "-", "")[:8]
}

// recomputeDerived is the single place CanStart is derived from membership
// and readiness. Every transition ends here so the invariant holds after
// each mutation, not just eventually.
func recomputeDerived(session *models.Session) {
	ready := 0
	for _, p := range session.Participants {
		if p.Ready {
			ready++
		}
	}
	session.CanStart = len(session.Participants) > 0 && ready == len(session.Participants)
}

func findByConnection(session *models.Session, connectionID string) *models.Participant {
	if connectionID == "" {
		return nil
	}
	for i := range session.Participants {
		if session.Participants[i].ConnectionID == connectionID {
			return &session.Participants[i]
		}
	}
	return nil
}

// snapshot deep-copies the broadcastable state so payloads handed to the
// gateway never alias the live aggregate.
func snapshot(session *models.Session) *SessionSnapshot {
	participants := make([]models.Participant, len(session.Participants))
	readyCount := 0
	for i, p := range session.Participants {
		participants[i] = cloneParticipant(p)
		if p.Ready {
			readyCount++
		}
	}
	return &SessionSnapshot{
		Participants:       participants,
		ReadyCount:         readyCount,
		CanStart:           session.CanStart,
		Status:             session.Status,
		CurrentRevealIndex: session.CurrentRevealIndex,
	}
}

func cloneParticipant(p models.Participant) models.Participant {
	images := make([]models.ParticipantImage, len(p.Images))
	copy(images, p.Images)
	p.Images = images
	return p
}

// SessionSnapshot is the canonical full state broadcast on every mutation.
// Full snapshots, not deltas: a client that missed events resyncs from any
// single update.
type SessionSnapshot struct {
	Participants       []models.Participant `json:"participants"`
	ReadyCount         int                  `json:"readyCount"`
	CanStart           bool                 `json:"canStart"`
	Status             string               `json:"status"`
	CurrentRevealIndex int                  `json:"currentRevealIndex"`
}

type SessionSummary struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	ParticipantsCount  int    `json:"participantsCount"`
	CanStart           bool   `json:"canStart"`
	CurrentRevealIndex int    `json:"currentRevealIndex"`
}

type JoinResult struct {
	Snapshot    *SessionSnapshot
	Participant models.Participant
	Rejoin      bool
}

type StartResult struct {
	CurrentRevealIndex int                  `json:"currentRevealIndex"`
	Participants       []models.Participant `json:"participants"`
	Status             string               `json:"status"`
}

type RevealResult struct {
	CurrentRevealIndex int                  `json:"currentRevealIndex"`
	Participants       []models.Participant `json:"participants"`
}

type ImageUpload struct {
	URL           string `json:"url"`
	CharacterName string `json:"characterName"`
}
