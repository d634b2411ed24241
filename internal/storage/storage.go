// Package storage defines the persistence boundary for session aggregates.
// The in-memory cache in services is the authority while a session is live;
// stores only see cold loads and write-through saves of the whole aggregate.
package storage

import (
	"errors"
	"time"

	"github.com/skogeo/hear-me-out-cake/internal/models"
)

var ErrNotFound = errors.New("not found")

type SessionStore interface {
	// Load returns the full aggregate (participants and their images, in
	// join order) or ErrNotFound.
	Load(id string) (*models.Session, error)

	// Save upserts the whole aggregate. Participants absent from the
	// given session are removed from the store.
	Save(session *models.Session) error

	Delete(id string) error

	// DeleteOlderThan removes sessions created before cutoff and returns
	// how many were deleted.
	DeleteOlderThan(cutoff time.Time) (int64, error)
}
