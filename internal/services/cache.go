package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/skogeo/hear-me-out-cake/internal/models"
	"github.com/skogeo/hear-me-out-cake/internal/storage"
)

type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
}

// SessionCache owns the live session aggregates. A cached aggregate is the
// single source of truth for its session: the store is written through on
// every mutation but never read back while the entry is cached, so an
// in-flight mutation can never race a stale reload. All work against one
// session runs under that session's entry lock; different sessions proceed
// concurrently.
type SessionCache struct {
	mu      sync.Mutex
	store   storage.SessionStore
	entries map[string]*sessionEntry
}

func NewSessionCache(store storage.SessionStore) *SessionCache {
	return &SessionCache{
		store:   store,
		entries: make(map[string]*sessionEntry),
	}
}

// Put caches a freshly created aggregate.
func (c *SessionCache) Put(session *models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[session.ID] = &sessionEntry{session: session}
}

// With runs fn against the session aggregate under its lock, hydrating from
// the store on a cold miss. A session absent from cache and store yields
// ErrSessionNotFound. fn must not retain the aggregate past its return.
func (c *SessionCache) With(id string, fn func(session *models.Session) error) error {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if !ok {
		entry = &sessionEntry{}
		c.entries[id] = entry
	}
	c.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.session == nil {
		session, err := c.store.Load(id)
		if err != nil {
			c.evict(id, entry)
			if errors.Is(err, storage.ErrNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("hydrate session %s: %w", id, err)
		}
		entry.session = session
	}

	return fn(entry.session)
}

// Each visits every hydrated session, one at a time under its lock, until fn
// returns false.
func (c *SessionCache) Each(fn func(session *models.Session) bool) {
	c.mu.Lock()
	entries := make([]*sessionEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	c.mu.Unlock()

	for _, entry := range entries {
		entry.mu.Lock()
		session := entry.session
		keepGoing := true
		if session != nil {
			keepGoing = fn(session)
		}
		entry.mu.Unlock()
		if !keepGoing {
			return
		}
	}
}

// Remove drops the session from the cache. The store copy is untouched.
func (c *SessionCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// EvictOlderThan drops cached sessions created before cutoff and returns how
// many were evicted.
func (c *SessionCache) EvictOlderThan(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, entry := range c.entries {
		if entry.session != nil && entry.session.CreatedAt.Before(cutoff) {
			delete(c.entries, id)
			evicted++
		}
	}
	return evicted
}

// evict removes an entry only if it is still the one we created, so a
// concurrent Put is not clobbered.
func (c *SessionCache) evict(id string, entry *sessionEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.entries[id]; ok && current == entry {
		delete(c.entries, id)
	}
}
