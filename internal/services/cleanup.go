package services

import (
	"log"
	"time"

	"github.com/skogeo/hear-me-out-cake/internal/storage"
)

// CleanupService reaps sessions older than maxAge. Sessions are never
// deleted by users; this sweep is the only way they go away.
type CleanupService struct {
	store    storage.SessionStore
	cache    *SessionCache
	maxAge   time.Duration
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewCleanupService(store storage.SessionStore, cache *SessionCache, maxAge, interval time.Duration) *CleanupService {
	return &CleanupService{
		store:    store,
		cache:    cache,
		maxAge:   maxAge,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *CleanupService) Start() {
	go s.run()
}

func (s *CleanupService) Stop() {
	close(s.stop)
	<-s.done
}

func (s *CleanupService) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(time.Now())
		case <-s.stop:
			return
		}
	}
}

// Sweep removes sessions created before now-maxAge from the store and
// evicts them from the cache.
func (s *CleanupService) Sweep(now time.Time) {
	cutoff := now.Add(-s.maxAge)

	evicted := s.cache.EvictOlderThan(cutoff)
	deleted, err := s.store.DeleteOlderThan(cutoff)
	if err != nil {
		log.Printf("cleanup: delete old sessions: %v", err)
		return
	}
	if deleted > 0 || evicted > 0 {
		log.Printf("cleanup: removed %d stored and %d cached sessions older than %s", deleted, evicted, s.maxAge)
	}
}
