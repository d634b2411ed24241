package services

import (
	"errors"
	"testing"
	"time"

	"github.com/skogeo/hear-me-out-cake/internal/models"
	"github.com/skogeo/hear-me-out-cake/internal/storage"
	"github.com/skogeo/hear-me-out-cake/internal/storage/memory"
)

func TestSweepRemovesExpiredSessions(t *testing.T) {
	store := memory.NewSessionStore()
	cache := NewSessionCache(store)

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	old := &models.Session{ID: "old00000", CreatedAt: now.Add(-25 * time.Hour)}
	fresh := &models.Session{ID: "fresh000", CreatedAt: now.Add(-1 * time.Hour)}
	store.Save(old)
	store.Save(fresh)
	cache.Put(old)
	cache.Put(fresh)

	cleanup := NewCleanupService(store, cache, 24*time.Hour, time.Hour)
	cleanup.Sweep(now)

	if _, err := store.Load("old00000"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expired session should be deleted from store, got %v", err)
	}
	if _, err := store.Load("fresh000"); err != nil {
		t.Fatalf("fresh session should survive the sweep: %v", err)
	}

	if err := cache.With("old00000", func(*models.Session) error { return nil }); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session should be evicted from cache, got %v", err)
	}
}

func TestCleanupStartStop(t *testing.T) {
	store := memory.NewSessionStore()
	cache := NewSessionCache(store)

	cleanup := NewCleanupService(store, cache, 24*time.Hour, time.Hour)
	cleanup.Start()
	cleanup.Stop()
}
