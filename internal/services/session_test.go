package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/skogeo/hear-me-out-cake/internal/storage/memory"
)

func newTestService(t *testing.T) (*SessionService, *memory.SessionStore) {
	t.Helper()

	store := memory.NewSessionStore()
	cache := NewSessionCache(store)
	service := NewSessionService(cache, store)

	fixedTime := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixedTime }

	seq := 0
	service.newID = func() string {
		seq++
		return fmt.Sprintf("%08d-0000-0000-0000-000000000000", seq)
	}

	return service, store
}

func createSession(t *testing.T, service *SessionService) string {
	t.Helper()
	session, err := service.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session.ID
}

func TestJoinDistinctUsernamesKeepsOrder(t *testing.T) {
	service, _ := newTestService(t)
	sessionID := createSession(t, service)

	usernames := []string{"alice", "bob", "carol"}
	for i, username := range usernames {
		result, err := service.Join(sessionID, fmt.Sprintf("conn-%d", i), username)
		if err != nil {
			t.Fatalf("join %s: %v", username, err)
		}
		if result.Rejoin {
			t.Fatalf("join %s flagged as rejoin", username)
		}
	}

	summary, err := service.GetSession(sessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if summary.ParticipantsCount != 3 {
		t.Fatalf("expected 3 participants, got %d", summary.ParticipantsCount)
	}

	result, err := service.SetReady(sessionID, "conn-0", true)
	if err != nil {
		t.Fatalf("set ready: %v", err)
	}
	for i, p := range result.Participants {
		if p.Username != usernames[i] {
			t.Fatalf("expected participant %d to be %s, got %s", i, usernames[i], p.Username)
		}
	}
}

func TestRejoinReplacesConnectionNotParticipant(t *testing.T) {
	service, _ := newTestService(t)
	sessionID := createSession(t, service)

	if _, err := service.Join(sessionID, "conn-old", "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.SetReady(sessionID, "conn-old", true); err != nil {
		t.Fatalf("set ready: %v", err)
	}

	result, err := service.Join(sessionID, "conn-new", "alice")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !result.Rejoin {
		t.Fatal("expected rejoin flag")
	}
	if result.Participant.ConnectionID != "conn-new" {
		t.Fatalf("expected connection conn-new, got %s", result.Participant.ConnectionID)
	}
	if len(result.Snapshot.Participants) != 1 {
		t.Fatalf("expected 1 participant after rejoin, got %d", len(result.Snapshot.Participants))
	}

	// Readiness follows the participant to its new connection.
	if result.Snapshot.ReadyCount != 1 {
		t.Fatalf("expected readyCount 1 after rejoin, got %d", result.Snapshot.ReadyCount)
	}
	if _, err := service.SetReady(sessionID, "conn-old", true); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("old connection should no longer resolve, got %v", err)
	}
}

func TestCanStartHoldsAfterEveryMutation(t *testing.T) {
	service, _ := newTestService(t)
	sessionID := createSession(t, service)

	summary, _ := service.GetSession(sessionID)
	if summary.CanStart {
		t.Fatal("empty session must not be startable")
	}

	service.Join(sessionID, "conn-a", "alice")
	service.Join(sessionID, "conn-b", "bob")

	snap, err := service.SetReady(sessionID, "conn-a", true)
	if err != nil {
		t.Fatalf("set ready alice: %v", err)
	}
	if snap.CanStart {
		t.Fatal("canStart must stay false while bob is not ready")
	}

	snap, err = service.SetReady(sessionID, "conn-b", true)
	if err != nil {
		t.Fatalf("set ready bob: %v", err)
	}
	if !snap.CanStart {
		t.Fatal("canStart must be true once everyone is ready")
	}

	snap, err = service.SetReady(sessionID, "conn-a", false)
	if err != nil {
		t.Fatalf("unset ready alice: %v", err)
	}
	if snap.CanStart {
		t.Fatal("canStart must drop immediately when a participant backs out")
	}

	// A new joiner is not ready, so a startable session becomes unstartable.
	service.SetReady(sessionID, "conn-a", true)
	joined, err := service.Join(sessionID, "conn-c", "carol")
	if err != nil {
		t.Fatalf("join carol: %v", err)
	}
	if joined.Snapshot.CanStart {
		t.Fatal("canStart must be false after an unready participant joins")
	}
}

func TestStartSucceedsExactlyOnce(t *testing.T) {
	service, _ := newTestService(t)
	sessionID := createSession(t, service)

	service.Join(sessionID, "conn-a", "alice")

	if _, err := service.Start(sessionID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("start before ready should be invalid, got %v", err)
	}

	service.SetReady(sessionID, "conn-a", true)

	result, err := service.Start(sessionID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.Status != "viewing" {
		t.Fatalf("expected status viewing, got %s", result.Status)
	}
	if result.CurrentRevealIndex != -1 {
		t.Fatalf("expected reveal index -1 after start, got %d", result.CurrentRevealIndex)
	}

	if _, err := service.Start(sessionID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second start must fail with invalid state, got %v", err)
	}
}

func TestRevealVisitsEveryIndexThenExhausts(t *testing.T) {
	service, _ := newTestService(t)
	sessionID := createSession(t, service)

	const n = 4
	for i := 0; i < n; i++ {
		conn := fmt.Sprintf("conn-%d", i)
		service.Join(sessionID, conn, fmt.Sprintf("user-%d", i))
		service.SetReady(sessionID, conn, true)
	}

	if _, err := service.RevealNext(sessionID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("reveal while waiting should be invalid, got %v", err)
	}

	if _, err := service.Start(sessionID); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < n; i++ {
		result, err := service.RevealNext(sessionID)
		if err != nil {
			t.Fatalf("reveal %d: %v", i, err)
		}
		if result.CurrentRevealIndex != i {
			t.Fatalf("expected reveal index %d, got %d", i, result.CurrentRevealIndex)
		}
		if len(result.Participants) != n {
			t.Fatalf("reveal payload must carry the full participant list, got %d", len(result.Participants))
		}
	}

	if _, err := service.RevealNext(sessionID); !errors.Is(err, ErrRevealExhausted) {
		t.Fatalf("reveal past the last participant must exhaust, got %v", err)
	}
}

func TestFacadeScenario(t *testing.T) {
	service, _ := newTestService(t)
	sessionID := createSession(t, service)

	service.Join(sessionID, "conn-alice", "alice")
	service.Join(sessionID, "conn-bob", "bob")
	service.SetReady(sessionID, "conn-alice", true)

	summary, _ := service.GetSession(sessionID)
	if summary.CanStart {
		t.Fatal("canStart must be false while bob is not ready")
	}

	service.SetReady(sessionID, "conn-bob", true)
	summary, _ = service.GetSession(sessionID)
	if !summary.CanStart {
		t.Fatal("canStart must be true once bob is ready")
	}

	if _, err := service.Start(sessionID); err != nil {
		t.Fatalf("start: %v", err)
	}
	summary, _ = service.GetSession(sessionID)
	if summary.Status != "viewing" || summary.CurrentRevealIndex != -1 {
		t.Fatalf("expected viewing/-1, got %s/%d", summary.Status, summary.CurrentRevealIndex)
	}

	result, err := service.RevealNext(sessionID)
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	if result.CurrentRevealIndex != 0 {
		t.Fatalf("expected reveal index 0, got %d", result.CurrentRevealIndex)
	}
}

func TestDisconnectPreservesImagesForReconnect(t *testing.T) {
	service, _ := newTestService(t)
	sessionID := createSession(t, service)

	service.Join(sessionID, "conn-old", "alice")
	service.UploadImages(sessionID, "conn-old", []ImageUpload{
		{URL: "/uploads/a.jpg", CharacterName: "Shrek"},
		{URL: "/uploads/b.jpg", CharacterName: "Gollum"},
	})
	service.SetReady(sessionID, "conn-old", true)

	droppedID, snap, err := service.Disconnect("conn-old")
	if err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if droppedID != sessionID {
		t.Fatalf("disconnect resolved wrong session: %s", droppedID)
	}
	if snap.ReadyCount != 0 || snap.CanStart {
		t.Fatal("disconnect must reset readiness")
	}
	if len(snap.Participants) != 1 {
		t.Fatalf("disconnect must preserve the participant record, got %d", len(snap.Participants))
	}

	result, err := service.Join(sessionID, "conn-new", "alice")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !result.Rejoin {
		t.Fatal("expected rejoin after disconnect")
	}
	if len(result.Snapshot.Participants) != 1 {
		t.Fatalf("participant count must stay 1, got %d", len(result.Snapshot.Participants))
	}
	if result.Participant.Ready {
		t.Fatal("ready must stay false after reconnect")
	}
	if len(result.Participant.Images) != 2 {
		t.Fatalf("expected preserved images, got %d", len(result.Participant.Images))
	}
	if result.Participant.Images[0].CharacterName != "Shrek" {
		t.Fatalf("unexpected first image: %+v", result.Participant.Images[0])
	}
}

func TestDisconnectUnknownConnection(t *testing.T) {
	service, _ := newTestService(t)
	createSession(t, service)

	if _, _, err := service.Disconnect("nope"); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("expected participant not found, got %v", err)
	}
}

func TestLeaveRemovesParticipantAndImages(t *testing.T) {
	service, store := newTestService(t)
	sessionID := createSession(t, service)

	service.Join(sessionID, "conn-a", "alice")
	service.Join(sessionID, "conn-b", "bob")
	service.UploadImages(sessionID, "conn-a", []ImageUpload{{URL: "/uploads/a.jpg"}})

	snap, err := service.Leave(sessionID, "conn-a")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if len(snap.Participants) != 1 || snap.Participants[0].Username != "bob" {
		t.Fatalf("leave must remove the participant record, got %+v", snap.Participants)
	}

	// Unlike disconnect, a fresh join starts over with no images.
	result, err := service.Join(sessionID, "conn-a2", "alice")
	if err != nil {
		t.Fatalf("join again: %v", err)
	}
	if result.Rejoin {
		t.Fatal("join after leave must not be a rejoin")
	}
	if len(result.Participant.Images) != 0 {
		t.Fatalf("images must be gone after leave, got %d", len(result.Participant.Images))
	}

	stored, err := store.Load(sessionID)
	if err != nil {
		t.Fatalf("load from store: %v", err)
	}
	for _, p := range stored.Participants {
		if p.Username == "alice" && len(p.Images) != 0 {
			t.Fatal("store must not retain images of a departed participant")
		}
	}
}

func TestSetReadyRequiresParticipant(t *testing.T) {
	service, _ := newTestService(t)
	sessionID := createSession(t, service)

	if _, err := service.SetReady(sessionID, "conn-x", true); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("expected participant not found, got %v", err)
	}
}

func TestSetReadyWithoutImagesIsAccepted(t *testing.T) {
	// "at least one image" is a client-side convenience check only.
	service, _ := newTestService(t)
	sessionID := createSession(t, service)

	service.Join(sessionID, "conn-a", "alice")
	snap, err := service.SetReady(sessionID, "conn-a", true)
	if err != nil {
		t.Fatalf("set ready with no images: %v", err)
	}
	if snap.ReadyCount != 1 || !snap.CanStart {
		t.Fatalf("expected ready accepted, got readyCount=%d canStart=%v", snap.ReadyCount, snap.CanStart)
	}
}

func TestUploadImagesReplacesWholeList(t *testing.T) {
	service, _ := newTestService(t)
	sessionID := createSession(t, service)

	service.Join(sessionID, "conn-a", "alice")
	service.UploadImages(sessionID, "conn-a", []ImageUpload{
		{URL: "/uploads/a.jpg"},
		{URL: "/uploads/b.jpg"},
	})

	snap, err := service.UploadImages(sessionID, "conn-a", []ImageUpload{
		{URL: "/uploads/c.jpg", CharacterName: "Batman"},
	})
	if err != nil {
		t.Fatalf("upload images: %v", err)
	}

	images := snap.Participants[0].Images
	if len(images) != 1 {
		t.Fatalf("expected last-write-wins list of 1, got %d", len(images))
	}
	if images[0].URL != "/uploads/c.jpg" || images[0].CharacterName != "Batman" {
		t.Fatalf("unexpected image: %+v", images[0])
	}
}

func TestJoinUnknownSession(t *testing.T) {
	service, _ := newTestService(t)

	if _, err := service.Join("missing", "conn-a", "alice"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestWriteThroughSurvivesColdRestart(t *testing.T) {
	service, store := newTestService(t)
	sessionID := createSession(t, service)

	service.Join(sessionID, "conn-a", "alice")
	service.SetReady(sessionID, "conn-a", true)
	service.Start(sessionID)
	service.RevealNext(sessionID)

	// A fresh cache over the same store hydrates the aggregate cold.
	rebooted := NewSessionService(NewSessionCache(store), store)
	summary, err := rebooted.GetSession(sessionID)
	if err != nil {
		t.Fatalf("get after restart: %v", err)
	}
	if summary.Status != "viewing" || summary.CurrentRevealIndex != 0 || summary.ParticipantsCount != 1 {
		t.Fatalf("unexpected rehydrated state: %+v", summary)
	}
}
