package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"triage-assistant/internal/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(time.Hour)

	if _, err := s.Get(ctx, "a"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	value := []byte(`[{"role":"user"}]`)
	if err := s.Set(ctx, "a", value); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[0] = 'x'

	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"role":"user"}]` {
		t.Fatalf("store kept a reference to the caller's slice: %s", got)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(10 * time.Minute)
	s.now = func() time.Time { return now }

	_ = s.Set(ctx, "old", []byte("1"))
	now = now.Add(5 * time.Minute)
	_ = s.Set(ctx, "new", []byte("2"))
	now = now.Add(6 * time.Minute)

	if _, err := s.Get(ctx, "old"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected old session expired, got %v", err)
	}
	if _, err := s.Get(ctx, "new"); err != nil {
		t.Fatalf("expected new session alive, got %v", err)
	}

	now = now.Add(20 * time.Minute)
	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept session, got %d", removed)
	}
}
