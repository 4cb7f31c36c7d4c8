package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"triage-assistant/internal/adapter/memory"
	"triage-assistant/internal/domain"
)

type failingStore struct {
	memory.Store
	err error
}

func (f *failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f *failingStore) Set(context.Context, string, []byte) error   { return f.err }

func newTestMemory(maxTurns int) *Memory {
	return NewMemory(memory.NewStore(time.Hour), maxTurns)
}

func TestAppendBoundsTurns(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(20)

	for i := 1; i <= 25; i++ {
		if _, err := m.Append(ctx, "s1", domain.RoleUser, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	turns, err := m.Snapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(turns) != 20 {
		t.Fatalf("expected 20 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		want := fmt.Sprintf("message %d", i+6)
		if turn.Content != want {
			t.Fatalf("turn %d: got %q, want %q", i, turn.Content, want)
		}
		if turn.Sequence != int64(i+6) {
			t.Fatalf("turn %d: got sequence %d, want %d", i, turn.Sequence, i+6)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(5)
	_, _ = m.Append(ctx, "s1", domain.RoleUser, "bonjour")

	snap, _ := m.Snapshot(ctx, "s1")
	snap[0].Content = "changed"

	again, _ := m.Snapshot(ctx, "s1")
	if again[0].Content != "bonjour" {
		t.Fatalf("snapshot mutation leaked: %q", again[0].Content)
	}
}

func TestResetEmptiesSession(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(5)
	_, _ = m.Append(ctx, "s1", domain.RoleUser, "bonjour")
	_, _ = m.Append(ctx, "s2", domain.RoleUser, "salut")

	if err := m.Reset(ctx, "s1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := m.Reset(ctx, "unknown"); err != nil {
		t.Fatalf("reset of unknown session: %v", err)
	}

	turns, _ := m.Snapshot(ctx, "s1")
	if len(turns) != 0 {
		t.Fatalf("expected empty session, got %d turns", len(turns))
	}
	other, _ := m.Snapshot(ctx, "s2")
	if len(other) != 1 {
		t.Fatalf("reset touched another session: %d turns", len(other))
	}

	turn, _ := m.Append(ctx, "s1", domain.RoleUser, "encore")
	if turn.Sequence != 1 {
		t.Fatalf("expected sequence to restart at 1, got %d", turn.Sequence)
	}
}

func TestConcurrentAppendsKeepOrder(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = m.Append(ctx, "shared", domain.RoleUser, fmt.Sprintf("m%d", i))
			_, _ = m.Append(ctx, fmt.Sprintf("own-%d", i), domain.RoleUser, "x")
		}(i)
	}
	wg.Wait()

	turns, _ := m.Snapshot(ctx, "shared")
	if len(turns) != 50 {
		t.Fatalf("expected 50 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		if turn.Sequence != int64(i+1) {
			t.Fatalf("turn %d has sequence %d", i, turn.Sequence)
		}
	}
	if n := m.locks.size(); n != 0 {
		t.Fatalf("expected keyed locks to be released, %d left", n)
	}
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	m := NewMemory(&failingStore{err: boom}, 5)

	if _, err := m.Append(context.Background(), "s1", domain.RoleUser, "x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if _, err := m.Snapshot(context.Background(), "s1"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
