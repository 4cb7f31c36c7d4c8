// Package conversation keeps the bounded, per-session list of turns that is
// handed to the generative provider as context.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"triage-assistant/internal/domain"
)

const DefaultMaxTurns = 20

type Memory struct {
	store    domain.SessionStore
	maxTurns int
	locks    *keyedMutex
	now      func() time.Time
}

func NewMemory(store domain.SessionStore, maxTurns int) *Memory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Memory{
		store:    store,
		maxTurns: maxTurns,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

func (m *Memory) MaxTurns() int {
	return m.maxTurns
}

// Append stores a new turn for key, evicting the oldest turns once more than
// MaxTurns are held.
func (m *Memory) Append(ctx context.Context, key, role, content string) (domain.Turn, error) {
	unlock := m.locks.Lock(key)
	defer unlock()

	turns, err := m.load(ctx, key)
	if err != nil {
		return domain.Turn{}, err
	}

	turn := domain.Turn{
		Role:      role,
		Content:   content,
		Sequence:  1,
		Timestamp: m.now(),
	}
	if n := len(turns); n > 0 {
		turn.Sequence = turns[n-1].Sequence + 1
	}

	turns = append(turns, turn)
	if extra := len(turns) - m.maxTurns; extra > 0 {
		turns = turns[extra:]
	}

	if err := m.save(ctx, key, turns); err != nil {
		return domain.Turn{}, err
	}
	return turn, nil
}

// Snapshot returns a copy of the turns held for key, oldest first. Unknown
// keys yield an empty slice.
func (m *Memory) Snapshot(ctx context.Context, key string) ([]domain.Turn, error) {
	turns, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(turns) > m.maxTurns {
		turns = turns[len(turns)-m.maxTurns:]
	}
	return append([]domain.Turn(nil), turns...), nil
}

func (m *Memory) Reset(ctx context.Context, key string) error {
	unlock := m.locks.Lock(key)
	defer unlock()

	if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("reset session: %w", err)
	}
	return nil
}

func (m *Memory) load(ctx context.Context, key string) ([]domain.Turn, error) {
	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var turns []domain.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return turns, nil
}

func (m *Memory) save(ctx context.Context, key string, turns []domain.Turn) error {
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
