package roomcache

import (
	"context"
	"slices"
	"sync"
	"time"
)

type entry struct {
	expiresAt time.Time
	players   []string
}

// Memory is an in-process Cache with lazy expiry.
type Memory struct {
	mu    sync.Mutex
	now   func() time.Time
	codes map[string]*entry
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an empty cache. A nil clock uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{now: now, codes: make(map[string]*entry)}
}

// live returns the entry for code, dropping it once expired. Callers hold mu.
func (m *Memory) live(code string) *entry {
	e, ok := m.codes[code]
	if !ok {
		return nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.codes, code)
		return nil
	}
	return e
}

func (m *Memory) Exists(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(code) != nil, nil
}

func (m *Memory) CreateRoomCode(ctx context.Context, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[code] = &entry{expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) UpdateTTL(ctx context.Context, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.live(code); e != nil {
		e.expiresAt = m.now().Add(ttl)
	}
	return nil
}

func (m *Memory) AddPlayer(ctx context.Context, code, playerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(code)
	if e == nil || slices.Contains(e.players, playerID) {
		return nil
	}
	e.players = append(e.players, playerID)
	return nil
}

func (m *Memory) Players(ctx context.Context, code string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(code)
	if e == nil {
		return []string{}, nil
	}
	return slices.Clone(e.players), nil
}

func (m *Memory) DeleteRoom(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, code)
	return nil
}
