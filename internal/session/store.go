package session

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/abhisek/quizdungeon/internal/game"
)

// Store persists sessions. Store must be atomic per session and reject a
// write whose Version is not exactly one above the stored Version (or 1
// for a new session) with game.ErrVersionConflict.
type Store interface {
	Load(ctx context.Context, id string) (*game.GameSession, error)
	Store(ctx context.Context, s *game.GameSession) error
	// Active returns the non-terminated session for the pair, or nil.
	Active(ctx context.Context, playerID, materialID string) (*game.GameSession, error)
}

// SaveSlot is a labelled snapshot of a session.
type SaveSlot struct {
	ID         string            `json:"id"`
	PlayerID   string            `json:"player_id"`
	MaterialID string            `json:"material_id"`
	SessionID  string            `json:"session_id"`
	Label      string            `json:"label"`
	Session    *game.GameSession `json:"session"`
	CreatedAt  time.Time         `json:"created_at"`
}

// SaveStore persists save slots.
type SaveStore interface {
	CreateSave(ctx context.Context, slot *SaveSlot) error
	LoadSave(ctx context.Context, id string) (*SaveSlot, error)
	// ListSaves returns slots newest first.
	ListSaves(ctx context.Context, playerID, materialID string) ([]SaveSlot, error)
	DeleteSave(ctx context.Context, id string) error
}

// MemoryStore is an in-process Store and SaveStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*game.GameSession
	saves    map[string]*SaveSlot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*game.GameSession),
		saves:    make(map[string]*SaveSlot),
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*game.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", id, game.ErrSessionNotFound)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Store(_ context.Context, s *game.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	if prev, ok := m.sessions[s.ID]; ok {
		current = prev.Version
	}
	if s.Version != current+1 {
		return fmt.Errorf("store %s at version %d over %d: %w", s.ID, s.Version, current, game.ErrVersionConflict)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) Active(_ context.Context, playerID, materialID string) (*game.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.PlayerID == playerID && s.MaterialID == materialID && s.Status == game.StatusActive {
			return s.Clone(), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) CreateSave(_ context.Context, slot *SaveSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *slot
	c.Session = slot.Session.Clone()
	m.saves[slot.ID] = &c
	return nil
}

func (m *MemoryStore) LoadSave(_ context.Context, id string) (*SaveSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.saves[id]
	if !ok {
		return nil, fmt.Errorf("load save %s: %w", id, game.ErrSaveNotFound)
	}
	c := *slot
	c.Session = slot.Session.Clone()
	return &c, nil
}

func (m *MemoryStore) ListSaves(_ context.Context, playerID, materialID string) ([]SaveSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []SaveSlot
	for _, slot := range m.saves {
		if slot.PlayerID == playerID && slot.MaterialID == materialID {
			c := *slot
			c.Session = slot.Session.Clone()
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b SaveSlot) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *MemoryStore) DeleteSave(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.saves[id]; !ok {
		return fmt.Errorf("delete save %s: %w", id, game.ErrSaveNotFound)
	}
	delete(m.saves, id)
	return nil
}
