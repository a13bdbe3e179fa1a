package stats

import (
	"context"
	"slices"
	"sync"
)

type memoryEntry struct {
	topics  map[string]*TopicStat
	overall OverallStats
	history []Attempt
}

// MemoryRepo is an in-process Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	entries map[Key]*memoryEntry
}

// NewMemoryRepo creates an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entries: make(map[Key]*memoryEntry)}
}

func (m *MemoryRepo) entry(key Key) *memoryEntry {
	e, ok := m.entries[key]
	if !ok {
		e = &memoryEntry{topics: make(map[string]*TopicStat)}
		m.entries[key] = e
	}
	return e
}

func (m *MemoryRepo) RecordAttempt(_ context.Context, key Key, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(key)
	ts, ok := e.topics[a.Topic]
	if !ok {
		ts = &TopicStat{Topic: a.Topic}
		e.topics[a.Topic] = ts
	}
	ts.Attempts++
	ts.TimeSeconds += a.ElapsedSeconds
	e.overall.TotalAnswers++
	e.overall.TotalTimeSeconds += a.ElapsedSeconds
	if a.Correct {
		ts.Correct++
		e.overall.CorrectAnswers++
	}
	e.history = append(e.history, a)
	return nil
}

func (m *MemoryRepo) RecordGame(_ context.Context, key Key, g GameOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(key)
	e.overall.GamesPlayed++
	e.overall.TotalScore += g.Score
	if g.Completed() {
		e.overall.CompletedGames++
	}
	return nil
}

func (m *MemoryRepo) Topics(_ context.Context, key Key) ([]TopicStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]TopicStat, 0, len(e.topics))
	for _, t := range e.topics {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b TopicStat) int {
		switch {
		case a.Topic < b.Topic:
			return -1
		case a.Topic > b.Topic:
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *MemoryRepo) Overall(_ context.Context, key Key) (OverallStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[key]; ok {
		return e.overall, nil
	}
	return OverallStats{}, nil
}

func (m *MemoryRepo) RecentAttempts(_ context.Context, key Key, limit int) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	out := slices.Clone(e.history)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepo) Reset(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
