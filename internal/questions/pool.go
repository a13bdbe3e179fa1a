// Package questions defines the question pool contract, the topic-weighted
// selection policy, and question file import.
package questions

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/abhisek/quizdungeon/internal/game"
)

// Query describes which question the session wants next.
type Query struct {
	MaterialID string
	// Weights biases selection by topic. Unlisted topics weigh 1.
	Weights map[string]float64
	// Exclude holds ids that must not be returned.
	Exclude map[string]bool
	// Difficulty is a preference; it is dropped when no candidate matches.
	Difficulty game.Difficulty
}

// Pool supplies question records. NextQuestion returns game.ErrPoolExhausted
// when no question is eligible.
type Pool interface {
	NextQuestion(ctx context.Context, q Query) (*Record, error)
	Question(ctx context.Context, id string) (*Record, error)
	Count(ctx context.Context, materialID string) (int, error)
}

// Importer stores decoded question records, replacing existing ids.
type Importer interface {
	Import(ctx context.Context, records []*Record) (int, error)
}

// MemoryPool is an in-process Pool. It is safe for concurrent use.
type MemoryPool struct {
	mu      sync.RWMutex
	records map[string]*Record
	rng     *rand.Rand
}

// NewMemoryPool creates a pool holding records. A nil rng uses a random seed.
func NewMemoryPool(rng *rand.Rand, records ...*Record) *MemoryPool {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	p := &MemoryPool{records: make(map[string]*Record), rng: rng}
	p.Add(records...)
	return p
}

// Add stores records, replacing any with the same id.
func (p *MemoryPool) Add(records ...*Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range records {
		c := *r
		c.Options = append([]string(nil), r.Options...)
		c.Normalize()
		p.records[c.ID] = &c
	}
}

// Import implements Importer.
func (p *MemoryPool) Import(_ context.Context, records []*Record) (int, error) {
	p.Add(records...)
	return len(records), nil
}

func (p *MemoryPool) NextQuestion(_ context.Context, q Query) (*Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var candidates []*Record
	for _, r := range p.records {
		if r.MaterialID == q.MaterialID {
			candidates = append(candidates, r)
		}
	}
	// Map iteration order is random; sort so a seeded rng is reproducible.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	r := Pick(candidates, q, p.rng)
	if r == nil {
		return nil, game.ErrPoolExhausted
	}
	c := *r
	return &c, nil
}

func (p *MemoryPool) Question(_ context.Context, id string) (*Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.records[id]
	if !ok {
		return nil, game.ErrQuestionNotFound
	}
	c := *r
	return &c, nil
}

func (p *MemoryPool) Count(_ context.Context, materialID string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, r := range p.records {
		if r.MaterialID == materialID {
			n++
		}
	}
	return n, nil
}
