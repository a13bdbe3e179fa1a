package session

import (
	"context"
	"errors"

	"github.com/abhisek/quizdungeon/internal/stats"
)

// pendingStats buffers the statistics of one resolution until the session
// write is acknowledged.
type pendingStats struct {
	key      stats.Key
	attempts []stats.Attempt
	games    []stats.GameOutcome
}

func (p *pendingStats) Record(_ context.Context, key stats.Key, a stats.Attempt) error {
	p.key = key
	p.attempts = append(p.attempts, a)
	return nil
}

func (p *pendingStats) RecordGame(_ context.Context, key stats.Key, g stats.GameOutcome) error {
	p.key = key
	p.games = append(p.games, g)
	return nil
}

func (p *pendingStats) flush(ctx context.Context, agg *stats.Aggregator) error {
	var errs []error
	for _, a := range p.attempts {
		errs = append(errs, agg.Record(ctx, p.key, a))
	}
	for _, g := range p.games {
		errs = append(errs, agg.RecordGame(ctx, p.key, g))
	}
	return errors.Join(errs...)
}
