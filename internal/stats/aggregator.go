// Package stats tracks per-topic performance across a learner's history and
// derives weak areas from it.
package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Aggregator serializes statistic updates over a Repo and computes derived
// views. Record calls for any key are serialized so concurrent sessions
// cannot break Correct <= Attempts.
type Aggregator struct {
	mu   sync.Mutex
	repo Repo
}

// NewAggregator creates an Aggregator backed by repo.
func NewAggregator(repo Repo) *Aggregator {
	return &Aggregator{repo: repo}
}

// Record upserts the topic and overall statistics for one answer.
func (a *Aggregator) Record(ctx context.Context, key Key, at Attempt) error {
	if at.ElapsedSeconds < 0 {
		at.ElapsedSeconds = 0
	}
	at.Topic = strings.TrimSpace(at.Topic)
	if at.Topic == "" {
		at.Topic = "General"
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.repo.RecordAttempt(ctx, key, at); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// RecordGame records a finished game.
func (a *Aggregator) RecordGame(ctx context.Context, key Key, g GameOutcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.repo.RecordGame(ctx, key, g); err != nil {
		return fmt.Errorf("record game: %w", err)
	}
	return nil
}

// Topics returns every topic stat, strongest first.
func (a *Aggregator) Topics(ctx context.Context, key Key) ([]TopicStat, error) {
	topics, err := a.repo.Topics(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	sort.SliceStable(topics, func(i, j int) bool {
		ai, aj := topics[i].Accuracy(), topics[j].Accuracy()
		if ai != aj {
			return ai > aj
		}
		return topics[i].Topic < topics[j].Topic
	})
	return topics, nil
}

// Overall returns a point-in-time snapshot of the overall statistics.
func (a *Aggregator) Overall(ctx context.Context, key Key) (OverallStats, error) {
	o, err := a.repo.Overall(ctx, key)
	if err != nil {
		return OverallStats{}, fmt.Errorf("load overall stats: %w", err)
	}
	return o, nil
}

// WeakAreas returns topics with at least minAttempts attempts and accuracy
// below cutoff, weakest first.
func (a *Aggregator) WeakAreas(ctx context.Context, key Key, minAttempts int, cutoff float64) ([]TopicStat, error) {
	topics, err := a.repo.Topics(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	return WeakAreas(topics, minAttempts, cutoff), nil
}

// WeakAccuracies returns the accuracy of every weak area keyed by topic.
func (a *Aggregator) WeakAccuracies(ctx context.Context, key Key, minAttempts int, cutoff float64) (map[string]float64, error) {
	weak, err := a.WeakAreas(ctx, key, minAttempts, cutoff)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(weak))
	for _, t := range weak {
		out[t.Topic] = t.Accuracy()
	}
	return out, nil
}

// Recent returns up to limit recent attempts, newest first.
func (a *Aggregator) Recent(ctx context.Context, key Key, limit int) ([]Attempt, error) {
	return a.repo.RecentAttempts(ctx, key, limit)
}

// Reset deletes every statistic for key.
func (a *Aggregator) Reset(ctx context.Context, key Key) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.repo.Reset(ctx, key)
}

// WeakAreas filters topics to those with enough signal and accuracy below
// cutoff. Topics under minAttempts are excluded regardless of accuracy.
// Ties on accuracy rank the topic with more attempts first, then by name.
func WeakAreas(topics []TopicStat, minAttempts int, cutoff float64) []TopicStat {
	var weak []TopicStat
	for _, t := range topics {
		if t.Attempts < minAttempts || t.Attempts == 0 {
			continue
		}
		if t.Accuracy() < cutoff {
			weak = append(weak, t)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		ai, aj := weak[i].Accuracy(), weak[j].Accuracy()
		if ai != aj {
			return ai < aj
		}
		if weak[i].Attempts != weak[j].Attempts {
			return weak[i].Attempts > weak[j].Attempts
		}
		return weak[i].Topic < weak[j].Topic
	})
	return weak
}
