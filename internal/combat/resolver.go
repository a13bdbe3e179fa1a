// Package combat resolves a submitted answer against the active encounter.
package combat

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/abhisek/quizdungeon/internal/encounter"
	"github.com/abhisek/quizdungeon/internal/game"
	"github.com/abhisek/quizdungeon/internal/powerup"
	"github.com/abhisek/quizdungeon/internal/questions"
	"github.com/abhisek/quizdungeon/internal/stats"
)

// Recorder receives the statistics produced by a resolution.
type Recorder interface {
	Record(ctx context.Context, key stats.Key, a stats.Attempt) error
	RecordGame(ctx context.Context, key stats.Key, g stats.GameOutcome) error
}

// AnswerResult is the outcome of one resolved answer.
type AnswerResult struct {
	Correct        bool             `json:"correct"`
	DamageDealt    int              `json:"damage_dealt"`
	DamageReceived int              `json:"damage_received"`
	ShieldAbsorbed int              `json:"shield_absorbed"`
	ScoreGained    int              `json:"score_gained"`
	Score          int              `json:"score"`
	Player         game.PlayerState `json:"player"`
	Enemy          *game.EnemyState `json:"enemy,omitempty"`
	DefeatedEnemy  *game.EnemyState `json:"defeated_enemy,omitempty"`
	PowerupGranted string           `json:"powerup_granted,omitempty"`
	EnemyDefeated  bool             `json:"enemy_defeated"`
	GameWon        bool             `json:"game_won"`
	PlayerDied     bool             `json:"player_died"`
	EncounterIndex int              `json:"encounter_index"`
	Status         game.Status      `json:"status"`
	CorrectAnswer  string           `json:"correct_answer"`
	Explanation    string           `json:"explanation,omitempty"`
	Topic          string           `json:"topic"`
	Difficulty     game.Difficulty  `json:"difficulty"`
	Boosts         game.Boosts      `json:"boosts_applied"`
}

// Resolver applies combat rules. It is safe for concurrent use across
// sessions; callers serialize access to a single session.
type Resolver struct {
	rules      game.Rules
	encounters *encounter.Controller
	powerups   *powerup.System

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRand sets the random source used for powerup drops.
func WithRand(rng *rand.Rand) Option {
	return func(r *Resolver) { r.rng = rng }
}

// WithClock sets the clock used for elapsed time.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a Resolver.
func NewResolver(rules game.Rules, enc *encounter.Controller, pw *powerup.System, opts ...Option) *Resolver {
	r := &Resolver{
		rules:      rules,
		encounters: enc,
		powerups:   pw,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:        time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Rules returns the rules the resolver applies.
func (r *Resolver) Rules() game.Rules {
	return r.rules
}

// ResolveAnswer applies answer to s, which must be serving q. A failed
// precondition leaves s untouched; any later error may leave s partially
// updated, so callers resolve against a clone.
func (r *Resolver) ResolveAnswer(ctx context.Context, s *game.GameSession, q *questions.Record, answer string, rec Recorder) (*AnswerResult, error) {
	if s.Status != game.StatusActive {
		return nil, fmt.Errorf("answer on %s session: %w", s.Status, game.ErrInvalidSessionState)
	}
	if s.Enemy == nil {
		return nil, fmt.Errorf("answer without an enemy: %w", game.ErrInvalidSessionState)
	}
	if q == nil || s.ActiveQuestionID == "" || q.ID != s.ActiveQuestionID {
		return nil, game.ErrStaleQuestion
	}

	now := r.now().UTC()
	boosts := s.Boosts
	res := &AnswerResult{
		Correct:       q.CheckAnswer(answer),
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Topic:         q.Topic,
		Difficulty:    q.Difficulty,
		Boosts:        boosts,
	}

	s.QuestionsAnswered++
	if res.Correct {
		if err := r.hit(s, q, boosts, res); err != nil {
			return nil, err
		}
	} else {
		r.miss(s, q, res)
	}

	enemyHP := s.Enemy.HP
	if enemyHP == 0 {
		res.EnemyDefeated = true
		defeated := *s.Enemy
		res.DefeatedEnemy = &defeated
		bonus := int(math.Round(float64(defeated.ScoreValue) * boosts.ScoreMultiplier()))
		s.Player.Score += bonus
		res.ScoreGained += bonus
		if err := r.encounters.Advance(s); err != nil {
			return nil, err
		}
		res.GameWon = s.Status == game.StatusWon
	} else if s.Player.HP == 0 {
		res.PlayerDied = true
		s.Status = game.StatusLost
	}

	key := stats.Key{PlayerID: s.PlayerID, MaterialID: s.MaterialID}
	elapsed := 0.0
	if !s.QuestionServedAt.IsZero() {
		elapsed = max(now.Sub(s.QuestionServedAt).Seconds(), 0)
	}
	attempt := stats.Attempt{
		SessionID:      s.ID,
		QuestionID:     q.ID,
		Topic:          q.Topic,
		Difficulty:     q.Difficulty,
		Answer:         answer,
		Correct:        res.Correct,
		ElapsedSeconds: elapsed,
		AnsweredAt:     now,
	}
	if err := rec.Record(ctx, key, attempt); err != nil {
		return nil, err
	}
	if s.Status.Terminated() {
		outcome := stats.GameOutcome{
			SessionID:       s.ID,
			Status:          s.Status,
			Score:           s.Player.Score,
			EncounterIndex:  s.EncounterIndex,
			EnemiesDefeated: enemiesDefeated(s),
			FinishedAt:      now,
		}
		if err := rec.RecordGame(ctx, key, outcome); err != nil {
			return nil, err
		}
	}

	s.ActiveQuestionID = ""
	s.QuestionServedAt = time.Time{}
	s.Boosts = game.Boosts{}
	s.UpdatedAt = now

	res.Score = s.Player.Score
	res.Player = s.Player
	res.EncounterIndex = s.EncounterIndex
	res.Status = s.Status
	if s.Enemy != nil {
		e := *s.Enemy
		res.Enemy = &e
	}
	return res, nil
}

func (r *Resolver) hit(s *game.GameSession, q *questions.Record, boosts game.Boosts, res *AnswerResult) error {
	mult := r.rules.DifficultyMultiplier(q.Difficulty)

	dmg := max(1, int(math.Round(float64(r.rules.BaseDamage)*mult*boosts.DamageMultiplier())))
	dealt := min(dmg, s.Enemy.HP)
	s.Enemy.HP -= dealt
	res.DamageDealt = dealt

	gain := max(1, int(math.Round(float64(r.rules.ScorePerAnswer)*mult*boosts.ScoreMultiplier())))
	s.Player.Score += gain
	res.ScoreGained = gain

	s.QuestionsCorrect++
	s.CorrectStreak++
	s.ClearReview(q.ID)

	r.mu.Lock()
	id, err := r.powerups.MaybeDrop(s, r.rules.Drops, r.rng)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("powerup drop: %w", err)
	}
	res.PowerupGranted = id
	return nil
}

func (r *Resolver) miss(s *game.GameSession, q *questions.Record, res *AnswerResult) {
	incoming := s.Enemy.Damage
	absorbed := min(s.Player.Shield, incoming)
	s.Player.Shield -= absorbed
	taken := min(incoming-absorbed, s.Player.HP)
	s.Player.HP -= taken

	res.ShieldAbsorbed = absorbed
	res.DamageReceived = taken
	s.CorrectStreak = 0
	s.QueueReview(q.ID)
}

// enemiesDefeated counts the encounters cleared so far.
func enemiesDefeated(s *game.GameSession) int {
	if s.Status == game.StatusWon {
		return s.TotalEncounters
	}
	return max(s.EncounterIndex-1, 0)
}
