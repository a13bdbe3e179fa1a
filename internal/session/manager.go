// Package session owns the lifecycle of game sessions: creation, question
// serving, answer submission, powerups, saves and abandonment. Every
// mutation runs against a clone under a per-session lock and becomes
// visible only once the Store acknowledges it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/quizdungeon/internal/catalog"
	"github.com/abhisek/quizdungeon/internal/combat"
	"github.com/abhisek/quizdungeon/internal/encounter"
	"github.com/abhisek/quizdungeon/internal/game"
	"github.com/abhisek/quizdungeon/internal/powerup"
	"github.com/abhisek/quizdungeon/internal/questions"
	"github.com/abhisek/quizdungeon/internal/stats"
)

// recentActivityLimit bounds the answer history included in exports.
const recentActivityLimit = 20

// Deps are the collaborators of a Manager.
type Deps struct {
	Rules   game.Rules
	Catalog *catalog.Catalog
	Pool    questions.Pool
	Store   Store
	Saves   SaveStore
	Stats   *stats.Aggregator
	Logger  *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRand sets the random source used for powerup drops.
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) { m.rng = rng }
}

// WithIDGenerator sets how session and save ids are generated.
func WithIDGenerator(f func() string) Option {
	return func(m *Manager) { m.newID = f }
}

// engine is the rules-dependent part of a Manager, swapped on reload.
type engine struct {
	rules      game.Rules
	encounters *encounter.Controller
	powerups   *powerup.System
	resolver   *combat.Resolver
}

// Manager is the entry point for all session operations.
type Manager struct {
	catalog *catalog.Catalog
	pool    questions.Pool
	store   Store
	saves   SaveStore
	stats   *stats.Aggregator
	logger  *zap.Logger

	now   func() time.Time
	rng   *rand.Rand
	newID func() string
	locks *keyedMutex

	mu  sync.RWMutex
	eng *engine
}

// NewManager creates a Manager. Rules are validated.
func NewManager(d Deps, opts ...Option) (*Manager, error) {
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Pool == nil || d.Store == nil || d.Saves == nil || d.Stats == nil {
		return nil, errors.New("session manager requires a pool, a store, a save store and a stats aggregator")
	}
	m := &Manager{
		catalog: d.Catalog,
		pool:    d.Pool,
		store:   d.Store,
		saves:   d.Saves,
		stats:   d.Stats,
		logger:  d.Logger,
		now:     time.Now,
		newID:   uuid.NewString,
		locks:   newKeyedMutex(),
	}
	for _, o := range opts {
		o(m)
	}
	if err := m.SetRules(d.Rules); err != nil {
		return nil, err
	}
	return m, nil
}

// SetRules validates and installs new rules. Sessions keep the encounter
// count and max HP they were created with; every other rule applies to
// the next operation.
func (m *Manager) SetRules(rules game.Rules) error {
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	enc := encounter.NewController(rules, m.catalog)
	pw := powerup.NewSystem(m.catalog, rules.MaxInventory)
	opts := []combat.Option{combat.WithClock(m.now)}
	if m.rng != nil {
		opts = append(opts, combat.WithRand(m.rng))
	}
	eng := &engine{
		rules:      rules,
		encounters: enc,
		powerups:   pw,
		resolver:   combat.NewResolver(rules, enc, pw, opts...),
	}

	m.mu.Lock()
	m.eng = eng
	m.mu.Unlock()
	m.logger.Info("rules installed",
		zap.Int("total_encounters", rules.TotalEncounters),
		zap.Int("player_max_hp", rules.PlayerMaxHP))
	return nil
}

// Rules returns the rules in effect.
func (m *Manager) Rules() game.Rules {
	return m.engine().rules
}

func (m *Manager) engine() *engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.eng
}

// Catalog returns the powerup catalog.
func (m *Manager) Catalog() []catalog.Powerup {
	return m.catalog.Powerups()
}

func pairKey(playerID, materialID string) string {
	return "pair:" + playerID + "\x00" + materialID
}

func sessionKey(id string) string {
	return "session:" + id
}

func requireIDs(ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("empty id: %w", game.ErrInvalidArgument)
		}
	}
	return nil
}

// Create starts a new session for the pair. It fails with
// game.ErrAlreadyActive while another session for the pair is active.
func (m *Manager) Create(ctx context.Context, playerID, materialID string) (*game.GameSession, error) {
	if err := requireIDs(playerID, materialID); err != nil {
		return nil, err
	}
	unlock := m.locks.Lock(pairKey(playerID, materialID))
	defer unlock()

	active, err := m.store.Active(ctx, playerID, materialID)
	if err != nil {
		return nil, fmt.Errorf("check active session: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("player %s material %s has session %s: %w",
			playerID, materialID, active.ID, game.ErrAlreadyActive)
	}

	eng := m.engine()
	n, err := m.pool.Count(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if n < eng.rules.MinQuestionsToStart {
		return nil, fmt.Errorf("material %s has %d questions, need %d: %w",
			materialID, n, eng.rules.MinQuestionsToStart, game.ErrNotEnoughQuestions)
	}

	now := m.now().UTC()
	s := &game.GameSession{
		ID:         m.newID(),
		PlayerID:   playerID,
		MaterialID: materialID,
		Player: game.PlayerState{
			HP:    eng.rules.PlayerMaxHP,
			MaxHP: eng.rules.PlayerMaxHP,
		},
		EncounterIndex:  1,
		TotalEncounters: eng.rules.TotalEncounters,
		Inventory:       []string{},
		Status:          game.StatusActive,
		StartedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	if _, err := eng.encounters.StartEncounter(s); err != nil {
		return nil, err
	}
	if err := m.store.Store(ctx, s); err != nil {
		return nil, fmt.Errorf("store new session: %w", err)
	}

	m.logger.Info("session created",
		zap.String("session_id", s.ID),
		zap.String("player_id", playerID),
		zap.String("material_id", materialID),
		zap.String("enemy", s.Enemy.Name))
	return s.Clone(), nil
}

// Status returns the active session for the pair, or nil when none.
func (m *Manager) Status(ctx context.Context, playerID, materialID string) (*game.GameSession, error) {
	if err := requireIDs(playerID, materialID); err != nil {
		return nil, err
	}
	s, err := m.store.Active(ctx, playerID, materialID)
	if err != nil {
		return nil, fmt.Errorf("load active session: %w", err)
	}
	return s, nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(ctx context.Context, id string) (*game.GameSession, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	return m.store.Load(ctx, id)
}

// mutate loads the session under its lock, applies fn to a clone and stores
// the clone. Nothing is stored when fn fails.
func (m *Manager) mutate(ctx context.Context, id string, fn func(s *game.GameSession, eng *engine) error) (*game.GameSession, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	unlock := m.locks.Lock(sessionKey(id))
	defer unlock()

	current, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := fn(next, m.engine()); err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	next.UpdatedAt = m.now().UTC()
	if err := m.store.Store(ctx, next); err != nil {
		return nil, fmt.Errorf("store session %s: %w", id, err)
	}
	return next, nil
}

// NextQuestion serves the next question. While a question is active it is
// returned again. Weak topics are favoured, recently served questions are
// skipped, and once the pool is exhausted the review queue is recycled.
func (m *Manager) NextQuestion(ctx context.Context, id string) (*questions.Prompt, error) {
	var prompt *questions.Prompt
	_, err := m.mutate(ctx, id, func(s *game.GameSession, eng *engine) error {
		if s.Status != game.StatusActive {
			return fmt.Errorf("next question on %s session: %w", s.Status, game.ErrInvalidSessionState)
		}
		if s.ActiveQuestionID != "" {
			q, err := m.pool.Question(ctx, s.ActiveQuestionID)
			if err != nil {
				return fmt.Errorf("reload active question: %w", err)
			}
			prompt = q.Prompt()
			prompt.Review = slices.Contains(s.ReviewQueue, q.ID)
			return errUnchanged
		}

		q, review, err := m.pick(ctx, s, eng)
		if err != nil {
			return err
		}
		s.ActiveQuestionID = q.ID
		s.QuestionServedAt = m.now().UTC()
		s.RememberQuestion(q.ID, eng.rules.QuestionBuffer)
		prompt = q.Prompt()
		prompt.Review = review
		return nil
	})
	if errors.Is(err, errUnchanged) {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return prompt, nil
}

// errUnchanged aborts a mutation without storing anything.
var errUnchanged = errors.New("unchanged")

func (m *Manager) pick(ctx context.Context, s *game.GameSession, eng *engine) (*questions.Record, bool, error) {
	key := stats.Key{PlayerID: s.PlayerID, MaterialID: s.MaterialID}
	weak, err := m.stats.WeakAccuracies(ctx, key, eng.rules.WeakAreaMinAttempts, eng.rules.WeakAreaCutoff)
	if err != nil {
		m.logger.Warn("weak area lookup failed", zap.String("session_id", s.ID), zap.Error(err))
		weak = nil
	}
	exclude := make(map[string]bool, len(s.RecentQuestionIDs))
	for _, qid := range s.RecentQuestionIDs {
		exclude[qid] = true
	}
	boss := s.Enemy != nil && s.Enemy.IsBoss
	query := questions.Query{
		MaterialID: s.MaterialID,
		Weights:    questions.WeightsFromAccuracy(weak, eng.rules.WeakTopicBoost),
		Exclude:    exclude,
		Difficulty: game.RecommendedDifficulty(s.EncounterIndex, s.TotalEncounters, boss),
	}

	q, err := m.pool.NextQuestion(ctx, query)
	if err == nil {
		return q, false, nil
	}
	if !errors.Is(err, game.ErrPoolExhausted) {
		return nil, false, fmt.Errorf("next question: %w", err)
	}

	for len(s.ReviewQueue) > 0 {
		qid := s.ReviewQueue[0]
		// Rotate so repeated exhaustion cycles through the queue.
		s.ReviewQueue = append(s.ReviewQueue[1:], qid)
		q, err := m.pool.Question(ctx, qid)
		if err == nil {
			m.logger.Debug("serving review question", zap.String("session_id", s.ID), zap.String("question_id", qid))
			return q, true, nil
		}
		if !errors.Is(err, game.ErrQuestionNotFound) {
			return nil, false, fmt.Errorf("load review question: %w", err)
		}
		s.ClearReview(qid)
	}

	// Recent questions may repeat once the window covers the whole material.
	query.Exclude = nil
	q, err = m.pool.NextQuestion(ctx, query)
	switch {
	case err == nil:
		return q, false, nil
	case errors.Is(err, game.ErrPoolExhausted):
		return nil, false, fmt.Errorf("material %s: %w", s.MaterialID, err)
	default:
		return nil, false, fmt.Errorf("next question: %w", err)
	}
}

// SubmitAnswer resolves answer for questionID. Statistics are recorded
// only after the session write succeeds.
func (m *Manager) SubmitAnswer(ctx context.Context, id, questionID, answer string) (*combat.AnswerResult, error) {
	if err := requireIDs(questionID); err != nil {
		return nil, err
	}
	pending := &pendingStats{}
	var res *combat.AnswerResult
	s, err := m.mutate(ctx, id, func(s *game.GameSession, eng *engine) error {
		if s.Status != game.StatusActive {
			return fmt.Errorf("answer on %s session: %w", s.Status, game.ErrInvalidSessionState)
		}
		if s.ActiveQuestionID == "" || s.ActiveQuestionID != questionID {
			return fmt.Errorf("question %s is not active: %w", questionID, game.ErrStaleQuestion)
		}
		q, err := m.pool.Question(ctx, questionID)
		if err != nil {
			return fmt.Errorf("load question: %w", err)
		}
		res, err = eng.resolver.ResolveAnswer(ctx, s, q, answer, pending)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := pending.flush(ctx, m.stats); err != nil {
		m.logger.Error("record answer statistics",
			zap.String("session_id", id), zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("session_id", id),
		zap.String("question_id", questionID),
		zap.Bool("correct", res.Correct),
		zap.Int("encounter", s.EncounterIndex),
	}
	switch {
	case res.GameWon:
		m.logger.Info("session won", append(fields, zap.Int("score", s.Player.Score))...)
	case res.PlayerDied:
		m.logger.Info("session lost", append(fields, zap.Int("score", s.Player.Score))...)
	case res.EnemyDefeated:
		m.logger.Info("enemy defeated", append(fields, zap.String("enemy", res.DefeatedEnemy.Name))...)
	default:
		m.logger.Debug("answer resolved", fields...)
	}
	return res, nil
}

// UsePowerup consumes one powerup from the inventory.
func (m *Manager) UsePowerup(ctx context.Context, id, powerupID string) (*powerup.UseResult, error) {
	if err := requireIDs(powerupID); err != nil {
		return nil, err
	}
	var res *powerup.UseResult
	_, err := m.mutate(ctx, id, func(s *game.GameSession, eng *engine) error {
		var err error
		res, err = eng.powerups.Use(s, powerupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.logger.Debug("powerup used", zap.String("session_id", id), zap.String("powerup", powerupID))
	return res, nil
}

// Abandon ends an active session without a win or a loss.
func (m *Manager) Abandon(ctx context.Context, id string) (*game.GameSession, error) {
	s, err := m.mutate(ctx, id, func(s *game.GameSession, _ *engine) error {
		if s.Status != game.StatusActive {
			return fmt.Errorf("abandon %s session: %w", s.Status, game.ErrInvalidSessionState)
		}
		s.Status = game.StatusAbandoned
		s.ActiveQuestionID = ""
		s.QuestionServedAt = time.Time{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	key := stats.Key{PlayerID: s.PlayerID, MaterialID: s.MaterialID}
	outcome := stats.GameOutcome{
		SessionID:       s.ID,
		Status:          s.Status,
		Score:           s.Player.Score,
		EncounterIndex:  s.EncounterIndex,
		EnemiesDefeated: max(s.EncounterIndex-1, 0),
		FinishedAt:      s.UpdatedAt,
	}
	if err := m.stats.RecordGame(ctx, key, outcome); err != nil {
		m.logger.Error("record abandoned game", zap.String("session_id", id), zap.Error(err))
	}
	m.logger.Info("session abandoned", zap.String("session_id", id))
	return s.Clone(), nil
}

// Save stores a labelled snapshot of an active session.
func (m *Manager) Save(ctx context.Context, id, label string) (*SaveSlot, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	unlock := m.locks.Lock(sessionKey(id))
	defer unlock()

	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != game.StatusActive {
		return nil, fmt.Errorf("save %s session: %w", s.Status, game.ErrInvalidSessionState)
	}
	now := m.now().UTC()
	label = strings.TrimSpace(label)
	if label == "" {
		label = fmt.Sprintf("Encounter %d/%d - %s", s.EncounterIndex, s.TotalEncounters, now.Format("2006-01-02 15:04"))
	}
	slot := &SaveSlot{
		ID:         m.newID(),
		PlayerID:   s.PlayerID,
		MaterialID: s.MaterialID,
		SessionID:  s.ID,
		Label:      label,
		Session:    s,
		CreatedAt:  now,
	}
	if err := m.saves.CreateSave(ctx, slot); err != nil {
		return nil, fmt.Errorf("create save: %w", err)
	}
	m.logger.Info("session saved", zap.String("session_id", id), zap.String("save_id", slot.ID))
	return slot, nil
}

// LoadSave resumes a save as the active session of its pair. It fails with
// game.ErrAlreadyActive when a different session of the pair is active.
func (m *Manager) LoadSave(ctx context.Context, saveID string) (*game.GameSession, error) {
	if err := requireIDs(saveID); err != nil {
		return nil, err
	}
	slot, err := m.saves.LoadSave(ctx, saveID)
	if err != nil {
		return nil, err
	}

	unlockPair := m.locks.Lock(pairKey(slot.PlayerID, slot.MaterialID))
	defer unlockPair()
	unlock := m.locks.Lock(sessionKey(slot.SessionID))
	defer unlock()

	active, err := m.store.Active(ctx, slot.PlayerID, slot.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("check active session: %w", err)
	}
	if active != nil && active.ID != slot.SessionID {
		return nil, fmt.Errorf("player %s material %s has session %s: %w",
			slot.PlayerID, slot.MaterialID, active.ID, game.ErrAlreadyActive)
	}

	var version int64
	current, err := m.store.Load(ctx, slot.SessionID)
	switch {
	case err == nil:
		version = current.Version
	case errors.Is(err, game.ErrSessionNotFound):
	default:
		return nil, err
	}

	s := slot.Session.Clone()
	s.Status = game.StatusActive
	s.Version = version + 1
	s.UpdatedAt = m.now().UTC()
	if err := m.store.Store(ctx, s); err != nil {
		return nil, fmt.Errorf("restore session %s: %w", s.ID, err)
	}
	m.logger.Info("save loaded", zap.String("session_id", s.ID), zap.String("save_id", saveID))
	return s.Clone(), nil
}

// ListSaves returns the saves for the pair, newest first.
func (m *Manager) ListSaves(ctx context.Context, playerID, materialID string) ([]SaveSlot, error) {
	if err := requireIDs(playerID, materialID); err != nil {
		return nil, err
	}
	return m.saves.ListSaves(ctx, playerID, materialID)
}

// DeleteSave removes a save.
func (m *Manager) DeleteSave(ctx context.Context, saveID string) error {
	if err := requireIDs(saveID); err != nil {
		return err
	}
	return m.saves.DeleteSave(ctx, saveID)
}

// Report builds the statistics report for the pair.
func (m *Manager) Report(ctx context.Context, playerID, materialID string) (*stats.Report, error) {
	if err := requireIDs(playerID, materialID); err != nil {
		return nil, err
	}
	rules := m.Rules()
	return m.stats.BuildReport(ctx, stats.Key{PlayerID: playerID, MaterialID: materialID}, stats.ReportOptions{
		MinAttempts: rules.WeakAreaMinAttempts,
		Cutoff:      rules.WeakAreaCutoff,
		RecentLimit: recentActivityLimit,
		Now:         m.now().UTC(),
	})
}

// ExportStats writes the pair's report to w in format.
func (m *Manager) ExportStats(ctx context.Context, w io.Writer, playerID, materialID string, format stats.Format) error {
	r, err := m.Report(ctx, playerID, materialID)
	if err != nil {
		return err
	}
	return stats.Export(w, r, format)
}

// ResetStats deletes the pair's statistics.
func (m *Manager) ResetStats(ctx context.Context, playerID, materialID string) error {
	if err := requireIDs(playerID, materialID); err != nil {
		return err
	}
	m.logger.Info("statistics reset", zap.String("player_id", playerID), zap.String("material_id", materialID))
	return m.stats.Reset(ctx, stats.Key{PlayerID: playerID, MaterialID: materialID})
}
