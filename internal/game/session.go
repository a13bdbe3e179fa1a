package game

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a GameSession.
type Status string

const (
	StatusActive    Status = "active"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusAbandoned Status = "abandoned"
)

// Terminated reports whether no further mutation is allowed.
func (s Status) Terminated() bool {
	return s != StatusActive
}

// PlayerState holds the learner's combat stats.
type PlayerState struct {
	HP     int `json:"hp"`
	MaxHP  int `json:"max_hp"`
	Shield int `json:"shield"`
	Score  int `json:"score"`
}

// EnemyState is the opponent of the current encounter.
type EnemyState struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	HP         int    `json:"hp"`
	MaxHP      int    `json:"max_hp"`
	Damage     int    `json:"damage"`
	ScoreValue int    `json:"score_value"`
	Tier       int    `json:"tier"`
	IsBoss     bool   `json:"is_boss"`
}

// Boosts holds pending multipliers granted by powerups. A zero value means
// no boost is pending. Boosts are consumed by the next answer resolution.
type Boosts struct {
	Damage float64 `json:"damage,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

// DamageMultiplier returns the pending damage multiplier (1 when none).
func (b Boosts) DamageMultiplier() float64 {
	if b.Damage <= 0 {
		return 1
	}
	return b.Damage
}

// ScoreMultiplier returns the pending score multiplier (1 when none).
func (b Boosts) ScoreMultiplier() float64 {
	if b.Score <= 0 {
		return 1
	}
	return b.Score
}

// Active reports whether any boost is pending.
func (b Boosts) Active() bool {
	return b.Damage > 0 || b.Score > 0
}

// GameSession is one learner's run through one material's dungeon.
type GameSession struct {
	ID         string `json:"id"`
	PlayerID   string `json:"player_id"`
	MaterialID string `json:"material_id"`

	Player PlayerState `json:"player"`
	Enemy  *EnemyState `json:"enemy,omitempty"`

	// EncounterIndex is 1-based. It reaches TotalEncounters+1 only when the
	// session is won.
	EncounterIndex  int `json:"encounter_index"`
	TotalEncounters int `json:"total_encounters"`

	// Inventory is a multiset of powerup ids.
	Inventory []string `json:"inventory"`
	Boosts    Boosts   `json:"boosts"`

	ActiveQuestionID  string    `json:"active_question_id,omitempty"`
	QuestionServedAt  time.Time `json:"question_served_at"`
	RecentQuestionIDs []string  `json:"recent_question_ids"`
	ReviewQueue       []string  `json:"review_queue"`

	Status            Status `json:"status"`
	QuestionsAnswered int    `json:"questions_answered"`
	QuestionsCorrect  int    `json:"questions_correct"`
	CorrectStreak     int    `json:"correct_streak"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version increases by one on every persisted mutation.
	Version int64 `json:"version"`
}

// Clone returns a deep copy of the session.
func (s *GameSession) Clone() *GameSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.Enemy != nil {
		e := *s.Enemy
		c.Enemy = &e
	}
	c.Inventory = slices.Clone(s.Inventory)
	c.RecentQuestionIDs = slices.Clone(s.RecentQuestionIDs)
	c.ReviewQueue = slices.Clone(s.ReviewQueue)
	return &c
}

// Accuracy returns the in-session fraction of correct answers (0 when none).
func (s *GameSession) Accuracy() float64 {
	if s.QuestionsAnswered == 0 {
		return 0
	}
	return float64(s.QuestionsCorrect) / float64(s.QuestionsAnswered)
}

// Owns reports whether the inventory holds at least one instance of id.
func (s *GameSession) Owns(powerupID string) bool {
	return slices.Contains(s.Inventory, powerupID)
}

// InventoryCounts groups the inventory by powerup id.
func (s *GameSession) InventoryCounts() map[string]int {
	counts := make(map[string]int, len(s.Inventory))
	for _, id := range s.Inventory {
		counts[id]++
	}
	return counts
}

// IsFinalEncounter reports whether the current encounter is the last one.
func (s *GameSession) IsFinalEncounter() bool {
	return s.EncounterIndex == s.TotalEncounters
}

// Progress returns the fraction of the dungeon reached, in (0, 1].
func (s *GameSession) Progress() float64 {
	if s.TotalEncounters <= 0 {
		return 0
	}
	p := float64(s.EncounterIndex) / float64(s.TotalEncounters)
	if p > 1 {
		p = 1
	}
	return p
}

// RememberQuestion pushes id onto the recent window, keeping at most limit ids.
func (s *GameSession) RememberQuestion(id string, limit int) {
	if limit <= 0 {
		return
	}
	s.RecentQuestionIDs = append(s.RecentQuestionIDs, id)
	if n := len(s.RecentQuestionIDs); n > limit {
		s.RecentQuestionIDs = slices.Clone(s.RecentQuestionIDs[n-limit:])
	}
}

// QueueReview adds id to the review queue if absent.
func (s *GameSession) QueueReview(id string) {
	if !slices.Contains(s.ReviewQueue, id) {
		s.ReviewQueue = append(s.ReviewQueue, id)
	}
}

// ClearReview removes id from the review queue.
func (s *GameSession) ClearReview(id string) {
	s.ReviewQueue = slices.DeleteFunc(s.ReviewQueue, func(q string) bool { return q == id })
}
