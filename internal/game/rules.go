package game

import (
	"fmt"
	"math"
	"strings"
)

// Difficulty is the difficulty tier of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// AllDifficulties returns every difficulty in ascending order.
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// ParseDifficulty normalizes s, defaulting to medium for unknown values.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// CurveKind selects the enemy scaling formula.
type CurveKind string

const (
	// CurveProgress scales by dungeon progress: 1 + (index/total)*(Factor-1).
	CurveProgress CurveKind = "progress"
	// CurveLinear adds Step per encounter after the first.
	CurveLinear CurveKind = "linear"
	// CurveStepped adds Step every Every encounters.
	CurveStepped CurveKind = "stepped"
)

// ScalingCurve maps an encounter index onto a stat multiplier.
type ScalingCurve struct {
	Kind   CurveKind `mapstructure:"kind" yaml:"kind"`
	Factor float64   `mapstructure:"factor" yaml:"factor"`
	Step   float64   `mapstructure:"step" yaml:"step"`
	Every  int       `mapstructure:"every" yaml:"every"`
}

// Multiplier returns the stat multiplier for index out of total encounters.
// It is monotonic non-decreasing in index and never below 1.
func (c ScalingCurve) Multiplier(index, total int) float64 {
	if index < 1 {
		index = 1
	}
	var m float64
	switch c.Kind {
	case CurveLinear:
		m = 1 + float64(index-1)*math.Max(c.Step, 0)
	case CurveStepped:
		every := c.Every
		if every <= 0 {
			every = 1
		}
		m = 1 + float64((index-1)/every)*math.Max(c.Step, 0)
	default:
		if total <= 0 {
			total = index
		}
		m = 1 + (float64(index)/float64(total))*math.Max(c.Factor-1, 0)
	}
	return math.Max(m, 1)
}

// Scale applies the curve to a base stat, flooring at 1.
func (c ScalingCurve) Scale(base, index, total int) int {
	v := int(float64(base) * c.Multiplier(index, total))
	if v < 1 {
		return 1
	}
	return v
}

// DropPolicy controls how powerups are granted on correct answers.
type DropPolicy struct {
	// Chance is the probability of a drop on each correct answer.
	Chance float64 `mapstructure:"chance" yaml:"chance"`
	// Every grants a powerup on every Nth consecutive correct answer.
	// Zero disables streak drops.
	Every int `mapstructure:"every" yaml:"every"`
}

// Rules is the injected balance configuration for the combat engine.
type Rules struct {
	PlayerMaxHP     int `mapstructure:"player_max_hp" yaml:"player_max_hp"`
	TotalEncounters int `mapstructure:"total_encounters" yaml:"total_encounters"`
	// BossEvery places a mid-boss on every Nth encounter. The final
	// encounter is always a boss. Zero disables mid-bosses.
	BossEvery int `mapstructure:"boss_every" yaml:"boss_every"`

	BaseDamage     int `mapstructure:"base_damage" yaml:"base_damage"`
	ScorePerAnswer int `mapstructure:"score_per_answer" yaml:"score_per_answer"`

	DifficultyMultipliers map[Difficulty]float64 `mapstructure:"difficulty_multipliers" yaml:"difficulty_multipliers"`

	Scaling ScalingCurve `mapstructure:"scaling" yaml:"scaling"`
	Drops   DropPolicy   `mapstructure:"drops" yaml:"drops"`

	// MaxInventory caps the inventory size. Zero means unbounded.
	MaxInventory int `mapstructure:"max_inventory" yaml:"max_inventory"`

	// QuestionBuffer is how many recently served question ids are excluded.
	QuestionBuffer int `mapstructure:"question_buffer" yaml:"question_buffer"`
	// MinQuestionsToStart is the pool size required to create a session.
	MinQuestionsToStart int `mapstructure:"min_questions_to_start" yaml:"min_questions_to_start"`

	// WeakAreaMinAttempts and WeakAreaCutoff drive question weighting.
	WeakAreaMinAttempts int     `mapstructure:"weak_area_min_attempts" yaml:"weak_area_min_attempts"`
	WeakAreaCutoff      float64 `mapstructure:"weak_area_cutoff" yaml:"weak_area_cutoff"`
	WeakTopicBoost      float64 `mapstructure:"weak_topic_boost" yaml:"weak_topic_boost"`
}

// DefaultRules returns the default balance.
func DefaultRules() Rules {
	return Rules{
		PlayerMaxHP:     100,
		TotalEncounters: 5,
		BaseDamage:      20,
		ScorePerAnswer:  10,
		DifficultyMultipliers: map[Difficulty]float64{
			DifficultyEasy:   1.0,
			DifficultyMedium: 1.25,
			DifficultyHard:   1.5,
		},
		Scaling: ScalingCurve{
			Kind:   CurveProgress,
			Factor: 1.5,
		},
		Drops: DropPolicy{
			Chance: 0.25,
		},
		QuestionBuffer:      20,
		MinQuestionsToStart: 10,
		WeakAreaMinAttempts: 5,
		WeakAreaCutoff:      0.6,
		WeakTopicBoost:      2,
	}
}

// DifficultyMultiplier returns the multiplier for d (1 when unset).
func (r Rules) DifficultyMultiplier(d Difficulty) float64 {
	if m, ok := r.DifficultyMultipliers[d]; ok && m > 0 {
		return m
	}
	return 1
}

// IsBossEncounter reports whether index hosts a boss.
func (r Rules) IsBossEncounter(index, total int) bool {
	if index == total {
		return true
	}
	return r.BossEvery > 0 && index%r.BossEvery == 0
}

// Validate checks the rules for values the engine cannot operate with.
func (r Rules) Validate() error {
	switch {
	case r.PlayerMaxHP < 1:
		return fmt.Errorf("player_max_hp must be >= 1, got %d", r.PlayerMaxHP)
	case r.TotalEncounters < 1:
		return fmt.Errorf("total_encounters must be >= 1, got %d", r.TotalEncounters)
	case r.BaseDamage < 1:
		return fmt.Errorf("base_damage must be >= 1, got %d", r.BaseDamage)
	case r.ScorePerAnswer < 1:
		return fmt.Errorf("score_per_answer must be >= 1, got %d", r.ScorePerAnswer)
	case r.BossEvery < 0:
		return fmt.Errorf("boss_every must be >= 0, got %d", r.BossEvery)
	case r.Drops.Chance < 0 || r.Drops.Chance > 1:
		return fmt.Errorf("drops.chance must be within [0,1], got %v", r.Drops.Chance)
	case r.WeakAreaCutoff < 0 || r.WeakAreaCutoff > 1:
		return fmt.Errorf("weak_area_cutoff must be within [0,1], got %v", r.WeakAreaCutoff)
	}
	switch r.Scaling.Kind {
	case CurveProgress, CurveLinear, CurveStepped, "":
	default:
		return fmt.Errorf("unknown scaling kind %q", r.Scaling.Kind)
	}
	for d, m := range r.DifficultyMultipliers {
		if m <= 0 {
			return fmt.Errorf("difficulty multiplier for %s must be > 0, got %v", d, m)
		}
	}
	return nil
}

// RecommendedDifficulty maps dungeon progress onto a preferred question
// difficulty.
func RecommendedDifficulty(index, total int, boss bool) Difficulty {
	if boss {
		return DifficultyHard
	}
	if total <= 0 {
		return DifficultyMedium
	}
	progress := float64(index) / float64(total)
	switch {
	case progress < 0.3:
		return DifficultyEasy
	case progress < 0.7:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}
