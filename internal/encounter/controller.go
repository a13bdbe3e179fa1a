// Package encounter decides enemy composition and advances a session through
// its dungeon.
package encounter

import (
	"fmt"

	"github.com/abhisek/quizdungeon/internal/catalog"
	"github.com/abhisek/quizdungeon/internal/game"
)

// Controller builds enemies and advances the encounter counter.
type Controller struct {
	rules   game.Rules
	regular []catalog.EnemyTemplate
	bosses  []catalog.EnemyTemplate
}

// NewController creates a Controller over the catalog's enemy templates.
func NewController(rules game.Rules, cat *catalog.Catalog) *Controller {
	return &Controller{
		rules:   rules,
		regular: cat.Regular(),
		bosses:  cat.Bosses(),
	}
}

// Rules returns the rules the controller scales with.
func (c *Controller) Rules() game.Rules {
	return c.rules
}

// StartEncounter replaces s.Enemy with the enemy of s.EncounterIndex.
func (c *Controller) StartEncounter(s *game.GameSession) (*game.EnemyState, error) {
	if s.Status.Terminated() {
		return nil, fmt.Errorf("start encounter on %s session: %w", s.Status, game.ErrInvalidSessionState)
	}
	if s.EncounterIndex < 1 || s.EncounterIndex > s.TotalEncounters {
		return nil, fmt.Errorf("encounter %d out of range 1..%d: %w",
			s.EncounterIndex, s.TotalEncounters, game.ErrInvalidSessionState)
	}

	enemy := c.EnemyFor(s.EncounterIndex, s.TotalEncounters)
	s.Enemy = &enemy
	return s.Enemy, nil
}

// EnemyFor returns the scaled enemy for an encounter index.
func (c *Controller) EnemyFor(index, total int) game.EnemyState {
	boss := c.rules.IsBossEncounter(index, total)

	var tmpl catalog.EnemyTemplate
	if boss {
		tmpl = c.bosses[(index-1)%len(c.bosses)]
	} else {
		tmpl = c.regular[templateSlot(index, total, len(c.regular))]
	}

	curve := c.rules.Scaling
	hp := curve.Scale(tmpl.HP, index, total)
	return game.EnemyState{
		TemplateID: tmpl.ID,
		Name:       tmpl.Name,
		Icon:       tmpl.Icon,
		HP:         hp,
		MaxHP:      hp,
		Damage:     curve.Scale(tmpl.Damage, index, total),
		ScoreValue: curve.Scale(tmpl.Score, index, total),
		Tier:       tmpl.Tier,
		IsBoss:     boss,
	}
}

// templateSlot maps index proportionally onto n tier-ordered templates so
// early encounters draw early templates.
func templateSlot(index, total, n int) int {
	if total <= 1 || n <= 1 {
		return 0
	}
	slot := (index - 1) * n / total
	return min(max(slot, 0), n-1)
}

// Advance moves s to its next encounter. Moving past the final encounter
// wins the session and clears the enemy.
func (c *Controller) Advance(s *game.GameSession) error {
	if s.Status.Terminated() {
		return fmt.Errorf("advance %s session: %w", s.Status, game.ErrInvalidSessionState)
	}

	s.EncounterIndex++
	if s.EncounterIndex > s.TotalEncounters {
		s.Status = game.StatusWon
		s.Enemy = nil
		s.ActiveQuestionID = ""
		return nil
	}

	_, err := c.StartEncounter(s)
	return err
}
