// Package powerup manages the learner's powerup inventory and applies
// powerup effects to session state.
package powerup

import (
	"fmt"
	"slices"

	"github.com/abhisek/quizdungeon/internal/catalog"
	"github.com/abhisek/quizdungeon/internal/game"
)

// UseResult describes the outcome of consuming one powerup.
type UseResult struct {
	Powerup   catalog.Powerup  `json:"powerup"`
	Healed    int              `json:"healed"`
	ShieldAdd int              `json:"shield_added"`
	Boosts    game.Boosts      `json:"boosts"`
	Player    game.PlayerState `json:"player"`
	Inventory []string         `json:"inventory"`
}

// System applies inventory and effect rules.
type System struct {
	catalog      *catalog.Catalog
	maxInventory int
}

// NewSystem creates a System. maxInventory of 0 means unbounded.
func NewSystem(cat *catalog.Catalog, maxInventory int) *System {
	return &System{catalog: cat, maxInventory: maxInventory}
}

// Catalog returns the catalog the system resolves ids against.
func (sys *System) Catalog() *catalog.Catalog {
	return sys.catalog
}

// Grant adds one instance of id to the inventory. It reports false without
// error when the inventory is full.
func (sys *System) Grant(s *game.GameSession, id string) (bool, error) {
	if _, ok := sys.catalog.Powerup(id); !ok {
		return false, fmt.Errorf("grant %q: %w", id, game.ErrUnknownPowerup)
	}
	if sys.maxInventory > 0 && len(s.Inventory) >= sys.maxInventory {
		return false, nil
	}
	s.Inventory = append(s.Inventory, id)
	return true, nil
}

// Use consumes one instance of id and applies its effect.
func (sys *System) Use(s *game.GameSession, id string) (*UseResult, error) {
	if s.Status.Terminated() {
		return nil, fmt.Errorf("use powerup on %s session: %w", s.Status, game.ErrInvalidSessionState)
	}
	idx := slices.Index(s.Inventory, id)
	if idx < 0 {
		return nil, fmt.Errorf("use %q: %w", id, game.ErrPowerupNotOwned)
	}
	def, ok := sys.catalog.Powerup(id)
	if !ok {
		return nil, fmt.Errorf("use %q: %w", id, game.ErrUnknownPowerup)
	}

	res := &UseResult{Powerup: def}
	if err := apply(s, def.Effect(), res); err != nil {
		return nil, fmt.Errorf("use %q: %w", id, err)
	}
	s.Inventory = slices.Delete(s.Inventory, idx, idx+1)

	res.Boosts = s.Boosts
	res.Player = s.Player
	res.Inventory = slices.Clone(s.Inventory)
	return res, nil
}

func apply(s *game.GameSession, eff catalog.Effect, res *UseResult) error {
	switch e := eff.(type) {
	case catalog.Heal:
		before := s.Player.HP
		s.Player.HP = min(s.Player.MaxHP, s.Player.HP+e.Amount)
		res.Healed = s.Player.HP - before
	case catalog.Shield:
		s.Player.Shield += e.Amount
		res.ShieldAdd = e.Amount
	case catalog.DamageBoost:
		s.Boosts.Damage = s.Boosts.DamageMultiplier() * e.Multiplier
	case catalog.ScoreBoost:
		s.Boosts.Score = s.Boosts.ScoreMultiplier() * e.Multiplier
	default:
		return fmt.Errorf("unsupported effect %T", eff)
	}
	return nil
}
