package powerup

import (
	"math/rand/v2"

	"github.com/abhisek/quizdungeon/internal/game"
)

// MaybeDrop applies the drop policy after a correct answer and grants the
// chosen powerup. It returns the granted id, or "" when nothing dropped.
// s.CorrectStreak must already count the current answer.
func (sys *System) MaybeDrop(s *game.GameSession, policy game.DropPolicy, rng *rand.Rand) (string, error) {
	drop := policy.Every > 0 && s.CorrectStreak > 0 && s.CorrectStreak%policy.Every == 0
	if !drop && policy.Chance > 0 {
		drop = rng.Float64() < policy.Chance
	}
	if !drop {
		return "", nil
	}

	id := sys.pick(rng)
	if id == "" {
		return "", nil
	}
	granted, err := sys.Grant(s, id)
	if err != nil || !granted {
		return "", err
	}
	return id, nil
}

// pick selects a powerup id weighted by drop weight.
func (sys *System) pick(rng *rand.Rand) string {
	defs := sys.catalog.Powerups()
	total := 0.0
	for _, p := range defs {
		total += p.DropWeight
	}
	if total <= 0 {
		return ""
	}
	r := rng.Float64() * total
	for _, p := range defs {
		if p.DropWeight <= 0 {
			continue
		}
		if r < p.DropWeight {
			return p.ID
		}
		r -= p.DropWeight
	}
	// Float rounding can leave r just above the last bucket.
	for i := len(defs) - 1; i >= 0; i-- {
		if defs[i].DropWeight > 0 {
			return defs[i].ID
		}
	}
	return ""
}
