package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// EffectKind identifies the kind of effect a powerup applies.
type EffectKind string

const (
	EffectHeal        EffectKind = "heal"
	EffectShield      EffectKind = "shield"
	EffectDamageBoost EffectKind = "damage_boost"
	EffectScoreBoost  EffectKind = "score_boost"
)

// AllEffectKinds returns every effect kind in display order.
func AllEffectKinds() []EffectKind {
	return []EffectKind{EffectHeal, EffectShield, EffectDamageBoost, EffectScoreBoost}
}

// UnmarshalYAML rejects unknown effect kinds at load time.
func (k *EffectKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	kind := EffectKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case EffectHeal, EffectShield, EffectDamageBoost, EffectScoreBoost:
		*k = kind
		return nil
	}
	return fmt.Errorf("line %d: unknown effect kind %q", node.Line, s)
}

// Effect is the closed set of powerup effects. Implementations are Heal,
// Shield, DamageBoost and ScoreBoost.
type Effect interface {
	Kind() EffectKind
	effect()
}

// Heal restores up to Amount hit points, never above the maximum.
type Heal struct{ Amount int }

// Shield adds Amount points of damage absorption.
type Shield struct{ Amount int }

// DamageBoost multiplies the damage of the next answer.
type DamageBoost struct{ Multiplier float64 }

// ScoreBoost multiplies the score of the next answer.
type ScoreBoost struct{ Multiplier float64 }

func (Heal) Kind() EffectKind        { return EffectHeal }
func (Shield) Kind() EffectKind      { return EffectShield }
func (DamageBoost) Kind() EffectKind { return EffectDamageBoost }
func (ScoreBoost) Kind() EffectKind  { return EffectScoreBoost }

func (Heal) effect()        {}
func (Shield) effect()      {}
func (DamageBoost) effect() {}
func (ScoreBoost) effect()  {}

func newEffect(kind EffectKind, magnitude float64) (Effect, error) {
	switch kind {
	case EffectHeal:
		return Heal{Amount: int(magnitude)}, nil
	case EffectShield:
		return Shield{Amount: int(magnitude)}, nil
	case EffectDamageBoost:
		return DamageBoost{Multiplier: magnitude}, nil
	case EffectScoreBoost:
		return ScoreBoost{Multiplier: magnitude}, nil
	}
	return nil, fmt.Errorf("unknown effect kind %q", kind)
}

// Describe returns a short human-readable description of e.
func Describe(e Effect) string {
	switch e := e.(type) {
	case Heal:
		return fmt.Sprintf("Restore %d HP", e.Amount)
	case Shield:
		return fmt.Sprintf("Absorb the next %d damage", e.Amount)
	case DamageBoost:
		return fmt.Sprintf("x%g damage on the next answer", e.Multiplier)
	case ScoreBoost:
		return fmt.Sprintf("x%g score on the next answer", e.Multiplier)
	default:
		return ""
	}
}
