// Package catalog holds the read-only reference data of the game: powerup
// definitions and enemy templates. It is loaded once per process.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Powerup is the static definition of one powerup kind.
type Powerup struct {
	ID         string     `yaml:"id" json:"id"`
	Name       string     `yaml:"name" json:"name"`
	Icon       string     `yaml:"icon" json:"icon"`
	Kind       EffectKind `yaml:"effect" json:"effect"`
	Magnitude  float64    `yaml:"magnitude" json:"magnitude"`
	DropWeight float64    `yaml:"drop_weight" json:"drop_weight"`

	effect Effect
}

// Effect returns the typed effect of the powerup.
func (p Powerup) Effect() Effect {
	return p.effect
}

// Description returns a human-readable summary of the effect.
func (p Powerup) Description() string {
	return Describe(p.effect)
}

// EnemyTemplate is the unscaled definition of an enemy.
type EnemyTemplate struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Icon   string `yaml:"icon"`
	HP     int    `yaml:"hp"`
	Damage int    `yaml:"damage"`
	Score  int    `yaml:"score"`
	Tier   int    `yaml:"tier"`
}

// Catalog is the immutable set of powerups and enemy templates.
type Catalog struct {
	powerups []Powerup
	byID     map[string]Powerup
	enemies  []EnemyTemplate
	bosses   []EnemyTemplate
}

type catalogFile struct {
	Powerups []Powerup      `yaml:"powerups"`
	Enemies  []EnemyTemplate `yaml:"enemies"`
	Bosses   []EnemyTemplate `yaml:"bosses"`
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog. It panics if the embedded data is
// invalid, which only a broken build can cause.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load(bytes.NewReader(defaultCatalog))
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("catalog: embedded catalog invalid: %v", defaultErr))
	}
	return defaultCat
}

// Load parses and validates a catalog from YAML.
func Load(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(f.Powerups, f.Enemies, f.Bosses)
}

// New builds a catalog from definitions, validating them.
func New(powerups []Powerup, enemies, bosses []EnemyTemplate) (*Catalog, error) {
	c := &Catalog{
		byID: make(map[string]Powerup, len(powerups)),
	}

	for _, p := range powerups {
		if p.ID == "" {
			return nil, fmt.Errorf("powerup with empty id")
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate powerup %q", p.ID)
		}
		if p.Magnitude <= 0 {
			return nil, fmt.Errorf("powerup %q: magnitude must be > 0", p.ID)
		}
		if p.DropWeight < 0 {
			return nil, fmt.Errorf("powerup %q: drop_weight must be >= 0", p.ID)
		}
		eff, err := newEffect(p.Kind, p.Magnitude)
		if err != nil {
			return nil, fmt.Errorf("powerup %q: %w", p.ID, err)
		}
		p.effect = eff
		if p.Name == "" {
			p.Name = p.ID
		}
		c.powerups = append(c.powerups, p)
		c.byID[p.ID] = p
	}

	if len(enemies) == 0 {
		return nil, fmt.Errorf("catalog needs at least one enemy")
	}
	if len(bosses) == 0 {
		return nil, fmt.Errorf("catalog needs at least one boss")
	}
	for _, e := range slices.Concat(enemies, bosses) {
		if e.ID == "" || e.HP < 1 || e.Damage < 1 {
			return nil, fmt.Errorf("enemy %q: id, hp >= 1 and damage >= 1 are required", e.ID)
		}
	}

	c.enemies = slices.Clone(enemies)
	slices.SortStableFunc(c.enemies, func(a, b EnemyTemplate) int {
		if a.Tier != b.Tier {
			return a.Tier - b.Tier
		}
		return a.HP - b.HP
	})
	c.bosses = slices.Clone(bosses)
	return c, nil
}

// Powerups returns all powerup definitions in catalog order.
func (c *Catalog) Powerups() []Powerup {
	return slices.Clone(c.powerups)
}

// Powerup looks up a definition by id.
func (c *Catalog) Powerup(id string) (Powerup, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Regular returns the regular enemy templates ordered by tier, then HP.
func (c *Catalog) Regular() []EnemyTemplate {
	return slices.Clone(c.enemies)
}

// Bosses returns the boss templates.
func (c *Catalog) Bosses() []EnemyTemplate {
	return slices.Clone(c.bosses)
}
