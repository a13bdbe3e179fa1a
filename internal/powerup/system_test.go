package powerup

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/abhisek/quizdungeon/internal/catalog"
	"github.com/abhisek/quizdungeon/internal/game"
)

func newSession(inventory ...string) *game.GameSession {
	return &game.GameSession{
		ID:        "s",
		Player:    game.PlayerState{HP: 50, MaxHP: 100},
		Inventory: inventory,
		Status:    game.StatusActive,
	}
}

func TestUseHealCapsAtMax(t *testing.T) {
	sys := NewSystem(catalog.Default(), 0)

	s := newSession("health_potion", "health_potion")
	res, err := sys.Use(s, "health_potion")
	if err != nil {
		t.Fatal(err)
	}
	if s.Player.HP != 80 || res.Healed != 30 {
		t.Errorf("HP = %d healed = %d, want 80/30", s.Player.HP, res.Healed)
	}

	res, err = sys.Use(s, "health_potion")
	if err != nil {
		t.Fatal(err)
	}
	if s.Player.HP != 100 || res.Healed != 20 {
		t.Errorf("HP = %d healed = %d, want 100/20", s.Player.HP, res.Healed)
	}
	if len(s.Inventory) != 0 {
		t.Errorf("Inventory = %v, want empty", s.Inventory)
	}
}

func TestUseShieldAccumulates(t *testing.T) {
	sys := NewSystem(catalog.Default(), 0)
	s := newSession("shield", "shield")
	for i := 0; i < 2; i++ {
		if _, err := sys.Use(s, "shield"); err != nil {
			t.Fatal(err)
		}
	}
	if s.Player.Shield != 40 {
		t.Errorf("Shield = %d, want 40", s.Player.Shield)
	}
}

func TestUseBoostsStack(t *testing.T) {
	sys := NewSystem(catalog.Default(), 0)
	s := newSession("double_damage", "double_damage", "lucky_coin")
	for _, id := range s.Clone().Inventory {
		if _, err := sys.Use(s, id); err != nil {
			t.Fatal(err)
		}
	}
	if s.Boosts.Damage != 4 {
		t.Errorf("Boosts.Damage = %v, want 4", s.Boosts.Damage)
	}
	if s.Boosts.Score != 1.5 {
		t.Errorf("Boosts.Score = %v, want 1.5", s.Boosts.Score)
	}
}

func TestUseTwiceWithSingleInstance(t *testing.T) {
	sys := NewSystem(catalog.Default(), 0)
	s := newSession("shield", "lucky_coin")

	if _, err := sys.Use(s, "shield"); err != nil {
		t.Fatalf("first use: %v", err)
	}
	before := s.Clone()
	_, err := sys.Use(s, "shield")
	if !errors.Is(err, game.ErrPowerupNotOwned) {
		t.Fatalf("second use error = %v, want ErrPowerupNotOwned", err)
	}
	if !reflect.DeepEqual(before, s) {
		t.Error("failed use mutated the session")
	}
	if !reflect.DeepEqual(s.Inventory, []string{"lucky_coin"}) {
		t.Errorf("Inventory = %v", s.Inventory)
	}
}

func TestUseOnTerminatedSession(t *testing.T) {
	sys := NewSystem(catalog.Default(), 0)
	s := newSession("shield")
	s.Status = game.StatusLost
	if _, err := sys.Use(s, "shield"); !errors.Is(err, game.ErrInvalidSessionState) {
		t.Errorf("error = %v, want ErrInvalidSessionState", err)
	}
}

func TestGrant(t *testing.T) {
	sys := NewSystem(catalog.Default(), 2)
	s := newSession()

	if _, err := sys.Grant(s, "teleport"); !errors.Is(err, game.ErrUnknownPowerup) {
		t.Errorf("unknown grant error = %v", err)
	}
	for i := 0; i < 2; i++ {
		ok, err := sys.Grant(s, "shield")
		if err != nil || !ok {
			t.Fatalf("grant %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := sys.Grant(s, "shield")
	if err != nil || ok {
		t.Errorf("grant over cap: ok=%v err=%v, want false/nil", ok, err)
	}
	if len(s.Inventory) != 2 {
		t.Errorf("Inventory len = %d, want 2", len(s.Inventory))
	}
}

func TestMaybeDrop(t *testing.T) {
	sys := NewSystem(catalog.Default(), 0)
	rng := rand.New(rand.NewPCG(1, 2))

	t.Run("certain chance", func(t *testing.T) {
		s := newSession()
		s.CorrectStreak = 1
		id, err := sys.MaybeDrop(s, game.DropPolicy{Chance: 1}, rng)
		if err != nil || id == "" {
			t.Fatalf("MaybeDrop = %q, %v", id, err)
		}
		if !s.Owns(id) {
			t.Error("dropped powerup not in inventory")
		}
	})

	t.Run("zero chance", func(t *testing.T) {
		s := newSession()
		for i := 1; i <= 50; i++ {
			s.CorrectStreak = i
			if id, _ := sys.MaybeDrop(s, game.DropPolicy{}, rng); id != "" {
				t.Fatalf("unexpected drop %q", id)
			}
		}
	})

	t.Run("every third correct", func(t *testing.T) {
		s := newSession()
		policy := game.DropPolicy{Every: 3}
		var drops []int
		for i := 1; i <= 9; i++ {
			s.CorrectStreak = i
			if id, _ := sys.MaybeDrop(s, policy, rng); id != "" {
				drops = append(drops, i)
			}
		}
		if !reflect.DeepEqual(drops, []int{3, 6, 9}) {
			t.Errorf("drops at %v, want [3 6 9]", drops)
		}
	})
}

func TestPickRespectsWeights(t *testing.T) {
	cat, err := catalog.New([]catalog.Powerup{
		{ID: "never", Kind: catalog.EffectHeal, Magnitude: 1, DropWeight: 0},
		{ID: "always", Kind: catalog.EffectShield, Magnitude: 1, DropWeight: 1},
	}, []catalog.EnemyTemplate{{ID: "e", HP: 1, Damage: 1}}, []catalog.EnemyTemplate{{ID: "b", HP: 1, Damage: 1}})
	if err != nil {
		t.Fatal(err)
	}
	sys := NewSystem(cat, 0)
	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 100; i++ {
		if got := sys.pick(rng); got != "always" {
			t.Fatalf("pick = %q, want always", got)
		}
	}
}
