package encounter

import (
	"errors"
	"testing"

	"github.com/abhisek/quizdungeon/internal/catalog"
	"github.com/abhisek/quizdungeon/internal/game"
)

func newSession(total int) *game.GameSession {
	return &game.GameSession{
		ID:              "s",
		EncounterIndex:  1,
		TotalEncounters: total,
		Status:          game.StatusActive,
	}
}

func TestStartEncounterFinalIsBoss(t *testing.T) {
	c := NewController(game.DefaultRules(), catalog.Default())
	s := newSession(5)

	for idx := 1; idx <= 5; idx++ {
		s.EncounterIndex = idx
		e, err := c.StartEncounter(s)
		if err != nil {
			t.Fatalf("StartEncounter(%d): %v", idx, err)
		}
		if e.IsBoss != (idx == 5) {
			t.Errorf("encounter %d IsBoss = %v", idx, e.IsBoss)
		}
		if e.HP != e.MaxHP || e.HP < 1 || e.Damage < 1 {
			t.Errorf("encounter %d has invalid stats: %+v", idx, e)
		}
		if s.Enemy != e {
			t.Error("session enemy not replaced")
		}
	}
}

func TestMidBosses(t *testing.T) {
	rules := game.DefaultRules()
	rules.BossEvery = 2
	c := NewController(rules, catalog.Default())

	for idx, want := range map[int]bool{1: false, 2: true, 3: false, 4: true, 5: true} {
		if got := c.EnemyFor(idx, 5).IsBoss; got != want {
			t.Errorf("EnemyFor(%d).IsBoss = %v, want %v", idx, got, want)
		}
	}
}

func TestTemplateTierNonDecreasing(t *testing.T) {
	c := NewController(game.DefaultRules(), catalog.Default())
	prev := 0
	for idx := 1; idx < 10; idx++ {
		e := c.EnemyFor(idx, 10)
		if e.Tier < prev {
			t.Errorf("encounter %d tier %d below previous %d", idx, e.Tier, prev)
		}
		prev = e.Tier
	}
}

func TestRegularEnemyHPNonDecreasing(t *testing.T) {
	c := NewController(game.DefaultRules(), catalog.Default())
	for total := 2; total <= 12; total++ {
		prev := 0
		for idx := 1; idx < total; idx++ {
			e := c.EnemyFor(idx, total)
			if e.HP < prev {
				t.Errorf("total %d: encounter %d (%s) hp %d below previous %d", total, idx, e.TemplateID, e.HP, prev)
			}
			prev = e.HP
		}
	}
}

func TestScalingMonotonicPerTemplate(t *testing.T) {
	rules := game.DefaultRules()
	rules.Scaling = game.ScalingCurve{Kind: game.CurveLinear, Step: 0.25}
	single := []catalog.EnemyTemplate{{ID: "blob", HP: 10, Damage: 3, Score: 50, Tier: 1}}
	cat, err := catalog.New(nil, single, single)
	if err != nil {
		t.Fatal(err)
	}
	c := NewController(rules, cat)

	prevHP, prevDmg := 0, 0
	for idx := 1; idx < 8; idx++ {
		e := c.EnemyFor(idx, 8)
		if e.HP < prevHP || e.Damage < prevDmg {
			t.Errorf("encounter %d: hp %d dmg %d decreased from %d/%d", idx, e.HP, e.Damage, prevHP, prevDmg)
		}
		prevHP, prevDmg = e.HP, e.Damage
	}
	if first := c.EnemyFor(1, 8); first.HP != 10 || first.Damage != 3 {
		t.Errorf("first encounter = %+v, want base stats", first)
	}
}

func TestAdvanceToWin(t *testing.T) {
	c := NewController(game.DefaultRules(), catalog.Default())
	s := newSession(3)
	if _, err := c.StartEncounter(s); err != nil {
		t.Fatal(err)
	}
	s.ActiveQuestionID = "q"

	for want := 2; want <= 3; want++ {
		if err := c.Advance(s); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if s.EncounterIndex != want || s.Status != game.StatusActive || s.Enemy == nil {
			t.Fatalf("after advance: index=%d status=%s enemy=%v", s.EncounterIndex, s.Status, s.Enemy)
		}
	}

	if err := c.Advance(s); err != nil {
		t.Fatalf("final Advance: %v", err)
	}
	if s.Status != game.StatusWon {
		t.Errorf("Status = %s, want won", s.Status)
	}
	if s.EncounterIndex != 4 {
		t.Errorf("EncounterIndex = %d, want 4", s.EncounterIndex)
	}
	if s.Enemy != nil || s.ActiveQuestionID != "" {
		t.Error("won session should have no enemy or active question")
	}
}

func TestTerminatedSessionRejected(t *testing.T) {
	c := NewController(game.DefaultRules(), catalog.Default())
	for _, st := range []game.Status{game.StatusWon, game.StatusLost, game.StatusAbandoned} {
		s := newSession(3)
		s.Status = st
		if err := c.Advance(s); !errors.Is(err, game.ErrInvalidSessionState) {
			t.Errorf("Advance(%s) error = %v, want ErrInvalidSessionState", st, err)
		}
		if s.EncounterIndex != 1 {
			t.Errorf("Advance(%s) mutated the index", st)
		}
		if _, err := c.StartEncounter(s); !errors.Is(err, game.ErrInvalidSessionState) {
			t.Errorf("StartEncounter(%s) error = %v, want ErrInvalidSessionState", st, err)
		}
	}
}

func TestTemplateSlot(t *testing.T) {
	tests := []struct {
		index, total, n, want int
	}{
		{1, 5, 6, 0},
		{2, 5, 6, 1},
		{4, 5, 6, 3},
		{5, 5, 6, 4},
		{1, 1, 6, 0},
		{3, 5, 1, 0},
		{9, 5, 6, 5},
	}
	for _, tt := range tests {
		if got := templateSlot(tt.index, tt.total, tt.n); got != tt.want {
			t.Errorf("templateSlot(%d, %d, %d) = %d, want %d", tt.index, tt.total, tt.n, got, tt.want)
		}
	}
}
