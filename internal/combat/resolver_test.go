package combat

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/abhisek/quizdungeon/internal/catalog"
	"github.com/abhisek/quizdungeon/internal/encounter"
	"github.com/abhisek/quizdungeon/internal/game"
	"github.com/abhisek/quizdungeon/internal/powerup"
	"github.com/abhisek/quizdungeon/internal/questions"
	"github.com/abhisek/quizdungeon/internal/stats"
)

type fakeRecorder struct {
	attempts []stats.Attempt
	games    []stats.GameOutcome
	err      error
}

func (f *fakeRecorder) Record(_ context.Context, _ stats.Key, a stats.Attempt) error {
	if f.err != nil {
		return f.err
	}
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeRecorder) RecordGame(_ context.Context, _ stats.Key, g stats.GameOutcome) error {
	f.games = append(f.games, g)
	return nil
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testRules() game.Rules {
	r := game.DefaultRules()
	r.TotalEncounters = 3
	r.Drops = game.DropPolicy{}
	return r
}

func newResolver(rules game.Rules) *Resolver {
	cat := catalog.Default()
	return NewResolver(rules,
		encounter.NewController(rules, cat),
		powerup.NewSystem(cat, rules.MaxInventory),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func newSession(t *testing.T, r *Resolver) *game.GameSession {
	t.Helper()
	rules := r.Rules()
	s := &game.GameSession{
		ID:              "s1",
		PlayerID:        "p1",
		MaterialID:      "m1",
		Player:          game.PlayerState{HP: rules.PlayerMaxHP, MaxHP: rules.PlayerMaxHP},
		EncounterIndex:  1,
		TotalEncounters: rules.TotalEncounters,
		Status:          game.StatusActive,
	}
	if _, err := r.encounters.StartEncounter(s); err != nil {
		t.Fatalf("StartEncounter: %v", err)
	}
	return s
}

func question(id string, d game.Difficulty) *questions.Record {
	return &questions.Record{
		ID:            id,
		MaterialID:    "m1",
		Topic:         "Cells",
		Difficulty:    d,
		Type:          questions.TypeMultipleChoice,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: "B",
		Explanation:   "B is right",
	}
}

func serve(s *game.GameSession, q *questions.Record) {
	s.ActiveQuestionID = q.ID
	s.QuestionServedAt = fixedNow.Add(-4 * time.Second)
}

func TestShieldAbsorbsBeforeHP(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	s.Player.Shield = 5
	s.Player.HP = 20
	s.Enemy.Damage = 8
	q := question("q1", game.DifficultyEasy)
	serve(s, q)

	res, err := r.ResolveAnswer(context.Background(), s, q, "A", &fakeRecorder{})
	if err != nil {
		t.Fatalf("ResolveAnswer: %v", err)
	}
	if s.Player.Shield != 0 || s.Player.HP != 17 {
		t.Errorf("shield/hp = %d/%d, want 0/17", s.Player.Shield, s.Player.HP)
	}
	if res.ShieldAbsorbed != 5 || res.DamageReceived != 3 {
		t.Errorf("absorbed/received = %d/%d, want 5/3", res.ShieldAbsorbed, res.DamageReceived)
	}
	if res.Correct || res.CorrectAnswer != "B" || res.Explanation == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestCorrectAnswerDamageAndScore(t *testing.T) {
	rules := testRules()
	r := newResolver(rules)

	tests := []struct {
		difficulty game.Difficulty
		damage     int
		score      int
	}{
		{game.DifficultyEasy, 20, 10},
		{game.DifficultyMedium, 25, 13},
		{game.DifficultyHard, 30, 15},
	}
	for _, tt := range tests {
		t.Run(string(tt.difficulty), func(t *testing.T) {
			s := newSession(t, r)
			s.Enemy.HP, s.Enemy.MaxHP = 1000, 1000
			q := question("q1", tt.difficulty)
			serve(s, q)

			res, err := r.ResolveAnswer(context.Background(), s, q, "  b ", &fakeRecorder{})
			if err != nil {
				t.Fatalf("ResolveAnswer: %v", err)
			}
			if !res.Correct {
				t.Fatal("answer should be correct")
			}
			if res.DamageDealt != tt.damage || s.Enemy.HP != 1000-tt.damage {
				t.Errorf("damage = %d, want %d", res.DamageDealt, tt.damage)
			}
			if res.ScoreGained != tt.score || s.Player.Score != tt.score {
				t.Errorf("score = %d, want %d", res.ScoreGained, tt.score)
			}
		})
	}
}

func TestDamageAndScoreAlwaysPositive(t *testing.T) {
	rules := testRules()
	rules.BaseDamage = 1
	rules.ScorePerAnswer = 1
	rules.DifficultyMultipliers = map[game.Difficulty]float64{
		game.DifficultyEasy:   0.01,
		game.DifficultyMedium: 0.2,
		game.DifficultyHard:   0.4,
	}
	r := newResolver(rules)

	for _, d := range game.AllDifficulties() {
		s := newSession(t, r)
		s.Enemy.HP = 100
		q := question("q", d)
		serve(s, q)
		res, err := r.ResolveAnswer(context.Background(), s, q, "B", &fakeRecorder{})
		if err != nil {
			t.Fatalf("%s: %v", d, err)
		}
		if res.DamageDealt < 1 || res.ScoreGained < 1 {
			t.Errorf("%s: damage %d score %d, want both >= 1", d, res.DamageDealt, res.ScoreGained)
		}
	}
}

func TestStaleQuestionLeavesSessionUntouched(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	serve(s, question("q1", game.DifficultyEasy))
	before := s.Clone()
	rec := &fakeRecorder{}

	_, err := r.ResolveAnswer(context.Background(), s, question("q2", game.DifficultyEasy), "B", rec)
	if !errors.Is(err, game.ErrStaleQuestion) {
		t.Fatalf("err = %v, want ErrStaleQuestion", err)
	}
	if !reflect.DeepEqual(before, s) {
		t.Errorf("session mutated:\n got %+v\nwant %+v", s, before)
	}
	if len(rec.attempts) != 0 {
		t.Error("stale answer was recorded")
	}
}

func TestNoActiveQuestionIsStale(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	_, err := r.ResolveAnswer(context.Background(), s, question("q1", game.DifficultyEasy), "B", &fakeRecorder{})
	if !errors.Is(err, game.ErrStaleQuestion) {
		t.Fatalf("err = %v, want ErrStaleQuestion", err)
	}
}

func TestTerminatedSessionRejected(t *testing.T) {
	r := newResolver(testRules())
	for _, st := range []game.Status{game.StatusWon, game.StatusLost, game.StatusAbandoned} {
		s := newSession(t, r)
		q := question("q1", game.DifficultyEasy)
		serve(s, q)
		s.Status = st
		before := s.Clone()
		_, err := r.ResolveAnswer(context.Background(), s, q, "B", &fakeRecorder{})
		if !errors.Is(err, game.ErrInvalidSessionState) {
			t.Errorf("%s: err = %v, want ErrInvalidSessionState", st, err)
		}
		if !reflect.DeepEqual(before, s) {
			t.Errorf("%s: session mutated", st)
		}
	}
}

func TestDefeatAdvancesAndAwardsBonus(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	s.Enemy.HP = 5
	s.Enemy.ScoreValue = 100
	q := question("q1", game.DifficultyEasy)
	serve(s, q)

	res, err := r.ResolveAnswer(context.Background(), s, q, "B", &fakeRecorder{})
	if err != nil {
		t.Fatalf("ResolveAnswer: %v", err)
	}
	if !res.EnemyDefeated || res.PlayerDied || res.GameWon {
		t.Fatalf("flags = defeated %v died %v won %v", res.EnemyDefeated, res.PlayerDied, res.GameWon)
	}
	if res.DamageDealt != 5 {
		t.Errorf("DamageDealt = %d, want 5 (capped at remaining HP)", res.DamageDealt)
	}
	if res.ScoreGained != 110 || s.Player.Score != 110 {
		t.Errorf("score gained = %d, want 110", res.ScoreGained)
	}
	if s.EncounterIndex != 2 || res.EncounterIndex != 2 {
		t.Errorf("EncounterIndex = %d, want 2", s.EncounterIndex)
	}
	if res.Enemy == nil || res.Enemy.HP != res.Enemy.MaxHP {
		t.Errorf("next enemy = %+v, want fresh enemy", res.Enemy)
	}
	if res.DefeatedEnemy == nil || res.DefeatedEnemy.HP != 0 {
		t.Errorf("DefeatedEnemy = %+v", res.DefeatedEnemy)
	}
}

func TestDeathEndsSession(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	s.Player.HP = 3
	q := question("q1", game.DifficultyEasy)
	serve(s, q)
	rec := &fakeRecorder{}

	res, err := r.ResolveAnswer(context.Background(), s, q, "C", rec)
	if err != nil {
		t.Fatalf("ResolveAnswer: %v", err)
	}
	if !res.PlayerDied || res.EnemyDefeated {
		t.Errorf("died %v defeated %v, want true false", res.PlayerDied, res.EnemyDefeated)
	}
	if s.Status != game.StatusLost || s.Player.HP != 0 {
		t.Errorf("status %s hp %d, want lost 0", s.Status, s.Player.HP)
	}
	if len(rec.games) != 1 || rec.games[0].Status != game.StatusLost {
		t.Errorf("games = %+v, want one lost outcome", rec.games)
	}
	if s.ActiveQuestionID != "" {
		t.Error("active question not cleared")
	}
}

func TestBoostAffectsExactlyNextAnswer(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	s.Enemy.HP = 1000
	s.Boosts = game.Boosts{Damage: 2, Score: 1.5}

	q1 := question("q1", game.DifficultyEasy)
	serve(s, q1)
	res, err := r.ResolveAnswer(context.Background(), s, q1, "B", &fakeRecorder{})
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if res.DamageDealt != 40 || res.ScoreGained != 15 {
		t.Errorf("boosted damage/score = %d/%d, want 40/15", res.DamageDealt, res.ScoreGained)
	}
	if s.Boosts.Active() {
		t.Error("boosts not consumed")
	}

	q2 := question("q2", game.DifficultyEasy)
	serve(s, q2)
	res, err = r.ResolveAnswer(context.Background(), s, q2, "B", &fakeRecorder{})
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if res.DamageDealt != 20 || res.ScoreGained != 10 {
		t.Errorf("unboosted damage/score = %d/%d, want 20/10", res.DamageDealt, res.ScoreGained)
	}
}

func TestBoostConsumedByWrongAnswer(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	s.Boosts = game.Boosts{Damage: 2}
	q := question("q1", game.DifficultyEasy)
	serve(s, q)
	if _, err := r.ResolveAnswer(context.Background(), s, q, "A", &fakeRecorder{}); err != nil {
		t.Fatalf("ResolveAnswer: %v", err)
	}
	if s.Boosts.Active() {
		t.Error("wrong answer did not consume boost")
	}
}

func TestReviewQueue(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	s.Enemy.HP = 1000
	q := question("q1", game.DifficultyEasy)

	serve(s, q)
	_, _ = r.ResolveAnswer(context.Background(), s, q, "A", &fakeRecorder{})
	if !reflect.DeepEqual(s.ReviewQueue, []string{"q1"}) {
		t.Fatalf("ReviewQueue = %v, want [q1]", s.ReviewQueue)
	}
	serve(s, q)
	_, _ = r.ResolveAnswer(context.Background(), s, q, "B", &fakeRecorder{})
	if len(s.ReviewQueue) != 0 {
		t.Errorf("ReviewQueue = %v, want empty", s.ReviewQueue)
	}
}

func TestStatsRecorded(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	q := question("q1", game.DifficultyHard)
	serve(s, q)
	rec := &fakeRecorder{}

	if _, err := r.ResolveAnswer(context.Background(), s, q, "B", rec); err != nil {
		t.Fatalf("ResolveAnswer: %v", err)
	}
	if len(rec.attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(rec.attempts))
	}
	a := rec.attempts[0]
	if a.Topic != "Cells" || !a.Correct || a.ElapsedSeconds != 4 || a.SessionID != "s1" {
		t.Errorf("attempt = %+v", a)
	}
	if s.QuestionsAnswered != 1 || s.QuestionsCorrect != 1 || s.CorrectStreak != 1 {
		t.Errorf("counters = %d/%d/%d", s.QuestionsAnswered, s.QuestionsCorrect, s.CorrectStreak)
	}
}

func TestRecorderErrorPropagates(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	q := question("q1", game.DifficultyEasy)
	serve(s, q)
	boom := errors.New("boom")
	if _, err := r.ResolveAnswer(context.Background(), s, q, "B", &fakeRecorder{err: boom}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestStreakDrop(t *testing.T) {
	rules := testRules()
	rules.Drops = game.DropPolicy{Every: 2}
	r := newResolver(rules)
	s := newSession(t, r)
	s.Enemy.HP = 1000

	var granted []string
	for i := range 4 {
		q := question(fmt.Sprintf("q%d", i), game.DifficultyEasy)
		serve(s, q)
		res, err := r.ResolveAnswer(context.Background(), s, q, "B", &fakeRecorder{})
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		granted = append(granted, res.PowerupGranted)
	}
	if granted[0] != "" || granted[1] == "" || granted[2] != "" || granted[3] == "" {
		t.Errorf("granted = %q, want drops on 2nd and 4th answers", granted)
	}
	if len(s.Inventory) != 2 {
		t.Errorf("inventory = %v, want 2 items", s.Inventory)
	}
}

func TestThreeEncounterRunIsWon(t *testing.T) {
	r := newResolver(testRules())
	s := newSession(t, r)
	rec := &fakeRecorder{}

	won := false
	for i := 0; i < 500 && !won; i++ {
		q := question(fmt.Sprintf("q%d", i), game.DifficultyHard)
		serve(s, q)
		res, err := r.ResolveAnswer(context.Background(), s, q, "B", rec)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		won = res.GameWon
	}
	if !won {
		t.Fatal("game never won")
	}
	if s.Status != game.StatusWon || s.EncounterIndex != 4 || s.Enemy != nil {
		t.Errorf("final state: status %s index %d enemy %v", s.Status, s.EncounterIndex, s.Enemy)
	}
	if len(rec.games) != 1 || !rec.games[0].Completed() || rec.games[0].EnemiesDefeated != 3 {
		t.Errorf("games = %+v, want one completed game with 3 defeats", rec.games)
	}
	if _, err := r.ResolveAnswer(context.Background(), s, question("late", game.DifficultyEasy), "B", rec); !errors.Is(err, game.ErrInvalidSessionState) {
		t.Errorf("answer after win: err = %v, want ErrInvalidSessionState", err)
	}
}

func TestRandomSequencesKeepBounds(t *testing.T) {
	rules := testRules()
	rules.TotalEncounters = 5
	rules.Drops = game.DropPolicy{Chance: 0.5}
	r := newResolver(rules)
	cat := catalog.Default()
	sys := powerup.NewSystem(cat, 0)
	ids := make([]string, 0)
	for _, p := range cat.Powerups() {
		ids = append(ids, p.ID)
	}

	for seed := range uint64(30) {
		rng := rand.New(rand.NewPCG(seed, 99))
		s := newSession(t, r)
		lastScore := 0
		for step := 0; step < 200 && s.Status == game.StatusActive; step++ {
			if rng.IntN(4) == 0 {
				_, _ = sys.Use(s, ids[rng.IntN(len(ids))])
			} else {
				d := game.AllDifficulties()[rng.IntN(3)]
				q := question(fmt.Sprintf("q%d", step), d)
				serve(s, q)
				answer := "B"
				if rng.IntN(2) == 0 {
					answer = "D"
				}
				res, err := r.ResolveAnswer(context.Background(), s, q, answer, &fakeRecorder{})
				if err != nil {
					t.Fatalf("seed %d step %d: %v", seed, step, err)
				}
				if res.EnemyDefeated && res.PlayerDied {
					t.Fatalf("seed %d step %d: defeat and death together", seed, step)
				}
			}
			if s.Player.HP < 0 || s.Player.HP > s.Player.MaxHP {
				t.Fatalf("seed %d: hp %d out of [0,%d]", seed, s.Player.HP, s.Player.MaxHP)
			}
			if s.Player.Shield < 0 {
				t.Fatalf("seed %d: negative shield", seed)
			}
			if s.Player.Score < lastScore {
				t.Fatalf("seed %d: score decreased %d -> %d", seed, lastScore, s.Player.Score)
			}
			lastScore = s.Player.Score
			if s.Status == game.StatusActive && s.EncounterIndex > s.TotalEncounters {
				t.Fatalf("seed %d: active at index %d", seed, s.EncounterIndex)
			}
			if s.Enemy != nil && s.Enemy.HP < 0 {
				t.Fatalf("seed %d: enemy hp %d", seed, s.Enemy.HP)
			}
		}
	}
}
