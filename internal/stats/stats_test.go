package stats

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/quizdungeon/internal/game"
)

var testKey = Key{PlayerID: "p1", MaterialID: "m1"}

func record(t *testing.T, agg *Aggregator, topic string, attempts, correct int) {
	t.Helper()
	for i := range attempts {
		err := agg.Record(context.Background(), testKey, Attempt{
			QuestionID:     topic,
			Topic:          topic,
			Correct:        i < correct,
			ElapsedSeconds: 2,
			AnsweredAt:     time.Date(2026, 1, 1, 12, 0, i, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
}

func TestWeakAreasExample(t *testing.T) {
	agg := NewAggregator(NewMemoryRepo())
	record(t, agg, "A", 3, 0)
	record(t, agg, "C", 20, 11)
	record(t, agg, "B", 10, 5)
	record(t, agg, "E", 10, 9)

	weak, err := agg.WeakAreas(context.Background(), testKey, 5, 0.6)
	if err != nil {
		t.Fatalf("WeakAreas: %v", err)
	}
	var got []string
	for _, w := range weak {
		got = append(got, w.Topic)
	}
	want := []string{"B", "C"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("WeakAreas = %v, want %v", got, want)
	}
}

func TestWeakAreasOrdering(t *testing.T) {
	topics := []TopicStat{
		{Topic: "tiny", Attempts: 3, Correct: 0},
		{Topic: "half", Attempts: 10, Correct: 5},
		{Topic: "more", Attempts: 20, Correct: 11},
		{Topic: "fiftyfive", Attempts: 20, Correct: 11},
		{Topic: "strong", Attempts: 10, Correct: 9},
		{Topic: "bighalf", Attempts: 20, Correct: 10},
	}
	got := WeakAreas(topics, 5, 0.6)
	var names []string
	for _, w := range got {
		names = append(names, w.Topic)
	}
	want := "bighalf,half,fiftyfive,more"
	if strings.Join(names, ",") != want {
		t.Errorf("WeakAreas = %v, want %s", names, want)
	}
}

func TestWeakAreasEmpty(t *testing.T) {
	if got := WeakAreas(nil, 5, 0.6); len(got) != 0 {
		t.Errorf("WeakAreas(nil) = %v, want empty", got)
	}
}

func TestOverallAccuracyNoAnswers(t *testing.T) {
	agg := NewAggregator(NewMemoryRepo())
	o, err := agg.Overall(context.Background(), testKey)
	if err != nil {
		t.Fatalf("Overall: %v", err)
	}
	if o.Accuracy() != 0 {
		t.Errorf("Accuracy = %v, want 0", o.Accuracy())
	}
}

func TestRecordNormalizes(t *testing.T) {
	repo := NewMemoryRepo()
	agg := NewAggregator(repo)
	err := agg.Record(context.Background(), testKey, Attempt{Topic: "  ", Correct: true, ElapsedSeconds: -3})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	topics, _ := agg.Topics(context.Background(), testKey)
	if len(topics) != 1 || topics[0].Topic != "General" {
		t.Fatalf("topics = %+v, want one General topic", topics)
	}
	if topics[0].TimeSeconds != 0 {
		t.Errorf("TimeSeconds = %v, want 0", topics[0].TimeSeconds)
	}
}

func TestRecordConcurrentKeepsCorrectBelowAttempts(t *testing.T) {
	agg := NewAggregator(NewMemoryRepo())
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = agg.Record(context.Background(), testKey, Attempt{Topic: "t", Correct: i%2 == 0})
		}()
	}
	wg.Wait()

	topics, _ := agg.Topics(context.Background(), testKey)
	o, _ := agg.Overall(context.Background(), testKey)
	if topics[0].Attempts != 50 || o.TotalAnswers != 50 {
		t.Fatalf("attempts = %d/%d, want 50", topics[0].Attempts, o.TotalAnswers)
	}
	if topics[0].Correct != 25 || o.CorrectAnswers > o.TotalAnswers {
		t.Errorf("correct = %d, want 25", topics[0].Correct)
	}
}

func TestTopicsStrongestFirst(t *testing.T) {
	agg := NewAggregator(NewMemoryRepo())
	record(t, agg, "low", 4, 1)
	record(t, agg, "high", 4, 4)
	record(t, agg, "mid", 4, 2)

	topics, _ := agg.Topics(context.Background(), testKey)
	var names []string
	for _, ts := range topics {
		names = append(names, ts.Topic)
	}
	if strings.Join(names, ",") != "high,mid,low" {
		t.Errorf("Topics = %v, want high,mid,low", names)
	}
}

func TestRecordGame(t *testing.T) {
	agg := NewAggregator(NewMemoryRepo())
	ctx := context.Background()
	_ = agg.RecordGame(ctx, testKey, GameOutcome{Status: game.StatusWon, Score: 120})
	_ = agg.RecordGame(ctx, testKey, GameOutcome{Status: game.StatusLost, Score: 30})

	o, _ := agg.Overall(ctx, testKey)
	if o.GamesPlayed != 2 || o.CompletedGames != 1 || o.TotalScore != 150 {
		t.Errorf("Overall = %+v", o)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	agg := NewAggregator(NewMemoryRepo())
	record(t, agg, "t", 5, 5)

	recent, _ := agg.Recent(context.Background(), testKey, 2)
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if !recent[0].AnsweredAt.After(recent[1].AnsweredAt) {
		t.Errorf("recent not newest first: %v", recent)
	}
}

func TestReset(t *testing.T) {
	agg := NewAggregator(NewMemoryRepo())
	record(t, agg, "t", 3, 1)
	if err := agg.Reset(context.Background(), testKey); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	o, _ := agg.Overall(context.Background(), testKey)
	if o.TotalAnswers != 0 {
		t.Errorf("TotalAnswers = %d after reset", o.TotalAnswers)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		acc  float64
		want Level
	}{
		{0.95, LevelExpert},
		{0.90, LevelExpert},
		{0.85, LevelAdvanced},
		{0.70, LevelIntermediate},
		{0.65, LevelBeginner},
		{0.10, LevelNovice},
		{0, LevelNovice},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.acc); got != tt.want {
			t.Errorf("LevelFor(%v) = %s, want %s", tt.acc, got, tt.want)
		}
	}
}

func TestBuildInsights(t *testing.T) {
	topics := []TopicStat{
		{Topic: "geometry", Attempts: 2, Correct: 2},
		{Topic: "algebra", Attempts: 10, Correct: 9},
		{Topic: "history", Attempts: 5, Correct: 3},
		{Topic: "biology", Attempts: 6, Correct: 1},
	}
	overall := OverallStats{TotalAnswers: 23, CorrectAnswers: 15}

	in := BuildInsights(overall, topics)
	if in.Level != LevelBeginner {
		t.Errorf("Level = %s, want Beginner", in.Level)
	}
	if strings.Join(in.StrongTopics, ",") != "algebra" {
		t.Errorf("StrongTopics = %v, want [algebra]", in.StrongTopics)
	}
	if strings.Join(in.WeakTopics, ",") != "history,biology" {
		t.Errorf("WeakTopics = %v, want [history biology]", in.WeakTopics)
	}
	last := in.Recommendations[len(in.Recommendations)-1]
	if last != "Extra study needed: history, biology" {
		t.Errorf("last recommendation = %q", last)
	}
}

func TestBuildInsightsEmpty(t *testing.T) {
	in := BuildInsights(OverallStats{}, nil)
	if in.Level != LevelNovice {
		t.Errorf("Level = %s, want Novice", in.Level)
	}
	if len(in.StrongTopics) != 0 || len(in.WeakTopics) != 0 {
		t.Errorf("unexpected topics: %+v", in)
	}
	if len(in.Recommendations) == 0 {
		t.Error("expected recommendations for a new learner")
	}
}

func buildReport(t *testing.T) *Report {
	t.Helper()
	agg := NewAggregator(NewMemoryRepo())
	record(t, agg, "Cells", 6, 2)
	record(t, agg, "Genetics", 4, 4)
	_ = agg.RecordGame(context.Background(), testKey, GameOutcome{Status: game.StatusWon, Score: 90})

	r, err := agg.BuildReport(context.Background(), testKey, ReportOptions{
		MinAttempts: 5,
		Cutoff:      0.6,
		RecentLimit: 3,
		Now:         time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	return r
}

func TestBuildReport(t *testing.T) {
	r := buildReport(t)
	if r.Overall.TotalAnswers != 10 || r.Overall.CorrectAnswers != 6 {
		t.Errorf("Overall = %+v", r.Overall)
	}
	if len(r.WeakAreas) != 1 || r.WeakAreas[0].Topic != "Cells" {
		t.Errorf("WeakAreas = %+v, want [Cells]", r.WeakAreas)
	}
	if len(r.RecentActivity) != 3 {
		t.Errorf("RecentActivity len = %d, want 3", len(r.RecentActivity))
	}
}

func TestExportJSON(t *testing.T) {
	r := buildReport(t)
	var buf bytes.Buffer
	if err := Export(&buf, r, FormatJSON); err != nil {
		t.Fatalf("Export: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, k := range []string{"overall_stats", "topic_performance", "weak_areas", "insights", "export_date"} {
		if _, ok := decoded[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
}

func TestExportCSV(t *testing.T) {
	r := buildReport(t)
	var buf bytes.Buffer
	if err := Export(&buf, r, FormatCSV); err != nil {
		t.Fatalf("Export: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	// header + overall + 2 topics + 1 weak area
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want 5: %v", len(rows), rows)
	}
	if rows[1][0] != "overall" || rows[1][4] != "60.00" {
		t.Errorf("overall row = %v", rows[1])
	}
}

func TestExportMarkdown(t *testing.T) {
	r := buildReport(t)
	var buf bytes.Buffer
	if err := Export(&buf, r, FormatMarkdown); err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"# Study report: m1", "## Weak areas", "**Cells**", "| Accuracy | 60.0% |"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestExportUnknownFormat(t *testing.T) {
	if err := Export(&bytes.Buffer{}, &Report{}, Format("xml")); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
	if f, err := ParseFormat(" MD "); err != nil || f != FormatMarkdown {
		t.Errorf("ParseFormat(MD) = %q, %v", f, err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs float64
		want string
	}{
		{5, "5s"},
		{125, "2m 5s"},
		{3725, "1h 2m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.secs); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestBar(t *testing.T) {
	if got := Bar(0.5, 4); got != "██░░" {
		t.Errorf("Bar(0.5,4) = %q", got)
	}
	if got := Bar(2, 3); got != "███" {
		t.Errorf("Bar(2,3) = %q", got)
	}
}
