package stats

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Format is an export representation.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts json, csv, markdown and md.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatMarkdown:
		return "text/markdown"
	default:
		return "application/json"
	}
}

// Report is everything an export contains.
type Report struct {
	Key            Key          `json:"key"`
	GeneratedAt    time.Time    `json:"export_date"`
	Overall        OverallStats `json:"overall_stats"`
	Accuracy       float64      `json:"accuracy"`
	Topics         []TopicStat  `json:"topic_performance"`
	WeakAreas      []TopicStat  `json:"weak_areas"`
	RecentActivity []Attempt    `json:"recent_activity"`
	Insights       Insights     `json:"insights"`
}

// ReportOptions tunes BuildReport.
type ReportOptions struct {
	MinAttempts int
	Cutoff      float64
	RecentLimit int
	Now         time.Time
}

// BuildReport gathers a Report for key.
func (a *Aggregator) BuildReport(ctx context.Context, key Key, opts ReportOptions) (*Report, error) {
	overall, err := a.Overall(ctx, key)
	if err != nil {
		return nil, err
	}
	topics, err := a.Topics(ctx, key)
	if err != nil {
		return nil, err
	}
	recent, err := a.Recent(ctx, key, opts.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent activity: %w", err)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	if recent == nil {
		recent = []Attempt{}
	}
	weak := WeakAreas(topics, opts.MinAttempts, opts.Cutoff)
	if weak == nil {
		weak = []TopicStat{}
	}
	if topics == nil {
		topics = []TopicStat{}
	}
	return &Report{
		Key:            key,
		GeneratedAt:    now,
		Overall:        overall,
		Accuracy:       overall.Accuracy(),
		Topics:         topics,
		WeakAreas:      weak,
		RecentActivity: recent,
		Insights:       BuildInsights(overall, topics),
	}, nil
}

// Export writes r to w in format f.
func Export(w io.Writer, r *Report, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatCSV:
		return exportCSV(w, r)
	case FormatMarkdown:
		_, err := io.WriteString(w, markdown(r))
		return err
	}
	return fmt.Errorf("unknown export format %q", f)
}

func exportCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "topic", "attempts", "correct", "accuracy_percent", "time_seconds"},
	}
	pct := func(v float64) string { return strconv.FormatFloat(v*100, 'f', 2, 64) }
	secs := func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }

	rows = append(rows, []string{"overall", "",
		strconv.Itoa(r.Overall.TotalAnswers), strconv.Itoa(r.Overall.CorrectAnswers),
		pct(r.Overall.Accuracy()), secs(r.Overall.TotalTimeSeconds)})
	for _, t := range r.Topics {
		rows = append(rows, []string{"topic", t.Topic,
			strconv.Itoa(t.Attempts), strconv.Itoa(t.Correct), pct(t.Accuracy()), secs(t.TimeSeconds)})
	}
	for _, t := range r.WeakAreas {
		rows = append(rows, []string{"weak_area", t.Topic,
			strconv.Itoa(t.Attempts), strconv.Itoa(t.Correct), pct(t.Accuracy()), secs(t.TimeSeconds)})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func markdown(r *Report) string {
	var b strings.Builder
	o := r.Overall

	fmt.Fprintf(&b, "# Study report: %s\n\n", r.Key.MaterialID)
	fmt.Fprintf(&b, "Learner: %s  \nGenerated: %s\n\n", r.Key.PlayerID, r.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Overall\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Answers | %d |\n", o.TotalAnswers)
	fmt.Fprintf(&b, "| Correct | %d |\n", o.CorrectAnswers)
	fmt.Fprintf(&b, "| Accuracy | %.1f%% |\n", o.Accuracy()*100)
	fmt.Fprintf(&b, "| Time answering | %s |\n", FormatDuration(o.TotalTimeSeconds))
	fmt.Fprintf(&b, "| Total score | %d |\n", o.TotalScore)
	fmt.Fprintf(&b, "| Games completed | %d / %d |\n", o.CompletedGames, o.GamesPlayed)
	fmt.Fprintf(&b, "| Level | %s |\n\n", r.Insights.Level)

	if len(r.Topics) > 0 {
		b.WriteString("## Topics\n\n| Topic | Attempts | Accuracy | |\n|---|---|---|---|\n")
		for _, t := range r.Topics {
			fmt.Fprintf(&b, "| %s | %d | %.1f%% | %s |\n", t.Topic, t.Attempts, t.Accuracy()*100, Bar(t.Accuracy(), 10))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Weak areas\n\n")
	if len(r.WeakAreas) == 0 {
		b.WriteString("No weak areas with enough attempts yet.\n\n")
	} else {
		for i, t := range r.WeakAreas {
			fmt.Fprintf(&b, "%d. **%s**: %.1f%% over %d attempts\n", i+1, t.Topic, t.Accuracy()*100, t.Attempts)
		}
		b.WriteString("\n")
	}

	if len(r.Insights.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for _, rec := range r.Insights.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	if len(r.RecentActivity) > 0 {
		b.WriteString("## Recent activity\n\n| When | Topic | Result |\n|---|---|---|\n")
		for _, a := range r.RecentActivity {
			mark := "wrong"
			if a.Correct {
				mark = "correct"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", a.AnsweredAt.Format("2006-01-02 15:04"), a.Topic, mark)
		}
	}
	return b.String()
}

// FormatDuration renders seconds as "1h 2m", "3m 4s" or "5s".
func FormatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// Bar renders a fraction in [0,1] as a fixed-width text bar.
func Bar(frac float64, width int) string {
	frac = min(max(frac, 0), 1)
	filled := int(frac*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
