package components

import (
	"fmt"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/quizdungeon/internal/combat"
	"github.com/abhisek/quizdungeon/internal/game"
	"github.com/abhisek/quizdungeon/internal/powerup"
	"github.com/abhisek/quizdungeon/internal/questions"
	"github.com/abhisek/quizdungeon/internal/session"
	"github.com/abhisek/quizdungeon/internal/stats"
	"github.com/abhisek/quizdungeon/internal/ui/theme"
)

// SessionView renders the player, the current enemy and dungeon progress.
func SessionView(s *game.GameSession, width int) string {
	inner := width - 6
	lines := []string{
		theme.Title.Render(fmt.Sprintf("Encounter %d/%d", min(s.EncounterIndex, s.TotalEncounters), s.TotalEncounters)) +
			"   " + theme.Score.Render(fmt.Sprintf("Score %d", s.Player.Score)),
		Meter{Label: "You  ", Cur: s.Player.HP, Max: s.Player.MaxHP, Width: inner, Health: true}.View(),
	}
	if s.Player.Shield > 0 {
		lines = append(lines, theme.Subtitle.Render(fmt.Sprintf("Shield %d", s.Player.Shield)))
	}
	if e := s.Enemy; e != nil {
		name := e.Icon + " " + e.Name
		if e.IsBoss {
			name = theme.Defeat.Render(name + " (boss)")
		}
		lines = append(lines,
			"",
			theme.Body.Render(name),
			Meter{Label: "Enemy", Cur: e.HP, Max: e.MaxHP, Width: inner, Health: true}.View(),
		)
	}
	if counts := s.InventoryCounts(); len(counts) > 0 {
		lines = append(lines, "", theme.Hint.Render("Inventory: "+inventoryLine(counts)))
	}
	if s.Boosts.Active() {
		lines = append(lines, theme.Hint.Render(fmt.Sprintf("Boost ready: damage x%.1f, score x%.1f",
			s.Boosts.DamageMultiplier(), s.Boosts.ScoreMultiplier())))
	}
	lines = append(lines, "", Meter{Label: "Dungeon", Cur: max(s.EncounterIndex-1, 0), Max: s.TotalEncounters, Width: inner}.View())

	content := strings.Join(lines, "\n")
	if s.Enemy != nil && s.Enemy.IsBoss {
		return BossCard(content, width)
	}
	return Card(content, width)
}

func inventoryLine(counts map[string]int) string {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s x%d", id, counts[id])
	}
	return strings.Join(parts, ", ")
}

// QuestionView renders a prompt with numbered options.
func QuestionView(p *questions.Prompt, width int) string {
	header := theme.Subtitle.Render(fmt.Sprintf("%s · %s", p.Topic, p.Difficulty))
	if p.Review {
		header += theme.Hint.Render("  (review)")
	}
	lines := []string{header, "", theme.Body.Width(width - 6).Render(p.Text), ""}
	for i, o := range p.Options {
		lines = append(lines, fmt.Sprintf("  %d) %s", i+1, o))
	}
	return Card(strings.Join(lines, "\n"), width)
}

// ResultView summarizes one resolved answer.
func ResultView(res *combat.AnswerResult) string {
	var lines []string
	if res.Correct {
		lines = append(lines, theme.Correct.Render(fmt.Sprintf("Correct! You hit for %d (+%d score)", res.DamageDealt, res.ScoreGained)))
	} else {
		lines = append(lines, theme.Incorrect.Render("Wrong. The answer was "+res.CorrectAnswer))
		hit := fmt.Sprintf("You take %d damage", res.DamageReceived)
		if res.ShieldAbsorbed > 0 {
			hit += fmt.Sprintf(" (%d absorbed by shield)", res.ShieldAbsorbed)
		}
		lines = append(lines, theme.Body.Render(hit))
	}
	if res.Explanation != "" {
		lines = append(lines, theme.Hint.Render(res.Explanation))
	}
	if res.PowerupGranted != "" {
		lines = append(lines, theme.Score.Render("Found a powerup: "+res.PowerupGranted))
	}
	switch {
	case res.GameWon:
		lines = append(lines, theme.Victory.Render(fmt.Sprintf("Victory! Final score %d", res.Score)))
	case res.PlayerDied:
		lines = append(lines, theme.Defeat.Render(fmt.Sprintf("You fell in the dungeon. Final score %d", res.Score)))
	case res.EnemyDefeated && res.DefeatedEnemy != nil:
		lines = append(lines, theme.Victory.Render(res.DefeatedEnemy.Name+" defeated!"))
	}
	return strings.Join(lines, "\n")
}

// PowerupView summarizes a used powerup.
func PowerupView(res *powerup.UseResult) string {
	p := res.Powerup
	var effect string
	switch {
	case res.Healed > 0:
		effect = fmt.Sprintf("healed %d HP", res.Healed)
	case res.ShieldAdd > 0:
		effect = fmt.Sprintf("shield +%d", res.ShieldAdd)
	case res.Boosts.Active():
		effect = "boost ready for the next answer"
	default:
		effect = "no effect"
	}
	return theme.Score.Render(fmt.Sprintf("%s %s: %s", p.Icon, p.Name, effect))
}

// ReportView renders a statistics report.
func ReportView(r *stats.Report, width int) string {
	o := r.Overall
	lines := []string{
		theme.Title.Render("Study report: " + r.Key.MaterialID),
		theme.Subtitle.Render(fmt.Sprintf("%s · level %s", r.Key.PlayerID, r.Insights.Level)),
		"",
		fmt.Sprintf("Answers   %d (%d correct, %.1f%%)", o.TotalAnswers, o.CorrectAnswers, o.Accuracy()*100),
		fmt.Sprintf("Time      %s", stats.FormatDuration(o.TotalTimeSeconds)),
		fmt.Sprintf("Games     %d completed of %d, total score %d", o.CompletedGames, o.GamesPlayed, o.TotalScore),
	}
	if len(r.Topics) > 0 {
		lines = append(lines, "", theme.Body.Bold(true).Render("Topics"))
		nameWidth := 0
		for _, t := range r.Topics {
			nameWidth = max(nameWidth, lipgloss.Width(t.Topic))
		}
		for _, t := range r.Topics {
			lines = append(lines, fmt.Sprintf("  %-*s %s %5.1f%% (%d)",
				nameWidth, t.Topic, stats.Bar(t.Accuracy(), 12), t.Accuracy()*100, t.Attempts))
		}
	}
	if len(r.WeakAreas) > 0 {
		names := make([]string, len(r.WeakAreas))
		for i, t := range r.WeakAreas {
			names[i] = t.Topic
		}
		lines = append(lines, "", theme.Incorrect.Render("Weak areas: "+strings.Join(names, ", ")))
	}
	if len(r.Insights.Recommendations) > 0 {
		lines = append(lines, "")
		for _, rec := range r.Insights.Recommendations {
			lines = append(lines, theme.Hint.Render("• "+rec))
		}
	}
	return Card(strings.Join(lines, "\n"), width)
}

// SavesView lists save slots, newest first.
func SavesView(slots []session.SaveSlot) string {
	if len(slots) == 0 {
		return theme.Hint.Render("No saves.")
	}
	lines := make([]string, 0, len(slots))
	for _, s := range slots {
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			theme.Subtitle.Render(s.ID),
			theme.Body.Render(s.Label),
			theme.Hint.Render(s.CreatedAt.Local().Format("2006-01-02 15:04"))))
	}
	return strings.Join(lines, "\n")
}
