package stats

import (
	"context"
	"time"

	"github.com/abhisek/quizdungeon/internal/game"
)

// Key scopes statistics to one learner and one study material.
type Key struct {
	PlayerID   string `json:"player_id"`
	MaterialID string `json:"material_id"`
}

// Attempt is one answered question.
type Attempt struct {
	SessionID      string          `json:"session_id"`
	QuestionID     string          `json:"question_id"`
	Topic          string          `json:"topic"`
	Difficulty     game.Difficulty `json:"difficulty"`
	Answer         string          `json:"user_answer"`
	Correct        bool            `json:"is_correct"`
	ElapsedSeconds float64         `json:"elapsed_seconds"`
	AnsweredAt     time.Time       `json:"answered_at"`
}

// TopicStat is the rolling performance for one topic.
type TopicStat struct {
	Topic       string  `json:"topic"`
	Attempts    int     `json:"attempts"`
	Correct     int     `json:"correct"`
	TimeSeconds float64 `json:"time_seconds"`
}

// Accuracy returns Correct/Attempts, or 0 with no attempts.
func (t TopicStat) Accuracy() float64 {
	if t.Attempts == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Attempts)
}

// OverallStats aggregates every topic for one Key.
type OverallStats struct {
	TotalAnswers     int     `json:"total_answers"`
	CorrectAnswers   int     `json:"correct_answers"`
	TotalTimeSeconds float64 `json:"total_time_seconds"`
	TotalScore       int     `json:"total_score"`
	GamesPlayed      int     `json:"games_played"`
	CompletedGames   int     `json:"completed_games"`
}

// Accuracy returns CorrectAnswers/TotalAnswers, or 0 with no answers.
func (o OverallStats) Accuracy() float64 {
	if o.TotalAnswers == 0 {
		return 0
	}
	return float64(o.CorrectAnswers) / float64(o.TotalAnswers)
}

// GameOutcome is recorded once per finished session.
type GameOutcome struct {
	SessionID       string      `json:"session_id"`
	Status          game.Status `json:"status"`
	Score           int         `json:"score"`
	EncounterIndex  int         `json:"encounter_index"`
	EnemiesDefeated int         `json:"enemies_defeated"`
	FinishedAt      time.Time   `json:"finished_at"`
}

// Completed reports whether the game was won.
func (g GameOutcome) Completed() bool {
	return g.Status == game.StatusWon
}

// Repo persists statistics. RecordAttempt must update the topic row, the
// overall row and the history atomically.
type Repo interface {
	RecordAttempt(ctx context.Context, key Key, a Attempt) error
	RecordGame(ctx context.Context, key Key, g GameOutcome) error
	Topics(ctx context.Context, key Key) ([]TopicStat, error)
	Overall(ctx context.Context, key Key) (OverallStats, error)
	RecentAttempts(ctx context.Context, key Key, limit int) ([]Attempt, error)
	Reset(ctx context.Context, key Key) error
}
