package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		player_id   TEXT NOT NULL,
		material_id TEXT NOT NULL,
		status      TEXT NOT NULL,
		version     INTEGER NOT NULL,
		data        TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_pair_status ON sessions (player_id, material_id, status)`,
	`CREATE TABLE IF NOT EXISTS saves (
		id          TEXT PRIMARY KEY,
		player_id   TEXT NOT NULL,
		material_id TEXT NOT NULL,
		session_id  TEXT NOT NULL,
		label       TEXT NOT NULL,
		data        TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS saves_pair ON saves (player_id, material_id)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id             TEXT PRIMARY KEY,
		material_id    TEXT NOT NULL,
		topic          TEXT NOT NULL,
		difficulty     TEXT NOT NULL,
		question_type  TEXT NOT NULL,
		question_text  TEXT NOT NULL,
		options        TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		explanation    TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS questions_material ON questions (material_id)`,
	`CREATE TABLE IF NOT EXISTS topic_stats (
		player_id    TEXT NOT NULL,
		material_id  TEXT NOT NULL,
		topic        TEXT NOT NULL,
		attempts     INTEGER NOT NULL DEFAULT 0,
		correct      INTEGER NOT NULL DEFAULT 0,
		time_seconds REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (player_id, material_id, topic)
	)`,
	`CREATE TABLE IF NOT EXISTS overall_stats (
		player_id          TEXT NOT NULL,
		material_id        TEXT NOT NULL,
		total_answers      INTEGER NOT NULL DEFAULT 0,
		correct_answers    INTEGER NOT NULL DEFAULT 0,
		total_time_seconds REAL NOT NULL DEFAULT 0,
		total_score        INTEGER NOT NULL DEFAULT 0,
		games_played       INTEGER NOT NULL DEFAULT 0,
		completed_games    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (player_id, material_id)
	)`,
	`CREATE TABLE IF NOT EXISTS answer_history (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id       TEXT NOT NULL,
		material_id     TEXT NOT NULL,
		session_id      TEXT NOT NULL,
		question_id     TEXT NOT NULL,
		topic           TEXT NOT NULL,
		difficulty      TEXT NOT NULL,
		user_answer     TEXT NOT NULL,
		is_correct      INTEGER NOT NULL,
		elapsed_seconds REAL NOT NULL,
		answered_at     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS answer_history_pair ON answer_history (player_id, material_id)`,
	`CREATE TABLE IF NOT EXISTS game_history (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id        TEXT NOT NULL,
		material_id      TEXT NOT NULL,
		session_id       TEXT NOT NULL,
		status           TEXT NOT NULL,
		score            INTEGER NOT NULL,
		encounter_index  INTEGER NOT NULL,
		enemies_defeated INTEGER NOT NULL,
		finished_at      TEXT NOT NULL
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
