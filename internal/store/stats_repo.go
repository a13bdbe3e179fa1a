package store

import (
	"context"
	"database/sql"
	"errors"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/quizdungeon/internal/game"
	"github.com/abhisek/quizdungeon/internal/stats"
)

// StatsRepo implements stats.Repo. Counters are maintained with upserts so
// concurrent recorders never lose increments.
type StatsRepo struct {
	db *sql.DB
}

var _ stats.Repo = (*StatsRepo)(nil)

func pairPredicate(key stats.Key) *entsql.Predicate {
	return entsql.And(
		entsql.EQ("player_id", key.PlayerID),
		entsql.EQ("material_id", key.MaterialID),
	)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *StatsRepo) RecordAttempt(ctx context.Context, key stats.Key, a stats.Attempt) error {
	correct := boolInt(a.Correct)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := exec(ctx, tx, builder.Insert("topic_stats").
			Columns("player_id", "material_id", "topic", "attempts", "correct", "time_seconds").
			Values(key.PlayerID, key.MaterialID, a.Topic, 1, correct, a.ElapsedSeconds).
			OnConflict(
				entsql.ConflictColumns("player_id", "material_id", "topic"),
				entsql.ResolveWith(func(u *entsql.UpdateSet) {
					u.Add("attempts", 1)
					u.Add("correct", correct)
					u.Add("time_seconds", a.ElapsedSeconds)
				}),
			))
		if err != nil {
			return err
		}

		_, err = exec(ctx, tx, builder.Insert("overall_stats").
			Columns("player_id", "material_id", "total_answers", "correct_answers", "total_time_seconds").
			Values(key.PlayerID, key.MaterialID, 1, correct, a.ElapsedSeconds).
			OnConflict(
				entsql.ConflictColumns("player_id", "material_id"),
				entsql.ResolveWith(func(u *entsql.UpdateSet) {
					u.Add("total_answers", 1)
					u.Add("correct_answers", correct)
					u.Add("total_time_seconds", a.ElapsedSeconds)
				}),
			))
		if err != nil {
			return err
		}

		_, err = exec(ctx, tx, builder.Insert("answer_history").
			Columns("player_id", "material_id", "session_id", "question_id", "topic",
				"difficulty", "user_answer", "is_correct", "elapsed_seconds", "answered_at").
			Values(key.PlayerID, key.MaterialID, a.SessionID, a.QuestionID, a.Topic,
				string(a.Difficulty), a.Answer, correct, a.ElapsedSeconds, formatTime(a.AnsweredAt)))
		return err
	})
	return game.Persistence("record attempt", err)
}

func (r *StatsRepo) RecordGame(ctx context.Context, key stats.Key, g stats.GameOutcome) error {
	completed := boolInt(g.Completed())
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := exec(ctx, tx, builder.Insert("game_history").
			Columns("player_id", "material_id", "session_id", "status", "score",
				"encounter_index", "enemies_defeated", "finished_at").
			Values(key.PlayerID, key.MaterialID, g.SessionID, string(g.Status), g.Score,
				g.EncounterIndex, g.EnemiesDefeated, formatTime(g.FinishedAt)))
		if err != nil {
			return err
		}
		_, err = exec(ctx, tx, builder.Insert("overall_stats").
			Columns("player_id", "material_id", "total_score", "games_played", "completed_games").
			Values(key.PlayerID, key.MaterialID, g.Score, 1, completed).
			OnConflict(
				entsql.ConflictColumns("player_id", "material_id"),
				entsql.ResolveWith(func(u *entsql.UpdateSet) {
					u.Add("total_score", g.Score)
					u.Add("games_played", 1)
					u.Add("completed_games", completed)
				}),
			))
		return err
	})
	return game.Persistence("record game", err)
}

func (r *StatsRepo) Topics(ctx context.Context, key stats.Key) ([]stats.TopicStat, error) {
	rows, err := query(ctx, r.db, builder.Select("topic", "attempts", "correct", "time_seconds").
		From(builder.Table("topic_stats")).
		Where(pairPredicate(key)).
		OrderBy("topic"))
	if err != nil {
		return nil, game.Persistence("query topics", err)
	}
	defer rows.Close()

	var out []stats.TopicStat
	for rows.Next() {
		var t stats.TopicStat
		if err := rows.Scan(&t.Topic, &t.Attempts, &t.Correct, &t.TimeSeconds); err != nil {
			return nil, game.Persistence("scan topic", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, game.Persistence("query topics", err)
	}
	return out, nil
}

func (r *StatsRepo) Overall(ctx context.Context, key stats.Key) (stats.OverallStats, error) {
	var o stats.OverallStats
	err := queryRow(ctx, r.db, builder.Select(
		"total_answers", "correct_answers", "total_time_seconds",
		"total_score", "games_played", "completed_games").
		From(builder.Table("overall_stats")).
		Where(pairPredicate(key))).
		Scan(&o.TotalAnswers, &o.CorrectAnswers, &o.TotalTimeSeconds,
			&o.TotalScore, &o.GamesPlayed, &o.CompletedGames)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.OverallStats{}, nil
	}
	if err != nil {
		return stats.OverallStats{}, game.Persistence("query overall", err)
	}
	return o, nil
}

func (r *StatsRepo) RecentAttempts(ctx context.Context, key stats.Key, limit int) ([]stats.Attempt, error) {
	sel := builder.Select("session_id", "question_id", "topic", "difficulty",
		"user_answer", "is_correct", "elapsed_seconds", "answered_at").
		From(builder.Table("answer_history")).
		Where(pairPredicate(key)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	rows, err := query(ctx, r.db, sel)
	if err != nil {
		return nil, game.Persistence("query history", err)
	}
	defer rows.Close()

	var out []stats.Attempt
	for rows.Next() {
		var (
			a          stats.Attempt
			difficulty string
			correct    int
			answeredAt string
		)
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.Topic, &difficulty,
			&a.Answer, &correct, &a.ElapsedSeconds, &answeredAt); err != nil {
			return nil, game.Persistence("scan history", err)
		}
		a.Difficulty = game.Difficulty(difficulty)
		a.Correct = correct == 1
		if a.AnsweredAt, err = parseTime(answeredAt); err != nil {
			return nil, game.Persistence("scan history", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, game.Persistence("query history", err)
	}
	return out, nil
}

func (r *StatsRepo) Reset(ctx context.Context, key stats.Key) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"topic_stats", "overall_stats", "answer_history", "game_history"} {
			if _, err := exec(ctx, tx, builder.Delete(table).Where(pairPredicate(key))); err != nil {
				return err
			}
		}
		return nil
	})
	return game.Persistence("reset stats", err)
}
