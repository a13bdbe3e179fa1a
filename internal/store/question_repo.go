package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/quizdungeon/internal/game"
	"github.com/abhisek/quizdungeon/internal/questions"
)

// QuestionRepo implements questions.Pool over the questions table.
type QuestionRepo struct {
	db *sql.DB

	mu  sync.Mutex
	rng *rand.Rand
}

var _ questions.Pool = (*QuestionRepo)(nil)

func newQuestionRepo(db *sql.DB) *QuestionRepo {
	return &QuestionRepo{db: db, rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// WithRand replaces the random source used for selection.
func (r *QuestionRepo) WithRand(rng *rand.Rand) *QuestionRepo {
	r.mu.Lock()
	r.rng = rng
	r.mu.Unlock()
	return r
}

var questionColumns = []string{
	"id", "material_id", "topic", "difficulty", "question_type",
	"question_text", "options", "correct_answer", "explanation",
}

// Import upserts records. Existing ids are overwritten.
func (r *QuestionRepo) Import(ctx context.Context, records []*questions.Record) (int, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, rec := range records {
			c := *rec
			c.Normalize()
			opts, err := json.Marshal(c.Options)
			if err != nil {
				return fmt.Errorf("marshal options: %w", err)
			}
			_, err = exec(ctx, tx, builder.Insert("questions").
				Columns(questionColumns...).
				Values(c.ID, c.MaterialID, c.Topic, string(c.Difficulty), string(c.Type),
					c.Text, string(opts), c.CorrectAnswer, c.Explanation).
				OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()))
			if err != nil {
				return game.Persistence("import question", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (r *QuestionRepo) NextQuestion(ctx context.Context, q questions.Query) (*questions.Record, error) {
	pred := entsql.EQ("material_id", q.MaterialID)
	if len(q.Exclude) > 0 {
		ids := make([]any, 0, len(q.Exclude))
		for id := range q.Exclude {
			ids = append(ids, id)
		}
		pred = entsql.And(pred, entsql.NotIn("id", ids...))
	}
	rows, err := query(ctx, r.db, builder.Select(questionColumns...).
		From(builder.Table("questions")).
		Where(pred).
		OrderBy("id"))
	if err != nil {
		return nil, game.Persistence("query questions", err)
	}
	defer rows.Close()

	var candidates []*questions.Record
	for rows.Next() {
		rec, err := scanQuestion(rows)
		if err != nil {
			return nil, game.Persistence("scan question", err)
		}
		candidates = append(candidates, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, game.Persistence("query questions", err)
	}

	r.mu.Lock()
	picked := questions.Pick(candidates, q, r.rng)
	r.mu.Unlock()
	if picked == nil {
		return nil, game.ErrPoolExhausted
	}
	return picked, nil
}

func (r *QuestionRepo) Question(ctx context.Context, id string) (*questions.Record, error) {
	row := queryRow(ctx, r.db, builder.Select(questionColumns...).
		From(builder.Table("questions")).
		Where(entsql.EQ("id", id)))
	rec, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %s: %w", id, game.ErrQuestionNotFound)
	}
	if err != nil {
		return nil, game.Persistence("load question", err)
	}
	return rec, nil
}

func (r *QuestionRepo) Count(ctx context.Context, materialID string) (int, error) {
	var n int
	err := queryRow(ctx, r.db, builder.Select().
		Count().
		From(builder.Table("questions")).
		Where(entsql.EQ("material_id", materialID))).Scan(&n)
	if err != nil {
		return 0, game.Persistence("count questions", err)
	}
	return n, nil
}

// Materials returns the number of questions per material.
func (r *QuestionRepo) Materials(ctx context.Context) (map[string]int, error) {
	t := builder.Table("questions")
	rows, err := query(ctx, r.db, builder.Select(t.C("material_id")).
		AppendSelectExprAs(entsql.Expr("COUNT(*)"), "n").
		From(t).
		GroupBy(t.C("material_id")))
	if err != nil {
		return nil, game.Persistence("list materials", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			material string
			n        int
		)
		if err := rows.Scan(&material, &n); err != nil {
			return nil, game.Persistence("scan material", err)
		}
		out[material] = n
	}
	return out, rows.Err()
}

func scanQuestion(sc interface{ Scan(...any) error }) (*questions.Record, error) {
	var (
		rec        questions.Record
		difficulty string
		qtype      string
		opts       string
	)
	err := sc.Scan(&rec.ID, &rec.MaterialID, &rec.Topic, &difficulty, &qtype,
		&rec.Text, &opts, &rec.CorrectAnswer, &rec.Explanation)
	if err != nil {
		return nil, err
	}
	rec.Difficulty = game.Difficulty(difficulty)
	rec.Type = questions.Type(qtype)
	if err := json.Unmarshal([]byte(opts), &rec.Options); err != nil {
		return nil, fmt.Errorf("decode options of %s: %w", rec.ID, err)
	}
	return &rec, nil
}
