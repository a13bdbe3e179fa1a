package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/quizdungeon/internal/game"
	"github.com/abhisek/quizdungeon/internal/session"
)

// SessionRepo implements session.Store and session.SaveStore. Sessions are
// stored as JSON documents next to the indexed columns used for lookups.
type SessionRepo struct {
	db *sql.DB
}

var (
	_ session.Store     = (*SessionRepo)(nil)
	_ session.SaveStore = (*SessionRepo)(nil)
)

func (r *SessionRepo) Load(ctx context.Context, id string) (*game.GameSession, error) {
	var data string
	err := queryRow(ctx, r.db, builder.Select("data").
		From(builder.Table("sessions")).
		Where(entsql.EQ("id", id))).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", id, game.ErrSessionNotFound)
	}
	if err != nil {
		return nil, game.Persistence("load session", err)
	}
	return decodeSession(data)
}

// Store inserts a session at version 1 or updates it when the stored version
// is exactly one below s.Version. Each write is a single statement.
func (r *SessionRepo) Store(ctx context.Context, s *game.GameSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	var res sql.Result
	if s.Version == 1 {
		res, err = exec(ctx, r.db, builder.Insert("sessions").
			Columns("id", "player_id", "material_id", "status", "version", "data", "updated_at").
			Values(s.ID, s.PlayerID, s.MaterialID, string(s.Status), s.Version, string(data), formatTime(s.UpdatedAt)).
			OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()))
	} else {
		res, err = exec(ctx, r.db, builder.Update("sessions").
			Set("status", string(s.Status)).
			Set("version", s.Version).
			Set("data", string(data)).
			Set("updated_at", formatTime(s.UpdatedAt)).
			Where(entsql.And(
				entsql.EQ("id", s.ID),
				entsql.EQ("version", s.Version-1),
			)))
	}
	if err != nil {
		return game.Persistence("store session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return game.Persistence("store session", err)
	}
	if n == 0 {
		return fmt.Errorf("store %s at version %d: %w", s.ID, s.Version, game.ErrVersionConflict)
	}
	return nil
}

func (r *SessionRepo) Active(ctx context.Context, playerID, materialID string) (*game.GameSession, error) {
	var data string
	err := queryRow(ctx, r.db, builder.Select("data").
		From(builder.Table("sessions")).
		Where(entsql.And(
			entsql.EQ("player_id", playerID),
			entsql.EQ("material_id", materialID),
			entsql.EQ("status", string(game.StatusActive)),
		)).
		OrderBy(entsql.Desc("updated_at")).
		Limit(1)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, game.Persistence("load active session", err)
	}
	return decodeSession(data)
}

// DeletePair removes every session of the pair.
func (r *SessionRepo) DeletePair(ctx context.Context, playerID, materialID string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"sessions", "saves"} {
			_, err := exec(ctx, tx, builder.Delete(table).Where(entsql.And(
				entsql.EQ("player_id", playerID),
				entsql.EQ("material_id", materialID),
			)))
			if err != nil {
				return game.Persistence("delete "+table, err)
			}
		}
		return nil
	})
}

func (r *SessionRepo) CreateSave(ctx context.Context, slot *session.SaveSlot) error {
	data, err := json.Marshal(slot.Session)
	if err != nil {
		return fmt.Errorf("marshal save: %w", err)
	}
	_, err = exec(ctx, r.db, builder.Insert("saves").
		Columns("id", "player_id", "material_id", "session_id", "label", "data", "created_at").
		Values(slot.ID, slot.PlayerID, slot.MaterialID, slot.SessionID, slot.Label, string(data), formatTime(slot.CreatedAt)))
	if err != nil {
		return game.Persistence("create save", err)
	}
	return nil
}

var saveColumns = []string{"id", "player_id", "material_id", "session_id", "label", "data", "created_at"}

func scanSave(sc interface{ Scan(...any) error }) (*session.SaveSlot, error) {
	var (
		slot      session.SaveSlot
		data      string
		createdAt string
	)
	if err := sc.Scan(&slot.ID, &slot.PlayerID, &slot.MaterialID, &slot.SessionID, &slot.Label, &data, &createdAt); err != nil {
		return nil, err
	}
	s, err := decodeSession(data)
	if err != nil {
		return nil, err
	}
	slot.Session = s
	if slot.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *SessionRepo) LoadSave(ctx context.Context, id string) (*session.SaveSlot, error) {
	row := queryRow(ctx, r.db, builder.Select(saveColumns...).
		From(builder.Table("saves")).
		Where(entsql.EQ("id", id)))
	slot, err := scanSave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load save %s: %w", id, game.ErrSaveNotFound)
	}
	if err != nil {
		return nil, game.Persistence("load save", err)
	}
	return slot, nil
}

func (r *SessionRepo) ListSaves(ctx context.Context, playerID, materialID string) ([]session.SaveSlot, error) {
	rows, err := query(ctx, r.db, builder.Select(saveColumns...).
		From(builder.Table("saves")).
		Where(entsql.And(
			entsql.EQ("player_id", playerID),
			entsql.EQ("material_id", materialID),
		)).
		OrderBy(entsql.Desc("created_at"), "id"))
	if err != nil {
		return nil, game.Persistence("list saves", err)
	}
	defer rows.Close()

	var out []session.SaveSlot
	for rows.Next() {
		slot, err := scanSave(rows)
		if err != nil {
			return nil, game.Persistence("scan save", err)
		}
		out = append(out, *slot)
	}
	if err := rows.Err(); err != nil {
		return nil, game.Persistence("list saves", err)
	}
	return out, nil
}

func (r *SessionRepo) DeleteSave(ctx context.Context, id string) error {
	res, err := exec(ctx, r.db, builder.Delete("saves").Where(entsql.EQ("id", id)))
	if err != nil {
		return game.Persistence("delete save", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete save %s: %w", id, game.ErrSaveNotFound)
	}
	return nil
}

func decodeSession(data string) (*game.GameSession, error) {
	var s game.GameSession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, game.Persistence("decode session", err)
	}
	return &s, nil
}
