package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/smartflow/backend/internal/model"
)

// LogRepo stores productivity logs. Rows are immutable once created;
// there is deliberately no update or delete path.
type LogRepo struct{ DB *sql.DB }

func NewLogRepo(db *sql.DB) *LogRepo { return &LogRepo{DB: db} }

// Insert creates one productivity log and its audit row in the same
// transaction, returning the new id.
func (r *LogRepo) Insert(ctx context.Context, l model.ProductivityLog) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var ctxArg any
	if len(l.Context) > 0 {
		ctxArg = []byte(l.Context)
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO productivity_logs (user_id, focus_score, energy_level, context) VALUES (?,?,?,?)",
		l.UserID, l.FocusScore, l.EnergyLevel, ctxArg)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := insertActivityTx(ctx, tx, l.UserID, nil, model.ActionLogCreated,
		map[string]any{"focus_score": l.FocusScore, "energy_level": l.EnergyLevel}); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListRecent returns up to limit logs for a user, newest first.
func (r *LogRepo) ListRecent(ctx context.Context, userID uint64, limit int) ([]model.ProductivityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,ts,focus_score,energy_level,context FROM productivity_logs WHERE user_id=? ORDER BY ts DESC, id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProductivityLog
	for rows.Next() {
		var (
			l   model.ProductivityLog
			raw []byte
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.TS, &l.FocusScore, &l.EnergyLevel, &raw); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			l.Context = json.RawMessage(raw)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
