package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/smartflow/backend/internal/model"
)

// ActivityRepo reads the append-only audit trail. Writes happen
// exclusively through insertActivityTx so that every audit row shares
// a transaction with the mutation it describes.
type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

// ListByUser returns the newest audit entries for a user, newest first.
func (r *ActivityRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,task_id,action,detail,created_at FROM activity_logs WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ActivityLog
	for rows.Next() {
		var (
			a      model.ActivityLog
			taskID sql.NullInt64
			detail []byte
		)
		if err := rows.Scan(&a.ID, &a.UserID, &taskID, &a.Action, &detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			t := uint64(taskID.Int64)
			a.TaskID = &t
		}
		a.Detail = json.RawMessage(detail)
		out = append(out, a)
	}
	return out, rows.Err()
}

// insertActivityTx appends one audit row inside the caller's
// transaction. detail is marshalled to JSON; a marshal failure aborts
// the transaction rather than losing the audit entry.
func insertActivityTx(ctx context.Context, tx *sql.Tx, userID uint64, taskID *uint64, action string, detail any) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	var tid any
	if taskID != nil {
		tid = *taskID
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO activity_logs (user_id, task_id, action, detail) VALUES (?,?,?,?)",
		userID, tid, action, payload)
	return err
}
