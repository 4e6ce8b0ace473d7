package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/smartflow/backend/internal/model"
)

// SuggestionRepo stores assistant suggestions. After creation the
// only permitted mutation is marking a suggestion applied.
type SuggestionRepo struct{ DB *sql.DB }

func NewSuggestionRepo(db *sql.DB) *SuggestionRepo { return &SuggestionRepo{DB: db} }

// Insert creates a suggestion and its audit row in one transaction,
// returning the new id. A task-scoped suggestion must reference an
// existing task; the foreign key refuses dangling references and the
// violation surfaces as ErrNotFound.
func (r *SuggestionRepo) Insert(ctx context.Context, s model.Suggestion) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var reason any
	if len(s.Reason) > 0 {
		reason = []byte(s.Reason)
	}
	var confidence any
	if s.Confidence != nil {
		confidence = *s.Confidence
	}
	var taskID any
	if s.TaskID != nil {
		taskID = *s.TaskID
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO suggestions (user_id, task_id, message, reason, confidence) VALUES (?,?,?,?,?)",
		s.UserID, taskID, s.Message, reason, confidence)
	if err != nil {
		if isFKViolation(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := insertActivityTx(ctx, tx, s.UserID, s.TaskID, model.ActionSuggestionCreated,
		map[string]any{"suggestion_id": uint64(id)}); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByUser returns the user's suggestions, newest first.
func (r *SuggestionRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Suggestion, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,task_id,message,reason,confidence,applied,created_at FROM suggestions WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Suggestion
	for rows.Next() {
		var (
			s          model.Suggestion
			taskID     sql.NullInt64
			reason     []byte
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &s.UserID, &taskID, &s.Message, &reason, &confidence, &s.Applied, &s.CreatedAt); err != nil {
			return nil, err
		}
		if taskID.Valid {
			v := uint64(taskID.Int64)
			s.TaskID = &v
		}
		if len(reason) > 0 {
			s.Reason = json.RawMessage(reason)
		}
		if confidence.Valid {
			v := confidence.Float64
			s.Confidence = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkApplied flips the applied flag on a suggestion owned by userID.
func (r *SuggestionRepo) MarkApplied(ctx context.Context, id, userID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var taskID sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT task_id FROM suggestions WHERE id=? AND user_id=? FOR UPDATE", id, userID).Scan(&taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "UPDATE suggestions SET applied=1 WHERE id=?", id); err != nil {
		return err
	}

	var tid *uint64
	if taskID.Valid {
		v := uint64(taskID.Int64)
		tid = &v
	}
	if err := insertActivityTx(ctx, tx, userID, tid, model.ActionSuggestionApplied,
		map[string]any{"suggestion_id": id}); err != nil {
		return err
	}
	return tx.Commit()
}

// isFKViolation detects MySQL error 1452 (foreign key constraint fails).
func isFKViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1452")
}
