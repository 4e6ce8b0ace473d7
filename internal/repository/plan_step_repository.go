package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/smartflow/backend/internal/model"
)

// PlanStepRepo manages the plan step sets attached to tasks. Plan
// regeneration is a delete-then-insert executed in one transaction;
// the task row is locked first so concurrent regenerations for the
// same task serialize instead of interleaving deletes and inserts.
type PlanStepRepo struct{ DB *sql.DB }

func NewPlanStepRepo(db *sql.DB) *PlanStepRepo { return &PlanStepRepo{DB: db} }

// Replace swaps the whole step set of a task for the given steps.
// All steps start as pending. Readers never observe a partial set:
// either the transaction commits with old steps gone and new steps in
// place, or it rolls back leaving the old set intact. Returns
// ErrNotFound when the task does not exist.
func (r *PlanStepRepo) Replace(ctx context.Context, taskID uint64, steps []model.PlanStepInput) error {
	if _, ok := model.ValidateSteps(steps); !ok {
		return errors.New("invalid plan steps")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the parent task row. This is what serializes concurrent
	// regeneration per task.
	var userID uint64
	err = tx.QueryRowContext(ctx,
		"SELECT user_id FROM tasks WHERE id=? FOR UPDATE", taskID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM plan_steps WHERE task_id=?", taskID); err != nil {
		return err
	}

	q := "INSERT INTO plan_steps (task_id, step_order, text, status, est_minutes) VALUES "
	args := make([]any, 0, len(steps)*5)
	for i, s := range steps {
		if i > 0 {
			q += ","
		}
		q += "(?,?,?,?,?)"
		args = append(args, taskID, s.Order, s.Text, model.StepPending, nullInt(s.EstMinutes))
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return err
	}

	if err := insertActivityTx(ctx, tx, userID, &taskID, model.ActionPlanReplaced,
		map[string]any{"steps": len(steps)}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListByTask returns the ordered plan of a task.
func (r *PlanStepRepo) ListByTask(ctx context.Context, taskID uint64) ([]model.PlanStep, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,task_id,parent_id,step_order,text,status,est_minutes,actual_minutes,created_at FROM plan_steps WHERE task_id=? ORDER BY step_order ASC",
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlanStep
	for rows.Next() {
		var (
			s        model.PlanStep
			parentID sql.NullInt64
			est      sql.NullInt64
			actual   sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.TaskID, &parentID, &s.StepOrder, &s.Text, &s.Status, &est, &actual, &s.CreatedAt); err != nil {
			return nil, err
		}
		if parentID.Valid {
			v := uint64(parentID.Int64)
			s.ParentID = &v
		}
		if est.Valid {
			v := int(est.Int64)
			s.EstMinutes = &v
		}
		if actual.Valid {
			v := int(actual.Int64)
			s.ActualMinutes = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateProgress records work on a single step: a new status and/or
// the actual minutes spent. Ownership flows through the task join so a
// foreign step is indistinguishable from a missing one.
func (r *PlanStepRepo) UpdateProgress(ctx context.Context, stepID, taskID, userID uint64, status *string, actualMinutes *int) error {
	if status == nil && actualMinutes == nil {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists uint64
	err = tx.QueryRowContext(ctx,
		"SELECT s.id FROM plan_steps s JOIN tasks t ON t.id=s.task_id WHERE s.id=? AND s.task_id=? AND t.user_id=? FOR UPDATE",
		stepID, taskID, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	detail := map[string]any{"step_id": stepID}
	if status != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE plan_steps SET status=? WHERE id=?", *status, stepID); err != nil {
			return err
		}
		detail["status"] = *status
	}
	if actualMinutes != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE plan_steps SET actual_minutes=? WHERE id=?", *actualMinutes, stepID); err != nil {
			return err
		}
		detail["actual_minutes"] = *actualMinutes
	}

	if err := insertActivityTx(ctx, tx, userID, &taskID, model.ActionStepUpdated, detail); err != nil {
		return err
	}
	return tx.Commit()
}
