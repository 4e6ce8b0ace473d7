package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/smartflow/backend/internal/model"
)

// TaskRepo provides CRUD operations for tasks. Every mutation appends
// its activity row in the same transaction, so a task write without
// the matching audit entry can never be observed.
type TaskRepo struct{ DB *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{DB: db} }

const taskCols = "id,user_id,title,description,priority,status,due_at,est_minutes,energy_req,completed_at,created_at,updated_at"

// TaskUpdate carries the optional fields of a partial task update.
// Nil pointers leave the corresponding column untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
	DueAt       *time.Time
	EstMinutes  *int
	EnergyReq   *string
}

func scanTask(row interface{ Scan(...any) error }) (model.Task, error) {
	var (
		t           model.Task
		description sql.NullString
		dueAt       sql.NullTime
		estMinutes  sql.NullInt64
		energyReq   sql.NullString
		completedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &description, &t.Priority, &t.Status,
		&dueAt, &estMinutes, &energyReq, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if description.Valid {
		v := description.String
		t.Description = &v
	}
	if dueAt.Valid {
		v := dueAt.Time
		t.DueAt = &v
	}
	if estMinutes.Valid {
		v := int(estMinutes.Int64)
		t.EstMinutes = &v
	}
	if energyReq.Valid {
		v := energyReq.String
		t.EnergyReq = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		t.CompletedAt = &v
	}
	return t, nil
}

// Create inserts a new task with status pending and writes the
// task.created audit row in the same transaction. The stored row is
// read back so callers see database-assigned timestamps.
func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO tasks (user_id, title, description, priority, status, due_at, est_minutes, energy_req) VALUES (?,?,?,?,?,?,?,?)",
		t.UserID, t.Title, nullStr(t.Description), t.Priority, model.StatusPending,
		nullTime(t.DueAt), nullInt(t.EstMinutes), nullStr(t.EnergyReq))
	if err != nil {
		return model.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, err
	}
	taskID := uint64(id)

	if err := insertActivityTx(ctx, tx, t.UserID, &taskID, model.ActionTaskCreated,
		map[string]any{"title": t.Title, "priority": t.Priority}); err != nil {
		return model.Task{}, err
	}

	created, err := scanTask(tx.QueryRowContext(ctx,
		"SELECT "+taskCols+" FROM tasks WHERE id=?", taskID))
	if err != nil {
		return model.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, err
	}
	return created, nil
}

// GetByID fetches a task regardless of ownership. Used by the tool
// layer, which is scoped by the orchestrator's authenticated user
// before it runs.
func (r *TaskRepo) GetByID(ctx context.Context, id uint64) (model.Task, error) {
	t, err := scanTask(r.DB.QueryRowContext(ctx,
		"SELECT "+taskCols+" FROM tasks WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// GetByIDAndOwner fetches a task only when it belongs to userID.
// Missing rows and foreign rows are both reported as ErrNotFound.
func (r *TaskRepo) GetByIDAndOwner(ctx context.Context, id, userID uint64) (model.Task, error) {
	t, err := scanTask(r.DB.QueryRowContext(ctx,
		"SELECT "+taskCols+" FROM tasks WHERE id=? AND user_id=? LIMIT 1", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// ListByOwner returns the user's tasks, optionally filtered by status,
// newest first.
func (r *TaskRepo) ListByOwner(ctx context.Context, userID uint64, status string) ([]model.Task, error) {
	q := "SELECT " + taskCols + " FROM tasks WHERE user_id=?"
	args := []any{userID}
	if status != "" {
		q += " AND status=?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update applies a partial update to a task owned by userID. The row
// is locked for the duration of the transaction, the status change is
// checked against the forward-only transition rule, completed_at is
// set exactly when the task moves to completed, and the task.updated
// audit row is written before commit.
func (r *TaskRepo) Update(ctx context.Context, id, userID uint64, upd TaskUpdate) (model.Task, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanTask(tx.QueryRowContext(ctx,
		"SELECT "+taskCols+" FROM tasks WHERE id=? AND user_id=? FOR UPDATE", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, err
	}

	sets := []string{}
	args := []any{}
	changed := map[string]any{}

	if upd.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, *upd.Title)
		changed["title"] = *upd.Title
	}
	if upd.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *upd.Description)
		changed["description"] = *upd.Description
	}
	if upd.Priority != nil {
		sets = append(sets, "priority=?")
		args = append(args, *upd.Priority)
		changed["priority"] = *upd.Priority
	}
	if upd.DueAt != nil {
		sets = append(sets, "due_at=?")
		args = append(args, *upd.DueAt)
		changed["due_at"] = upd.DueAt.UTC().Format(time.RFC3339)
	}
	if upd.EstMinutes != nil {
		sets = append(sets, "est_minutes=?")
		args = append(args, *upd.EstMinutes)
		changed["est_minutes"] = *upd.EstMinutes
	}
	if upd.EnergyReq != nil {
		sets = append(sets, "energy_req=?")
		args = append(args, *upd.EnergyReq)
		changed["energy_req"] = *upd.EnergyReq
	}
	if upd.Status != nil {
		if !model.CanTransition(cur.Status, *upd.Status) {
			return model.Task{}, ErrInvalidTransition
		}
		sets = append(sets, "status=?")
		args = append(args, *upd.Status)
		changed["status"] = *upd.Status
		if *upd.Status == model.StatusCompleted && cur.CompletedAt == nil {
			sets = append(sets, "completed_at=NOW()")
		}
	}
	if len(sets) == 0 {
		return cur, nil // nothing to change; no audit row for a no-op
	}

	args = append(args, id, userID)
	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ",")+" WHERE id=? AND user_id=?", args...); err != nil {
		return model.Task{}, err
	}

	if err := insertActivityTx(ctx, tx, userID, &id, model.ActionTaskUpdated, changed); err != nil {
		return model.Task{}, err
	}

	updated, err := scanTask(tx.QueryRowContext(ctx,
		"SELECT "+taskCols+" FROM tasks WHERE id=?", id))
	if err != nil {
		return model.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, err
	}
	return updated, nil
}

// Delete removes a task owned by userID. Plan steps and suggestions
// cascade at the schema level; the audit row survives because
// activity_logs carries no task foreign key.
func (r *TaskRepo) Delete(ctx context.Context, id, userID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := insertActivityTx(ctx, tx, userID, &id, model.ActionTaskDeleted, map[string]any{"task_id": id}); err != nil {
		return err
	}
	return tx.Commit()
}

// Nullable argument helpers shared by the repositories in this package.
func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
