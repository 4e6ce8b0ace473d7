package model

import "time"

// Plan step status values. Unlike tasks, a step may be skipped.
const (
	StepPending    = "pending"
	StepInProgress = "in_progress"
	StepCompleted  = "completed"
	StepSkipped    = "skipped"
)

// PlanStep represents one ordered unit of work generated for a task,
// stored in the `plan_steps` table. StepOrder values define a total
// ordering within a task and are unique per task. Regenerating a plan
// replaces the whole step set for the task atomically.
type PlanStep struct {
	ID            uint64    // plan_steps.id
	TaskID        uint64    // plan_steps.task_id
	ParentID      *uint64   // plan_steps.parent_id (nullable, sub-steps)
	StepOrder     int       // plan_steps.step_order (positive, unique per task)
	Text          string    // plan_steps.text
	Status        string    // plan_steps.status
	EstMinutes    *int      // plan_steps.est_minutes (nullable)
	ActualMinutes *int      // plan_steps.actual_minutes (nullable)
	CreatedAt     time.Time // plan_steps.created_at
}

// ValidStepStatus reports whether s is an accepted plan step status.
func ValidStepStatus(s string) bool {
	switch s {
	case StepPending, StepInProgress, StepCompleted, StepSkipped:
		return true
	}
	return false
}

// PlanStepInput carries a single step for plan replacement. Order
// must be positive and Text non-empty; ValidateSteps enforces both
// plus order uniqueness across the batch.
type PlanStepInput struct {
	Order      int    `json:"order"`
	Text       string `json:"text"`
	EstMinutes *int   `json:"est_minutes,omitempty"`
}

// ValidateSteps checks a replacement batch: at least one step, every
// order positive and unique, every text non-empty. It returns the
// offending index and false on the first violation.
func ValidateSteps(steps []PlanStepInput) (int, bool) {
	if len(steps) == 0 {
		return -1, false
	}
	seen := make(map[int]bool, len(steps))
	for i, s := range steps {
		if s.Order <= 0 || s.Text == "" || seen[s.Order] {
			return i, false
		}
		seen[s.Order] = true
	}
	return -1, true
}
