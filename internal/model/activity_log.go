package model

import (
	"encoding/json"
	"time"
)

// Activity action tags written by the repositories. Every mutating
// API call produces exactly one of these.
const (
	ActionTaskCreated       = "task.created"
	ActionTaskUpdated       = "task.updated"
	ActionTaskDeleted       = "task.deleted"
	ActionPlanReplaced      = "plan.replaced"
	ActionStepUpdated       = "plan.step_updated"
	ActionLogCreated        = "log.created"
	ActionSuggestionCreated = "suggestion.created"
	ActionSuggestionApplied = "suggestion.applied"
)

// ActivityLog is an append-only audit record of a state-changing
// action, stored in the `activity_logs` table. The row is written in
// the same transaction as the mutation it describes; one without the
// other is a consistency bug.
type ActivityLog struct {
	ID        uint64          // activity_logs.id
	UserID    uint64          // activity_logs.user_id
	TaskID    *uint64         // activity_logs.task_id (nullable)
	Action    string          // activity_logs.action
	Detail    json.RawMessage // activity_logs.detail
	CreatedAt time.Time       // activity_logs.created_at
}
