// Package queue defines message payloads exchanged over the message broker.
package queue

// AssistantEvent is published after an assistant run that changed user
// data: a generated plan or a stored suggestion. It carries enough for
// downstream consumers to log or notify without querying the primary
// database.
type AssistantEvent struct {
	Event      string  `json:"event"` // "plan.generated" or "suggestion.created"
	RunID      string  `json:"run_id"`
	UserID     uint64  `json:"user_id"`
	TaskID     *uint64 `json:"task_id,omitempty"`
	Summary    string  `json:"summary"`
	OccurredAt string  `json:"occurred_at"`
}
