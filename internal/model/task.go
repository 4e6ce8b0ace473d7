package model

import "time"

// Task priority levels accepted by the API and stored in tasks.priority.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task status values. Transitions move forward only
// (pending → in_progress → completed); cancellation is allowed
// from any non-terminal state.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Energy requirement labels stored in tasks.energy_req.
const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"
)

// Task represents a row in the `tasks` table. Every task is owned
// by exactly one user; deleting the user cascades to the task and
// its plan steps and suggestions.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owning user.
//  Title       – short task title (required).
//  Description – optional free-text description.
//  Priority    – low | medium | high.
//  Status      – pending | in_progress | completed | cancelled.
//  DueAt       – optional due timestamp.
//  EstMinutes  – optional estimated effort in minutes.
//  EnergyReq   – optional energy requirement (low | medium | high).
//  CompletedAt – set exactly when Status becomes completed.
type Task struct {
	ID          uint64     // tasks.id
	UserID      uint64     // tasks.user_id
	Title       string     // tasks.title
	Description *string    // tasks.description (nullable)
	Priority    string     // tasks.priority
	Status      string     // tasks.status
	DueAt       *time.Time // tasks.due_at (nullable)
	EstMinutes  *int       // tasks.est_minutes (nullable)
	EnergyReq   *string    // tasks.energy_req (nullable)
	CompletedAt *time.Time // tasks.completed_at (nullable)
	CreatedAt   time.Time  // tasks.created_at
	UpdatedAt   time.Time  // tasks.updated_at
}

// ValidPriority reports whether p is one of the accepted priority labels.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidStatus reports whether s is one of the accepted task statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidEnergy reports whether e is one of the accepted energy labels.
func ValidEnergy(e string) bool {
	return e == EnergyLow || e == EnergyMedium || e == EnergyHigh
}

// statusRank orders task statuses along the forward-only axis.
// Cancelled is terminal but reachable from any non-terminal state.
var statusRank = map[string]int{
	StatusPending:    0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

// CanTransition reports whether a task may move from status `from`
// to status `to`. Same-status updates are allowed (no-op writes of
// other fields carry the current status).
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	if from == StatusCompleted || from == StatusCancelled {
		return false // terminal states
	}
	if to == StatusCancelled {
		return true
	}
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	return ok1 && ok2 && tr > fr
}
