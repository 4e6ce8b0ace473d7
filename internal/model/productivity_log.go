package model

import (
	"encoding/json"
	"time"
)

// ProductivityLog is an immutable record of one logged work session,
// stored in the `productivity_logs` table. FocusScore and EnergyLevel
// are both bounded to [0,1]; Context carries optional free-form
// session metadata as JSON.
type ProductivityLog struct {
	ID          uint64          // productivity_logs.id
	UserID      uint64          // productivity_logs.user_id
	TS          time.Time       // productivity_logs.ts
	FocusScore  float64         // productivity_logs.focus_score
	EnergyLevel float64         // productivity_logs.energy_level
	Context     json.RawMessage // productivity_logs.context (nullable)
}

// ValidScore reports whether v lies in the closed interval [0,1].
// Used for both focus scores and energy levels.
func ValidScore(v float64) bool {
	return v >= 0.0 && v <= 1.0
}
