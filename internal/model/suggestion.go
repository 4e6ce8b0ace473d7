package model

import (
	"encoding/json"
	"time"
)

// Suggestion is a persisted piece of advice generated for a user,
// optionally scoped to one task. Reason holds the structured payload
// the assistant used to justify the suggestion; Confidence, when
// present, is bounded to [0,1]. The only mutation after creation is
// marking the suggestion applied.
type Suggestion struct {
	ID         uint64          // suggestions.id
	UserID     uint64          // suggestions.user_id
	TaskID     *uint64         // suggestions.task_id (nullable)
	Message    string          // suggestions.message
	Reason     json.RawMessage // suggestions.reason (nullable)
	Confidence *float64        // suggestions.confidence (nullable)
	Applied    bool            // suggestions.applied
	CreatedAt  time.Time       // suggestions.created_at
}
