package agent

import (
	"context"

	"github.com/smartflow/backend/internal/llm"
	"github.com/smartflow/backend/internal/model"
)

// Store is the narrow data-access surface the assistant tools may
// touch. repository.AssistantStore implements it; tests substitute
// fakes.
type Store interface {
	GetTask(ctx context.Context, id uint64) (model.Task, error)
	RecentLogs(ctx context.Context, userID uint64, limit int) ([]model.ProductivityLog, error)
	ReplacePlanSteps(ctx context.Context, taskID uint64, steps []model.PlanStepInput) error
	InsertSuggestion(ctx context.Context, s model.Suggestion) (uint64, error)
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
}

// Completer is the completion provider surface the orchestrator and
// the llm_generate tool depend on. *llm.Client implements it.
type Completer interface {
	Chat(ctx context.Context, req llm.Request) (*llm.Result, error)
	Complete(ctx context.Context, prompt string) (string, error)
}
