package repository

import (
	"context"

	"github.com/smartflow/backend/internal/model"
)

// AssistantStore bundles the repositories the assistant tools are
// allowed to touch behind one value. It satisfies the agent package's
// Store interface without the agent knowing about SQL.
type AssistantStore struct {
	Tasks       *TaskRepo
	Logs        *LogRepo
	Steps       *PlanStepRepo
	Suggestions *SuggestionRepo
}

func NewAssistantStore(tasks *TaskRepo, logs *LogRepo, steps *PlanStepRepo, suggestions *SuggestionRepo) *AssistantStore {
	return &AssistantStore{Tasks: tasks, Logs: logs, Steps: steps, Suggestions: suggestions}
}

func (s *AssistantStore) GetTask(ctx context.Context, id uint64) (model.Task, error) {
	return s.Tasks.GetByID(ctx, id)
}

func (s *AssistantStore) RecentLogs(ctx context.Context, userID uint64, limit int) ([]model.ProductivityLog, error) {
	return s.Logs.ListRecent(ctx, userID, limit)
}

func (s *AssistantStore) ReplacePlanSteps(ctx context.Context, taskID uint64, steps []model.PlanStepInput) error {
	return s.Steps.Replace(ctx, taskID, steps)
}

func (s *AssistantStore) InsertSuggestion(ctx context.Context, sg model.Suggestion) (uint64, error) {
	return s.Suggestions.Insert(ctx, sg)
}

func (s *AssistantStore) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	return s.Tasks.Create(ctx, t)
}
