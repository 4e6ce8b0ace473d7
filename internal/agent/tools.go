package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smartflow/backend/internal/model"
	"github.com/smartflow/backend/internal/repository"
)

// recentLogLimit caps get_recent_logs output.
const recentLogLimit = 5

// id accepts a positive integer encoded either as a JSON number or a
// numeric string, since models are inconsistent about which they emit.
type id uint64

func (v *id) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return fmt.Errorf("invalid id %q", s)
	}
	*v = id(n)
	return nil
}

// NewToolset builds the fixed tool registry for one orchestrator run,
// bound to the authenticated user. Binding happens here rather than in
// the HTTP layer so that no tool invocation can cross user boundaries
// regardless of what identifiers the model writes into its arguments.
func NewToolset(store Store, completer Completer, userID uint64) *Registry {
	r := NewRegistry()
	r.Register(&ToolDef{
		Name:        "get_task_info",
		Description: "Fetch a task by task_id and return its fields (id, title, description, due_at, est_minutes, energy_req, priority) as JSON.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"task_id":{"type":"integer","description":"numeric task id"}},"required":["task_id"]}`),
		Handler:     getTaskInfo(store, userID),
	})
	r.Register(&ToolDef{
		Name:        "get_recent_logs",
		Description: "Return the user's 5 most recent productivity logs (ts, focus_score, energy_level) as a JSON array, newest first.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"user_id":{"type":"integer","description":"numeric user id"}},"required":["user_id"]}`),
		Handler:     getRecentLogs(store, userID),
	})
	r.Register(&ToolDef{
		Name:        "insert_plan_steps",
		Description: "Replace the plan of a task with the given ordered steps. Input: {task_id, steps:[{order,text}]}. The previous steps are discarded.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"task_id":{"type":"integer"},"steps":{"type":"array","items":{"type":"object","properties":{"order":{"type":"integer"},"text":{"type":"string"}},"required":["order","text"]}}},"required":["task_id","steps"]}`),
		Handler:     insertPlanSteps(store, userID),
	})
	r.Register(&ToolDef{
		Name:        "insert_suggestion",
		Description: "Persist a suggestion for the user. Input: {user_id, message, task_id?, reason?, confidence?}; confidence must lie in [0,1].",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"user_id":{"type":"integer"},"message":{"type":"string"},"task_id":{"type":"integer"},"reason":{"type":"object"},"confidence":{"type":"number"}},"required":["user_id","message"]}`),
		Handler:     insertSuggestion(store, userID),
	})
	r.Register(&ToolDef{
		Name:        "create_task",
		Description: "Create a new pending task for the user. Input: {user_id, title, description?, priority?} with priority low|medium|high.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"user_id":{"type":"integer"},"title":{"type":"string"},"description":{"type":"string"},"priority":{"type":"string","enum":["low","medium","high"]}},"required":["user_id","title"]}`),
		Handler:     createTask(store, userID),
	})
	r.Register(&ToolDef{
		Name:        "llm_generate",
		Description: "Send a free-text prompt to the completion model and return the generated text.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"prompt":{"type":"string"}},"required":["prompt"]}`),
		Handler:     llmGenerate(completer),
	})
	return r
}

func getTaskInfo(store Store, userID uint64) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var in struct {
			TaskID id `json:"task_id"`
		}
		if err := json.Unmarshal(input, &in); err != nil || in.TaskID == 0 {
			return "", errors.New("invalid task_id format")
		}
		t, err := store.GetTask(ctx, uint64(in.TaskID))
		if err != nil || t.UserID != userID {
			// Foreign tasks look exactly like missing ones.
			if err == nil || errors.Is(err, repository.ErrNotFound) {
				return "", fmt.Errorf("task %d does not exist", in.TaskID)
			}
			return "", fmt.Errorf("load task: %w", err)
		}
		out := map[string]any{
			"id":          t.ID,
			"title":       t.Title,
			"description": "",
			"due_at":      nil,
			"est_minutes": t.EstMinutes,
			"energy_req":  t.EnergyReq,
			"priority":    t.Priority,
		}
		if t.Description != nil {
			out["description"] = *t.Description
		}
		if t.DueAt != nil {
			out["due_at"] = t.DueAt.UTC().Format(time.RFC3339)
		}
		b, err := json.Marshal(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func getRecentLogs(store Store, userID uint64) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var in struct {
			UserID id `json:"user_id"`
		}
		if err := json.Unmarshal(input, &in); err != nil || in.UserID == 0 {
			return "", errors.New("invalid user_id format")
		}
		if uint64(in.UserID) != userID {
			return "", errors.New("user_id does not match the current user")
		}
		logs, err := store.RecentLogs(ctx, userID, recentLogLimit)
		if err != nil {
			return "", fmt.Errorf("load logs: %w", err)
		}
		out := make([]map[string]any, 0, len(logs))
		for _, l := range logs {
			out = append(out, map[string]any{
				"ts":           l.TS.UTC().Format(time.RFC3339),
				"focus_score":  l.FocusScore,
				"energy_level": l.EnergyLevel,
			})
		}
		b, err := json.Marshal(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func insertPlanSteps(store Store, userID uint64) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var in struct {
			TaskID id                    `json:"task_id"`
			Steps  []model.PlanStepInput `json:"steps"`
		}
		if err := json.Unmarshal(input, &in); err != nil {
			return "", errors.New("invalid JSON in insert_plan_steps")
		}
		if in.TaskID == 0 || in.Steps == nil {
			return "", errors.New("missing 'task_id' or 'steps'")
		}
		if i, ok := model.ValidateSteps(in.Steps); !ok {
			if i >= 0 {
				return "", fmt.Errorf("step %d requires a positive unique 'order' and non-empty 'text'", i+1)
			}
			return "", errors.New("'steps' must contain at least one step")
		}
		t, err := store.GetTask(ctx, uint64(in.TaskID))
		if err != nil || t.UserID != userID {
			if err == nil || errors.Is(err, repository.ErrNotFound) {
				return "", fmt.Errorf("task %d does not exist", in.TaskID)
			}
			return "", fmt.Errorf("load task: %w", err)
		}
		if err := store.ReplacePlanSteps(ctx, uint64(in.TaskID), in.Steps); err != nil {
			return "", fmt.Errorf("insert plan steps: %w", err)
		}
		return fmt.Sprintf("plan steps saved for task %d (%d steps)", in.TaskID, len(in.Steps)), nil
	}
}

func insertSuggestion(store Store, userID uint64) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var in struct {
			UserID     id              `json:"user_id"`
			TaskID     *id             `json:"task_id"`
			Message    string          `json:"message"`
			Reason     json.RawMessage `json:"reason"`
			Confidence *float64        `json:"confidence"`
		}
		if err := json.Unmarshal(input, &in); err != nil {
			return "", errors.New("invalid JSON in insert_suggestion")
		}
		if in.UserID == 0 || strings.TrimSpace(in.Message) == "" {
			return "", errors.New("missing 'user_id' or 'message'")
		}
		if uint64(in.UserID) != userID {
			return "", errors.New("user_id does not match the current user")
		}
		if in.Confidence != nil && !model.ValidScore(*in.Confidence) {
			return "", errors.New("confidence must lie in [0,1]")
		}
		s := model.Suggestion{
			UserID:     userID,
			Message:    strings.TrimSpace(in.Message),
			Reason:     in.Reason,
			Confidence: in.Confidence,
		}
		if in.TaskID != nil {
			tid := uint64(*in.TaskID)
			// Same owner check as get_task_info: a foreign task must be
			// indistinguishable from a missing one.
			t, err := store.GetTask(ctx, tid)
			if err != nil || t.UserID != userID {
				if err == nil || errors.Is(err, repository.ErrNotFound) {
					return "", fmt.Errorf("task %d does not exist", tid)
				}
				return "", fmt.Errorf("load task: %w", err)
			}
			s.TaskID = &tid
		}
		if _, err := store.InsertSuggestion(ctx, s); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", errors.New("task_id refers to a task that does not exist")
			}
			return "", fmt.Errorf("insert suggestion: %w", err)
		}
		return fmt.Sprintf("suggestion saved for user %d", userID), nil
	}
}

func createTask(store Store, userID uint64) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var in struct {
			UserID      id     `json:"user_id"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Priority    string `json:"priority"`
		}
		if err := json.Unmarshal(input, &in); err != nil {
			return "", errors.New("invalid JSON in create_task")
		}
		if in.UserID == 0 || strings.TrimSpace(in.Title) == "" {
			return "", errors.New("missing 'user_id' or 'title'")
		}
		if uint64(in.UserID) != userID {
			return "", errors.New("user_id does not match the current user")
		}
		if in.Priority != "" && !model.ValidPriority(in.Priority) {
			return "", errors.New("priority must be low, medium or high")
		}
		t := model.Task{
			UserID:   userID,
			Title:    strings.TrimSpace(in.Title),
			Priority: in.Priority,
		}
		if d := strings.TrimSpace(in.Description); d != "" {
			t.Description = &d
		}
		created, err := store.CreateTask(ctx, t)
		if err != nil {
			return "", fmt.Errorf("create task: %w", err)
		}
		return fmt.Sprintf("created task %d: %s", created.ID, created.Title), nil
	}
}

func llmGenerate(completer Completer) Handler {
	return func(ctx context.Context, input json.RawMessage) (string, error) {
		var in struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(input, &in); err != nil {
			// Some models pass the prompt as a bare string.
			var s string
			if err2 := json.Unmarshal(input, &s); err2 != nil {
				return "", errors.New("invalid JSON in llm_generate")
			}
			in.Prompt = s
		}
		if strings.TrimSpace(in.Prompt) == "" {
			return "", errors.New("missing 'prompt'")
		}
		text, err := completer.Complete(ctx, in.Prompt)
		if err != nil {
			return "", fmt.Errorf("llm_generate: %w", err)
		}
		return text, nil
	}
}
