package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartflow/backend/internal/agent"
	"github.com/smartflow/backend/internal/model"
	"github.com/smartflow/backend/internal/queue"
	"github.com/smartflow/backend/internal/repository"
)

// Runner is the orchestrator surface the handlers need. Narrowed to an
// interface so tests can script runs without a provider or database.
type Runner interface {
	Chat(ctx context.Context, in agent.RunInput) agent.RunResult
	GeneratePlan(ctx context.Context, userID, taskID uint64) agent.RunResult
}

// TaskReader is the slice of the task repository used for ownership
// checks. *repository.TaskRepo implements it.
type TaskReader interface {
	GetByIDAndOwner(ctx context.Context, id, userID uint64) (model.Task, error)
}

// PlanReader reads back a saved plan for the response summary.
// *repository.PlanStepRepo implements it.
type PlanReader interface {
	ListByTask(ctx context.Context, taskID uint64) ([]model.PlanStep, error)
}

// Publisher sends one assistant event to the broker. Failures are the
// caller's to ignore; an undelivered event never fails a request.
type Publisher func(ctx context.Context, ev queue.AssistantEvent) error

// AssistantHandler serves the conversational endpoints.
type AssistantHandler struct {
	Runner  Runner
	Tasks   TaskReader
	Steps   PlanReader
	Publish Publisher
}

func NewAssistantHandler(r Runner, tasks TaskReader, steps PlanReader, pub Publisher) *AssistantHandler {
	return &AssistantHandler{Runner: r, Tasks: tasks, Steps: steps, Publish: pub}
}

// Chat handles POST /v1/chat/message.
func (h *AssistantHandler) Chat(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Message     string       `json:"message"`
		TaskID      *uint64      `json:"task_id"`
		ChatHistory []agent.Turn `json:"chat_history"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Message) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message is required"})
	}
	if body.TaskID != nil {
		if _, err := h.Tasks.GetByIDAndOwner(c.Request().Context(), *body.TaskID, userID); err != nil {
			if err == repository.ErrNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}

	res := h.Runner.Chat(c.Request().Context(), agent.RunInput{
		UserID:  userID,
		TaskID:  body.TaskID,
		Message: body.Message,
		History: body.ChatHistory,
	})

	if containsTool(res.ToolsUsed, "insert_suggestion") {
		h.publish(queue.AssistantEvent{
			Event:      "suggestion.created",
			RunID:      res.RunID,
			UserID:     userID,
			TaskID:     body.TaskID,
			Summary:    res.Text,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"response":  res.Text,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GeneratePlan handles POST /v1/agent/generate-plan. The task must
// belong to the caller; the plan summary is read back from storage so
// the response reflects what the run actually saved.
func (h *AssistantHandler) GeneratePlan(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		TaskID uint64 `json:"task_id"`
	}
	if err := c.Bind(&body); err != nil || body.TaskID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "task_id is required"})
	}

	if _, err := h.Tasks.GetByIDAndOwner(c.Request().Context(), body.TaskID, userID); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	res := h.Runner.GeneratePlan(c.Request().Context(), userID, body.TaskID)

	summary := res.Text
	if steps, err := h.Steps.ListByTask(c.Request().Context(), body.TaskID); err == nil && len(steps) > 0 {
		lines := make([]string, 0, len(steps))
		for _, s := range steps {
			lines = append(lines, fmt.Sprintf("%d. %s", s.StepOrder, s.Text))
		}
		summary = strings.Join(lines, "\n")
	}

	// Only a run that actually saved steps counts as a generated plan;
	// a degraded run must not announce a stale or fallback summary.
	if containsTool(res.ToolsUsed, "insert_plan_steps") {
		taskID := body.TaskID
		h.publish(queue.AssistantEvent{
			Event:      "plan.generated",
			RunID:      res.RunID,
			UserID:     userID,
			TaskID:     &taskID,
			Summary:    summary,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"task_id":      body.TaskID,
		"plan_summary": summary,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// publish fires the event without tying its fate to the request. A nil
// publisher means events are disabled.
func (h *AssistantHandler) publish(ev queue.AssistantEvent) {
	if h.Publish == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Publish(ctx, ev)
	}()
}

func containsTool(used []string, name string) bool {
	for _, u := range used {
		if u == name {
			return true
		}
	}
	return false
}
