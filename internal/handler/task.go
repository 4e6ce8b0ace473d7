package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartflow/backend/internal/model"
	"github.com/smartflow/backend/internal/repository"
)

// TaskHandler serves task CRUD and the per-task plan endpoints. Every
// route verifies ownership before touching data; a foreign task is
// reported as 404 so existence never leaks.
type TaskHandler struct {
	Tasks *repository.TaskRepo
	Steps *repository.PlanStepRepo
}

func NewTaskHandler(tasks *repository.TaskRepo, steps *repository.PlanStepRepo) *TaskHandler {
	return &TaskHandler{Tasks: tasks, Steps: steps}
}

// ----- DTOs -----

type taskResp struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueAt       *time.Time `json:"due_at"`
	EstMinutes  *int       `json:"est_minutes"`
	EnergyReq   *string    `json:"energy_req"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toTaskResp(t model.Task) taskResp {
	return taskResp{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueAt:       t.DueAt,
		EstMinutes:  t.EstMinutes,
		EnergyReq:   t.EnergyReq,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type stepResp struct {
	ID            uint64  `json:"id"`
	Order         int     `json:"order"`
	Text          string  `json:"text"`
	Status        string  `json:"status"`
	EstMinutes    *int    `json:"est_minutes"`
	ActualMinutes *int    `json:"actual_minutes"`
	ParentID      *uint64 `json:"parent_id,omitempty"`
}

// Create handles POST /v1/tasks.
func (h *TaskHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Title       string     `json:"title"`
		Description *string    `json:"description"`
		Priority    string     `json:"priority"`
		DueAt       *time.Time `json:"due_at"`
		EstMinutes  *int       `json:"est_minutes"`
		EnergyReq   *string    `json:"energy_req"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if body.Priority != "" && !model.ValidPriority(body.Priority) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "priority must be low, medium or high"})
	}
	if body.EnergyReq != nil && !model.ValidEnergy(*body.EnergyReq) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "energy_req must be low, medium or high"})
	}
	if body.EstMinutes != nil && *body.EstMinutes <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "est_minutes must be positive"})
	}

	created, err := h.Tasks.Create(c.Request().Context(), model.Task{
		UserID:      userID,
		Title:       title,
		Description: body.Description,
		Priority:    body.Priority,
		DueAt:       body.DueAt,
		EstMinutes:  body.EstMinutes,
		EnergyReq:   body.EnergyReq,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create task"})
	}
	return c.JSON(http.StatusCreated, toTaskResp(created))
}

// List handles GET /v1/tasks with an optional ?status= filter.
func (h *TaskHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := c.QueryParam("status")
	if status != "" && !model.ValidStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	items, err := h.Tasks.ListByOwner(c.Request().Context(), userID, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]taskResp, 0, len(items))
	for _, t := range items {
		out = append(out, toTaskResp(t))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/tasks/:id.
func (h *TaskHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	t, err := h.Tasks.GetByIDAndOwner(c.Request().Context(), id, userID)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, toTaskResp(t))
}

// Update handles PUT /v1/tasks/:id with a partial body.
func (h *TaskHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Priority    *string    `json:"priority"`
		Status      *string    `json:"status"`
		DueAt       *time.Time `json:"due_at"`
		EstMinutes  *int       `json:"est_minutes"`
		EnergyReq   *string    `json:"energy_req"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Title != nil && strings.TrimSpace(*body.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title cannot be empty"})
	}
	if body.Priority != nil && !model.ValidPriority(*body.Priority) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "priority must be low, medium or high"})
	}
	if body.Status != nil && !model.ValidStatus(*body.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	if body.EnergyReq != nil && !model.ValidEnergy(*body.EnergyReq) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "energy_req must be low, medium or high"})
	}

	updated, err := h.Tasks.Update(c.Request().Context(), id, userID, repository.TaskUpdate{
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		Status:      body.Status,
		DueAt:       body.DueAt,
		EstMinutes:  body.EstMinutes,
		EnergyReq:   body.EnergyReq,
	})
	if err != nil {
		switch err {
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		case repository.ErrInvalidTransition:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status transition"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toTaskResp(updated))
}

// Delete handles DELETE /v1/tasks/:id.
func (h *TaskHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Tasks.Delete(c.Request().Context(), id, userID); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// GetPlan handles GET /v1/tasks/:id/plan and returns the steps in
// order.
func (h *TaskHandler) GetPlan(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if _, err := h.Tasks.GetByIDAndOwner(c.Request().Context(), id, userID); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	steps, err := h.Steps.ListByTask(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]stepResp, 0, len(steps))
	for _, s := range steps {
		out = append(out, stepResp{
			ID:            s.ID,
			Order:         s.StepOrder,
			Text:          s.Text,
			Status:        s.Status,
			EstMinutes:    s.EstMinutes,
			ActualMinutes: s.ActualMinutes,
			ParentID:      s.ParentID,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"task_id": id, "steps": out})
}

// UpdatePlanStep handles PUT /v1/tasks/:id/plan/:stepID and records
// progress on one step.
func (h *TaskHandler) UpdatePlanStep(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	stepID, err := pathID(c, "stepID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid step id"})
	}
	var body struct {
		Status        *string `json:"status"`
		ActualMinutes *int    `json:"actual_minutes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Status == nil && body.ActualMinutes == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	if body.Status != nil && !model.ValidStepStatus(*body.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown step status"})
	}
	if body.ActualMinutes != nil && *body.ActualMinutes < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "actual_minutes must not be negative"})
	}

	if err := h.Steps.UpdateProgress(c.Request().Context(), stepID, taskID, userID, body.Status, body.ActualMinutes); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "plan step not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
