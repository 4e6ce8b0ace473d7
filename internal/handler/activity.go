package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartflow/backend/internal/repository"
)

// ActivityHandler exposes the audit trail, read-only.
type ActivityHandler struct {
	Activity *repository.ActivityRepo
}

func NewActivityHandler(a *repository.ActivityRepo) *ActivityHandler {
	return &ActivityHandler{Activity: a}
}

type activityResp struct {
	ID        uint64          `json:"id"`
	TaskID    *uint64         `json:"task_id"`
	Action    string          `json:"action"`
	Detail    json.RawMessage `json:"detail"`
	CreatedAt time.Time       `json:"created_at"`
}

// List handles GET /v1/activity.
func (h *ActivityHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	items, err := h.Activity.ListByUser(c.Request().Context(), userID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]activityResp, 0, len(items))
	for _, a := range items {
		out = append(out, activityResp{ID: a.ID, TaskID: a.TaskID, Action: a.Action, Detail: a.Detail, CreatedAt: a.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}
