package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartflow/backend/internal/model"
	"github.com/smartflow/backend/internal/repository"
)

// LogHandler serves productivity-log creation and listing. Logs are
// append-only; there is no update or delete route.
type LogHandler struct {
	Logs *repository.LogRepo
}

func NewLogHandler(logs *repository.LogRepo) *LogHandler {
	return &LogHandler{Logs: logs}
}

type logResp struct {
	ID          uint64          `json:"id"`
	TS          time.Time       `json:"ts"`
	FocusScore  float64         `json:"focus_score"`
	EnergyLevel float64         `json:"energy_level"`
	Context     json.RawMessage `json:"context,omitempty"`
}

// Create handles POST /v1/logs.
func (h *LogHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		FocusScore  *float64        `json:"focus_score"`
		EnergyLevel *float64        `json:"energy_level"`
		Context     json.RawMessage `json:"context"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.FocusScore == nil || body.EnergyLevel == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "focus_score and energy_level are required"})
	}
	if !model.ValidScore(*body.FocusScore) || !model.ValidScore(*body.EnergyLevel) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "scores must be between 0 and 1"})
	}

	id, err := h.Logs.Insert(c.Request().Context(), model.ProductivityLog{
		UserID:      userID,
		FocusScore:  *body.FocusScore,
		EnergyLevel: *body.EnergyLevel,
		Context:     body.Context,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create log"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// List handles GET /v1/logs with an optional ?limit= param.
func (h *LogHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw) // repo clamps bad values
	}
	items, err := h.Logs.ListRecent(c.Request().Context(), userID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]logResp, 0, len(items))
	for _, l := range items {
		out = append(out, logResp{ID: l.ID, TS: l.TS, FocusScore: l.FocusScore, EnergyLevel: l.EnergyLevel, Context: l.Context})
	}
	return c.JSON(http.StatusOK, out)
}
