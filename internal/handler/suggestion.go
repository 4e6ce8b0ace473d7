package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartflow/backend/internal/repository"
)

// SuggestionHandler serves suggestion listing and the single permitted
// mutation, marking one applied. Creation happens through the
// assistant's tool layer only.
type SuggestionHandler struct {
	Suggestions *repository.SuggestionRepo
}

func NewSuggestionHandler(s *repository.SuggestionRepo) *SuggestionHandler {
	return &SuggestionHandler{Suggestions: s}
}

type suggestionResp struct {
	ID         uint64          `json:"id"`
	TaskID     *uint64         `json:"task_id"`
	Message    string          `json:"message"`
	Reason     json.RawMessage `json:"reason,omitempty"`
	Confidence *float64        `json:"confidence"`
	Applied    bool            `json:"applied"`
	CreatedAt  time.Time       `json:"created_at"`
}

// List handles GET /v1/suggestions.
func (h *SuggestionHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	items, err := h.Suggestions.ListByUser(c.Request().Context(), userID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]suggestionResp, 0, len(items))
	for _, s := range items {
		out = append(out, suggestionResp{
			ID:         s.ID,
			TaskID:     s.TaskID,
			Message:    s.Message,
			Reason:     s.Reason,
			Confidence: s.Confidence,
			Applied:    s.Applied,
			CreatedAt:  s.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Apply handles POST /v1/suggestions/:id/apply.
func (h *SuggestionHandler) Apply(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Suggestions.MarkApplied(c.Request().Context(), id, userID); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "suggestion not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "applied": true})
}
