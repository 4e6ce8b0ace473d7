package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartflow/backend/internal/agent"
	"github.com/smartflow/backend/internal/model"
	"github.com/smartflow/backend/internal/queue"
	"github.com/smartflow/backend/internal/repository"
)

// fakeRunner scripts orchestrator results for handler tests.
type fakeRunner struct {
	result      agent.RunResult
	gotChat     *agent.RunInput
	gotPlanTask uint64
}

func (f *fakeRunner) Chat(_ context.Context, in agent.RunInput) agent.RunResult {
	f.gotChat = &in
	return f.result
}

func (f *fakeRunner) GeneratePlan(_ context.Context, _, taskID uint64) agent.RunResult {
	f.gotPlanTask = taskID
	return f.result
}

// fakeTasks resolves ownership checks from a fixed owner map.
type fakeTasks struct {
	owners map[uint64]uint64 // task id -> owner
}

func (f *fakeTasks) GetByIDAndOwner(_ context.Context, id, userID uint64) (model.Task, error) {
	if owner, ok := f.owners[id]; ok && owner == userID {
		return model.Task{ID: id, UserID: userID, Title: "Write report"}, nil
	}
	return model.Task{}, repository.ErrNotFound
}

// fakeSteps serves a canned plan for summary rendering.
type fakeSteps struct {
	steps []model.PlanStep
}

func (f *fakeSteps) ListByTask(context.Context, uint64) ([]model.PlanStep, error) {
	return f.steps, nil
}

func postJSON(t *testing.T, h echo.HandlerFunc, path, body string, userID any) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set("user_id", userID)
	}
	require.NoError(t, h(c))
	return rec
}

func TestChatReturnsResponseAndTimestamp(t *testing.T) {
	runner := &fakeRunner{result: agent.RunResult{RunID: "r1", Text: "here is your day"}}
	h := NewAssistantHandler(runner, nil, nil, nil)

	rec := postJSON(t, h.Chat, "/v1/chat/message", `{"message":"plan my day"}`, float64(7))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "here is your day", body["response"])

	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err, "timestamp must be RFC3339")

	require.NotNil(t, runner.gotChat)
	assert.Equal(t, uint64(7), runner.gotChat.UserID)
	assert.Equal(t, "plan my day", runner.gotChat.Message)
}

func TestChatForwardsHistory(t *testing.T) {
	runner := &fakeRunner{result: agent.RunResult{Text: "ok"}}
	h := NewAssistantHandler(runner, nil, nil, nil)

	rec := postJSON(t, h.Chat, "/v1/chat/message",
		`{"message":"and now?","chat_history":[{"role":"user","content":"before"},{"role":"assistant","content":"answered"}]}`,
		float64(7))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, runner.gotChat)
	require.Len(t, runner.gotChat.History, 2)
	assert.Equal(t, "assistant", runner.gotChat.History[1].Role)
}

func TestChatRequiresMessage(t *testing.T) {
	h := NewAssistantHandler(&fakeRunner{}, nil, nil, nil)

	rec := postJSON(t, h.Chat, "/v1/chat/message", `{"message":"  "}`, float64(7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRequiresAuth(t *testing.T) {
	h := NewAssistantHandler(&fakeRunner{}, nil, nil, nil)

	rec := postJSON(t, h.Chat, "/v1/chat/message", `{"message":"hi"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatPublishesSuggestionEvent(t *testing.T) {
	runner := &fakeRunner{result: agent.RunResult{
		RunID:     "r2",
		Text:      "saved a suggestion",
		ToolsUsed: []string{"get_recent_logs", "insert_suggestion"},
	}}
	events := make(chan queue.AssistantEvent, 1)
	h := NewAssistantHandler(runner, nil, nil, func(_ context.Context, ev queue.AssistantEvent) error {
		events <- ev
		return nil
	})

	rec := postJSON(t, h.Chat, "/v1/chat/message", `{"message":"any advice?"}`, float64(7))
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case ev := <-events:
		assert.Equal(t, "suggestion.created", ev.Event)
		assert.Equal(t, "r2", ev.RunID)
		assert.Equal(t, uint64(7), ev.UserID)
	case <-time.After(time.Second):
		t.Fatal("suggestion.created event never published")
	}
}

func TestChatNoEventWithoutSuggestionTool(t *testing.T) {
	runner := &fakeRunner{result: agent.RunResult{Text: "nothing saved", ToolsUsed: []string{"get_task_info"}}}
	events := make(chan queue.AssistantEvent, 1)
	h := NewAssistantHandler(runner, nil, nil, func(_ context.Context, ev queue.AssistantEvent) error {
		events <- ev
		return nil
	})

	postJSON(t, h.Chat, "/v1/chat/message", `{"message":"hi"}`, float64(7))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event published: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGeneratePlanRequiresTaskID(t *testing.T) {
	h := NewAssistantHandler(&fakeRunner{}, nil, nil, nil)

	rec := postJSON(t, h.GeneratePlan, "/v1/agent/generate-plan", `{}`, float64(7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeneratePlanForeignTaskNotFound(t *testing.T) {
	runner := &fakeRunner{}
	h := NewAssistantHandler(runner, &fakeTasks{owners: map[uint64]uint64{3: 99}}, &fakeSteps{}, nil)

	rec := postJSON(t, h.GeneratePlan, "/v1/agent/generate-plan", `{"task_id":3}`, float64(7))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, runner.gotPlanTask, "orchestrator must not run for a foreign task")
}

func TestGeneratePlanPublishesAfterStepsSaved(t *testing.T) {
	runner := &fakeRunner{result: agent.RunResult{
		RunID:     "r3",
		Text:      "done",
		ToolsUsed: []string{"get_task_info", "insert_plan_steps"},
	}}
	steps := &fakeSteps{steps: []model.PlanStep{
		{StepOrder: 1, Text: "outline"},
		{StepOrder: 2, Text: "draft"},
	}}
	events := make(chan queue.AssistantEvent, 1)
	h := NewAssistantHandler(runner, &fakeTasks{owners: map[uint64]uint64{3: 7}}, steps, func(_ context.Context, ev queue.AssistantEvent) error {
		events <- ev
		return nil
	})

	rec := postJSON(t, h.GeneratePlan, "/v1/agent/generate-plan", `{"task_id":3}`, float64(7))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1. outline\n2. draft", body["plan_summary"])

	select {
	case ev := <-events:
		assert.Equal(t, "plan.generated", ev.Event)
		require.NotNil(t, ev.TaskID)
		assert.Equal(t, uint64(3), *ev.TaskID)
	case <-time.After(time.Second):
		t.Fatal("plan.generated event never published")
	}
}

func TestGeneratePlanDegradedRunPublishesNothing(t *testing.T) {
	runner := &fakeRunner{result: agent.RunResult{
		RunID:    "r4",
		Text:     "I could not finish the plan.",
		Degraded: true, // provider failed, insert_plan_steps never ran
	}}
	// A prior plan exists; it must not be announced as freshly generated.
	steps := &fakeSteps{steps: []model.PlanStep{{StepOrder: 1, Text: "stale step"}}}
	events := make(chan queue.AssistantEvent, 1)
	h := NewAssistantHandler(runner, &fakeTasks{owners: map[uint64]uint64{3: 7}}, steps, func(_ context.Context, ev queue.AssistantEvent) error {
		events <- ev
		return nil
	})

	rec := postJSON(t, h.GeneratePlan, "/v1/agent/generate-plan", `{"task_id":3}`, float64(7))
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event for a degraded run: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChatForeignTaskNotFound(t *testing.T) {
	h := NewAssistantHandler(&fakeRunner{}, &fakeTasks{owners: map[uint64]uint64{3: 99}}, nil, nil)

	rec := postJSON(t, h.Chat, "/v1/chat/message", `{"message":"hi","task_id":3}`, float64(7))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
