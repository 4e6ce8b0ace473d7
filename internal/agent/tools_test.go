package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smartflow/backend/internal/llm"
	"github.com/smartflow/backend/internal/model"
	"github.com/smartflow/backend/internal/repository"
)

// fakeStore implements Store in memory for tool tests.
type fakeStore struct {
	tasks       map[uint64]model.Task
	logs        []model.ProductivityLog
	steps       map[uint64][]model.PlanStepInput
	suggestions []model.Suggestion
	nextID      uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:  make(map[uint64]model.Task),
		steps:  make(map[uint64][]model.PlanStepInput),
		nextID: 1,
	}
}

func (s *fakeStore) GetTask(_ context.Context, id uint64) (model.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *fakeStore) RecentLogs(_ context.Context, userID uint64, limit int) ([]model.ProductivityLog, error) {
	var out []model.ProductivityLog
	for _, l := range s.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) ReplacePlanSteps(_ context.Context, taskID uint64, steps []model.PlanStepInput) error {
	if _, ok := s.tasks[taskID]; !ok {
		return repository.ErrNotFound
	}
	s.steps[taskID] = steps
	return nil
}

func (s *fakeStore) InsertSuggestion(_ context.Context, sg model.Suggestion) (uint64, error) {
	if sg.TaskID != nil {
		if _, ok := s.tasks[*sg.TaskID]; !ok {
			return 0, repository.ErrNotFound
		}
	}
	s.suggestions = append(s.suggestions, sg)
	id := s.nextID
	s.nextID++
	return id, nil
}

func (s *fakeStore) CreateTask(_ context.Context, t model.Task) (model.Task, error) {
	t.ID = s.nextID
	s.nextID++
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	s.tasks[t.ID] = t
	return t, nil
}

// fakeCompleter scripts provider replies for tests.
type fakeCompleter struct {
	replies []*llm.Result
	fail    error
	calls   int
}

func (f *fakeCompleter) Chat(_ context.Context, _ llm.Request) (*llm.Result, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return r, nil
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	if f.fail != nil {
		return "", f.fail
	}
	return "completion for: " + prompt, nil
}

func seedTask(s *fakeStore, userID uint64, title string) model.Task {
	t, _ := s.CreateTask(context.Background(), model.Task{UserID: userID, Title: title, Priority: model.PriorityMedium})
	return t
}

func callTool(t *testing.T, reg *Registry, name, input string) (string, error) {
	t.Helper()
	tool, ok := reg.Get(name)
	if !ok {
		t.Fatalf("tool %s not registered", name)
	}
	return safeExec(context.Background(), tool, json.RawMessage(input))
}

func TestToolsetRegistersAllSix(t *testing.T) {
	reg := NewToolset(newFakeStore(), &fakeCompleter{}, 1)
	want := []string{"get_task_info", "get_recent_logs", "insert_plan_steps", "insert_suggestion", "create_task", "llm_generate"}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d tools, got %d: %v", len(want), len(got), got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("tool %d: expected %s, got %s", i, name, got[i])
		}
	}
}

func TestGetTaskInfo(t *testing.T) {
	store := newFakeStore()
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	desc := "quarterly report"
	task := seedTask(store, 7, "Write report")
	task.Description = &desc
	task.DueAt = &due
	store.tasks[task.ID] = task

	reg := NewToolset(store, &fakeCompleter{}, 7)
	out, err := callTool(t, reg, "get_task_info", `{"task_id":1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if payload["title"] != "Write report" {
		t.Errorf("expected title in payload, got %v", payload["title"])
	}
	if payload["due_at"] != "2026-03-01T09:00:00Z" {
		t.Errorf("expected RFC3339 due_at, got %v", payload["due_at"])
	}
}

func TestGetTaskInfoStringID(t *testing.T) {
	store := newFakeStore()
	seedTask(store, 7, "Write report")
	reg := NewToolset(store, &fakeCompleter{}, 7)

	out, err := callTool(t, reg, "get_task_info", `{"task_id":"1"}`)
	if err != nil {
		t.Fatalf("quoted numeric id should be accepted: %v", err)
	}
	if !strings.Contains(out, "Write report") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestGetTaskInfoForeignTaskLooksMissing(t *testing.T) {
	store := newFakeStore()
	seedTask(store, 99, "someone else's task")
	reg := NewToolset(store, &fakeCompleter{}, 7)

	_, err := callTool(t, reg, "get_task_info", `{"task_id":1}`)
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("foreign task must be indistinguishable from missing, got %v", err)
	}
}

func TestToolsNeverRaise(t *testing.T) {
	store := newFakeStore()
	seedTask(store, 7, "Write report")
	seedTask(store, 99, "someone else's task") // id 2
	reg := NewToolset(store, &fakeCompleter{}, 7)

	cases := []struct {
		tool  string
		input string
	}{
		{"get_task_info", `not json at all`},
		{"get_task_info", `{}`},
		{"get_task_info", `{"task_id":0}`},
		{"get_task_info", `{"task_id":-3}`},
		{"get_task_info", `{"task_id":999}`},
		{"get_recent_logs", `{"user_id":"abc"}`},
		{"get_recent_logs", `{"user_id":42}`}, // not the bound user
		{"insert_plan_steps", `{"task_id":1}`},
		{"insert_plan_steps", `{"task_id":1,"steps":[]}`},
		{"insert_plan_steps", `{"task_id":1,"steps":[{"order":1,"text":""}]}`},
		{"insert_plan_steps", `{"task_id":1,"steps":[{"order":1,"text":"a"},{"order":1,"text":"b"}]}`},
		{"insert_suggestion", `{"message":"hi"}`},
		{"insert_suggestion", `{"user_id":7,"message":""}`},
		{"insert_suggestion", `{"user_id":7,"message":"hi","confidence":1.5}`},
		{"insert_suggestion", `{"user_id":7,"message":"hi","task_id":999}`},
		{"insert_suggestion", `{"user_id":7,"message":"hi","task_id":2}`}, // another user's task
		{"insert_plan_steps", `{"task_id":2,"steps":[{"order":1,"text":"a"}]}`},
		{"create_task", `{"user_id":7}`},
		{"create_task", `{"user_id":7,"title":"x","priority":"urgent"}`},
		{"llm_generate", `{}`},
	}
	for _, tc := range cases {
		_, err := callTool(t, reg, tc.tool, tc.input)
		if err == nil {
			t.Errorf("%s(%s): expected an error result", tc.tool, tc.input)
		}
	}
}

func TestGetRecentLogsCapped(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		store.logs = append([]model.ProductivityLog{{
			UserID:      7,
			TS:          base.Add(time.Duration(i) * time.Hour),
			FocusScore:  0.5,
			EnergyLevel: 0.6,
		}}, store.logs...) // newest first, as the repo returns them
	}
	reg := NewToolset(store, &fakeCompleter{}, 7)

	out, err := callTool(t, reg, "get_recent_logs", `{"user_id":7}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 of 7 logs, got %d", len(entries))
	}
	if entries[0]["ts"] != "2026-08-01T14:00:00Z" {
		t.Errorf("newest log must come first, got %v", entries[0]["ts"])
	}
}

func TestInsertPlanStepsHappyPath(t *testing.T) {
	store := newFakeStore()
	seedTask(store, 7, "Write report")
	reg := NewToolset(store, &fakeCompleter{}, 7)

	out, err := callTool(t, reg, "insert_plan_steps",
		`{"task_id":1,"steps":[{"order":1,"text":"outline"},{"order":2,"text":"draft"},{"order":3,"text":"review"},{"order":4,"text":"submit"}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "4 steps") {
		t.Errorf("expected step count in confirmation, got %s", out)
	}
	if len(store.steps[1]) != 4 {
		t.Errorf("expected 4 stored steps, got %d", len(store.steps[1]))
	}
}

func TestInsertPlanStepsReplacesExisting(t *testing.T) {
	store := newFakeStore()
	seedTask(store, 7, "Write report")
	reg := NewToolset(store, &fakeCompleter{}, 7)

	if _, err := callTool(t, reg, "insert_plan_steps", `{"task_id":1,"steps":[{"order":1,"text":"old"}]}`); err != nil {
		t.Fatalf("first replace failed: %v", err)
	}
	if _, err := callTool(t, reg, "insert_plan_steps", `{"task_id":1,"steps":[{"order":1,"text":"new a"},{"order":2,"text":"new b"}]}`); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}
	steps := store.steps[1]
	if len(steps) != 2 || steps[0].Text != "new a" {
		t.Errorf("old plan should be discarded, got %+v", steps)
	}
}

func TestInsertSuggestionWithoutTask(t *testing.T) {
	store := newFakeStore()
	reg := NewToolset(store, &fakeCompleter{}, 7)

	out, err := callTool(t, reg, "insert_suggestion", `{"user_id":7,"message":"take a break","confidence":0.85}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "suggestion saved") {
		t.Errorf("unexpected confirmation: %s", out)
	}
	if len(store.suggestions) != 1 {
		t.Fatalf("expected one stored suggestion, got %d", len(store.suggestions))
	}
	s := store.suggestions[0]
	if s.TaskID != nil {
		t.Errorf("task_id should stay nil when omitted")
	}
	if s.Confidence == nil || *s.Confidence != 0.85 {
		t.Errorf("confidence not preserved: %v", s.Confidence)
	}
}

func TestInsertSuggestionForeignTaskLooksMissing(t *testing.T) {
	store := newFakeStore()
	seedTask(store, 99, "someone else's task")
	reg := NewToolset(store, &fakeCompleter{}, 7)

	_, err := callTool(t, reg, "insert_suggestion", `{"user_id":7,"message":"advice","task_id":1}`)
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("foreign task must be indistinguishable from missing, got %v", err)
	}
	if len(store.suggestions) != 0 {
		t.Fatalf("no suggestion may be stored against a foreign task, got %d", len(store.suggestions))
	}
}

func TestInsertSuggestionOwnedTask(t *testing.T) {
	store := newFakeStore()
	task := seedTask(store, 7, "Write report")
	reg := NewToolset(store, &fakeCompleter{}, 7)

	out, err := callTool(t, reg, "insert_suggestion", `{"user_id":7,"message":"split it up","task_id":1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "suggestion saved") {
		t.Errorf("unexpected confirmation: %s", out)
	}
	if len(store.suggestions) != 1 || store.suggestions[0].TaskID == nil || *store.suggestions[0].TaskID != task.ID {
		t.Fatalf("suggestion not linked to the owned task: %+v", store.suggestions)
	}
}

func TestCreateTaskDefaultsPending(t *testing.T) {
	store := newFakeStore()
	reg := NewToolset(store, &fakeCompleter{}, 7)

	out, err := callTool(t, reg, "create_task", `{"user_id":7,"title":"Write report","priority":"high"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "created task") {
		t.Errorf("unexpected confirmation: %s", out)
	}
	created := store.tasks[1]
	if created.Status != model.StatusPending {
		t.Errorf("new task should be pending, got %s", created.Status)
	}
}

func TestLLMGenerateBareString(t *testing.T) {
	reg := NewToolset(newFakeStore(), &fakeCompleter{}, 7)
	out, err := callTool(t, reg, "llm_generate", `"summarize my week"`)
	if err != nil {
		t.Fatalf("bare string prompt should be accepted: %v", err)
	}
	if !strings.Contains(out, "summarize my week") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestSafeExecRecoversPanic(t *testing.T) {
	tool := &ToolDef{
		Name: "boom",
		Handler: func(context.Context, json.RawMessage) (string, error) {
			panic("kaboom")
		},
	}
	_, err := safeExec(context.Background(), tool, nil)
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("expected recovered panic error, got %v", err)
	}
}

func TestLLMGenerateProviderFailure(t *testing.T) {
	reg := NewToolset(newFakeStore(), &fakeCompleter{fail: errors.New("upstream down")}, 7)
	_, err := callTool(t, reg, "llm_generate", `{"prompt":"hi"}`)
	if err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("provider failure should surface as error, got %v", err)
	}
}
