package agent

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/smartflow/backend/internal/llm"
)

// MaxIterations caps the tool-selection loop. Reaching the cap yields
// a degraded but well-formed answer, never an endless loop or a hard
// failure.
const MaxIterations = 5

// toolTimeout bounds a single tool execution.
const toolTimeout = 30 * time.Second

// fallbackAnswer is returned when the provider is unreachable after a
// retry. A chat turn always returns something.
const fallbackAnswer = "I could not reach the assistant service just now. Your data is unchanged; please try again in a moment."

// capReachedAnswer is returned when the iteration cap fires before the
// model produced a final answer.
const capReachedAnswer = "I ran out of reasoning steps before finishing. The tool calls that succeeded above have been applied; ask again to continue."

// Turn is one prior conversation message, oldest first.
type Turn struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"`
}

// RunInput describes one orchestrator invocation.
type RunInput struct {
	UserID  uint64
	TaskID  *uint64
	Message string
	History []Turn
}

// RunResult is the orchestrator's final output for a turn.
type RunResult struct {
	RunID      string
	Text       string
	Iterations int
	ToolsUsed  []string
	Degraded   bool
}

// Orchestrator drives the conversation loop: it hands the model the
// tool catalog, executes whatever tool calls come back, feeds the
// results in as messages and repeats until the model answers in plain
// text or the iteration cap fires.
type Orchestrator struct {
	LLM   Completer
	Store Store
}

func NewOrchestrator(completer Completer, store Store) *Orchestrator {
	return &Orchestrator{LLM: completer, Store: store}
}

// Chat runs one conversational turn for the authenticated user.
func (o *Orchestrator) Chat(ctx context.Context, in RunInput) RunResult {
	return o.run(ctx, in.UserID, chatInstruction(in.UserID, in.TaskID, in.Message), in.History)
}

// GeneratePlan runs the fixed plan-generation instruction for a task
// through the same loop as chat, so tool selection and error handling
// are identical on both paths.
func (o *Orchestrator) GeneratePlan(ctx context.Context, userID, taskID uint64) RunResult {
	return o.run(ctx, userID, planInstruction(userID, taskID), nil)
}

func (o *Orchestrator) run(ctx context.Context, userID uint64, instruction string, history []Turn) RunResult {
	runID := uuid.NewString()
	tools := NewToolset(o.Store, o.LLM, userID)

	spec := defaultPromptSpec()
	for _, name := range tools.Names() {
		t, _ := tools.Get(name)
		spec.Capabilities = append(spec.Capabilities, Capability{Name: t.Name, Description: t.Description})
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, h := range history {
		role := h.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, llm.Message{Role: role, Content: h.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: instruction})

	res := RunResult{RunID: runID}

	for i := 0; i < MaxIterations; i++ {
		res.Iterations = i + 1

		reply, err := o.chatWithRetry(ctx, llm.Request{
			System:   spec.Render(),
			Messages: messages,
			Tools:    tools.Specs(),
		})
		if err != nil {
			log.Printf("agent: run=%s provider failed after retry: %v", runID, err)
			res.Text = fallbackAnswer
			res.Degraded = true
			return res
		}

		if len(reply.ToolCalls) == 0 {
			res.Text = reply.Text
			if res.Text == "" {
				res.Text = fallbackAnswer
				res.Degraded = true
			}
			return res
		}

		// Echo the assistant turn, then answer each call.
		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		})
		for _, tc := range reply.ToolCalls {
			res.ToolsUsed = append(res.ToolsUsed, tc.Name)
			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: tc.ID,
				Content:    o.execute(ctx, runID, tools, tc),
			})
		}
	}

	log.Printf("agent: run=%s hit iteration cap (%d)", runID, MaxIterations)
	res.Text = capReachedAnswer
	res.Degraded = true
	return res
}

// chatWithRetry calls the provider, retrying once on failure. Context
// cancellation is not retried; the caller gave up.
func (o *Orchestrator) chatWithRetry(ctx context.Context, req llm.Request) (*llm.Result, error) {
	reply, err := o.LLM.Chat(ctx, req)
	if err == nil {
		return reply, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return o.LLM.Chat(ctx, req)
}

// execute runs one tool call and always produces a string for the
// model: success payload or "error: ...". Unknown tools and handler
// failures use the same channel, because the model only sees text.
func (o *Orchestrator) execute(ctx context.Context, runID string, tools *Registry, tc llm.ToolCall) string {
	tool, ok := tools.Get(tc.Name)
	if !ok {
		return "error: unknown tool " + tc.Name
	}

	tctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	out, err := safeExec(tctx, tool, tc.Arguments)
	if err != nil {
		log.Printf("agent: run=%s tool=%s failed: %v", runID, tc.Name, err)
		return "error: " + err.Error()
	}
	return out
}
