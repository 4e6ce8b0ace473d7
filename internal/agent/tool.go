package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/smartflow/backend/internal/llm"
)

// Handler executes one tool. The string return is the payload handed
// back to the model; the error is the typed failure channel that the
// orchestrator folds into an "error: ..." tool result. Handlers must
// express every domain failure through one of those two, never panic.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// ToolDef is a named, schema-constrained operation the orchestrator
// may invoke on the model's behalf.
type ToolDef struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Registry maps tool names to definitions. A registry is built per
// orchestrator run because tools are bound to the authenticated user.
type Registry struct {
	order []string
	tools map[string]*ToolDef
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*ToolDef)}
}

// Register adds a tool. Registration order is preserved so the
// capability list shown to the model is deterministic.
func (r *Registry) Register(t *ToolDef) {
	if _, dup := r.tools[t.Name]; !dup {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*ToolDef, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Specs returns the tool definitions in registration order, shaped
// for the completion provider.
func (r *Registry) Specs() []llm.ToolSpec {
	out := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// safeExec runs a tool handler with panic recovery so a buggy tool
// degrades to an error string instead of killing the request.
func safeExec(ctx context.Context, t *ToolDef, input json.RawMessage) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = ""
			err = fmt.Errorf("tool %s panicked: %v", t.Name, rec)
		}
	}()
	return t.Handler(ctx, input)
}
