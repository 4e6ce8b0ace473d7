package agent

import (
	"fmt"
	"strings"
)

// PromptSpec separates what the assistant is from how the prompt text
// is rendered. Prompts are assembled deterministically from these
// parts; no control flow ever depends on the rendered string.
type PromptSpec struct {
	Role         string
	Instructions []string
	Capabilities []Capability
}

// Capability is one tool entry in the rendered capability list.
type Capability struct {
	Name        string
	Description string
}

// defaultPromptSpec is the assistant persona shared by chat and plan
// generation. Capabilities are filled from the run's tool registry.
func defaultPromptSpec() PromptSpec {
	return PromptSpec{
		Role: "You are SmartFlow, a focused productivity assistant. You help one authenticated user manage tasks, plans and suggestions.",
		Instructions: []string{
			"Use the available tools to read or change data; never invent task or log contents.",
			"Tool failures come back as text starting with \"error:\"; read them and adjust instead of repeating the same call.",
			"When you have enough information, answer the user directly and stop calling tools.",
			"Keep answers short and concrete.",
		},
	}
}

// Render produces the system prompt. Sections appear in a fixed order
// so identical specs always produce identical prompts.
func (p PromptSpec) Render() string {
	var b strings.Builder
	b.WriteString(p.Role)
	b.WriteString("\n\nGuidelines:\n")
	for _, ins := range p.Instructions {
		fmt.Fprintf(&b, "- %s\n", ins)
	}
	if len(p.Capabilities) > 0 {
		b.WriteString("\nAvailable tools:\n")
		for _, c := range p.Capabilities {
			fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
		}
	}
	return b.String()
}

// userHeader prefixes every conversation with the identifiers the
// tools need. The user cannot override these; they come from the
// authenticated session.
func userHeader(userID uint64, taskID *uint64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "UserId: %d.\n", userID)
	if taskID != nil {
		fmt.Fprintf(&b, "TaskId: %d.\n", *taskID)
	}
	return b.String()
}

// planInstruction is the fixed text skeleton for plan generation. It
// runs through the same orchestrator loop as ad hoc chat so both paths
// share tool selection and error handling.
func planInstruction(userID, taskID uint64) string {
	return userHeader(userID, &taskID) +
		"Objective: generate 4-6 detailed plan steps for the task above.\n" +
		"First call get_task_info for the task and get_recent_logs for the user, " +
		"then call insert_plan_steps with the finished steps.\n" +
		"Finally answer with JSON of the form {\"steps\": [{\"order\": 1, \"text\": \"...\"}, ...]}."
}

// chatInstruction wraps a free-text user message with the identity
// header.
func chatInstruction(userID uint64, taskID *uint64, message string) string {
	return userHeader(userID, taskID) + "Question: " + message
}
