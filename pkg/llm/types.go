// Package llm provides the model gateway: a small set of completion
// primitives over an ordered fallback chain of LLM providers. Callers never
// pick a model; the gateway tries the chain in order and falls back only on
// throttling.
package llm

import (
	"context"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Assistant messages may carry tool calls;
// user messages may carry the corresponding tool results.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult is the outcome of one tool invocation, keyed back to the call.
type ToolResult struct {
	ID      string
	Content string
	IsError bool
}

// Tool is one entry of the tool manifest handed to the model.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// StopReason reports why the model stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// Request is a single model invocation.
type Request struct {
	System      string
	Messages    []Message
	Tools       []Tool
	MaxTokens   int
	Temperature *float64
}

// Usage reports token consumption of one invocation.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the model's reply to one invocation.
type Response struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
}

// Model is one provider-backed model of the fallback chain.
type Model interface {
	// ID returns the model identifier for logs and audit records.
	ID() string

	// Converse runs a single inference turn.
	Converse(ctx context.Context, req Request) (*Response, error)
}

// ToolExecutor resolves tool calls during a tool-call loop. Execute must not
// return an infrastructure error for an unknown or failed tool; it reports
// those through ToolResult.IsError so the model can react.
type ToolExecutor interface {
	Tools() []Tool
	Execute(ctx context.Context, call ToolCall) ToolResult
}

// IterationMetric records the cost of one tool-loop iteration.
type IterationMetric struct {
	Iteration int           `json:"iteration"`
	ModelTime time.Duration `json:"model_time"`
	ToolTime  time.Duration `json:"tool_time"`
	ToolNames []string      `json:"tool_names,omitempty"`
}

// LoopResult is the outcome of a tool-call loop.
type LoopResult struct {
	// FinalText is the last assistant text. With Truncated set it is the
	// text of the final permitted iteration, possibly empty.
	FinalText string

	// Truncated is set when the loop hit its iteration bound before the
	// model finished on its own.
	Truncated bool

	// Iterations holds per-iteration timing, in order.
	Iterations []IterationMetric

	Usage Usage
}
