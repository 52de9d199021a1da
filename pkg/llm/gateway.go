package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Gateway runs completion primitives over the model fallback chain. Each
// individual model invocation may fall back, so a tool-call loop that starts
// on the primary can finish on a fallback model without losing conversation
// state.
type Gateway struct {
	models []Model
	logger *slog.Logger
}

// NewGateway creates a gateway over the given chain. The first model is the
// primary. The chain must be non-empty; config validation guarantees it.
func NewGateway(models ...Model) *Gateway {
	return &Gateway{
		models: models,
		logger: slog.Default().With("component", "llm"),
	}
}

// Primary returns the identifier of the primary model.
func (g *Gateway) Primary() string {
	return g.models[0].ID()
}

// converse invokes the chain in order. Throttling moves to the next model;
// any other failure returns immediately. Exhausting the chain yields an
// UnavailableError.
func (g *Gateway) converse(ctx context.Context, req Request) (*Response, error) {
	var attempted []string
	var lastErr error

	for i, m := range g.models {
		resp, err := m.Converse(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !IsThrottled(err) {
			return nil, err
		}
		attempted = append(attempted, m.ID())
		lastErr = err
		if i < len(g.models)-1 {
			g.logger.WarnContext(ctx, "Model throttled, falling back",
				"model", m.ID(), "next", g.models[i+1].ID())
		}
	}
	return nil, &UnavailableError{Attempted: attempted, LastErr: lastErr}
}

// Complete runs a single-shot completion and returns the assistant text.
func (g *Gateway) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.converse(ctx, Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Text: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Message.Text, nil
}

// Extract runs a completion that must produce JSON and unmarshals it into
// out. Markdown fences and surrounding prose are tolerated; anything that
// still fails to parse is returned as an error with a text excerpt.
func (g *Gateway) Extract(ctx context.Context, system, prompt string, out any) error {
	text, err := g.Complete(ctx, system, prompt+
		"\n\nRespond with a single JSON object and nothing else.")
	if err != nil {
		return err
	}

	payload := ExtractJSON(text)
	if payload == "" {
		return fmt.Errorf("no JSON object in model output: %s", excerpt(text))
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("parse model output: %w: %s", err, excerpt(payload))
	}
	return nil
}

// ToolCallLoop runs a bounded tool-use conversation. Tool calls are resolved
// through the executor; the loop ends when the model stops requesting tools
// or maxIterations is reached, whichever is first.
func (g *Gateway) ToolCallLoop(ctx context.Context, system string, messages []Message, executor ToolExecutor, maxIterations int) (*LoopResult, error) {
	conv := make([]Message, len(messages))
	copy(conv, messages)

	result := &LoopResult{}
	req := Request{System: system, Tools: executor.Tools()}

	for i := 1; i <= maxIterations; i++ {
		req.Messages = conv

		modelStart := time.Now()
		resp, err := g.converse(ctx, req)
		if err != nil {
			return nil, err
		}

		metric := IterationMetric{Iteration: i, ModelTime: time.Since(modelStart)}
		result.Usage.InputTokens += resp.Usage.InputTokens
		result.Usage.OutputTokens += resp.Usage.OutputTokens
		conv = append(conv, resp.Message)
		result.FinalText = resp.Message.Text

		if resp.StopReason != StopToolUse || len(resp.Message.ToolCalls) == 0 {
			result.Iterations = append(result.Iterations, metric)
			g.logIteration(ctx, metric)
			return result, nil
		}

		toolStart := time.Now()
		results := make([]ToolResult, 0, len(resp.Message.ToolCalls))
		for _, call := range resp.Message.ToolCalls {
			metric.ToolNames = append(metric.ToolNames, call.Name)
			results = append(results, executor.Execute(ctx, call))
		}
		metric.ToolTime = time.Since(toolStart)
		result.Iterations = append(result.Iterations, metric)
		g.logIteration(ctx, metric)

		conv = append(conv, Message{Role: RoleUser, ToolResults: results})
	}

	g.logger.WarnContext(ctx, "Tool loop reached iteration bound",
		"max_iterations", maxIterations)
	result.Truncated = true
	return result, nil
}

func (g *Gateway) logIteration(ctx context.Context, m IterationMetric) {
	g.logger.DebugContext(ctx, "Tool loop iteration",
		"iteration", m.Iteration,
		"model_time", m.ModelTime,
		"tool_time", m.ToolTime,
		"tools", m.ToolNames)
}

// ExtractJSON pulls the first JSON object out of model text, tolerating
// markdown fences and surrounding prose. Returns "" when no object is found.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if fenced, ok := stripFence(text); ok {
		text = fenced
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func stripFence(text string) (string, bool) {
	if !strings.HasPrefix(text, "```") {
		return "", false
	}
	rest := text[3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		return strings.TrimSpace(rest[:end]), true
	}
	return "", false
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
