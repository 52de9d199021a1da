// Package anthropic adapts the Anthropic Messages API to the model gateway.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/irops-ai/tower/pkg/config"
	"github.com/irops-ai/tower/pkg/llm"
)

// MessagesAPI is the subset of the Anthropic client the model needs.
type MessagesAPI interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Model invokes one Anthropic model through the Messages API.
type Model struct {
	messages MessagesAPI
	cfg      config.ModelConfig
}

// New creates an Anthropic-backed model from its configuration.
func New(messages MessagesAPI, cfg config.ModelConfig) *Model {
	return &Model{messages: messages, cfg: cfg}
}

// NewFromEnv builds the model over a real client, reading the API key from
// the environment variable named in the configuration.
func NewFromEnv(cfg config.ModelConfig) (*Model, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "ANTHROPIC_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("environment variable %s is not set", keyEnv)
	}
	client := sdk.NewClient(option.WithAPIKey(key))
	return New(&client.Messages, cfg), nil
}

func (m *Model) ID() string {
	return m.cfg.ModelID
}

// Converse runs a single inference turn.
func (m *Model) Converse(ctx context.Context, req llm.Request) (*llm.Response, error) {
	params, err := m.buildParams(req)
	if err != nil {
		return nil, &llm.ModelError{Model: m.ID(), Kind: llm.KindValidation, Err: err}
	}

	msg, err := m.messages.New(ctx, params)
	if err != nil {
		return nil, &llm.ModelError{Model: m.ID(), Kind: classify(err), Err: err}
	}
	return parseMessage(msg)
}

func (m *Model) buildParams(req llm.Request) (sdk.MessageNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = m.cfg.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(m.cfg.ModelID),
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	temperature := req.Temperature
	if temperature == nil {
		temperature = m.cfg.Temperature
	}
	if temperature != nil {
		params.Temperature = sdk.Float(*temperature)
	}

	for _, msg := range req.Messages {
		converted, err := convertMessage(msg)
		if err != nil {
			return sdk.MessageNewParams{}, err
		}
		params.Messages = append(params.Messages, converted)
	}

	for _, t := range req.Tools {
		tool := sdk.ToolParam{
			Name:        t.Name,
			Description: sdk.String(t.Description),
			InputSchema: convertSchema(t.InputSchema),
		}
		params.Tools = append(params.Tools, sdk.ToolUnionParam{OfTool: &tool})
	}
	return params, nil
}

func convertMessage(msg llm.Message) (sdk.MessageParam, error) {
	var blocks []sdk.ContentBlockParamUnion
	if msg.Text != "" {
		blocks = append(blocks, sdk.NewTextBlock(msg.Text))
	}
	for _, call := range msg.ToolCalls {
		blocks = append(blocks, sdk.ContentBlockParamUnion{
			OfToolUse: &sdk.ToolUseBlockParam{
				ID:    call.ID,
				Name:  call.Name,
				Input: call.Input,
			},
		})
	}
	for _, result := range msg.ToolResults {
		blocks = append(blocks, sdk.NewToolResultBlock(result.ID, result.Content, result.IsError))
	}
	if len(blocks) == 0 {
		return sdk.MessageParam{}, fmt.Errorf("message with no content")
	}

	if msg.Role == llm.RoleAssistant {
		return sdk.NewAssistantMessage(blocks...), nil
	}
	return sdk.NewUserMessage(blocks...), nil
}

func convertSchema(schema map[string]any) sdk.ToolInputSchemaParam {
	out := sdk.ToolInputSchemaParam{}
	if props, ok := schema["properties"]; ok {
		out.Properties = props
	}
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	return out
}

func parseMessage(msg *sdk.Message) (*llm.Response, error) {
	resp := &llm.Response{
		Message:    llm.Message{Role: llm.RoleAssistant},
		StopReason: llm.StopEndTurn,
		Usage: llm.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	switch msg.StopReason {
	case sdk.StopReasonToolUse:
		resp.StopReason = llm.StopToolUse
	case sdk.StopReasonMaxTokens:
		resp.StopReason = llm.StopMaxTokens
	}

	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case sdk.TextBlock:
			resp.Message.Text += b.Text
		case sdk.ToolUseBlock:
			var input map[string]any
			raw, err := json.Marshal(b.Input)
			if err != nil {
				return nil, fmt.Errorf("decode tool input: %w", err)
			}
			if err := json.Unmarshal(raw, &input); err != nil {
				return nil, fmt.Errorf("decode tool input: %w", err)
			}
			resp.Message.ToolCalls = append(resp.Message.ToolCalls, llm.ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: input,
			})
		}
	}
	return resp, nil
}

// classify maps Anthropic API failures to gateway error kinds. Rate limits
// and overload responses trigger chain fallback; everything else does not.
func classify(err error) llm.ErrorKind {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, 529:
			return llm.KindThrottled
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return llm.KindValidation
		case http.StatusUnauthorized, http.StatusForbidden:
			return llm.KindFatal
		}
		if apiErr.StatusCode >= 500 {
			return llm.KindTransient
		}
	}
	return llm.KindTransient
}
