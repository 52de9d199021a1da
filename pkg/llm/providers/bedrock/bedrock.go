// Package bedrock adapts the AWS Bedrock Converse API to the model gateway.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/irops-ai/tower/pkg/config"
	"github.com/irops-ai/tower/pkg/llm"
)

// API is the subset of the Bedrock runtime client the model needs.
type API interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Model invokes one Bedrock model through the Converse API.
type Model struct {
	client API
	cfg    config.ModelConfig
}

// New creates a Bedrock-backed model from its configuration.
func New(client API, cfg config.ModelConfig) *Model {
	return &Model{client: client, cfg: cfg}
}

// NewFromConfig builds the model over a real Bedrock runtime client.
func NewFromConfig(awsCfg aws.Config, cfg config.ModelConfig) *Model {
	var optFns []func(*bedrockruntime.Options)
	if cfg.Region != "" {
		optFns = append(optFns, func(o *bedrockruntime.Options) { o.Region = cfg.Region })
	}
	return New(bedrockruntime.NewFromConfig(awsCfg, optFns...), cfg)
}

func (m *Model) ID() string {
	return m.cfg.ModelID
}

// Converse runs a single inference turn.
func (m *Model) Converse(ctx context.Context, req llm.Request) (*llm.Response, error) {
	input, err := m.buildInput(req)
	if err != nil {
		return nil, &llm.ModelError{Model: m.ID(), Kind: llm.KindValidation, Err: err}
	}

	out, err := m.client.Converse(ctx, input)
	if err != nil {
		return nil, &llm.ModelError{Model: m.ID(), Kind: classify(err), Err: err}
	}

	resp, err := parseOutput(out)
	if err != nil {
		return nil, &llm.ModelError{Model: m.ID(), Kind: llm.KindTransient, Err: err}
	}
	return resp, nil
}

func (m *Model) buildInput(req llm.Request) (*bedrockruntime.ConverseInput, error) {
	messages := make([]types.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		converted, err := convertMessage(msg)
		if err != nil {
			return nil, err
		}
		messages = append(messages, converted)
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(m.cfg.ModelID),
		Messages: messages,
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = m.cfg.MaxTokens
	}
	inference := &types.InferenceConfiguration{}
	if maxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(maxTokens))
	}
	temperature := req.Temperature
	if temperature == nil {
		temperature = m.cfg.Temperature
	}
	if temperature != nil {
		inference.Temperature = aws.Float32(float32(*temperature))
	}
	input.InferenceConfig = inference

	if len(req.Tools) > 0 {
		tools := make([]types.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, &types.ToolMemberToolSpec{
				Value: types.ToolSpecification{
					Name:        aws.String(t.Name),
					Description: aws.String(t.Description),
					InputSchema: &types.ToolInputSchemaMemberJson{
						Value: document.NewLazyDocument(t.InputSchema),
					},
				},
			})
		}
		input.ToolConfig = &types.ToolConfiguration{Tools: tools}
	}
	return input, nil
}

func convertMessage(msg llm.Message) (types.Message, error) {
	role := types.ConversationRoleUser
	if msg.Role == llm.RoleAssistant {
		role = types.ConversationRoleAssistant
	}

	var blocks []types.ContentBlock
	if msg.Text != "" {
		blocks = append(blocks, &types.ContentBlockMemberText{Value: msg.Text})
	}
	for _, call := range msg.ToolCalls {
		blocks = append(blocks, &types.ContentBlockMemberToolUse{
			Value: types.ToolUseBlock{
				ToolUseId: aws.String(call.ID),
				Name:      aws.String(call.Name),
				Input:     document.NewLazyDocument(call.Input),
			},
		})
	}
	for _, result := range msg.ToolResults {
		status := types.ToolResultStatusSuccess
		if result.IsError {
			status = types.ToolResultStatusError
		}
		blocks = append(blocks, &types.ContentBlockMemberToolResult{
			Value: types.ToolResultBlock{
				ToolUseId: aws.String(result.ID),
				Status:    status,
				Content: []types.ToolResultContentBlock{
					&types.ToolResultContentBlockMemberText{Value: result.Content},
				},
			},
		})
	}
	if len(blocks) == 0 {
		return types.Message{}, fmt.Errorf("message with no content")
	}
	return types.Message{Role: role, Content: blocks}, nil
}

func parseOutput(out *bedrockruntime.ConverseOutput) (*llm.Response, error) {
	outMsg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", out.Output)
	}

	resp := &llm.Response{
		Message:    llm.Message{Role: llm.RoleAssistant},
		StopReason: llm.StopEndTurn,
	}
	switch out.StopReason {
	case types.StopReasonToolUse:
		resp.StopReason = llm.StopToolUse
	case types.StopReasonMaxTokens:
		resp.StopReason = llm.StopMaxTokens
	}

	for _, block := range outMsg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			resp.Message.Text += b.Value
		case *types.ContentBlockMemberToolUse:
			var input map[string]any
			if b.Value.Input != nil {
				if err := b.Value.Input.UnmarshalSmithyDocument(&input); err != nil {
					return nil, fmt.Errorf("decode tool input: %w", err)
				}
			}
			resp.Message.ToolCalls = append(resp.Message.ToolCalls, llm.ToolCall{
				ID:    aws.ToString(b.Value.ToolUseId),
				Name:  aws.ToString(b.Value.Name),
				Input: input,
			})
		}
	}

	if out.Usage != nil {
		resp.Usage = llm.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	return resp, nil
}

// classify maps Bedrock failures to gateway error kinds. Only throttling
// classes trigger chain fallback.
func classify(err error) llm.ErrorKind {
	var throttled *types.ThrottlingException
	if errors.As(err, &throttled) {
		return llm.KindThrottled
	}
	var quota *types.ServiceQuotaExceededException
	if errors.As(err, &quota) {
		return llm.KindThrottled
	}
	var validation *types.ValidationException
	if errors.As(err, &validation) {
		return llm.KindValidation
	}
	var denied *types.AccessDeniedException
	if errors.As(err, &denied) {
		return llm.KindFatal
	}
	var notReady *types.ModelNotReadyException
	if errors.As(err, &notReady) {
		return llm.KindTransient
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return llm.KindThrottled
		case "ServiceUnavailableException", "InternalServerException", "ModelTimeoutException":
			return llm.KindTransient
		case "UnrecognizedClientException", "ExpiredTokenException":
			return llm.KindFatal
		}
	}
	return llm.KindTransient
}
