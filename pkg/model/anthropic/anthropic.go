// Package anthropic implements model.Provider using the Anthropic Messages
// API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nstogner/tandem/pkg/domain"
	"github.com/nstogner/tandem/pkg/model"
	"github.com/nstogner/tandem/pkg/tools"
)

// DefaultMaxTokens is used when the request does not set a limit.
const DefaultMaxTokens = 1024

// Provider implements model.Provider for Anthropic Claude.
type Provider struct {
	client anthropic.Client
}

// Verify interface compliance.
var _ model.Provider = (*Provider)(nil)

// New creates a new Anthropic provider.
func New(apiKey string) *Provider {
	return &Provider{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "anthropic" }

// Complete sends the request and returns the parsed output.
func (p *Provider) Complete(ctx context.Context, req model.Request) (*model.Output, error) {
	slog.Debug("Anthropic.Complete", "model", req.Model, "messageCount", len(req.Messages))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  convertMessages(req.Messages),
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	out := &model.Output{}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Text += b.Text
		case anthropic.ToolUseBlock:
			var input map[string]any
			if err := json.Unmarshal([]byte(b.JSON.Input.Raw()), &input); err != nil {
				return nil, fmt.Errorf("parsing tool input: %w", err)
			}
			out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: input,
			})
		}
	}
	return out, nil
}

// convertMessages maps the role-adjusted history into Anthropic message
// params. Consecutive entries with the same API role are coalesced into one
// message with multiple content blocks: the Messages API requires strictly
// alternating user/assistant turns, and tool results ride in user messages.
func convertMessages(msgs []model.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam

	push := func(role anthropic.MessageParamRole, block anthropic.ContentBlockParamUnion) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, block)
			return
		}
		out = append(out, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{block},
		})
	}

	for _, m := range msgs {
		switch {
		case m.ToolResult != nil:
			push(anthropic.MessageParamRoleUser,
				anthropic.NewToolResultBlock(m.ToolResult.ToolCallID, m.ToolResult.Content, m.ToolResult.IsError))
		case m.ToolCall != nil:
			push(anthropic.MessageParamRoleAssistant,
				anthropic.NewToolUseBlock(m.ToolCall.ID, m.ToolCall.Input, m.ToolCall.Name))
		case m.Role == domain.RoleAssistant:
			push(anthropic.MessageParamRoleAssistant, anthropic.NewTextBlock(m.Text))
		default:
			// User, operator, and system notes all arrive as user turns.
			push(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(m.Text))
		}
	}
	return out
}

func convertTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		param := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: def.InputSchema["properties"],
			},
		}
		if required, ok := def.InputSchema["required"].([]any); ok {
			req := make([]string, 0, len(required))
			for _, r := range required {
				if s, ok := r.(string); ok {
					req = append(req, s)
				}
			}
			param.InputSchema.Required = req
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}

// classify maps SDK errors onto the model error taxonomy. Authentication
// and request errors are fatal; rate limits and server errors transient.
func classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 408 || apierr.StatusCode == 429 || apierr.StatusCode >= 500:
			return &model.TransientError{Err: err}
		case apierr.StatusCode >= 400:
			return &model.FatalError{Err: err}
		}
	}
	return err
}
