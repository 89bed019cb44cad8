// Package openai implements model.Provider using the OpenAI chat
// completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nstogner/tandem/pkg/domain"
	"github.com/nstogner/tandem/pkg/model"
	"github.com/nstogner/tandem/pkg/tools"
)

// Provider implements model.Provider for OpenAI.
type Provider struct {
	client openai.Client
}

var _ model.Provider = (*Provider)(nil)

// New creates a new OpenAI provider.
func New(apiKey string) *Provider {
	return &Provider{client: openai.NewClient(option.WithAPIKey(apiKey))}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "openai" }

// Complete sends the request and returns the parsed output.
func (p *Provider) Complete(ctx context.Context, req model.Request) (*model.Output, error) {
	slog.Debug("OpenAI.Complete", "model", req.Model, "messageCount", len(req.Messages))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: convertMessages(req.System, req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &model.TransientError{Err: fmt.Errorf("empty response from model %q", req.Model)}
	}

	choice := resp.Choices[0].Message
	out := &model.Output{Text: choice.Content}
	for _, tc := range choice.ToolCalls {
		var input map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
			return nil, fmt.Errorf("parsing tool arguments: %w", err)
		}
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}
	return out, nil
}

func convertMessages(system string, msgs []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range msgs {
		switch {
		case m.ToolResult != nil:
			out = append(out, openai.ToolMessage(m.ToolResult.Content, m.ToolResult.ToolCallID))
		case m.ToolCall != nil:
			args, _ := json.Marshal(m.ToolCall.Input)
			assistant := openai.ChatCompletionMessage{
				Role: "assistant",
				ToolCalls: []openai.ChatCompletionMessageToolCall{{
					ID:   m.ToolCall.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      m.ToolCall.Name,
						Arguments: string(args),
					},
				}},
			}
			out = append(out, assistant.ToParam())
		case m.Role == domain.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Text))
		default:
			out = append(out, openai.UserMessage(m.Text))
		}
	}
	return out
}

func convertTools(defs []tools.Definition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.InputSchema),
			},
		})
	}
	return out
}
