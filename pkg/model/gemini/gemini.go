// Package gemini implements model.Provider on top of the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/nstogner/tandem/pkg/domain"
	"github.com/nstogner/tandem/pkg/model"
	"github.com/nstogner/tandem/pkg/tools"
)

// Provider implements model.Provider for Google Gemini.
type Provider struct {
	client *genai.Client
}

var _ model.Provider = (*Provider)(nil)

// New creates a new Gemini provider.
func New(ctx context.Context, apiKey string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Provider{client: client}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "gemini" }

// Complete sends the request and returns the parsed output.
func (p *Provider) Complete(ctx context.Context, req model.Request) (*model.Output, error) {
	slog.Debug("Gemini.Complete", "model", req.Model, "messageCount", len(req.Messages))

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{
			FunctionDeclarations: buildDeclarations(req.Tools),
		}}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	// Error classification is left to the caller's retry layer, which
	// recognizes rate limit and server error signatures in the message.
	resp, err := p.client.Models.GenerateContent(ctx, req.Model, convertMessages(req.Messages), config)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &model.TransientError{Err: fmt.Errorf("empty response from model %q", req.Model)}
	}

	out := &model.Output{}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				// Gemini does not always assign call IDs; the tool loop
				// needs one to pair calls with results.
				id = "call-" + uuid.New().String()
			}
			out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
				ID:    id,
				Name:  part.FunctionCall.Name,
				Input: part.FunctionCall.Args,
			})
		}
	}
	return out, nil
}

func convertMessages(msgs []model.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch {
		case m.ToolResult != nil:
			out = append(out, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolResult.ToolCallID,
					Name:     m.ToolResult.ToolName,
					Response: map[string]any{"result": m.ToolResult.Content},
				}}},
			})
		case m.ToolCall != nil:
			out = append(out, &genai.Content{
				Role: "model",
				Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{
					ID:   m.ToolCall.ID,
					Name: m.ToolCall.Name,
					Args: m.ToolCall.Input,
				}}},
			})
		case m.Role == domain.RoleAssistant:
			out = append(out, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: m.Text}},
			})
		default:
			out = append(out, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Text}},
			})
		}
	}
	return out
}

func buildDeclarations(defs []tools.Definition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		out = append(out, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  schemaFromMap(def.InputSchema),
		})
	}
	return out
}

// schemaFromMap converts a JSON schema map into the SDK's typed form. Only
// the subset the tool definitions use is handled.
func schemaFromMap(m map[string]any) *genai.Schema {
	s := &genai.Schema{Type: typeFromString(m["type"])}
	if desc, ok := m["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if pm, ok := prop.(map[string]any); ok {
				s.Properties[name] = schemaFromMap(pm)
			}
		}
	}
	if required, ok := m["required"].([]any); ok {
		for _, r := range required {
			if str, ok := r.(string); ok {
				s.Required = append(s.Required, str)
			}
		}
	}
	return s
}

func typeFromString(v any) genai.Type {
	switch v {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}
