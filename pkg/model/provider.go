// Package model defines the interface to the external completion
// capability. A provider turns a role-adjusted message history plus tool
// definitions into either a plain text reply or a batch of tool calls; it
// is the only place the network is touched.
package model

import (
	"context"

	"github.com/nstogner/tandem/pkg/domain"
	"github.com/nstogner/tandem/pkg/tools"
)

// Message is one entry of the history handed to a provider. Exactly one of
// Text, ToolCall, ToolResult is meaningful, selected by Role and the
// pointer fields.
type Message struct {
	Role       domain.Role
	Text       string
	ToolCall   *domain.ToolCall
	ToolResult *domain.ToolResult
}

// Request carries everything a provider needs for one completion.
type Request struct {
	Model     string
	System    string
	Messages  []Message
	Tools     []tools.Definition
	MaxTokens int
}

// Output is the tagged result of a completion: a plain reply, one or more
// tool calls, or both (some models interleave text with calls).
type Output struct {
	Text      string
	ToolCalls []domain.ToolCall
}

// IsToolUse reports whether the output requests any tool calls.
func (o *Output) IsToolUse() bool { return len(o.ToolCalls) > 0 }

// Provider represents an LLM completion service (Anthropic, Gemini, OpenAI).
type Provider interface {
	// Name returns the provider's identifier (e.g. "anthropic").
	Name() string

	// Complete sends the request and blocks until the full response is
	// available. Errors are classified via Transient/Fatal wrappers; an
	// unwrapped error is treated as fatal.
	Complete(ctx context.Context, req Request) (*Output, error)
}
