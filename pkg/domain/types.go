package domain

import "time"

// Agent is the immutable configuration of one conversation participant,
// fixed at startup.
type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	Model        string `json:"model"`
	ToolsEnabled bool   `json:"tools_enabled"`
}

// Message is a single transcript record. Messages are immutable once
// appended; Seq is strictly increasing and globally unique within a run.
type Message struct {
	Seq         int64     `json:"seq"`
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id,omitempty"` // empty for operator injections
	Role        Role      `json:"role"`
	ContentType string    `json:"content_type"` // "text", "tool_call", "tool_result"
	Content     string    `json:"content"`      // text, or JSON-encoded tool call/result
	Operator    bool      `json:"operator,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToolCall represents a tool invocation requested by an agent.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ErrorKind classifies tool execution failures. Tool failures are data,
// not control flow: they ride back to the agent inside a ToolResult.
type ErrorKind string

const (
	ErrKindNone         ErrorKind = ""
	ErrKindTimeout      ErrorKind = "timeout"
	ErrKindPathNotFound ErrorKind = "path_not_found"
	ErrKindFileNotFound ErrorKind = "file_not_found"
	ErrKindNotReadable  ErrorKind = "not_readable"
	ErrKindWriteDenied  ErrorKind = "write_denied"
	ErrKindBadArgs      ErrorKind = "invalid_arguments"
	ErrKindUnknownTool  ErrorKind = "unknown_tool"
)

// ToolResult represents the outcome of a tool call. Results are matched to
// their requests strictly by ToolCallID, never by position.
type ToolResult struct {
	ToolCallID string    `json:"tool_call_id"`
	ToolName   string    `json:"tool_name"`
	Content    string    `json:"content"`
	IsError    bool      `json:"is_error"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
}

// StateSnapshot is a point-in-time, read-only view of the run state.
type StateSnapshot struct {
	Status           RunStatus `json:"status"`
	ActiveAgent      string    `json:"active_agent"`
	MessageCount     int       `json:"message_count"`
	CurrentDirectory string    `json:"current_directory,omitempty"`
}
