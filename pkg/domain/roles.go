package domain

// Role defines the sender of a transcript message.
type Role string

const (
	// RoleUser indicates a message from outside the speaking agent:
	// the counterpart agent's reply or an operator injection.
	RoleUser Role = "user"
	// RoleAssistant indicates a message produced by an agent.
	RoleAssistant Role = "assistant"
	// RoleSystem indicates a synthesized note from the harness itself
	// (e.g. a tool round limit notice).
	RoleSystem Role = "system"
	// RoleTool indicates a tool execution result.
	RoleTool Role = "tool"
)

// Message content types.
const (
	ContentTypeText       = "text"
	ContentTypeToolCall   = "tool_call"
	ContentTypeToolResult = "tool_result"
)

// RunStatus is the lifecycle state of a conversation run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusPaused  RunStatus = "paused"
	RunStatusStopped RunStatus = "stopped"
)
