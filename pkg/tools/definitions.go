package tools

// Tool names surfaced to the model providers.
const (
	ToolNameExecuteCommand  = "execute_command"
	ToolNameChangeDirectory = "change_directory"
	ToolNameListDirectory   = "list_directory"
	ToolNameReadFile        = "read_file"
	ToolNameWriteFile       = "write_file"
)

// Definition describes one tool to the completion capability: its name, a
// description, and a JSON schema for its arguments. The schema is what lets
// the model's structured tool-call output be parsed unambiguously.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Definitions returns the five host-execution tools.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolNameExecuteCommand,
			Description: "Execute a shell command and return the output",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "The shell command to execute",
					},
					"timeout": map[string]any{
						"type":        "integer",
						"description": "Command timeout in seconds (default: 30)",
					},
				},
				"required": []any{"command"},
			},
		},
		{
			Name:        ToolNameChangeDirectory,
			Description: "Change the current working directory",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "The directory path to change to",
					},
				},
				"required": []any{"path"},
			},
		},
		{
			Name:        ToolNameListDirectory,
			Description: "List contents of a directory",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Directory path to list (default: current directory)",
					},
				},
			},
		},
		{
			Name:        ToolNameReadFile,
			Description: "Read the contents of a file",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to read",
					},
				},
				"required": []any{"path"},
			},
		},
		{
			Name:        ToolNameWriteFile,
			Description: "Write content to a file",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to write",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Content to write to the file",
					},
					"append": map[string]any{
						"type":        "boolean",
						"description": "Whether to append to the file (default: false)",
					},
				},
				"required": []any{"path", "content"},
			},
		},
	}
}
