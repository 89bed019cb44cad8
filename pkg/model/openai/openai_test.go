package openai

import (
	"testing"

	"github.com/nstogner/tandem/pkg/domain"
	"github.com/nstogner/tandem/pkg/model"
	"github.com/nstogner/tandem/pkg/tools"
)

func TestConvertMessagesRolesAndToolPairing(t *testing.T) {
	msgs := []model.Message{
		{Role: domain.RoleUser, Text: "hi"},
		{Role: domain.RoleAssistant, ToolCall: &domain.ToolCall{
			ID: "call_abc123", Name: "read_file", Input: map[string]any{"path": "notes.txt"},
		}},
		{Role: domain.RoleTool, ToolResult: &domain.ToolResult{
			ToolCallID: "call_abc123", ToolName: "read_file", Content: "Contents of notes.txt:\nok",
		}},
		{Role: domain.RoleAssistant, Text: "done"},
	}

	out := convertMessages("be brief", msgs)
	if len(out) != 5 {
		t.Fatalf("got %d messages, want 5 (system + 4)", len(out))
	}

	if out[0].OfSystem == nil {
		t.Error("first message is not the system prompt")
	}
	if out[1].OfUser == nil {
		t.Error("second message is not a user message")
	}

	assistant := out[2].OfAssistant
	if assistant == nil {
		t.Fatal("third message is not an assistant message")
	}
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_abc123" {
		t.Errorf("assistant tool calls = %+v", assistant.ToolCalls)
	}

	// Results are matched to calls by ID, so the tool message must carry
	// the call ID in tool_call_id and the result body in content.
	tool := out[3].OfTool
	if tool == nil {
		t.Fatal("fourth message is not a tool message")
	}
	if tool.ToolCallID != "call_abc123" {
		t.Errorf("tool_call_id = %q, want call_abc123", tool.ToolCallID)
	}
	if got := tool.Content.OfString.Value; got != "Contents of notes.txt:\nok" {
		t.Errorf("content = %q, want the tool result body", got)
	}

	if out[4].OfAssistant == nil {
		t.Error("fifth message is not an assistant message")
	}
}

func TestConvertToolsPassesSchema(t *testing.T) {
	out := convertTools(tools.Definitions())
	if len(out) != 5 {
		t.Fatalf("got %d tools, want 5", len(out))
	}

	exec := out[0]
	if exec.Function.Name != tools.ToolNameExecuteCommand {
		t.Errorf("name = %q", exec.Function.Name)
	}
	params := map[string]any(exec.Function.Parameters)
	if params["type"] != "object" {
		t.Errorf("schema type = %v, want object", params["type"])
	}
	if _, ok := params["properties"].(map[string]any)["command"]; !ok {
		t.Error("command property missing from schema")
	}
}
