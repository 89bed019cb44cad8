package conversation

import (
	"encoding/json"
	"testing"

	"github.com/nstogner/tandem/pkg/domain"
	"github.com/nstogner/tandem/pkg/transcript"
)

func TestHistoryForRoleMapping(t *testing.T) {
	tr := transcript.New()
	m := New(Config{Agents: testAgents, Transcript: tr})

	call := domain.ToolCall{ID: "tc-1", Name: "list_directory", Input: map[string]any{}}
	callJSON, _ := json.Marshal(call)
	result := domain.ToolResult{ToolCallID: "tc-1", ToolName: "list_directory", Content: "Contents of /tmp:\n"}
	resultJSON, _ := json.Marshal(result)

	tr.Append(domain.Message{AgentID: "agent-a", Role: domain.RoleAssistant, ContentType: domain.ContentTypeText, Content: "hello from alice"})
	tr.Append(domain.Message{AgentID: "agent-b", Role: domain.RoleAssistant, ContentType: domain.ContentTypeToolCall, Content: string(callJSON)})
	tr.Append(domain.Message{AgentID: "agent-b", Role: domain.RoleTool, ContentType: domain.ContentTypeToolResult, Content: string(resultJSON)})
	tr.Append(domain.Message{AgentID: "agent-b", Role: domain.RoleAssistant, ContentType: domain.ContentTypeText, Content: "hello from bob"})
	tr.Append(domain.Message{Role: domain.RoleUser, ContentType: domain.ContentTypeText, Content: "switch topics", Operator: true})
	tr.Append(domain.Message{Role: domain.RoleSystem, ContentType: domain.ContentTypeText, Content: "Tool call limit reached (2 rounds in one turn); further tool calls were not executed."})

	// Alice's view: her text is assistant, Bob's tool traffic is hidden,
	// Bob's text is user, operator and system notes are user.
	alice := m.historyFor(testAgents[0])
	if len(alice) != 4 {
		t.Fatalf("alice history has %d messages, want 4: %+v", len(alice), alice)
	}
	if alice[0].Role != domain.RoleAssistant || alice[0].Text != "hello from alice" {
		t.Errorf("alice[0] = %+v", alice[0])
	}
	if alice[1].Role != domain.RoleUser || alice[1].Text != "hello from bob" {
		t.Errorf("alice[1] = %+v", alice[1])
	}
	if alice[2].Text != "[Operator] switch topics" {
		t.Errorf("alice[2] = %+v, want operator prefix", alice[2])
	}
	if alice[3].Role != domain.RoleUser {
		t.Errorf("alice[3] role = %q, want user", alice[3].Role)
	}

	// Bob's view keeps his own tool call and result.
	bob := m.historyFor(testAgents[1])
	if len(bob) != 6 {
		t.Fatalf("bob history has %d messages, want 6: %+v", len(bob), bob)
	}
	if bob[0].Role != domain.RoleUser || bob[0].Text != "hello from alice" {
		t.Errorf("bob[0] = %+v", bob[0])
	}
	if bob[1].ToolCall == nil || bob[1].ToolCall.ID != "tc-1" {
		t.Errorf("bob[1] = %+v, want tool call tc-1", bob[1])
	}
	if bob[2].ToolResult == nil || bob[2].ToolResult.ToolCallID != "tc-1" {
		t.Errorf("bob[2] = %+v, want tool result for tc-1", bob[2])
	}
	if bob[3].Role != domain.RoleAssistant || bob[3].Text != "hello from bob" {
		t.Errorf("bob[3] = %+v", bob[3])
	}
}

func TestHistoryForEmptyTranscriptSeeds(t *testing.T) {
	m := New(Config{Agents: testAgents, Transcript: transcript.New()})

	history := m.historyFor(testAgents[0])
	if len(history) != 1 {
		t.Fatalf("history has %d messages, want 1", len(history))
	}
	if history[0].Role != domain.RoleUser || history[0].Text != seedMessage {
		t.Errorf("history[0] = %+v, want seed", history[0])
	}
}
