package conversation

import (
	"encoding/json"

	"github.com/nstogner/tandem/pkg/domain"
	"github.com/nstogner/tandem/pkg/model"
)

// historyFor builds the role-adjusted view of the transcript for one agent.
// The same transcript reads differently from each side: an agent's own
// messages become assistant turns, the counterpart's text becomes user
// turns, and the counterpart's tool traffic is hidden entirely. Operator
// injections and system notes are visible to both agents as user turns.
func (m *Manager) historyFor(agent domain.Agent) []model.Message {
	var history []model.Message

	for _, msg := range m.cfg.Transcript.Snapshot() {
		switch {
		case msg.Operator:
			history = append(history, model.Message{
				Role: domain.RoleUser,
				Text: "[Operator] " + msg.Content,
			})

		case msg.Role == domain.RoleSystem:
			history = append(history, model.Message{
				Role: domain.RoleUser,
				Text: msg.Content,
			})

		case msg.AgentID == agent.ID:
			switch msg.ContentType {
			case domain.ContentTypeText:
				history = append(history, model.Message{
					Role: domain.RoleAssistant,
					Text: msg.Content,
				})
			case domain.ContentTypeToolCall:
				var tc domain.ToolCall
				if err := json.Unmarshal([]byte(msg.Content), &tc); err != nil {
					continue
				}
				history = append(history, model.Message{
					Role:     domain.RoleAssistant,
					ToolCall: &tc,
				})
			case domain.ContentTypeToolResult:
				var tr domain.ToolResult
				if err := json.Unmarshal([]byte(msg.Content), &tr); err != nil {
					continue
				}
				history = append(history, model.Message{
					Role:       domain.RoleTool,
					ToolResult: &tr,
				})
			}

		default:
			// Counterpart. Only its text crosses over; its tool calls and
			// results stay private to its own view.
			if msg.ContentType == domain.ContentTypeText {
				history = append(history, model.Message{
					Role: domain.RoleUser,
					Text: msg.Content,
				})
			}
		}
	}

	if len(history) == 0 {
		history = append(history, model.Message{
			Role: domain.RoleUser,
			Text: seedMessage,
		})
	}
	return history
}
