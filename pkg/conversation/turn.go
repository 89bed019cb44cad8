package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nstogner/tandem/pkg/domain"
	"github.com/nstogner/tandem/pkg/model"
	"github.com/nstogner/tandem/pkg/tools"
)

// takeTurn runs one agent turn: call the model, execute any requested tool
// calls, feed the results back, and repeat until the model replies with
// text only or the round cap is hit. The turn is atomic with respect to
// control requests; pause and stop apply only between turns.
func (m *Manager) takeTurn(ctx context.Context, agent domain.Agent) error {
	round := 0
	for {
		req := model.Request{
			Model:     agent.Model,
			System:    agent.SystemPrompt,
			Messages:  m.historyFor(agent),
			MaxTokens: m.cfg.MaxTokens,
		}
		if agent.ToolsEnabled && m.cfg.Tools != nil {
			req.Tools = tools.Definitions()
		}

		out, err := model.CompleteWithRetry(ctx, m.cfg.Provider, req, m.cfg.MaxAttempts)
		if err != nil {
			return err
		}

		if out.Text != "" {
			m.cfg.Transcript.Append(domain.Message{
				AgentID:     agent.ID,
				Role:        domain.RoleAssistant,
				ContentType: domain.ContentTypeText,
				Content:     out.Text,
			})
		}
		if !out.IsToolUse() {
			return nil
		}

		if round >= m.cfg.MaxToolRounds {
			// The requested calls are dropped, not recorded, so the
			// history never holds a call without a result.
			m.cfg.Transcript.Append(domain.Message{
				Role:        domain.RoleSystem,
				ContentType: domain.ContentTypeText,
				Content: fmt.Sprintf("Tool call limit reached (%d rounds in one turn); further tool calls were not executed.",
					m.cfg.MaxToolRounds),
			})
			return nil
		}

		for _, tc := range out.ToolCalls {
			if err := m.executeToolCall(ctx, agent, tc); err != nil {
				return err
			}
		}
		round++
	}
}

// executeToolCall records the call, runs it, and records the result. The
// tool server never fails as a Go error; every outcome lands in the result.
func (m *Manager) executeToolCall(ctx context.Context, agent domain.Agent, tc domain.ToolCall) error {
	callJSON, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("encoding tool call: %w", err)
	}
	m.cfg.Transcript.Append(domain.Message{
		AgentID:     agent.ID,
		Role:        domain.RoleAssistant,
		ContentType: domain.ContentTypeToolCall,
		Content:     string(callJSON),
	})

	result := m.cfg.Tools.Call(ctx, tc)

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding tool result: %w", err)
	}
	m.cfg.Transcript.Append(domain.Message{
		AgentID:     agent.ID,
		Role:        domain.RoleTool,
		ContentType: domain.ContentTypeToolResult,
		Content:     string(resultJSON),
	})
	return nil
}
