package console

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nstogner/tandem/pkg/domain"
)

var (
	agentStyles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	}
	operatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	systemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Italic(true)
	toolStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusKey     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// RenderMessage formats one transcript message for the terminal. Tool
// traffic is summarized to one line each; full content lives in the
// transcript.
func RenderMessage(agents [2]domain.Agent, msg domain.Message) string {
	switch {
	case msg.Operator:
		return fmt.Sprintf("%s %s", operatorStyle.Render("[operator]"), msg.Content)

	case msg.Role == domain.RoleSystem:
		return systemStyle.Render("[system] " + msg.Content)

	case msg.ContentType == domain.ContentTypeToolCall:
		var tc domain.ToolCall
		if err := json.Unmarshal([]byte(msg.Content), &tc); err != nil {
			return toolStyle.Render("[tool call]")
		}
		args, _ := json.Marshal(tc.Input)
		return toolStyle.Render(fmt.Sprintf("  -> %s(%s)", tc.Name, args))

	case msg.ContentType == domain.ContentTypeToolResult:
		var tr domain.ToolResult
		if err := json.Unmarshal([]byte(msg.Content), &tr); err != nil {
			return toolStyle.Render("[tool result]")
		}
		summary := firstLine(tr.Content)
		if tr.IsError {
			summary = "error: " + summary
		}
		return toolStyle.Render(fmt.Sprintf("  <- %s", summary))

	default:
		name, style := agentLabel(agents, msg.AgentID)
		return fmt.Sprintf("%s %s", style.Render(name+":"), msg.Content)
	}
}

func agentLabel(agents [2]domain.Agent, agentID string) (string, lipgloss.Style) {
	for i, a := range agents {
		if a.ID == agentID {
			return a.Name, agentStyles[i%len(agentStyles)]
		}
	}
	return agentID, toolStyle
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	const max = 120
	if len(line) > max {
		return line[:max] + "..."
	}
	return line
}

// renderStatus formats a state snapshot for the status command.
func renderStatus(snap domain.StateSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", statusKey.Render("status:"), snap.Status)
	fmt.Fprintf(&b, "%s %s\n", statusKey.Render("next turn:"), snap.ActiveAgent)
	fmt.Fprintf(&b, "%s %d\n", statusKey.Render("messages:"), snap.MessageCount)
	if snap.CurrentDirectory != "" {
		fmt.Fprintf(&b, "%s %s\n", statusKey.Render("directory:"), snap.CurrentDirectory)
	}
	return b.String()
}
