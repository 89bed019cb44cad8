package console

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nstogner/tandem/pkg/domain"
)

type fakeController struct {
	paused   int
	resumed  int
	stopped  int
	injected []string
}

func (f *fakeController) Pause()             { f.paused++ }
func (f *fakeController) Resume()            { f.resumed++ }
func (f *fakeController) Stop()              { f.stopped++ }
func (f *fakeController) Inject(text string) { f.injected = append(f.injected, text) }
func (f *fakeController) Status() domain.StateSnapshot {
	return domain.StateSnapshot{
		Status:       domain.RunStatusRunning,
		ActiveAgent:  "Alice",
		MessageCount: 7,
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line, cmd, arg string
	}{
		{"pause", "pause", ""},
		{"  PAUSE  ", "pause", ""},
		{"message hello there world", "message", "hello there world"},
		{"save /tmp/x.json", "save", "/tmp/x.json"},
		{"", "", ""},
		{"   ", "", ""},
	}
	for _, c := range cases {
		cmd, arg := parseCommand(c.line)
		if cmd != c.cmd || arg != c.arg {
			t.Errorf("parseCommand(%q) = (%q, %q), want (%q, %q)", c.line, cmd, arg, c.cmd, c.arg)
		}
	}
}

func TestExecuteDispatch(t *testing.T) {
	ctrl := &fakeController{}
	var out strings.Builder
	c := New(ctrl, &out)
	ctx := context.Background()

	c.Execute(ctx, "pause")
	c.Execute(ctx, "resume")
	c.Execute(ctx, "message keep it short")

	if ctrl.paused != 1 || ctrl.resumed != 1 {
		t.Errorf("paused = %d, resumed = %d, want 1 each", ctrl.paused, ctrl.resumed)
	}
	if len(ctrl.injected) != 1 || ctrl.injected[0] != "keep it short" {
		t.Errorf("injected = %v", ctrl.injected)
	}
}

func TestExecuteQuitStops(t *testing.T) {
	ctrl := &fakeController{}
	var out strings.Builder
	c := New(ctrl, &out)

	if quit := c.Execute(context.Background(), "quit"); !quit {
		t.Error("quit did not request exit")
	}
	if ctrl.stopped != 1 {
		t.Errorf("stopped = %d, want 1", ctrl.stopped)
	}
}

func TestExecuteUnknownShowsUsage(t *testing.T) {
	ctrl := &fakeController{}
	var out strings.Builder
	c := New(ctrl, &out)

	if quit := c.Execute(context.Background(), "frobnicate"); quit {
		t.Error("unknown command requested exit")
	}
	if !strings.Contains(out.String(), "Unknown command") || !strings.Contains(out.String(), "Commands:") {
		t.Errorf("output = %q, want unknown command plus usage", out.String())
	}
}

func TestExecuteSave(t *testing.T) {
	ctrl := &fakeController{}
	var out strings.Builder
	c := New(ctrl, &out)
	ctx := context.Background()

	var savedPath string
	c.Save = func(path string) error {
		savedPath = path
		return nil
	}
	c.DefaultSavePath = "default.json"

	c.Execute(ctx, "save")
	if savedPath != "default.json" {
		t.Errorf("saved path = %q, want default.json", savedPath)
	}

	c.Execute(ctx, "save custom.json")
	if savedPath != "custom.json" {
		t.Errorf("saved path = %q, want custom.json", savedPath)
	}

	c.Save = func(string) error { return errors.New("disk full") }
	out.Reset()
	c.Execute(ctx, "save")
	if !strings.Contains(out.String(), "Save failed") {
		t.Errorf("output = %q, want save failure", out.String())
	}
}

func TestRunReadsUntilQuit(t *testing.T) {
	ctrl := &fakeController{}
	var out strings.Builder
	c := New(ctrl, &out)

	in := strings.NewReader("pause\nmessage hi\nquit\nresume\n")
	if err := c.Run(context.Background(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Commands after quit are not processed.
	if ctrl.resumed != 0 {
		t.Errorf("resumed = %d, want 0", ctrl.resumed)
	}
	if ctrl.stopped != 1 {
		t.Errorf("stopped = %d, want 1", ctrl.stopped)
	}
}

func TestRenderMessageOperatorAndTool(t *testing.T) {
	agents := [2]domain.Agent{
		{ID: "agent-a", Name: "Alice"},
		{ID: "agent-b", Name: "Bob"},
	}

	op := RenderMessage(agents, domain.Message{
		Operator: true, Role: domain.RoleUser,
		ContentType: domain.ContentTypeText, Content: "change topic",
	})
	if !strings.Contains(op, "change topic") || !strings.Contains(op, "operator") {
		t.Errorf("operator render = %q", op)
	}

	call := RenderMessage(agents, domain.Message{
		AgentID: "agent-a", Role: domain.RoleAssistant,
		ContentType: domain.ContentTypeToolCall,
		Content:     `{"id":"tc-1","name":"read_file","input":{"path":"notes.txt"}}`,
	})
	if !strings.Contains(call, "read_file") {
		t.Errorf("tool call render = %q", call)
	}

	text := RenderMessage(agents, domain.Message{
		AgentID: "agent-b", Role: domain.RoleAssistant,
		ContentType: domain.ContentTypeText, Content: "hello",
	})
	if !strings.Contains(text, "Bob") || !strings.Contains(text, "hello") {
		t.Errorf("text render = %q", text)
	}
}
