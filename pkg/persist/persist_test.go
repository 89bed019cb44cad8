package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nstogner/tandem/pkg/domain"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		SavedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Agents: [2]domain.Agent{
			{ID: "agent-a", Name: "Alice", Model: "m1", ToolsEnabled: true},
			{ID: "agent-b", Name: "Bob", Model: "m1"},
		},
		State: domain.StateSnapshot{
			Status:       domain.RunStatusPaused,
			ActiveAgent:  "Bob",
			MessageCount: 2,
		},
		Messages: []domain.Message{
			{Seq: 1, ID: "m1", AgentID: "agent-a", Role: domain.RoleAssistant, ContentType: domain.ContentTypeText, Content: "hi"},
			{Seq: 2, ID: "m2", AgentID: "agent-b", Role: domain.RoleAssistant, ContentType: domain.ContentTypeText, Content: "hello"},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "conv.json")

	want := testSnapshot()
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Agents != want.Agents {
		t.Errorf("agents = %+v, want %+v", got.Agents, want.Agents)
	}
	if got.State != want.State {
		t.Errorf("state = %+v, want %+v", got.State, want.State)
	}
	if len(got.Messages) != len(want.Messages) {
		t.Fatalf("got %d messages, want %d", len(got.Messages), len(want.Messages))
	}
	for i := range want.Messages {
		if got.Messages[i].Content != want.Messages[i].Content {
			t.Errorf("message %d content = %q, want %q", i, got.Messages[i].Content, want.Messages[i].Content)
		}
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.json")

	first := testSnapshot()
	if err := Save(path, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := testSnapshot()
	second.Messages = append(second.Messages, domain.Message{
		Seq: 3, ID: "m3", AgentID: "agent-a", Role: domain.RoleAssistant,
		ContentType: domain.ContentTypeText, Content: "more",
	})
	if err := Save(path, second); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Messages) != 3 {
		t.Errorf("got %d messages after overwrite, want 3", len(got.Messages))
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want just the snapshot", len(entries))
	}
}

func TestLoadRejectsSequenceGap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.json")

	snap := testSnapshot()
	snap.Messages[1].Seq = 5
	if err := Save(path, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrCorruptState) {
		t.Errorf("Load error = %v, want ErrCorruptState", err)
	}
}

func TestLoadRejectsUnknownAgent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.json")

	snap := testSnapshot()
	snap.Messages[0].AgentID = "agent-z"
	if err := Save(path, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrCorruptState) {
		t.Errorf("Load error = %v, want ErrCorruptState", err)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrCorruptState) {
		t.Errorf("Load error = %v, want ErrCorruptState", err)
	}
}

func TestLoadMissingFileIsNotCorrupt(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Load succeeded on missing file")
	}
	if errors.Is(err, ErrCorruptState) {
		t.Errorf("missing file reported as corrupt: %v", err)
	}
}
