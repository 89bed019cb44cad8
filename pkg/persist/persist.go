// Package persist saves and restores runs as JSON snapshot files. A
// snapshot is written atomically (temp file plus rename) so a crash during
// save never corrupts an existing file.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nstogner/tandem/pkg/domain"
)

// ErrCorruptState marks a snapshot that fails validation on load. Callers
// should refuse to resume from it rather than guess.
var ErrCorruptState = errors.New("corrupt snapshot")

// Snapshot is the on-disk representation of a run.
type Snapshot struct {
	SavedAt  time.Time            `json:"saved_at"`
	Agents   [2]domain.Agent      `json:"agents"`
	State    domain.StateSnapshot `json:"state"`
	Messages []domain.Message     `json:"messages"`
}

// Save writes the snapshot to path, creating parent directories as needed.
func Save(path string, snap *Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming snapshot into place: %w", err)
	}
	return nil
}

// Load reads and validates a snapshot. Validation failures wrap
// ErrCorruptState.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrCorruptState, err)
	}
	if err := validate(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &snap, nil
}

func validate(snap *Snapshot) error {
	for i, agent := range snap.Agents {
		if agent.ID == "" {
			return fmt.Errorf("agent %d has no ID", i)
		}
	}
	if snap.Agents[0].ID == snap.Agents[1].ID {
		return fmt.Errorf("agents share ID %q", snap.Agents[0].ID)
	}

	ids := map[string]bool{
		snap.Agents[0].ID: true,
		snap.Agents[1].ID: true,
	}
	for i, msg := range snap.Messages {
		if msg.Seq != int64(i)+1 {
			return fmt.Errorf("message %d has sequence %d, want %d", i, msg.Seq, i+1)
		}
		if msg.AgentID != "" && !ids[msg.AgentID] {
			return fmt.Errorf("message %d references unknown agent %q", i, msg.AgentID)
		}
		switch msg.ContentType {
		case domain.ContentTypeText:
		case domain.ContentTypeToolCall:
			var tc domain.ToolCall
			if err := json.Unmarshal([]byte(msg.Content), &tc); err != nil {
				return fmt.Errorf("message %d has undecodable tool call: %v", i, err)
			}
		case domain.ContentTypeToolResult:
			var tr domain.ToolResult
			if err := json.Unmarshal([]byte(msg.Content), &tr); err != nil {
				return fmt.Errorf("message %d has undecodable tool result: %v", i, err)
			}
		default:
			return fmt.Errorf("message %d has unknown content type %q", i, msg.ContentType)
		}
	}

	if snap.State.ActiveAgent != "" {
		found := snap.State.ActiveAgent == snap.Agents[0].Name || snap.State.ActiveAgent == snap.Agents[1].Name
		if !found {
			return fmt.Errorf("active agent %q is not a participant", snap.State.ActiveAgent)
		}
	}
	return nil
}
