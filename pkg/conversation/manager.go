// Package conversation implements the turn scheduler for a two-agent run.
// The manager owns the alternation loop: it decides whose turn it is, drives
// each turn through the model and the tool server, and applies control
// requests (pause, resume, stop, injections) at turn boundaries.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nstogner/tandem/pkg/domain"
	"github.com/nstogner/tandem/pkg/model"
	"github.com/nstogner/tandem/pkg/tools"
	"github.com/nstogner/tandem/pkg/transcript"
)

const (
	// DefaultMaxToolRounds bounds tool call batches within a single turn.
	DefaultMaxToolRounds = 10

	// DefaultTurnDelay is the pause between turns.
	DefaultTurnDelay = 2 * time.Second

	// seedMessage opens the conversation when an agent has no visible
	// history yet.
	seedMessage = "Please introduce yourself and start a conversation."
)

// errStopped signals a stop request observed at a turn boundary.
var errStopped = errors.New("run stopped")

// Config collects everything the manager needs for a run.
type Config struct {
	Agents   [2]domain.Agent
	Provider model.Provider

	// Tools is optional; nil runs the conversation without tool use.
	Tools *tools.Server

	Transcript *transcript.Transcript

	// StartAgent selects which agent moves first, by ID. Empty means
	// Agents[0].
	StartAgent string

	MaxToolRounds int
	MaxTokens     int
	TurnDelay     time.Duration
	MaxAttempts   int
}

// Manager runs the alternation loop and serves control requests. Control
// methods are safe to call from any goroutine at any time; they request
// transitions which the loop applies at the next turn boundary.
type Manager struct {
	cfg Config

	mu           sync.Mutex
	cond         *sync.Cond
	status       domain.RunStatus
	pausePending bool
	stopPending  bool
	injections   []string
	active       int
}

// New creates a manager. The transcript may already hold restored messages;
// the loop continues from wherever it left off.
func New(cfg Config) *Manager {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.TurnDelay <= 0 {
		cfg.TurnDelay = DefaultTurnDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = model.DefaultMaxAttempts
	}

	m := &Manager{cfg: cfg}
	m.cond = sync.NewCond(&m.mu)
	if cfg.StartAgent == cfg.Agents[1].ID {
		m.active = 1
	}
	return m
}

// Run drives the conversation until stopped, cancelled, or a fatal error.
// A clean stop returns nil.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	m.status = domain.RunStatusRunning
	m.mu.Unlock()

	// Wake any cond.Wait when the context is cancelled.
	stopWatch := context.AfterFunc(ctx, func() { m.cond.Broadcast() })
	defer stopWatch()

	defer func() {
		m.mu.Lock()
		m.status = domain.RunStatusStopped
		m.mu.Unlock()
	}()

	for {
		if err := m.waitRunnable(ctx); err != nil {
			if errors.Is(err, errStopped) {
				return nil
			}
			return err
		}

		m.drainInjections()

		agent := m.activeAgent()
		slog.Info("Turn starting", "agent", agent.Name)
		if err := m.takeTurn(ctx, agent); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("turn for agent %q: %w", agent.Name, err)
		}

		m.mu.Lock()
		m.active = 1 - m.active
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(m.cfg.TurnDelay):
		}
	}
}

// waitRunnable blocks at the turn boundary until the run may proceed. It
// applies pending pause requests and honors stop requests, which win over
// everything including an active pause.
func (m *Manager) waitRunnable(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		if m.stopPending || ctx.Err() != nil {
			return errStopped
		}
		if m.pausePending {
			m.pausePending = false
			m.status = domain.RunStatusPaused
			slog.Info("Run paused")
		}
		if m.status != domain.RunStatusPaused {
			return nil
		}
		m.cond.Wait()
	}
}

// Pause requests a pause. It returns immediately; the run pauses at the
// next turn boundary so an in-flight turn always completes.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == domain.RunStatusStopped || m.stopPending {
		return
	}
	m.pausePending = true
}

// Resume clears a pause, pending or applied.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pausePending = false
	if m.status == domain.RunStatusPaused {
		m.status = domain.RunStatusRunning
		slog.Info("Run resumed")
		m.cond.Broadcast()
	}
}

// Stop ends the run at the next turn boundary. Stop works from any state,
// including paused.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopPending = true
	m.cond.Broadcast()
}

// Inject queues an operator message. It is appended to the transcript
// exactly once, at the start of the next turn, regardless of how many turns
// are queued behind it.
func (m *Manager) Inject(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.injections = append(m.injections, text)
}

// Status returns a point-in-time snapshot. The snapshot is internally
// consistent but may be stale by the time the caller reads it.
func (m *Manager) Status() domain.StateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := domain.StateSnapshot{
		Status:       m.status,
		ActiveAgent:  m.cfg.Agents[m.active].Name,
		MessageCount: m.cfg.Transcript.Len(),
	}
	if m.cfg.Tools != nil {
		snap.CurrentDirectory = m.cfg.Tools.CurrentDirectory()
	}
	return snap
}

// Agents returns the two participants.
func (m *Manager) Agents() [2]domain.Agent { return m.cfg.Agents }

func (m *Manager) activeAgent() domain.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Agents[m.active]
}

// drainInjections moves queued operator messages into the transcript.
func (m *Manager) drainInjections() {
	m.mu.Lock()
	pending := m.injections
	m.injections = nil
	m.mu.Unlock()

	for _, text := range pending {
		m.cfg.Transcript.Append(domain.Message{
			Role:        domain.RoleUser,
			ContentType: domain.ContentTypeText,
			Content:     text,
			Operator:    true,
		})
		slog.Info("Operator message delivered", "text", text)
	}
}
