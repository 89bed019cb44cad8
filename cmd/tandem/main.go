// Command tandem runs a conversation between two LLM agents that share a
// command-execution tool server. The operator steers the run from stdin
// (pause, resume, message, save) while an optional HTTP endpoint lets
// others watch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nstogner/tandem/pkg/archive"
	"github.com/nstogner/tandem/pkg/console"
	"github.com/nstogner/tandem/pkg/conversation"
	"github.com/nstogner/tandem/pkg/domain"
	"github.com/nstogner/tandem/pkg/model"
	"github.com/nstogner/tandem/pkg/model/anthropic"
	"github.com/nstogner/tandem/pkg/model/gemini"
	"github.com/nstogner/tandem/pkg/model/openai"
	"github.com/nstogner/tandem/pkg/persist"
	"github.com/nstogner/tandem/pkg/server"
	"github.com/nstogner/tandem/pkg/tools"
	"github.com/nstogner/tandem/pkg/tools/dockerexec"
	"github.com/nstogner/tandem/pkg/transcript"
)

var providerDefaults = map[string]struct {
	envKey string
	model  string
}{
	"anthropic": {"ANTHROPIC_API_KEY", "claude-sonnet-4-5"},
	"gemini":    {"GEMINI_API_KEY", "gemini-2.0-flash"},
	"openai":    {"OPENAI_API_KEY", "gpt-4o"},
}

const defaultPrompt = "You are having an open-ended conversation with another AI agent. " +
	"You share a working directory and tools to run commands in it. Be curious and concise."

func main() {
	var (
		providerName = flag.String("provider", "anthropic", "model provider: anthropic, gemini, or openai")
		modelName    = flag.String("model", "", "model name (defaults to the provider's standard model)")
		apiKey       = flag.String("api-key", "", "API key (defaults to the provider's environment variable)")

		agentAName   = flag.String("agent-a-name", "Ada", "first agent's display name")
		agentAPrompt = flag.String("agent-a-prompt", defaultPrompt, "first agent's system prompt")
		agentBName   = flag.String("agent-b-name", "Blake", "second agent's display name")
		agentBPrompt = flag.String("agent-b-prompt", defaultPrompt, "second agent's system prompt")

		workdir       = flag.String("workdir", ".", "working directory for tool execution")
		noTools       = flag.Bool("no-tools", false, "run without the tool server")
		dockerImage   = flag.String("docker-image", "", "run commands in a container of this image instead of the host")
		maxToolRounds = flag.Int("max-tool-rounds", conversation.DefaultMaxToolRounds, "max tool call rounds per turn")
		maxTokens     = flag.Int("max-tokens", 1024, "max tokens per completion")
		turnDelay     = flag.Duration("turn-delay", conversation.DefaultTurnDelay, "delay between turns")

		loadPath  = flag.String("load", "", "resume from a saved snapshot")
		savePath  = flag.String("save-on-exit", "", "save a snapshot to this path on exit")
		watchAddr = flag.String("watch", "", "serve the watch API on this address (e.g. :8080)")
		archiveDB = flag.String("archive-db", "", "archive messages to this SQLite database")
		verbose   = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(
		*providerName, *modelName, *apiKey,
		*agentAName, *agentAPrompt, *agentBName, *agentBPrompt,
		*workdir, *noTools, *dockerImage,
		*maxToolRounds, *maxTokens, *turnDelay,
		*loadPath, *savePath, *watchAddr, *archiveDB,
	); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func run(
	providerName, modelName, apiKey string,
	agentAName, agentAPrompt, agentBName, agentBPrompt string,
	workdir string, noTools bool, dockerImage string,
	maxToolRounds, maxTokens int, turnDelay time.Duration,
	loadPath, savePath, watchAddr, archiveDB string,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defaults, ok := providerDefaults[providerName]
	if !ok {
		return fmt.Errorf("unknown provider %q", providerName)
	}
	if apiKey == "" {
		apiKey = os.Getenv(defaults.envKey)
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: pass -api-key or set %s", defaults.envKey)
	}
	if modelName == "" {
		modelName = defaults.model
	}

	var provider model.Provider
	switch providerName {
	case "anthropic":
		provider = anthropic.New(apiKey)
	case "gemini":
		p, err := gemini.New(ctx, apiKey)
		if err != nil {
			return fmt.Errorf("initializing gemini: %w", err)
		}
		provider = p
	case "openai":
		provider = openai.New(apiKey)
	}

	agents := [2]domain.Agent{
		{ID: "agent-a", Name: agentAName, SystemPrompt: agentAPrompt, Model: modelName, ToolsEnabled: !noTools},
		{ID: "agent-b", Name: agentBName, SystemPrompt: agentBPrompt, Model: modelName, ToolsEnabled: !noTools},
	}

	tr := transcript.New()
	startAgent := ""
	if loadPath != "" {
		snap, err := persist.Load(loadPath)
		if err != nil {
			return fmt.Errorf("loading snapshot: %w", err)
		}
		if err := tr.Restore(snap.Messages); err != nil {
			return fmt.Errorf("restoring transcript: %w", err)
		}
		agents = snap.Agents
		for _, a := range agents {
			if a.Name == snap.State.ActiveAgent {
				startAgent = a.ID
			}
		}
		slog.Info("Resumed snapshot", "path", loadPath, "messages", len(snap.Messages), "nextTurn", snap.State.ActiveAgent)
	}

	var toolSrv *tools.Server
	if !noTools {
		var runner tools.CommandRunner = tools.HostRunner{}
		if dockerImage != "" {
			dr, err := dockerexec.New(dockerImage)
			if err != nil {
				return fmt.Errorf("initializing docker runner: %w", err)
			}
			defer dr.Close()
			runner = dr
		}
		srv, err := tools.NewServer(workdir, runner)
		if err != nil {
			return fmt.Errorf("initializing tool server: %w", err)
		}
		toolSrv = srv
	}

	manager := conversation.New(conversation.Config{
		Agents:        agents,
		Provider:      provider,
		Tools:         toolSrv,
		Transcript:    tr,
		StartAgent:    startAgent,
		MaxToolRounds: maxToolRounds,
		MaxTokens:     maxTokens,
		TurnDelay:     turnDelay,
	})

	// Print messages as they land.
	go printTranscript(ctx, tr, agents)

	var arch *archive.Store
	if archiveDB != "" {
		a, err := archive.New(archiveDB, uuid.New().String())
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		defer a.Close()
		arch = a
		go archiveTranscript(ctx, tr, arch)
	}

	if watchAddr != "" {
		watch := server.New(manager, tr)
		go func() {
			if err := watch.Start(watchAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Watch server stopped", "error", err)
			}
		}()
		defer watch.Shutdown(context.Background())
	}

	saveSnapshot := func(path string) error {
		return persist.Save(path, &persist.Snapshot{
			Agents:   manager.Agents(),
			State:    manager.Status(),
			Messages: tr.Snapshot(),
		})
	}

	cons := console.New(manager, os.Stdout)
	cons.Save = saveSnapshot
	cons.DefaultSavePath = defaultSavePath(savePath)
	if arch != nil {
		cons.Search = func(ctx context.Context, query string) (string, error) {
			results, err := arch.Search(ctx, query, 20)
			if err != nil {
				return "", err
			}
			return formatSearchResults(results), nil
		}
	}
	go func() {
		if err := cons.Run(ctx, os.Stdin); err != nil {
			slog.Error("Console stopped", "error", err)
		}
		manager.Stop()
	}()

	runErr := manager.Run(ctx)

	if arch != nil {
		// Re-archiving is idempotent, so flush everything rather than
		// race the trailer goroutine for the last few messages.
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := arch.ArchiveMessages(flushCtx, tr.Snapshot()); err != nil {
			slog.Error("Final archive flush failed", "error", err)
		}
		cancel()
	}

	if savePath != "" {
		if err := saveSnapshot(savePath); err != nil {
			slog.Error("Save on exit failed", "path", savePath, "error", err)
		} else {
			slog.Info("Saved snapshot", "path", savePath)
		}
	}
	return runErr
}

func defaultSavePath(saveOnExit string) string {
	if saveOnExit != "" {
		return saveOnExit
	}
	return fmt.Sprintf("conversation_%s.json", time.Now().Format("20060102_150405"))
}

func printTranscript(ctx context.Context, tr *transcript.Transcript, agents [2]domain.Agent) {
	sub := tr.Subscribe()
	var lastSeq int64
	for {
		for _, msg := range tr.Since(lastSeq) {
			fmt.Println(console.RenderMessage(agents, msg))
			lastSeq = msg.Seq
		}
		select {
		case <-ctx.Done():
			return
		case <-sub:
		}
	}
}

// archiveTranscript trails the transcript and flushes new messages to the
// archive. A final flush runs on shutdown so nothing is lost.
func archiveTranscript(ctx context.Context, tr *transcript.Transcript, arch *archive.Store) {
	sub := tr.Subscribe()
	var lastSeq int64
	flush := func(flushCtx context.Context) {
		msgs := tr.Since(lastSeq)
		if len(msgs) == 0 {
			return
		}
		if err := arch.ArchiveMessages(flushCtx, msgs); err != nil {
			slog.Error("Archiving failed", "error", err)
			return
		}
		lastSeq = msgs[len(msgs)-1].Seq
	}

	for {
		flush(ctx)
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(flushCtx)
			cancel()
			return
		case <-sub:
		}
	}
}

func formatSearchResults(results []archive.SearchResult) string {
	if len(results) == 0 {
		return "No matches."
	}
	var b strings.Builder
	for _, r := range results {
		who := r.AgentID
		if who == "" {
			who = string(r.Role)
		}
		fmt.Fprintf(&b, "[%s #%d] %s: %s\n",
			r.Timestamp.Format("2006-01-02 15:04"), r.Seq, who, firstLine(r.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	const max = 100
	if len(line) > max {
		return line[:max] + "..."
	}
	return line
}
