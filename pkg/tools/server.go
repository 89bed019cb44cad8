// Package tools implements the stateful tool server backing the five
// host-execution capabilities exposed to the agents. The server owns the
// single mutable current directory shared by both agents and serializes all
// calls: one tool call executes at a time, in submission order.
//
// Tool failures are data, not control flow. Every call returns a ToolResult;
// the loop never sees a Go error from a failed command or a missing path —
// the agent does, inside the result content, the way a human would see
// stderr.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nstogner/tandem/pkg/domain"
)

// DefaultCommandTimeout bounds execute_command when the caller does not
// pass an explicit timeout.
const DefaultCommandTimeout = 30 * time.Second

// Server executes tool calls against host state.
type Server struct {
	// mu serializes tool calls. It is held for the full duration of a
	// call, including command execution.
	mu     sync.Mutex
	runner CommandRunner

	// cwdMu guards only the current directory so status reads never
	// wait behind a running command.
	cwdMu sync.RWMutex
	cwd   string

	schemas map[string]*gojsonschema.Schema
}

// NewServer creates a tool server rooted at workdir. The runner decides
// where execute_command actually runs (host shell or a container).
func NewServer(workdir string, runner CommandRunner) (*Server, error) {
	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fmt.Errorf("resolving workdir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat workdir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workdir is not a directory: %s", abs)
	}

	schemas := make(map[string]*gojsonschema.Schema, 5)
	for _, def := range Definitions() {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compiling schema for %s: %w", def.Name, err)
		}
		schemas[def.Name] = schema
	}

	return &Server{cwd: abs, runner: runner, schemas: schemas}, nil
}

// CurrentDirectory returns the server's current working directory. It does
// not wait for an in-flight tool call.
func (s *Server) CurrentDirectory() string {
	s.cwdMu.RLock()
	defer s.cwdMu.RUnlock()
	return s.cwd
}

func (s *Server) setCurrentDirectory(dir string) {
	s.cwdMu.Lock()
	s.cwd = dir
	s.cwdMu.Unlock()
}

// Call executes one tool call and returns its result. Calls are serialized:
// the shared current directory is only ever read or mutated by one call at a
// time. Call never returns a Go error; every failure is encoded in the
// result.
func (s *Server) Call(ctx context.Context, tc domain.ToolCall) domain.ToolResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Debug("Tool call", "tool", tc.Name, "callID", tc.ID)

	schema, ok := s.schemas[tc.Name]
	if !ok {
		return errorResult(tc, domain.ErrKindUnknownTool, fmt.Sprintf("Unknown tool: %s", tc.Name))
	}

	input := tc.Input
	if input == nil {
		input = map[string]any{}
	}
	validation, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return errorResult(tc, domain.ErrKindBadArgs, fmt.Sprintf("Invalid arguments: %v", err))
	}
	if !validation.Valid() {
		var problems []string
		for _, e := range validation.Errors() {
			problems = append(problems, e.String())
		}
		return errorResult(tc, domain.ErrKindBadArgs, "Invalid arguments: "+strings.Join(problems, "; "))
	}

	switch tc.Name {
	case ToolNameExecuteCommand:
		return s.executeCommand(ctx, tc)
	case ToolNameChangeDirectory:
		return s.changeDirectory(tc)
	case ToolNameListDirectory:
		return s.listDirectory(tc)
	case ToolNameReadFile:
		return s.readFile(tc)
	case ToolNameWriteFile:
		return s.writeFile(tc)
	default:
		return errorResult(tc, domain.ErrKindUnknownTool, fmt.Sprintf("Unknown tool: %s", tc.Name))
	}
}

func (s *Server) executeCommand(ctx context.Context, tc domain.ToolCall) domain.ToolResult {
	command, _ := tc.Input["command"].(string)

	timeout := DefaultCommandTimeout
	if raw, ok := tc.Input["timeout"].(float64); ok && raw > 0 {
		timeout = time.Duration(raw) * time.Second
	}

	// Snapshot the directory before launching so nothing reads cwd while
	// the command runs.
	dir := s.CurrentDirectory()
	slog.Info("Executing command", "command", command, "dir", dir, "timeout", timeout)

	res, err := s.runner.Run(ctx, dir, command, timeout)
	if err != nil {
		return errorResult(tc, domain.ErrKindNone, fmt.Sprintf("Error executing command: %v", err))
	}
	if res.TimedOut {
		return errorResult(tc, domain.ErrKindTimeout,
			fmt.Sprintf("Command timed out after %d seconds", int(timeout.Seconds())))
	}

	// A non-zero exit code is a successful invocation: the command ran.
	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\n", command)
	fmt.Fprintf(&b, "Exit code: %d\n", res.ExitCode)
	if res.Stdout != "" {
		fmt.Fprintf(&b, "STDOUT:\n%s\n", res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintf(&b, "STDERR:\n%s\n", res.Stderr)
	}
	return domain.ToolResult{ToolCallID: tc.ID, ToolName: tc.Name, Content: b.String()}
}

func (s *Server) changeDirectory(tc domain.ToolCall) domain.ToolResult {
	path, _ := tc.Input["path"].(string)
	target := s.resolve(path)

	info, err := os.Stat(target)
	if err != nil {
		return errorResult(tc, domain.ErrKindPathNotFound, fmt.Sprintf("Directory does not exist: %s", path))
	}
	if !info.IsDir() {
		return errorResult(tc, domain.ErrKindPathNotFound, fmt.Sprintf("Path is not a directory: %s", path))
	}

	s.setCurrentDirectory(target)
	slog.Info("Changed directory", "dir", target)
	return domain.ToolResult{
		ToolCallID: tc.ID,
		ToolName:   tc.Name,
		Content:    fmt.Sprintf("Changed directory to: %s", target),
	}
}

func (s *Server) listDirectory(tc domain.ToolCall) domain.ToolResult {
	path, _ := tc.Input["path"].(string)
	target := s.CurrentDirectory()
	if path != "" {
		target = s.resolve(path)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return errorResult(tc, domain.ErrKindPathNotFound, fmt.Sprintf("Directory does not exist: %s", target))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, fmt.Sprintf("[DIR]  %s", e.Name()))
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		names = append(names, fmt.Sprintf("[FILE] %s (%d bytes)", e.Name(), size))
	}
	sort.Strings(names)

	return domain.ToolResult{
		ToolCallID: tc.ID,
		ToolName:   tc.Name,
		Content:    fmt.Sprintf("Contents of %s:\n%s", target, strings.Join(names, "\n")),
	}
}

func (s *Server) readFile(tc domain.ToolCall) domain.ToolResult {
	path, _ := tc.Input["path"].(string)
	target := s.resolve(path)

	info, err := os.Stat(target)
	if err != nil {
		return errorResult(tc, domain.ErrKindFileNotFound, fmt.Sprintf("File does not exist: %s", path))
	}
	if info.IsDir() {
		return errorResult(tc, domain.ErrKindNotReadable, fmt.Sprintf("Path is not a file: %s", path))
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return errorResult(tc, domain.ErrKindNotReadable, fmt.Sprintf("Error reading file: %v", err))
	}
	return domain.ToolResult{
		ToolCallID: tc.ID,
		ToolName:   tc.Name,
		Content:    fmt.Sprintf("Contents of %s:\n%s", path, string(data)),
	}
}

func (s *Server) writeFile(tc domain.ToolCall) domain.ToolResult {
	path, _ := tc.Input["path"].(string)
	content, _ := tc.Input["content"].(string)
	appendMode, _ := tc.Input["append"].(bool)

	target := s.resolve(path)

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errorResult(tc, domain.ErrKindWriteDenied, fmt.Sprintf("Error writing file: %v", err))
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(target, flags, 0644)
	if err != nil {
		return errorResult(tc, domain.ErrKindWriteDenied, fmt.Sprintf("Error writing file: %v", err))
	}
	n, err := f.WriteString(content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errorResult(tc, domain.ErrKindWriteDenied, fmt.Sprintf("Error writing file: %v", err))
	}

	action := "Wrote"
	if appendMode {
		action = "Appended"
	}
	return domain.ToolResult{
		ToolCallID: tc.ID,
		ToolName:   tc.Name,
		Content:    fmt.Sprintf("%s %d bytes to file: %s", action, n, path),
	}
}

// resolve expands ~ and makes path absolute relative to the current
// directory.
func (s *Server) resolve(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if u, err := user.Current(); err == nil {
			path = filepath.Join(u.HomeDir, strings.TrimPrefix(path[1:], "/"))
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.CurrentDirectory(), path)
	}
	return filepath.Clean(path)
}

func errorResult(tc domain.ToolCall, kind domain.ErrorKind, content string) domain.ToolResult {
	return domain.ToolResult{
		ToolCallID: tc.ID,
		ToolName:   tc.Name,
		Content:    content,
		IsError:    true,
		ErrorKind:  kind,
	}
}
