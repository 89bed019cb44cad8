// Package console implements the interactive command line that controls a
// live run. It reads line commands from an input stream (normally stdin)
// concurrently with the conversation loop; every command is safe to issue
// at any time.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nstogner/tandem/pkg/domain"
)

// Controller is the control surface the console drives. The conversation
// manager satisfies it.
type Controller interface {
	Pause()
	Resume()
	Stop()
	Inject(text string)
	Status() domain.StateSnapshot
}

// Console parses and dispatches operator commands.
type Console struct {
	ctrl Controller
	out  io.Writer

	// Save persists the run; nil disables the save command.
	Save func(path string) error

	// Search queries the archive; nil disables the search command.
	Search func(ctx context.Context, query string) (string, error)

	// DefaultSavePath is used by a bare save command.
	DefaultSavePath string
}

// New creates a console bound to a controller, writing responses to out.
func New(ctrl Controller, out io.Writer) *Console {
	return &Console{ctrl: ctrl, out: out}
}

const usage = `Commands:
  pause            pause the conversation at the next turn boundary
  resume           resume a paused conversation
  message <text>   inject an operator message before the next turn
  save [path]      save the conversation to a JSON snapshot
  search <query>   search archived messages
  status           show run status
  help             show this help
  quit             stop the conversation and exit`

// Run reads commands until EOF, quit, or context cancellation.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if quit := c.Execute(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// Execute runs one command line and reports whether the console should
// exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	cmd, arg := parseCommand(line)

	switch cmd {
	case "":
		return false

	case "pause":
		c.ctrl.Pause()
		fmt.Fprintln(c.out, "Pausing at next turn boundary.")

	case "resume":
		c.ctrl.Resume()
		fmt.Fprintln(c.out, "Resumed.")

	case "message":
		if arg == "" {
			fmt.Fprintln(c.out, "Usage: message <text>")
			return false
		}
		c.ctrl.Inject(arg)
		fmt.Fprintln(c.out, "Message queued for next turn.")

	case "save":
		if c.Save == nil {
			fmt.Fprintln(c.out, "Saving is not configured.")
			return false
		}
		path := arg
		if path == "" {
			path = c.DefaultSavePath
		}
		if err := c.Save(path); err != nil {
			fmt.Fprintf(c.out, "Save failed: %v\n", err)
			return false
		}
		fmt.Fprintf(c.out, "Saved to %s\n", path)

	case "search":
		if c.Search == nil {
			fmt.Fprintln(c.out, "Archive search is not configured.")
			return false
		}
		if arg == "" {
			fmt.Fprintln(c.out, "Usage: search <query>")
			return false
		}
		result, err := c.Search(ctx, arg)
		if err != nil {
			fmt.Fprintf(c.out, "Search failed: %v\n", err)
			return false
		}
		fmt.Fprintln(c.out, result)

	case "status":
		snap := c.ctrl.Status()
		fmt.Fprint(c.out, renderStatus(snap))

	case "help":
		fmt.Fprintln(c.out, usage)

	case "quit":
		c.ctrl.Stop()
		fmt.Fprintln(c.out, "Stopping.")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command %q.\n%s\n", cmd, usage)
	}
	return false
}

// parseCommand splits a line into the command word and its argument. The
// argument keeps internal whitespace intact.
func parseCommand(line string) (cmd, arg string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	cmd, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
