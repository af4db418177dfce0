// Package repl is the interactive render surface: it reads user intents,
// forwards them to the generation session and history store, and shows the
// resulting state. It owns no data of its own.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manash/visionary/internal/display"
	"github.com/manash/visionary/internal/generation"
	"github.com/manash/visionary/internal/image"
	"github.com/manash/visionary/internal/notify"
)

type REPL struct {
	in       io.Reader
	out      io.Writer
	err      io.Writer
	session  *generation.Session
	renderer *display.Renderer
	fetcher  *image.Fetcher
	notifier *notify.Notifier
	commands map[string]Command
	running  bool
}

type Config struct {
	In       io.Reader
	Out      io.Writer
	Err      io.Writer
	Session  *generation.Session
	Renderer *display.Renderer
	Fetcher  *image.Fetcher
	Notifier *notify.Notifier
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:       cfg.In,
		out:      cfg.Out,
		err:      cfg.Err,
		session:  cfg.Session,
		renderer: cfg.Renderer,
		fetcher:  cfg.Fetcher,
		notifier: cfg.Notifier,
		commands: make(map[string]Command),
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "visionary interactive mode")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	if note, ok := r.notifier.Current(); ok {
		fmt.Fprintf(r.out, "* %s\n", note.Message)
	}
	fmt.Fprintf(r.out, "visionary [%d]> ", r.session.History().Len())
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
