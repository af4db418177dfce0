package repl

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/manash/visionary/internal/image"
	"github.com/manash/visionary/pkg/models"
)

// RemovedMessage acknowledges a deletion; it is what the notification timer
// shows until it expires.
const RemovedMessage = "Vision removed successfully"

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func (r *REPL) registerCommands() {
	commands := []Command{
		&GenerateCommand{},
		&HistoryCommand{},
		&ShowCommand{},
		&DeleteCommand{},
		&DownloadCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}

	for _, cmd := range commands {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// GenerateCommand submits a prompt to the generation session.
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate a new image from a prompt" }
func (c *GenerateCommand) Usage() string       { return "generate <prompt>" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	fmt.Fprintln(r.out, "Generating...")

	state, err := r.session.Submit(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if state.SaveWarning != "" {
		fmt.Fprintf(r.err, "Warning: %s\n", state.SaveWarning)
	}

	r.renderer.Image(state.Image)
	return nil
}

// HistoryCommand lists past generations, newest first.
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h", "hist"} }
func (c *HistoryCommand) Description() string { return "Show past generations" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.renderer.History(r.session.History().List())
	return nil
}

// ShowCommand prints the full record for one history entry.
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"view"} }
func (c *ShowCommand) Description() string { return "Show one history entry in full" }
func (c *ShowCommand) Usage() string       { return "show <id>" }

func (c *ShowCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	img, err := r.resolveEntry(args[0])
	if err != nil {
		return err
	}

	r.renderer.Image(&img)
	return nil
}

// DeleteCommand removes one history entry and fires the removal
// notification.
type DeleteCommand struct{}

func (c *DeleteCommand) Name() string        { return "delete" }
func (c *DeleteCommand) Aliases() []string   { return []string{"del", "rm"} }
func (c *DeleteCommand) Description() string { return "Delete a history entry" }
func (c *DeleteCommand) Usage() string       { return "delete <id>" }

func (c *DeleteCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	img, err := r.resolveEntry(args[0])
	if err != nil {
		return err
	}

	if _, err := r.session.History().Remove(ctx, img.ID); err != nil {
		fmt.Fprintf(r.err, "Warning: %v\n", err)
	}

	note := r.notifier.Fire(RemovedMessage)
	fmt.Fprintln(r.out, note.Message)
	return nil
}

// DownloadCommand saves one history entry's image to a local file.
type DownloadCommand struct{}

func (c *DownloadCommand) Name() string        { return "download" }
func (c *DownloadCommand) Aliases() []string   { return []string{"dl", "save"} }
func (c *DownloadCommand) Description() string { return "Download an image to a file" }
func (c *DownloadCommand) Usage() string       { return "download <id> [filename]" }

func (c *DownloadCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	img, err := r.resolveEntry(args[0])
	if err != nil {
		return err
	}

	path := ""
	if len(args) == 2 {
		path = args[1]
	}

	if err := r.fetcher.Download(ctx, img.URL, path); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if path == "" {
		path = image.DefaultFilename
	}
	fmt.Fprintf(r.out, "Saved: %s\n", path)
	return nil
}

// HelpCommand lists available commands.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	names := make([]string, 0, len(r.commands))
	seen := make(map[string]bool)
	for _, cmd := range r.commands {
		if !seen[cmd.Name()] {
			seen[cmd.Name()] = true
			names = append(names, cmd.Name())
		}
	}
	sort.Strings(names)

	fmt.Fprintln(r.out, "Commands:")
	for _, name := range names {
		cmd := r.commands[name]
		fmt.Fprintf(r.out, "  %-28s %s\n", cmd.Usage(), cmd.Description())
	}
	return nil
}

// QuitCommand stops the loop.
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"q", "exit"} }
func (c *QuitCommand) Description() string { return "Exit visionary" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.Stop()
	fmt.Fprintln(r.out, "Goodbye!")
	return nil
}

// resolveEntry finds a history entry by full id or unique prefix.
func (r *REPL) resolveEntry(arg string) (models.GeneratedImage, error) {
	if img, ok := r.session.History().Find(arg); ok {
		return img, nil
	}

	var matches []models.GeneratedImage
	for _, img := range r.session.History().List() {
		if strings.HasPrefix(img.ID, arg) {
			matches = append(matches, img)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return models.GeneratedImage{}, fmt.Errorf("no history entry matches %q", arg)
	default:
		return models.GeneratedImage{}, fmt.Errorf("id %q is ambiguous (%d matches); use more of the id", arg, len(matches))
	}
}
