package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/manash/visionary/internal/config"
	"github.com/manash/visionary/internal/display"
	"github.com/manash/visionary/internal/generation"
	"github.com/manash/visionary/internal/history"
	"github.com/manash/visionary/internal/image"
	"github.com/manash/visionary/internal/notify"
	"github.com/manash/visionary/internal/provider"
	"github.com/manash/visionary/internal/provider/fal"
	"github.com/manash/visionary/internal/repl"
	"github.com/manash/visionary/internal/storage"
	"github.com/manash/visionary/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagAPIKey  string
	flagVerbose bool
	flagOutput  string
)

type App struct {
	Out         io.Writer
	Err         io.Writer
	LoadConfig  func() (*config.Config, error)
	NewProvider func(cfg *provider.Config) (provider.Provider, error)
	NewFetcher  func() *image.Fetcher
}

func DefaultApp() *App {
	return &App{
		Out:        os.Stdout,
		Err:        os.Stderr,
		LoadConfig: config.Load,
		NewProvider: func(cfg *provider.Config) (provider.Provider, error) {
			return fal.New(cfg)
		},
		NewFetcher: image.NewFetcher,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visionary [prompt]",
		Short: "Generate images from text prompts and keep a local history",
		Long: `visionary turns text prompts into images through the fal.ai Flux model
and keeps a browsable history of everything it generated for you.

Examples:
  visionary "a red fox in the snow"
  visionary history
  visionary delete 4f3a2b1c
  visionary download 4f3a2b1c -o fox.png
  visionary repl`,
		Args:    cobra.ExactArgs(1),
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, app)
		},
	}

	cmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "API key (defaults to FAL_KEY)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log backend requests and responses")

	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newDownloadCmd(app))
	cmd.AddCommand(newReplCmd(app))

	return cmd
}

func runGenerate(_ *cobra.Command, args []string, app *App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prompt := strings.TrimSpace(args[0])
	if err := models.NewRequest(prompt).Validate(); err != nil {
		return err
	}

	p, store, closeStore, err := app.setup(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	session := generation.NewSession(p, store)

	fmt.Fprintln(app.Out, "Generating...")
	state, err := session.Submit(ctx, prompt)
	if err != nil {
		return err
	}
	if state.SaveWarning != "" {
		fmt.Fprintf(app.Err, "Warning: %s\n", state.SaveWarning)
	}

	display.New(app.Out).Image(state.Image)
	return nil
}

func newHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past generations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			display.New(app.Out).History(store.List())
			return nil
		},
	}
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			img, err := findEntry(store, args[0])
			if err != nil {
				return err
			}

			if _, err := store.Remove(ctx, img.ID); err != nil {
				fmt.Fprintf(app.Err, "Warning: %v\n", err)
			}

			note := notify.New(notify.DefaultTTL).Fire(repl.RemovedMessage)
			fmt.Fprintln(app.Out, note.Message)
			return nil
		},
	}
}

func newDownloadCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download a generated image to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := app.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			img, err := findEntry(store, args[0])
			if err != nil {
				return err
			}

			if err := app.NewFetcher().Download(ctx, img.URL, flagOutput); err != nil {
				return err
			}

			path := flagOutput
			if path == "" {
				path = image.DefaultFilename
			}
			fmt.Fprintf(app.Out, "Saved: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output filename")
	return cmd
}

func newReplCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start interactive mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			p, store, closeStore, err := app.setup(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			r := repl.New(&repl.Config{
				In:       os.Stdin,
				Out:      app.Out,
				Err:      app.Err,
				Session:  generation.NewSession(p, store),
				Renderer: display.New(app.Out),
				Fetcher:  app.NewFetcher(),
				Notifier: notify.New(notify.DefaultTTL),
			})
			return r.Run(ctx)
		},
	}
}

// setup builds the provider and history store a generating command needs.
func (app *App) setup(ctx context.Context) (provider.Provider, *history.Store, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	apiKey := flagAPIKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return nil, nil, nil, fmt.Errorf("API key required: set %s or use --api-key", config.EnvAPIKey)
	}

	p, err := app.NewProvider(&provider.Config{
		APIKey:     apiKey,
		BaseURL:    cfg.BaseURL,
		TimeoutSec: cfg.TimeoutSec,
		Verbose:    flagVerbose,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	store, closeStore, err := openStoreWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, store, closeStore, nil
}

// openStore opens the history store alone, for commands that never reach
// the backend.
func (app *App) openStore(ctx context.Context) (*history.Store, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return openStoreWithConfig(ctx, cfg)
}

func openStoreWithConfig(ctx context.Context, cfg *config.Config) (*history.Store, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.History.Backend {
	case config.BackendSQLite:
		backend, err := storage.NewSQLite(cfg.History.Path, storage.HistoryKey)
		if err != nil {
			return nil, nil, err
		}
		return history.Open(ctx, backend), func() { backend.Close() }, nil
	case config.BackendMemory:
		return history.Open(ctx, storage.NewMemory()), func() {}, nil
	default:
		return history.Open(ctx, storage.NewFile(cfg.History.Path)), func() {}, nil
	}
}

// findEntry matches a history entry by full id or unique prefix.
func findEntry(store *history.Store, arg string) (models.GeneratedImage, error) {
	if img, ok := store.Find(arg); ok {
		return img, nil
	}

	var matches []models.GeneratedImage
	for _, img := range store.List() {
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
