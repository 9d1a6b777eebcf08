package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"parsons-cli/internal/config"
	"parsons-cli/internal/exercise"
	"parsons-cli/internal/format"
	"parsons-cli/internal/logging"
	"parsons-cli/internal/session"
	"parsons-cli/internal/store"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	Dir        string
	Backend    string
	PrettyJSON bool
	Format     string
	NoColor    bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "parsons",
		Short:        "Parsons problems in the terminal (reorder, indent and fill in code lines)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Work on an exercise interactively
  parsons open exercises/loops.yaml

  # Shortcut for: parsons open <exercise>
  parsons exercises/loops.yaml

  # Replay keys without a terminal and print the result
  parsons keys exercises/loops.yaml tab tab alt+up

  # Inspect stored work
  parsons render exercises/loops.yaml
  parsons log exercises/loops.yaml --pretty
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("PARSONS_CONFIG", ""), "Path to config.yaml (default: ~/.parsons/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("PARSONS_DIR", ""), "Progress store dir (overrides storage.dir)")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", envOr("PARSONS_BACKEND", ""), "Progress store backend (sqlite|file|memory; overrides storage.backend)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("PARSONS_FORMAT", "json"), "Output format (json|edn|text)")
	cmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", os.Getenv("NO_COLOR") != "", "Disable colors in the TUI")

	cmd.AddCommand(newOpenCmd(app))
	cmd.AddCommand(newKeysCmd(app))
	cmd.AddCommand(newRenderCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newProgressCmd(app))
	cmd.AddCommand(newLogCmd(app))
	cmd.AddCommand(newCheckCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func loadConfig(app *App) (config.Config, error) {
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if b := strings.TrimSpace(app.Backend); b != "" {
		cfg.Storage.Backend = b
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	if d := strings.TrimSpace(app.Dir); d != "" {
		cfg.Storage.Dir = d
	}
	return cfg, nil
}

func loadExercise(cfg config.Config, path string) (*exercise.Exercise, error) {
	ex, err := exercise.Load(path, cfg.Widget)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errNotFound("exercise", path)
		}
		return nil, err
	}
	return ex, nil
}

// workspace is one exercise opened over its progress store.
type workspace struct {
	cfg    config.Config
	ex     *exercise.Exercise
	st     store.Opened
	logger *logging.Logger
}

// openWorkspace loads config and exercise and opens the exercise's progress store
// (<storage dir>/<exercise id>). quiet keeps the logger off the terminal.
func openWorkspace(ctx context.Context, app *App, path string, quiet bool) (*workspace, error) {
	cfg, err := loadConfig(app)
	if err != nil {
		return nil, err
	}
	ex, err := loadExercise(cfg, path)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging, quiet)
	if err != nil {
		return nil, err
	}
	root, err := cfg.StorageDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, ex.ID)
	st, err := store.Open(ctx, cfg.Storage, dir)
	if err != nil {
		return nil, err
	}
	logger.Debug("workspace opened", "exercise", ex.ID, "backend", cfg.Storage.Backend, "dir", dir)
	return &workspace{cfg: cfg, ex: ex, st: st, logger: logger}, nil
}

func (w *workspace) sinks() store.Sinks {
	return store.NewSinks(w.st.Backend, w.ex.Widget.AnswersName)
}

func (w *workspace) session(ctx context.Context, opts ...session.Option) (*session.Session, error) {
	opts = append([]session.Option{session.WithLogger(w.logger), session.WithMirror(w.st.Mirror)}, opts...)
	return session.New(ctx, w.ex, w.sinks(), opts...)
}

func (w *workspace) Close() error {
	w.logger.Sync()
	return w.st.Close()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// envelope is the JSON shape every command prints. With --format text the data's own
// rendering is printed instead.
type envelope struct {
	Data  any      `json:"data"`
	Hints []string `json:"_hints,omitempty"`
}

func (e envelope) Text() string {
	switch d := e.Data.(type) {
	case format.Texter:
		return d.Text()
	case string:
		return d
	}
	b, err := json.MarshalIndent(e.Data, "", "  ")
	if err != nil {
		return fmt.Sprint(e.Data)
	}
	return string(b)
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
