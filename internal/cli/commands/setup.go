package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapcalc/internal/cli/config"
	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/dag"
	"github.com/leapstack-labs/leapcalc/internal/state"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Store    state.Store    // nil when history is disabled
	Session  *state.Session // nil when history is disabled
}

// NewCommandContext creates a CommandContext with a renderer and, when history
// is enabled, an open history store with a session for source.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, source string) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	if !cmdCtx.Cfg.History {
		return cmdCtx, func() {}, nil
	}
	if err := cmdCtx.Cfg.ValidateHistory(); err != nil {
		return nil, nil, err
	}

	store, err := openStore(cmdCtx.Cfg.HistoryPath)
	if err != nil {
		return nil, nil, err
	}
	session, err := store.CreateSession(cmd.Context(), source)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to start history session: %w", err)
	}
	cmdCtx.Store = store
	cmdCtx.Session = session
	cmdCtx.Logger.Debug("history session started", slog.String("session", session.ID), slog.String("path", cmdCtx.Cfg.HistoryPath))

	cleanup := func() {
		_ = store.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a history store.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// Options returns the engine options derived from the configuration.
func (c *CommandContext) Options() []formula.Option {
	return []formula.Option{
		formula.WithLogger(c.Logger),
		formula.WithDigits(c.Cfg.Digits),
		formula.WithExact(c.Cfg.Exact),
	}
}

// Prelude seeds env with the configured variables.
func (c *CommandContext) Prelude(env *formula.Environment) error {
	return env.Preload(c.Cfg.Prelude())
}

// VariableGraph returns the dependency graph of the configured variables.
func (c *CommandContext) VariableGraph() *dag.Graph {
	g := dag.FromBindings(c.Cfg.Variables)
	c.Logger.Debug("variable graph",
		slog.Int("variables", g.NodeCount()),
		slog.Int("references", g.EdgeCount()))
	return g
}

// NewEnvironment returns an environment seeded with the configured variables.
func (c *CommandContext) NewEnvironment() (*formula.Environment, error) {
	env := formula.NewEnvironment(c.Options()...)
	if err := c.Prelude(env); err != nil {
		return nil, fmt.Errorf("invalid variables in config: %w", err)
	}
	return env, nil
}

// Record stores an evaluation in the history when it is enabled. Failures are
// logged and otherwise ignored.
func (c *CommandContext) Record(ctx context.Context, out output.EvalOutput) {
	if c.Store == nil || c.Session == nil {
		return
	}
	err := c.Store.RecordEvaluation(ctx, &state.Evaluation{
		SessionID: c.Session.ID,
		Input:     out.Input,
		Answer:    out.Answer,
		Trace:     out.Trace,
		Error:     out.Error,
	})
	if err != nil {
		c.Logger.Warn("failed to record history", slog.Any("error", err))
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration, or the defaults when no
// configuration was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func openStore(path string) (*state.SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	store := state.NewSQLiteStore()
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, nil
}
