// Package tui provides a live terminal calculator that re-evaluates the input
// on every edit.
package tui

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/leapstack-labs/leapcalc/internal/worker"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
)

// Config holds configuration for the live evaluator.
type Config struct {
	Options []formula.Option
	Prelude worker.Prelude
	Logger  *slog.Logger
	Trace   bool   // show traces initially
	Initial string // initial input
}

// Run starts the full-screen evaluator and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) error {
	eval := worker.New(worker.Config{
		Options: cfg.Options,
		Prelude: cfg.Prelude,
		Logger:  cfg.Logger,
	})
	defer eval.Close()

	m := New(eval, cfg)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
