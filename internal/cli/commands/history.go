package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/state"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
	Clear bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear recorded evaluations",
		Long: `Show the most recent evaluations recorded by eval, repl and serve, newest
first. Use --clear to delete the whole history.`,
		Example: `  leapcalc history --limit 10
  leapcalc history --clear`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", state.DefaultListLimit, "Maximum number of entries to show")
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "Delete all recorded evaluations")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)
	if err := cmdCtx.Cfg.ValidateHistory(); err != nil {
		return err
	}
	if !cmdCtx.Cfg.History {
		cmdCtx.Renderer.Warning("history recording is disabled")
	}

	store, err := openStore(cmdCtx.Cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if opts.Clear {
		n, err := store.ClearHistory(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		cmdCtx.Renderer.Success(fmt.Sprintf("Deleted %d evaluations", n))
		return nil
	}

	evals, err := store.ListEvaluations(ctx, opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]output.HistoryEntry, len(evals))
	for i, e := range evals {
		entries[i] = output.HistoryEntry{
			ID:        e.ID,
			Input:     e.Input,
			Answer:    e.Answer,
			Error:     e.Error,
			CreatedAt: e.CreatedAt,
		}
	}
	return cmdCtx.Renderer.History(entries)
}
