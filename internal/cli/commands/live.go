package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/leapcalc/internal/tui"
	"github.com/spf13/cobra"
)

// NewLiveCommand creates the live command.
func NewLiveCommand() *cobra.Command {
	var (
		trace bool
		file  string
	)

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Open a full-screen calculator that evaluates as you type",
		Long: `Open a full-screen editor whose contents are evaluated as a group after
every keystroke. Results of superseded edits are discarded.

Keys: ctrl+t toggles the trace, ctrl+l clears the input, esc quits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmdCtx := NewCommandContextWithoutStore(cmd)
			if _, err := cmdCtx.NewEnvironment(); err != nil {
				return err
			}

			var initial string
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				initial = string(data)
			}

			return tui.Run(ctx, tui.Config{
				Options: cmdCtx.Options(),
				Prelude: cmdCtx.Prelude,
				Logger:  cmdCtx.Logger,
				Trace:   trace,
				Initial: initial,
			})
		},
	}

	cmd.Flags().BoolVarP(&trace, "trace", "t", false, "Show the step-by-step trace")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Start with the contents of a file")

	return cmd
}
