package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/spf13/cobra"
)

// EvalOptions holds options for the eval command.
type EvalOptions struct {
	File  string
	Trace bool
}

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	opts := &EvalOptions{}

	cmd := &cobra.Command{
		Use:   "eval [expression...]",
		Short: "Evaluate an expression or a group of lines",
		Long: `Evaluate an expression, or a group of lines where name = expr binds a
variable for the lines that follow.

The input is taken from the arguments, from --file, or from stdin when no
arguments are given or the only argument is "-".`,
		Example: `  # Exact arithmetic
  leapcalc eval "1/3 + 1/6" --exact

  # Vectors and functions
  leapcalc eval "length(<2, 3, 6>)"

  # Show the evaluation steps
  leapcalc eval --trace "sum(i, 1, 4, i^2)"

  # A group from a file
  leapcalc eval -f physics.calc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the input from a file")
	cmd.Flags().BoolVarP(&opts.Trace, "trace", "t", false, "Show the step-by-step trace")

	return cmd
}

func runEval(cmd *cobra.Command, args []string, opts *EvalOptions) error {
	input, err := readInput(cmd.InOrStdin(), args, opts.File)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd, "eval")
	if err != nil {
		return err
	}
	defer cleanup()

	env, err := cmdCtx.NewEnvironment()
	if err != nil {
		return err
	}

	group, evalErr := env.EvaluateGroup(input)
	out := output.NewEvalOutput(input, group, evalErr)
	cmdCtx.Record(cmd.Context(), out)

	if err := cmdCtx.Renderer.Evaluation(out, opts.Trace); err != nil {
		return err
	}
	if evalErr != nil {
		return fmt.Errorf("evaluation failed: %w", evalErr)
	}
	return nil
}

// readInput returns the text to evaluate from args, a file or in.
func readInput(in io.Reader, args []string, file string) (string, error) {
	if file != "" {
		if len(args) > 0 {
			return "", fmt.Errorf("cannot combine --file with expression arguments")
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	}

	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", fmt.Errorf("no input to evaluate")
		}
		return string(data), nil
	}

	return strings.Join(args, " "), nil
}
