package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/dag"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/leapstack-labs/leapcalc/pkg/token"
	"github.com/spf13/cobra"
)

const replPrompt = "calc> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive calculator session",
		Long: `Start an interactive session. Variables bound with name = expr stay
available until the session ends. Type .help for commands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, trace)
		},
	}

	cmd.Flags().BoolVarP(&trace, "trace", "t", false, "Show the step-by-step trace of every answer")

	return cmd
}

// replSession is the state of one interactive session.
type replSession struct {
	cmdCtx *CommandContext
	env    *formula.Environment
	graph  *dag.Graph
	trace  bool
	out    io.Writer
	errOut io.Writer
}

func runREPL(cmd *cobra.Command, trace bool) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, "repl")
	if err != nil {
		return err
	}
	defer cleanup()

	env, err := cmdCtx.NewEnvironment()
	if err != nil {
		return err
	}

	s := &replSession{
		cmdCtx: cmdCtx,
		env:    env,
		graph:  cmdCtx.VariableGraph(),
		trace:  trace,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(filepath.Dir(cmdCtx.Cfg.HistoryPath), "repl_history"),
		AutoComplete:    newCompleter(env),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(s.out, "leapcalc REPL")
	_, _ = fmt.Fprintln(s.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(s.out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ".") {
			if quit := s.handleDotCommand(line); quit {
				break
			}
			continue
		}
		s.evaluate(cmd, line)
	}

	return nil
}

// evaluate runs one line against the session environment.
func (s *replSession) evaluate(cmd *cobra.Command, line string) {
	group, err := s.env.EvaluateGroup(line)
	out := output.NewEvalOutput(line, group, err)
	s.cmdCtx.Record(cmd.Context(), out)
	if rerr := s.cmdCtx.Renderer.Evaluation(out, s.trace); rerr != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", rerr)
	}
}

// handleDotCommand runs a session command and reports whether the session
// should end.
func (s *replSession) handleDotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(s.out)

	case ".vars":
		if err := s.cmdCtx.Renderer.Variables(variableInfos(s.env, s.graph)); err != nil {
			_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
		}

	case ".unset":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .unset <name>")
			return false
		}
		if removed := unsetVariables(s.env, s.graph, parts[1:]); len(removed) > 0 {
			_, _ = fmt.Fprintf(s.out, "unset %s\n", strings.Join(removed, ", "))
		}

	case ".trace":
		s.trace = !s.trace
		state := "off"
		if s.trace {
			state = "on"
		}
		_, _ = fmt.Fprintf(s.out, "trace %s\n", state)

	case ".clear":
		_, _ = fmt.Fprint(s.out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .vars           List bound variables
  .unset <name>   Remove a variable binding
  .trace          Toggle step-by-step traces
  .clear          Clear the screen
  .quit / .exit   Exit the REPL

Tips:
  - Bind a variable with name = expression
  - Vectors are written <x, y, z>
  - Tab completion works for functions and variables
`
	_, _ = fmt.Fprintln(w, help)
}

// newCompleter creates a readline completer for builtins, dot-commands and
// the variables bound in env.
func newCompleter(env *formula.Environment) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, kw := range token.Builtins() {
		if kw.Class == token.ClassAccessor {
			continue
		}
		items = append(items, readline.PcItem(kw.Text))
	}

	items = append(items,
		readline.PcItemDynamic(func(string) []string { return env.Names() }),
		readline.PcItem(".help"),
		readline.PcItem(".vars"),
		readline.PcItem(".unset", readline.PcItemDynamic(func(string) []string { return env.Names() })),
		readline.PcItem(".trace"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
