package commands

import (
	"sort"

	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/dag"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/spf13/cobra"
)

// NewVarsCommand creates the vars command.
func NewVarsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vars",
		Short: "List the variables preloaded from the configuration",
		Long: `Evaluate the variables section of the configuration and list the
resulting bindings with their expressions and the variables they reference.
These bindings are available to every eval, repl, watch, live and serve
session.`,
		Example: `  # leapcalc.yaml
  # variables:
  #   g: "9.81"
  #   up: "<0, 0, 1>"
  leapcalc vars -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutStore(cmd)
			env, err := cmdCtx.NewEnvironment()
			if err != nil {
				return err
			}
			return cmdCtx.Renderer.Variables(variableInfos(env, cmdCtx.VariableGraph()))
		},
	}
}

// variableInfos lists the bindings of env in name order. Bindings that come
// from the configuration carry their expression and references.
func variableInfos(env *formula.Environment, graph *dag.Graph) []output.VariableInfo {
	names := env.Names()
	infos := make([]output.VariableInfo, 0, len(names))
	for _, name := range names {
		tok, _ := env.Variable(name)
		info := output.VariableInfo{
			Name:  name,
			Value: formula.FormatAnswer(tok, env.Digits(), env.Exact()),
			Kind:  variableKind(tok),
		}
		if node, ok := graph.GetNode(name); ok {
			info.Expr = node.Expr
			info.DependsOn = graph.Dependencies(name)
		}
		infos = append(infos, info)
	}
	return infos
}

// unsetVariables removes names from env along with the configured variables
// derived from them, and returns the names that were bound.
func unsetVariables(env *formula.Environment, graph *dag.Graph, names []string) []string {
	var removed []string
	for _, name := range graph.Cascade(names) {
		if _, ok := env.Variable(name); ok {
			env.Unset(name)
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	return removed
}

func variableKind(tok formula.Token) string {
	switch tok.(type) {
	case formula.Vector:
		return "vector"
	case formula.Constant:
		return "constant"
	default:
		return "number"
	}
}
