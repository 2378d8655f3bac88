package output

import (
	"time"

	"github.com/leapstack-labs/leapcalc/pkg/formula"
)

// LineOutput is one evaluated line of a group.
type LineOutput struct {
	Line   int    `json:"line" yaml:"line"`
	Text   string `json:"text" yaml:"text"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Answer string `json:"answer" yaml:"answer"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// EvalOutput is the rendered form of a group evaluation.
type EvalOutput struct {
	Input  string       `json:"input" yaml:"input"`
	Answer string       `json:"answer" yaml:"answer"`
	Trace  string       `json:"trace,omitempty" yaml:"trace,omitempty"`
	Error  string       `json:"error,omitempty" yaml:"error,omitempty"`
	Lines  []LineOutput `json:"lines,omitempty" yaml:"lines,omitempty"`
}

// NewEvalOutput converts a group result. err is the error returned alongside
// the group.
func NewEvalOutput(input string, group formula.GroupResult, err error) EvalOutput {
	out := EvalOutput{
		Input:  input,
		Answer: group.Answer,
		Trace:  group.Trace,
	}
	if err != nil {
		out.Error = err.Error()
	}
	for _, l := range group.Lines {
		lo := LineOutput{Line: l.Line, Text: l.Text, Name: l.Name, Answer: l.Answer}
		if l.Err != nil {
			lo.Error = l.Err.Error()
		}
		out.Lines = append(out.Lines, lo)
	}
	return out
}

// VariableInfo is one bound variable.
type VariableInfo struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
	Kind  string `json:"kind" yaml:"kind"`
	// Expr and DependsOn are set for variables from the configuration.
	Expr      string   `json:"expr,omitempty" yaml:"expr,omitempty"`
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// HistoryEntry is one recorded evaluation.
type HistoryEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Input     string    `json:"input" yaml:"input"`
	Answer    string    `json:"answer" yaml:"answer"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
