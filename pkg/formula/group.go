package formula

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
)

var bindingPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=(.+)$`)

// LineResult is the outcome of one non-blank line of a group.
type LineResult struct {
	Line   int    // 1-based line number
	Text   string // line as written
	Name   string // bound name, empty for plain expressions
	Answer string
	Trace  string
	Err    error
}

// GroupResult is the outcome of a multi-line evaluation.
type GroupResult struct {
	Answer string
	Trace  string
	Lines  []LineResult
}

// EvaluateGroup evaluates multi-line text in a fresh environment.
func EvaluateGroup(text string, opts ...Option) (GroupResult, error) {
	return NewEnvironment(opts...).EvaluateGroup(text)
}

// EvaluateGroup evaluates text line by line. A line of the form name=expr
// binds the value of expr for the following lines; blank lines are skipped.
// The answer is that of the last plain expression, or of the last binding if
// there is none. Every line is evaluated even after a failure; the returned
// error is the one of the answering line.
func (env *Environment) EvaluateGroup(text string) (GroupResult, error) {
	var (
		group  GroupResult
		traces []string
		answer = -1
		hasExp bool
	)

	for i, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lr := LineResult{Line: i + 1, Text: line}

		var (
			res Result
			err error
		)
		if name, expr, ok := splitBinding(line); ok {
			lr.Name = name
			res, err = env.Bind(name, expr)
		} else {
			res, err = EvaluateLine(line, env)
		}
		lr.Answer, lr.Trace, lr.Err = res.Answer, res.Trace, err

		traces = append(traces, lineTrace(lr))
		group.Lines = append(group.Lines, lr)
		if lr.Name == "" || !hasExp {
			answer = len(group.Lines) - 1
			hasExp = hasExp || lr.Name == ""
		}
		if err != nil {
			env.logger.Debug("line failed", slog.Int("line", lr.Line), slog.Any("error", err))
		}
	}

	group.Trace = strings.Join(traces, "\n\n")
	if answer < 0 {
		return group, nil
	}
	last := group.Lines[answer]
	group.Answer = last.Answer
	return group, last.Err
}

// Preload evaluates text as a group of bindings and reports the first line
// that failed. Lines after a failure are still evaluated.
func (env *Environment) Preload(text string) error {
	group, _ := env.EvaluateGroup(text)
	for _, l := range group.Lines {
		if l.Err == nil {
			continue
		}
		if l.Name != "" {
			return fmt.Errorf("preload %s: %w", l.Name, l.Err)
		}
		return fmt.Errorf("preload line %d: %w", l.Line, l.Err)
	}
	return nil
}

// splitBinding matches name=expr after dropping all whitespace. The
// expression keeps its original spacing.
func splitBinding(line string) (string, string, bool) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line)
	m := bindingPattern.FindStringSubmatch(compact)
	if m == nil {
		return "", "", false
	}
	_, expr, _ := strings.Cut(line, "=")
	return m[1], expr, true
}

func lineTrace(lr LineResult) string {
	var b strings.Builder
	if lr.Name != "" {
		b.WriteString(lr.Name)
		b.WriteString(" = ")
	}
	if lr.Trace != "" {
		b.WriteString(lr.Trace)
	} else {
		b.WriteString(strings.TrimSpace(lr.Text))
	}
	if lr.Err != nil {
		b.WriteString("\nerror: ")
		b.WriteString(lr.Err.Error())
	}
	return b.String()
}
