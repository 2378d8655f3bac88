package formula

import (
	"log/slog"

	"github.com/leapstack-labs/leapcalc/pkg/rational"
)

// Result is the outcome of evaluating one line.
type Result struct {
	Answer string
	Trace  string
	Value  Token
}

// EvaluateLine compiles and evaluates text against env. The returned trace
// holds the partial work when an error is returned. A nil env evaluates
// against an empty environment.
func EvaluateLine(text string, env *Environment) (Result, error) {
	if env == nil {
		env = NewEnvironment()
	}
	expr, err := Compile(text, env)
	if err != nil {
		env.logger.Debug("compile failed", slog.String("source", text), slog.Any("error", err))
		return Result{Answer: err.Error()}, err
	}
	res, err := expr.Evaluate(true)
	if err != nil {
		env.logger.Debug("evaluation failed", slog.String("source", text), slog.Any("error", err))
	}
	return res, err
}

// MinimalAnswer renders a result value in its shortest exact form.
func MinimalAnswer(val Token) string {
	switch v := val.(type) {
	case Number:
		return v.Value.Minimal()
	case Constant:
		return v.Value.Minimal()
	case Vector:
		return v.Value.String()
	case nil:
		return ""
	default:
		return v.String()
	}
}

// FormatAnswer renders a result value: exact fractions when exact is set,
// otherwise decimals with the given number of places.
func FormatAnswer(val Token, digits int, exact bool) string {
	format := func(r rational.Rational) string { return r.Format(digits, exact) }
	switch v := val.(type) {
	case Number:
		return format(v.Value)
	case Constant:
		return format(v.Value)
	case Vector:
		return v.Value.Format(format)
	case nil:
		return ""
	default:
		return v.String()
	}
}
