package formula

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/rational"
)

// Expression is a compiled formula. Sub-expressions of builtin calls and
// vector literals are compiled once, together with their parent.
type Expression struct {
	source string
	env    *Environment
	infix  []Token
}

// Compile tokenizes and normalizes text against the bindings of env. A nil
// env compiles against an empty environment.
func Compile(text string, env *Environment) (*Expression, error) {
	if env == nil {
		env = NewEnvironment()
	}
	text = foldWidth(text)

	raw, err := tokenize(text, env)
	if err != nil {
		return nil, err
	}
	infix, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	expr := &Expression{source: strings.TrimSpace(text), env: env, infix: infix}
	env.logger.Debug("compiled expression",
		slog.String("source", expr.source),
		slog.String("infix", joinTokens(infix)))
	return expr, nil
}

// fromTokens wraps an already normalized sequence.
func fromTokens(tokens []Token) *Expression {
	return &Expression{source: joinTokens(tokens), infix: tokens}
}

// Infix returns the normalized infix sequence.
func (e *Expression) Infix() []Token {
	return append([]Token(nil), e.infix...)
}

// Postfix converts the infix sequence with the shunting-yard algorithm.
func (e *Expression) Postfix() ([]Token, error) {
	return toPostfix(e.infix)
}

// String returns the source text.
func (e *Expression) String() string {
	return e.source
}

// Evaluate runs the expression against the environment it was compiled with.
// A final result is answered in the environment's decimal or exact format;
// otherwise in minimal exact form, as nested results are. The trace holds the
// work done so far even when an error is returned.
func (e *Expression) Evaluate(final bool) (Result, error) {
	env := e.env
	if env == nil {
		env = NewEnvironment()
	}
	val, trace, err := e.evaluate(env)
	if err != nil {
		return Result{Answer: err.Error(), Trace: trace}, err
	}
	if c, ok := val.(Constant); ok {
		val = Number{Value: c.Value}
	}

	answer := MinimalAnswer(val)
	if final {
		answer = FormatAnswer(val, env.digits, env.exact)
	}
	return Result{Answer: answer, Trace: trace, Value: val}, nil
}

// literal reports whether the expression is a single numeric literal.
func (e *Expression) literal() (rational.Rational, bool) {
	if len(e.infix) != 1 {
		return rational.Rational{}, false
	}
	n, ok := e.infix[0].(Number)
	return n.Value, ok
}
