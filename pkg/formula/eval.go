package formula

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/rational"
	"github.com/leapstack-labs/leapcalc/pkg/token"
	"github.com/leapstack-labs/leapcalc/pkg/vector"
)

// traceIndent prefixes the lines of nested traces.
const traceIndent = "  "

var half = rational.MustParse("1/2")

// trace accumulates the work lines of one evaluation.
type trace struct {
	lines []string
}

func (t *trace) add(line string) {
	t.lines = append(t.lines, line)
}

// step appends a reduction snapshot unless it repeats the previous line.
func (t *trace) step(snapshot string) {
	line := "= " + snapshot
	if n := len(t.lines); n > 0 && (t.lines[n-1] == line || t.lines[n-1] == snapshot) {
		return
	}
	t.add(line)
}

// nest appends a nested trace, indented.
func (t *trace) nest(text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		t.add(traceIndent + line)
	}
}

func (t *trace) String() string {
	return strings.Join(t.lines, "\n")
}

// evaluate walks the postfix stream and returns the single remaining value.
func (e *Expression) evaluate(env *Environment) (Token, string, error) {
	postfix, err := e.Postfix()
	if err != nil {
		return nil, "", err
	}

	var (
		tr    trace
		stack []Token
	)
	tr.add(render(postfix))
	snapshot := func(i int) {
		rest := make([]Token, 0, len(stack)+len(postfix)-i-1)
		rest = append(rest, stack...)
		rest = append(rest, postfix[i+1:]...)
		tr.step(render(rest))
	}

	for i, t := range postfix {
		switch v := t.(type) {
		case Number, Vector, Constant:
			stack = append(stack, t)

		case Variable:
			val, ok := env.Variable(v.Name)
			if !ok {
				return nil, tr.String(), newError(KindLexical, msgUnknownVariable, v.Name)
			}
			stack = append(stack, val)

		case UnparsedVector:
			val, nested, err := resolveVector(v, env)
			tr.nest(nested)
			if err != nil {
				return nil, tr.String(), err
			}
			stack = append(stack, val)
			snapshot(i)

		case Function:
			val, nested, err := callFunction(v.Call, env)
			tr.nest(nested)
			if err != nil {
				return nil, tr.String(), err
			}
			stack = append(stack, val)
			snapshot(i)

		case Operator:
			if len(stack) < 2 {
				return nil, tr.String(), newError(KindStructural, "missing operand for %s", v.Symbol)
			}
			a, b := stack[len(stack)-2], stack[len(stack)-1]
			stack = stack[:len(stack)-2]
			val, err := applyBinary(v.Symbol, a, b)
			if err != nil {
				return nil, tr.String(), err
			}
			stack = append(stack, val)
			snapshot(i)

		case Unary:
			if len(stack) < 1 {
				return nil, tr.String(), newError(KindStructural, "missing operand for %s", v.Symbol)
			}
			val, err := applyUnary(v.Symbol, stack[len(stack)-1])
			if err != nil {
				return nil, tr.String(), err
			}
			stack[len(stack)-1] = val
			snapshot(i)

		default:
			return nil, tr.String(), &Error{Kind: KindLexical, Msg: msgUnexpectedTerm, Term: t.String()}
		}
	}

	switch len(stack) {
	case 0:
		return nil, tr.String(), newError(KindStructural, msgNoResults)
	case 1:
	default:
		return nil, tr.String(), newError(KindStructural, msgTooManyResults)
	}

	result := stack[0]
	env.logger.Debug("evaluated expression",
		slog.String("source", e.source),
		slog.String("result", result.String()))
	return result, tr.String(), nil
}

// resolveVector evaluates the components of a vector literal.
func resolveVector(v UnparsedVector, env *Environment) (Token, string, error) {
	var (
		tr    trace
		comps [3]rational.Rational
	)
	for i, c := range v.Components {
		val, nested, err := c.evaluate(env)
		if strings.Contains(nested, "\n") {
			tr.nest(nested)
		}
		if err != nil {
			return nil, tr.String(), err
		}
		n, ok := scalar(val)
		if !ok {
			return nil, tr.String(), newError(KindType, "vector component: "+msgNotNumber, describe(val))
		}
		comps[i] = n
	}
	return Vector{Value: vector.New(comps[0], comps[1], comps[2])}, tr.String(), nil
}

// applyBinary dispatches a binary operator over the scalar/vector matrix.
func applyBinary(op string, a, b Token) (Token, error) {
	if c, ok := a.(Constant); ok {
		a = Number{Value: c.Value}
	}
	if c, ok := b.(Constant); ok {
		b = Number{Value: c.Value}
	}

	switch op {
	case token.Dot, token.Cross:
		va, okA := a.(Vector)
		vb, okB := b.(Vector)
		if !okA || !okB {
			return nil, newError(KindType, msgVectorOnly, opName(op))
		}
		if op == token.Dot {
			return Number{Value: va.Value.Dot(vb.Value)}, nil
		}
		return Vector{Value: va.Value.Cross(vb.Value)}, nil

	case token.Slash, token.Mod:
		if isZeroDivisor(b) {
			return nil, &Error{Kind: KindArithmetic, Msg: msgDivisionByZero, Err: rational.ErrDivisionByZero}
		}
	}

	var f func(x, y rational.Rational) (rational.Rational, error)
	switch op {
	case token.Plus:
		f = exact(rational.Rational.Add)
	case token.Minus:
		f = exact(rational.Rational.Sub)
	case token.Star:
		f = exact(rational.Rational.Mul)
	case token.Slash:
		f = exact(rational.Rational.Quo)
	case token.Mod:
		f = exact(rational.Rational.Mod)
	case token.Caret:
		f = func(x, y rational.Rational) (rational.Rational, error) {
			r, err := x.Pow(y)
			if err != nil {
				fe := arithmeticError(err)
				fe.Msg = fmt.Sprintf(msgPowerFailed, x.Minimal(), y.Minimal(), err)
				return rational.Rational{}, fe
			}
			return r, nil
		}
	default:
		return nil, &Error{Kind: KindLexical, Msg: msgUnexpectedTerm, Term: op}
	}

	val, err := elementwise2(a, b, f)
	if err != nil {
		if op == token.Caret && IsKind(err, KindType) {
			return nil, newError(KindType, msgPowerFailed, describe(a), describe(b), "unsupported operands")
		}
		if IsKind(err, KindType) {
			return nil, newError(KindType, msgInvalidOperands, op, describe(a), describe(b))
		}
		return nil, err
	}
	return val, nil
}

func opName(op string) string {
	switch op {
	case token.Dot:
		return "dot product"
	case token.Cross:
		return "cross product"
	}
	return op
}

func isZeroDivisor(t Token) bool {
	switch v := t.(type) {
	case Number:
		return v.Value.IsZero()
	case Vector:
		return v.Value.HasZero()
	}
	return false
}

// exact lifts an infallible rational operation.
func exact(f func(x, y rational.Rational) rational.Rational) func(x, y rational.Rational) (rational.Rational, error) {
	return func(x, y rational.Rational) (rational.Rational, error) {
		return f(x, y), nil
	}
}

// elementwise2 applies f over the scalar/vector matrix, broadcasting scalars.
func elementwise2(a, b Token, f func(x, y rational.Rational) (rational.Rational, error)) (Token, error) {
	if x, ok := scalar(a); ok {
		if y, ok := scalar(b); ok {
			r, err := f(x, y)
			if err != nil {
				return nil, err
			}
			return Number{Value: r}, nil
		}
	}

	va, okA := asVector(a)
	vb, okB := asVector(b)
	if !okA || !okB {
		return nil, newError(KindType, msgInvalidOperands, "operation", describe(a), describe(b))
	}
	var comps [3]rational.Rational
	xs, ys := va.Components(), vb.Components()
	for i := range comps {
		r, err := f(xs[i], ys[i])
		if err != nil {
			return nil, err
		}
		comps[i] = r
	}
	return Vector{Value: vector.New(comps[0], comps[1], comps[2])}, nil
}

// elementwise1 applies f to a scalar or to every vector component.
func elementwise1(a Token, f func(x rational.Rational) (rational.Rational, error)) (Token, error) {
	if x, ok := scalar(a); ok {
		r, err := f(x)
		if err != nil {
			return nil, err
		}
		return Number{Value: r}, nil
	}
	v, ok := a.(Vector)
	if !ok {
		return nil, newError(KindType, msgNotNumber, describe(a))
	}
	var comps [3]rational.Rational
	for i, c := range v.Value.Components() {
		r, err := f(c)
		if err != nil {
			return nil, err
		}
		comps[i] = r
	}
	return Vector{Value: vector.New(comps[0], comps[1], comps[2])}, nil
}

// asVector returns vectors as is and splats scalars.
func asVector(t Token) (vector.Vector3, bool) {
	if v, ok := t.(Vector); ok {
		return v.Value, true
	}
	if s, ok := scalar(t); ok {
		return vector.Splat(s), true
	}
	return vector.Vector3{}, false
}

// applyUnary applies negation or a prefix shorthand.
func applyUnary(symbol string, a Token) (Token, error) {
	var f func(x rational.Rational) (rational.Rational, error)
	switch symbol {
	case token.Minus:
		f = func(x rational.Rational) (rational.Rational, error) { return x.Neg(), nil }
	case "abs":
		f = func(x rational.Rational) (rational.Rational, error) { return x.Abs(), nil }
	case "floor":
		f = func(x rational.Rational) (rational.Rational, error) { return x.Floor(), nil }
	case "ceil":
		f = func(x rational.Rational) (rational.Rational, error) { return x.Ceil(), nil }
	case "sqrt":
		f = func(x rational.Rational) (rational.Rational, error) { return x.Pow(half) }
	case "sin":
		f = viaFloat(symbol, math.Sin)
	case "cos":
		f = viaFloat(symbol, math.Cos)
	case "tan":
		f = viaFloat(symbol, math.Tan)
	case "asin":
		f = viaFloat(symbol, math.Asin)
	case "acos":
		f = viaFloat(symbol, math.Acos)
	case "atan":
		f = viaFloat(symbol, math.Atan)
	default:
		return nil, &Error{Kind: KindLexical, Msg: msgUnexpectedTerm, Term: symbol}
	}

	val, err := elementwise1(a, f)
	if err != nil {
		if IsKind(err, KindType) {
			return nil, newError(KindType, "cannot apply %s to %s", symbol, describe(a))
		}
		return nil, arithmeticError(err)
	}
	return val, nil
}

// viaFloat computes f in float64. Results are approximate.
func viaFloat(name string, f func(float64) float64) func(x rational.Rational) (rational.Rational, error) {
	return func(x rational.Rational) (rational.Rational, error) {
		y := f(x.Float64())
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return rational.Rational{}, newError(KindArithmetic, "%s(%s) is undefined", name, x.Minimal())
		}
		return rational.FromFloat64(y)
	}
}
