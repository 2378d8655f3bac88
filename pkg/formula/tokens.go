package formula

import (
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/rational"
	"github.com/leapstack-labs/leapcalc/pkg/token"
	"github.com/leapstack-labs/leapcalc/pkg/vector"
)

// Token is one unit of a compiled expression. The set of implementations is
// closed; evaluation switches over the concrete types.
type Token interface {
	Kind() token.Kind
	// IsOperand reports whether the token is a value that can start or end an
	// arithmetic term.
	IsOperand() bool
	// Precedence is the binding precedence, token.PrecedenceNone for
	// non-operators.
	Precedence() int
	String() string

	tokenNode()
}

// Number is a scalar literal or result.
type Number struct {
	Value rational.Rational
}

// Vector is a vector literal or result.
type Vector struct {
	Value vector.Vector3
}

// UnparsedVector is a vector literal whose components are sub-expressions
// resolved at evaluation time.
type UnparsedVector struct {
	Components [3]*Expression
}

// Constant is a named mathematical constant.
type Constant struct {
	Name  string
	Value rational.Rational
}

// Operator is a binary operator.
type Operator struct {
	Symbol string
}

// Unary is a prefix operator: negation or a legacy shorthand such as sin.
type Unary struct {
	Symbol string
}

// OpenParen is "(".
type OpenParen struct{}

// CloseParen is ")".
type CloseParen struct{}

// Function is a parsed builtin call.
type Function struct {
	Call *FunctionCall
}

// Variable references a binding in the environment.
type Variable struct {
	Name string
}

// ErrorToken carries an error message as a value.
type ErrorToken struct {
	Text string
}

// FunctionCall is a builtin name with its compiled arguments. For sum and
// prod, Index names the iteration variable and Template holds the raw body,
// which is compiled once per iteration.
type FunctionCall struct {
	Name     string
	Args     []*Expression
	Index    string
	Template string
	Source   string

	accessor string // ".x" before the operand has been attached
}

func (Number) tokenNode()         {}
func (Vector) tokenNode()         {}
func (UnparsedVector) tokenNode() {}
func (Constant) tokenNode()       {}
func (Operator) tokenNode()       {}
func (Unary) tokenNode()          {}
func (OpenParen) tokenNode()      {}
func (CloseParen) tokenNode()     {}
func (Function) tokenNode()       {}
func (Variable) tokenNode()       {}
func (ErrorToken) tokenNode()     {}

func (Number) Kind() token.Kind         { return token.NUMBER }
func (Vector) Kind() token.Kind         { return token.VECTOR }
func (UnparsedVector) Kind() token.Kind { return token.UNPARSED_VECTOR }
func (Constant) Kind() token.Kind       { return token.CONSTANT }
func (Operator) Kind() token.Kind       { return token.OPERATOR }
func (Unary) Kind() token.Kind          { return token.UNARY }
func (OpenParen) Kind() token.Kind      { return token.LPAREN }
func (CloseParen) Kind() token.Kind     { return token.RPAREN }
func (Function) Kind() token.Kind       { return token.FUNCTION }
func (Variable) Kind() token.Kind       { return token.VARIABLE }
func (ErrorToken) Kind() token.Kind     { return token.ERROR }

func (Number) IsOperand() bool         { return true }
func (Vector) IsOperand() bool         { return true }
func (UnparsedVector) IsOperand() bool { return true }
func (Constant) IsOperand() bool       { return true }
func (Operator) IsOperand() bool       { return false }
func (Unary) IsOperand() bool          { return false }
func (OpenParen) IsOperand() bool      { return false }
func (CloseParen) IsOperand() bool     { return false }
func (Function) IsOperand() bool       { return true }
func (Variable) IsOperand() bool       { return true }
func (ErrorToken) IsOperand() bool     { return false }

func (Number) Precedence() int         { return token.PrecedenceNone }
func (Vector) Precedence() int         { return token.PrecedenceNone }
func (UnparsedVector) Precedence() int { return token.PrecedenceNone }
func (Constant) Precedence() int       { return token.PrecedenceNone }
func (Unary) Precedence() int          { return token.PrecedenceUnary }
func (OpenParen) Precedence() int      { return token.PrecedenceNone }
func (CloseParen) Precedence() int     { return token.PrecedenceNone }
func (Function) Precedence() int       { return token.PrecedenceNone }
func (Variable) Precedence() int       { return token.PrecedenceNone }
func (ErrorToken) Precedence() int     { return token.PrecedenceNone }

func (o Operator) Precedence() int {
	if p, ok := token.OperatorPrecedence(o.Symbol); ok {
		return p
	}
	return token.PrecedenceNone
}

// Fractions longer than traceFractionLen, such as constants and irrational
// roots, are shown in traces as decimals with traceDigits places.
const (
	traceFractionLen = 24
	traceDigits      = 10
)

// traceValue renders r in its minimal exact form unless that is an unwieldy
// fraction.
func traceValue(r rational.Rational) string {
	s := r.Minimal()
	if len(s) > traceFractionLen && strings.Contains(s, "/") {
		return r.Decimal(traceDigits)
	}
	return s
}

// String renders a number for traces. Fractions are parenthesized so they
// read as one term.
func (n Number) String() string {
	s := traceValue(n.Value)
	if strings.Contains(s, "/") {
		return "(" + s + ")"
	}
	return s
}

func (v Vector) String() string { return v.Value.Format(traceValue) }

func (u UnparsedVector) String() string {
	parts := make([]string, len(u.Components))
	for i, c := range u.Components {
		parts[i] = c.String()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func (c Constant) String() string   { return c.Name }
func (o Operator) String() string   { return o.Symbol }
func (u Unary) String() string      { return u.Symbol }
func (OpenParen) String() string    { return "(" }
func (CloseParen) String() string   { return ")" }
func (f Function) String() string   { return f.Call.String() }
func (v Variable) String() string   { return v.Name }
func (e ErrorToken) String() string { return e.Text }

func (c *FunctionCall) String() string {
	if c.accessor != "" && len(c.Args) == 0 {
		return c.accessor
	}
	if c.Source != "" {
		return c.Name + "(" + c.Source + ")"
	}
	parts := make([]string, 0, len(c.Args)+2)
	if c.Index != "" {
		parts = append(parts, c.Index)
	}
	for _, a := range c.Args {
		parts = append(parts, a.String())
	}
	if c.Template != "" {
		parts = append(parts, c.Template)
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}

// isNegation reports whether t is the unary minus.
func isNegation(t Token) bool {
	u, ok := t.(Unary)
	return ok && u.Symbol == token.Minus
}

// isOperator reports whether t is the binary operator symbol.
func isOperator(t Token, symbol string) bool {
	o, ok := t.(Operator)
	return ok && o.Symbol == symbol
}

// scalar extracts the numeric value of a number or constant token.
func scalar(t Token) (rational.Rational, bool) {
	switch v := t.(type) {
	case Number:
		return v.Value, true
	case Constant:
		return v.Value, true
	}
	return rational.Rational{}, false
}

// describe names the operand kind of t for error messages.
func describe(t Token) string {
	switch t.(type) {
	case Number, Constant:
		return "number"
	case Vector, UnparsedVector:
		return "vector"
	case Function:
		return "function"
	case Variable:
		return "variable"
	case ErrorToken:
		return "error"
	default:
		return t.String()
	}
}
