// Package token defines the token kinds, operator precedences and builtin
// keywords of the formula language.
//
// The keyword Table merges the builtin keywords with the names of bound
// variables and compiles them, longest first, into a single scanning pattern.
package token

import "fmt"

// Kind identifies the variant of a formula token.
type Kind int32

//nolint:revive // ALL_CAPS names mirror the lexical categories
const (
	ILLEGAL Kind = iota
	NUMBER
	VECTOR
	UNPARSED_VECTOR
	CONSTANT
	OPERATOR
	UNARY
	LPAREN
	RPAREN
	FUNCTION
	VARIABLE
	ERROR
)

var kindNames = map[Kind]string{
	ILLEGAL:         "ILLEGAL",
	NUMBER:          "NUMBER",
	VECTOR:          "VECTOR",
	UNPARSED_VECTOR: "UNPARSED_VECTOR",
	CONSTANT:        "CONSTANT",
	OPERATOR:        "OPERATOR",
	UNARY:           "UNARY",
	LPAREN:          "LPAREN",
	RPAREN:          "RPAREN",
	FUNCTION:        "FUNCTION",
	VARIABLE:        "VARIABLE",
	ERROR:           "ERROR",
}

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", k)
}

// Binding precedences. Higher binds tighter.
const (
	PrecedenceNone     = -1
	PrecedenceAddition = 1 // + -
	PrecedenceMultiply = 2 // * / % x .
	PrecedencePower    = 3 // ^
	PrecedenceUnary    = 4 // - sin cos ...
)

// Binary operator symbols.
const (
	Plus  = "+"
	Minus = "-"
	Star  = "*"
	Slash = "/"
	Mod   = "%"
	Cross = "x"
	Dot   = "."
	Caret = "^"
)

var operators = map[string]int{
	Plus:  PrecedenceAddition,
	Minus: PrecedenceAddition,
	Star:  PrecedenceMultiply,
	Slash: PrecedenceMultiply,
	Mod:   PrecedenceMultiply,
	Cross: PrecedenceMultiply,
	Dot:   PrecedenceMultiply,
	Caret: PrecedencePower,
}

// OperatorPrecedence returns the precedence of a binary operator symbol.
func OperatorPrecedence(symbol string) (int, bool) {
	p, ok := operators[symbol]
	return p, ok
}

// IsCommutative reports whether a binary operator is commutative.
func IsCommutative(symbol string) bool {
	return symbol == Plus || symbol == Star
}
