package formula

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapcalc/pkg/rational"
)

// ErrorKind classifies evaluation failures.
type ErrorKind int

// Error kinds.
const (
	KindLexical    ErrorKind = iota // unexpected or unmatched term
	KindStructural                  // parenthesis mismatch, wrong number of results
	KindArity                       // function argument count
	KindType                        // operand kind not accepted
	KindArithmetic                  // division by zero, invalid power
	KindMagnitude                   // value too small or large
)

var errorKindNames = map[ErrorKind]string{
	KindLexical:    "lexical",
	KindStructural: "structural",
	KindArity:      "arity",
	KindType:       "type",
	KindArithmetic: "arithmetic",
	KindMagnitude:  "magnitude",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is returned for every failed compilation or evaluation.
type Error struct {
	Kind     ErrorKind
	Msg      string
	Function string // innermost builtin the failure happened in, if any
	Term     string // offending input for lexical errors
	Pos      int
	Err      error // underlying cause, e.g. rational.ErrDivisionByZero
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Kind == KindLexical && e.Term != "" {
		msg = fmt.Sprintf("%s %q at position %d", e.Msg, e.Term, e.Pos)
	}
	if e.Function != "" {
		return fmt.Sprintf("%s: %s", e.Function, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Common error messages
const (
	msgUnexpectedTerm  = "unexpected term"
	msgUnmatchedTerm   = "unmatched term"
	msgUnopenedParen   = "unopened closing parenthesis"
	msgUnclosedParen   = "unclosed open parenthesis"
	msgTooManyResults  = "too many results"
	msgNoResults       = "no results"
	msgDivisionByZero  = "division by zero"
	msgArgumentCount   = "argument count: expected %s, got %d"
	msgVectorOnly      = "%s requires two vectors"
	msgInvalidOperands = "cannot apply %s to %s and %s"
	msgNotNumber       = "expected a number, got %s"
	msgNotVector       = "expected a vector, got %s"
	msgUnknownVariable = "unknown variable %q"
	msgInvalidName     = "invalid variable name %q"
	msgPowerFailed     = "cannot raise %s to %s: %v"
	msgEmptyArgument   = "empty argument"
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// arithmeticError maps rational sentinel errors onto the taxonomy.
func arithmeticError(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	switch {
	case errors.Is(err, rational.ErrDivisionByZero):
		return &Error{Kind: KindArithmetic, Msg: msgDivisionByZero, Err: err}
	case errors.Is(err, rational.ErrMagnitude):
		return &Error{Kind: KindMagnitude, Msg: err.Error(), Err: err}
	default:
		return &Error{Kind: KindArithmetic, Msg: err.Error(), Err: err}
	}
}

// inFunction tags err with the builtin it surfaced from, keeping the innermost
// name when already tagged.
func inFunction(name string, err error) error {
	var fe *Error
	if !errors.As(err, &fe) {
		fe = arithmeticError(err)
	}
	if fe.Function == "" {
		fe.Function = name
	}
	return fe
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
