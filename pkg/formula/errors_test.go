package formula_test

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/leapstack-labs/leapcalc/pkg/rational"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		input    string
		kind     formula.ErrorKind
		contains string
		function string
	}{
		{"1 + $", formula.KindLexical, `unmatched term "$" at position 4`, ""},
		{"1 + foo + 2", formula.KindLexical, `"foo"`, ""},
		{"max(1, 2", formula.KindLexical, "unmatched term", ""},
		{"(1+2", formula.KindStructural, "unclosed open parenthesis", ""},
		{"1+2)", formula.KindStructural, "unopened closing parenthesis", ""},
		{"()", formula.KindStructural, "no results", ""},
		{"2+", formula.KindStructural, "missing operand", ""},
		{"max()", formula.KindArity, "expected at least 1, got 0", "max"},
		{"clamp(1, 2)", formula.KindArity, "expected 3, got 2", "clamp"},
		{"log(1, 2, 3)", formula.KindArity, "expected 1 to 2, got 3", "log"},
		{"2 . 3", formula.KindType, "dot product requires two vectors", ""},
		{"<1,2,3> x 2", formula.KindType, "cross product requires two vectors", ""},
		{"getx(5)", formula.KindType, "expected a vector", "getx"},
		{"band(<1,2,3>)", formula.KindType, "expected a number", "band"},
		{"sum(i, <1,2,3>, 3, i)", formula.KindType, "bounds must be numbers", "sum"},
		{"5/0", formula.KindArithmetic, "division by zero", ""},
		{"5 % 0", formula.KindArithmetic, "division by zero", ""},
		{"<1,2,3> / <1,0,1>", formula.KindArithmetic, "division by zero", ""},
		{"(-8)^(1/2)", formula.KindArithmetic, "cannot raise -8 to 0.5", ""},
		{"0^-1", formula.KindArithmetic, "division by zero", ""},
		{"max(1, 1/0)", formula.KindArithmetic, "division by zero", "max"},
		{"asin 2", formula.KindArithmetic, "undefined", ""},
		{"<1,2>", formula.KindLexical, "vector literal needs 3 components", ""},
		{"sum(2, 1, 3, i)", formula.KindLexical, "invalid variable name", "sum"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := formula.EvaluateLine(tt.input, newEnv(t))
			require.Error(t, err)

			var fe *formula.Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.kind, fe.Kind, "kind of %v", err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, tt.function, fe.Function)
		})
	}
}

func TestErrorKeepsTrace(t *testing.T) {
	res, err := formula.EvaluateLine("5/0", newEnv(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, rational.ErrDivisionByZero))
	assert.Equal(t, "5 / 0", res.Trace)
	assert.Equal(t, "division by zero", res.Answer)

	res, err = formula.EvaluateLine("1 + 2 + 3/0", newEnv(t))
	require.Error(t, err)
	assert.Equal(t, "1 + 2 + 3 / 0\n= 3 + 3 / 0", res.Trace)
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "arithmetic", formula.KindArithmetic.String())
	assert.Equal(t, "ErrorKind(42)", formula.ErrorKind(42).String())
}
