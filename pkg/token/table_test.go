package token_test

import (
	"testing"

	"github.com/leapstack-labs/leapcalc/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "NUMBER", token.NUMBER.String())
	assert.Equal(t, "UNPARSED_VECTOR", token.UNPARSED_VECTOR.String())
	assert.Equal(t, "KIND(99)", token.Kind(99).String())
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		symbol string
		want   int
		ok     bool
	}{
		{"+", token.PrecedenceAddition, true},
		{"-", token.PrecedenceAddition, true},
		{"*", token.PrecedenceMultiply, true},
		{"x", token.PrecedenceMultiply, true},
		{".", token.PrecedenceMultiply, true},
		{"^", token.PrecedencePower, true},
		{"?", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, ok := token.OperatorPrecedence(tt.symbol)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.True(t, token.IsCommutative("+"))
	assert.False(t, token.IsCommutative("-"))
}

func TestTableLongestFirst(t *testing.T) {
	tbl := token.NewTable("b", "energy")
	kws := tbl.Keywords()
	for i := 1; i < len(kws); i++ {
		assert.GreaterOrEqual(t, len([]rune(kws[i-1].Text)), len([]rune(kws[i].Text)),
			"%q sorted before %q", kws[i-1].Text, kws[i].Text)
	}

	lex, err := tbl.Next("band(1,2)", 0)
	require.NoError(t, err)
	assert.Equal(t, token.LexKeyword, lex.Class)
	assert.Equal(t, "band(", lex.Text)
	assert.Equal(t, token.ClassFunction, lex.Keyword.Class)

	lex, err = tbl.Next("energy*2", 0)
	require.NoError(t, err)
	assert.Equal(t, "energy", lex.Text)
	assert.Equal(t, token.ClassVariable, lex.Keyword.Class)

	lex, err = tbl.Next("b+1", 0)
	require.NoError(t, err)
	assert.Equal(t, "b", lex.Text)
}

func TestTableNext(t *testing.T) {
	tbl := token.NewTable()
	tests := []struct {
		input string
		class token.LexClass
		text  string
	}{
		{"0x1F+1", token.LexNumber, "0x1F"},
		{"0b101", token.LexNumber, "0b101"},
		{"1.5e3", token.LexNumber, "1.5e3"},
		{"2E-7*2", token.LexNumber, "2E-7"},
		{".5", token.LexNumber, ".5"},
		{"12.25)", token.LexNumber, "12.25"},
		{"<1,2,3>", token.LexVectorOpen, "<"},
		{".x", token.LexKeyword, ".x"},
		{"pi", token.LexKeyword, "pi"},
		{"π", token.LexKeyword, "π"},
		{"asin 1", token.LexKeyword, "asin"},
		{"atan2(1,1)", token.LexKeyword, "atan2("},
		{"^2", token.LexOperator, "^"},
		{"x", token.LexOperator, "x"},
		{"(", token.LexLParen, "("},
		{")", token.LexRParen, ")"},
		{"   1", token.LexSpace, "   "},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lex, err := tbl.Next(tt.input, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.class, lex.Class)
			assert.Equal(t, tt.text, lex.Text)
			assert.Equal(t, 0, lex.Pos)
			assert.Equal(t, len(tt.text), lex.End())
		})
	}
}

func TestTableVariableShadowsCross(t *testing.T) {
	lex, err := token.NewTable("x").Next("x", 0)
	require.NoError(t, err)
	assert.Equal(t, token.LexKeyword, lex.Class)
	assert.Equal(t, token.ClassVariable, lex.Keyword.Class)
}

func TestTableScanErrors(t *testing.T) {
	tbl := token.NewTable()

	_, err := tbl.Next("1+foo+2", 2)
	var scanErr *token.ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, "foo", scanErr.Term)
	assert.Equal(t, 2, scanErr.Pos)
	assert.False(t, scanErr.Trailing)

	_, err = tbl.Next("1+qq", 2)
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, "qq", scanErr.Term)
	assert.True(t, scanErr.Trailing)
	assert.Contains(t, err.Error(), "unexpected term")
}

func TestNames(t *testing.T) {
	assert.True(t, token.IsReserved("max"))
	assert.True(t, token.IsReserved("pi"))
	assert.True(t, token.IsReserved("sin"))
	assert.False(t, token.IsReserved("foo"))

	assert.True(t, token.IsValidName("foo_1"))
	assert.True(t, token.IsValidName("x"))
	assert.False(t, token.IsValidName("1foo"))
	assert.False(t, token.IsValidName("sqrt"))
	assert.False(t, token.IsValidName(""))

	assert.True(t, token.IsFunction("bnot"))
	assert.False(t, token.IsFunction("sin"))
}
