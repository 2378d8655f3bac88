package formula

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/rational"
	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// unlimited marks an arity without upper bound.
const unlimited = -1

// maxShift bounds the bit count of bshift and bnot.
const maxShift = 1 << 20

// spliceMarker starts an index-dependent sub-template in a sum or prod body.
const spliceMarker = "$("

// arity is an argument count contract.
type arity struct {
	min, max int
}

func exactly(n int) arity { return arity{min: n, max: n} }

func (a arity) accepts(n int) bool {
	return n >= a.min && (a.max == unlimited || n <= a.max)
}

func (a arity) message(got int) string {
	var want string
	switch {
	case a.min == a.max:
		want = strconv.Itoa(a.min)
	case a.max == unlimited:
		want = fmt.Sprintf("at least %d", a.min)
	default:
		want = fmt.Sprintf("%d to %d", a.min, a.max)
	}
	return fmt.Sprintf(msgArgumentCount, want, got)
}

// builtin describes one function. iterates marks sum and prod, whose
// arguments are (index, lower, upper, body).
type builtin struct {
	arity    arity
	iterates bool
	apply    func(args []Token) (Token, error)
}

var builtins = map[string]builtin{
	token.FuncMin:    {arity: arity{1, unlimited}, apply: foldArgs(rational.Min)},
	token.FuncMax:    {arity: arity{1, unlimited}, apply: foldArgs(rational.Max)},
	token.FuncClamp:  {arity: exactly(3), apply: clamp},
	token.FuncLog:    {arity: arity{1, 2}, apply: logarithm},
	token.FuncLn:     {arity: exactly(1), apply: unaryFloat(token.FuncLn, math.Log)},
	token.FuncRound:  {arity: arity{1, 2}, apply: round},
	token.FuncGetX:   {arity: exactly(1), apply: component(0)},
	token.FuncGetY:   {arity: exactly(1), apply: component(1)},
	token.FuncGetZ:   {arity: exactly(1), apply: component(2)},
	token.FuncLength: {arity: exactly(1), apply: length},
	token.FuncNorm:   {arity: exactly(1), apply: norm},
	token.FuncAtan2:  {arity: exactly(2), apply: atan2},
	token.FuncBand:   {arity: arity{1, unlimited}, apply: bitwise((*big.Int).And)},
	token.FuncBor:    {arity: arity{1, unlimited}, apply: bitwise((*big.Int).Or)},
	token.FuncBxor:   {arity: arity{1, unlimited}, apply: bitwise((*big.Int).Xor)},
	token.FuncBshift: {arity: exactly(2), apply: bshift},
	token.FuncBnot:   {arity: arity{1, 2}, apply: bnot},
	token.FuncSum:    {arity: exactly(4), iterates: true},
	token.FuncProd:   {arity: exactly(4), iterates: true},
}

// callFunction evaluates the arguments of call and applies the builtin.
// Argument traces are returned as the nested trace.
func callFunction(call *FunctionCall, env *Environment) (Token, string, error) {
	fn, ok := builtins[call.Name]
	if !ok {
		return nil, "", &Error{Kind: KindLexical, Msg: msgUnexpectedTerm, Term: call.Name}
	}
	if fn.iterates {
		return iterate(call, env)
	}

	var tr trace
	args := make([]Token, len(call.Args))
	for i, arg := range call.Args {
		val, nested, err := arg.evaluate(env)
		if strings.Contains(nested, "\n") {
			tr.nest(nested)
		}
		if err != nil {
			return nil, tr.String(), inFunction(call.Name, err)
		}
		args[i] = val
	}

	val, err := fn.apply(args)
	if err != nil {
		return nil, tr.String(), inFunction(call.Name, err)
	}
	return val, tr.String(), nil
}

func foldArgs(f func(x, y rational.Rational) rational.Rational) func([]Token) (Token, error) {
	return func(args []Token) (Token, error) {
		acc := args[0]
		if _, err := elementwise1(acc, identity); err != nil {
			return nil, err
		}
		for _, arg := range args[1:] {
			next, err := elementwise2(acc, arg, exact(f))
			if err != nil {
				return nil, err
			}
			acc = next
		}
		return acc, nil
	}
}

func identity(x rational.Rational) (rational.Rational, error) { return x, nil }

// clamp folds max(max(num, min), max).
func clamp(args []Token) (Token, error) {
	inner, err := elementwise2(args[0], args[1], exact(rational.Max))
	if err != nil {
		return nil, err
	}
	return elementwise2(inner, args[2], exact(rational.Max))
}

// logarithm is log10(x) or log_base(x), computed in float64.
func logarithm(args []Token) (Token, error) {
	if len(args) == 1 {
		return unaryFloat(token.FuncLog, math.Log10)(args)
	}
	return elementwise2(args[0], args[1], func(base, x rational.Rational) (rational.Rational, error) {
		return fromFloat(token.FuncLog, math.Log(x.Float64())/math.Log(base.Float64()))
	})
}

func unaryFloat(name string, f func(float64) float64) func([]Token) (Token, error) {
	return func(args []Token) (Token, error) {
		return elementwise1(args[0], func(x rational.Rational) (rational.Rational, error) {
			return fromFloat(name, f(x.Float64()))
		})
	}
}

func fromFloat(name string, y float64) (rational.Rational, error) {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return rational.Rational{}, newError(KindArithmetic, "result of %s is undefined", name)
	}
	r, err := rational.FromFloat64(y)
	if err != nil {
		return rational.Rational{}, arithmeticError(err)
	}
	return r, nil
}

func atan2(args []Token) (Token, error) {
	return elementwise2(args[0], args[1], func(y, x rational.Rational) (rational.Rational, error) {
		return fromFloat(token.FuncAtan2, math.Atan2(y.Float64(), x.Float64()))
	})
}

func round(args []Token) (Token, error) {
	places := 0
	if len(args) == 2 {
		n, err := smallInt(args[1])
		if err != nil {
			return nil, err
		}
		places = n
	}
	return elementwise1(args[0], func(x rational.Rational) (rational.Rational, error) {
		return x.Round(places), nil
	})
}

func component(i int) func([]Token) (Token, error) {
	return func(args []Token) (Token, error) {
		v, ok := args[0].(Vector)
		if !ok {
			return nil, newError(KindType, msgNotVector, describe(args[0]))
		}
		return Number{Value: v.Value.Components()[i]}, nil
	}
}

func length(args []Token) (Token, error) {
	if s, ok := scalar(args[0]); ok {
		return Number{Value: s.Abs()}, nil
	}
	v, ok := args[0].(Vector)
	if !ok {
		return nil, newError(KindType, msgNotVector, describe(args[0]))
	}
	l, err := v.Value.Length()
	if err != nil {
		return nil, arithmeticError(err)
	}
	return Number{Value: l}, nil
}

func norm(args []Token) (Token, error) {
	v, ok := args[0].(Vector)
	if !ok {
		return nil, newError(KindType, msgNotVector, describe(args[0]))
	}
	n, err := v.Value.Norm()
	if err != nil {
		return nil, arithmeticError(err)
	}
	return Vector{Value: n}, nil
}

// integer truncates a scalar argument toward zero.
func integer(t Token) (*big.Int, error) {
	s, ok := scalar(t)
	if !ok {
		return nil, newError(KindType, msgNotNumber, describe(t))
	}
	return s.Trunc(), nil
}

// smallInt truncates a scalar argument that must fit a bit count.
func smallInt(t Token) (int, error) {
	n, err := integer(t)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Int64() > maxShift || n.Int64() < -maxShift {
		return 0, newError(KindMagnitude, "%s is out of range", n)
	}
	return int(n.Int64()), nil
}

func bitwise(op func(z, x, y *big.Int) *big.Int) func([]Token) (Token, error) {
	return func(args []Token) (Token, error) {
		acc, err := integer(args[0])
		if err != nil {
			return nil, err
		}
		for _, arg := range args[1:] {
			n, err := integer(arg)
			if err != nil {
				return nil, err
			}
			acc = op(new(big.Int), acc, n)
		}
		return Number{Value: rational.FromInt(acc)}, nil
	}
}

// bshift shifts left for positive bit counts and right for negative ones.
func bshift(args []Token) (Token, error) {
	n, err := integer(args[0])
	if err != nil {
		return nil, err
	}
	bits, err := smallInt(args[1])
	if err != nil {
		return nil, err
	}
	if bits >= 0 {
		return Number{Value: rational.FromInt(new(big.Int).Lsh(n, uint(bits)))}, nil
	}
	return Number{Value: rational.FromInt(new(big.Int).Rsh(n, uint(-bits)))}, nil
}

// bnot inverts the low bits of n. Without an explicit width the bit length of
// n is used.
func bnot(args []Token) (Token, error) {
	n, err := integer(args[0])
	if err != nil {
		return nil, err
	}
	width := max(n.BitLen(), 1)
	if len(args) == 2 {
		if width, err = smallInt(args[1]); err != nil {
			return nil, err
		}
		if width < 0 {
			return nil, newError(KindMagnitude, "%d is out of range", width)
		}
	}
	mask := new(big.Int).Lsh(big.NewInt(1), uint(width))
	mask.Sub(mask, big.NewInt(1))
	out := new(big.Int).Not(n)
	return Number{Value: rational.FromInt(out.And(out, mask))}, nil
}
