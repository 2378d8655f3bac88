// Package rational provides an exact rational number backed by arbitrary-precision
// integers.
//
// A Rational is an immutable value: every operation allocates a new result and
// the value is always kept in lowest terms with a positive denominator.
// Comparisons use cross-multiplication and never round through float64.
package rational

import (
	"errors"
	"math"
	"math/big"
	"strconv"
)

// Errors returned by constructors and exact operations.
var (
	ErrMagnitude      = errors.New("value too small or large")
	ErrDivisionByZero = errors.New("division by zero")
	ErrInvalidPower   = errors.New("invalid power")
	ErrSyntax         = errors.New("invalid number literal")
)

var (
	bigZero = big.NewInt(0)
	bigOne  = big.NewInt(1)
	bigTen  = big.NewInt(10)
)

// Zero and One are shared read-only values.
var (
	Zero = FromInt64(0)
	One  = FromInt64(1)
)

// Staging limits for float64 conversion. Values outside this window cannot be
// carried losslessly through the 28-digit decimal staging step.
const (
	stagingMax    = 7.9228162514264337593543950335e28
	stagingMin    = 1e-28
	stagingDigits = 15
)

// Rational is an exact fraction num/den with den > 0 and gcd(|num|, den) == 1.
// The zero value is 0.
type Rational struct {
	num *big.Int
	den *big.Int
}

// FromInt64 returns n/1.
func FromInt64(n int64) Rational {
	return Rational{num: big.NewInt(n), den: big.NewInt(1)}
}

// FromInt returns n/1. The argument is copied.
func FromInt(n *big.Int) Rational {
	return Rational{num: new(big.Int).Set(n), den: big.NewInt(1)}
}

// FromFrac returns p/q in lowest terms.
func FromFrac(p, q int64) (Rational, error) {
	return New(big.NewInt(p), big.NewInt(q))
}

// New returns num/den in lowest terms. The arguments are copied.
func New(num, den *big.Int) (Rational, error) {
	if den.Sign() == 0 {
		return Rational{}, ErrDivisionByZero
	}
	return reduce(new(big.Int).Set(num), new(big.Int).Set(den)), nil
}

// FromRat converts a math/big rational.
func FromRat(r *big.Rat) Rational {
	return reduce(new(big.Int).Set(r.Num()), new(big.Int).Set(r.Denom()))
}

// FromFloat64 converts f by staging it through a fixed 15 significant digit decimal.
// It fails with ErrMagnitude when f is not finite or falls outside the staging window.
func FromFloat64(f float64) (Rational, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Rational{}, ErrMagnitude
	}
	a := math.Abs(f)
	if a >= stagingMax || (a != 0 && a < stagingMin) {
		return Rational{}, ErrMagnitude
	}
	return Parse(strconv.FormatFloat(f, 'e', stagingDigits-1, 64))
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Rational {
	r, err := Parse(s)
	if err != nil {
		panic("rational: " + err.Error() + ": " + s)
	}
	return r
}

// reduce takes ownership of num and den.
func reduce(num, den *big.Int) Rational {
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}
	if num.Sign() == 0 {
		return Rational{num: num, den: den.SetInt64(1)}
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(num), den)
	if g.Cmp(bigOne) != 0 {
		num.Quo(num, g)
		den.Quo(den, g)
	}
	return Rational{num: num, den: den}
}

func (x Rational) n() *big.Int {
	if x.num == nil {
		return bigZero
	}
	return x.num
}

func (x Rational) d() *big.Int {
	if x.den == nil {
		return bigOne
	}
	return x.den
}

// Num returns a copy of the numerator.
func (x Rational) Num() *big.Int { return new(big.Int).Set(x.n()) }

// Denom returns a copy of the (positive) denominator.
func (x Rational) Denom() *big.Int { return new(big.Int).Set(x.d()) }

// Rat returns the value as a math/big rational.
func (x Rational) Rat() *big.Rat { return new(big.Rat).SetFrac(x.n(), x.d()) }

// Sign returns -1, 0 or 1.
func (x Rational) Sign() int { return x.n().Sign() }

// IsZero reports whether x == 0.
func (x Rational) IsZero() bool { return x.n().Sign() == 0 }

// IsInt reports whether the denominator is 1.
func (x Rational) IsInt() bool { return x.d().Cmp(bigOne) == 0 }

// Add returns x + y.
func (x Rational) Add(y Rational) Rational {
	num := new(big.Int).Mul(x.n(), y.d())
	num.Add(num, new(big.Int).Mul(y.n(), x.d()))
	return reduce(num, new(big.Int).Mul(x.d(), y.d()))
}

// Sub returns x - y.
func (x Rational) Sub(y Rational) Rational {
	num := new(big.Int).Mul(x.n(), y.d())
	num.Sub(num, new(big.Int).Mul(y.n(), x.d()))
	return reduce(num, new(big.Int).Mul(x.d(), y.d()))
}

// Mul returns x * y.
func (x Rational) Mul(y Rational) Rational {
	return reduce(new(big.Int).Mul(x.n(), y.n()), new(big.Int).Mul(x.d(), y.d()))
}

// Quo returns x / y. As with math/big, a zero divisor panics; callers check first.
func (x Rational) Quo(y Rational) Rational {
	if y.IsZero() {
		panic("rational: division by zero")
	}
	return reduce(new(big.Int).Mul(x.n(), y.d()), new(big.Int).Mul(x.d(), y.n()))
}

// Mod returns the truncated remainder x - y*trunc(x/y); the result has the sign of x.
// A zero divisor panics.
func (x Rational) Mod(y Rational) Rational {
	q := x.Quo(y).Trunc()
	return x.Sub(y.Mul(FromInt(q)))
}

// Neg returns -x.
func (x Rational) Neg() Rational {
	return Rational{num: new(big.Int).Neg(x.n()), den: new(big.Int).Set(x.d())}
}

// Abs returns |x|.
func (x Rational) Abs() Rational {
	return Rational{num: new(big.Int).Abs(x.n()), den: new(big.Int).Set(x.d())}
}

// Inv returns 1/x. A zero value panics.
func (x Rational) Inv() Rational { return One.Quo(x) }

// Cmp compares x and y by cross-multiplication and returns -1, 0 or +1.
func (x Rational) Cmp(y Rational) int {
	l := new(big.Int).Mul(x.n(), y.d())
	r := new(big.Int).Mul(y.n(), x.d())
	return l.Cmp(r)
}

// Equal reports whether x == y.
func (x Rational) Equal(y Rational) bool { return x.Cmp(y) == 0 }

// Less reports whether x < y.
func (x Rational) Less(y Rational) bool { return x.Cmp(y) < 0 }

// LessEq reports whether x <= y.
func (x Rational) LessEq(y Rational) bool { return x.Cmp(y) <= 0 }

// Greater reports whether x > y.
func (x Rational) Greater(y Rational) bool { return x.Cmp(y) > 0 }

// GreaterEq reports whether x >= y.
func (x Rational) GreaterEq(y Rational) bool { return x.Cmp(y) >= 0 }

// Min returns the smaller of x and y.
func Min(x, y Rational) Rational {
	if y.Less(x) {
		return y
	}
	return x
}

// Max returns the larger of x and y.
func Max(x, y Rational) Rational {
	if y.Greater(x) {
		return y
	}
	return x
}

// Float64 returns the nearest float64 value.
func (x Rational) Float64() float64 {
	f, _ := x.Rat().Float64()
	return f
}

// Trunc returns the integer part of x, rounded toward zero.
func (x Rational) Trunc() *big.Int {
	return new(big.Int).Quo(x.n(), x.d())
}

// Floor returns the greatest integer <= x.
func (x Rational) Floor() Rational {
	if x.IsInt() {
		return x
	}
	// Euclidean division by a positive divisor rounds toward negative infinity.
	return FromInt(new(big.Int).Div(x.n(), x.d()))
}

// Ceil returns the least integer >= x.
func (x Rational) Ceil() Rational {
	return x.Neg().Floor().Neg()
}

// Round rounds x to the given number of decimal places, halves away from zero.
// Negative places round to tens, hundreds and so on.
func (x Rational) Round(places int) Rational {
	if places >= 0 {
		scale := FromInt(pow10(places))
		return roundHalfAway(x.Mul(scale)).Quo(scale)
	}
	scale := FromInt(pow10(-places))
	return roundHalfAway(x.Quo(scale)).Mul(scale)
}

func roundHalfAway(x Rational) Rational {
	half := Rational{num: big.NewInt(1), den: big.NewInt(2)}
	if x.Sign() < 0 {
		return x.Neg().Add(half).Floor().Neg()
	}
	return x.Add(half).Floor()
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}
