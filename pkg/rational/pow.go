package rational

import (
	"math"
	"math/big"
)

// MaxExactDigits is the ceiling on (digits(num)+digits(den)) * |exponent| for
// exact powers and on digits(radicand) * degree for exact roots. Past it the
// result is approximated through float64.
const MaxExactDigits = 20000

const (
	rootPrecision     = 512
	rootMaxIterations = 500
	rootPlaces        = 100
)

// rootEpsilon is the Newton convergence tolerance for NthRoot.
var rootEpsilon = new(big.Float).SetPrec(rootPrecision).SetFloat64(1e-100)

// digitCount estimates the number of decimal digits of |b| from its bit length.
func digitCount(b *big.Int) int64 {
	return int64(float64(b.BitLen())*math.Log10(2)) + 1
}

// Digits estimates the total decimal digits of numerator and denominator.
func (x Rational) Digits() int64 {
	return digitCount(x.n()) + digitCount(x.d())
}

func exceedsCeiling(digits int64, exp *big.Int) bool {
	e := new(big.Int).Abs(exp)
	if !e.IsInt64() {
		return true
	}
	limit := MaxExactDigits / digits
	return e.Int64() > limit
}

// PowInt returns x raised to an integer exponent.
func (x Rational) PowInt(exp *big.Int) (Rational, error) {
	if exp.IsInt64() {
		switch exp.Int64() {
		case 0:
			return One, nil
		case 1:
			return x, nil
		case 2:
			return x.Mul(x), nil
		case 3:
			return x.Mul(x).Mul(x), nil
		}
	}

	if x.IsZero() {
		if exp.Sign() < 0 {
			return Rational{}, ErrDivisionByZero
		}
		return Zero, nil
	}
	if x.IsInt() && x.n().CmpAbs(bigOne) == 0 {
		if x.Sign() < 0 && exp.Bit(0) == 1 {
			return FromInt64(-1), nil
		}
		return One, nil
	}

	if exceedsCeiling(x.Digits(), exp) {
		return x.powFloat(exp)
	}

	base := x
	e := new(big.Int).Set(exp)
	if e.Sign() < 0 {
		base = x.Inv()
		e.Neg(e)
	}
	num := new(big.Int).Exp(base.n(), e, nil)
	den := new(big.Int).Exp(base.d(), e, nil)
	return reduce(num, den), nil
}

func (x Rational) powFloat(exp *big.Int) (Rational, error) {
	e, _ := new(big.Float).SetInt(exp).Float64()
	return FromFloat64(math.Pow(x.Float64(), e))
}

// Pow returns x raised to a rational exponent. A fractional exponent p/q is
// split into an exact integer part and the q-th root of x raised to the
// remaining numerator.
func (x Rational) Pow(exp Rational) (Rational, error) {
	if exp.IsInt() {
		return x.PowInt(exp.n())
	}

	q := exp.d()
	if !q.IsInt64() || exceedsCeiling(x.Digits(), q) {
		if x.Sign() < 0 {
			return Rational{}, ErrInvalidPower
		}
		return FromFloat64(math.Pow(x.Float64(), exp.Float64()))
	}

	whole := exp.Floor()
	rem := exp.Sub(whole)

	intPart, err := x.PowInt(whole.n())
	if err != nil {
		return Rational{}, err
	}
	radicand, err := x.PowInt(rem.n())
	if err != nil {
		return Rational{}, err
	}
	root, err := radicand.NthRoot(q.Int64())
	if err != nil {
		return Rational{}, err
	}
	return intPart.Mul(root), nil
}

// NthRoot returns the n-th root of x. Perfect powers are returned exactly;
// otherwise Newton iteration runs until successive approximations differ by
// less than 1e-100 and the result is rounded to 100 decimal places.
func (x Rational) NthRoot(n int64) (Rational, error) {
	switch {
	case n <= 0:
		return Rational{}, ErrInvalidPower
	case n == 1, x.IsZero():
		return x, nil
	}
	if x.Sign() < 0 {
		if n%2 == 0 {
			return Rational{}, ErrInvalidPower
		}
		r, err := x.Neg().NthRoot(n)
		if err != nil {
			return Rational{}, err
		}
		return r.Neg(), nil
	}

	if rn, ok := intRoot(x.n(), n); ok {
		if rd, ok := intRoot(x.d(), n); ok {
			return reduce(rn, rd), nil
		}
	}

	if exceedsCeiling(x.Digits(), big.NewInt(n)) {
		return FromFloat64(math.Pow(x.Float64(), 1/float64(n)))
	}
	return newtonRoot(x, n), nil
}

// intRoot returns floor(a^(1/n)) and whether it is exact. a must be >= 0.
func intRoot(a *big.Int, n int64) (*big.Int, bool) {
	if a.Sign() == 0 {
		return new(big.Int), true
	}
	if n == 2 {
		r := new(big.Int).Sqrt(a)
		return r, new(big.Int).Mul(r, r).Cmp(a) == 0
	}

	nn := big.NewInt(n)
	n1 := big.NewInt(n - 1)
	x := new(big.Int).Lsh(bigOne, uint(int64(a.BitLen())/n+1))
	for {
		y := new(big.Int).Mul(n1, x)
		y.Add(y, new(big.Int).Quo(a, new(big.Int).Exp(x, n1, nil)))
		y.Quo(y, nn)
		if y.Cmp(x) >= 0 {
			break
		}
		x = y
	}
	return x, new(big.Int).Exp(x, nn, nil).Cmp(a) == 0
}

func newtonRoot(x Rational, n int64) Rational {
	a := new(big.Float).SetPrec(rootPrecision).SetRat(x.Rat())

	guess := math.Pow(x.Float64(), 1/float64(n))
	cur := new(big.Float).SetPrec(rootPrecision)
	if guess > 0 && !math.IsInf(guess, 0) {
		cur.SetFloat64(guess)
	} else {
		// 2^(exp/n) is within a factor of two of the root.
		exp := a.MantExp(nil)
		cur.SetMantExp(big.NewFloat(1).SetPrec(rootPrecision), exp/int(n))
	}

	fn := new(big.Float).SetPrec(rootPrecision).SetInt64(n)
	fn1 := new(big.Float).SetPrec(rootPrecision).SetInt64(n - 1)
	for i := 0; i < rootMaxIterations; i++ {
		p := floatPow(cur, n-1)
		next := new(big.Float).SetPrec(rootPrecision).Quo(a, p)
		next.Add(next, new(big.Float).SetPrec(rootPrecision).Mul(fn1, cur))
		next.Quo(next, fn)

		diff := new(big.Float).SetPrec(rootPrecision).Sub(next, cur)
		cur = next
		if diff.Abs(diff).Cmp(rootEpsilon) < 0 {
			break
		}
	}

	r, _ := cur.Rat(nil)
	return FromRat(r).Round(rootPlaces)
}

func floatPow(b *big.Float, n int64) *big.Float {
	result := new(big.Float).SetPrec(rootPrecision).SetInt64(1)
	base := new(big.Float).SetPrec(rootPrecision).Set(b)
	for n > 0 {
		if n&1 == 1 {
			result.Mul(result, base)
		}
		base.Mul(base, base)
		n >>= 1
	}
	return result
}
