package rational

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// DefaultDigits is the number of decimal places used when none is given.
const DefaultDigits = 10

// maxMinimalPlaces bounds the exact decimal expansion used by Minimal.
const maxMinimalPlaces = 20

// log10Nudge compensates float64 error in the decimal exponent estimate.
const log10Nudge = 1e-10

var (
	sciLow  = MustParse("0.000001")
	sciHigh = FromInt(pow10(15))
)

// String renders the exact form: "n" for integers, otherwise "n / d".
func (x Rational) String() string {
	if x.IsInt() {
		return x.n().String()
	}
	return x.n().String() + " / " + x.d().String()
}

// Format renders x exactly when exact is set, otherwise as a decimal with the
// given number of places.
func (x Rational) Format(digits int, exact bool) string {
	if exact {
		return x.String()
	}
	return x.Decimal(digits)
}

// Minimal renders the shortest exact form: an integer, a terminating decimal,
// or "n/d".
func (x Rational) Minimal() string {
	if x.IsInt() {
		return x.n().String()
	}
	if places, ok := terminatingPlaces(x.d()); ok && places <= maxMinimalPlaces {
		return x.fixed(places)
	}
	return x.n().String() + "/" + x.d().String()
}

// terminatingPlaces reports the number of decimal places needed to write 1/den
// exactly, if den only has the prime factors 2 and 5.
func terminatingPlaces(den *big.Int) (int, bool) {
	d := new(big.Int).Set(den)
	twos, fives := 0, 0
	two, five := big.NewInt(2), big.NewInt(5)
	m := new(big.Int)
	for {
		q, r := new(big.Int).QuoRem(d, two, m)
		if r.Sign() != 0 {
			break
		}
		d = q
		twos++
	}
	for {
		q, r := new(big.Int).QuoRem(d, five, m)
		if r.Sign() != 0 {
			break
		}
		d = q
		fives++
	}
	if d.Cmp(bigOne) != 0 {
		return 0, false
	}
	return max(twos, fives), true
}

// Decimal renders x with at most digits decimal places, trimming trailing
// zeroes. Magnitudes below 1e-6 or at or above 1e15 use scientific notation.
func (x Rational) Decimal(digits int) string {
	if digits < 0 {
		digits = 0
	}
	if x.IsZero() {
		return "0"
	}
	a := x.Abs()
	if a.Less(sciLow) || a.GreaterEq(sciHigh) {
		return x.scientific(digits)
	}
	return x.fixed(digits)
}

// fixed renders x rounded to places decimal places without exponent.
func (x Rational) fixed(places int) string {
	r := x.Round(places)
	if r.IsZero() {
		return "0"
	}
	a := r.Abs()
	whole, rem := new(big.Int).QuoRem(a.n(), a.d(), new(big.Int))

	var sb strings.Builder
	if r.Sign() < 0 {
		sb.WriteByte('-')
	}
	sb.WriteString(whole.String())

	if rem.Sign() != 0 && places > 0 {
		frac := new(big.Int).Mul(rem, pow10(places))
		frac.Quo(frac, a.d())
		s := frac.String()
		s = strings.Repeat("0", places-len(s)) + s
		s = strings.TrimRight(s, "0")
		if s != "" {
			sb.WriteByte('.')
			sb.WriteString(s)
		}
	}
	return sb.String()
}

func (x Rational) scientific(digits int) string {
	a := x.Abs()
	exp := int(math.Floor(log10Big(a.n()) - log10Big(a.d()) + log10Nudge))

	var m Rational
	if exp >= 0 {
		m = a.Quo(FromInt(pow10(exp)))
	} else {
		m = a.Mul(FromInt(pow10(-exp)))
	}
	ten := FromInt64(10)
	for m.GreaterEq(ten) {
		m = m.Quo(ten)
		exp++
	}
	for m.Less(One) {
		m = m.Mul(ten)
		exp--
	}
	if m.Round(digits).GreaterEq(ten) {
		m = m.Quo(ten)
		exp++
	}

	mant := m.fixed(digits)
	if x.Sign() < 0 {
		mant = "-" + mant
	}
	return mant + "E" + strconv.Itoa(exp)
}

// log10Big approximates log10(b) for b > 0 from its leading 53 bits.
func log10Big(b *big.Int) float64 {
	shift := b.BitLen() - 53
	if shift <= 0 {
		f, _ := new(big.Float).SetInt(b).Float64()
		return math.Log10(f)
	}
	top := new(big.Int).Rsh(b, uint(shift))
	f, _ := new(big.Float).SetInt(top).Float64()
	return math.Log10(f) + float64(shift)*math.Log10(2)
}
