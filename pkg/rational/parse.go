package rational

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// maxLiteralExponent bounds the exponent of a scientific literal.
const maxLiteralExponent = 100000

// Parse converts a literal into a Rational. Accepted forms:
//
//	12, -12.5, +.5          plain decimal with optional sign
//	0x1F, -0b1010           hexadecimal and binary integers
//	1.5E3, 2e-7             scientific notation
//	3 / 4, -1/3             fraction literal
func Parse(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rational{}, ErrSyntax
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		p, err := parseSimple(strings.TrimSpace(s[:i]))
		if err != nil {
			return Rational{}, err
		}
		q, err := parseSimple(strings.TrimSpace(s[i+1:]))
		if err != nil {
			return Rational{}, err
		}
		if q.IsZero() {
			return Rational{}, ErrDivisionByZero
		}
		return p.Quo(q), nil
	}
	return parseSimple(s)
}

func parseSimple(s string) (Rational, error) {
	if s == "" {
		return Rational{}, ErrSyntax
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return Rational{}, ErrSyntax
	}

	var (
		r   Rational
		err error
	)
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "0x"):
		r, err = parseInteger(lower[2:], 16)
	case strings.HasPrefix(lower, "0b"):
		r, err = parseInteger(lower[2:], 2)
	case strings.ContainsRune(lower, 'e'):
		r, err = parseScientific(lower)
	default:
		r, err = parseDecimal(lower)
	}
	if err != nil {
		return Rational{}, err
	}
	if neg {
		r = r.Neg()
	}
	return r, nil
}

func parseInteger(digits string, base int) (Rational, error) {
	if digits == "" {
		return Rational{}, ErrSyntax
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return Rational{}, ErrSyntax
	}
	return FromInt(n), nil
}

func parseScientific(s string) (Rational, error) {
	i := strings.IndexByte(s, 'e')
	mant, err := parseDecimal(s[:i])
	if err != nil {
		return Rational{}, err
	}
	exp, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return Rational{}, fmt.Errorf("%w: exponent %q", ErrSyntax, s[i+1:])
	}
	if exp > maxLiteralExponent || exp < -maxLiteralExponent {
		return Rational{}, ErrMagnitude
	}
	if exp >= 0 {
		return mant.Mul(FromInt(pow10(exp))), nil
	}
	return mant.Quo(FromInt(pow10(-exp))), nil
}

func parseDecimal(s string) (Rational, error) {
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return Rational{}, ErrSyntax
	}
	for _, c := range intPart + fracPart {
		if c < '0' || c > '9' {
			return Rational{}, ErrSyntax
		}
	}
	digits := intPart + fracPart
	if digits == "" {
		digits = "0"
	}
	num, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Rational{}, ErrSyntax
	}
	return reduce(num, pow10(len(fracPart))), nil
}
