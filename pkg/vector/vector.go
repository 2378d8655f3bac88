// Package vector provides a three component vector over exact rationals.
//
// Arithmetic is elementwise except for Cross and Dot. Division and modulo do
// not validate their divisor; callers reject zero components first.
package vector

import (
	"strings"

	"github.com/leapstack-labs/leapcalc/pkg/rational"
)

// Vector3 is an immutable vector of three rationals.
type Vector3 struct {
	X, Y, Z rational.Rational
}

// New returns <x, y, z>.
func New(x, y, z rational.Rational) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// Splat returns <s, s, s>.
func Splat(s rational.Rational) Vector3 {
	return Vector3{X: s, Y: s, Z: s}
}

// Zero is <0, 0, 0>.
var Zero = Splat(rational.Zero)

// Components returns X, Y and Z in order.
func (v Vector3) Components() [3]rational.Rational {
	return [3]rational.Rational{v.X, v.Y, v.Z}
}

// Map applies f to every component.
func (v Vector3) Map(f func(rational.Rational) rational.Rational) Vector3 {
	return Vector3{X: f(v.X), Y: f(v.Y), Z: f(v.Z)}
}

// Zip applies f to matching components of v and w.
func (v Vector3) Zip(w Vector3, f func(a, b rational.Rational) rational.Rational) Vector3 {
	return Vector3{X: f(v.X, w.X), Y: f(v.Y, w.Y), Z: f(v.Z, w.Z)}
}

// Add returns v + w.
func (v Vector3) Add(w Vector3) Vector3 { return v.Zip(w, rational.Rational.Add) }

// Sub returns v - w.
func (v Vector3) Sub(w Vector3) Vector3 { return v.Zip(w, rational.Rational.Sub) }

// Mul returns the elementwise product.
func (v Vector3) Mul(w Vector3) Vector3 { return v.Zip(w, rational.Rational.Mul) }

// Quo returns the elementwise quotient.
func (v Vector3) Quo(w Vector3) Vector3 { return v.Zip(w, rational.Rational.Quo) }

// Mod returns the elementwise remainder.
func (v Vector3) Mod(w Vector3) Vector3 { return v.Zip(w, rational.Rational.Mod) }

// Scale multiplies every component by s.
func (v Vector3) Scale(s rational.Rational) Vector3 {
	return v.Map(func(c rational.Rational) rational.Rational { return c.Mul(s) })
}

// Neg returns -v.
func (v Vector3) Neg() Vector3 { return v.Map(rational.Rational.Neg) }

// Dot returns v . w.
func (v Vector3) Dot(w Vector3) rational.Rational {
	return v.X.Mul(w.X).Add(v.Y.Mul(w.Y)).Add(v.Z.Mul(w.Z))
}

// Cross returns v x w.
func (v Vector3) Cross(w Vector3) Vector3 {
	return Vector3{
		X: v.Y.Mul(w.Z).Sub(v.Z.Mul(w.Y)),
		Y: v.Z.Mul(w.X).Sub(v.X.Mul(w.Z)),
		Z: v.X.Mul(w.Y).Sub(v.Y.Mul(w.X)),
	}
}

// LengthSquared returns v . v.
func (v Vector3) LengthSquared() rational.Rational { return v.Dot(v) }

// Length returns the Euclidean norm.
func (v Vector3) Length() (rational.Rational, error) {
	return v.LengthSquared().Pow(half)
}

var half = rational.MustParse("1/2")

// Norm returns the unit vector in the direction of v. The zero vector
// normalizes to itself.
func (v Vector3) Norm() (Vector3, error) {
	l, err := v.Length()
	if err != nil {
		return Vector3{}, err
	}
	if l.IsZero() {
		return Zero, nil
	}
	return v.Map(func(c rational.Rational) rational.Rational { return c.Quo(l) }), nil
}

// HasZero reports whether any component is exactly zero.
func (v Vector3) HasZero() bool {
	return v.X.IsZero() || v.Y.IsZero() || v.Z.IsZero()
}

// Equal reports componentwise equality.
func (v Vector3) Equal(w Vector3) bool {
	return v.X.Equal(w.X) && v.Y.Equal(w.Y) && v.Z.Equal(w.Z)
}

// Format renders "<x, y, z>" with each component formatted by f.
func (v Vector3) Format(f func(rational.Rational) string) string {
	var sb strings.Builder
	sb.WriteByte('<')
	for i, c := range v.Components() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f(c))
	}
	sb.WriteByte('>')
	return sb.String()
}

// String renders the components in minimal exact form.
func (v Vector3) String() string {
	return v.Format(rational.Rational.Minimal)
}
