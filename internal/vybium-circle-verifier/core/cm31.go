package core

import "fmt"

// CM31 is the degree-2 extension of M31 with i^2 = -1 ("complex" field).
type CM31 struct {
	Real M31
	Imag M31
}

// NewCM31 creates an element from two canonically reduced coordinates.
func NewCM31(real, imag M31) CM31 {
	return CM31{Real: real, Imag: imag}
}

// Add returns a + b.
func (a CM31) Add(b CM31) CM31 {
	return CM31{a.Real.Add(b.Real), a.Imag.Add(b.Imag)}
}

// Sub returns a - b.
func (a CM31) Sub(b CM31) CM31 {
	return CM31{a.Real.Sub(b.Real), a.Imag.Sub(b.Imag)}
}

// Neg returns -a.
func (a CM31) Neg() CM31 {
	return CM31{a.Real.Neg(), a.Imag.Neg()}
}

// Mul returns (a+bi)(c+di) = (ac - bd) + (ad + bc)i.
func (a CM31) Mul(b CM31) CM31 {
	return CM31{
		a.Real.Mul(b.Real).Sub(a.Imag.Mul(b.Imag)),
		a.Real.Mul(b.Imag).Add(a.Imag.Mul(b.Real)),
	}
}

// MulScalar returns a scaled by the base-field element s.
func (a CM31) MulScalar(s M31) CM31 {
	return CM31{a.Real.Mul(s), a.Imag.Mul(s)}
}

// Square returns a^2.
func (a CM31) Square() CM31 {
	return a.Mul(a)
}

// Conjugate returns the complex conjugate a - bi.
func (a CM31) Conjugate() CM31 {
	return CM31{a.Real, a.Imag.Neg()}
}

// Norm returns a * conj(a) = a^2 + b^2 as a base-field element.
func (a CM31) Norm() M31 {
	return a.Real.Square().Add(a.Imag.Square())
}

// Inverse returns a^-1 via the conjugate over the norm.
func (a CM31) Inverse() (CM31, error) {
	normInv, err := a.Norm().Inverse()
	if err != nil {
		return CM31{}, fmt.Errorf("cm31 inverse: %w", err)
	}
	return a.Conjugate().MulScalar(normInv), nil
}

// IsZero reports whether both coordinates are zero.
func (a CM31) IsZero() bool {
	return a.Real.IsZero() && a.Imag.IsZero()
}

// Equals reports coordinate-wise equality.
func (a CM31) Equals(b CM31) bool {
	return a == b
}

// String returns the representation "r + si".
func (a CM31) String() string {
	return fmt.Sprintf("%s + %si", a.Real, a.Imag)
}
