package core

import "fmt"

// qm31R is the non-residue u^2 = 2 + i defining the degree-4 extension.
var qm31R = CM31{Real: 2, Imag: 1}

// QM31 is the degree-4 extension of M31, built as a degree-2 extension of
// CM31 with u^2 = 2 + i. This is the "secure field" used for all
// verifier randomness and soundness amplification.
type QM31 struct {
	First  CM31
	Second CM31
}

// QM31Zero returns the additive identity.
func QM31Zero() QM31 {
	return QM31{}
}

// QM31One returns the multiplicative identity.
func QM31One() QM31 {
	return QM31{First: CM31{Real: 1}}
}

// NewQM31 creates an element from four canonically reduced limbs
// (first.real, first.imag, second.real, second.imag).
func NewQM31(a, b, c, d M31) QM31 {
	return QM31{First: CM31{a, b}, Second: CM31{c, d}}
}

// QM31FromM31 embeds a base-field element.
func QM31FromM31(v M31) QM31 {
	return QM31{First: CM31{Real: v}}
}

// QM31FromUint32 creates an element from four raw uint32 limbs, reducing each.
func QM31FromUint32(a, b, c, d uint32) QM31 {
	return NewQM31(NewM31(a), NewM31(b), NewM31(c), NewM31(d))
}

// Limbs returns the four base-field coordinates in serialization order.
func (a QM31) Limbs() [4]M31 {
	return [4]M31{a.First.Real, a.First.Imag, a.Second.Real, a.Second.Imag}
}

// Add returns a + b.
func (a QM31) Add(b QM31) QM31 {
	return QM31{a.First.Add(b.First), a.Second.Add(b.Second)}
}

// Sub returns a - b.
func (a QM31) Sub(b QM31) QM31 {
	return QM31{a.First.Sub(b.First), a.Second.Sub(b.Second)}
}

// Neg returns -a.
func (a QM31) Neg() QM31 {
	return QM31{a.First.Neg(), a.Second.Neg()}
}

// Mul returns (a+bu)(c+du) = (ac + R*bd) + (ad + bc)u with R = 2 + i.
func (a QM31) Mul(b QM31) QM31 {
	return QM31{
		a.First.Mul(b.First).Add(qm31R.Mul(a.Second.Mul(b.Second))),
		a.First.Mul(b.Second).Add(a.Second.Mul(b.First)),
	}
}

// MulScalar returns a scaled by the base-field element s.
func (a QM31) MulScalar(s M31) QM31 {
	return QM31{a.First.MulScalar(s), a.Second.MulScalar(s)}
}

// Double returns 2a.
func (a QM31) Double() QM31 {
	return a.Add(a)
}

// Square returns a^2.
func (a QM31) Square() QM31 {
	return a.Mul(a)
}

// Pow returns a^exp by square-and-multiply.
func (a QM31) Pow(exp uint64) QM31 {
	result := QM31One()
	base := a
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Square()
		exp >>= 1
	}
	return result
}

// Inverse returns a^-1. With a = f + su, (f + su)(f - su) = f^2 - R*s^2
// lies in CM31, so the inverse reduces to one CM31 inversion.
func (a QM31) Inverse() (QM31, error) {
	denom := a.First.Square().Sub(qm31R.Mul(a.Second.Square()))
	denomInv, err := denom.Inverse()
	if err != nil {
		return QM31{}, fmt.Errorf("qm31 inverse: %w", err)
	}
	return QM31{a.First.Mul(denomInv), a.Second.Neg().Mul(denomInv)}, nil
}

// IsZero reports whether all four limbs are zero.
func (a QM31) IsZero() bool {
	return a.First.IsZero() && a.Second.IsZero()
}

// Equals reports coordinate-wise equality.
func (a QM31) Equals(b QM31) bool {
	return a == b
}

// String returns the representation "(f) + (s)u".
func (a QM31) String() string {
	return fmt.Sprintf("(%s) + (%s)u", a.First, a.Second)
}

// RecomposeSecure combines the four coordinate evaluations of a secure
// column back into one extension-field value via the tower basis
// 1, i, u, iu. Used when a QM31 column is committed as four M31 columns.
func RecomposeSecure(e [4]QM31) QM31 {
	basisI := NewQM31(0, 1, 0, 0)
	basisU := NewQM31(0, 0, 1, 0)
	basisIU := NewQM31(0, 0, 0, 1)
	return e[0].Add(e[1].Mul(basisI)).Add(e[2].Mul(basisU)).Add(e[3].Mul(basisIU))
}
