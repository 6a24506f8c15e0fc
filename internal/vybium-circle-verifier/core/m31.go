package core

import (
	"errors"
	"fmt"
)

// P is the Mersenne-31 prime 2^31 - 1.
const P uint32 = (1 << 31) - 1

// ErrZeroInverse reports an attempt to invert the zero element. Extension
// field inversions wrap it, so errors.Is works at any tower level.
var ErrZeroInverse = errors.New("inverse of zero")

// M31 is an element of the Mersenne prime field of order P.
// Values are always kept canonically reduced to [0, P).
//
// Reduction uses the Mersenne fold x mod (2^31-1) = (x & P) + (x >> 31),
// applied until the value fits. This exact algorithm is a cross-implementation
// compatibility contract and must not be replaced by a generic modulo.
type M31 uint32

// NewM31 creates a canonically reduced field element from an arbitrary uint32.
func NewM31(v uint32) M31 {
	v = (v & P) + (v >> 31)
	if v >= P {
		v -= P
	}
	return M31(v)
}

// NewM31FromInt64 creates a field element from a signed integer.
func NewM31FromInt64(v int64) M31 {
	r := v % int64(P)
	if r < 0 {
		r += int64(P)
	}
	return M31(uint32(r))
}

// reduce64 folds a 64-bit value into canonical form. Two folds bring any
// product of reduced elements below P+3, the conditional subtraction finishes.
func reduce64(x uint64) M31 {
	x = (x & uint64(P)) + (x >> 31)
	x = (x & uint64(P)) + (x >> 31)
	if x >= uint64(P) {
		x -= uint64(P)
	}
	return M31(x)
}

// Add returns a + b.
func (a M31) Add(b M31) M31 {
	s := uint32(a) + uint32(b)
	s = (s & P) + (s >> 31)
	if s >= P {
		s -= P
	}
	return M31(s)
}

// Sub returns a - b.
func (a M31) Sub(b M31) M31 {
	return a.Add(b.Neg())
}

// Neg returns -a.
func (a M31) Neg() M31 {
	if a == 0 {
		return 0
	}
	return M31(P - uint32(a))
}

// Mul returns a * b.
func (a M31) Mul(b M31) M31 {
	return reduce64(uint64(a) * uint64(b))
}

// Double returns 2a.
func (a M31) Double() M31 {
	return a.Add(a)
}

// Square returns a^2.
func (a M31) Square() M31 {
	return a.Mul(a)
}

// Pow returns a^exp by square-and-multiply.
func (a M31) Pow(exp uint64) M31 {
	result := M31(1)
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

// Inverse returns a^-1 via Fermat's little theorem: a^(P-2) mod P.
// Inverting zero is an arithmetic-domain error.
func (a M31) Inverse() (M31, error) {
	if a == 0 {
		return 0, ErrZeroInverse
	}
	return a.Pow(uint64(P) - 2), nil
}

// IsZero reports whether the element is zero.
func (a M31) IsZero() bool {
	return a == 0
}

// String returns the decimal representation.
func (a M31) String() string {
	return fmt.Sprintf("%d", uint32(a))
}
