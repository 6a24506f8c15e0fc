package core

import "fmt"

// LinePolyEval evaluates a univariate polynomial in the circle-FFT basis at
// x: with coefficients split in halves, f(x) = E(pi(x)) + x*O(pi(x)).
// The coefficient count must be a power of two.
func LinePolyEval(coeffs []QM31, x QM31) QM31 {
	if len(coeffs) == 1 {
		return coeffs[0]
	}
	half := len(coeffs) / 2
	px := PiX(x)
	even := LinePolyEval(coeffs[:half], px)
	odd := LinePolyEval(coeffs[half:], px)
	return even.Add(x.Mul(odd))
}

// CirclePolyEval evaluates a circle polynomial in the circle-FFT basis at a
// secure point: f(x, y) = E(x) + y*O(x) with E, O line polynomials.
func CirclePolyEval(coeffs []QM31, p SecurePoint) QM31 {
	if len(coeffs) == 1 {
		return coeffs[0]
	}
	half := len(coeffs) / 2
	even := LinePolyEval(coeffs[:half], p.X)
	odd := LinePolyEval(coeffs[half:], p.X)
	return even.Add(p.Y.Mul(odd))
}

// SecureCirclePolyEval evaluates the four parallel M31 coefficient vectors of
// a secure circle polynomial at a secure point and recombines them into one
// QM31 value via the tower basis.
func SecureCirclePolyEval(coeffVecs [4][]uint32, p SecurePoint) (QM31, error) {
	n := len(coeffVecs[0])
	if n == 0 || n&(n-1) != 0 {
		return QM31{}, fmt.Errorf("coefficient count %d is not a power of two", n)
	}
	var evals [4]QM31
	for i := range coeffVecs {
		if len(coeffVecs[i]) != n {
			return QM31{}, fmt.Errorf("coordinate %d has %d coefficients, want %d", i, len(coeffVecs[i]), n)
		}
		coeffs := make([]QM31, n)
		for j, c := range coeffVecs[i] {
			coeffs[j] = QM31FromM31(NewM31(c))
		}
		evals[i] = CirclePolyEval(coeffs, p)
	}
	return RecomposeSecure(evals), nil
}
