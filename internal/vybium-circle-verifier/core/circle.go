package core

import "fmt"

// CircleOrderLog is the log2 order of the full M31 circle group.
const CircleOrderLog = 31

// circleOrderMask reduces point indexes modulo 2^31.
const circleOrderMask uint32 = (1 << CircleOrderLog) - 1

// CirclePoint is a point (x, y) on the unit circle x^2 + y^2 = 1 over M31.
// The group law is complex-style multiplication.
type CirclePoint struct {
	X M31
	Y M31
}

// CircleGen generates the full circle group of order 2^31.
var CircleGen = CirclePoint{X: 2, Y: 1268011823}

// CircleIdentity is the group identity (1, 0).
var CircleIdentity = CirclePoint{X: 1, Y: 0}

// Add applies the group law (x1x2 - y1y2, x1y2 + y1x2).
func (p CirclePoint) Add(q CirclePoint) CirclePoint {
	return CirclePoint{
		X: p.X.Mul(q.X).Sub(p.Y.Mul(q.Y)),
		Y: p.X.Mul(q.Y).Add(p.Y.Mul(q.X)),
	}
}

// Double returns 2p.
func (p CirclePoint) Double() CirclePoint {
	return p.Add(p)
}

// Neg returns the inverse -p = (x, -y).
func (p CirclePoint) Neg() CirclePoint {
	return CirclePoint{X: p.X, Y: p.Y.Neg()}
}

// IsOnCurve checks x^2 + y^2 = 1.
func (p CirclePoint) IsOnCurve() bool {
	return p.X.Square().Add(p.Y.Square()) == 1
}

// String returns "(x, y)".
func (p CirclePoint) String() string {
	return fmt.Sprintf("(%s, %s)", p.X, p.Y)
}

// PointIndex addresses a point in the group generated by CircleGen,
// taken modulo the group order 2^31.
type PointIndex uint32

// NewPointIndex reduces an index into the group order.
func NewPointIndex(v uint32) PointIndex {
	return PointIndex(v & circleOrderMask)
}

// Add returns the index sum modulo 2^31.
func (i PointIndex) Add(j PointIndex) PointIndex {
	return NewPointIndex(uint32(i) + uint32(j))
}

// Neg returns the index of the inverse point.
func (i PointIndex) Neg() PointIndex {
	return NewPointIndex(uint32(1<<CircleOrderLog) - uint32(i))
}

// MulUint32 returns the index scaled by k modulo 2^31.
func (i PointIndex) MulUint32(k uint32) PointIndex {
	return NewPointIndex(uint32(uint64(i) * uint64(k) & uint64(circleOrderMask)))
}

// Point resolves the index to its point by double-and-add over CircleGen.
func (i PointIndex) Point() CirclePoint {
	result := CircleIdentity
	current := CircleGen
	scalar := uint32(i)
	for scalar > 0 {
		if scalar&1 == 1 {
			result = result.Add(current)
		}
		current = current.Double()
		scalar >>= 1
	}
	return result
}

// SecurePoint is a point on the unit circle over the secure field QM31.
// OODS sample points live here.
type SecurePoint struct {
	X QM31
	Y QM31
}

// Add applies the group law over QM31.
func (p SecurePoint) Add(q SecurePoint) SecurePoint {
	return SecurePoint{
		X: p.X.Mul(q.X).Sub(p.Y.Mul(q.Y)),
		Y: p.X.Mul(q.Y).Add(p.Y.Mul(q.X)),
	}
}

// AddCirclePoint translates p by a base-field point.
func (p SecurePoint) AddCirclePoint(q CirclePoint) SecurePoint {
	return p.Add(LiftPoint(q))
}

// Neg returns (x, -y).
func (p SecurePoint) Neg() SecurePoint {
	return SecurePoint{X: p.X, Y: p.Y.Neg()}
}

// IsOnCurve checks x^2 + y^2 = 1 over the secure field.
func (p SecurePoint) IsOnCurve() bool {
	return p.X.Square().Add(p.Y.Square()).Equals(QM31One())
}

// LiftPoint embeds a base-field circle point into the secure field.
func LiftPoint(p CirclePoint) SecurePoint {
	return SecurePoint{X: QM31FromM31(p.X), Y: QM31FromM31(p.Y)}
}

// SecurePointFromT maps a secure-field parameter t onto the circle via the
// rational parametrization ((1-t^2)/(1+t^2), 2t/(1+t^2)). The second return
// is false when 1+t^2 = 0 and the caller must redraw.
func SecurePointFromT(t QM31) (SecurePoint, bool) {
	tSq := t.Square()
	denom := QM31One().Add(tSq)
	denomInv, err := denom.Inverse()
	if err != nil {
		return SecurePoint{}, false
	}
	return SecurePoint{
		X: QM31One().Sub(tSq).Mul(denomInv),
		Y: t.Double().Mul(denomInv),
	}, true
}
