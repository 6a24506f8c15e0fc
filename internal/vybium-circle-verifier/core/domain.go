package core

// BitReverse reverses the lowest bits bits of v. Evaluation domains store
// values in bit-reversed position order so that adjacent positions hold
// conjugate pairs.
func BitReverse(v uint32, bits uint32) uint32 {
	var r uint32
	for i := uint32(0); i < bits; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}

// Coset is the set of points Initial + i*step for i in [0, 2^LogSize),
// with step 2^(31-LogSize) so the coset tiles the full circle group.
type Coset struct {
	Initial PointIndex
	LogSize uint32
}

// StepIndex returns the index distance between consecutive coset points.
func (c Coset) StepIndex() PointIndex {
	return NewPointIndex(1 << (CircleOrderLog - c.LogSize))
}

// Size returns the number of points in the coset.
func (c Coset) Size() uint32 {
	return 1 << c.LogSize
}

// IndexAt returns the point index of the i-th coset element.
func (c Coset) IndexAt(i uint32) PointIndex {
	return c.Initial.Add(c.StepIndex().MulUint32(i))
}

// Double applies the doubling map to the coset, halving its size.
func (c Coset) Double() Coset {
	return Coset{Initial: c.Initial.Add(c.Initial), LogSize: c.LogSize - 1}
}

// CircleDomain is an evaluation domain of 2^(Half.LogSize+1) circle points:
// a half coset together with its conjugates.
type CircleDomain struct {
	Half Coset
}

// CanonicCircleDomain returns the canonic evaluation domain of the given
// log size: half coset at index 2^(30-n) with step 2^(32-n). Together with
// its conjugates this covers every odd multiple of 2^(30-n), so the domain
// stays disjoint from the subgroup points with zero coordinates and every
// fold denominator down the cascade is invertible.
func CanonicCircleDomain(logSize uint32) CircleDomain {
	return CircleDomain{Half: Coset{
		Initial: NewPointIndex(1 << (CircleOrderLog - logSize - 1)),
		LogSize: logSize - 1,
	}}
}

// LogSize returns the log2 number of points in the domain.
func (d CircleDomain) LogSize() uint32 {
	return d.Half.LogSize + 1
}

// IndexAt returns the point index at natural position i: the first half
// walks the half coset, the second half its conjugates.
func (d CircleDomain) IndexAt(i uint32) PointIndex {
	half := d.Half.Size()
	if i < half {
		return d.Half.IndexAt(i)
	}
	return d.Half.IndexAt(i - half).Neg()
}

// PointAt resolves a bit-reversed query position to its domain point.
// Positions 2i and 2i+1 hold a point and its conjugate.
func (d CircleDomain) PointAt(pos uint32) CirclePoint {
	return d.IndexAt(BitReverse(pos, d.LogSize())).Point()
}

// LineDomain is the x-coordinate projection domain used by the univariate
// FRI layers after the circle-to-line fold.
type LineDomain struct {
	Coset Coset
}

// LogSize returns the log2 number of positions.
func (d LineDomain) LogSize() uint32 {
	return d.Coset.LogSize
}

// XAt resolves a bit-reversed query position to its x-coordinate.
// Positions 2i and 2i+1 hold x and -x.
func (d LineDomain) XAt(pos uint32) M31 {
	return d.Coset.IndexAt(BitReverse(pos, d.LogSize())).Point().X
}

// Double applies the doubling map x -> 2x^2-1 to the domain.
func (d LineDomain) Double() LineDomain {
	return LineDomain{Coset: d.Coset.Double()}
}

// PiX is the circle doubling map on x-coordinates, pi(x) = 2x^2 - 1.
func PiX(x QM31) QM31 {
	return x.Square().Double().Sub(QM31One())
}

// CosetVanishing evaluates the vanishing polynomial of the canonic circle
// domain of the given log size at a secure-field point: pi^(n-1)(x).
func CosetVanishing(logSize uint32, p SecurePoint) QM31 {
	x := p.X
	for k := uint32(1); k < logSize; k++ {
		x = PiX(x)
	}
	return x
}
