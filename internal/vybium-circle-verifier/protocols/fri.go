package protocols

import (
	"fmt"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/utils"
)

const (
	// FoldStep is the log degree reduction of one inner layer fold.
	FoldStep = 1
	// CircleToLineFoldStep is the log degree reduction of the first layer:
	// a circle-to-line fold followed by one line fold.
	CircleToLineFoldStep = 2
)

// inv2 is the inverse of 2 in M31: (P+1)/2.
const inv2 core.M31 = 1 << 30

type friState int

const (
	friUncommitted friState = iota
	friCommitted
	friQueriesSampled
	friDecommitted
)

type friFirstLayer struct {
	columnBounds []uint32
	foldingAlpha core.QM31
	proof        *FriLayerProof
}

type friInnerLayer struct {
	degreeBound  uint32
	domain       core.LineDomain
	foldingAlpha core.QM31
	proof        *FriLayerProof
}

// FriVerifier runs the layered low-degree test. It is a linear state
// machine: commit (channel replay of layer commitments and alphas), sample
// query positions, then decommit against the DEEP answers.
type FriVerifier struct {
	config          FriConfig
	firstLayer      friFirstLayer
	innerLayers     []friInnerLayer
	lastLayerDomain core.LineDomain
	lastLayerPoly   []core.QM31
	queries         map[uint32][]uint32
	state           friState
}

// NewFriVerifier replays the FRI commitment phase: mixes the first layer
// commitment and draws its folding alpha, walks the inner layers stepping
// the degree bound down by FoldStep after the initial CircleToLineFoldStep
// reduction, and reads the last layer polynomial in the clear.
func NewFriVerifier(ch *utils.Channel, config FriConfig, proof *FriProof, bounds []CirclePolyDegreeBound) (*FriVerifier, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("fri: no degree bounds")
	}
	columnBounds := make([]uint32, len(bounds))
	for i, b := range bounds {
		columnBounds[i] = b.LogDegreeBound
		if i > 0 && b.LogDegreeBound >= columnBounds[i-1] {
			return nil, fmt.Errorf("fri: degree bounds not strictly descending")
		}
		if b.LogDegreeBound < config.LogLastLayerDegreeBound+CircleToLineFoldStep {
			return nil, fmt.Errorf("fri: degree bound %d cannot reach last layer bound %d", b.LogDegreeBound, config.LogLastLayerDegreeBound)
		}
	}

	v := &FriVerifier{config: config}
	v.firstLayer.columnBounds = columnBounds
	v.firstLayer.proof = &proof.FirstLayer

	ch.MixDigest(proof.FirstLayer.Commitment)
	v.firstLayer.foldingAlpha = ch.DrawSecureFelt()

	maxBound := columnBounds[0]
	layerBound := maxBound - CircleToLineFoldStep
	firstCircle := core.CanonicCircleDomain(maxBound + config.LogBlowupFactor)
	domain := core.LineDomain{Coset: firstCircle.Half}.Double()

	layerIdx := 0
	for layerBound > config.LogLastLayerDegreeBound {
		if layerIdx >= len(proof.InnerLayers) {
			return nil, fmt.Errorf("fri: proof has %d inner layers, need %d more", len(proof.InnerLayers), layerIdx+1-len(proof.InnerLayers))
		}
		layerProof := &proof.InnerLayers[layerIdx]
		ch.MixDigest(layerProof.Commitment)
		v.innerLayers = append(v.innerLayers, friInnerLayer{
			degreeBound:  layerBound,
			domain:       domain,
			foldingAlpha: ch.DrawSecureFelt(),
			proof:        layerProof,
		})
		layerBound -= FoldStep
		domain = domain.Double()
		layerIdx++
	}
	if layerIdx != len(proof.InnerLayers) {
		return nil, fmt.Errorf("fri: proof has %d extra inner layers", len(proof.InnerLayers)-layerIdx)
	}

	v.lastLayerDomain = domain
	if len(proof.LastLayerPoly) != 1<<config.LogLastLayerDegreeBound {
		return nil, fmt.Errorf("fri: last layer poly has %d coefficients, want %d", len(proof.LastLayerPoly), 1<<config.LogLastLayerDegreeBound)
	}
	v.lastLayerPoly = proof.LastLayerPoly
	ch.MixFelts(proof.LastLayerPoly)

	v.state = friCommitted
	return v, nil
}

// SampleQueryPositions derives the query positions from the channel:
// nQueries positions at the largest committed domain, with positions for
// each smaller distinct domain obtained by folding, so that every size's
// queries are nested under the cascade.
func (v *FriVerifier) SampleQueryPositions(ch *utils.Channel) (map[uint32][]uint32, error) {
	if v.state != friCommitted {
		return nil, fmt.Errorf("fri: queries sampled out of order")
	}
	maxSize := v.firstLayer.columnBounds[0] + v.config.LogBlowupFactor
	if v.config.NQueries <= 0 || uint64(v.config.NQueries) > 1<<maxSize {
		return nil, fmt.Errorf("fri: query count %d exceeds domain size 2^%d", v.config.NQueries, maxSize)
	}
	base := ch.DrawQueries(maxSize, v.config.NQueries)
	v.queries = map[uint32][]uint32{maxSize: base}
	for _, b := range v.firstLayer.columnBounds[1:] {
		size := b + v.config.LogBlowupFactor
		shift := maxSize - size
		folded := make([]uint32, 0, len(base))
		for _, p := range base {
			q := p >> shift
			if len(folded) == 0 || q != folded[len(folded)-1] {
				folded = append(folded, q)
			}
		}
		v.queries[size] = folded
	}
	v.state = friQueriesSampled
	return v.queries, nil
}

// FriAnswers computes the DEEP quotient answers for one log size: per query
// position, a Horner fold over every (column, sample point) pair of
// (queriedValue - sampledValue) / d_z(p), with d_z(p) = 1 - z.x*p.x - z.y*p.y
// vanishing only at p = z on the curve. Every opening a component's mask
// names gets its own quotient, so an opening at a shifted point cannot be
// forged without breaking the committed quotient column.
func FriAnswers(logSize uint32, positions []uint32, randomCoeff core.QM31, samplePoints [][]core.SecurePoint, sampled [][]core.QM31, queried [][]core.M31) ([]core.QM31, error) {
	if len(samplePoints) != len(sampled) || len(sampled) != len(queried) {
		return nil, fmt.Errorf("fri answers: %d point columns, %d sampled columns, %d queried columns", len(samplePoints), len(sampled), len(queried))
	}
	domain := core.CanonicCircleDomain(logSize)
	answers := make([]core.QM31, len(positions))
	for i, pos := range positions {
		p := domain.PointAt(pos)
		var acc core.QM31
		for c := range sampled {
			if len(sampled[c]) == 0 || len(sampled[c]) != len(samplePoints[c]) {
				return nil, fmt.Errorf("fri answers: column %d has %d samples for %d sample points", c, len(sampled[c]), len(samplePoints[c]))
			}
			if len(queried[c]) != len(positions) {
				return nil, fmt.Errorf("fri answers: column %d has %d queried values, want %d", c, len(queried[c]), len(positions))
			}
			for k, z := range samplePoints[c] {
				denom := core.QM31One().
					Sub(z.X.MulScalar(p.X)).
					Sub(z.Y.MulScalar(p.Y))
				denomInv, err := denom.Inverse()
				if err != nil {
					return nil, fmt.Errorf("fri answers: sample point on the query domain: %w", err)
				}
				diff := core.QM31FromM31(queried[c][i]).Sub(sampled[c][k])
				acc = acc.Mul(randomCoeff).Add(diff.Mul(denomInv))
			}
		}
		answers[i] = acc
	}
	return answers, nil
}

type qm31Witness struct {
	items []core.QM31
	i     int
}

func (w *qm31Witness) next() (core.QM31, bool) {
	if w.i >= len(w.items) {
		return core.QM31{}, false
	}
	v := w.items[w.i]
	w.i++
	return v, true
}

func (w *qm31Witness) exhausted() bool {
	return w.i == len(w.items)
}

// fillGaps expands query positions to full fold blocks, taking computed
// evaluations at query positions and witness values elsewhere.
func fillGaps(positions []uint32, evals []core.QM31, block uint32, w *qm31Witness) ([]uint32, []core.QM31, bool) {
	var expanded []uint32
	var values []core.QM31
	qi := 0
	for qi < len(positions) {
		base := positions[qi] &^ (block - 1)
		for j := uint32(0); j < block; j++ {
			pos := base + j
			if qi < len(positions) && positions[qi] == pos {
				expanded = append(expanded, pos)
				values = append(values, evals[qi])
				qi++
			} else {
				v, ok := w.next()
				if !ok {
					return nil, nil, false
				}
				expanded = append(expanded, pos)
				values = append(values, v)
			}
		}
	}
	return expanded, values, true
}

// foldCircle folds a conjugate evaluation pair onto the line:
// f0 + alpha*f1 with f0 = (a+b)/2, f1 = (a-b)/(2y).
func foldCircle(a, b core.QM31, y core.M31, alpha core.QM31) (core.QM31, error) {
	yInv, err := y.Double().Inverse()
	if err != nil {
		return core.QM31{}, fmt.Errorf("fold circle: %w", err)
	}
	f0 := a.Add(b).MulScalar(inv2)
	f1 := a.Sub(b).MulScalar(yInv)
	return f0.Add(alpha.Mul(f1)), nil
}

// foldLinePair folds an evaluation pair at x and -x:
// f0 + alpha*f1 with f0 = (a+b)/2, f1 = (a-b)/(2x).
func foldLinePair(a, b core.QM31, x core.M31, alpha core.QM31) (core.QM31, error) {
	xInv, err := x.Double().Inverse()
	if err != nil {
		return core.QM31{}, fmt.Errorf("fold line: %w", err)
	}
	f0 := a.Add(b).MulScalar(inv2)
	f1 := a.Sub(b).MulScalar(xInv)
	return f0.Add(alpha.Mul(f1)), nil
}

// limbValues decomposes secure values into the four M31 coordinate columns
// committed per position.
func limbValues(values []core.QM31) []core.M31 {
	out := make([]core.M31, 0, 4*len(values))
	for _, v := range values {
		limbs := v.Limbs()
		out = append(out, limbs[0], limbs[1], limbs[2], limbs[3])
	}
	return out
}

type foldedColumn struct {
	positions []uint32
	evals     []core.QM31
}

// Decommit verifies the FRI layer decommitments against the DEEP answers
// and runs the fold cascade down to the last layer polynomial. answers are
// keyed by first-layer log size and aligned with the sampled query
// positions. Soundness failures return false; structural impossibilities
// return an error.
func (v *FriVerifier) Decommit(answers map[uint32][]core.QM31) (bool, error) {
	if v.state != friQueriesSampled {
		return false, fmt.Errorf("fri: decommit before query sampling")
	}
	v.state = friDecommitted
	blowup := v.config.LogBlowupFactor
	alpha := v.firstLayer.foldingAlpha
	alphaSq := alpha.Square()

	// First layer: verify all answer columns in one batched tree, folding
	// each by CircleToLineFoldStep.
	foldedByLog := make(map[uint32]foldedColumn)
	w := &qm31Witness{items: v.firstLayer.proof.FriWitness}
	merkleQueries := make(map[uint32][]uint32)
	var merkleValues []core.M31
	var firstColSizes []uint32
	for _, bound := range v.firstLayer.columnBounds {
		size := bound + blowup
		domain := core.CanonicCircleDomain(size)
		positions := v.queries[size]
		ans, ok := answers[size]
		if !ok || len(ans) != len(positions) {
			return false, fmt.Errorf("fri: answers for log size %d do not match query positions", size)
		}
		expanded, values, ok := fillGaps(positions, ans, 1<<CircleToLineFoldStep, w)
		if !ok {
			return false, nil
		}
		merkleQueries[size] = expanded
		merkleValues = append(merkleValues, limbValues(values)...)
		firstColSizes = append(firstColSizes, size, size, size, size)

		folded := foldedColumn{}
		for i := 0; i < len(expanded); i += 4 {
			y0 := domain.PointAt(expanded[i]).Y
			y2 := domain.PointAt(expanded[i] + 2).Y
			g0, err := foldCircle(values[i], values[i+1], y0, alpha)
			if err != nil {
				return false, err
			}
			g1, err := foldCircle(values[i+2], values[i+3], y2, alpha)
			if err != nil {
				return false, err
			}
			lineDomain := core.LineDomain{Coset: domain.Half}
			q := expanded[i] >> CircleToLineFoldStep
			out, err := foldLinePair(g0, g1, lineDomain.XAt(2*q), alphaSq)
			if err != nil {
				return false, err
			}
			folded.positions = append(folded.positions, q)
			folded.evals = append(folded.evals, out)
		}
		foldedByLog[size-CircleToLineFoldStep] = folded
	}
	if !w.exhausted() {
		return false, nil
	}
	mv := &MerkleVerifier{Root: v.firstLayer.proof.Commitment, ColumnLogSizes: firstColSizes}
	ok, err := mv.Verify(merkleQueries, merkleValues, v.firstLayer.proof.Decommitment)
	if err != nil {
		return false, fmt.Errorf("fri first layer: %w", err)
	}
	if !ok {
		return false, nil
	}

	// Inner layers: join folded columns at their matching domain, check the
	// fold against the layer's committed values, fold again.
	topLog := v.firstLayer.columnBounds[0] + blowup - CircleToLineFoldStep
	cur := foldedByLog[topLog]
	delete(foldedByLog, topLog)
	for _, layer := range v.innerLayers {
		curLog := layer.domain.LogSize()
		if err := joinFolded(&cur, foldedByLog, curLog, alphaSq); err != nil {
			return false, err
		}
		lw := &qm31Witness{items: layer.proof.FriWitness}
		expanded, values, ok := fillGaps(cur.positions, cur.evals, 1<<FoldStep, lw)
		if !ok || !lw.exhausted() {
			return false, nil
		}
		colSizes := []uint32{curLog, curLog, curLog, curLog}
		mv := &MerkleVerifier{Root: layer.proof.Commitment, ColumnLogSizes: colSizes}
		ok, err := mv.Verify(map[uint32][]uint32{curLog: expanded}, limbValues(values), layer.proof.Decommitment)
		if err != nil {
			return false, fmt.Errorf("fri inner layer (bound %d): %w", layer.degreeBound, err)
		}
		if !ok {
			return false, nil
		}
		next := foldedColumn{}
		for i := 0; i < len(expanded); i += 2 {
			out, err := foldLinePair(values[i], values[i+1], layer.domain.XAt(expanded[i]), layer.foldingAlpha)
			if err != nil {
				return false, err
			}
			next.positions = append(next.positions, expanded[i]>>FoldStep)
			next.evals = append(next.evals, out)
		}
		cur = next
	}

	// Last layer: remaining evaluations must agree with the committed
	// polynomial, which has exactly 2^logLastLayerDegreeBound coefficients.
	if err := joinFolded(&cur, foldedByLog, v.lastLayerDomain.LogSize(), alphaSq); err != nil {
		return false, err
	}
	if len(foldedByLog) != 0 {
		return false, fmt.Errorf("fri: %d folded columns never joined the cascade", len(foldedByLog))
	}
	for i, pos := range cur.positions {
		x := core.QM31FromM31(v.lastLayerDomain.XAt(pos))
		if !core.LinePolyEval(v.lastLayerPoly, x).Equals(cur.evals[i]) {
			return false, nil
		}
	}
	return true, nil
}

// joinFolded merges a first-layer folded column into the cascade at its
// matching domain: eval = eval*firstAlpha^2 + folded.
func joinFolded(cur *foldedColumn, foldedByLog map[uint32]foldedColumn, curLog uint32, alphaSq core.QM31) error {
	joined, ok := foldedByLog[curLog]
	if !ok {
		return nil
	}
	if len(joined.positions) != len(cur.positions) {
		return fmt.Errorf("fri: folded column at log size %d has mismatched positions", curLog)
	}
	for i := range joined.positions {
		if joined.positions[i] != cur.positions[i] {
			return fmt.Errorf("fri: folded column at log size %d has mismatched positions", curLog)
		}
		cur.evals[i] = cur.evals[i].Mul(alphaSq).Add(joined.evals[i])
	}
	delete(foldedByLog, curLog)
	return nil
}
