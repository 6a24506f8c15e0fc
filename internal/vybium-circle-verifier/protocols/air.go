package protocols

import (
	"fmt"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
)

// PointEvaluationAccumulator folds constraint evaluations into one value by
// Horner-style random linear combination:
// accumulation = accumulation*randomCoeff + value.
// A fresh accumulator is created per evaluation pass, mutated by Accumulate
// and read once at the end.
type PointEvaluationAccumulator struct {
	RandomCoeff  core.QM31
	Accumulation core.QM31
}

// NewPointEvaluationAccumulator creates an accumulator for the given
// random coefficient.
func NewPointEvaluationAccumulator(randomCoeff core.QM31) *PointEvaluationAccumulator {
	return &PointEvaluationAccumulator{RandomCoeff: randomCoeff}
}

// Accumulate folds one constraint evaluation.
func (a *PointEvaluationAccumulator) Accumulate(v core.QM31) {
	a.Accumulation = a.Accumulation.Mul(a.RandomCoeff).Add(v)
}

// ComponentInfo names, per tree and column, the row offsets a component's
// constraints read relative to the evaluation point, plus which preprocessed
// columns it consumes.
type ComponentInfo struct {
	MaskOffsets         [][][]int
	PreprocessedColumns []int
}

// Component is one AIR component of the proved computation. The verifier
// never re-evaluates the trace; it runs the constraint polynomial over the
// prover-supplied openings.
type Component interface {
	LogSize() uint32
	MaxConstraintLogDegreeBound() uint32
	Info() ComponentInfo
	// EvaluateConstraintQuotientsAtPoint accumulates the constraint
	// numerators at the sampled openings. All constraints of a component
	// share the trace-domain vanishing denominator; the orchestrator applies
	// its inverse once when comparing against the committed composition
	// polynomial. denomInv is passed for constraints that fold their own
	// denominator, such as the interaction-sum closing constraint.
	EvaluateConstraintQuotientsAtPoint(p core.SecurePoint, sampledValues [][][]core.QM31, denomInv core.QM31, acc *PointEvaluationAccumulator) error
}

// MaskPoints enumerates the sample points a component's mask names: the
// evaluation point shifted by offset steps of the trace domain generator.
// The DEEP quotients bind each prover-supplied opening to its point, so an
// opening at a shifted offset is checked against the commitments like the
// opening at the evaluation point itself.
func MaskPoints(info ComponentInfo, oodsPoint core.SecurePoint, logSize uint32) [][][]core.SecurePoint {
	step := core.NewPointIndex(1 << (core.CircleOrderLog - logSize))
	points := make([][][]core.SecurePoint, len(info.MaskOffsets))
	for t, tree := range info.MaskOffsets {
		points[t] = make([][]core.SecurePoint, len(tree))
		for c, offsets := range tree {
			points[t][c] = make([]core.SecurePoint, len(offsets))
			for k, offset := range offsets {
				var idx core.PointIndex
				if offset >= 0 {
					idx = step.MulUint32(uint32(offset))
				} else {
					idx = step.MulUint32(uint32(-offset)).Neg()
				}
				points[t][c][k] = oodsPoint.AddCirclePoint(idx.Point())
			}
		}
	}
	return points
}

// validateMaskShape checks the sampled values against the component's
// declared mask. Shape mismatches are malformed input, not soundness
// failures.
func validateMaskShape(info ComponentInfo, sampledValues [][][]core.QM31) error {
	if len(sampledValues) != len(info.MaskOffsets) {
		return fmt.Errorf("sampled values cover %d trees, mask names %d", len(sampledValues), len(info.MaskOffsets))
	}
	for t, tree := range info.MaskOffsets {
		if len(sampledValues[t]) != len(tree) {
			return fmt.Errorf("tree %d has %d sampled columns, mask names %d", t, len(sampledValues[t]), len(tree))
		}
		for c, offsets := range tree {
			if len(sampledValues[t][c]) != len(offsets) {
				return fmt.Errorf("tree %d column %d has %d samples, mask names %d", t, c, len(sampledValues[t][c]), len(offsets))
			}
		}
	}
	return nil
}

// WideFibonacciEval is the AIR of a wide Fibonacci trace: NColumns columns
// where every row satisfies col[k+2] = col[k+1] + col[k], one preprocessed
// enabler column, and a secure interaction column whose running sum closes
// to ClaimedSum.
type WideFibonacciEval struct {
	LogNRows   uint32
	NColumns   int
	ClaimedSum core.QM31
}

// NewWideFibonacciEval creates the component for a trace of 2^logNRows rows.
func NewWideFibonacciEval(logNRows uint32, nColumns int, claimedSum core.QM31) *WideFibonacciEval {
	return &WideFibonacciEval{LogNRows: logNRows, NColumns: nColumns, ClaimedSum: claimedSum}
}

// LogSize returns the trace domain log size.
func (w *WideFibonacciEval) LogSize() uint32 {
	return w.LogNRows
}

// MaxConstraintLogDegreeBound returns the composition degree bound.
func (w *WideFibonacciEval) MaxConstraintLogDegreeBound() uint32 {
	return w.LogNRows + 1
}

// Info declares one preprocessed enabler column, NColumns trace columns and
// the four coordinate columns of the interaction sum, all read at offset 0.
func (w *WideFibonacciEval) Info() ComponentInfo {
	offsets := make([][][]int, NTrees)
	offsets[TreePreprocessed] = [][]int{{0}}
	trace := make([][]int, w.NColumns)
	for i := range trace {
		trace[i] = []int{0}
	}
	offsets[TreeTrace] = trace
	offsets[TreeInteraction] = [][]int{{0}, {0}, {0}, {0}}
	offsets[TreeComposition] = nil
	return ComponentInfo{
		MaskOffsets:         offsets,
		PreprocessedColumns: []int{0},
	}
}

// EvaluateConstraintQuotientsAtPoint accumulates the interaction-sum closing
// constraint followed by the NColumns-2 recurrence numerators.
func (w *WideFibonacciEval) EvaluateConstraintQuotientsAtPoint(p core.SecurePoint, sampledValues [][][]core.QM31, denomInv core.QM31, acc *PointEvaluationAccumulator) error {
	if w.NColumns < 3 {
		return fmt.Errorf("wide fibonacci needs at least 3 columns, have %d", w.NColumns)
	}
	if len(sampledValues) <= TreeInteraction || len(sampledValues[TreeTrace]) < w.NColumns || len(sampledValues[TreeInteraction]) < 4 {
		return fmt.Errorf("sampled values do not cover the component mask")
	}
	interaction := core.RecomposeSecure([4]core.QM31{
		sampledValues[TreeInteraction][0][0],
		sampledValues[TreeInteraction][1][0],
		sampledValues[TreeInteraction][2][0],
		sampledValues[TreeInteraction][3][0],
	})
	acc.Accumulate(interaction.Sub(w.ClaimedSum).Mul(denomInv))
	for k := 0; k+2 < w.NColumns; k++ {
		c0 := sampledValues[TreeTrace][k][0]
		c1 := sampledValues[TreeTrace][k+1][0]
		c2 := sampledValues[TreeTrace][k+2][0]
		acc.Accumulate(c2.Sub(c1).Sub(c0))
	}
	return nil
}

// FibonacciEval is the AIR of a single-column Fibonacci trace read at three
// consecutive rows: f(z+2g) = f(z+g) + f(z).
type FibonacciEval struct {
	LogNRows uint32
}

// NewFibonacciEval creates the component for a trace of 2^logNRows rows.
func NewFibonacciEval(logNRows uint32) *FibonacciEval {
	return &FibonacciEval{LogNRows: logNRows}
}

// LogSize returns the trace domain log size.
func (f *FibonacciEval) LogSize() uint32 {
	return f.LogNRows
}

// MaxConstraintLogDegreeBound returns the composition degree bound.
func (f *FibonacciEval) MaxConstraintLogDegreeBound() uint32 {
	return f.LogNRows + 1
}

// Info declares a single trace column read at offsets 0, 1 and 2.
func (f *FibonacciEval) Info() ComponentInfo {
	offsets := make([][][]int, NTrees)
	offsets[TreeTrace] = [][]int{{0, 1, 2}}
	return ComponentInfo{MaskOffsets: offsets}
}

// EvaluateConstraintQuotientsAtPoint accumulates the recurrence numerator.
func (f *FibonacciEval) EvaluateConstraintQuotientsAtPoint(p core.SecurePoint, sampledValues [][][]core.QM31, denomInv core.QM31, acc *PointEvaluationAccumulator) error {
	if len(sampledValues) <= TreeTrace || len(sampledValues[TreeTrace]) < 1 || len(sampledValues[TreeTrace][0]) < 3 {
		return fmt.Errorf("sampled values do not cover the component mask")
	}
	mask := sampledValues[TreeTrace][0]
	acc.Accumulate(mask[2].Sub(mask[1]).Sub(mask[0]))
	return nil
}
