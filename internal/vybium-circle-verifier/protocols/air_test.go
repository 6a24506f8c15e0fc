package protocols

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
)

func qm(v uint32) core.QM31 {
	return core.QM31FromUint32(v, 0, 0, 0)
}

func TestPointEvaluationAccumulator(t *testing.T) {
	t.Run("Horner_Folding", func(t *testing.T) {
		coeff := qm(3)
		acc := NewPointEvaluationAccumulator(coeff)
		acc.Accumulate(qm(1))
		acc.Accumulate(qm(2))
		acc.Accumulate(qm(5))
		// ((1*3 + 2)*3 + 5 = 20
		require.Equal(t, qm(20), acc.Accumulation)
	})

	t.Run("Zero_Coeff_Keeps_Last_Value", func(t *testing.T) {
		acc := NewPointEvaluationAccumulator(core.QM31Zero())
		acc.Accumulate(qm(7))
		acc.Accumulate(qm(9))
		require.Equal(t, qm(9), acc.Accumulation)
	})
}

// Mirrors the reference fixture: ten constant columns 1..10, zero claimed
// sum and zero denominator inverse, accumulator alpha zero. Only the last
// recurrence numerator survives: 10 - 9 - 8 = -7.
func TestWideFibonacciConstantMask(t *testing.T) {
	comp := NewWideFibonacciEval(3, 10, core.QM31Zero())
	sampled := make([][][]core.QM31, NTrees)
	sampled[TreePreprocessed] = [][]core.QM31{{qm(1)}}
	sampled[TreeTrace] = make([][]core.QM31, 10)
	for c := range sampled[TreeTrace] {
		sampled[TreeTrace][c] = []core.QM31{qm(uint32(c + 1))}
	}
	sampled[TreeInteraction] = [][]core.QM31{{qm(4)}, {qm(5)}, {qm(6)}, {qm(7)}}

	require.NoError(t, validateMaskShape(comp.Info(), sampled))

	acc := NewPointEvaluationAccumulator(core.QM31Zero())
	point := core.LiftPoint(core.CircleGen)
	err := comp.EvaluateConstraintQuotientsAtPoint(point, sampled, core.QM31Zero(), acc)
	require.NoError(t, err)
	require.Equal(t, core.QM31FromUint32(2147483640, 0, 0, 0), acc.Accumulation)
}

func TestFibonacciEval(t *testing.T) {
	comp := NewFibonacciEval(4)
	sampled := make([][][]core.QM31, NTrees)
	sampled[TreeTrace] = [][]core.QM31{{qm(8), qm(13), qm(21)}}

	t.Run("Satisfied_Recurrence_Accumulates_Zero", func(t *testing.T) {
		acc := NewPointEvaluationAccumulator(qm(2))
		err := comp.EvaluateConstraintQuotientsAtPoint(core.LiftPoint(core.CircleGen), sampled, core.QM31One(), acc)
		require.NoError(t, err)
		require.True(t, acc.Accumulation.IsZero())
	})

	t.Run("Broken_Recurrence_Accumulates_Nonzero", func(t *testing.T) {
		bad := [][][]core.QM31{nil, {{qm(8), qm(13), qm(22)}}, nil, nil}
		acc := NewPointEvaluationAccumulator(qm(2))
		err := comp.EvaluateConstraintQuotientsAtPoint(core.LiftPoint(core.CircleGen), bad, core.QM31One(), acc)
		require.NoError(t, err)
		require.Equal(t, qm(1), acc.Accumulation)
	})
}

func TestMaskPoints(t *testing.T) {
	comp := NewFibonacciEval(4)
	oods := core.LiftPoint(core.CircleGen.Double())
	points := MaskPoints(comp.Info(), oods, comp.LogSize())
	require.Len(t, points[TreeTrace], 1)
	require.Len(t, points[TreeTrace][0], 3)

	step := core.NewPointIndex(1 << (core.CircleOrderLog - comp.LogSize()))
	require.Equal(t, oods, points[TreeTrace][0][0])
	require.Equal(t, oods.AddCirclePoint(step.Point()), points[TreeTrace][0][1])
	for _, p := range points[TreeTrace][0] {
		require.True(t, p.IsOnCurve())
	}
}

func TestValidateMaskShape(t *testing.T) {
	comp := NewFibonacciEval(4)
	short := make([][][]core.QM31, NTrees)
	short[TreeTrace] = [][]core.QM31{{qm(1), qm(2)}}
	require.Error(t, validateMaskShape(comp.Info(), short))
}
