package protocols

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/utils"
)

// wideFibCase is a complete synthetic proof for the wide Fibonacci AIR with
// constant columns: every recurrence numerator, interaction value and DEEP
// quotient is zero, so the composition polynomial and all FRI layers commit
// zero columns while still exercising the full transcript, Merkle and fold
// machinery.
type wideFibCase struct {
	proof              *Proof
	components         []Component
	treeRoots          [][32]byte
	treeColumnLogSizes [][]uint32
}

func buildWideFibCase(t *testing.T) *wideFibCase {
	return buildWideFibCaseWith(t, core.QM31Zero(), core.QM31Zero())
}

// buildWideFibCaseWith lets the first interaction opening and the claimed
// sum diverge from zero. The committed interaction columns stay all-zero, so
// a nonzero opening must be caught by the DEEP quotient binding even when it
// matches the claimed sum and the constraint check passes.
func buildWideFibCaseWith(t *testing.T, interactionSample, claimedSum core.QM31) *wideFibCase {
	t.Helper()
	const (
		logNRows uint32 = 5
		blowup   uint32 = 2
		lastBits uint32 = 2
		nQueries        = 70
		powBits  uint32 = 10
		nCols           = 10
	)
	traceSize := logNRows + blowup
	compositionSize := logNRows + 1 + blowup

	fib := []uint32{1, 2, 3, 5, 8, 13, 21, 34, 55, 89}

	preCols := [][]core.M31{constantColumn(traceSize, 1)}
	traceCols := make([][]core.M31, nCols)
	for c := range traceCols {
		traceCols[c] = constantColumn(traceSize, core.M31(fib[c]))
	}
	interCols := make([][]core.M31, 4)
	for c := range interCols {
		interCols[c] = constantColumn(traceSize, 0)
	}
	compCols := make([][]core.M31, 4)
	for c := range compCols {
		compCols[c] = constantColumn(compositionSize, 0)
	}

	treeColumnLogSizes := [][]uint32{
		{traceSize},
		{traceSize, traceSize, traceSize, traceSize, traceSize, traceSize, traceSize, traceSize, traceSize, traceSize},
		{traceSize, traceSize, traceSize, traceSize},
		{compositionSize, compositionSize, compositionSize, compositionSize},
	}
	trees := []*testTree{
		buildTestTree(t, treeColumnLogSizes[0], preCols),
		buildTestTree(t, treeColumnLogSizes[1], traceCols),
		buildTestTree(t, treeColumnLogSizes[2], interCols),
		buildTestTree(t, treeColumnLogSizes[3], compCols),
	}
	treeRoots := make([][32]byte, NTrees)
	for i, tr := range trees {
		treeRoots[i] = tr.root()
	}

	sampled := make([][][]core.QM31, NTrees)
	sampled[TreePreprocessed] = [][]core.QM31{{core.QM31FromUint32(1, 0, 0, 0)}}
	sampled[TreeTrace] = make([][]core.QM31, nCols)
	for c := range sampled[TreeTrace] {
		sampled[TreeTrace][c] = []core.QM31{core.QM31FromUint32(fib[c], 0, 0, 0)}
	}
	sampled[TreeInteraction] = [][]core.QM31{{interactionSample}, {core.QM31Zero()}, {core.QM31Zero()}, {core.QM31Zero()}}
	sampled[TreeComposition] = [][]core.QM31{{core.QM31Zero()}, {core.QM31Zero()}, {core.QM31Zero()}, {core.QM31Zero()}}

	// FRI layer trees: the DEEP quotient columns are identically zero.
	firstSizes := []uint32{
		compositionSize, compositionSize, compositionSize, compositionSize,
		traceSize, traceSize, traceSize, traceSize,
	}
	firstCols := make([][]core.M31, len(firstSizes))
	for c, s := range firstSizes {
		firstCols[c] = constantColumn(s, 0)
	}
	firstTree := buildTestTree(t, firstSizes, firstCols)

	innerLog0 := compositionSize - CircleToLineFoldStep
	innerLog1 := innerLog0 - FoldStep
	innerSizes0 := []uint32{innerLog0, innerLog0, innerLog0, innerLog0}
	innerSizes1 := []uint32{innerLog1, innerLog1, innerLog1, innerLog1}
	innerCols0 := make([][]core.M31, 4)
	innerCols1 := make([][]core.M31, 4)
	for c := 0; c < 4; c++ {
		innerCols0[c] = constantColumn(innerLog0, 0)
		innerCols1[c] = constantColumn(innerLog1, 0)
	}
	innerTree0 := buildTestTree(t, innerSizes0, innerCols0)
	innerTree1 := buildTestTree(t, innerSizes1, innerCols1)
	lastLayerPoly := make([]core.QM31, 1<<lastBits)

	// Transcript replay, in exact verifier order.
	ch := utils.NewChannel([32]byte{}, 0)
	scheme := &CommitmentSchemeVerifier{}
	for tr := TreePreprocessed; tr <= TreeInteraction; tr++ {
		scheme.Commit(treeRoots[tr], treeColumnLogSizes[tr], ch)
	}
	_ = ch.DrawSecureFelt()
	scheme.Commit(treeRoots[TreeComposition], treeColumnLogSizes[TreeComposition], ch)
	_ = ch.DrawSecurePoint()
	var flatSampled []core.QM31
	for _, tree := range sampled {
		for _, column := range tree {
			flatSampled = append(flatSampled, column...)
		}
	}
	ch.MixFelts(flatSampled)
	_ = ch.DrawSecureFelt()
	ch.MixDigest(firstTree.root())
	_ = ch.DrawSecureFelt()
	ch.MixDigest(innerTree0.root())
	_ = ch.DrawSecureFelt()
	ch.MixDigest(innerTree1.root())
	_ = ch.DrawSecureFelt()
	ch.MixFelts(lastLayerPoly)

	qComposition := ch.DrawQueries(compositionSize, nQueries)
	qTrace := shiftPositions(qComposition, compositionSize-traceSize)

	var nonce uint64
	for !ch.VerifyPowNonce(powBits, nonce) {
		nonce++
	}

	// Main tree decommitments.
	queriedValues := make([][]core.M31, NTrees)
	decommitments := make([]Decommitment, NTrees)
	for i, tr := range trees {
		positions := qTrace
		if i == TreeComposition {
			positions = qComposition
		}
		decommitments[i], queriedValues[i] = tr.decommit(map[uint32][]uint32{
			treeColumnLogSizes[i][0]: positions,
		})
	}

	// FRI decommitments: witness values fill the fold-block gaps; all zero.
	expComposition := expandBlocks(qComposition, 1<<CircleToLineFoldStep)
	expTrace := expandBlocks(qTrace, 1<<CircleToLineFoldStep)
	firstGaps := (len(expComposition) - len(qComposition)) + (len(expTrace) - len(qTrace))
	firstDec, _ := firstTree.decommit(map[uint32][]uint32{
		compositionSize: expComposition,
		traceSize:       expTrace,
	})

	pos0 := shiftPositions(qComposition, CircleToLineFoldStep)
	exp0 := expandBlocks(pos0, 1<<FoldStep)
	dec0, _ := innerTree0.decommit(map[uint32][]uint32{innerLog0: exp0})

	pos1 := shiftPositions(qComposition, CircleToLineFoldStep+FoldStep)
	exp1 := expandBlocks(pos1, 1<<FoldStep)
	dec1, _ := innerTree1.decommit(map[uint32][]uint32{innerLog1: exp1})

	compositionPoly := [4][]uint32{}
	for i := range compositionPoly {
		compositionPoly[i] = make([]uint32, 1<<(compositionSize-blowup))
	}

	proof := &Proof{
		Config: VerifierConfig{
			PowBits: powBits,
			Fri: FriConfig{
				LogBlowupFactor:         blowup,
				LogLastLayerDegreeBound: lastBits,
				NQueries:                nQueries,
			},
		},
		SampledValues:   sampled,
		QueriedValues:   queriedValues,
		Decommitments:   decommitments,
		ProofOfWork:     nonce,
		CompositionPoly: compositionPoly,
		Fri: FriProof{
			FirstLayer: FriLayerProof{
				FriWitness:   make([]core.QM31, firstGaps),
				Decommitment: firstDec,
				Commitment:   firstTree.root(),
			},
			InnerLayers: []FriLayerProof{
				{
					FriWitness:   make([]core.QM31, len(exp0)-len(pos0)),
					Decommitment: dec0,
					Commitment:   innerTree0.root(),
				},
				{
					FriWitness:   make([]core.QM31, len(exp1)-len(pos1)),
					Decommitment: dec1,
					Commitment:   innerTree1.root(),
				},
			},
			LastLayerPoly: lastLayerPoly,
		},
	}

	return &wideFibCase{
		proof:              proof,
		components:         []Component{NewWideFibonacciEval(logNRows, nCols, claimedSum)},
		treeRoots:          treeRoots,
		treeColumnLogSizes: treeColumnLogSizes,
	}
}

func (c *wideFibCase) verify(t *testing.T) (bool, error) {
	t.Helper()
	return Verify(c.proof, c.components, c.treeRoots, c.treeColumnLogSizes, [32]byte{}, 0, zerolog.Nop())
}

func TestVerifyWideFibonacci(t *testing.T) {
	t.Run("Accepts_Valid_Proof", func(t *testing.T) {
		c := buildWideFibCase(t)
		ok, err := c.verify(t)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("Verification_Is_Idempotent", func(t *testing.T) {
		c := buildWideFibCase(t)
		ok1, err1 := c.verify(t)
		ok2, err2 := c.verify(t)
		require.NoError(t, err1)
		require.NoError(t, err2)
		require.Equal(t, ok1, ok2)
	})

	t.Run("Rejects_Flipped_Pow_Nonce", func(t *testing.T) {
		for _, bit := range []uint{0, 17, 63} {
			c := buildWideFibCase(t)
			c.proof.ProofOfWork ^= 1 << bit
			ok, err := c.verify(t)
			require.NoError(t, err)
			require.False(t, ok)
		}
	})

	t.Run("Rejects_Tampered_Queried_Value", func(t *testing.T) {
		c := buildWideFibCase(t)
		c.proof.QueriedValues[TreeTrace][0] = c.proof.QueriedValues[TreeTrace][0].Add(1)
		ok, err := c.verify(t)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("Rejects_Forged_Interaction_Opening", func(t *testing.T) {
		// Matching the claimed sum to the forged opening satisfies the
		// constraint check; only the DEEP quotient against the committed
		// zero column can reject it.
		s := core.QM31FromUint32(9, 0, 0, 0)
		c := buildWideFibCaseWith(t, s, s)
		ok, err := c.verify(t)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("Rejects_Wrong_Claimed_Sum", func(t *testing.T) {
		c := buildWideFibCase(t)
		c.components = []Component{NewWideFibonacciEval(5, 10, core.QM31FromUint32(1, 0, 0, 0))}
		ok, err := c.verify(t)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("Malformed_Last_Layer_Poly_Errors", func(t *testing.T) {
		c := buildWideFibCase(t)
		c.proof.Fri.LastLayerPoly = c.proof.Fri.LastLayerPoly[:2]
		_, err := c.verify(t)
		require.Error(t, err)
	})

	t.Run("Malformed_Tree_Count_Errors", func(t *testing.T) {
		c := buildWideFibCase(t)
		_, err := Verify(c.proof, c.components, c.treeRoots[:3], c.treeColumnLogSizes, [32]byte{}, 0, zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("Initial_Digest_Binds_Transcript", func(t *testing.T) {
		c := buildWideFibCase(t)
		ok, err := Verify(c.proof, c.components, c.treeRoots, c.treeColumnLogSizes, [32]byte{42}, 0, zerolog.Nop())
		require.NoError(t, err)
		require.False(t, ok)
	})
}
