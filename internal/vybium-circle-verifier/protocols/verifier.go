package protocols

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/utils"
)

// Verify runs the full verification pipeline against a parsed proof:
// transcript replay of the tree commitments, the constraint check at the
// out-of-domain sample point, proof of work, the batched Merkle
// decommitments of all trees, the DEEP quotient answers and the FRI
// low-degree test.
//
// A nil error with ok == false means the proof is well formed but unsound.
// An error means the proof (or the verifier input) is malformed and the
// transcript never reached a verdict.
func Verify(proof *Proof, components []Component, treeRoots [][32]byte, treeColumnLogSizes [][]uint32, initialDigest [32]byte, initialNDraws uint32, logger zerolog.Logger) (bool, error) {
	if len(components) == 0 {
		return false, fmt.Errorf("verify: no components")
	}
	if len(treeRoots) != NTrees || len(treeColumnLogSizes) != NTrees {
		return false, fmt.Errorf("verify: want %d tree roots and column size lists, have %d and %d", NTrees, len(treeRoots), len(treeColumnLogSizes))
	}
	if len(proof.SampledValues) != NTrees || len(proof.QueriedValues) != NTrees || len(proof.Decommitments) != NTrees {
		return false, fmt.Errorf("verify: proof does not cover %d trees", NTrees)
	}
	blowup := proof.Config.Fri.LogBlowupFactor
	if blowup == 0 {
		return false, fmt.Errorf("verify: log blowup factor must be positive")
	}

	logSize := components[0].LogSize()
	var maxBound uint32
	for _, comp := range components {
		if comp.LogSize() != logSize {
			return false, fmt.Errorf("verify: components disagree on trace log size: %d vs %d", comp.LogSize(), logSize)
		}
		if b := comp.MaxConstraintLogDegreeBound(); b > maxBound {
			maxBound = b
		}
	}
	compositionSize := maxBound + blowup
	if len(treeColumnLogSizes[TreeComposition]) != 4 {
		return false, fmt.Errorf("verify: composition tree must have 4 columns, has %d", len(treeColumnLogSizes[TreeComposition]))
	}
	for _, s := range treeColumnLogSizes[TreeComposition] {
		if s != compositionSize {
			return false, fmt.Errorf("verify: composition column log size %d, want %d", s, compositionSize)
		}
	}
	for t := 0; t < NTrees; t++ {
		if len(proof.SampledValues[t]) != len(treeColumnLogSizes[t]) {
			return false, fmt.Errorf("verify: tree %d has %d sampled columns, committed %d", t, len(proof.SampledValues[t]), len(treeColumnLogSizes[t]))
		}
	}

	// Commitment phase: preprocessed, trace and interaction roots, then the
	// composition coefficient, then the composition root.
	ch := utils.NewChannel(initialDigest, initialNDraws)
	scheme := &CommitmentSchemeVerifier{}
	for t := TreePreprocessed; t <= TreeInteraction; t++ {
		scheme.Commit(treeRoots[t], treeColumnLogSizes[t], ch)
	}
	randomCoeff := ch.DrawSecureFelt()
	scheme.Commit(treeRoots[TreeComposition], treeColumnLogSizes[TreeComposition], ch)
	oodsPoint := ch.DrawSecurePoint()
	logger.Debug().
		Uint32("log_size", logSize).
		Uint32("composition_log_size", compositionSize).
		Msg("commitments replayed")

	// Constraint check: the committed composition polynomial must equal the
	// random linear combination of the constraint numerators divided by the
	// trace-domain vanishing polynomial, all evaluated at the sample point.
	denomInv, err := core.CosetVanishing(logSize, oodsPoint).Inverse()
	if err != nil {
		return false, fmt.Errorf("verify: sample point lies on the trace domain: %w", err)
	}
	for i := range proof.CompositionPoly {
		if len(proof.CompositionPoly[i]) != 1<<maxBound {
			return false, fmt.Errorf("verify: composition coordinate %d has %d coefficients, want %d", i, len(proof.CompositionPoly[i]), 1<<maxBound)
		}
	}
	compositionEval, err := core.SecureCirclePolyEval(proof.CompositionPoly, oodsPoint)
	if err != nil {
		return false, fmt.Errorf("verify: composition polynomial: %w", err)
	}

	acc := NewPointEvaluationAccumulator(randomCoeff)
	// Every committed column is bound to its mask sample points through the
	// DEEP quotients below; claiming records which points those are.
	samplePoints := make([][][]core.SecurePoint, NTrees)
	for t := 0; t < NTrees; t++ {
		samplePoints[t] = make([][]core.SecurePoint, len(treeColumnLogSizes[t]))
	}
	var cursor [NTrees]int
	for _, comp := range components {
		info := comp.Info()
		maskPoints := MaskPoints(info, oodsPoint, logSize)
		compSampled := make([][][]core.QM31, len(info.MaskOffsets))
		for t, tree := range info.MaskOffsets {
			n := len(tree)
			if n == 0 {
				continue
			}
			if t == TreePreprocessed {
				if len(info.PreprocessedColumns) != n {
					return false, fmt.Errorf("verify: component names %d preprocessed offsets but %d columns", n, len(info.PreprocessedColumns))
				}
				cols := make([][]core.QM31, n)
				for k, idx := range info.PreprocessedColumns {
					if idx < 0 || idx >= len(proof.SampledValues[t]) {
						return false, fmt.Errorf("verify: preprocessed column %d out of range", idx)
					}
					cols[k] = proof.SampledValues[t][idx]
					samplePoints[t][idx] = maskPoints[t][k]
				}
				compSampled[t] = cols
			} else {
				if cursor[t]+n > len(proof.SampledValues[t]) {
					return false, fmt.Errorf("verify: tree %d has too few sampled columns for the components", t)
				}
				compSampled[t] = proof.SampledValues[t][cursor[t] : cursor[t]+n]
				for j := 0; j < n; j++ {
					samplePoints[t][cursor[t]+j] = maskPoints[t][j]
				}
				cursor[t] += n
			}
		}
		if err := validateMaskShape(info, compSampled); err != nil {
			return false, fmt.Errorf("verify: component mask: %w", err)
		}
		if err := comp.EvaluateConstraintQuotientsAtPoint(oodsPoint, compSampled, denomInv, acc); err != nil {
			return false, fmt.Errorf("verify: constraint evaluation: %w", err)
		}
	}
	for _, t := range []int{TreeTrace, TreeInteraction} {
		if cursor[t] != len(proof.SampledValues[t]) {
			return false, fmt.Errorf("verify: tree %d has %d sampled columns no component claims", t, len(proof.SampledValues[t])-cursor[t])
		}
	}
	for c, pts := range samplePoints[TreePreprocessed] {
		if len(pts) == 0 {
			return false, fmt.Errorf("verify: preprocessed column %d is not claimed by any component", c)
		}
	}
	if !compositionEval.Equals(acc.Accumulation.Mul(denomInv)) {
		logger.Debug().Msg("composition polynomial mismatch at sample point")
		return false, nil
	}
	// The coordinate openings of the composition tree feed the DEEP answers;
	// they must recompose to the same evaluation.
	var compositionSamples [4]core.QM31
	for c := range compositionSamples {
		if len(proof.SampledValues[TreeComposition][c]) != 1 {
			return false, fmt.Errorf("verify: composition column %d must have exactly one sample", c)
		}
		compositionSamples[c] = proof.SampledValues[TreeComposition][c][0]
	}
	if !core.RecomposeSecure(compositionSamples).Equals(compositionEval) {
		logger.Debug().Msg("composition samples disagree with committed polynomial")
		return false, nil
	}
	for c := range samplePoints[TreeComposition] {
		samplePoints[TreeComposition][c] = []core.SecurePoint{oodsPoint}
	}
	logger.Debug().Msg("constraint check passed")

	var flatSampled []core.QM31
	for _, tree := range proof.SampledValues {
		for _, column := range tree {
			flatSampled = append(flatSampled, column...)
		}
	}
	ch.MixFelts(flatSampled)
	friCoeff := ch.DrawSecureFelt()

	bounds, err := scheme.CalculateBounds(blowup)
	if err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}
	fri, err := NewFriVerifier(ch, proof.Config.Fri, &proof.Fri, bounds)
	if err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}
	queries, err := fri.SampleQueryPositions(ch)
	if err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}

	if !ch.VerifyPowNonce(proof.Config.PowBits, proof.ProofOfWork) {
		logger.Debug().Uint32("pow_bits", proof.Config.PowBits).Msg("proof of work rejected")
		return false, nil
	}
	ch.MixU64(proof.ProofOfWork)

	// In-domain openings of all four trees.
	queriedByColumn := make([][][]core.M31, NTrees)
	for t := 0; t < NTrees; t++ {
		treeQueries := make(map[uint32][]uint32)
		for _, s := range distinctSizesDesc(treeColumnLogSizes[t]) {
			positions, ok := queries[s]
			if !ok {
				return false, fmt.Errorf("verify: tree %d column log size %d has no query positions", t, s)
			}
			treeQueries[s] = positions
		}
		mv := &MerkleVerifier{Root: treeRoots[t], ColumnLogSizes: treeColumnLogSizes[t]}
		ok, err := mv.Verify(treeQueries, proof.QueriedValues[t], proof.Decommitments[t])
		if err != nil {
			return false, fmt.Errorf("verify: tree %d: %w", t, err)
		}
		if !ok {
			logger.Debug().Int("tree", t).Msg("merkle decommitment rejected")
			return false, nil
		}
		queriedByColumn[t], err = parseQueriedValues(treeColumnLogSizes[t], proof.QueriedValues[t], queries)
		if err != nil {
			return false, fmt.Errorf("verify: tree %d: %w", t, err)
		}
	}
	logger.Debug().Msg("merkle decommitments verified")

	// DEEP quotient answers per first-layer log size, columns in tree then
	// column order.
	var allSizes []uint32
	for t := 0; t < NTrees; t++ {
		allSizes = append(allSizes, treeColumnLogSizes[t]...)
	}
	answers := make(map[uint32][]core.QM31)
	for _, size := range distinctSizesDesc(allSizes) {
		var sampledCols [][]core.QM31
		var pointCols [][]core.SecurePoint
		var queriedCols [][]core.M31
		for t := 0; t < NTrees; t++ {
			for c, s := range treeColumnLogSizes[t] {
				if s != size {
					continue
				}
				sampledCols = append(sampledCols, proof.SampledValues[t][c])
				pointCols = append(pointCols, samplePoints[t][c])
				queriedCols = append(queriedCols, queriedByColumn[t][c])
			}
		}
		a, err := FriAnswers(size, queries[size], friCoeff, pointCols, sampledCols, queriedCols)
		if err != nil {
			return false, fmt.Errorf("verify: %w", err)
		}
		answers[size] = a
	}

	ok, err := fri.Decommit(answers)
	if err != nil {
		return false, fmt.Errorf("verify: fri: %w", err)
	}
	if !ok {
		logger.Debug().Msg("fri decommitment rejected")
		return false, nil
	}
	logger.Debug().Msg("proof accepted")
	return true, nil
}

// distinctSizesDesc returns the distinct log sizes, largest first.
func distinctSizesDesc(sizes []uint32) []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	for _, s := range sizes {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// parseQueriedValues splits a tree's flat queried values into per-column
// slices aligned with the query positions of each column's log size. The
// flat order mirrors the Merkle traversal: log sizes descending, positions
// ascending, columns in declaration order.
func parseQueriedValues(columnLogSizes []uint32, flat []core.M31, queries map[uint32][]uint32) ([][]core.M31, error) {
	perColumn := make([][]core.M31, len(columnLogSizes))
	cursor := 0
	for _, size := range distinctSizesDesc(columnLogSizes) {
		var cols []int
		for c, s := range columnLogSizes {
			if s == size {
				cols = append(cols, c)
			}
		}
		for range queries[size] {
			for _, c := range cols {
				if cursor >= len(flat) {
					return nil, fmt.Errorf("queried values truncated")
				}
				perColumn[c] = append(perColumn[c], flat[cursor])
				cursor++
			}
		}
	}
	if cursor != len(flat) {
		return nil, fmt.Errorf("queried values have %d leftover entries", len(flat)-cursor)
	}
	return perColumn, nil
}
