package protocols

import (
	"fmt"
	"sort"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/utils"
)

// TreeEntry records one committed tree: its root and the log2 domain size of
// each committed column.
type TreeEntry struct {
	Root           [32]byte
	ColumnLogSizes []uint32
}

// CirclePolyDegreeBound is the log2 degree bound of one FRI column.
type CirclePolyDegreeBound struct {
	LogDegreeBound uint32
}

// CommitmentSchemeVerifier replays the prover's tree commitments into the
// channel and tracks them in commitment order
// [preprocessed, trace, interaction, composition].
type CommitmentSchemeVerifier struct {
	Trees []TreeEntry
}

// Commit mixes the column sizes and the root into the channel and records
// the tree.
func (c *CommitmentSchemeVerifier) Commit(root [32]byte, columnLogSizes []uint32, ch *utils.Channel) {
	for _, logSize := range columnLogSizes {
		ch.MixU64(uint64(logSize))
	}
	ch.MixDigest(root)
	c.Trees = append(c.Trees, TreeEntry{Root: root, ColumnLogSizes: columnLogSizes})
}

// CalculateBounds flattens the column log sizes of all committed trees,
// deduplicates them and subtracts the blowup, yielding one degree bound per
// FRI layer, largest first to match the fold cascade.
func (c *CommitmentSchemeVerifier) CalculateBounds(logBlowupFactor uint32) ([]CirclePolyDegreeBound, error) {
	seen := make(map[uint32]bool)
	var sizes []uint32
	for _, tree := range c.Trees {
		for _, logSize := range tree.ColumnLogSizes {
			if logSize < logBlowupFactor {
				return nil, fmt.Errorf("column log size %d smaller than blowup %d", logSize, logBlowupFactor)
			}
			if !seen[logSize] {
				seen[logSize] = true
				sizes = append(sizes, logSize)
			}
		}
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no committed columns")
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] > sizes[j] })
	bounds := make([]CirclePolyDegreeBound, len(sizes))
	for i, logSize := range sizes {
		bounds[i] = CirclePolyDegreeBound{LogDegreeBound: logSize - logBlowupFactor}
	}
	return bounds, nil
}
