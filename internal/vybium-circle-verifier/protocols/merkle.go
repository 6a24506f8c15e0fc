package protocols

import (
	"encoding/binary"
	"fmt"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/utils"
)

// Decommitment is the witness data of one batched Merkle proof: sibling
// hashes not otherwise derivable, plus column values at positions the
// verifier reaches but did not query directly. Both buffers are consumed
// strictly in order via an advancing cursor.
type Decommitment struct {
	HashWitness   [][32]byte
	ColumnWitness []core.M31
}

// MerkleVerifier checks batched decommitments against a committed root.
// Columns of different sizes share one tree: a column of log size L attaches
// its values to the nodes of layer L, and the node hash compresses the two
// child hashes together with those values. The layer without deeper children
// hashes values only.
type MerkleVerifier struct {
	Root           [32]byte
	ColumnLogSizes []uint32
}

type frontierNode struct {
	index uint32
	hash  [32]byte
}

// witnessReader pops witness entries in order; exhaustion is a soundness
// failure, not an error.
type witnessReader struct {
	hashes  [][32]byte
	columns []core.M31
	hi, ci  int
}

func (w *witnessReader) nextHash() ([32]byte, bool) {
	if w.hi >= len(w.hashes) {
		return [32]byte{}, false
	}
	h := w.hashes[w.hi]
	w.hi++
	return h, true
}

func (w *witnessReader) nextColumns(n int) ([]core.M31, bool) {
	if w.ci+n > len(w.columns) {
		return nil, false
	}
	v := w.columns[w.ci : w.ci+n]
	w.ci += n
	return v, true
}

func (w *witnessReader) exhausted() bool {
	return w.hi == len(w.hashes) && w.ci == len(w.columns)
}

// hashNode is the two-to-one compression: Keccak(left || right || values),
// with values appended as big-endian 4-byte words. Nodes at the deepest
// layer have no children and hash their values only.
func hashNode(children []byte, values []core.M31) [32]byte {
	buf := make([]byte, len(children), len(children)+4*len(values))
	copy(buf, children)
	for _, v := range values {
		buf = binary.BigEndian.AppendUint32(buf, uint32(v))
	}
	return utils.Keccak256(buf)
}

// Verify recomputes the Merkle paths for the queried positions bottom-up and
// compares the result against the root. Query positions per log-size bucket
// must be ascending within [0, 2^logSize); violating that is a malformed
// input error. Any path mismatch or witness exhaustion returns false.
func (v *MerkleVerifier) Verify(queries map[uint32][]uint32, queriedValues []core.M31, dec Decommitment) (bool, error) {
	if len(v.ColumnLogSizes) == 0 {
		return false, fmt.Errorf("merkle verifier has no columns")
	}
	var maxLog uint32
	colsAt := make(map[uint32]int)
	for _, logSize := range v.ColumnLogSizes {
		colsAt[logSize]++
		if logSize > maxLog {
			maxLog = logSize
		}
	}
	for logSize, positions := range queries {
		for i, p := range positions {
			if p >= 1<<logSize {
				return false, fmt.Errorf("query position %d out of range for log size %d", p, logSize)
			}
			if i > 0 && p <= positions[i-1] {
				return false, fmt.Errorf("query positions for log size %d not ascending", logSize)
			}
		}
	}

	w := &witnessReader{hashes: dec.HashWitness, columns: dec.ColumnWitness}
	valueCursor := 0
	var prev []frontierNode

	for layer := maxLog; ; layer-- {
		nCols := colsAt[layer]
		direct := queries[layer]
		var curr []frontierNode
		pi, di := 0, 0
		for pi < len(prev) || di < len(direct) {
			idx := ^uint32(0)
			if pi < len(prev) {
				idx = prev[pi].index >> 1
			}
			if di < len(direct) && direct[di] < idx {
				idx = direct[di]
			}

			var children []byte
			if layer < maxLog {
				var left, right [32]byte
				if pi < len(prev) && prev[pi].index == 2*idx {
					left = prev[pi].hash
					pi++
				} else {
					var ok bool
					if left, ok = w.nextHash(); !ok {
						return false, nil
					}
				}
				if pi < len(prev) && prev[pi].index == 2*idx+1 {
					right = prev[pi].hash
					pi++
				} else {
					var ok bool
					if right, ok = w.nextHash(); !ok {
						return false, nil
					}
				}
				children = append(left[:], right[:]...)
			}

			var values []core.M31
			if nCols > 0 {
				if di < len(direct) && direct[di] == idx {
					if valueCursor+nCols > len(queriedValues) {
						return false, nil
					}
					values = queriedValues[valueCursor : valueCursor+nCols]
					valueCursor += nCols
				} else {
					var ok bool
					if values, ok = w.nextColumns(nCols); !ok {
						return false, nil
					}
				}
			}
			if di < len(direct) && direct[di] == idx {
				di++
			}

			curr = append(curr, frontierNode{index: idx, hash: hashNode(children, values)})
		}
		prev = curr
		if layer == 0 {
			break
		}
	}

	if len(prev) != 1 || prev[0].index != 0 {
		return false, fmt.Errorf("no queried positions to verify")
	}
	// Leftover witness or value data means the proof shape lies about the
	// query set; treat it as a mismatch.
	if !w.exhausted() || valueCursor != len(queriedValues) {
		return false, nil
	}
	return prev[0].hash == v.Root, nil
}
