package protocols

import (
	"testing"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
)

// testTree is an in-test batched Merkle tree builder mirroring the verifier
// layout: columns of log size L attach their values to the nodes of layer L,
// node hash = Keccak(left || right || values), deepest layer values only.
type testTree struct {
	columnLogSizes []uint32
	columns        [][]core.M31
	maxLog         uint32
	layers         [][][32]byte
}

func buildTestTree(t *testing.T, columnLogSizes []uint32, columns [][]core.M31) *testTree {
	t.Helper()
	if len(columnLogSizes) != len(columns) {
		t.Fatalf("test tree: %d sizes for %d columns", len(columnLogSizes), len(columns))
	}
	var maxLog uint32
	for c, s := range columnLogSizes {
		if len(columns[c]) != 1<<s {
			t.Fatalf("test tree: column %d has %d values, want %d", c, len(columns[c]), 1<<s)
		}
		if s > maxLog {
			maxLog = s
		}
	}
	tree := &testTree{columnLogSizes: columnLogSizes, columns: columns, maxLog: maxLog}
	tree.layers = make([][][32]byte, maxLog+1)
	var prev [][32]byte
	for layer := maxLog; ; layer-- {
		nodes := make([][32]byte, 1<<layer)
		for i := range nodes {
			var children []byte
			if layer < maxLog {
				children = append(children, prev[2*i][:]...)
				children = append(children, prev[2*i+1][:]...)
			}
			nodes[i] = hashNode(children, tree.valuesAt(layer, uint32(i)))
		}
		tree.layers[layer] = nodes
		prev = nodes
		if layer == 0 {
			break
		}
	}
	return tree
}

func (tr *testTree) root() [32]byte {
	return tr.layers[0][0]
}

// valuesAt collects the column values attached to node i of the given layer,
// in column declaration order.
func (tr *testTree) valuesAt(layer, i uint32) []core.M31 {
	var values []core.M31
	for c, s := range tr.columnLogSizes {
		if s == layer {
			values = append(values, tr.columns[c][i])
		}
	}
	return values
}

// decommit walks the tree exactly like the verifier does and collects the
// hash witness, column witness and flat queried values it will consume.
func (tr *testTree) decommit(queries map[uint32][]uint32) (Decommitment, []core.M31) {
	var dec Decommitment
	var queried []core.M31
	var prev []uint32
	for layer := tr.maxLog; ; layer-- {
		direct := queries[layer]
		var curr []uint32
		pi, di := 0, 0
		for pi < len(prev) || di < len(direct) {
			idx := ^uint32(0)
			if pi < len(prev) {
				idx = prev[pi] >> 1
			}
			if di < len(direct) && direct[di] < idx {
				idx = direct[di]
			}
			if layer < tr.maxLog {
				if pi < len(prev) && prev[pi] == 2*idx {
					pi++
				} else {
					dec.HashWitness = append(dec.HashWitness, tr.layers[layer+1][2*idx])
				}
				if pi < len(prev) && prev[pi] == 2*idx+1 {
					pi++
				} else {
					dec.HashWitness = append(dec.HashWitness, tr.layers[layer+1][2*idx+1])
				}
			}
			values := tr.valuesAt(layer, idx)
			if len(values) > 0 {
				if di < len(direct) && direct[di] == idx {
					queried = append(queried, values...)
				} else {
					dec.ColumnWitness = append(dec.ColumnWitness, values...)
				}
			}
			if di < len(direct) && direct[di] == idx {
				di++
			}
			curr = append(curr, idx)
		}
		prev = curr
		if layer == 0 {
			break
		}
	}
	return dec, queried
}

// expandBlocks returns all positions of every fold block touched by the
// queries, ascending.
func expandBlocks(positions []uint32, block uint32) []uint32 {
	var expanded []uint32
	for i := 0; i < len(positions); {
		base := positions[i] &^ (block - 1)
		for j := uint32(0); j < block; j++ {
			expanded = append(expanded, base+j)
		}
		for i < len(positions) && positions[i] < base+block {
			i++
		}
	}
	return expanded
}

// shiftPositions folds query positions down by the given number of steps,
// deduplicating.
func shiftPositions(positions []uint32, shift uint32) []uint32 {
	var out []uint32
	for _, p := range positions {
		q := p >> shift
		if len(out) == 0 || q != out[len(out)-1] {
			out = append(out, q)
		}
	}
	return out
}

func constantColumn(logSize uint32, v core.M31) []core.M31 {
	col := make([]core.M31, 1<<logSize)
	for i := range col {
		col[i] = v
	}
	return col
}

// limbColumns splits a secure evaluation column into its four M31
// coordinate columns.
func limbColumns(evals []core.QM31) [][]core.M31 {
	cols := make([][]core.M31, 4)
	for i := range cols {
		cols[i] = make([]core.M31, len(evals))
	}
	for j, v := range evals {
		limbs := v.Limbs()
		for i := range cols {
			cols[i][j] = limbs[i]
		}
	}
	return cols
}
