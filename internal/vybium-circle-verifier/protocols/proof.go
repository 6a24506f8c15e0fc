package protocols

import (
	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
)

// Tree indexes in commitment order.
const (
	TreePreprocessed = 0
	TreeTrace        = 1
	TreeInteraction  = 2
	TreeComposition  = 3

	// NTrees is the fixed number of commitment trees.
	NTrees = 4
)

// FriConfig carries the FRI protocol parameters.
type FriConfig struct {
	LogBlowupFactor         uint32
	LogLastLayerDegreeBound uint32
	NQueries                int
}

// VerifierConfig carries all proof parameters the verifier needs.
type VerifierConfig struct {
	PowBits uint32
	Fri     FriConfig
}

// FriLayerProof is the decommitment data of one FRI layer: sibling
// evaluations not derivable from the fold, the Merkle hash witness, and the
// layer commitment.
type FriLayerProof struct {
	FriWitness   []core.QM31
	Decommitment Decommitment
	Commitment   [32]byte
}

// FriProof is the layered low-degree-test proof: the first (circle) layer,
// the inner line layers, and the last layer polynomial in the clear.
type FriProof struct {
	FirstLayer    FriLayerProof
	InnerLayers   []FriLayerProof
	LastLayerPoly []core.QM31
}

// Proof is a parsed Circle STARK proof. Sampled values are the prover's
// claimed out-of-domain openings per tree, column and mask item; queried
// values are the in-domain leaf openings backing the Merkle decommitments,
// flattened per tree in decommitment traversal order.
type Proof struct {
	Config          VerifierConfig
	SampledValues   [][][]core.QM31
	QueriedValues   [][]core.M31
	Decommitments   []Decommitment
	ProofOfWork     uint64
	CompositionPoly [4][]uint32
	Fri             FriProof
}
