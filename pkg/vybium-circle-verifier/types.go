package vybiumcircleverifier

import (
	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/protocols"
	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/utils"
)

// M31 represents an element of the Mersenne-31 base field
type M31 = core.M31

// QM31 represents an element of the degree-4 secure field extension
type QM31 = core.QM31

// SecurePoint represents a circle point over the secure field
type SecurePoint = core.SecurePoint

// Channel represents the Keccak Fiat-Shamir transcript
type Channel = utils.Channel

// Proof represents a parsed Circle STARK proof
type Proof = protocols.Proof

// FriProof represents the layered low-degree-test proof
type FriProof = protocols.FriProof

// FriLayerProof represents the decommitment data of one FRI layer
type FriLayerProof = protocols.FriLayerProof

// FriConfig carries the FRI protocol parameters
type FriConfig = protocols.FriConfig

// VerifierConfig carries all proof parameters the verifier needs
type VerifierConfig = protocols.VerifierConfig

// Decommitment represents the witness data of one batched Merkle proof
type Decommitment = protocols.Decommitment

// Component represents one AIR component of the proved computation
type Component = protocols.Component

// ComponentInfo names the mask a component's constraints read
type ComponentInfo = protocols.ComponentInfo

// QM31FromUint32 creates a secure-field element from four raw uint32 limbs,
// reducing each
func QM31FromUint32(a, b, c, d uint32) QM31 {
	return core.QM31FromUint32(a, b, c, d)
}

// NewChannel creates a channel resuming from an existing transcript state
func NewChannel(initialDigest [32]byte, initialNDraws uint32) *Channel {
	return utils.NewChannel(initialDigest, initialNDraws)
}

// NewWideFibonacciEval creates the wide Fibonacci AIR component
func NewWideFibonacciEval(logNRows uint32, nColumns int, claimedSum QM31) Component {
	return protocols.NewWideFibonacciEval(logNRows, nColumns, claimedSum)
}

// NewFibonacciEval creates the single-column Fibonacci AIR component
func NewFibonacciEval(logNRows uint32) Component {
	return protocols.NewFibonacciEval(logNRows)
}
