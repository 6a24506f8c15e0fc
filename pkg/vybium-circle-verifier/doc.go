// Package vybiumcircleverifier provides a Circle STARK proof verifier over
// the Mersenne-31 field tower.
//
// The verifier checks FRI-based STARK proofs produced over the circle curve
// x^2 + y^2 = 1 on M31 and its degree-4 extension QM31, without
// re-executing the proved computation.
//
// # Features
//
// - M31/CM31/QM31 field tower with bit-exact Mersenne fold reduction
// - Keccak-256 Fiat-Shamir transcript channel
// - Batched mixed-size Merkle decommitment verification
// - FRI low-degree test with circle-to-line first-layer fold
// - AIR constraint evaluation and composition polynomial check
// - Proof-of-work nonce verification
//
// # Quick Start
//
// Verifying a parsed proof:
//
//	components := []vybiumcircleverifier.Component{
//		vybiumcircleverifier.NewWideFibonacciEval(logNRows, nColumns, claimedSum),
//	}
//	ok, err := vybiumcircleverifier.Verify(proof, components, treeRoots,
//		treeColumnLogSizes, initialDigest, initialNDraws)
//	if err != nil {
//		// malformed input, never a soundness verdict
//		log.Fatal(err)
//	}
//	if !ok {
//		// well-formed but unsound proof
//	}
//
// A nil error with ok == false is the expected outcome for adversarial
// input; errors are reserved for malformed proofs and caller mistakes.
package vybiumcircleverifier
