package vybiumcircleverifier

import (
	"github.com/rs/zerolog"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/protocols"
	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/utils"
)

// Option configures the verification call
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger attaches a logger for per-phase diagnostics. Diagnostics never
// change the accept/reject verdict.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Verify runs the full verification pipeline against a parsed proof.
//
// treeRoots and treeColumnLogSizes describe the four commitment trees in
// order [preprocessed, trace, interaction, composition]. initialDigest and
// initialNDraws let the transcript resume from a channel that already
// absorbed a public-input binding.
//
// The verdict is the boolean: ok == false with a nil error means the proof
// is well formed but unsound. A non-nil error is a *VerifierError and means
// the input was malformed; no verdict was reached.
func Verify(proof *Proof, components []Component, treeRoots [][32]byte, treeColumnLogSizes [][]uint32, initialDigest [32]byte, initialNDraws uint32, opts ...Option) (bool, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if proof == nil {
		return false, newError(ErrMalformedInput, "proof is nil", nil)
	}
	if !utils.IsPowerOfTwo(len(proof.Fri.LastLayerPoly)) {
		return false, newError(ErrMalformedInput, "last layer polynomial length is not a power of two", nil)
	}
	if proof.Config.Fri.NQueries <= 0 {
		return false, newError(ErrInvalidConfig, "query count must be positive", nil)
	}
	ok, err := protocols.Verify(proof, components, treeRoots, treeColumnLogSizes, initialDigest, initialNDraws, o.logger)
	if err != nil {
		return false, newError(causeCode(err), "verification aborted", err)
	}
	return ok, nil
}
