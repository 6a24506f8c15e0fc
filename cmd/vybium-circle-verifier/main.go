// Command vybium-circle-verifier verifies a Circle STARK proof from a JSON
// envelope. Exit code 0 means the proof was accepted, 1 rejected, 2 the
// input was malformed.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	vcv "github.com/vybium/vybium-circle-verifier/pkg/vybium-circle-verifier"
)

// proofEnvelope is the JSON wire format of a proof plus the verification
// parameters a prover ships alongside it.
type proofEnvelope struct {
	Config struct {
		PowBits                 uint32 `json:"pow_bits"`
		LogBlowupFactor         uint32 `json:"log_blowup_factor"`
		LogLastLayerDegreeBound uint32 `json:"log_last_layer_degree_bound"`
		NQueries                int    `json:"n_queries"`
	} `json:"config"`
	TreeRoots          []string        `json:"tree_roots"`
	TreeColumnLogSizes [][]uint32      `json:"tree_column_log_sizes"`
	SampledValues      [][][][4]uint32 `json:"sampled_values"`
	QueriedValues      [][]uint32      `json:"queried_values"`
	Decommitments      []decommitment  `json:"decommitments"`
	ProofOfWork        uint64          `json:"proof_of_work"`
	CompositionPoly    [4][]uint32     `json:"composition_poly"`
	Fri                struct {
		FirstLayer    friLayer    `json:"first_layer"`
		InnerLayers   []friLayer  `json:"inner_layers"`
		LastLayerPoly [][4]uint32 `json:"last_layer_poly"`
	} `json:"fri"`
	Component struct {
		Kind       string    `json:"kind"`
		LogNRows   uint32    `json:"log_n_rows"`
		NColumns   int       `json:"n_columns"`
		ClaimedSum [4]uint32 `json:"claimed_sum"`
	} `json:"component"`
	InitialDigest string `json:"initial_digest"`
	InitialNDraws uint32 `json:"initial_n_draws"`
}

type decommitment struct {
	HashWitness   []string `json:"hash_witness"`
	ColumnWitness []uint32 `json:"column_witness"`
}

type friLayer struct {
	FriWitness   [][4]uint32  `json:"fri_witness"`
	Decommitment decommitment `json:"decommitment"`
	Commitment   string       `json:"commitment"`
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	var verbose bool

	root := &cobra.Command{
		Use:          "vybium-circle-verifier <proof.json>",
		Short:        "Verify a Circle STARK proof",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logger = logger.Level(zerolog.DebugLevel)
			} else {
				logger = logger.Level(zerolog.InfoLevel)
			}
			ok, err := run(args[0], logger)
			if err != nil {
				logger.Error().Err(err).Msg("malformed input")
				os.Exit(2)
			}
			if !ok {
				logger.Warn().Msg("proof rejected")
				os.Exit(1)
			}
			logger.Info().Msg("proof accepted")
			return nil
		},
	}
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable per-phase diagnostics")

	if err := root.Execute(); err != nil {
		os.Exit(2)
	}
}

func run(path string, logger zerolog.Logger) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	var env proofEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("parse proof envelope: %w", err)
	}

	proof, roots, err := env.toProof()
	if err != nil {
		return false, err
	}
	component, err := env.toComponent()
	if err != nil {
		return false, err
	}
	initialDigest, err := parseDigest(env.InitialDigest)
	if err != nil {
		return false, fmt.Errorf("initial digest: %w", err)
	}

	return vcv.Verify(proof, []vcv.Component{component}, roots, env.TreeColumnLogSizes,
		initialDigest, env.InitialNDraws, vcv.WithLogger(logger))
}

func (env *proofEnvelope) toProof() (*vcv.Proof, [][32]byte, error) {
	roots := make([][32]byte, len(env.TreeRoots))
	for i, s := range env.TreeRoots {
		r, err := parseDigest(s)
		if err != nil {
			return nil, nil, fmt.Errorf("tree root %d: %w", i, err)
		}
		roots[i] = r
	}

	sampled := make([][][]vcv.QM31, len(env.SampledValues))
	for t, tree := range env.SampledValues {
		sampled[t] = make([][]vcv.QM31, len(tree))
		for c, column := range tree {
			sampled[t][c] = make([]vcv.QM31, len(column))
			for k, v := range column {
				sampled[t][c][k] = toQM31(v)
			}
		}
	}

	queried := make([][]vcv.M31, len(env.QueriedValues))
	for t, tree := range env.QueriedValues {
		queried[t] = make([]vcv.M31, len(tree))
		for i, v := range tree {
			queried[t][i] = vcv.M31(v)
		}
	}

	decs := make([]vcv.Decommitment, len(env.Decommitments))
	for t, d := range env.Decommitments {
		dec, err := d.toDecommitment()
		if err != nil {
			return nil, nil, fmt.Errorf("tree %d decommitment: %w", t, err)
		}
		decs[t] = dec
	}

	firstLayer, err := env.Fri.FirstLayer.toLayer()
	if err != nil {
		return nil, nil, fmt.Errorf("fri first layer: %w", err)
	}
	innerLayers := make([]vcv.FriLayerProof, len(env.Fri.InnerLayers))
	for i, l := range env.Fri.InnerLayers {
		layer, err := l.toLayer()
		if err != nil {
			return nil, nil, fmt.Errorf("fri inner layer %d: %w", i, err)
		}
		innerLayers[i] = layer
	}
	lastLayerPoly := make([]vcv.QM31, len(env.Fri.LastLayerPoly))
	for i, v := range env.Fri.LastLayerPoly {
		lastLayerPoly[i] = toQM31(v)
	}

	proof := &vcv.Proof{
		Config: vcv.VerifierConfig{
			PowBits: env.Config.PowBits,
			Fri: vcv.FriConfig{
				LogBlowupFactor:         env.Config.LogBlowupFactor,
				LogLastLayerDegreeBound: env.Config.LogLastLayerDegreeBound,
				NQueries:                env.Config.NQueries,
			},
		},
		SampledValues:   sampled,
		QueriedValues:   queried,
		Decommitments:   decs,
		ProofOfWork:     env.ProofOfWork,
		CompositionPoly: env.CompositionPoly,
		Fri: vcv.FriProof{
			FirstLayer:    firstLayer,
			InnerLayers:   innerLayers,
			LastLayerPoly: lastLayerPoly,
		},
	}
	return proof, roots, nil
}

func (env *proofEnvelope) toComponent() (vcv.Component, error) {
	claimed := toQM31(env.Component.ClaimedSum)
	switch env.Component.Kind {
	case "wide_fibonacci":
		return vcv.NewWideFibonacciEval(env.Component.LogNRows, env.Component.NColumns, claimed), nil
	case "fibonacci":
		return vcv.NewFibonacciEval(env.Component.LogNRows), nil
	default:
		return nil, fmt.Errorf("unknown component kind %q", env.Component.Kind)
	}
}

func (d decommitment) toDecommitment() (vcv.Decommitment, error) {
	out := vcv.Decommitment{}
	for i, s := range d.HashWitness {
		h, err := parseDigest(s)
		if err != nil {
			return vcv.Decommitment{}, fmt.Errorf("hash witness %d: %w", i, err)
		}
		out.HashWitness = append(out.HashWitness, h)
	}
	for _, v := range d.ColumnWitness {
		out.ColumnWitness = append(out.ColumnWitness, vcv.M31(v))
	}
	return out, nil
}

func (l friLayer) toLayer() (vcv.FriLayerProof, error) {
	dec, err := l.Decommitment.toDecommitment()
	if err != nil {
		return vcv.FriLayerProof{}, err
	}
	commitment, err := parseDigest(l.Commitment)
	if err != nil {
		return vcv.FriLayerProof{}, fmt.Errorf("commitment: %w", err)
	}
	witness := make([]vcv.QM31, len(l.FriWitness))
	for i, v := range l.FriWitness {
		witness[i] = toQM31(v)
	}
	return vcv.FriLayerProof{
		FriWitness:   witness,
		Decommitment: dec,
		Commitment:   commitment,
	}, nil
}

func toQM31(limbs [4]uint32) vcv.QM31 {
	return vcv.QM31FromUint32(limbs[0], limbs[1], limbs[2], limbs[3])
}

func parseDigest(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("digest has %d bytes, want 32", len(b))
	}
	copy(out[:], b)
	return out, nil
}
