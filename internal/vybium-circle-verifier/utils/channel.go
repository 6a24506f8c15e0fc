package utils

import (
	"encoding/binary"
	"math/bits"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-circle-verifier/internal/vybium-circle-verifier/core"
)

// Channel is the Keccak Fiat-Shamir transcript. State is the running digest
// plus a draw counter; every verifier randomness is derived from it.
//
// Calls must occur in exact protocol order: commit roots, draw composition
// coefficient, commit composition tree, draw OODS point, mix sampled values,
// draw FRI coefficient, FRI layer commits, sample queries, mix PoW nonce.
// Reordering silently produces an incompatible transcript.
type Channel struct {
	digest [32]byte
	nDraws uint32
}

// NewChannel creates a channel resuming from an existing transcript state.
// A digest that already absorbed a public-input binding may be passed in.
func NewChannel(initialDigest [32]byte, initialNDraws uint32) *Channel {
	return &Channel{digest: initialDigest, nDraws: initialNDraws}
}

// Digest returns the current transcript digest.
func (c *Channel) Digest() [32]byte {
	return c.digest
}

// NDraws returns the number of felts drawn so far.
func (c *Channel) NDraws() uint32 {
	return c.nDraws
}

// Keccak256 hashes the concatenation of parts with legacy Keccak-256, the
// flavour shared by the transcript and the Merkle compression.
func Keccak256(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// MixFelts absorbs secure-field elements into the digest. Each element is
// serialized as four big-endian uint32 limbs. The draw counter is unchanged.
func (c *Channel) MixFelts(felts []core.QM31) {
	buf := make([]byte, 0, 16*len(felts))
	for _, f := range felts {
		for _, limb := range f.Limbs() {
			buf = binary.BigEndian.AppendUint32(buf, uint32(limb))
		}
	}
	c.digest = Keccak256(c.digest[:], buf)
}

// MixU64 absorbs one integer as eight big-endian bytes.
func (c *Channel) MixU64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	c.digest = Keccak256(c.digest[:], buf[:])
}

// MixDigest absorbs a commitment root.
func (c *Channel) MixDigest(root [32]byte) {
	c.digest = Keccak256(c.digest[:], root[:])
}

// drawLimbs derives four base-field limbs from Keccak(digest || nDraws) and
// increments the draw counter.
func (c *Channel) drawLimbs() [4]core.M31 {
	var counter [4]byte
	binary.BigEndian.PutUint32(counter[:], c.nDraws)
	h := Keccak256(c.digest[:], counter[:])
	c.nDraws++
	var limbs [4]core.M31
	for i := 0; i < 4; i++ {
		v := binary.BigEndian.Uint32(h[4*i : 4*i+4])
		limbs[i] = core.M31(v % core.P)
	}
	return limbs
}

// DrawSecureFelt derives one secure-field element from the transcript.
func (c *Channel) DrawSecureFelt() core.QM31 {
	limbs := c.drawLimbs()
	return core.NewQM31(limbs[0], limbs[1], limbs[2], limbs[3])
}

// DrawSecurePoint derives a random circle point via the rational
// parametrization, redrawing on the measure-zero degenerate parameter.
func (c *Channel) DrawSecurePoint() core.SecurePoint {
	for {
		t := c.DrawSecureFelt()
		if p, ok := core.SecurePointFromT(t); ok {
			return p
		}
	}
}

// DrawQueries derives n pseudorandom query positions in [0, 2^logSize),
// returned ascending and deduplicated.
func (c *Channel) DrawQueries(logSize uint32, n int) []uint32 {
	mask := uint32(1<<logSize) - 1
	positions := make([]uint32, 0, n+4)
	for len(positions) < n {
		for _, limb := range c.drawLimbs() {
			positions = append(positions, uint32(limb)&mask)
		}
	}
	positions = positions[:n]
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	deduped := positions[:0]
	for i, p := range positions {
		if i == 0 || p != deduped[len(deduped)-1] {
			deduped = append(deduped, p)
		}
	}
	return deduped
}

// VerifyPowNonce checks that Keccak(digest || nonce) has at least the
// required number of leading zero bits. The check is pure: the caller must
// mix the accepted nonce explicitly afterward.
func (c *Channel) VerifyPowNonce(powBits uint32, nonce uint64) bool {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	h := Keccak256(c.digest[:], buf[:])
	var leading uint32
	for _, b := range h {
		if b == 0 {
			leading += 8
			continue
		}
		leading += uint32(bits.LeadingZeros8(b))
		break
	}
	return leading >= powBits
}
