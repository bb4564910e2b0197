// Package shachain derives the per-commitment revocation preimage chain:
// given a channel's master seed, it yields preimage[n] for n = 0, 1, ...
// deterministically, so a channel never needs to persist more than the
// seed itself to be able to reveal any past preimage on demand.
package shachain

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/fastsha256"
	"golang.org/x/crypto/hkdf"

	"github.com/lightningnetwork/lnlite/lnwire"
)

// SeedSize is the length in bytes of a channel's master seed.
const SeedSize = 32

// Producer derives preimage[n] and revocation_hash[n] for a single
// channel from its master seed. It carries no mutable state: every index
// is independently re-derivable, so Producer is safe for concurrent use
// and needs no persistence beyond the seed.
type Producer struct {
	seed [SeedSize]byte
}

// NewProducer returns a Producer rooted at seed.
func NewProducer(seed [SeedSize]byte) *Producer {
	return &Producer{seed: seed}
}

// Preimage derives preimage[index] by expanding the master seed with
// HKDF-SHA256, salted by the big-endian commitment index so distinct
// indices can never collide.
func (p *Producer) Preimage(index uint64) (lnwire.Sha256Hash, error) {
	var salt [8]byte
	binary.BigEndian.PutUint64(salt[:], index)

	info := []byte("lnlite-revocation-preimage")
	reader := hkdf.New(fastsha256.New, p.seed[:], salt[:], info)

	var preimage lnwire.Sha256Hash
	if _, err := io.ReadFull(reader, preimage[:]); err != nil {
		return lnwire.Sha256Hash{}, err
	}
	return preimage, nil
}

// RevocationHash derives revocation_hash[index] = SHA256(preimage[index]).
func (p *Producer) RevocationHash(index uint64) (lnwire.Sha256Hash, error) {
	preimage, err := p.Preimage(index)
	if err != nil {
		return lnwire.Sha256Hash{}, err
	}
	return hashOf(preimage), nil
}

func hashOf(preimage lnwire.Sha256Hash) lnwire.Sha256Hash {
	sum := fastsha256.Sum256(preimage[:])
	h, _ := lnwire.NewSha256Hash(sum[:])
	return h
}

// VerifyPreimage reports whether preimage hashes to want, the check
// required before a revealed preimage may be accepted as authorization
// to revoke the commitment it was withheld from.
func VerifyPreimage(preimage lnwire.Sha256Hash, want lnwire.Sha256Hash) bool {
	ok := hashOf(preimage) == want
	if !ok {
		shcnLog.Debugf("preimage %x does not hash to %x", preimage, want)
	}
	return ok
}
