package lnwire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
)

// MilliSatoshi is the native amount unit of the protocol: 1/1000th of a
// satoshi. Every balance, fee and HTLC amount on the wire is expressed in
// this unit.
type MilliSatoshi uint64

// Sha256Hash is the fixed-layout, wire form of a 32-byte SHA-256 digest. The
// protocol transports it as four big-endian 64-bit words rather than a raw
// byte string so that it lines up with the generated-codec layout described
// in the protocol's external interfaces.
type Sha256Hash [32]byte

// NewSha256Hash copies b into a Sha256Hash. b must be exactly 32 bytes.
func NewSha256Hash(b []byte) (Sha256Hash, error) {
	var h Sha256Hash
	if len(b) != 32 {
		return h, fmt.Errorf("invalid hash length %d, want 32", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Encode writes the four-word wire form of the hash.
func (h Sha256Hash) Encode(w io.Writer) error {
	for i := 0; i < 4; i++ {
		word := binary.BigEndian.Uint64(h[i*8 : (i+1)*8])
		if err := binary.Write(w, binary.BigEndian, word); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads the four-word wire form of the hash.
func (h *Sha256Hash) Decode(r io.Reader) error {
	for i := 0; i < 4; i++ {
		var word uint64
		if err := binary.Read(r, binary.BigEndian, &word); err != nil {
			return err
		}
		binary.BigEndian.PutUint64(h[i*8:(i+1)*8], word)
	}
	return nil
}

// Signature is the fixed-layout, wire form of a DER-less ECDSA signature:
// the r and s scalars, each split into four 64-bit words (r1..r4, s1..s4).
type Signature struct {
	R *big.Int
	S *big.Int
}

// Encode writes the eight-word wire form of the signature.
func (s Signature) Encode(w io.Writer) error {
	var rb, sb [32]byte
	s.R.FillBytes(rb[:])
	s.S.FillBytes(sb[:])
	for _, b := range [][32]byte{rb, sb} {
		for i := 0; i < 4; i++ {
			word := binary.BigEndian.Uint64(b[i*8 : (i+1)*8])
			if err := binary.Write(w, binary.BigEndian, word); err != nil {
				return err
			}
		}
	}
	return nil
}

// Decode reads the eight-word wire form of the signature.
func (s *Signature) Decode(r io.Reader) error {
	var rb, sb [32]byte
	for _, b := range []*[32]byte{&rb, &sb} {
		for i := 0; i < 4; i++ {
			var word uint64
			if err := binary.Read(r, binary.BigEndian, &word); err != nil {
				return err
			}
			binary.BigEndian.PutUint64(b[i*8:(i+1)*8], word)
		}
	}
	s.R = new(big.Int).SetBytes(rb[:])
	s.S = new(big.Int).SetBytes(sb[:])
	return nil
}

// BitcoinPubkey is the fixed 33-byte compressed public key blob used to
// identify nodes and channel parties on the wire.
type BitcoinPubkey [33]byte

// Encode writes the raw 33-byte blob.
func (p BitcoinPubkey) Encode(w io.Writer) error {
	_, err := w.Write(p[:])
	return err
}

// Decode reads the raw 33-byte blob.
func (p *BitcoinPubkey) Decode(r io.Reader) error {
	_, err := io.ReadFull(r, p[:])
	return err
}

// LocktimeCase distinguishes the two forms a relative or absolute locktime
// can take on the wire. Only LocktimeSeconds is accepted by this core; a
// peer that proposes LocktimeBlocks is rejected.
type LocktimeCase uint8

const (
	// LocktimeSeconds marks the locktime value as a count of seconds.
	LocktimeSeconds LocktimeCase = 0

	// LocktimeBlocks marks the locktime value as a count of blocks.
	LocktimeBlocks LocktimeCase = 1
)

// Locktime is the tagged union of a seconds-denominated or blocks-denominated
// delay, exactly as carried in the `open` packet.
type Locktime struct {
	Case  LocktimeCase
	Value uint32
}

// Encode writes the one-byte case tag followed by the four-byte value.
func (l Locktime) Encode(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint8(l.Case)); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, l.Value)
}

// Decode reads the tagged locktime.
func (l *Locktime) Decode(r io.Reader) error {
	var c uint8
	if err := binary.Read(r, binary.BigEndian, &c); err != nil {
		return err
	}
	l.Case = LocktimeCase(c)
	return binary.Read(r, binary.BigEndian, &l.Value)
}

// AnchorOffer is the tagged choice of which side will fund the anchor
// transaction. Exactly one of the two sides of a channel may offer it.
type AnchorOffer uint8

const (
	// WillCreateAnchor indicates this side will fund the anchor.
	WillCreateAnchor AnchorOffer = 0

	// WontCreateAnchor indicates the remote side will fund the anchor.
	WontCreateAnchor AnchorOffer = 1
)
