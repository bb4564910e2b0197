package lnwire

import (
	"encoding/binary"
	"io"
)

func writeUint64(w io.Writer, v uint64) error {
	return binary.Write(w, binary.BigEndian, v)
}

func readUint64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.BigEndian, v)
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

func writeBool(w io.Writer, v bool) error {
	var b uint8
	if v {
		b = 1
	}
	return binary.Write(w, binary.BigEndian, b)
}

func readBool(r io.Reader) (bool, error) {
	var b uint8
	if err := binary.Read(r, binary.BigEndian, &b); err != nil {
		return false, err
	}
	return b != 0, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

// Auth is the first packet sent on a fresh connection, proving ownership of
// the node's identity key by signing the session transcript. The signing
// and verification of this transcript is performed by the external crypto
// collaborator (§6); this packet only carries the resulting signature.
type Auth struct {
	Signature Signature
}

func (a *Auth) MsgType() PktCase      { return PktAuth }
func (a *Auth) Encode(w io.Writer) error { return a.Signature.Encode(w) }
func (a *Auth) Decode(r io.Reader) error { return a.Signature.Decode(r) }

// Reconnect is sent when re-establishing a connection to a peer with whom a
// channel is already open, so each side can tell the other how far its view
// of the commitment history has progressed.
type Reconnect struct {
	LastReceivedCommitIndex uint64
}

func (r *Reconnect) MsgType() PktCase { return PktReconnect }

func (m *Reconnect) Encode(w io.Writer) error {
	return writeUint64(w, m.LastReceivedCommitIndex)
}

func (m *Reconnect) Decode(r io.Reader) (err error) {
	m.LastReceivedCommitIndex, err = readUint64(r)
	return err
}

// Open is the channel-open proposal: each side's static per-channel
// parameters as described in DATA MODEL §3's peer-local "us"/"them" record.
type Open struct {
	RevocationHash Sha256Hash
	CommitKey      BitcoinPubkey
	FinalKey       BitcoinPubkey
	Delay          Locktime
	CommitmentFee  uint64
	AnchorOffer    AnchorOffer
	MinDepth       uint32
}

func (o *Open) MsgType() PktCase { return PktOpen }

func (o *Open) Encode(w io.Writer) error {
	if err := o.RevocationHash.Encode(w); err != nil {
		return err
	}
	if err := o.CommitKey.Encode(w); err != nil {
		return err
	}
	if err := o.FinalKey.Encode(w); err != nil {
		return err
	}
	if err := o.Delay.Encode(w); err != nil {
		return err
	}
	if err := writeUint64(w, o.CommitmentFee); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint8(o.AnchorOffer)); err != nil {
		return err
	}
	return writeUint32(w, o.MinDepth)
}

func (o *Open) Decode(r io.Reader) error {
	if err := o.RevocationHash.Decode(r); err != nil {
		return err
	}
	if err := o.CommitKey.Decode(r); err != nil {
		return err
	}
	if err := o.FinalKey.Decode(r); err != nil {
		return err
	}
	if err := o.Delay.Decode(r); err != nil {
		return err
	}
	fee, err := readUint64(r)
	if err != nil {
		return err
	}
	o.CommitmentFee = fee

	var anchor uint8
	if err := binary.Read(r, binary.BigEndian, &anchor); err != nil {
		return err
	}
	o.AnchorOffer = AnchorOffer(anchor)

	o.MinDepth, err = readUint32(r)
	return err
}

// OpenAnchor reveals the funder's anchor outpoint and carries their
// signature over the non-funder's first commitment transaction.
type OpenAnchor struct {
	TxID        Sha256Hash
	OutputIndex uint32
	Amount      uint64
	CommitSig   Signature
}

func (o *OpenAnchor) MsgType() PktCase { return PktOpenAnchor }

func (o *OpenAnchor) Encode(w io.Writer) error {
	if err := o.TxID.Encode(w); err != nil {
		return err
	}
	if err := writeUint32(w, o.OutputIndex); err != nil {
		return err
	}
	if err := writeUint64(w, o.Amount); err != nil {
		return err
	}
	return o.CommitSig.Encode(w)
}

func (o *OpenAnchor) Decode(r io.Reader) error {
	if err := o.TxID.Decode(r); err != nil {
		return err
	}
	idx, err := readUint32(r)
	if err != nil {
		return err
	}
	o.OutputIndex = idx

	amt, err := readUint64(r)
	if err != nil {
		return err
	}
	o.Amount = amt

	return o.CommitSig.Decode(r)
}

// OpenCommitSig is the non-funder's signature over the funder's commitment
// transaction, sent in reply to open_anchor.
type OpenCommitSig struct {
	Sig Signature
}

func (o *OpenCommitSig) MsgType() PktCase   { return PktOpenCommitSig }
func (o *OpenCommitSig) Encode(w io.Writer) error { return o.Sig.Encode(w) }
func (o *OpenCommitSig) Decode(r io.Reader) error { return o.Sig.Decode(r) }

// OpenComplete signals that this side considers the funding flow done; the
// channel becomes NORMAL once both sides have sent (or implicitly reached)
// it.
type OpenComplete struct{}

func (o *OpenComplete) MsgType() PktCase      { return PktOpenComplete }
func (o *OpenComplete) Encode(w io.Writer) error { return nil }
func (o *OpenComplete) Decode(r io.Reader) error { return nil }

// UpdateAddHTLC proposes adding a new HTLC to the channel, escrowed from the
// sender's side, along with the sender's next revocation hash.
type UpdateAddHTLC struct {
	RevocationHash Sha256Hash
	AmountMSat     MilliSatoshi
	RHash          Sha256Hash
	Expiry         uint64
}

func (u *UpdateAddHTLC) MsgType() PktCase { return PktUpdateAddHTLC }

func (u *UpdateAddHTLC) Encode(w io.Writer) error {
	if err := u.RevocationHash.Encode(w); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(u.AmountMSat)); err != nil {
		return err
	}
	if err := u.RHash.Encode(w); err != nil {
		return err
	}
	return writeUint64(w, u.Expiry)
}

func (u *UpdateAddHTLC) Decode(r io.Reader) error {
	if err := u.RevocationHash.Decode(r); err != nil {
		return err
	}
	amt, err := readUint64(r)
	if err != nil {
		return err
	}
	u.AmountMSat = MilliSatoshi(amt)

	if err := u.RHash.Decode(r); err != nil {
		return err
	}
	u.Expiry, err = readUint64(r)
	return err
}

// UpdateFulfillHTLC reveals the preimage that settles a previously-added
// HTLC. The wire shape exists but no handler is implemented in this core
// (§9).
type UpdateFulfillHTLC struct {
	RPreimage Sha256Hash
}

func (u *UpdateFulfillHTLC) MsgType() PktCase      { return PktUpdateFulfillHTLC }
func (u *UpdateFulfillHTLC) Encode(w io.Writer) error { return u.RPreimage.Encode(w) }
func (u *UpdateFulfillHTLC) Decode(r io.Reader) error { return u.RPreimage.Decode(r) }

// UpdateFailHTLC reports that a previously-added HTLC cannot be fulfilled.
// The wire shape exists but no handler is implemented in this core (§9).
type UpdateFailHTLC struct {
	Reason []byte
}

func (u *UpdateFailHTLC) MsgType() PktCase { return PktUpdateFailHTLC }
func (u *UpdateFailHTLC) Encode(w io.Writer) error { return writeBytes(w, u.Reason) }
func (u *UpdateFailHTLC) Decode(r io.Reader) (err error) {
	u.Reason, err = readBytes(r)
	return err
}

// UpdateCommit carries a signature over a freshly built commitment
// transaction. It is sent at two distinct points in the HTLC-add flow
// (§4.4's update_accept and update_signature occasions): RevocationHash is
// populated when the accepting side sends its new revocation hash for the
// first time, RevocationPreimage is populated when the initiating side
// reveals the previous commitment's preimage. Exactly one of the two is
// ever set on a given packet.
type UpdateCommit struct {
	Sig                Signature
	RevocationHash     *Sha256Hash
	RevocationPreimage *Sha256Hash
}

func (u *UpdateCommit) MsgType() PktCase { return PktUpdateCommit }

func (u *UpdateCommit) Encode(w io.Writer) error {
	if err := u.Sig.Encode(w); err != nil {
		return err
	}
	if err := writeOptionalHash(w, u.RevocationHash); err != nil {
		return err
	}
	return writeOptionalHash(w, u.RevocationPreimage)
}

func (u *UpdateCommit) Decode(r io.Reader) error {
	if err := u.Sig.Decode(r); err != nil {
		return err
	}
	hash, err := readOptionalHash(r)
	if err != nil {
		return err
	}
	u.RevocationHash = hash

	preimage, err := readOptionalHash(r)
	if err != nil {
		return err
	}
	u.RevocationPreimage = preimage
	return nil
}

func writeOptionalHash(w io.Writer, h *Sha256Hash) error {
	if err := writeBool(w, h != nil); err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	return h.Encode(w)
}

func readOptionalHash(r io.Reader) (*Sha256Hash, error) {
	present, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	var h Sha256Hash
	if err := h.Decode(r); err != nil {
		return nil, err
	}
	return &h, nil
}

// UpdateRevocation reveals the preimage retiring the previous commitment,
// completing the handshake begun by UpdateCommit (§4.4's update_complete
// occasion).
type UpdateRevocation struct {
	RevocationPreimage Sha256Hash
}

func (u *UpdateRevocation) MsgType() PktCase      { return PktUpdateRevocation }
func (u *UpdateRevocation) Encode(w io.Writer) error { return u.RevocationPreimage.Encode(w) }
func (u *UpdateRevocation) Decode(r io.Reader) error { return u.RevocationPreimage.Decode(r) }

// CloseShutdown begins a cooperative close by proposing a settlement
// script. No handler is implemented in this core (§9).
type CloseShutdown struct {
	ScriptPubkey []byte
}

func (c *CloseShutdown) MsgType() PktCase { return PktCloseShutdown }
func (c *CloseShutdown) Encode(w io.Writer) error { return writeBytes(w, c.ScriptPubkey) }
func (c *CloseShutdown) Decode(r io.Reader) (err error) {
	c.ScriptPubkey, err = readBytes(r)
	return err
}

// CloseSignature proposes a fee and carries a signature over the final
// closing transaction. No handler is implemented in this core (§9).
type CloseSignature struct {
	Sig         Signature
	FeeSatoshis uint64
}

func (c *CloseSignature) MsgType() PktCase { return PktCloseSignature }

func (c *CloseSignature) Encode(w io.Writer) error {
	if err := c.Sig.Encode(w); err != nil {
		return err
	}
	return writeUint64(w, c.FeeSatoshis)
}

func (c *CloseSignature) Decode(r io.Reader) error {
	if err := c.Sig.Decode(r); err != nil {
		return err
	}
	fee, err := readUint64(r)
	if err != nil {
		return err
	}
	c.FeeSatoshis = fee
	return nil
}

// Error is sent whenever a peer-protocol error is detected (§7.1); Problem
// is a human-readable description and is the only part of this packet the
// spec requires to be stable and observable.
type Error struct {
	Problem string
}

func (e *Error) MsgType() PktCase      { return PktError }
func (e *Error) Encode(w io.Writer) error { return writeString(w, e.Problem) }
func (e *Error) Decode(r io.Reader) (err error) {
	e.Problem, err = readString(r)
	return err
}
