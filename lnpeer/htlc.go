package lnpeer

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-errors/errors"

	"github.com/lightningnetwork/lnlite/lnwallet"
	"github.com/lightningnetwork/lnlite/lnwire"
	"github.com/lightningnetwork/lnlite/shachain"
)

// pendingUpdate tracks an in-flight HTLC addition across the four-message
// handshake (update_add_htlc / update_accept / update_signature /
// update_complete, §4.4). Exactly one may be outstanding per channel.
type pendingUpdate struct {
	// weInitiated is true on the side that sent update_add_htlc, for the
	// whole handshake up to and including waiting on update_complete; it
	// is false on the responding side.
	weInitiated bool

	amountMSat lnwire.MilliSatoshi
	rHash      lnwire.Sha256Hash
	expiry     uint64

	ourNewRevocationHash   lnwire.Sha256Hash
	theirNewRevocationHash lnwire.Sha256Hash

	newCState      *lnwallet.CState
	newOurCommit   *wire.MsgTx
	newTheirCommit *wire.MsgTx

	// priorThemRevocationHash is staged before the live them.RevocationHash
	// is overwritten, so that the eventual update_complete preimage can
	// still be checked against the hash it actually revokes.
	priorThemRevocationHash lnwire.Sha256Hash
}

// CreateUpdateAddHTLC proposes a new HTLC, escrowed from our own balance,
// to the peer. Only one proposal may be outstanding at a time (§4.4's
// ordering rule).
func (c *Channel) CreateUpdateAddHTLC(amt lnwire.MilliSatoshi, rhash lnwire.Sha256Hash,
	expiry uint64) (*lnwire.UpdateAddHTLC, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNormal {
		return nil, c.fail(fmt.Sprintf("unexpected update_add_htlc in state %v", c.state))
	}
	if c.pending != nil {
		return nil, c.fail("unexpected update_add_htlc: an update is already pending")
	}

	ourNewRevHash, err := c.shaProducer.RevocationHash(c.numCommits + 1)
	if err != nil {
		return nil, err
	}

	c.pending = &pendingUpdate{
		weInitiated:          true,
		amountMSat:           amt,
		rHash:                rhash,
		expiry:               expiry,
		ourNewRevocationHash: ourNewRevHash,
	}
	c.state = StateHTLCInFlight

	return &lnwire.UpdateAddHTLC{
		RevocationHash: ourNewRevHash,
		AmountMSat:     amt,
		RHash:          rhash,
		Expiry:         expiry,
	}, nil
}

// HandleUpdateAddHTLC processes a peer's HTLC proposal: it escrows the
// amount out of the peer's balance, builds the replacement commitment
// pair, and signs our counterpart's half for return in update_accept.
//
// TODO: enforce that the peer's committed fee share still covers the
// commitment fee once this HTLC is added; unenforced for now, matching
// the known gap in the packet contract this was ported from.
func (c *Channel) HandleUpdateAddHTLC(msg *lnwire.UpdateAddHTLC) (*lnwire.UpdateCommit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNormal {
		return nil, c.fail(fmt.Sprintf("unexpected update_add_htlc in state %v", c.state))
	}
	if c.pending != nil {
		return nil, c.fail("unexpected update_add_htlc: an update is already pending")
	}

	cNew := c.cstate.Copy()
	if !lnwallet.Delta(c.funder, c.anchorSatoshis, 0, -int64(msg.AmountMSat), &cNew.A, &cNew.B) {
		return nil, c.fail(fmt.Sprintf("Cannot afford %d milli-satoshis", msg.AmountMSat))
	}
	cNew.B.AddHTLC(msg.AmountMSat, msg.Expiry, msg.RHash)

	ourNewRevHash, err := c.shaProducer.RevocationHash(c.numCommits + 1)
	if err != nil {
		return nil, err
	}

	newOurCommit, newTheirCommit, err := lnwallet.MakeCommitTxs(c.commitParams,
		ourNewRevHash, msg.RevocationHash, cNew)
	if err != nil {
		return nil, c.fail(err.Error())
	}

	sig, err := c.signer.SignCommitment(newTheirCommit, c.redeemScript, c.anchorSatoshis)
	if err != nil {
		return nil, c.fail("could not sign their new commitment")
	}

	c.pending = &pendingUpdate{
		weInitiated:             false,
		amountMSat:              msg.AmountMSat,
		rHash:                   msg.RHash,
		expiry:                  msg.Expiry,
		newCState:               cNew,
		newOurCommit:            newOurCommit,
		newTheirCommit:          newTheirCommit,
		ourNewRevocationHash:    ourNewRevHash,
		theirNewRevocationHash:  msg.RevocationHash,
		priorThemRevocationHash: c.them.RevocationHash,
	}
	c.state = StateHTLCInFlight

	return &lnwire.UpdateCommit{
		Sig:            signatureToWire(sig),
		RevocationHash: &ourNewRevHash,
	}, nil
}

// HandleUpdateAccept processes the responder's update_accept: their
// signature over our new commitment, and their next revocation hash. On
// success the new state is installed atomically and our own prior
// preimage is disclosed via update_signature.
func (c *Channel) HandleUpdateAccept(msg *lnwire.UpdateCommit) (*lnwire.UpdateCommit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pending
	if p == nil || !p.weInitiated || p.newCState != nil {
		return nil, c.fail("unexpected update_accept")
	}
	if msg.RevocationHash == nil {
		return nil, c.fail("update_accept missing revocation_hash")
	}

	cNew := c.cstate.Copy()
	if !lnwallet.Delta(c.funder, c.anchorSatoshis, -int64(p.amountMSat), 0, &cNew.A, &cNew.B) {
		return nil, c.fail(fmt.Sprintf("Cannot afford %d milli-satoshis", p.amountMSat))
	}
	cNew.A.AddHTLC(p.amountMSat, p.expiry, p.rHash)

	newOurCommit, newTheirCommit, err := lnwallet.MakeCommitTxs(c.commitParams,
		p.ourNewRevocationHash, *msg.RevocationHash, cNew)
	if err != nil {
		return nil, c.fail(err.Error())
	}

	if !verifyCommitmentSig(newOurCommit, c.redeemScript, c.anchorSatoshis, msg.Sig, c.them.CommitKey) {
		return nil, c.fail("Bad signature")
	}

	sig, err := c.signer.SignCommitment(newTheirCommit, c.redeemScript, c.anchorSatoshis)
	if err != nil {
		return nil, c.fail("could not sign their new commitment")
	}

	c.assertConservation(cNew)

	priorThemHash := c.them.RevocationHash
	oldIndex := c.numCommits

	c.cstate = cNew
	c.ourCommit, c.theirCommit = newOurCommit, newTheirCommit
	c.us.RevocationHash = p.ourNewRevocationHash
	c.them.RevocationHash = *msg.RevocationHash
	c.numCommits = oldIndex + 1

	ourOldPreimage, err := c.shaProducer.Preimage(oldIndex)
	if err != nil {
		return nil, err
	}

	c.pending = &pendingUpdate{
		weInitiated:             true,
		priorThemRevocationHash: priorThemHash,
	}

	return &lnwire.UpdateCommit{
		Sig:                signatureToWire(sig),
		RevocationPreimage: &ourOldPreimage,
	}, nil
}

// HandleUpdateSignature processes the initiator's update_signature: their
// signature over our new commitment, plus the preimage revoking their
// prior one. On success the new state is installed atomically.
func (c *Channel) HandleUpdateSignature(msg *lnwire.UpdateCommit) (*lnwire.UpdateRevocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pending
	if p == nil || p.weInitiated || p.newCState == nil {
		return nil, c.fail("unexpected update_signature")
	}
	if msg.RevocationPreimage == nil {
		return nil, c.fail("update_signature missing revocation_preimage")
	}

	if !verifyCommitmentSig(p.newOurCommit, c.redeemScript, c.anchorSatoshis, msg.Sig, c.them.CommitKey) {
		return nil, c.fail("Bad signature")
	}
	if !shachain.VerifyPreimage(*msg.RevocationPreimage, c.them.RevocationHash) {
		return nil, c.fail("Bad revocation preimage")
	}

	c.assertConservation(p.newCState)

	oldIndex := c.numCommits

	c.cstate = p.newCState
	c.ourCommit, c.theirCommit = p.newOurCommit, p.newTheirCommit
	c.us.RevocationHash = p.ourNewRevocationHash
	c.them.RevocationHash = p.theirNewRevocationHash
	c.numCommits = oldIndex + 1

	ourOldPreimage, err := c.shaProducer.Preimage(oldIndex)
	if err != nil {
		return nil, err
	}

	c.pending = nil
	c.state = StateNormal

	return &lnwire.UpdateRevocation{RevocationPreimage: ourOldPreimage}, nil
}

// HandleUpdateComplete verifies the final disclosed preimage against the
// revocation hash it retires, closing out the handshake.
func (c *Channel) HandleUpdateComplete(msg *lnwire.UpdateRevocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pending
	if p == nil || !p.weInitiated {
		return c.fail("unexpected update_complete")
	}

	if !shachain.VerifyPreimage(msg.RevocationPreimage, p.priorThemRevocationHash) {
		return c.fail("Bad revocation preimage")
	}

	c.pending = nil
	c.state = StateNormal
	return nil
}

// assertConservation aborts the process if newState does not conserve the
// same total funds as the channel's current state. A violation here is a
// programming error in the balance engine, not a peer fault, so it is
// caught before it can be signed into a commitment transaction.
func (c *Channel) assertConservation(newState *lnwallet.CState) {
	old, updated := c.cstate.TotalFunds(), newState.TotalFunds()
	if old == updated {
		return
	}
	err := errors.Errorf("conservation invariant violated: %d != %d", old, updated)
	peerLog.Errorf("%v\n%s", err, spew.Sdump(c.cstate, newState))
	panic(err)
}

// unsupportedUpdate rejects the packet kinds this core does not implement
// a handler for (close, HTLC fulfill/fail, routefail; §9).
func (c *Channel) unsupportedUpdate(what string) *lnwire.Error {
	return &lnwire.Error{Problem: fmt.Sprintf("%s is not supported", what)}
}

// HandleCloseShutdown stub-rejects a cooperative close proposal.
func (c *Channel) HandleCloseShutdown(msg *lnwire.CloseShutdown) *lnwire.Error {
	return c.unsupportedUpdate("close_shutdown")
}

// HandleCloseSignature stub-rejects a cooperative close signature.
func (c *Channel) HandleCloseSignature(msg *lnwire.CloseSignature) *lnwire.Error {
	return c.unsupportedUpdate("close_signature")
}

// HandleUpdateFulfillHTLC stub-rejects an HTLC settlement.
func (c *Channel) HandleUpdateFulfillHTLC(msg *lnwire.UpdateFulfillHTLC) *lnwire.Error {
	return c.unsupportedUpdate("update_fulfill_htlc")
}

// HandleUpdateFailHTLC stub-rejects an HTLC failure report.
func (c *Channel) HandleUpdateFailHTLC(msg *lnwire.UpdateFailHTLC) *lnwire.Error {
	return c.unsupportedUpdate("update_fail_htlc")
}
