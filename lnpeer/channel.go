package lnpeer

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"

	"github.com/lightningnetwork/lnlite/lnwallet"
	"github.com/lightningnetwork/lnlite/lnwire"
	"github.com/lightningnetwork/lnlite/shachain"
)

// relLocktimeMax and the other wire-proposal ceilings below bound what a
// remote peer may demand of us during open negotiation.
const (
	relLocktimeMax      = 144 * 30 // 4320 seconds, checked against the open packet's delay in seconds
	anchorConfirmsMax   = 144      // one day
	commitmentFeeMinSat = 1
)

// ChannelState is a node in the channel protocol state machine (§4.4).
type ChannelState int

const (
	StateInit ChannelState = iota
	StateOpenWaitForOpen
	StateOpenWaitForAnchor
	StateOpenWaitForCommitSig
	StateOpenWaitingAnchorConf
	StateNormal
	StateHTLCInFlight
	StateClosing
	StateClosed
	StateError
)

func (s ChannelState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateOpenWaitForOpen:
		return "OPEN_WAIT_FOR_OPEN"
	case StateOpenWaitForAnchor:
		return "OPEN_WAIT_FOR_ANCHOR"
	case StateOpenWaitForCommitSig:
		return "OPEN_WAIT_FOR_COMMIT_SIG"
	case StateOpenWaitingAnchorConf:
		return "OPEN_WAITING_ANCHOR_CONF"
	case StateNormal:
		return "NORMAL"
	case StateHTLCInFlight:
		return "HTLCS_IN_FLIGHT"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "ERROR"
	}
}

// Party is one side's static per-channel parameters, populated from an
// open packet (or, for us, from our own proposal).
type Party struct {
	CommitKey      *btcec.PublicKey
	FinalKey       *btcec.PublicKey
	Delay          uint32
	CommitmentFee  btcutil.Amount
	AnchorOffer    lnwire.AnchorOffer
	MinDepth       uint32
	RevocationHash lnwire.Sha256Hash
}

// Signer abstracts the external key-management collaborator (§6): it
// signs a commitment transaction's single anchor input on our behalf.
// It is never asked to sign arbitrary transactions, only this one shape.
type Signer interface {
	SignCommitment(tx *wire.MsgTx, redeemScript []byte, amt btcutil.Amount) (*btcec.Signature, error)
}

// Channel is the per-peer channel protocol state machine: it owns the
// current balance snapshot, both commitment transactions, and the
// revocation chain, and advances in response to packets handed to its
// Handle* methods.
type Channel struct {
	mu sync.Mutex

	peer Peer

	state  ChannelState
	funder bool // true if we are funding the anchor

	us, them Party

	anchorSatoshis btcutil.Amount
	cstate         *lnwallet.CState

	commitParams          *lnwallet.CommitmentParams
	ourCommit, theirCommit *wire.MsgTx
	numCommits            uint64

	redeemScript []byte

	shaProducer *shachain.Producer
	signer      Signer

	pending *pendingUpdate
}

// NewChannel creates a fresh channel in StateInit, ready to send or
// receive the first open packet. seed roots the revocation preimage
// chain; it must never be reused across channels.
func NewChannel(peer Peer, signer Signer, seed [shachain.SeedSize]byte) *Channel {
	return &Channel{
		peer:        peer,
		signer:      signer,
		shaProducer: shachain.NewProducer(seed),
		state:       StateInit,
	}
}

// State returns the channel's current protocol state.
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsFunder reports whether this side is the one offering to create (and
// broadcast) the anchor. It lets a transport layer decide, once a peer's
// open has been validated, whether it should now call CreateOpenAnchor or
// simply wait for one.
func (c *Channel) IsFunder() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.funder
}

// PendingRole reports whether an HTLC-add handshake is currently in
// flight, and if so, whether this side was the one that sent
// update_add_htlc. A transport layer needs this to route an incoming
// update_commit packet to HandleUpdateAccept or HandleUpdateSignature,
// since both use the same wire shape.
func (c *Channel) PendingRole() (weInitiated, pending bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return false, false
	}
	return c.pending.weInitiated, true
}

func (c *Channel) fail(problem string) error {
	c.state = StateError
	peerLog.Errorf("channel entering ERROR state: %v", problem)
	return &protocolError{problem: problem}
}

// protocolError is returned by Handle* methods whenever the remote peer
// violated a packet contract; its Problem string is what gets echoed back
// in an Error packet.
type protocolError struct {
	problem string
}

func (e *protocolError) Error() string { return e.problem }

// CreateOpen builds the open packet proposing our side of a fresh channel.
func (c *Channel) CreateOpen(revocationHash lnwire.Sha256Hash, commitKey,
	finalKey *btcec.PublicKey, delaySeconds uint32, commitmentFee btcutil.Amount,
	weFundAnchor bool, minDepth uint32) *lnwire.Open {

	c.mu.Lock()
	defer c.mu.Unlock()

	offer := lnwire.WontCreateAnchor
	if weFundAnchor {
		offer = lnwire.WillCreateAnchor
	}

	c.us = Party{
		CommitKey:      commitKey,
		FinalKey:       finalKey,
		Delay:          delaySeconds,
		CommitmentFee:  commitmentFee,
		AnchorOffer:    offer,
		MinDepth:       minDepth,
		RevocationHash: revocationHash,
	}
	c.state = StateOpenWaitForOpen

	var commitPk, finalPk lnwire.BitcoinPubkey
	copy(commitPk[:], commitKey.SerializeCompressed())
	copy(finalPk[:], finalKey.SerializeCompressed())

	return &lnwire.Open{
		RevocationHash: revocationHash,
		CommitKey:      commitPk,
		FinalKey:       finalPk,
		Delay:          lnwire.Locktime{Case: lnwire.LocktimeSeconds, Value: delaySeconds},
		CommitmentFee:  uint64(commitmentFee),
		AnchorOffer:    offer,
		MinDepth:       minDepth,
	}
}

// HandleOpen processes the remote peer's open proposal, validating it
// against the packet contract in §4.4's table and recording it as
// Channel.them on success.
func (c *Channel) HandleOpen(msg *lnwire.Open) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpenWaitForOpen && c.state != StateInit {
		return c.fail(fmt.Sprintf("unexpected open in state %v", c.state))
	}

	if msg.Delay.Case != lnwire.LocktimeSeconds {
		return c.fail("Delay in blocks not accepted")
	}
	if msg.Delay.Value > relLocktimeMax {
		return c.fail("Delay too great")
	}
	if msg.MinDepth > anchorConfirmsMax {
		return c.fail("min_depth too great")
	}
	if msg.CommitmentFee < commitmentFeeMinSat {
		return c.fail("Commitment fee too low")
	}

	ourOffer := lnwire.WontCreateAnchor
	if c.us.CommitKey != nil {
		ourOffer = c.us.AnchorOffer
	}
	if msg.AnchorOffer == lnwire.WillCreateAnchor && ourOffer == lnwire.WillCreateAnchor {
		return c.fail("Only one side can offer anchor")
	}
	if msg.AnchorOffer == lnwire.WontCreateAnchor && ourOffer == lnwire.WontCreateAnchor {
		return c.fail("Only one side can offer anchor")
	}

	commitKey, err := btcec.ParsePubKey(msg.CommitKey[:], btcec.S256())
	if err != nil {
		return c.fail("Bad commit_key")
	}
	finalKey, err := btcec.ParsePubKey(msg.FinalKey[:], btcec.S256())
	if err != nil {
		return c.fail("Bad final_key")
	}

	c.them = Party{
		CommitKey:      commitKey,
		FinalKey:       finalKey,
		Delay:          msg.Delay.Value,
		CommitmentFee:  btcutil.Amount(msg.CommitmentFee),
		AnchorOffer:    msg.AnchorOffer,
		MinDepth:       msg.MinDepth,
		RevocationHash: msg.RevocationHash,
	}
	c.funder = c.us.AnchorOffer == lnwire.WillCreateAnchor

	redeemScript, err := lnwallet.AnchorRedeemScript(c.us.CommitKey, c.them.CommitKey)
	if err != nil {
		return c.fail("Could not build anchor script")
	}
	c.redeemScript = redeemScript

	// Both sides wait here until the anchor exists: the funder is about
	// to build and broadcast it (CreateOpenAnchor moves the funder on to
	// StateOpenWaitForCommitSig itself once that's done), the non-funder
	// is waiting to receive it.
	c.state = StateOpenWaitForAnchor

	peerLog.Infof("channel open negotiated, funder=%v, delay=%v", c.funder, c.us.Delay)
	return nil
}

// CreateOpenAnchor is called by the funding side once the anchor output
// has been broadcast: it builds the initial balance snapshot and both
// commitment transactions, signs the non-funder's commitment, and returns
// the open_anchor packet.
func (c *Channel) CreateOpenAnchor(anchor wire.OutPoint, anchorSatoshis btcutil.Amount) (*lnwire.OpenAnchor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.funder || c.state != StateOpenWaitForAnchor {
		return nil, c.fail("unexpected open_anchor from non-funder side")
	}

	c.anchorSatoshis = anchorSatoshis
	fee := lnwallet.CommitFee(c.them.CommitmentFee, c.us.CommitmentFee)

	cstate, err := lnwallet.InitialFunding(true, anchorSatoshis, fee)
	if err != nil {
		return nil, c.fail(err.Error())
	}
	c.cstate = cstate

	c.commitParams = &lnwallet.CommitmentParams{
		AnchorOutPoint: anchor,
		OurCommitKey:   c.us.CommitKey,
		TheirCommitKey: c.them.CommitKey,
		OurFinalKey:    c.us.FinalKey,
		TheirFinalKey:  c.them.FinalKey,
		Delay:          c.us.Delay,
	}

	ourCommit, theirCommit, err := lnwallet.MakeCommitTxs(c.commitParams,
		c.us.RevocationHash, c.them.RevocationHash, c.cstate)
	if err != nil {
		return nil, c.fail(err.Error())
	}
	c.ourCommit, c.theirCommit = ourCommit, theirCommit

	sig, err := c.signer.SignCommitment(theirCommit, c.redeemScript, anchorSatoshis)
	if err != nil {
		return nil, c.fail("could not sign their commitment")
	}

	var txid lnwire.Sha256Hash
	copy(txid[:], anchor.Hash[:])

	c.state = StateOpenWaitForCommitSig

	return &lnwire.OpenAnchor{
		TxID:        txid,
		OutputIndex: anchor.Index,
		Amount:      uint64(anchorSatoshis),
		CommitSig:   signatureToWire(sig),
	}, nil
}

// HandleOpenAnchor processes the funder's open_anchor on the non-funder
// side: it records the anchor outpoint, builds the inverted balance
// snapshot and both commitment transactions, and verifies the funder's
// signature over our commitment before accepting.
func (c *Channel) HandleOpenAnchor(msg *lnwire.OpenAnchor) (*lnwire.OpenCommitSig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.funder || c.state != StateOpenWaitForAnchor {
		return nil, c.fail("unexpected open_anchor")
	}

	c.anchorSatoshis = btcutil.Amount(msg.Amount)
	fee := lnwallet.CommitFee(c.them.CommitmentFee, c.us.CommitmentFee)

	funderCState, err := lnwallet.InitialFunding(true, c.anchorSatoshis, fee)
	if err != nil {
		return nil, c.fail("Insufficient funds for fee")
	}
	// funderCState.A is the funder's (their) side; invert to our view.
	c.cstate = funderCState.Invert()

	var anchorOutPoint wire.OutPoint
	copy(anchorOutPoint.Hash[:], msg.TxID[:])
	anchorOutPoint.Index = msg.OutputIndex

	c.commitParams = &lnwallet.CommitmentParams{
		AnchorOutPoint: anchorOutPoint,
		OurCommitKey:   c.us.CommitKey,
		TheirCommitKey: c.them.CommitKey,
		OurFinalKey:    c.us.FinalKey,
		TheirFinalKey:  c.them.FinalKey,
		Delay:          c.us.Delay,
	}

	ourCommit, theirCommit, err := lnwallet.MakeCommitTxs(c.commitParams,
		c.us.RevocationHash, c.them.RevocationHash, c.cstate)
	if err != nil {
		return nil, c.fail(err.Error())
	}
	c.ourCommit, c.theirCommit = ourCommit, theirCommit

	if !verifyCommitmentSig(ourCommit, c.redeemScript, c.anchorSatoshis,
		msg.CommitSig, c.them.CommitKey) {
		return nil, c.fail("Bad signature")
	}

	sig, err := c.signer.SignCommitment(theirCommit, c.redeemScript, c.anchorSatoshis)
	if err != nil {
		return nil, c.fail("could not sign their commitment")
	}

	c.state = StateOpenWaitingAnchorConf

	return &lnwire.OpenCommitSig{Sig: signatureToWire(sig)}, nil
}

// HandleOpenCommitSig processes the non-funder's signature over our
// commitment transaction, verifying it before advancing to wait for the
// anchor's confirmation.
func (c *Channel) HandleOpenCommitSig(msg *lnwire.OpenCommitSig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.funder || c.state != StateOpenWaitForCommitSig {
		return c.fail("unexpected open_commit_sig")
	}

	if !verifyCommitmentSig(c.ourCommit, c.redeemScript, c.anchorSatoshis,
		msg.Sig, c.them.CommitKey) {
		return c.fail("Bad signature")
	}

	c.state = StateOpenWaitingAnchorConf
	return nil
}

// HandleOpenComplete advances the channel to NORMAL once both sides have
// confirmed the funding flow is done.
func (c *Channel) HandleOpenComplete(msg *lnwire.OpenComplete) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpenWaitingAnchorConf && c.state != StateNormal {
		return c.fail("unexpected open_complete")
	}
	c.state = StateNormal
	peerLog.Infof("channel now NORMAL")
	return nil
}

// verifyCommitmentSig checks sig against tx's single anchor input, spending
// redeemScript for amt, under key.
func verifyCommitmentSig(tx *wire.MsgTx, redeemScript []byte, amt btcutil.Amount,
	sig lnwire.Signature, key *btcec.PublicKey) bool {

	if tx == nil || len(tx.TxIn) != 1 {
		return false
	}
	hash, err := txscript.CalcSignatureHash(redeemScript, txscript.SigHashAll, tx, 0)
	if err != nil {
		return false
	}

	ecSig := &btcec.Signature{R: sig.R, S: sig.S}
	return ecSig.Verify(hash, key)
}

// signatureToWire converts a locally computed signature into its wire
// form.
func signatureToWire(sig *btcec.Signature) lnwire.Signature {
	return lnwire.Signature{R: sig.R, S: sig.S}
}
