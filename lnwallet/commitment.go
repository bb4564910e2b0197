package lnwallet

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"golang.org/x/crypto/ripemd160"

	"github.com/lightningnetwork/lnlite/lnwire"
)

// Ripemd160H returns RIPEMD160(SHA256(msg)), the hash used throughout the
// script templates below to keep pushed hashes at the standard 20 bytes.
func Ripemd160H(msg []byte) []byte {
	h := chainhash.HashB(msg)
	r := ripemd160.New()
	r.Write(h)
	return r.Sum(nil)
}

// AnchorRedeemScript builds the 2-of-2 multisig redeem script the anchor
// output is locked to. Keys are pushed in serialized-pubkey sort order so
// both parties independently derive the same script.
func AnchorRedeemScript(a, b *btcec.PublicKey) ([]byte, error) {
	keyA, keyB := a.SerializeCompressed(), b.SerializeCompressed()
	if bytes.Compare(keyA, keyB) > 0 {
		keyA, keyB = keyB, keyA
	}

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_2)
	builder.AddData(keyA)
	builder.AddData(keyB)
	builder.AddOp(txscript.OP_2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	return builder.Script()
}

// AnchorScriptHash wraps a redeem script in the P2SH output script that
// pays into it.
func AnchorScriptHash(redeemScript []byte) ([]byte, error) {
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(btcutil.Hash160(redeemScript))
	builder.AddOp(txscript.OP_EQUAL)
	return builder.Script()
}

// revocableDeliveryScript locks a commitment output so the counterparty
// can sweep it immediately given the revocation preimage (punishing a
// stale broadcast), or so its owner can sweep it unilaterally once the
// relative delay has passed.
//
//	OP_IF
//	    OP_HASH160 <revocationHash160> OP_EQUALVERIFY <commitKey> OP_CHECKSIG
//	OP_ELSE
//	    <delay> OP_CHECKSEQUENCEVERIFY OP_DROP <finalKey> OP_CHECKSIG
//	OP_ENDIF
func revocableDeliveryScript(revocationHash160 []byte, commitKey *btcec.PublicKey,
	delay uint32, finalKey *btcec.PublicKey) ([]byte, error) {

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(revocationHash160)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddData(commitKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(delay))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(finalKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)
	return builder.Script()
}

// htlcScript locks an escrowed HTLC output so the payee can claim it with
// the preimage, or the payer can reclaim it once expiry has passed.
//
//	OP_IF
//	    OP_HASH160 <rhash160> OP_EQUALVERIFY <payeeKey> OP_CHECKSIG
//	OP_ELSE
//	    <expiry> OP_CHECKLOCKTIMEVERIFY OP_DROP <payerKey> OP_CHECKSIG
//	OP_ENDIF
func htlcScript(rhash160 []byte, payeeKey *btcec.PublicKey, expiry uint32,
	payerKey *btcec.PublicKey) ([]byte, error) {

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(rhash160)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddData(payeeKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(expiry))
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(payerKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)
	return builder.Script()
}

// finalPayScript is a plain pay-to-pubkey-hash script: the counterparty's
// share of a commitment transaction is never at risk of revocation, so it
// is paid out directly rather than through the revocable template.
func finalPayScript(key *btcec.PublicKey) ([]byte, error) {
	pkHash := btcutil.Hash160(key.SerializeCompressed())
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_DUP)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(pkHash)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddOp(txscript.OP_CHECKSIG)
	return builder.Script()
}

// CommitmentParams holds everything needed to build both sides' commitment
// transactions besides the current balance snapshot, which changes on
// every update.
type CommitmentParams struct {
	// AnchorOutPoint is the single input both commitment transactions
	// spend: the 2-of-2 anchor output.
	AnchorOutPoint wire.OutPoint

	// OurCommitKey/TheirCommitKey sign the revocable branch of each
	// party's own delayed output.
	OurCommitKey, TheirCommitKey *btcec.PublicKey

	// OurFinalKey/TheirFinalKey receive funds once the relative delay
	// has passed, or directly when the output is the counterparty's.
	OurFinalKey, TheirFinalKey *btcec.PublicKey

	// Delay is the relative locktime imposed on a party's own delayed
	// commitment output: the delay value of our open packet, in seconds,
	// pushed unchanged as the OP_CHECKSEQUENCEVERIFY operand.
	Delay uint32
}

// MakeCommitTxs builds the pair of mirrored commitment transactions for
// the balance snapshot in cstate: ourCommitTx is the transaction we can
// unilaterally broadcast (our payout is revocable, theirs is direct),
// theirCommitTx is its mirror image. cstate.A is read as our side,
// cstate.B as theirs.
func MakeCommitTxs(params *CommitmentParams, ourRevocationHash,
	theirRevocationHash lnwire.Sha256Hash, cstate *CState) (ourCommitTx,
	theirCommitTx *wire.MsgTx, err error) {

	ourCommitTx, err = buildCommitTx(params, ourRevocationHash, &cstate.A, &cstate.B, true)
	if err != nil {
		return nil, nil, fmt.Errorf("building our commitment: %v", err)
	}

	theirCommitTx, err = buildCommitTx(params, theirRevocationHash, &cstate.B, &cstate.A, false)
	if err != nil {
		return nil, nil, fmt.Errorf("building their commitment: %v", err)
	}

	lnwlLog.Debugf("built commitment pair over anchor %v: our_pay=%d their_pay=%d",
		params.AnchorOutPoint, cstate.A.PayMSat, cstate.B.PayMSat)

	return ourCommitTx, theirCommitTx, nil
}

// buildCommitTx assembles a single commitment transaction, as seen by the
// party who would broadcast it. owner is the side whose payout is
// revocable in this transaction; counterparty's payout is direct.
func buildCommitTx(params *CommitmentParams, ownerRevocationHash lnwire.Sha256Hash,
	owner, counterparty *ChannelOneSide, ownerIsUs bool) (*wire.MsgTx, error) {

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&params.AnchorOutPoint, nil, nil))

	ownerCommitKey, ownerFinalKey := params.OurCommitKey, params.OurFinalKey
	cpFinalKey := params.TheirFinalKey
	if !ownerIsUs {
		ownerCommitKey, ownerFinalKey = params.TheirCommitKey, params.TheirFinalKey
		cpFinalKey = params.OurFinalKey
	}

	if owner.PayMSat > 0 {
		revHash160 := Ripemd160H(ownerRevocationHash[:])
		script, err := revocableDeliveryScript(revHash160, ownerCommitKey,
			params.Delay, ownerFinalKey)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(owner.PayMSat/1000), script))
	}

	if counterparty.PayMSat > 0 {
		script, err := finalPayScript(cpFinalKey)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(counterparty.PayMSat/1000), script))
	}

	for _, h := range owner.HTLCs {
		script, err := htlcScript(Ripemd160H(h.RHash[:]), cpFinalKey,
			uint32(h.Expiry), ownerFinalKey)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(h.MSatoshis/1000), script))
	}
	for _, h := range counterparty.HTLCs {
		script, err := htlcScript(Ripemd160H(h.RHash[:]), ownerFinalKey,
			uint32(h.Expiry), cpFinalKey)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(h.MSatoshis/1000), script))
	}

	return tx, nil
}
