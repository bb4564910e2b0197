package lnwallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnlite/lnwire"
)

func testParams(t *testing.T) *CommitmentParams {
	t.Helper()

	genKey := func(b byte) *btcec.PublicKey {
		priv, pub := btcec.PrivKeyFromBytes(btcec.S256(), bytes32(b))
		_ = priv
		return pub
	}

	return &CommitmentParams{
		AnchorOutPoint: wire.OutPoint{Hash: chainhashZero(), Index: 0},
		OurCommitKey:   genKey(0x01),
		TheirCommitKey: genKey(0x02),
		OurFinalKey:    genKey(0x03),
		TheirFinalKey:  genKey(0x04),
		Delay:          144,
	}
}

func bytes32(b byte) []byte {
	out := make([]byte, 32)
	out[31] = b
	out[0] = 0x01
	return out
}

func chainhashZero() (h [32]byte) { return h }

func TestMakeCommitTxsConservesOutputValue(t *testing.T) {
	params := testParams(t)

	cstate, err := InitialFunding(true, 1000000, 500)
	if err != nil {
		t.Fatalf("InitialFunding: %v", err)
	}
	cstate.B.PayMSat = 0

	const htlcAmt = 50000
	if !Delta(true, 1000000, -htlcAmt, 0, &cstate.A, &cstate.B) {
		t.Fatal("Delta rejected an affordable HTLC reservation")
	}
	cstate.A.AddHTLC(htlcAmt, 500000, lnwire.Sha256Hash{0xaa})

	ourTx, theirTx, err := MakeCommitTxs(params, lnwire.Sha256Hash{0x10},
		lnwire.Sha256Hash{0x20}, cstate)
	if err != nil {
		t.Fatalf("MakeCommitTxs: %v", err)
	}

	wantSatoshis := int64((cstate.TotalFunds() - cstate.A.FeeMSat - cstate.B.FeeMSat) / 1000)

	for name, tx := range map[string]*wire.MsgTx{"ours": ourTx, "theirs": theirTx} {
		if len(tx.TxIn) != 1 {
			t.Errorf("%s: got %d inputs, want 1", name, len(tx.TxIn))
		}
		var total int64
		for _, out := range tx.TxOut {
			total += out.Value
		}
		if total != wantSatoshis {
			t.Errorf("%s: output total %d sat, want %d", name, total, wantSatoshis)
		}
	}
}

func TestMakeCommitTxsSkipsZeroOutputs(t *testing.T) {
	params := testParams(t)

	cstate, err := InitialFunding(true, 1000000, 500)
	if err != nil {
		t.Fatalf("InitialFunding: %v", err)
	}

	ourTx, theirTx, err := MakeCommitTxs(params, lnwire.Sha256Hash{0x10},
		lnwire.Sha256Hash{0x20}, cstate)
	if err != nil {
		t.Fatalf("MakeCommitTxs: %v", err)
	}

	// The non-funder starts at zero, so neither commitment transaction
	// should contain an output for it.
	if len(ourTx.TxOut) != 1 {
		t.Errorf("ourTx: got %d outputs, want 1", len(ourTx.TxOut))
	}
	if len(theirTx.TxOut) != 1 {
		t.Errorf("theirTx: got %d outputs, want 1", len(theirTx.TxOut))
	}
}
