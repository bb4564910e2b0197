package lnwallet

import (
	"testing"

	"github.com/btcsuite/btcutil"
	"github.com/lightningnetwork/lnlite/lnwire"
)

func TestInitialFunding(t *testing.T) {
	cstate, err := InitialFunding(true, 1000000, 500)
	if err != nil {
		t.Fatalf("InitialFunding: %v", err)
	}

	wantFee := lnwire.MilliSatoshi(500) * 1000
	wantPay := lnwire.MilliSatoshi(1000000)*1000 - wantFee

	if cstate.A.FeeMSat != wantFee {
		t.Errorf("funder fee = %d, want %d", cstate.A.FeeMSat, wantFee)
	}
	if cstate.A.PayMSat != wantPay {
		t.Errorf("funder pay = %d, want %d", cstate.A.PayMSat, wantPay)
	}
	if cstate.B.TotalFunds() != 0 {
		t.Errorf("non-funder should start at zero, got %d", cstate.B.TotalFunds())
	}
}

func TestInitialFundingInsufficientForFee(t *testing.T) {
	_, err := InitialFunding(true, 100, 500)
	if err == nil {
		t.Fatal("expected error when anchor cannot cover commitment fee")
	}
}

func TestCStateInvertIsInvolution(t *testing.T) {
	cstate, err := InitialFunding(true, 1000000, 500)
	if err != nil {
		t.Fatalf("InitialFunding: %v", err)
	}
	cstate.B.AddHTLC(1000, 500, lnwire.Sha256Hash{0x1})

	roundTripped := cstate.Invert().Invert()
	if roundTripped.A.TotalFunds() != cstate.A.TotalFunds() ||
		roundTripped.B.TotalFunds() != cstate.B.TotalFunds() {
		t.Fatalf("Invert(Invert(s)) != s: got %+v, want %+v", roundTripped, cstate)
	}
}

func TestCStateCopyIsIndependent(t *testing.T) {
	cstate, err := InitialFunding(true, 1000000, 500)
	if err != nil {
		t.Fatalf("InitialFunding: %v", err)
	}

	dup := cstate.Copy()
	dup.A.AddHTLC(42, 10, lnwire.Sha256Hash{0x9})

	if len(cstate.A.HTLCs) != 0 {
		t.Fatal("mutating the copy mutated the original")
	}
	if len(dup.A.HTLCs) != 1 {
		t.Fatal("copy did not record the mutation")
	}
}

func TestDeltaPreservesConservation(t *testing.T) {
	cstate, err := InitialFunding(true, 1000000, 500)
	if err != nil {
		t.Fatalf("InitialFunding: %v", err)
	}
	before := cstate.TotalFunds()

	const htlcAmt = 50000
	ok := Delta(true, 1000000, -htlcAmt, 0, &cstate.A, &cstate.B)
	if !ok {
		t.Fatal("Delta rejected a payment the funder could afford")
	}
	cstate.A.AddHTLC(htlcAmt, 144, lnwire.Sha256Hash{0x2})

	after := cstate.TotalFunds()
	if before != after {
		t.Fatalf("conservation violated: before %d, after %d", before, after)
	}
}

func TestDeltaRejectsOverdraft(t *testing.T) {
	cstate, err := InitialFunding(true, 1000000, 500)
	if err != nil {
		t.Fatalf("InitialFunding: %v", err)
	}

	ok := Delta(true, 1000000, 0, -int64(cstate.B.PayMSat)-1, &cstate.A, &cstate.B)
	if ok {
		t.Fatal("Delta allowed a balance to go negative")
	}
	if cstate.B.PayMSat != 0 {
		t.Fatal("Delta mutated state despite rejecting the transition")
	}
}

func TestCommitFeePicksGreater(t *testing.T) {
	got := CommitFee(btcutil.Amount(300), btcutil.Amount(700))
	if got != 700 {
		t.Errorf("CommitFee = %d, want 700", got)
	}
	got = CommitFee(btcutil.Amount(900), btcutil.Amount(700))
	if got != 900 {
		t.Errorf("CommitFee = %d, want 900", got)
	}
}
