package lnpeer

import (
	"net"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"

	"github.com/lightningnetwork/lnlite/lnwire"
	"github.com/lightningnetwork/lnlite/shachain"
)

type fakePeer struct{}

func (fakePeer) SendMessage(sync bool, msg ...lnwire.Message) error          { return nil }
func (fakePeer) AddNewChannel(channel *Channel, cancel <-chan struct{}) error { return nil }
func (fakePeer) WipeChannel(*wire.OutPoint) error                             { return nil }
func (fakePeer) PubKey() [33]byte                                            { return [33]byte{} }
func (fakePeer) IdentityKey() *btcec.PublicKey                               { return nil }
func (fakePeer) Address() net.Addr                                           { return nil }
func (fakePeer) QuitSignal() <-chan struct{}                                 { return nil }

type testSigner struct {
	priv *btcec.PrivateKey
}

func (s *testSigner) SignCommitment(tx *wire.MsgTx, redeemScript []byte,
	amt btcutil.Amount) (*btcec.Signature, error) {

	hash, err := txscript.CalcSignatureHash(redeemScript, txscript.SigHashAll, tx, 0)
	if err != nil {
		return nil, err
	}
	return s.priv.Sign(hash)
}

func keyPair(b byte) (*btcec.PrivateKey, *btcec.PublicKey) {
	buf := make([]byte, 32)
	buf[0], buf[31] = 0x01, b
	return btcec.PrivKeyFromBytes(btcec.S256(), buf)
}

func seed(b byte) [shachain.SeedSize]byte {
	var s [shachain.SeedSize]byte
	s[0] = b
	return s
}

// testChannels wires up a pair of Channels that believe they are talking
// to each other, with independent keys and revocation seeds.
type testChannelPair struct {
	alice, bob                     *Channel
	aliceProducer, bobProducer     *shachain.Producer
	aliceCommit, aliceFinal         *btcec.PrivateKey
	bobCommit, bobFinal             *btcec.PrivateKey
}

func newTestChannelPair(t *testing.T) *testChannelPair {
	t.Helper()

	aliceCommitPriv, aliceCommitPub := keyPair(0x01)
	aliceFinalPriv, aliceFinalPub := keyPair(0x02)
	bobCommitPriv, bobCommitPub := keyPair(0x03)
	bobFinalPriv, bobFinalPub := keyPair(0x04)

	aliceSeed, bobSeed := seed(0x10), seed(0x20)
	aliceProducer := shachain.NewProducer(aliceSeed)
	bobProducer := shachain.NewProducer(bobSeed)

	alice := NewChannel(fakePeer{}, &testSigner{aliceCommitPriv}, aliceSeed)
	bob := NewChannel(fakePeer{}, &testSigner{bobCommitPriv}, bobSeed)

	aliceRevHash0, err := aliceProducer.RevocationHash(0)
	if err != nil {
		t.Fatalf("aliceProducer.RevocationHash: %v", err)
	}
	bobRevHash0, err := bobProducer.RevocationHash(0)
	if err != nil {
		t.Fatalf("bobProducer.RevocationHash: %v", err)
	}

	aliceOpen := alice.CreateOpen(aliceRevHash0, aliceCommitPub, aliceFinalPub,
		144, 500, true, 1)
	bobOpen := bob.CreateOpen(bobRevHash0, bobCommitPub, bobFinalPub,
		144, 500, false, 1)

	if err := alice.HandleOpen(bobOpen); err != nil {
		t.Fatalf("alice.HandleOpen: %v", err)
	}
	if err := bob.HandleOpen(aliceOpen); err != nil {
		t.Fatalf("bob.HandleOpen: %v", err)
	}

	if !alice.funder {
		t.Fatal("alice should be the funder")
	}
	if bob.funder {
		t.Fatal("bob should not be the funder")
	}

	var anchor wire.OutPoint
	anchor.Index = 0

	openAnchor, err := alice.CreateOpenAnchor(anchor, 1000000)
	if err != nil {
		t.Fatalf("alice.CreateOpenAnchor: %v", err)
	}

	openCommitSig, err := bob.HandleOpenAnchor(openAnchor)
	if err != nil {
		t.Fatalf("bob.HandleOpenAnchor: %v", err)
	}

	if err := alice.HandleOpenCommitSig(openCommitSig); err != nil {
		t.Fatalf("alice.HandleOpenCommitSig: %v", err)
	}

	if err := alice.HandleOpenComplete(&lnwire.OpenComplete{}); err != nil {
		t.Fatalf("alice.HandleOpenComplete: %v", err)
	}
	if err := bob.HandleOpenComplete(&lnwire.OpenComplete{}); err != nil {
		t.Fatalf("bob.HandleOpenComplete: %v", err)
	}

	if alice.State() != StateNormal || bob.State() != StateNormal {
		t.Fatalf("expected both channels NORMAL, got alice=%v bob=%v",
			alice.State(), bob.State())
	}

	return &testChannelPair{
		alice: alice, bob: bob,
		aliceProducer: aliceProducer, bobProducer: bobProducer,
		aliceCommit: aliceCommitPriv, aliceFinal: aliceFinalPriv,
		bobCommit: bobCommitPriv, bobFinal: bobFinalPriv,
	}
}

func TestChannelOpenReachesNormal(t *testing.T) {
	pair := newTestChannelPair(t)

	if pair.alice.cstate.TotalFunds() != pair.bob.cstate.TotalFunds() {
		t.Errorf("conservation mismatch after open: alice=%d bob=%d",
			pair.alice.cstate.TotalFunds(), pair.bob.cstate.TotalFunds())
	}
}

func TestChannelHTLCAddFullHandshake(t *testing.T) {
	pair := newTestChannelPair(t)
	alice, bob := pair.alice, pair.bob

	rhash := lnwire.Sha256Hash{0xaa}
	addMsg, err := alice.CreateUpdateAddHTLC(50000, rhash, 500000)
	if err != nil {
		t.Fatalf("alice.CreateUpdateAddHTLC: %v", err)
	}

	accept, err := bob.HandleUpdateAddHTLC(addMsg)
	if err != nil {
		t.Fatalf("bob.HandleUpdateAddHTLC: %v", err)
	}

	signature, err := alice.HandleUpdateAccept(accept)
	if err != nil {
		t.Fatalf("alice.HandleUpdateAccept: %v", err)
	}

	complete, err := bob.HandleUpdateSignature(signature)
	if err != nil {
		t.Fatalf("bob.HandleUpdateSignature: %v", err)
	}

	if err := alice.HandleUpdateComplete(complete); err != nil {
		t.Fatalf("alice.HandleUpdateComplete: %v", err)
	}

	if alice.State() != StateNormal || bob.State() != StateNormal {
		t.Fatalf("expected both channels back to NORMAL, got alice=%v bob=%v",
			alice.State(), bob.State())
	}
	if alice.numCommits != 1 || bob.numCommits != 1 {
		t.Errorf("expected numCommits=1 on both sides, got alice=%d bob=%d",
			alice.numCommits, bob.numCommits)
	}
	if alice.cstate.TotalFunds() != bob.cstate.TotalFunds() {
		t.Errorf("conservation mismatch after htlc add: alice=%d bob=%d",
			alice.cstate.TotalFunds(), bob.cstate.TotalFunds())
	}
	if len(alice.cstate.A.HTLCs) != 1 {
		t.Errorf("expected alice to have escrowed 1 htlc, got %d", len(alice.cstate.A.HTLCs))
	}
	if len(bob.cstate.B.HTLCs) != 1 {
		t.Errorf("expected bob to see 1 htlc on the counterparty side, got %d", len(bob.cstate.B.HTLCs))
	}
}

func TestChannelHTLCAddRejectsSecondWhilePending(t *testing.T) {
	pair := newTestChannelPair(t)
	alice := pair.alice

	rhash := lnwire.Sha256Hash{0xaa}
	if _, err := alice.CreateUpdateAddHTLC(50000, rhash, 500000); err != nil {
		t.Fatalf("first CreateUpdateAddHTLC: %v", err)
	}

	if _, err := alice.CreateUpdateAddHTLC(1000, rhash, 500000); err == nil {
		t.Fatal("expected second update_add_htlc to be rejected while one is pending")
	}
}

func TestChannelHTLCAddRejectsOverdraft(t *testing.T) {
	pair := newTestChannelPair(t)
	alice, bob := pair.alice, pair.bob

	addMsg, err := alice.CreateUpdateAddHTLC(2_000_000_000, lnwire.Sha256Hash{0xaa}, 500000)
	if err != nil {
		t.Fatalf("alice.CreateUpdateAddHTLC: %v", err)
	}

	if _, err := bob.HandleUpdateAddHTLC(addMsg); err == nil {
		t.Fatal("expected bob to reject an htlc it cannot afford")
	}
	if bob.State() != StateError {
		t.Errorf("expected bob to enter ERROR state, got %v", bob.State())
	}
}

func TestHandleOpenRejectsBothSidesOfferingAnchor(t *testing.T) {
	_, aliceCommitPub := keyPair(0x01)
	_, aliceFinalPub := keyPair(0x02)
	_, bobCommitPub := keyPair(0x03)
	_, bobFinalPub := keyPair(0x04)

	aliceSeed, bobSeed := seed(0x10), seed(0x20)
	aliceProducer := shachain.NewProducer(aliceSeed)
	bobProducer := shachain.NewProducer(bobSeed)

	alice := NewChannel(fakePeer{}, nil, aliceSeed)
	bob := NewChannel(fakePeer{}, nil, bobSeed)

	aliceRevHash0, _ := aliceProducer.RevocationHash(0)
	bobRevHash0, _ := bobProducer.RevocationHash(0)

	aliceOpen := alice.CreateOpen(aliceRevHash0, aliceCommitPub, aliceFinalPub, 144, 500, true, 1)
	bobOpen := bob.CreateOpen(bobRevHash0, bobCommitPub, bobFinalPub, 144, 500, true, 1)

	if err := alice.HandleOpen(bobOpen); err == nil {
		t.Fatal("expected error when both sides offer to fund the anchor")
	}
	if alice.State() != StateError {
		t.Errorf("expected alice to enter ERROR state, got %v", alice.State())
	}
}

func TestHandleOpenRejectsBlockLocktime(t *testing.T) {
	_, aliceCommitPub := keyPair(0x01)
	_, aliceFinalPub := keyPair(0x02)

	aliceSeed := seed(0x10)
	aliceProducer := shachain.NewProducer(aliceSeed)
	alice := NewChannel(fakePeer{}, nil, aliceSeed)
	aliceRevHash0, _ := aliceProducer.RevocationHash(0)
	_ = alice.CreateOpen(aliceRevHash0, aliceCommitPub, aliceFinalPub, 144, 500, true, 1)

	badOpen := &lnwire.Open{
		RevocationHash: lnwire.Sha256Hash{0x01},
		CommitKey:      pubkeyToWire(aliceCommitPub),
		FinalKey:       pubkeyToWire(aliceFinalPub),
		Delay:          lnwire.Locktime{Case: lnwire.LocktimeBlocks, Value: 10},
		CommitmentFee:  500,
		AnchorOffer:    lnwire.WontCreateAnchor,
		MinDepth:       1,
	}

	if err := alice.HandleOpen(badOpen); err == nil {
		t.Fatal("expected error for blocks-denominated delay")
	}
}

func pubkeyToWire(key *btcec.PublicKey) (out lnwire.BitcoinPubkey) {
	copy(out[:], key.SerializeCompressed())
	return out
}
