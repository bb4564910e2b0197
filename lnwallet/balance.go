// Package lnwallet implements the channel balance engine and the
// commitment transaction builder: the pure, side-effect-free core that
// tracks each party's share of a channel and turns a balance snapshot into
// a signable pair of commitment transactions.
package lnwallet

import (
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/lightningnetwork/lnlite/lnwire"
)

// HTLC is a single escrowed, hash-locked entry funded by one side of the
// channel.
type HTLC struct {
	// MSatoshis is the amount this HTLC escrows, in millisatoshi.
	MSatoshis lnwire.MilliSatoshi

	// Expiry is the absolute locktime after which the payer may reclaim
	// the escrowed funds if the HTLC has not been settled.
	Expiry uint64

	// RHash is the hashlock this HTLC is conditioned on.
	RHash lnwire.Sha256Hash
}

// ChannelOneSide is one party's share of the channel: its unconditional
// payout, its share of the commitment fee, and the HTLCs it has funded.
type ChannelOneSide struct {
	// PayMSat is the unconditional payout owed to this side.
	PayMSat lnwire.MilliSatoshi

	// FeeMSat is this side's share of the commitment transaction fee.
	FeeMSat lnwire.MilliSatoshi

	// HTLCs is the ordered list of escrow entries this side has funded.
	HTLCs []HTLC
}

// TotalFunds sums every bucket of msatoshi this side currently owns:
// its payout, its fee share, and every HTLC it has funded. The sum of both
// sides' TotalFunds is the channel's conservation invariant (§3).
func (s *ChannelOneSide) TotalFunds() lnwire.MilliSatoshi {
	total := s.PayMSat + s.FeeMSat
	for _, h := range s.HTLCs {
		total += h.MSatoshis
	}
	return total
}

// AddHTLC appends a new escrow entry funded by this side.
func (s *ChannelOneSide) AddHTLC(msat lnwire.MilliSatoshi, expiry uint64, rhash lnwire.Sha256Hash) {
	s.HTLCs = append(s.HTLCs, HTLC{
		MSatoshis: msat,
		Expiry:    expiry,
		RHash:     rhash,
	})
}

func (s *ChannelOneSide) copy() ChannelOneSide {
	out := ChannelOneSide{
		PayMSat: s.PayMSat,
		FeeMSat: s.FeeMSat,
	}
	if len(s.HTLCs) > 0 {
		out.HTLCs = make([]HTLC, len(s.HTLCs))
		copy(out.HTLCs, s.HTLCs)
	}
	return out
}

// CState ("channel state") is the two-sided balance snapshot the rest of
// the core operates on: A is this node's view, B is the remote peer's.
type CState struct {
	A ChannelOneSide
	B ChannelOneSide
}

// TotalFunds returns the conserved total across both sides.
func (c *CState) TotalFunds() lnwire.MilliSatoshi {
	return c.A.TotalFunds() + c.B.TotalFunds()
}

// Copy returns a deep copy of c; mutating the result never aliases c.
func (c *CState) Copy() *CState {
	return &CState{
		A: c.A.copy(),
		B: c.B.copy(),
	}
}

// Invert returns a new CState with A and B swapped, giving the
// counterparty's view of the same channel. Invert(Invert(s)) == s.
func (c *CState) Invert() *CState {
	return &CState{A: c.B.copy(), B: c.A.copy()}
}

// CommitFee picks the commitment fee the funder will pay: the greater of
// the two sides' proposed fees, per the fee-split invariant in §3.
func CommitFee(theirFeeSat, ourFeeSat btcutil.Amount) btcutil.Amount {
	if theirFeeSat > ourFeeSat {
		return theirFeeSat
	}
	return ourFeeSat
}

// InitialFunding allocates the opening balance for a freshly anchored
// channel: the funder's payout is the anchor value minus the commitment
// fee it must cover, and the fee itself is attributed to the funder's
// FeeMSat bucket. The non-funder starts at zero. It fails if the funder
// cannot cover the fee out of the anchor.
func InitialFunding(funderIsA bool, anchorSatoshis, commitFeeSat btcutil.Amount) (*CState, error) {
	anchorMSat := lnwire.MilliSatoshi(anchorSatoshis) * 1000
	feeMSat := lnwire.MilliSatoshi(commitFeeSat) * 1000

	if feeMSat > anchorMSat {
		return nil, fmt.Errorf("insufficient funds for fee: anchor %d msat, fee %d msat",
			anchorMSat, feeMSat)
	}

	funder := ChannelOneSide{
		PayMSat: anchorMSat - feeMSat,
		FeeMSat: feeMSat,
	}

	cstate := &CState{}
	if funderIsA {
		cstate.A = funder
	} else {
		cstate.B = funder
	}
	return cstate, nil
}

// Delta moves msatoshi out of each side's unconditional payout, failing
// (without mutating either side) if doing so would drive a balance
// negative. deltaAMSat/deltaBMSat are signed: a negative value withdraws
// from that side's PayMSat (e.g. to fund an HTLC escrow via the caller's
// subsequent AddHTLC), a positive value credits it. Conservation across the
// whole CState is the caller's responsibility to verify once all of a
// transition's Delta/AddHTLC calls are complete; see
// lnpeer's update-to-new-state assertion.
func Delta(funderIsA bool, anchorSatoshis btcutil.Amount, deltaAMSat, deltaBMSat int64,
	a, b *ChannelOneSide) bool {

	newA := int64(a.PayMSat) + deltaAMSat
	newB := int64(b.PayMSat) + deltaBMSat
	if newA < 0 || newB < 0 {
		return false
	}

	a.PayMSat = lnwire.MilliSatoshi(newA)
	b.PayMSat = lnwire.MilliSatoshi(newB)
	return true
}
