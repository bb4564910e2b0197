package routing

import (
	"testing"

	"github.com/lightningnetwork/lnlite/lnwire"
)

func pk(b byte) lnwire.BitcoinPubkey {
	var k lnwire.BitcoinPubkey
	k[0] = 0x02
	k[len(k)-1] = b
	return k
}

// TestFindRouteTwoHops reproduces a local->B->C route where every edge
// charges both a base and a proportional fee, and checks the reported
// fee matches summing the per-hop costs from the destination backward.
func TestFindRouteTwoHops(t *testing.T) {
	local, b, c := pk(1), pk(2), pk(3)

	g := NewGraph()
	g.AddConnection(local, b, 1000, 1000, 10, 1)
	g.AddConnection(b, c, 2000, 2000, 20, 1)

	const amt = 1000000
	route, err := FindRoute(g, local, c, amt, 1.0, DefaultRoutingMaxHops)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}

	if len(route.Hops) != 2 {
		t.Fatalf("got %d hops, want 2", len(route.Hops))
	}
	if route.Hops[0].Src.ID != local || route.Hops[0].Dst.ID != b {
		t.Fatalf("first hop = %+v, want local->b", route.Hops[0])
	}
	if route.Hops[1].Src.ID != b || route.Hops[1].Dst.ID != c {
		t.Fatalf("second hop = %+v, want b->c", route.Hops[1])
	}

	feeBC := connectionFee(route.Hops[1], amt)
	mPrime := amt + feeBC
	feeAB := connectionFee(route.Hops[0], mPrime)
	wantFee := feeAB + feeBC

	if route.TotalFeeMSat != wantFee {
		t.Errorf("fee = %d, want %d", route.TotalFeeMSat, wantFee)
	}
}

// TestFindRouteNoRouteAfterRemoval mirrors the no-route scenario: once
// the only edge toward the destination is removed, FindRoute must fail
// cleanly rather than return a stale path.
func TestFindRouteNoRouteAfterRemoval(t *testing.T) {
	local, b := pk(1), pk(2)

	g := NewGraph()
	g.AddConnection(local, b, 1000, 1000, 10, 1)

	if _, err := FindRoute(g, local, b, 1000000, 1.0, DefaultRoutingMaxHops); err != nil {
		t.Fatalf("FindRoute before removal: %v", err)
	}

	g.RemoveConnection(local, b)

	_, err := FindRoute(g, local, b, 1000000, 1.0, DefaultRoutingMaxHops)
	if err != ErrNoRoute {
		t.Fatalf("FindRoute after removal: got %v, want ErrNoRoute", err)
	}
}

func TestFindRouteUnknownDestination(t *testing.T) {
	local, b := pk(1), pk(2)

	g := NewGraph()
	g.AddNode(local, "", 0)

	_, err := FindRoute(g, local, b, 1000, 1.0, DefaultRoutingMaxHops)
	if err != ErrUnknownDestination {
		t.Fatalf("got %v, want ErrUnknownDestination", err)
	}
}

func TestConnectionFeeSaturatesOnOverflow(t *testing.T) {
	c := &Connection{BaseFee: 0, ProportionalFee: 1 << 30}
	fee := connectionFee(c, 1<<40)
	if fee != Infinite {
		t.Errorf("fee = %d, want Infinite (%d)", fee, Infinite)
	}
}

func TestRiskFeeNegativeAmountFloorsAtOne(t *testing.T) {
	if got := riskFee(-1, 100, 1.0); got != 1 {
		t.Errorf("riskFee(-1,...) = %d, want 1", got)
	}
}
