package routing

import (
	"errors"

	"github.com/lightningnetwork/lnlite/lnwire"
)

// BlocksPerYear approximates a year in 10-minute blocks: 365.25 * 24 * 6.
const BlocksPerYear = 52596

// Infinite is a total cost too large to ever be a real route, but small
// enough that adding a hop's fee to it cannot overflow an int64.
const Infinite int64 = 0x3FFFFFFFFFFFFFFF

// MaxHopsHardLimit bounds the per-node bfg scratch array; RoutingMaxHops
// configures the number of passes actually run, up to this ceiling.
const MaxHopsHardLimit = 27

// DefaultRoutingMaxHops is used when no explicit hop limit is configured.
const DefaultRoutingMaxHops = 20

// ErrNoRoute is returned when no path exists to the destination within
// the configured hop limit.
var ErrNoRoute = errors.New("no route found")

// ErrUnknownDestination is returned when FindRoute is asked to route to a
// node the graph has never seen.
var ErrUnknownDestination = errors.New("unknown destination")

// connectionFee computes the millisatoshi fee a hop charges to forward
// msatoshi, saturating to Infinite instead of overflowing when the
// proportional fee on a very large amount would otherwise wrap.
func connectionFee(c *Connection, msatoshi int64) int64 {
	prop := int64(c.ProportionalFee)
	if prop != 0 && msatoshi > (Infinite)/absInt64(prop) {
		return Infinite
	}
	fee := (prop * msatoshi) / 1000000
	return int64(c.BaseFee) + fee
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// riskFee is the cost of tying up amount msatoshi for delay blocks, given
// riskfactor. A tiny constant floor biases the search toward shorter
// routes when two paths otherwise cost the same.
func riskFee(amount int64, delay uint32, riskfactor float64) uint64 {
	if amount < 0 {
		return 1
	}
	return 1 + uint64(float64(amount)*float64(delay)*riskfactor/BlocksPerYear/10000)
}

func clearBFG(g *Graph) {
	for _, n := range g.nodes {
		for i := range n.bfg {
			n.bfg[i] = bfgEntry{total: Infinite, risk: 0}
		}
	}
}

// bfgOneEdge relaxes a single incoming edge of node across every path
// length tracked in the bfg scratch arrays: for every h, it asks whether
// routing h+1 hops through c beats whatever c.Src already has recorded
// for h+1 hops.
func bfgOneEdge(node *Node, c *Connection, maxHops int, riskfactor float64) {
	for h := 0; h <= maxHops; h++ {
		// No h-hop path reaches node yet, so there is nothing to extend.
		if node.bfg[h].total >= Infinite {
			continue
		}

		fee := connectionFee(c, node.bfg[h].total)
		risk := node.bfg[h].risk + riskFee(node.bfg[h].total+fee, c.Delay, riskfactor)

		if h+1 > maxHops {
			continue
		}

		candidateTotal := node.bfg[h].total + fee
		candidateCost := candidateTotal + int64(risk)
		existingCost := c.Src.bfg[h+1].total + int64(c.Src.bfg[h+1].risk)

		if candidateCost < existingCost {
			c.Src.bfg[h+1].total = candidateTotal
			c.Src.bfg[h+1].risk = risk
			c.Src.bfg[h+1].prev = c
		}
	}
}

// Hop is a single edge of a resolved route.
type Hop struct {
	Connection *Connection
}

// Route is the result of a successful FindRoute call.
type Route struct {
	// Hops is the path from the local node to the destination, in
	// forwarding order.
	Hops []*Connection

	// TotalFeeMSat is the sum of the fees of every edge in Hops: the amount
	// the local node must send minus the amount delivered.
	TotalFeeMSat int64
}

// FindRoute runs the length-indexed Bellman-Ford-Gibson search backwards
// from dst toward the local node, so that each node's running total
// represents the amount that must be sent from it for msatoshi to arrive
// at the destination. maxHops bounds both the path length considered and
// the number of relaxation passes run.
func FindRoute(g *Graph, local, dst lnwire.BitcoinPubkey, msatoshi int64,
	riskfactor float64, maxHops int) (*Route, error) {

	if maxHops <= 0 {
		maxHops = DefaultRoutingMaxHops
	}
	if maxHops > MaxHopsHardLimit {
		maxHops = MaxHopsHardLimit
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Routing runs backwards: bfg is seeded at the destination and
	// propagates toward the source, which is the *to* node from the
	// perspective of this search.
	dstNode := g.nodes[local]
	srcNode := g.nodes[dst]
	if srcNode == nil {
		return nil, ErrUnknownDestination
	}
	if dstNode == nil {
		return nil, ErrUnknownDestination
	}

	clearBFG(g)

	srcNode.bfg[0] = bfgEntry{total: msatoshi, risk: 0}

	for run := 0; run < maxHops; run++ {
		for _, n := range g.nodes {
			for _, c := range n.in {
				bfgOneEdge(n, c, maxHops, riskfactor)
			}
		}
	}

	best := 0
	for i := 1; i <= maxHops; i++ {
		if dstNode.bfg[i].total < dstNode.bfg[best].total {
			best = i
		}
	}

	if dstNode.bfg[best].total >= Infinite {
		return nil, ErrNoRoute
	}

	fee := dstNode.bfg[best].total - msatoshi

	// Walk prev pointers from the destination back to the first hop.
	hops := make([]*Connection, best)
	n := dstNode
	for i := best; i > 0; i-- {
		c := n.bfg[i].prev
		hops[best-i] = c
		n = c.Dst
	}
	if n != srcNode {
		return nil, ErrNoRoute
	}

	return &Route{Hops: hops, TotalFeeMSat: fee}, nil
}
