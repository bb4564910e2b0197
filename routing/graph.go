package routing

import (
	"sync"

	"github.com/lightningnetwork/lnlite/lnwire"
)

// Node is a single vertex in the channel graph: a network peer plus its
// known incoming and outgoing channel connections.
type Node struct {
	ID       lnwire.BitcoinPubkey
	Hostname string
	Port     int

	in  []*Connection
	out []*Connection

	bfg [MaxHopsHardLimit + 1]bfgEntry
}

// Connection is a directed, fee-bearing edge of the channel graph: a
// channel announced from Src to Dst.
type Connection struct {
	Src, Dst *Node

	// BaseFee is charged per forwarded payment, in millisatoshi.
	BaseFee uint32

	// ProportionalFee is charged per forwarded payment, in millionths
	// of the forwarded amount.
	ProportionalFee int32

	// Delay is the additional relative locktime this hop imposes on an
	// HTLC routed through it, in blocks.
	Delay uint32

	// MinBlocks is the minimum timeout this hop requires before it will
	// forward, in blocks.
	MinBlocks uint32
}

type bfgEntry struct {
	total int64
	risk  uint64
	prev  *Connection
}

// Graph is the gossiped channel topology: a set of nodes connected by
// directed, fee-bearing channel announcements. It is safe for concurrent
// use; every mutating method takes the graph's write lock.
type Graph struct {
	mu    sync.RWMutex
	nodes map[lnwire.BitcoinPubkey]*Node
}

// NewGraph returns an empty channel graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[lnwire.BitcoinPubkey]*Node),
	}
}

// GetNode returns the node known under id, or nil if no such node has
// been seen.
func (g *Graph) GetNode(id lnwire.BitcoinPubkey) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

func (g *Graph) getOrNewNodeLocked(id lnwire.BitcoinPubkey) *Node {
	n, ok := g.nodes[id]
	if ok {
		return n
	}
	n = &Node{ID: id}
	g.nodes[id] = n
	return n
}

// AddNode upserts a node's gossip attributes: a fresh call creates the
// node, a repeat call for a known id just refreshes its address.
func (g *Graph) AddNode(id lnwire.BitcoinPubkey, hostname string, port int) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, existed := g.nodes[id]
	if !existed {
		n = &Node{ID: id}
		g.nodes[id] = n
		rtngLog.Debugf("Creating new node %x", id)
	} else {
		rtngLog.Debugf("Update existing node %x", id)
	}
	n.Hostname = hostname
	n.Port = port
	return n
}

func (g *Graph) getOrMakeConnectionLocked(from, to lnwire.BitcoinPubkey) *Connection {
	fromNode := g.getOrNewNodeLocked(from)
	toNode := g.getOrNewNodeLocked(to)

	for _, c := range toNode.in {
		if c.Src == fromNode {
			rtngLog.Debugf("Updating existing route from %x to %x", from, to)
			return c
		}
	}

	rtngLog.Debugf("Creating new route from %x to %x", from, to)
	c := &Connection{Src: fromNode, Dst: toNode}
	toNode.in = append(toNode.in, c)
	fromNode.out = append(fromNode.out, c)
	return c
}

// AddConnection upserts the directed channel edge from -> to with the
// given fee and delay terms, creating either endpoint node if it is not
// already known.
func (g *Graph) AddConnection(from, to lnwire.BitcoinPubkey, baseFee uint32,
	proportionalFee int32, delay, minBlocks uint32) *Connection {

	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.getOrMakeConnectionLocked(from, to)
	c.BaseFee = baseFee
	c.ProportionalFee = proportionalFee
	c.Delay = delay
	c.MinBlocks = minBlocks
	return c
}

// RemoveConnection deletes the directed edge src -> dst, if one exists.
func (g *Graph) RemoveConnection(src, dst lnwire.BitcoinPubkey) {
	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.nodes[src]
	if !ok {
		return
	}
	to, ok := g.nodes[dst]
	if !ok {
		return
	}

	for i, c := range from.out {
		if c.Dst != to {
			continue
		}
		from.out = append(from.out[:i], from.out[i+1:]...)
		removeConnFromSlice(&to.in, c)
		return
	}
}

func removeConnFromSlice(conns *[]*Connection, target *Connection) {
	for i, c := range *conns {
		if c == target {
			*conns = append((*conns)[:i], (*conns)[i+1:]...)
			return
		}
	}
}

// Channels returns every directed edge currently known, in the shape the
// getchannels control-surface call reports.
func (g *Graph) Channels() []ChannelInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []ChannelInfo
	for _, n := range g.nodes {
		for _, c := range n.out {
			out = append(out, ChannelInfo{
				From:            c.Src.ID,
				To:              c.Dst.ID,
				BaseFee:         c.BaseFee,
				ProportionalFee: c.ProportionalFee,
			})
		}
	}
	return out
}

// ChannelInfo is the control-surface projection of a single directed
// channel edge.
type ChannelInfo struct {
	From, To        lnwire.BitcoinPubkey
	BaseFee         uint32
	ProportionalFee int32
}

// NodeInfo is the control-surface projection of a single graph node.
type NodeInfo struct {
	ID       lnwire.BitcoinPubkey
	Hostname string
	Port     int
}

// Nodes returns every node currently known.
func (g *Graph) Nodes() []NodeInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]NodeInfo, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, NodeInfo{ID: n.ID, Hostname: n.Hostname, Port: n.Port})
	}
	return out
}
