package routing

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/lightningnetwork/lnlite/lnwire"
)

// Engine wraps a channel Graph with the operational knobs the control
// surface and peer handlers need around it: the riskfactor and hop limit
// used for every route query, the dev-routefail toggle, and a rate limit
// on graph-mutating gossip so a misbehaving peer cannot flood the graph.
type Engine struct {
	Graph *Graph

	Riskfactor float64
	MaxHops    int

	devNeverRouteFail bool

	mutateLimiter *rate.Limiter
}

// NewEngine returns an Engine over a fresh, empty graph. mutateRate and
// mutateBurst configure the token bucket guarding AddRoute/RemoveRoute.
func NewEngine(riskfactor float64, maxHops int, mutateRate rate.Limit, mutateBurst int) *Engine {
	return &Engine{
		Graph:         NewGraph(),
		Riskfactor:    riskfactor,
		MaxHops:       maxHops,
		mutateLimiter: rate.NewLimiter(mutateRate, mutateBurst),
	}
}

// SetDevNeverRouteFail toggles dev-routefail: while it is set, every
// FindRoute call fails without consulting the graph. It backs the
// dev-routefail control surface call and exists purely for integration
// testing.
func (e *Engine) SetDevNeverRouteFail(never bool) {
	rtngLog.Debugf("dev-routefail: routefail %s", enabledStr(never))
	e.devNeverRouteFail = never
}

func enabledStr(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

// DevNeverRouteFail reports the current dev-routefail setting.
func (e *Engine) DevNeverRouteFail() bool {
	return e.devNeverRouteFail
}

// FindRoute runs the pathfinder using the engine's configured riskfactor
// and hop limit. When dev-routefail is enabled, it forces a failure before
// ever touching the graph, so integration tests can exercise a payment's
// failure path deterministically instead of depending on graph topology to
// produce one.
func (e *Engine) FindRoute(local, dst lnwire.BitcoinPubkey, msatoshi int64) (*Route, error) {
	if e.devNeverRouteFail {
		return nil, fmt.Errorf("dev-routefail: no route (forced failure)")
	}
	return FindRoute(e.Graph, local, dst, msatoshi, e.Riskfactor, e.MaxHops)
}

// AddRoute upserts a gossiped channel edge, subject to the engine's
// mutation rate limit.
func (e *Engine) AddRoute(ctx context.Context, src, dst lnwire.BitcoinPubkey,
	baseFee uint32, propFee int32, delay, minBlocks uint32) error {

	if err := e.mutateLimiter.Wait(ctx); err != nil {
		return err
	}
	e.Graph.AddConnection(src, dst, baseFee, propFee, delay, minBlocks)
	return nil
}

// RemoveRoute detaches a gossiped channel edge, subject to the engine's
// mutation rate limit.
func (e *Engine) RemoveRoute(ctx context.Context, src, dst lnwire.BitcoinPubkey) error {
	if err := e.mutateLimiter.Wait(ctx); err != nil {
		return err
	}
	e.Graph.RemoveConnection(src, dst)
	return nil
}

// defaultMutationBudget is a reasonable ceiling on gossip-driven graph
// edits per second for a single node, used when the daemon does not
// override it from configuration.
const defaultMutationBudget = rate.Limit(50)

const defaultMutationBurst = 100

// NewDefaultEngine returns an Engine configured with the package's
// default riskfactor, hop limit, and gossip rate budget.
func NewDefaultEngine() *Engine {
	return NewEngine(1.0, DefaultRoutingMaxHops, defaultMutationBudget, defaultMutationBurst)
}
