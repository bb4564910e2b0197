package routing

import "github.com/btcsuite/btclog"

// rtngLog is the subsystem logger for the channel graph and pathfinder.
// It is disabled until the daemon wires a backend in with UseLogger.
var rtngLog = btclog.Disabled

// UseLogger sets the subsystem logger used by this package. Should be
// called before the package is used, typically during daemon startup.
func UseLogger(logger btclog.Logger) {
	rtngLog = logger
}
