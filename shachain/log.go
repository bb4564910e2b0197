package shachain

import "github.com/btcsuite/btclog"

// shcnLog is the subsystem logger for the revocation preimage chain. It is
// disabled until the daemon wires a backend in with UseLogger.
var shcnLog = btclog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger btclog.Logger) {
	shcnLog = logger
}
