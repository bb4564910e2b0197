package lnwallet

import "github.com/btcsuite/btclog"

// lnwlLog is the subsystem logger for the balance engine and commitment
// transaction builder. It is disabled until the daemon wires a backend in
// with UseLogger.
var lnwlLog = btclog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger btclog.Logger) {
	lnwlLog = logger
}
