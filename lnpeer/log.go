package lnpeer

import "github.com/btcsuite/btclog"

// peerLog is the subsystem logger for the channel protocol state machine.
// It is disabled until the daemon wires a backend in with UseLogger.
var peerLog = btclog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger btclog.Logger) {
	peerLog = logger
}
