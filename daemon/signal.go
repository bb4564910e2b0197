package daemon

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// shutdownChannel is closed exactly once, the first time an interrupt is
// received or requestShutdown is called directly. There is no third-party signal library anywhere in the corpus
// to ground this on; os/signal is the only idiomatic way to observe
// SIGINT/SIGTERM in Go, so this stays on the standard library.
var (
	shutdownChannel = make(chan struct{})
	shutdownOnce    sync.Once
)

// listenForShutdown installs SIGINT/SIGTERM handlers that close
// shutdownChannel exactly once.
func listenForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		lnddLog.Infof("received interrupt, shutting down")
		requestShutdown()
	}()
}

// requestShutdown triggers a graceful shutdown from anywhere in the
// daemon, not just the signal handler.
func requestShutdown() {
	shutdownOnce.Do(func() {
		close(shutdownChannel)
	})
}

// ShutdownChannel is closed once a shutdown has been requested.
func ShutdownChannel() <-chan struct{} {
	return shutdownChannel
}
