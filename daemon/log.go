package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/lightningnetwork/lnlite/lnpeer"
	"github.com/lightningnetwork/lnlite/lnwallet"
	"github.com/lightningnetwork/lnlite/routing"
	"github.com/lightningnetwork/lnlite/shachain"
)

// stdoutWriter is the logging backend's writer. It always echoes to
// stdout, and once initLogRotator has run it also fans the same bytes out
// to the rotated log file.
type stdoutWriter struct{}

func (stdoutWriter) Write(p []byte) (int, error) {
	if logRotator != nil {
		logRotator.Write(p)
	}
	return os.Stdout.Write(p)
}

var (
	backendLog = btclog.NewBackend(stdoutWriter{})

	// logRotator is one of the logging outputs. It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	lnddLog = backendLog.Logger("LNDD")
	lwltLog = backendLog.Logger("LWLT")
	peerLog = backendLog.Logger("PEER")
	rtngLog = backendLog.Logger("RTNG")
	shcnLog = backendLog.Logger("SHCN")
)

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"LNDD": lnddLog,
	"LWLT": lwltLog,
	"PEER": peerLog,
	"RTNG": rtngLog,
	"SHCN": shcnLog,
}

func init() {
	lnwallet.UseLogger(lwltLog)
	lnpeer.UseLogger(peerLog)
	routing.UseLogger(rtngLog)
	shachain.UseLogger(shcnLog)
}

// initLogRotator initializes the logging rotator to write logs to logFile
// and create roll files in the same directory. It must be called before
// any subsystem logger is used in anger.
func initLogRotator(logFile string, maxLogFileSize, maxLogFiles int) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %v", err)
	}

	r, err := rotator.New(logFile, int64(maxLogFileSize*1024), false, maxLogFiles)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %v", err)
	}

	logRotator = r
	return nil
}

// setLogLevel sets the logging level for the named subsystem. Unknown
// subsystems are ignored.
func setLogLevel(subsystemID, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets every subsystem logger to the same level. It is used to
// apply the daemon's single --debuglevel flag at startup.
func setLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}
