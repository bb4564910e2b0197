package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/lightningnetwork/lnlite/routing"
)

const (
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "lnd.log"
	defaultConfigFilename = "lnd.conf"
	defaultMaxLogFileSize = 10
	defaultMaxLogFiles    = 3

	defaultListenAddr  = "0.0.0.0:9735"
	defaultControlAddr = "localhost:8675"

	defaultAdminMacFilename = "admin.macaroon"
	defaultMacaroonDBFile   = "macaroons.db"

	defaultRiskfactor = 1.0
)

// Config is the daemon's full runtime configuration, populated by
// loadConfig from command-line flags using struct-tag driven parsing; no
// config file is read.
type Config struct {
	DataDir string `long:"datadir" description:"The directory to store lnlite's data within"`
	LogDir  string `long:"logdir" description:"Directory to log output"`

	DebugLevel     string `long:"debuglevel" description:"Logging level for all subsystems"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum log file size in MB"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum number of rotated log files to keep"`

	ListenAddr  string `long:"listen" description:"host:port to accept inbound peer connections on"`
	ControlAddr string `long:"controladdr" description:"host:port the macaroon-gated control surface listens on"`

	RelLocktimeMax    uint32 `long:"rel-locktime-max" description:"Relative locktime, in seconds; one thirtieth of it is the delay we propose in our open packet (a peer's demand is checked against a fixed ceiling)"`
	AnchorConfirmsMax uint32 `long:"anchor-confirms-max" description:"Anchor confirmation depth; not consulted (a peer's demand is checked against a fixed ceiling)"`
	CommitmentFeeMin  int64  `long:"commitment-fee-min" description:"Commitment transaction fee, in satoshis, that we propose in our open packet (a peer's offer is checked against a fixed minimum)"`

	RoutingMaxHops int     `long:"routing-max-hops" description:"Maximum hop count the pathfinder will consider"`
	Riskfactor     float64 `long:"riskfactor" description:"Per-hop risk weighting used by the pathfinder"`

	NoMacaroons  bool   `long:"no-macaroons" description:"Disable macaroon authentication on the control surface"`
	AdminMacPath string `long:"adminmacaroonpath" description:"Path to write the admin macaroon to"`

	StaticRoutes []string `long:"addroute" description:"Static route literal src/dst/base/var/delay/minblocks; may be repeated"`
}

func defaultConfig() *Config {
	return &Config{
		DataDir:           defaultDataDir(),
		LogDir:            defaultLogDir(),
		DebugLevel:        "info",
		MaxLogFileSize:    defaultMaxLogFileSize,
		MaxLogFiles:       defaultMaxLogFiles,
		ListenAddr:        defaultListenAddr,
		ControlAddr:       defaultControlAddr,
		RelLocktimeMax:    144 * 30,
		AnchorConfirmsMax: 144,
		CommitmentFeeMin:  1,
		RoutingMaxHops:    routing.DefaultRoutingMaxHops,
		Riskfactor:        defaultRiskfactor,
		AdminMacPath:      "",
	}
}

func defaultDataDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".lnlite", defaultDataDirname)
	}
	return filepath.Join(dir, ".lnlite", defaultDataDirname)
}

func defaultLogDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".lnlite", defaultLogDirname)
	}
	return filepath.Join(dir, ".lnlite", defaultLogDirname)
}

// loadConfig parses args (os.Args-shaped, first element ignored) into a
// Config seeded with the package defaults, then derives the data directory
// and macaroon path defaults that depend on other flags.
func loadConfig(args []string) (*Config, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args[1:]); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("unable to create data directory: %v", err)
	}

	if cfg.AdminMacPath == "" {
		cfg.AdminMacPath = filepath.Join(cfg.DataDir, defaultAdminMacFilename)
	}

	logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
	if err := initLogRotator(logFile, cfg.MaxLogFileSize, cfg.MaxLogFiles); err != nil {
		return nil, err
	}
	setLogLevels(cfg.DebugLevel)

	return cfg, nil
}

// macaroonDBPath returns the path to the bbolt database backing the
// macaroon root key store.
func (c *Config) macaroonDBPath() string {
	return filepath.Join(c.DataDir, defaultMacaroonDBFile)
}
