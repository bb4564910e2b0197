package daemon

import (
	"path/filepath"
	"testing"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dataDir := t.TempDir()
	logDir := t.TempDir()

	cfg, err := loadConfig([]string{"lnd", "--datadir", dataDir, "--logdir", logDir})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.ListenAddr != defaultListenAddr {
		t.Fatalf("ListenAddr = %q, want default %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.ControlAddr != defaultControlAddr {
		t.Fatalf("ControlAddr = %q, want default %q", cfg.ControlAddr, defaultControlAddr)
	}
	if cfg.Riskfactor != defaultRiskfactor {
		t.Fatalf("Riskfactor = %v, want default %v", cfg.Riskfactor, defaultRiskfactor)
	}

	wantAdminMacPath := filepath.Join(dataDir, defaultAdminMacFilename)
	if cfg.AdminMacPath != wantAdminMacPath {
		t.Fatalf("AdminMacPath = %q, want %q", cfg.AdminMacPath, wantAdminMacPath)
	}
}

func TestLoadConfigHonorsOverrides(t *testing.T) {
	dataDir := t.TempDir()
	logDir := t.TempDir()

	cfg, err := loadConfig([]string{
		"lnd",
		"--datadir", dataDir,
		"--logdir", logDir,
		"--listen", "127.0.0.1:10011",
		"--riskfactor", "2.5",
		"--no-macaroons",
		"--addroute", "aa/bb/10/100/6/1",
	})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.ListenAddr != "127.0.0.1:10011" {
		t.Fatalf("ListenAddr = %q, want override", cfg.ListenAddr)
	}
	if cfg.Riskfactor != 2.5 {
		t.Fatalf("Riskfactor = %v, want 2.5", cfg.Riskfactor)
	}
	if !cfg.NoMacaroons {
		t.Fatal("NoMacaroons should be true when --no-macaroons is passed")
	}
	if len(cfg.StaticRoutes) != 1 || cfg.StaticRoutes[0] != "aa/bb/10/100/6/1" {
		t.Fatalf("StaticRoutes = %v, want one literal", cfg.StaticRoutes)
	}
}

func TestConfigMacaroonDBPath(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/lnlite-data"}

	want := filepath.Join("/tmp/lnlite-data", defaultMacaroonDBFile)
	if got := cfg.macaroonDBPath(); got != want {
		t.Fatalf("macaroonDBPath() = %q, want %q", got, want)
	}
}
