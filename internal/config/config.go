// Package config centralizes process configuration. Settings load from
// environment variables with sensible defaults and are validated on startup
// to fail fast on misconfiguration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// BlobDriver selects the report repository backend: fs|s3|memory.
	BlobDriver string
	// ReportFolder is the repository folder holding the report file.
	ReportFolder string
	// ReportFile is the workbook file name inside ReportFolder.
	ReportFile string
	// Facility tags this deployment's report (one report per facility).
	Facility string
	// DropIfEmpty omits a sheet from the write when its new batch is
	// empty, reproducing the legacy write shape. Opt out with false.
	DropIfEmpty bool
	// RosterFile optionally points at the roster workbook. When set, the
	// CLI resolves fleet figures from it and the daemon validates batch
	// POIs against it.
	RosterFile string

	// LedgerDriver selects the run ledger backend: sqlite|postgres|memory.
	LedgerDriver string

	// LogLevel is debug|info|warn|error; LogFormat is text|json.
	LogLevel  string
	LogFormat string

	// ListenAddr is the daemon's HTTP bind address for /metrics and
	// /healthz.
	ListenAddr string
	// Interval is the daemon's scan interval for pending batch files.
	Interval time.Duration
	// SourceDir is the drop-box directory the scraper writes batch files
	// into.
	SourceDir string
}

// Load reads configuration from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		BlobDriver:   getenv("FLEETREPORTS_BLOB_DRIVER", "fs"),
		ReportFolder: getenv("FLEETREPORTS_REPORT_FOLDER", "Reports"),
		ReportFile:   getenv("FLEETREPORTS_REPORT_FILE", "fleet_reports.xlsx"),
		Facility:     os.Getenv("FLEETREPORTS_FACILITY"),
		DropIfEmpty:  getenvBool("FLEETREPORTS_DROP_IF_EMPTY", true),
		RosterFile:   os.Getenv("FLEETREPORTS_ROSTER_FILE"),
		LedgerDriver: getenv("FLEETREPORTS_LEDGER_DRIVER", "sqlite"),
		LogLevel:     getenv("FLEETREPORTS_LOG_LEVEL", "info"),
		LogFormat:    getenv("FLEETREPORTS_LOG_FORMAT", "text"),
		ListenAddr:   getenv("FLEETREPORTS_LISTEN_ADDR", ":9180"),
		SourceDir:    getenv("FLEETREPORTS_SOURCE_DIR", "./incoming"),
	}
	interval, err := time.ParseDuration(getenv("FLEETREPORTS_INTERVAL", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("config: FLEETREPORTS_INTERVAL: %w", err)
	}
	cfg.Interval = interval
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would only fail later at first use.
func (c Config) Validate() error {
	switch c.BlobDriver {
	case "fs", "s3", "memory":
	default:
		return fmt.Errorf("config: unknown blob driver %q", c.BlobDriver)
	}
	switch c.LedgerDriver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown ledger driver %q", c.LedgerDriver)
	}
	if c.ReportFile == "" {
		return fmt.Errorf("config: report file name required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("config: interval must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return fallback
	}
	return b
}
