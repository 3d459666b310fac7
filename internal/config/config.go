// Package config provides configuration management for the Meshport Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8878
	DefaultLogLevel = "info"
	DefaultDataDir  = ".meshport"

	// Environment variable names
	EnvPort        = "MESHPORT_PORT"
	EnvLogLevel    = "MESHPORT_LOG_LEVEL"
	EnvDataDir     = "MESHPORT_DATA_DIR"
	EnvProjectRoot = "MESHPORT_PROJECT_ROOT"
	EnvPresetsFile = "MESHPORT_PRESETS_FILE"
	EnvExportTool  = "MESHPORT_EXPORT_TOOL"
	EnvHeadless    = "MESHPORT_HEADLESS"

	// Database filename
	DBFilename = "meshport.db"

	// Export defaults
	DefaultExportTimeout = 300 // seconds per encoder invocation
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ProjectRoot() string
	PresetsFile() string
	ExportTool() string
	ExportTimeout() time.Duration
	Headless() bool
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port        int
	logLevel    string
	dataDir     string
	projectRoot string
	presetsFile string
	exportTool  string
	headless    bool
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:     DefaultPort,
		logLevel: DefaultLogLevel,
		dataDir:  defaultDataDir(),
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if pr := os.Getenv(EnvProjectRoot); pr != "" {
		abs, err := filepath.Abs(pr)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvProjectRoot, err)
		}
		cfg.projectRoot = abs
	}

	cfg.presetsFile = os.Getenv(EnvPresetsFile)
	cfg.exportTool = os.Getenv(EnvExportTool)

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ProjectRoot returns the configured project root directory, or "" if unset.
// This is only the bootstrap value; the live value is kept in the agent's
// config store so the host can change it without a restart.
func (c *EnvConfig) ProjectRoot() string {
	return c.projectRoot
}

// PresetsFile returns the path to an optional preset definition file
func (c *EnvConfig) PresetsFile() string {
	return c.presetsFile
}

// ExportTool returns the path to the external encoder binary, or "" if
// the agent should run with the stub encoder.
func (c *EnvConfig) ExportTool() string {
	return c.exportTool
}

// ExportTimeout returns the timeout applied to a single encoder invocation
func (c *EnvConfig) ExportTimeout() time.Duration {
	return time.Duration(DefaultExportTimeout) * time.Second
}

// Headless reports whether the system tray should be disabled
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
