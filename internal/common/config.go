package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Simulation  SimulationConfig `toml:"simulation"`
	Solvers     SolversConfig    `toml:"solvers"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
	Cleanup     CleanupConfig    `toml:"cleanup"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// SimulationConfig controls how running simulations are monitored.
// All durations are strings parsed with time.ParseDuration.
type SimulationConfig struct {
	WorkRoot       string  `toml:"work_root"`        // Root directory for per-job working directories
	PollInterval   string  `toml:"poll_interval"`    // How often the monitor polls a running job (default: "15s")
	CancelGrace    string  `toml:"cancel_grace"`     // Grace period between terminate and kill on cancel (default: "2s")
	EstimateAfter  string  `toml:"estimate_after"`   // Minimum elapsed wall time before an ETA is computed (default: "10s")
	LogTailLines   int     `toml:"log_tail_lines"`   // Number of stdout lines scanned for legacy progress (default: 20)
	HeuristicCapPC float64 `toml:"heuristic_cap_pc"` // Cap for the wall-clock percent heuristic (default: 95)
}

// SolversConfig contains configuration for solver catalog files
type SolversConfig struct {
	CatalogDir string `toml:"catalog_dir"` // Directory containing solver definition files (TOML)
}

// WebSocketConfig contains configuration for WebSocket event streaming
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level"`        // Minimum log level to broadcast ("debug", "info", "warn", "error")
	ExcludePatterns []string `toml:"exclude_patterns"` // Log message patterns to exclude from broadcasting
	// Whitelist of event types to broadcast. Empty list allows all events.
	AllowedEvents []string `toml:"allowed_events"`
	// Throttle intervals for high-frequency events. Map of event type to duration string.
	// Example: {"sim_progress": "1s"}
	ThrottleIntervals map[string]string `toml:"throttle_intervals"`
}

// CleanupConfig controls pruning of finished job records
type CleanupConfig struct {
	Enabled   bool   `toml:"enabled"`
	Schedule  string `toml:"schedule"`  // Cron schedule (six fields, with seconds)
	Retention string `toml:"retention"` // How long terminal job records are kept (default: "168h")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability;
// only user-facing settings should be exposed in hydrun.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Simulation: SimulationConfig{
			WorkRoot:       "./operations",
			PollInterval:   "15s", // Trades UI freshness against log I/O volume
			CancelGrace:    "2s",
			EstimateAfter:  "10s",
			LogTailLines:   20,
			HeuristicCapPC: 95,
		},
		Solvers: SolversConfig{
			CatalogDir: "./solvers",
		},
		WebSocket: WebSocketConfig{
			MinLevel: "info",
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
			},
			AllowedEvents: []string{},
			ThrottleIntervals: map[string]string{
				"sim_progress": "1s", // Max 1 progress push per second per job
			},
		},
		Cleanup: CleanupConfig{
			Enabled:   true,
			Schedule:  "0 0 * * * *", // Hourly
			Retention: "168h",        // Keep terminal job records for 7 days
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files. Priority: CLI flags > environment variables > last config
// file > ... > first config file > defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("HYDRUN_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("HYDRUN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("HYDRUN_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("HYDRUN_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("HYDRUN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("HYDRUN_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Simulation configuration
	if workRoot := os.Getenv("HYDRUN_SIM_WORK_ROOT"); workRoot != "" {
		config.Simulation.WorkRoot = workRoot
	}
	if pollInterval := os.Getenv("HYDRUN_SIM_POLL_INTERVAL"); pollInterval != "" {
		if _, err := time.ParseDuration(pollInterval); err == nil {
			config.Simulation.PollInterval = pollInterval
		}
	}
	if cancelGrace := os.Getenv("HYDRUN_SIM_CANCEL_GRACE"); cancelGrace != "" {
		if _, err := time.ParseDuration(cancelGrace); err == nil {
			config.Simulation.CancelGrace = cancelGrace
		}
	}

	// Solver catalog configuration
	if catalogDir := os.Getenv("HYDRUN_SOLVERS_DIR"); catalogDir != "" {
		config.Solvers.CatalogDir = catalogDir
	}

	// Cleanup configuration
	if schedule := os.Getenv("HYDRUN_CLEANUP_SCHEDULE"); schedule != "" {
		config.Cleanup.Schedule = schedule
	}
	if retention := os.Getenv("HYDRUN_CLEANUP_RETENTION"); retention != "" {
		if _, err := time.ParseDuration(retention); err == nil {
			config.Cleanup.Retention = retention
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// PollIntervalDuration returns the parsed monitor poll interval
func (c *SimulationConfig) PollIntervalDuration() time.Duration {
	return parseDurationOr(c.PollInterval, 15*time.Second)
}

// CancelGraceDuration returns the parsed cancel grace period
func (c *SimulationConfig) CancelGraceDuration() time.Duration {
	return parseDurationOr(c.CancelGrace, 2*time.Second)
}

// EstimateAfterDuration returns the parsed ETA warmup threshold
func (c *SimulationConfig) EstimateAfterDuration() time.Duration {
	return parseDurationOr(c.EstimateAfter, 10*time.Second)
}

// RetentionDuration returns the parsed record retention period
func (c *CleanupConfig) RetentionDuration() time.Duration {
	return parseDurationOr(c.Retention, 168*time.Hour)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
