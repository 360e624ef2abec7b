package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// StateConfig controls the StateStore (C1).
type StateConfig struct {
	DirName     string `mapstructure:"dir_name"`     // dot-directory name under a project root (default: .cde)
	BackupLimit int    `mapstructure:"backup_limit"` // max rotated .bak files kept per project (default: 5)
}

// RecipeConfig controls the RecipeStore (C2).
type RecipeConfig struct {
	ManifestURL string        `mapstructure:"manifest_url"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"` // freshness window before a re-fetch (default: 24h)
}

// ScannerConfig controls the Scanner (C3).
type ScannerConfig struct {
	WorkerCount   int `mapstructure:"worker_count"`    // doc-scan worker pool size (default: 8)
	DocTimeoutS   int `mapstructure:"doc_timeout_s"`   // doc-scan wall-clock budget in seconds (default: 30)
	GitWindowDays int `mapstructure:"git_window_days"` // commit-history lookback window (default: 30)
	GitMaxCommits int `mapstructure:"git_max_commits"` // cap on commits inspected per scan (default: 100)
}

// ObservabilityConfig controls the Langfuse tracer wired into the
// WorkflowCoordinator (C7). Secret/public keys are read from environment
// variables rather than the YAML file so they never land in a committed
// config or a recipe export.
type ObservabilityConfig struct {
	Enabled   bool   `mapstructure:"enabled"`  // turn on Langfuse tracing (default: false)
	BaseURL   string `mapstructure:"base_url"` // Langfuse ingestion endpoint (default: cloud.langfuse.com)
	PublicKey string `mapstructure:"-"`        // from LANGFUSE_PUBLIC_KEY, never persisted
	SecretKey string `mapstructure:"-"`        // from LANGFUSE_SECRET_KEY, never persisted
}

// RouterConfig controls the AgentRouter (C6).
type RouterConfig struct {
	DefaultTimeoutS    int `mapstructure:"default_timeout_s"`         // per-call outer budget in seconds (default: 600)
	CancelGraceS       int `mapstructure:"cancel_grace_s"`            // grace period before abandoning a cancelled attempt (default: 5)
	HeartbeatIntervalS int `mapstructure:"heartbeat_interval_s"`      // progress heartbeat cadence in seconds (default: 5)
	MaxPhaseRetries    int `mapstructure:"max_phase_retries"`         // WorkflowCoordinator retry budget per phase (default: 2)
	BreakerThreshold   int `mapstructure:"breaker_failure_threshold"` // consecutive failures before a breaker opens (default: 3)
	BreakerCooldownS   int `mapstructure:"breaker_cooldown_s"`        // seconds before an open breaker allows a probe (default: 60)
}

// Config represents the full cde configuration.
type Config struct {
	State         StateConfig         `mapstructure:"state"`
	Recipes       RecipeConfig        `mapstructure:"recipes"`
	Scanner       ScannerConfig       `mapstructure:"scanner"`
	Router        RouterConfig        `mapstructure:"router"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Observability.PublicKey = os.Getenv("LANGFUSE_PUBLIC_KEY")
	cfg.Observability.SecretKey = os.Getenv("LANGFUSE_SECRET_KEY")

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.State.DirName == "" {
		cfg.State.DirName = ".cde"
	}
	if cfg.State.BackupLimit == 0 {
		cfg.State.BackupLimit = 5
	}

	if cfg.Recipes.CacheTTL == 0 {
		cfg.Recipes.CacheTTL = 24 * time.Hour
	}
	if cfg.Recipes.ManifestURL == "" {
		cfg.Recipes.ManifestURL = "https://raw.githubusercontent.com/andywolf/cde-recipes"
	}

	if cfg.Scanner.WorkerCount == 0 {
		cfg.Scanner.WorkerCount = 8
	}
	if cfg.Scanner.DocTimeoutS == 0 {
		cfg.Scanner.DocTimeoutS = 30
	}
	if cfg.Scanner.GitWindowDays == 0 {
		cfg.Scanner.GitWindowDays = 30
	}
	if cfg.Scanner.GitMaxCommits == 0 {
		cfg.Scanner.GitMaxCommits = 100
	}

	if cfg.Router.DefaultTimeoutS == 0 {
		cfg.Router.DefaultTimeoutS = 600
	}
	if cfg.Router.CancelGraceS == 0 {
		cfg.Router.CancelGraceS = 5
	}
	if cfg.Router.HeartbeatIntervalS == 0 {
		cfg.Router.HeartbeatIntervalS = 5
	}
	if cfg.Router.MaxPhaseRetries == 0 {
		cfg.Router.MaxPhaseRetries = 2
	}
	if cfg.Router.BreakerThreshold == 0 {
		cfg.Router.BreakerThreshold = 3
	}
	if cfg.Router.BreakerCooldownS == 0 {
		cfg.Router.BreakerCooldownS = 60
	}

	if cfg.Observability.BaseURL == "" {
		cfg.Observability.BaseURL = "https://cloud.langfuse.com"
	}
}
