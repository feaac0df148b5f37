package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quantmind-br/gnushark/internal/paths"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths"`
	Logging LoggingConfig `mapstructure:"logging"`
	Runner  RunnerConfig  `mapstructure:"runner"`
	Drivers DriversConfig `mapstructure:"drivers"`
	Flatpak FlatpakConfig `mapstructure:"flatpak"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// PathsConfig contains path-related configuration
type PathsConfig struct {
	DataDir string `mapstructure:"data_dir"`
	DBFile  string `mapstructure:"db_file"`
	LogFile string `mapstructure:"log_file"`
	// CatalogFile overrides the embedded capability catalog when it exists
	CatalogFile string `mapstructure:"catalog_file"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Color string `mapstructure:"color"`
}

// RunnerConfig controls how install scripts are launched and watched
type RunnerConfig struct {
	Terminal       string        `mapstructure:"terminal"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	WatchTimeout   time.Duration `mapstructure:"watch_timeout"`
	SentinelPrefix string        `mapstructure:"sentinel_prefix"`
	TmpDir         string        `mapstructure:"tmp_dir"`
}

// DriversConfig contains GPU driver preferences
type DriversConfig struct {
	PreferNvidiaOpen bool `mapstructure:"prefer_nvidia_open"`
}

// FlatpakConfig names the remote used for sandboxed installs
type FlatpakConfig struct {
	Remote    string `mapstructure:"remote"`
	RemoteURL string `mapstructure:"remote_url"`
}

// CacheConfig bounds the repository lookup memo
type CacheConfig struct {
	RepoLookupSize int `mapstructure:"repo_lookup_size"`
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	// Set config name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	resolver := paths.NewResolver()

	// Add config paths
	viper.AddConfigPath(resolver.ConfigDir())
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults(resolver)

	// Environment variable overrides
	viper.SetEnvPrefix("GNUSHARK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found - use defaults
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyLegacyEnv(&cfg, os.Getenv)

	// Expand paths
	home := resolver.HomeDir()
	cfg.Paths.DataDir = expandPath(cfg.Paths.DataDir, home)
	cfg.Paths.DBFile = expandPath(cfg.Paths.DBFile, home)
	cfg.Paths.LogFile = expandPath(cfg.Paths.LogFile, home)
	cfg.Paths.CatalogFile = expandPath(cfg.Paths.CatalogFile, home)
	cfg.Runner.TmpDir = expandPath(cfg.Runner.TmpDir, home)

	normalize(&cfg)

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(r *paths.Resolver) {
	viper.SetDefault("paths.data_dir", r.DataDir())
	viper.SetDefault("paths.db_file", r.DBFile())
	viper.SetDefault("paths.log_file", r.LogFile())
	viper.SetDefault("paths.catalog_file", r.CatalogFile())

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.color", "auto")

	viper.SetDefault("runner.terminal", "")
	viper.SetDefault("runner.poll_interval", time.Second)
	viper.SetDefault("runner.watch_timeout", 4*time.Hour)
	viper.SetDefault("runner.sentinel_prefix", "gnusk_done")
	viper.SetDefault("runner.tmp_dir", os.TempDir())

	viper.SetDefault("drivers.prefer_nvidia_open", false)

	viper.SetDefault("flatpak.remote", "flathub")
	viper.SetDefault("flatpak.remote_url", "https://flathub.org/repo/flathub.flatpakrepo")

	viper.SetDefault("cache.repo_lookup_size", 1024)
}

// applyLegacyEnv honors the variables older releases documented.
// $TERMINAL only fills an empty override; $GNUSK_PREFER_NVIDIA_OPEN always wins when set.
func applyLegacyEnv(cfg *Config, getenv func(string) string) {
	if cfg.Runner.Terminal == "" {
		cfg.Runner.Terminal = strings.TrimSpace(getenv("TERMINAL"))
	}
	if v := getenv("GNUSK_PREFER_NVIDIA_OPEN"); v != "" {
		cfg.Drivers.PreferNvidiaOpen = truthy(v)
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// normalize replaces unusable values with defaults
func normalize(cfg *Config) {
	if cfg.Runner.PollInterval <= 0 {
		cfg.Runner.PollInterval = time.Second
	}
	if cfg.Runner.WatchTimeout <= 0 {
		cfg.Runner.WatchTimeout = 4 * time.Hour
	}
	if cfg.Runner.SentinelPrefix == "" {
		cfg.Runner.SentinelPrefix = "gnusk_done"
	}
	if cfg.Runner.TmpDir == "" {
		cfg.Runner.TmpDir = os.TempDir()
	}
	if cfg.Flatpak.Remote == "" {
		cfg.Flatpak.Remote = "flathub"
	}
	if cfg.Cache.RepoLookupSize <= 0 {
		cfg.Cache.RepoLookupSize = 1024
	}
}

// expandPath expands ~ against homeDir and environment variables in paths
func expandPath(path, homeDir string) string {
	if path == "" {
		return path
	}

	// Expand ~
	if path[0] == '~' {
		path = filepath.Join(homeDir, path[1:])
	}

	// Expand environment variables
	path = os.ExpandEnv(path)

	return path
}
