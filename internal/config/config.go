// Package config loads the marks configuration: a YAML file under
// ~/.config/marks, an optional .env file, and MARKS_* environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	Storage        StorageConfig `yaml:"storage"`
	Server         ServerConfig  `yaml:"server"`
	Log            LogConfig     `yaml:"log"`
	Cull           CullConfig    `yaml:"cull"`
	QuickAddFolder string        `yaml:"quickAddFolder"` // folder name used by `marks add`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend       string        `yaml:"backend"` // memory | json | sqlite | redis | postgres, empty = auto
	Path          string        `yaml:"path"`    // json/sqlite file, empty = default under ~/.config/marks
	Compress      bool          `yaml:"compress"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	RedisKey      string        `yaml:"redisKey"`     // key prefix
	RedisLockTTL  time.Duration `yaml:"redisLockTTL"` // write lock lease
	PostgresDSN   string        `yaml:"postgresDSN"`
}

// ServerConfig configures `marks serve`.
type ServerConfig struct {
	Listen          string        `yaml:"listen"` // ex: ":8080"
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
	Pretty bool   `yaml:"pretty"` // true => zap dev (color), false => zap prod (JSON)
}

// CullConfig configures `marks cull`.
type CullConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	Timeout        time.Duration `yaml:"timeout"`        // per URL
	ExcludeDomains []string      `yaml:"excludeDomains"` // 404 here means "possibly private", not dead
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Listen:          ":8080",
			ShutdownTimeout: 5 * time.Second,
			RequestTimeout:  30 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Storage: StorageConfig{
			RedisAddr:    "localhost:6379",
			RedisKey:     "marks",
			RedisLockTTL: 30 * time.Second,
		},
		Cull: CullConfig{
			Concurrency:    10,
			Timeout:        10 * time.Second,
			ExcludeDomains: []string{"github.com", "gitlab.com"},
		},
		QuickAddFolder: "Read Later",
	}
}

// DefaultPath returns the default config path: ~/.config/marks/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "marks", "config.yaml"), nil
}

// Load reads path, then .env in the working directory, then MARKS_*
// variables.
func Load(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads config from the YAML file.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Non-fatal: return defaults even if save fails
			_ = SaveConfig(path, &config)
			return &config, nil
		}
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for fields emptied in the file
	defaults := DefaultConfig()
	if config.QuickAddFolder == "" {
		config.QuickAddFolder = defaults.QuickAddFolder
	}
	if config.Server.Listen == "" {
		config.Server.Listen = defaults.Server.Listen
	}
	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = defaults.Server.RequestTimeout
	}
	if config.Log.Level == "" {
		config.Log.Level = defaults.Log.Level
	}
	if config.Storage.RedisLockTTL <= 0 {
		config.Storage.RedisLockTTL = defaults.Storage.RedisLockTTL
	}
	if config.Cull.Concurrency <= 0 {
		config.Cull.Concurrency = defaults.Cull.Concurrency
	}
	if config.Cull.Timeout <= 0 {
		config.Cull.Timeout = defaults.Cull.Timeout
	}
	if config.Cull.ExcludeDomains == nil {
		config.Cull.ExcludeDomains = defaults.Cull.ExcludeDomains
	}

	return &config, nil
}

// SaveConfig writes config to the YAML file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides cfg with MARKS_* environment variables. Malformed
// values are reported rather than ignored.
func ApplyEnv(cfg *Config) error {
	var errs []error

	cfg.Storage.Backend = getenv("MARKS_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.Path = getenv("MARKS_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.Compress = envBool("MARKS_STORAGE_COMPRESS", cfg.Storage.Compress, &errs)
	cfg.Storage.RedisAddr = getenv("MARKS_REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.RedisPassword = getenv("MARKS_REDIS_PASSWORD", cfg.Storage.RedisPassword)
	cfg.Storage.RedisDB = envInt("MARKS_REDIS_DB", cfg.Storage.RedisDB, &errs)
	cfg.Storage.RedisKey = getenv("MARKS_REDIS_KEY", cfg.Storage.RedisKey)
	cfg.Storage.RedisLockTTL = envDuration("MARKS_REDIS_LOCK_TTL", cfg.Storage.RedisLockTTL, &errs)
	cfg.Storage.PostgresDSN = getenv("MARKS_POSTGRES_DSN", cfg.Storage.PostgresDSN)

	cfg.Server.Listen = getenv("MARKS_LISTEN", cfg.Server.Listen)
	cfg.Server.ShutdownTimeout = envDuration("MARKS_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout, &errs)
	cfg.Server.RequestTimeout = envDuration("MARKS_REQUEST_TIMEOUT", cfg.Server.RequestTimeout, &errs)
	if v := os.Getenv("MARKS_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitAndTrim(v)
	}

	cfg.Log.Level = getenv("MARKS_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = envBool("MARKS_PRETTY_LOG", cfg.Log.Pretty, &errs)

	cfg.Cull.Concurrency = envInt("MARKS_CULL_CONCURRENCY", cfg.Cull.Concurrency, &errs)
	cfg.Cull.Timeout = envDuration("MARKS_CULL_TIMEOUT", cfg.Cull.Timeout, &errs)
	if v := os.Getenv("MARKS_CULL_EXCLUDE_DOMAINS"); v != "" {
		cfg.Cull.ExcludeDomains = splitAndTrim(v)
	}

	cfg.QuickAddFolder = getenv("MARKS_QUICK_ADD_FOLDER", cfg.QuickAddFolder)

	return errors.Join(errs...)
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid integer value for %s: %q", key, v))
		return def
	}
	return i
}

func envBool(key string, def bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid boolean value for %s: %q", key, v))
		return def
	}
	return b
}

func envDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid duration value for %s: %q", key, v))
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		// Remove surrounding quotes if present
		trimmed := strings.Trim(strings.TrimSpace(part), `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
