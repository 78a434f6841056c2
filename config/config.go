// Package config provides configuration management for piiguard.
//
// Values are resolved in order: built-in defaults, an optional YAML file with
// ${VAR} and ${VAR:-default} placeholders, then environment variables. A .env
// file in the working directory is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"piiguard/internal/batch"
	"piiguard/internal/cache"
	"piiguard/internal/dataset"
	"piiguard/internal/pii"
	"piiguard/internal/storage"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "PIIGUARD_CONFIG"

// searchPaths are tried in order when no config file is named.
var searchPaths = []string{"config/config.yaml", "config.yaml"}

// Config holds the application configuration
type Config struct {
	Server  ServerConfig    `yaml:"server"`
	Logging LogConfig       `yaml:"logging"`
	Workers int             `yaml:"workers"`
	Batches BatchesConfig   `yaml:"batches"`
	Storage storage.Config  `yaml:"storage"`
	Cache   CacheConfig     `yaml:"cache"`
	Metrics MetricsConfig   `yaml:"metrics"`
	Dataset dataset.Options `yaml:"dataset"`
	Routing pii.Config      `yaml:"routing"`
	Watch   WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	// MasterKey protects the /v1 API when set. Empty disables authentication.
	MasterKey string `yaml:"master_key"`
	// BodyLimit caps request bodies, in echo's size syntax ("8M").
	BodyLimit string `yaml:"body_limit"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "text", "json", or empty to pick text on a terminal and
	// JSON otherwise.
	Format string `yaml:"format"`
}

// BatchesConfig controls how long stored batches are kept.
type BatchesConfig struct {
	// RetentionDays deletes batches older than this many days. Zero keeps
	// them forever.
	RetentionDays int `yaml:"retention_days"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	// Type is one of "none", "local" or "redis".
	Type  string            `yaml:"type"`
	Local LocalCacheConfig  `yaml:"local"`
	Redis cache.RedisConfig `yaml:"redis"`
}

// LocalCacheConfig bounds the in-process cache.
type LocalCacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// WatchConfig holds the directories used by the watch command.
type WatchConfig struct {
	Inbox  string `yaml:"inbox"`
	Outbox string `yaml:"outbox"`
	// Settle is how long a file must stay unchanged before it is scanned.
	Settle time.Duration `yaml:"settle"`
}

// LoadResult is a loaded configuration and the file it came from.
type LoadResult struct {
	Config *Config
	// Path is the config file that was read, or empty when none was found.
	Path string
}

// Load reads configuration from the file named by PIIGUARD_CONFIG, or the
// first of config/config.yaml and config.yaml that exists.
func Load() (*LoadResult, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path. An empty path falls back to the
// search used by Load; a named file must exist.
func LoadFile(path string) (*LoadResult, error) {
	// Optional; the file rarely exists outside development.
	_ = godotenv.Load()

	cfg := buildDefaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandString(string(raw))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}

func findConfigFile() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "8080",
			BodyLimit: "8M",
		},
		Logging: LogConfig{Level: "info"},
		Storage: storage.DefaultConfig(),
		Cache: CacheConfig{
			Type: cache.TypeLocal,
			Local: LocalCacheConfig{
				MaxEntries: cache.DefaultLocalMaxEntries,
				TTL:        cache.DefaultLocalTTL,
			},
			Redis: cache.RedisConfig{
				Prefix: cache.DefaultRedisPrefix,
				TTL:    cache.DefaultRedisTTL,
			},
		},
		Metrics: MetricsConfig{Endpoint: "/metrics"},
		Dataset: dataset.DefaultOptions(),
		Routing: pii.DefaultConfig(),
		Watch: WatchConfig{
			Inbox:  "data/inbox",
			Outbox: "data/outbox",
			Settle: 2 * time.Second,
		},
	}
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} placeholders. A variable
// that is unset or empty takes the default; without a default the
// placeholder is left as written.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := placeholderPattern.FindStringSubmatch(m)
		if v := os.Getenv(parts[1]); v != "" {
			return v
		}
		if parts[2] != "" {
			return parts[3]
		}
		return m
	})
}

// applyEnvOverrides copies non-empty environment variables over cfg.
func applyEnvOverrides(cfg *Config) error {
	strs := []struct {
		env string
		dst *string
	}{
		{"PORT", &cfg.Server.Port},
		{"PIIGUARD_MASTER_KEY", &cfg.Server.MasterKey},
		{"LOG_LEVEL", &cfg.Logging.Level},
		{"LOG_FORMAT", &cfg.Logging.Format},
		{"STORAGE_TYPE", &cfg.Storage.Type},
		{"SQLITE_PATH", &cfg.Storage.SQLite.Path},
		{"POSTGRES_URL", &cfg.Storage.PostgreSQL.URL},
		{"MONGODB_URL", &cfg.Storage.MongoDB.URL},
		{"MONGODB_DATABASE", &cfg.Storage.MongoDB.Database},
		{"CACHE_TYPE", &cfg.Cache.Type},
		{"REDIS_URL", &cfg.Cache.Redis.URL},
		{"WATCH_INBOX", &cfg.Watch.Inbox},
		{"WATCH_OUTBOX", &cfg.Watch.Outbox},
	}
	for _, o := range strs {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"WORKERS", &cfg.Workers},
		{"BATCH_RETENTION_DAYS", &cfg.Batches.RetentionDays},
		{"POSTGRES_MAX_CONNS", &cfg.Storage.PostgreSQL.MaxConns},
	}
	for _, o := range ints {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", o.env, err)
		}
		*o.dst = n
	}

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED: %w", err)
		}
		cfg.Metrics.Enabled = b
	}
	return nil
}

// Validate reports every invalid setting in cfg.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}

	if c.Workers < 0 {
		errs = append(errs, errors.New("workers: must not be negative"))
	}
	if c.Batches.RetentionDays < 0 {
		errs = append(errs, errors.New("batches.retention_days: must not be negative"))
	}

	switch c.Storage.Type {
	case batch.TypeMemory, storage.TypeSQLite, storage.TypePostgreSQL, storage.TypeMongoDB:
	default:
		errs = append(errs, fmt.Errorf("storage.type: unknown type %q", c.Storage.Type))
	}

	switch c.Cache.Type {
	case cache.TypeNone, cache.TypeLocal:
	case cache.TypeRedis:
		if c.Cache.Redis.URL == "" {
			errs = append(errs, errors.New("cache.redis.url: required when cache.type is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.type: unknown type %q", c.Cache.Type))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Endpoint, "/") {
		errs = append(errs, fmt.Errorf("metrics.endpoint: must start with /, got %q", c.Metrics.Endpoint))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
