// ABOUTME: Configuration loading and parsing for a kevaboard host
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kevachat/geminiboard/internal/codec"
	"github.com/kevachat/geminiboard/internal/ledger"
)

// EnvPath overrides the per-host config path when set.
const EnvPath = "KEVABOARD_CONFIG"

// Config represents the complete configuration of one board host
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Kevacoin KevacoinConfig `yaml:"kevacoin"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Session  SessionConfig  `yaml:"session"`
	Board    BoardConfig    `yaml:"board"`
	Pool     PoolConfig     `yaml:"pool"`
	Limits   LimitsConfig   `yaml:"limits"`
	Locale   LocaleConfig   `yaml:"locale"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the Gemini listener and link settings
type ServerConfig struct {
	Host     string `yaml:"host"` // public host name used in links
	Port     int    `yaml:"port"` // public port used in links; 1965 is omitted
	Addr     string `yaml:"addr"` // listen address
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// KevacoinConfig holds the daemon JSON-RPC endpoint
type KevacoinConfig struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// DatabaseConfig holds the pool database location
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig holds memoization lifetimes
type CacheConfig struct {
	DefaultTTL      time.Duration `yaml:"-"`
	RoomTTL         time.Duration `yaml:"-"`
	CleanupInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	DefaultTTLRaw      string `yaml:"default_ttl"`
	RoomTTLRaw         string `yaml:"room_ttl"`
	CleanupIntervalRaw string `yaml:"cleanup_interval"`
}

// SessionConfig holds the session token lifetime
type SessionConfig struct {
	TTL    time.Duration `yaml:"-"`
	TTLRaw string        `yaml:"ttl"`
}

// BoardConfig holds presentation and validation rules
type BoardConfig struct {
	About      []string `yaml:"about"`
	RoomRegex  string   `yaml:"room_regex"`
	KeyRegex   string   `yaml:"key_regex"`
	ValueRegex string   `yaml:"value_regex"`
	UserRegex  string   `yaml:"user_regex"`
}

// PoolConfig holds pricing and reconciliation settings
type PoolConfig struct {
	Cost          ledger.Amount `yaml:"-"`
	MinBalance    ledger.Amount `yaml:"-"`
	Account       string        `yaml:"account"`
	Confirmations int           `yaml:"confirmations"`
	Timeout       time.Duration `yaml:"-"`
	LockDir       string        `yaml:"lock_dir"`

	// Raw string values for YAML unmarshaling
	CostRaw       string `yaml:"cost"`
	MinBalanceRaw string `yaml:"min_balance"`
	TimeoutRaw    string `yaml:"timeout"`
}

// LimitsConfig holds submission throttling
type LimitsConfig struct {
	SubmissionsPerMinute int `yaml:"submissions_per_minute"`
	Burst                int `yaml:"burst"`
}

// LocaleConfig holds the optional string catalog override
type LocaleConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Path returns the config file of host: $KEVABOARD_CONFIG when set,
// otherwise hosts/<host>/config.yaml.
func Path(host string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return filepath.Join("hosts", host, "config.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := parseAmounts(&cfg); err != nil {
		return nil, fmt.Errorf("parsing amounts: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":1965"
	}
	if c.Kevacoin.Timeout == 0 {
		c.Kevacoin.Timeout = 30 * time.Second
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 365 * 24 * time.Hour
	}
	if c.Cache.RoomTTL == 0 {
		c.Cache.RoomTTL = 10 * time.Minute
	}
	if c.Cache.CleanupInterval == 0 {
		c.Cache.CleanupInterval = 10 * time.Minute
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = time.Hour
	}
	if c.Pool.MinBalanceRaw == "" {
		c.Pool.MinBalance = ledger.Coin
	}
	if c.Pool.Timeout == 0 {
		c.Pool.Timeout = time.Hour
	}
	if c.Pool.LockDir == "" {
		c.Pool.LockDir = filepath.Join(os.TempDir(), "kevaboard")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	if c.Kevacoin.URL == "" {
		return fmt.Errorf("kevacoin.url is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Pool.Cost < 0 {
		return fmt.Errorf("pool.cost must not be negative")
	}
	if c.Pool.MinBalance < 0 {
		return fmt.Errorf("pool.min_balance must not be negative")
	}
	if c.Pool.Confirmations < 0 {
		return fmt.Errorf("pool.confirmations must not be negative")
	}

	if c.Limits.SubmissionsPerMinute < 0 || c.Limits.Burst < 0 {
		return fmt.Errorf("limits must not be negative")
	}

	if _, err := codec.NewValidator(c.Patterns()); err != nil {
		return fmt.Errorf("board: %w", err)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// ValidateServer checks the settings only the Gemini server needs.
func (c *Config) ValidateServer() error {
	if c.Server.CertFile == "" || c.Server.KeyFile == "" {
		return fmt.Errorf("server.cert_file and server.key_file are required")
	}
	return nil
}

// Patterns returns the board validation rules.
func (c *Config) Patterns() codec.Patterns {
	return codec.Patterns{
		Key:   c.Board.KeyRegex,
		Value: c.Board.ValueRegex,
		User:  c.Board.UserRegex,
		Room:  c.Board.RoomRegex,
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"kevacoin.timeout", cfg.Kevacoin.TimeoutRaw, &cfg.Kevacoin.Timeout},
		{"cache.default_ttl", cfg.Cache.DefaultTTLRaw, &cfg.Cache.DefaultTTL},
		{"cache.room_ttl", cfg.Cache.RoomTTLRaw, &cfg.Cache.RoomTTL},
		{"cache.cleanup_interval", cfg.Cache.CleanupIntervalRaw, &cfg.Cache.CleanupInterval},
		{"session.ttl", cfg.Session.TTLRaw, &cfg.Session.TTL},
		{"pool.timeout", cfg.Pool.TimeoutRaw, &cfg.Pool.Timeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %q", f.name, f.raw)
		}
		*f.dst = d
	}

	return nil
}

// parseAmounts converts decimal coin strings into base units
func parseAmounts(cfg *Config) error {
	var err error

	if cfg.Pool.CostRaw != "" {
		cfg.Pool.Cost, err = ledger.ParseAmount(cfg.Pool.CostRaw)
		if err != nil {
			return fmt.Errorf("parsing pool.cost %q: %w", cfg.Pool.CostRaw, err)
		}
	}

	if cfg.Pool.MinBalanceRaw != "" {
		cfg.Pool.MinBalance, err = ledger.ParseAmount(cfg.Pool.MinBalanceRaw)
		if err != nil {
			return fmt.Errorf("parsing pool.min_balance %q: %w", cfg.Pool.MinBalanceRaw, err)
		}
	}

	return nil
}
