package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rx-radar/medsearch/internal/session"
)

// Config holds the medsearch API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	Collections CollectionsConfig `yaml:"collections"`
	Session     SessionConfig     `yaml:"session"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig guards operational endpoints. Empty api_keys leaves /metrics open.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	SearchPath      string `yaml:"search_path"`
	AllowedOrigin   string `yaml:"allowed_origin"` // "*" or a single origin, e.g. https://rx-radar.com
	MaxBodyBytes    int64  `yaml:"max_body_bytes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// CollectionsConfig names the per-environment document collections.
type CollectionsConfig struct {
	Users                 string `yaml:"users"`
	SearchRequests        string `yaml:"search_requests"`
	PendingSearchRequests string `yaml:"pending_search_requests"`
}

// SessionConfig holds session token verification settings.
type SessionConfig struct {
	HMACSecret string `yaml:"hmac_secret"`
	CertURL    string `yaml:"cert_url"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
	LeewaySec  int    `yaml:"leeway_sec"`
}

// RateLimitConfig controls the per-user search window. Disabled by default.
type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled"`
	WindowSec int  `yaml:"window_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML config bytes, expanding ${VAR} references, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the process environment without
// overriding values already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.SearchPath == "" {
		c.HTTP.SearchPath = "/search"
	}
	if c.HTTP.AllowedOrigin == "" {
		c.HTTP.AllowedOrigin = "*"
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 64 << 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "medsearch:"
	}
	if c.Collections.Users == "" {
		c.Collections.Users = "users"
	}
	if c.Collections.SearchRequests == "" {
		c.Collections.SearchRequests = "search_requests"
	}
	if c.Collections.PendingSearchRequests == "" {
		c.Collections.PendingSearchRequests = "pending_search_requests"
	}
	// a Firebase project id alone selects the Google securetoken certs and issuer
	if c.Session.Audience != "" {
		if c.Session.CertURL == "" {
			c.Session.CertURL = session.DefaultCertURL
		}
		if c.Session.Issuer == "" {
			c.Session.Issuer = session.IssuerFor(c.Session.Audience)
		}
	}
	if c.RateLimit.WindowSec <= 0 {
		c.RateLimit.WindowSec = 86400
	}

	// unset ${VAR:-} entries expand to empty keys
	keys := c.Auth.APIKeys[:0]
	for _, k := range c.Auth.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	c.Auth.APIKeys = keys
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if !strings.HasPrefix(c.HTTP.SearchPath, "/") {
		return fmt.Errorf("http.search_path must start with /, got %q", c.HTTP.SearchPath)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
		// ok
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Session.HMACSecret == "" && c.Session.CertURL == "" {
		return fmt.Errorf("session.hmac_secret or session.audience is required")
	}
	if c.Session.CertURL != "" && c.Session.Audience == "" {
		return fmt.Errorf("session.audience (Firebase project id) is required when session.cert_url is set")
	}
	cols := map[string]string{
		"users":                   c.Collections.Users,
		"search_requests":         c.Collections.SearchRequests,
		"pending_search_requests": c.Collections.PendingSearchRequests,
	}
	seen := make(map[string]string, len(cols))
	for name, v := range cols {
		if strings.ContainsAny(v, ": ") {
			return fmt.Errorf("collections.%s must not contain ':' or spaces, got %q", name, v)
		}
		if other, dup := seen[v]; dup {
			return fmt.Errorf("collections.%s and collections.%s must differ, both %q", other, name, v)
		}
		seen[v] = name
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
