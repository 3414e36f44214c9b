// Package config loads the server configuration.
//
// WHERE SETTINGS COME FROM (later wins):
//  1. Defaults (Default)
//  2. A YAML file, config.yaml unless LINKBOARD_CONFIG names another. The
//     file is optional; a missing one just means defaults.
//  3. Environment variables, for the settings that differ per deployment
//     (PORT, DATABASE_URL, REDIS_URL, SESSION_SECRET, ...). main loads a
//     .env file into the environment first, so local setups can keep
//     secrets out of config.yaml.
//
// Identity providers only come from the file: they are structured and
// rarely change.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when LINKBOARD_CONFIG is not set.
const DefaultPath = "config.yaml"

// minSecretLength matches what the session signer accepts.
const minSecretLength = 16

// AuthClient is one OpenID Connect identity provider the SPA can sign in with.
type AuthClient struct {
	ID          string `yaml:"id"`
	Secret      string `yaml:"secret"`
	MetadataURL string `yaml:"metadata_url"` // the provider's .well-known/openid-configuration
	Icon        string `yaml:"icon"`
}

// Reddit holds the app credentials for the background image feed. The feed
// is disabled when ClientID is empty.
type Reddit struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
}

type Config struct {
	Port    int  `yaml:"port"`
	DevMode bool `yaml:"dev_mode"`

	// DatabaseURL is postgres://..., sqlite:<path> or :memory:.
	DatabaseURL string `yaml:"database_url"`
	// RedisURL selects the redis cache; empty means an in-process cache.
	RedisURL string `yaml:"redis_url"`

	SessionSecret string        `yaml:"session_secret"`
	SessionMaxAge time.Duration `yaml:"session_max_age"`

	// StaticDir, when set, is served at / (the SPA build).
	StaticDir string `yaml:"static_dir"`

	AuthClients map[string]AuthClient `yaml:"auth_clients"`
	Reddit      Reddit                `yaml:"reddit"`
}

// Default returns the configuration used for anything not set elsewhere.
func Default() Config {
	return Config{
		Port:          8080,
		DatabaseURL:   "sqlite:data/linkboard.db",
		SessionMaxAge: 30 * 24 * time.Hour,
	}
}

// Load reads the file at path (if it exists) over the defaults, then applies
// environment overrides. It does not validate; call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// optional
	case err != nil:
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	default:
		if err := decode(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decode rejects unknown keys so a typo in config.yaml is an error instead
// of a silently ignored setting.
func decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Port, err = envOrDefaultInt("PORT", c.Port); err != nil {
		return err
	}
	if c.DevMode, err = envOrDefaultBool("DEV_MODE", c.DevMode); err != nil {
		return err
	}
	if c.SessionMaxAge, err = envOrDefaultDuration("SESSION_MAX_AGE", c.SessionMaxAge); err != nil {
		return err
	}
	c.DatabaseURL = envOrDefault("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = envOrDefault("REDIS_URL", c.RedisURL)
	c.SessionSecret = envOrDefault("SESSION_SECRET", c.SessionSecret)
	c.StaticDir = envOrDefault("STATIC_DIR", c.StaticDir)
	c.Reddit.ClientID = envOrDefault("REDDIT_CLIENT_ID", c.Reddit.ClientID)
	c.Reddit.ClientSecret = envOrDefault("REDDIT_CLIENT_SECRET", c.Reddit.ClientSecret)
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if len(c.SessionSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("session_secret must be at least %d characters", minSecretLength))
	}
	if c.SessionMaxAge <= 0 {
		errs = append(errs, errors.New("session_max_age must be positive"))
	}
	if !supportedDatabaseURL(c.DatabaseURL) {
		errs = append(errs, fmt.Errorf("unsupported database_url %q", c.DatabaseURL))
	}
	if c.RedisURL != "" && !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
		errs = append(errs, errors.New("redis_url must start with redis:// or rediss://"))
	}
	for name, client := range c.AuthClients {
		if client.ID == "" || client.MetadataURL == "" {
			errs = append(errs, fmt.Errorf("auth_clients.%s needs id and metadata_url", name))
		}
	}
	if c.Reddit.ClientID != "" && c.Reddit.ClientSecret == "" {
		errs = append(errs, errors.New("reddit.client_secret is required with reddit.client_id"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// RedditEnabled reports whether the image feed is configured.
func (c *Config) RedditEnabled() bool {
	return c.Reddit.ClientID != ""
}

func supportedDatabaseURL(u string) bool {
	for _, prefix := range []string{"postgres://", "postgresql://", "sqlite:"} {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return u == ":memory:"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a number", key, v)
	}
	return n, nil
}

func envOrDefaultBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s=%q is not a boolean", key, v)
	}
	return b, nil
}

func envOrDefaultDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration", key, v)
	}
	return d, nil
}
