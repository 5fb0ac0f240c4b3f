// Package config loads marks settings from defaults, an optional JSON config
// file and MARKS_* environment variables, in increasing priority. Command
// line flags bound by the CLI override all of them.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/nikbrunner/marks/internal/storage"
)

// Config keys.
const (
	KeyBackend          = "backend"
	KeyDatabasePath     = "database_path"
	KeyDatabaseDSN      = "database_dsn"
	KeyJSONPath         = "json_path"
	KeyServerAddress    = "server_address"
	KeyTokenSecret      = "token_secret"
	KeyUserID           = "user_id"
	KeyStaleTime        = "stale_time"
	KeySearchDelay      = "search_delay"
	KeyLogLevel         = "log_level"
	KeyLogDevelopment   = "log_development"
	KeyFetchConcurrency = "fetch_concurrency"
	KeyFetchTimeout     = "fetch_timeout"
	KeyRefreshExclude   = "refresh_exclude_domains"
)

const envPrefix = "MARKS"

// Config holds application configuration.
type Config struct {
	Backend          string        `mapstructure:"backend"`
	DatabasePath     string        `mapstructure:"database_path"`
	DatabaseDSN      string        `mapstructure:"database_dsn"`
	JSONPath         string        `mapstructure:"json_path"`
	ServerAddress    string        `mapstructure:"server_address"`
	TokenSecret      string        `mapstructure:"token_secret"`
	UserID           string        `mapstructure:"user_id"`
	StaleTime        time.Duration `mapstructure:"stale_time"`
	SearchDelay      time.Duration `mapstructure:"search_delay"`
	LogLevel         string        `mapstructure:"log_level"`
	LogDevelopment   bool          `mapstructure:"log_development"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	RefreshExclude   []string      `mapstructure:"refresh_exclude_domains"`
}

// defaults returns the default value for every key. Paths that depend on the
// home directory are resolved at call time.
func defaults() map[string]any {
	dbPath, _ := storage.DefaultSQLitePath()
	jsonPath, _ := storage.DefaultJSONPath()
	return map[string]any{
		KeyBackend:          storage.BackendSQLite,
		KeyDatabasePath:     dbPath,
		KeyDatabaseDSN:      "",
		KeyJSONPath:         jsonPath,
		KeyServerAddress:    "localhost:8080",
		KeyTokenSecret:      "",
		KeyUserID:           "",
		KeyStaleTime:        "5m",
		KeySearchDelay:      "300ms",
		KeyLogLevel:         "info",
		KeyLogDevelopment:   false,
		KeyFetchConcurrency: 10,
		KeyFetchTimeout:     "10s",
		KeyRefreshExclude:   []string{"github.com", "gitlab.com"},
	}
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path into v and decodes the result.
// Creates the file with defaults, and a freshly generated token secret,
// if it doesn't exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		if err := ensureFile(path); err != nil {
			return nil, err
		}
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// ensureFile writes the default config to path if nothing exists there.
func ensureFile(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	values := defaults()
	values[KeyTokenSecret] = uuid.NewString()
	return Save(path, values)
}

// Save writes values to path as indented JSON.
// Creates the directory if it doesn't exist.
func Save(path string, values map[string]any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultPath returns the default config path: ~/.config/marks/config.json
func DefaultPath() (string, error) {
	dir, err := storage.DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// StorageOptions maps the config onto storage.Open options.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:    c.Backend,
		SQLitePath: c.DatabasePath,
		DSN:        c.DatabaseDSN,
		JSONPath:   c.JSONPath,
	}
}
