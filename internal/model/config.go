package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig describes the coordination server this client talks to.
type ServerConfig struct {
	// BaseURL is the root URL of the server (e.g., https://foodshare.example.org).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Profile names the credential set in the system keyring.
	Profile string `mapstructure:"profile" yaml:"profile"`

	// SessionCookie is the name of the server's session cookie.
	SessionCookie string `mapstructure:"session_cookie" yaml:"session_cookie"`

	// CSRFCookie is the cookie the CSRF token is read from.
	CSRFCookie string `mapstructure:"csrf_cookie" yaml:"csrf_cookie"`

	// TimeoutSec bounds a single request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// PollConfig controls the unread-count poller.
type PollConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// StoreConfig points at the local activity database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MockConfig configures the development mock server.
type MockConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`

	// Seed is the number of sample notifications created at startup.
	Seed int `mapstructure:"seed" yaml:"seed"`

	// SimulateSec adds a notification every N seconds; 0 disables it.
	SimulateSec int `mapstructure:"simulate_sec" yaml:"simulate_sec"`

	// Session, when set, is the session cookie value every request must carry.
	Session string `mapstructure:"session" yaml:"session"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Poll   PollConfig   `mapstructure:"poll" yaml:"poll"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Mock   MockConfig   `mapstructure:"mock" yaml:"mock"`
}

// ConfigDir returns ~/.config/foodshare, falling back to the working
// directory when no home directory is available.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "foodshare")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/foodshare/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:       "http://localhost:8000",
			Profile:       "default",
			SessionCookie: "sessionid",
			CSRFCookie:    "csrftoken",
			TimeoutSec:    30,
		},
		Poll: PollConfig{Enabled: true},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "foodshare.log"),
		},
		Store: StoreConfig{Path: filepath.Join(dir, "activity.db")},
		Mock:  MockConfig{Addr: ":8000", Seed: 5, SimulateSec: 90},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with FOODSHARE_ override file values
// (FOODSHARE_SERVER_BASE_URL, FOODSHARE_LOG_LEVEL, ...). If the file does not
// exist, defaults plus environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("foodshare")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values and so
	// AutomaticEnv can see every key during Unmarshal.
	v.SetDefault("server.base_url", def.Server.BaseURL)
	v.SetDefault("server.profile", def.Server.Profile)
	v.SetDefault("server.session_cookie", def.Server.SessionCookie)
	v.SetDefault("server.csrf_cookie", def.Server.CSRFCookie)
	v.SetDefault("server.timeout_sec", def.Server.TimeoutSec)
	v.SetDefault("poll.enabled", def.Poll.Enabled)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("mock.addr", def.Mock.Addr)
	v.SetDefault("mock.seed", def.Mock.Seed)
	v.SetDefault("mock.simulate_sec", def.Mock.SimulateSec)
	v.SetDefault("mock.session", def.Mock.Session)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
	if cfg.Server.TimeoutSec <= 0 {
		cfg.Server.TimeoutSec = def.Server.TimeoutSec
	}
	if cfg.Server.SessionCookie == "" {
		cfg.Server.SessionCookie = def.Server.SessionCookie
	}
	if cfg.Server.CSRFCookie == "" {
		cfg.Server.CSRFCookie = def.Server.CSRFCookie
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("poll", cfg.Poll)
	v.Set("log", cfg.Log)
	v.Set("store", cfg.Store)
	v.Set("mock", cfg.Mock)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
