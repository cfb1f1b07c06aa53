package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Downloader  DownloaderConfig  `toml:"downloader"`
	Limits      LimitsConfig      `toml:"limits"`
	Browser     BrowserConfig     `toml:"browser"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials for the client-credentials flow.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// DownloaderConfig contains settings for the mirror download pipeline.
type DownloaderConfig struct {
	BaseURL        string `toml:"base_url"`
	OutputDir      string `toml:"output_dir"`
	Workers        int    `toml:"workers"`
	StaggerSeconds int    `toml:"stagger_seconds"`
}

// LimitsConfig contains request governor settings for the mirror site.
type LimitsConfig struct {
	RequestsPerMinute  int     `toml:"requests_per_minute"`
	RequestsPerHour    int     `toml:"requests_per_hour"`
	MinDelaySeconds    float64 `toml:"min_delay_seconds"`
	MaxBackoffSeconds  float64 `toml:"max_backoff_seconds"`
	WindowSlackSeconds float64 `toml:"window_slack_seconds"`
}

// MinDelay returns the configured minimum inter-request delay as a [time.Duration].
func (l LimitsConfig) MinDelay() time.Duration {
	return time.Duration(l.MinDelaySeconds * float64(time.Second))
}

// MaxBackoff returns the configured backoff ceiling as a [time.Duration].
func (l LimitsConfig) MaxBackoff() time.Duration {
	return time.Duration(l.MaxBackoffSeconds * float64(time.Second))
}

// WindowSlack returns the configured window slack as a [time.Duration].
func (l LimitsConfig) WindowSlack() time.Duration {
	return time.Duration(l.WindowSlackSeconds * float64(time.Second))
}

// BrowserConfig contains browser automation settings.
type BrowserConfig struct {
	Headless    bool   `toml:"headless"`
	UserDataDir string `toml:"user_data_dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidConfig, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig marshals the config back to TOML at the specified path.
//
// Used by the setup wizard to persist credentials entered interactively.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
