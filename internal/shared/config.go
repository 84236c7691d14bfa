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
	Database  DatabaseConfig  `toml:"database"`
	Log       LogConfig       `toml:"log"`
	Providers ProvidersConfig `toml:"providers"`
	Import    ImportConfig    `toml:"import"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Server    ServerConfig    `toml:"server"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// ProvidersConfig selects provider priority and holds shared HTTP client settings.
type ProvidersConfig struct {
	Primary        string        `toml:"primary"`
	Fallback       string        `toml:"fallback"`
	UserAgent      string        `toml:"user_agent"`
	TimeoutSeconds int           `toml:"timeout_seconds"`
	MaxRetries     int           `toml:"max_retries"`
	Deezer         DeezerConfig  `toml:"deezer"`
	Spotify        SpotifyConfig `toml:"spotify"`
}

// DeezerConfig contains Deezer API settings. The public catalog API needs no credentials.
type DeezerConfig struct {
	BaseURL            string  `toml:"base_url"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
	Burst              int     `toml:"burst"`
	DetailConcurrency  int     `toml:"detail_concurrency"`
	DetailCacheMinutes int     `toml:"detail_cache_minutes"`
}

// SpotifyConfig contains Spotify Web API client-credentials settings.
type SpotifyConfig struct {
	BaseURL           string  `toml:"base_url"`
	TokenURL          string  `toml:"token_url"`
	ClientID          string  `toml:"client_id"`
	ClientSecret      string  `toml:"client_secret"`
	Market            string  `toml:"market"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// ImportConfig contains orchestrator pacing settings.
type ImportConfig struct {
	ArtistDelayMS   int `toml:"artist_delay_ms"`
	StaleAfterHours int `toml:"stale_after_hours"`
}

// SchedulerConfig configures the periodic playlist import.
type SchedulerConfig struct {
	Enabled         bool     `toml:"enabled"`
	IntervalMinutes int      `toml:"interval_minutes"`
	Playlists       []string `toml:"playlists"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ArtistDelay returns the pause inserted between artists.
func (c ImportConfig) ArtistDelay() time.Duration {
	return time.Duration(c.ArtistDelayMS) * time.Millisecond
}

// StaleAfter returns the age after which an artist is eligible for a refresh.
func (c ImportConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterHours) * time.Hour
}

// Interval returns the scheduler tick period.
func (c SchedulerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Timeout returns the per-request HTTP timeout for provider clients.
func (c ProvidersConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HasSpotifyCredentials reports whether client credentials are configured.
func (c SpotifyConfig) HasSpotifyCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Addr returns the listen address for the admin server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults. Spotify credentials may be
// supplied through SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks provider selection and numeric settings.
func (c *Config) Validate() error {
	known := map[string]bool{"deezer": true, "spotify": true}
	if !known[c.Providers.Primary] {
		return fmt.Errorf("%w: unknown primary provider %q", ErrInvalidConfig, c.Providers.Primary)
	}
	if c.Providers.Fallback != "" {
		if !known[c.Providers.Fallback] {
			return fmt.Errorf("%w: unknown fallback provider %q", ErrInvalidConfig, c.Providers.Fallback)
		}
		if c.Providers.Fallback == c.Providers.Primary {
			return fmt.Errorf("%w: fallback provider must differ from primary", ErrInvalidConfig)
		}
	}
	if c.Import.ArtistDelayMS < 0 {
		return fmt.Errorf("%w: import.artist_delay_ms must not be negative", ErrInvalidConfig)
	}
	if c.Scheduler.Enabled && c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: scheduler.interval_minutes must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Providers.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Providers.Spotify.ClientSecret = v
	}
}
