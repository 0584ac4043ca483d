package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Values from the file are overridden by SV_* environment variables.
type Config struct {
	LogLevel string         `toml:"log_level" env:"SV_LOG_LEVEL"`
	API      APIConfig      `toml:"api"`
	Storage  StorageConfig  `toml:"storage"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	TMDB     TMDBConfig     `toml:"tmdb"`
	Google   GoogleConfig   `toml:"google"`
	Server   ServerConfig   `toml:"server"`
}

// APIConfig describes how the client reaches the SonicVision backend.
type APIConfig struct {
	BaseURL     string        `toml:"base_url" env:"SV_API_BASE_URL"`
	RefreshPath string        `toml:"refresh_path" env:"SV_API_REFRESH_PATH"`
	CSRFCookie  string        `toml:"csrf_cookie"`
	CSRFHeader  string        `toml:"csrf_header"`
	CSRFPath    string        `toml:"csrf_path"`
	Timeout     time.Duration `toml:"timeout" env:"SV_API_TIMEOUT"`
	UserAgent   string        `toml:"user_agent"`
}

// StorageConfig selects the credential store backend and its key names.
type StorageConfig struct {
	Backend    string `toml:"backend" env:"SV_STORAGE_BACKEND"`
	AccessKey  string `toml:"access_key"`
	RefreshKey string `toml:"refresh_key"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"SV_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains settings for the shared credential store.
type RedisConfig struct {
	Addr      string `toml:"addr" env:"SV_REDIS_ADDR"`
	Password  string `toml:"password" env:"SV_REDIS_PASSWORD"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID          string  `toml:"client_id" env:"SV_SPOTIFY_CLIENT_ID"`
	ClientSecret      string  `toml:"client_secret" env:"SV_SPOTIFY_CLIENT_SECRET"`
	Market            string  `toml:"market"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// TMDBConfig contains TMDB credentials. AccessToken takes precedence over APIKey.
type TMDBConfig struct {
	APIKey            string        `toml:"api_key" env:"SV_TMDB_API_KEY"`
	AccessToken       string        `toml:"access_token" env:"SV_TMDB_ACCESS_TOKEN"`
	Language          string        `toml:"language"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	CacheTTL          time.Duration `toml:"cache_ttl"`
}

// GoogleConfig holds the OAuth client used for Google sign-in.
type GoogleConfig struct {
	ClientID string `toml:"client_id" env:"SV_GOOGLE_CLIENT_ID"`
}

// ServerConfig contains the local callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("%w: failed to read environment: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault behaves like [LoadConfig] but falls back to defaults plus environment when path does not exist.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		config := DefaultConfig()
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("%w: failed to read environment: %v", ErrInvalidConfig, err)
		}
		return config, config.Validate()
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the fields every command relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrMissingConfig)
	}
	switch c.Storage.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("%w: storage.backend must be sqlite, redis or memory, got %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Storage.AccessKey == "" || c.Storage.RefreshKey == "" {
		return fmt.Errorf("%w: storage keys must not be empty", ErrInvalidConfig)
	}
	if c.Storage.AccessKey == c.Storage.RefreshKey {
		return fmt.Errorf("%w: storage.access_key and storage.refresh_key must differ", ErrInvalidConfig)
	}
	return nil
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

// SaveConfig encodes config as TOML and writes it to path, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
