package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.API.BaseURL != "http://localhost:8000/api" {
			t.Errorf("expected base url http://localhost:8000/api, got %s", config.API.BaseURL)
		}

		if config.API.RefreshPath != "/users/token/refresh/" {
			t.Errorf("expected refresh path /users/token/refresh/, got %s", config.API.RefreshPath)
		}

		if config.API.CSRFCookie != "csrftoken" || config.API.CSRFHeader != "X-CSRFToken" || config.API.CSRFPath != "/csrf/" {
			t.Errorf("unexpected csrf settings %q/%q/%q", config.API.CSRFCookie, config.API.CSRFHeader, config.API.CSRFPath)
		}

		if config.API.Timeout != 15*time.Second {
			t.Errorf("expected timeout 15s, got %v", config.API.Timeout)
		}

		if config.Storage.Backend != "sqlite" {
			t.Errorf("expected sqlite storage, got %s", config.Storage.Backend)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `log_level = "debug"

[api]
base_url = "https://sonicvision.example/api"
timeout = "3s"

[storage]
backend = "redis"

[redis]
addr = "10.0.0.5:6379"
key_prefix = "test:"

[spotify]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL != "https://sonicvision.example/api" {
			t.Errorf("expected custom base url, got %s", config.API.BaseURL)
		}
		if config.API.Timeout != 3*time.Second {
			t.Errorf("expected 3s timeout, got %v", config.API.Timeout)
		}
		if config.API.RefreshPath != "/users/token/refresh/" {
			t.Errorf("missing keys should keep defaults, got refresh path %q", config.API.RefreshPath)
		}
		if config.Storage.Backend != "redis" || config.Redis.Addr != "10.0.0.5:6379" {
			t.Errorf("unexpected storage settings: %+v %+v", config.Storage, config.Redis)
		}
		if config.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client id test_client_id, got %s", config.Spotify.ClientID)
		}
		if config.LogLevel != "debug" {
			t.Errorf("expected log level debug, got %s", config.LogLevel)
		}
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		t.Setenv("SV_API_BASE_URL", "https://env.example/api")
		t.Setenv("SV_API_TIMEOUT", "250ms")
		t.Setenv("SV_STORAGE_BACKEND", "memory")

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL != "https://env.example/api" {
			t.Errorf("env should override base url, got %s", config.API.BaseURL)
		}
		if config.API.Timeout != 250*time.Millisecond {
			t.Errorf("env should override timeout, got %v", config.API.Timeout)
		}
		if config.Storage.Backend != "memory" {
			t.Errorf("env should override storage backend, got %s", config.Storage.Backend)
		}
	})

	t.Run("LoadConfigOrDefault Missing File", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("expected defaults, got error: %v", err)
		}
		if config.Storage.Backend != "sqlite" {
			t.Errorf("expected default sqlite backend, got %s", config.Storage.Backend)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Config)
			want   error
		}{
			{name: "missing base url", mutate: func(c *Config) { c.API.BaseURL = "" }, want: ErrMissingConfig},
			{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "etcd" }, want: ErrInvalidConfig},
			{name: "same keys", mutate: func(c *Config) { c.Storage.RefreshKey = c.Storage.AccessKey }, want: ErrInvalidConfig},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.TMDB.APIKey = "saved-key"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.TMDB.APIKey != "saved-key" {
			t.Errorf("expected saved tmdb key, got %q", loaded.TMDB.APIKey)
		}
		if loaded.TMDB.CacheTTL != time.Hour {
			t.Errorf("expected cache ttl to round-trip as 1h, got %v", loaded.TMDB.CacheTTL)
		}
	})
}
