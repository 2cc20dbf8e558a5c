package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

var storageBackends = []string{StorageMemory, StorageFile, StorageSQLite, StorageRedis}

type Config struct {
	AppEnv             string `env:"APP_ENV" default:"development"`
	Port               string `env:"PORT" default:"8080"`
	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET"`
	TwitchRedirectURI  string `env:"TWITCH_REDIRECT_URI"`
	TwitchAPIURL       string `env:"TWITCH_API_URL" default:"https://api.twitch.tv/helix"`
	TwitchAuthURL      string `env:"TWITCH_AUTH_URL" default:"https://id.twitch.tv/oauth2"`
	EmbedParentHost    string `env:"EMBED_PARENT_HOST"`
	StorageBackend     string `env:"STORAGE_BACKEND" default:"file"`
	StoragePath        string `env:"STORAGE_PATH"`
	RedisURL           string `env:"REDIS_URL"`
	LogLevel           string `env:"LOG_LEVEL" default:"info"`
	LogFormat          string `env:"LOG_FORMAT" default:"text"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"8"`
	APIRateLimit            float64 `env:"API_RATE_LIMIT" default:"20"`
	APIRateBurst            int     `env:"API_RATE_BURST" default:"40"`
}

// SearchEnabled reports whether an app token can be requested at all.
func (c *Config) SearchEnabled() bool {
	return c.TwitchClientSecret != ""
}

func (c *Config) TokenURL() string {
	return strings.TrimSuffix(c.TwitchAuthURL, "/") + "/token"
}

func (c *Config) AuthorizeURL() string {
	return strings.TrimSuffix(c.TwitchAuthURL, "/") + "/authorize"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.TwitchClientID == "" {
		return fmt.Errorf("TWITCH_CLIENT_ID is required")
	}

	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)
	if !slices.Contains(storageBackends, cfg.StorageBackend) {
		return fmt.Errorf("STORAGE_BACKEND must be one of %s, got %q", strings.Join(storageBackends, ", "), cfg.StorageBackend)
	}
	if cfg.StorageBackend == StorageRedis && cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when STORAGE_BACKEND=redis")
	}

	if cfg.MaxWebSocketConnections < 1 {
		return fmt.Errorf("MAX_WEBSOCKET_CONNECTIONS must be positive, got %d", cfg.MaxWebSocketConnections)
	}
	if cfg.APIRateLimit <= 0 {
		return fmt.Errorf("API_RATE_LIMIT must be positive, got %g", cfg.APIRateLimit)
	}
	if cfg.APIRateBurst < 1 {
		return fmt.Errorf("API_RATE_BURST must be positive, got %d", cfg.APIRateBurst)
	}

	if cfg.TwitchRedirectURI != "" {
		u, err := url.Parse(cfg.TwitchRedirectURI)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("TWITCH_REDIRECT_URI must be an absolute URL")
		}
		if cfg.AppEnv == "production" && u.Scheme != "https" {
			return fmt.Errorf("TWITCH_REDIRECT_URI uses %s which is not allowed in production", u.Scheme)
		}
	}

	return nil
}
