package config

import (
	"fmt"
	"os"
)

type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	RedisURL       string
	FirehoseURL    string
	AppviewURL     string
	SettingsPath   string
	PrimaryLang    string
	ServiceDID     string
	Hostname       string
	PublisherDID   string
	NewRelicAPIKey string
	LogLevel       string
	LogFormat      string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		FirehoseURL:    getEnv("FIREHOSE_URL", "wss://bsky.network/xrpc/com.atproto.sync.subscribeRepos"),
		AppviewURL:     getEnv("APPVIEW_URL", "https://public.api.bsky.app"),
		SettingsPath:   getEnv("SETTINGS_PATH", "settings.json"),
		PrimaryLang:    getEnv("PRIMARY_LANG", "en"),
		Hostname:       getEnv("FEEDGEN_HOSTNAME", ""),
		PublisherDID:   getEnv("FEEDGEN_PUBLISHER_DID", ""),
		NewRelicAPIKey: getEnv("NEWRELIC_API_KEY", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Hostname == "" {
		return nil, fmt.Errorf("FEEDGEN_HOSTNAME is required")
	}
	if cfg.PublisherDID == "" {
		return nil, fmt.Errorf("FEEDGEN_PUBLISHER_DID is required")
	}
	cfg.ServiceDID = getEnv("FEEDGEN_SERVICE_DID", "did:web:"+cfg.Hostname)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
