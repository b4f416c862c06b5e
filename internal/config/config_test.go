package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/feedpulse")
	t.Setenv("FEEDGEN_HOSTNAME", "feeds.example.com")
	t.Setenv("FEEDGEN_PUBLISHER_DID", "did:plc:publisher")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "wss://bsky.network/xrpc/com.atproto.sync.subscribeRepos", cfg.FirehoseURL)
	assert.Equal(t, "https://public.api.bsky.app", cfg.AppviewURL)
	assert.Equal(t, "settings.json", cfg.SettingsPath)
	assert.Equal(t, "en", cfg.PrimaryLang)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_ServiceDIDDerivedFromHostname(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "did:web:feeds.example.com", cfg.ServiceDID)
}

func TestLoad_ServiceDIDOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FEEDGEN_SERVICE_DID", "did:plc:custom")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "did:plc:custom", cfg.ServiceDID)
}

func TestLoad_RequiredVariables(t *testing.T) {
	required := []string{"DATABASE_URL", "FEEDGEN_HOSTNAME", "FEEDGEN_PUBLISHER_DID"}

	for _, missing := range required {
		t.Run(missing, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(missing, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), missing)
		})
	}
}
