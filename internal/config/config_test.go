package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "IDR", cfg.Transfer.DefaultCurrency)
	assert.Equal(t, "STRICT", cfg.WebAuthn.SignCountMode)
	assert.Nil(t, cfg.WebAuthn.Origins)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WEBAUTHN_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("STEP_UP_TOKEN_TTL_SECONDS", "45")
	t.Setenv("AUTH_JWT_ACCESS_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.WebAuthn.Origins)
	assert.Equal(t, 45*time.Second, cfg.JWT.StepUpTTLSeconds)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
}

func TestLoadRejectsDefaultSecretsInProduction(t *testing.T) {
	t.Setenv("ENV", "production")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAcceptsProductionWithSecretsConfigured(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_JWT_ACCESS_SECRET", "a-real-secret")
	t.Setenv("AUTH_JWT_REFRESH_SECRET", "another-real-secret")
	t.Setenv("WEBAUTHN_RP_ID", "example.com")
	t.Setenv("WEBAUTHN_RP_NAME", "Example Wallet")
	t.Setenv("WEBAUTHN_ORIGINS", "https://example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Server.Environment)
}
