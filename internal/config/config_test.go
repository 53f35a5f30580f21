package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.Set("jwt.secret", "0123456789abcdef0123456789abcdef")
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(testViper())
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SENTINELIQ_HTTP_ADDR", ":9999")
	t.Setenv("SENTINELIQ_LOG_LEVEL", "debug")

	cfg, err := Load(testViper())
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestValidateRejectsShortSecret(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("jwt.secret", "too-short")
	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}
