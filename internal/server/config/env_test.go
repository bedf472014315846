package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv_Overlay(t *testing.T) {
	t.Setenv("GOPHGUARD_GRPC_ADDR", ":7000")
	t.Setenv("GOPHGUARD_ACCESS_TOKEN_TTL", "90s")
	t.Setenv("GOPHGUARD_LOCKOUT_THRESHOLD", "3")
	t.Setenv("GOPHGUARD_HIBP_API_KEY", "k")

	cfg := &Config{DatabaseDSN: "kept"}
	require.NoError(t, parseEnv(cfg))

	assert.Equal(t, ":7000", cfg.EndpointAddrGRPC)
	assert.Equal(t, 90*time.Second, cfg.AccessTokenValidityDuration)
	assert.Equal(t, 3, cfg.LockoutThreshold)
	assert.Equal(t, "k", cfg.HIBPAPIKey)
	assert.Equal(t, "kept", cfg.DatabaseDSN)
}

func TestParseEnv_BadValue(t *testing.T) {
	t.Setenv("GOPHGUARD_BREACH_MAX_RETRIES", "many")

	err := parseEnv(&Config{})
	assert.Error(t, err)
}
