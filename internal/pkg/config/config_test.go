package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "test-secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 10000, cfg.AuditCapacity)
	assert.Equal(t, 1000, cfg.AlertCapacity)
	assert.Equal(t, 15*time.Minute, cfg.DetectionWindow)
	assert.Equal(t, "@every 1m", cfg.SweepSchedule)
	assert.False(t, cfg.Legacy.Enabled)
	assert.Equal(t, "opsdesk_security", cfg.Mongo.Database)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "security:alerts", cfg.Redis.Channel)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestConfig_TrustedProxyNets(t *testing.T) {
	cfg, err := Parse(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "s",
		"TRUSTED_PROXIES": "10.1.0.0/16, 192.0.2.7",
	}))
	require.NoError(t, err)

	nets, err := cfg.TrustedProxyNets()
	require.NoError(t, err)
	require.Len(t, nets, 2)
	assert.Equal(t, "10.1.0.0/16", nets[0].String())
	assert.Equal(t, "192.0.2.7/32", nets[1].String())
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":                "s",
		"ENV":                       "production",
		"STORAGE_BACKEND":           "MONGO",
		"DETECTION_WINDOW":          "5m",
		"LEGACY_BOOTSTRAP_ENABLED":  "true",
		"LEGACY_BOOTSTRAP_PASSWORD": "bootstrap",
		"REDIS_ADDR":                "localhost:6379",
	}))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, BackendMongo, cfg.StorageBackend)
	assert.Equal(t, 5*time.Minute, cfg.DetectionWindow)
	assert.True(t, cfg.Legacy.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"blank secret", map[string]string{"JWT_SECRET": "  "}, "JWT_SECRET"},
		{"unknown backend", map[string]string{"JWT_SECRET": "s", "STORAGE_BACKEND": "sqlite"}, "STORAGE_BACKEND"},
		{"cost too low", map[string]string{"JWT_SECRET": "s", "BCRYPT_COST": "2"}, "BCRYPT_COST"},
		{"zero capacity", map[string]string{"JWT_SECRET": "s", "AUDIT_CAPACITY": "0"}, "AUDIT_CAPACITY"},
		{"legacy without password", map[string]string{"JWT_SECRET": "s", "LEGACY_BOOTSTRAP_ENABLED": "true"}, "LEGACY_BOOTSTRAP_PASSWORD"},
		{"bad proxy", map[string]string{"JWT_SECRET": "s", "TRUSTED_PROXIES": "10.0.0.0/33"}, "TRUSTED_PROXIES"},
		{"bad duration", map[string]string{"JWT_SECRET": "s", "DETECTION_WINDOW": "soon"}, "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), envconfig.MapLookuper(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
