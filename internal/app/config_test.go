package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/odyssey-erp/odyssey-admin/testing"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	require.NoError(t, err)
	return Config{
		TokenSecret:           "secret",
		AdminSharedSecretHash: string(hash),
		PurgePageSize:         300,
		PurgeBudget:           2 * time.Minute,
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.PurgePageSize)
	assert.Equal(t, 2*time.Minute, cfg.PurgeBudget)
	assert.Equal(t, 6, cfg.PurgeRateLimit)
	assert.Equal(t, time.Duration(0), cfg.PurgeRetention)
	assert.Equal(t, time.Minute, cfg.AdminCacheTTL)
	assert.False(t, cfg.IsProduction())
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "missing token secret", mutate: func(c *Config) { c.TokenSecret = "" }},
		{name: "missing secret hash", mutate: func(c *Config) { c.AdminSharedSecretHash = "" }},
		{name: "plaintext secret", mutate: func(c *Config) { c.AdminSharedSecretHash = "let-me-in" }},
		{name: "zero page size", mutate: func(c *Config) { c.PurgePageSize = 0 }},
		{name: "zero budget", mutate: func(c *Config) { c.PurgeBudget = 0 }},
		{name: "negative retention", mutate: func(c *Config) { c.PurgeRetention = -time.Hour }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(&cfg)
			err := cfg.validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPurgeRequestTimeoutOutlivesBudget(t *testing.T) {
	cfg := validConfig(t)
	assert.Greater(t, cfg.PurgeRequestTimeout(), cfg.PurgeBudget)
	assert.Equal(t, cfg.PurgeRequestTimeout(), purgeTimeout(&cfg))
	assert.Equal(t, 30*time.Second, requestTimeout(nil))
}
