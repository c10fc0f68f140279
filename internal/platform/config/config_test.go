package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.InDelta(t, 2.00, cfg.Lifecycle.PriceCeiling, 0.0001)
	assert.Equal(t, []string{".shop", ".click"}, cfg.Lifecycle.AllowedTLDs)
	assert.Equal(t, []string{"ns1.sedoparking.com", "ns2.sedoparking.com"}, cfg.Lifecycle.Nameservers)
	assert.Equal(t, 5*time.Minute, cfg.Lifecycle.SweepInterval)
	assert.Equal(t, 30*time.Minute, cfg.Lifecycle.PendingTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, []int{1008}, cfg.Marketplace.Categories)
	assert.True(t, cfg.Marketplace.SimulateUnconfigured)
	assert.Equal(t, "listed_domains", cfg.Redis.ListingKey)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 20, cfg.RateLimit.RegistrarPerWindow)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DOMAINPARK_REGISTRAR_API_KEY", "key")
	t.Setenv("DOMAINPARK_REGISTRAR_CONTACT_FIRST_NAME", "Ada")
	t.Setenv("DOMAINPARK_MARKETPLACE_SIMULATE_UNCONFIGURED", "false")
	t.Setenv("DOMAINPARK_LIFECYCLE_PRICE_CEILING", "1.75")
	t.Setenv("DOMAINPARK_LIFECYCLE_ALLOWED_TLDS", ".shop")
	t.Setenv("DOMAINPARK_RETRY_BASE_DELAY", "250ms")
	t.Setenv("DOMAINPARK_TRACING_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("DOMAINPARK_RATELIMIT_REGISTRAR_PER_WINDOW", "5")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.Registrar.APIKey)
	assert.Equal(t, "Ada", cfg.Registrar.Contact.FirstName)
	assert.False(t, cfg.Marketplace.SimulateUnconfigured)
	assert.InDelta(t, 1.75, cfg.Lifecycle.PriceCeiling, 0.0001)
	assert.Equal(t, []string{".shop"}, cfg.Lifecycle.AllowedTLDs)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, 5, cfg.RateLimit.RegistrarPerWindow)
}

func TestFromEnvNormalizesHostLists(t *testing.T) {
	t.Setenv("DOMAINPARK_LIFECYCLE_ALLOWED_TLDS", "SHOP, .click,.shop")
	t.Setenv("DOMAINPARK_LIFECYCLE_NAMESERVERS", " NS1.sedoparking.com,ns1.sedoparking.com,ns2.sedoparking.com")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{".shop", ".click"}, cfg.Lifecycle.AllowedTLDs)
	assert.Equal(t, []string{"ns1.sedoparking.com", "ns2.sedoparking.com"}, cfg.Lifecycle.Nameservers)
}

func TestFromEnvValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero ceiling", "DOMAINPARK_LIFECYCLE_PRICE_CEILING", "0"},
		{"no attempts", "DOMAINPARK_RETRY_MAX_ATTEMPTS", "0"},
		{"jitter above one", "DOMAINPARK_RETRY_JITTER", "1.5"},
		{"unknown driver", "DOMAINPARK_DATABASE_DRIVER", "mysql"},
		{"pgx without dsn", "DOMAINPARK_DATABASE_DRIVER", "pgx"},
		{"zero rate limit window", "DOMAINPARK_RATELIMIT_WINDOW", "0s"},
		{"blank tld list", "DOMAINPARK_LIFECYCLE_ALLOWED_TLDS", " , ."},
		{"pending timeout below request timeout", "DOMAINPARK_LIFECYCLE_PENDING_TIMEOUT", "1m"},
		{"unparsable duration", "DOMAINPARK_LIFECYCLE_SWEEP_INTERVAL", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestRetryPolicy(t *testing.T) {
	r := Retry{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 8 * time.Second, Jitter: 0.25}

	p := r.Policy(30 * time.Second)
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 30*time.Second, p.AttemptTimeout)
	assert.InDelta(t, 0.25, p.Jitter, 0.0001)
	assert.Equal(t, 1, p.Once().MaxAttempts)
}
