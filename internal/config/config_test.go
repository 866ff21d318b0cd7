package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMemoryDriverNeedsNoDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("REVIEW_REQUIRE_COMPLETED_BOOKING", "yes")

	cfg := Load()
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.ReviewRequiresCompletedBooking)
	assert.Empty(t, cfg.DBHost)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMySQLDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "marketplace")

	cfg := Load()
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, "app", cfg.DBUser)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Config{StoreDriver: "sqlite", JWTSecret: " ", AccessTTLMin: 1, RefreshTTLDays: 1, BcryptCost: 2}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "BCRYPT_COST")
}

func TestLoadRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 1, rl.RefillTokens)
	assert.Equal(t, 2*time.Second, rl.RefillInterval)
	assert.Equal(t, 10*time.Second, rl.TTL)
	assert.Equal(t, "ip_actor_route", rl.KeyStrategy)
}

func TestLoadBrokerConfig(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
	b := LoadBrokerConfig()
	assert.Equal(t, "amqp://u:p@mq:5672/", b.URL)
	assert.Equal(t, "booking.events", b.Queue)
	assert.True(t, b.Enabled)
	assert.Equal(t, uint32(3), b.BreakerFailures)
	assert.Equal(t, 30*time.Second, b.BreakerTimeout)

	t.Setenv("BROKER_BREAKER_FAILURES", "0")
	assert.Equal(t, uint32(1), LoadBrokerConfig().BreakerFailures)
}

func TestEnvBoolFallsBackOnGarbage(t *testing.T) {
	t.Setenv("X_FLAG", "maybe")
	assert.True(t, envBool("X_FLAG", true))
	assert.False(t, envBool("X_FLAG", false))
}

func TestRedisOptionsHostPort(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	opts := RedisOptions()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Nil(t, opts.TLSConfig)
}
