package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/points-ledger/internal/database"
)

func TestLoadPointsDefaults(t *testing.T) {
	for _, k := range []string{"POINTS_BASE_GRANT", "PUBLIC_ID_LENGTH", "TOKEN_CODE_LENGTH", "TOKEN_CODE_FORMAT", "ISSUE_MAX_BATCH"} {
		t.Setenv(k, "")
	}
	p := LoadPoints()
	assert.Equal(t, int64(50), p.BaseGrant)
	assert.Equal(t, 8, p.PublicIDLength)
	assert.Equal(t, 10, p.CodeLength)
	assert.Equal(t, "numeric", p.CodeFormat)
	assert.Equal(t, 10000, p.MaxBatch)
}

func TestLoadPointsOverrides(t *testing.T) {
	t.Setenv("POINTS_BASE_GRANT", "0")
	t.Setenv("TOKEN_CODE_FORMAT", "hex")
	t.Setenv("ISSUE_MAX_BATCH", "not-a-number")
	p := LoadPoints()
	assert.Zero(t, p.BaseGrant)
	assert.Equal(t, "hex", p.CodeFormat)
	assert.Equal(t, 10000, p.MaxBatch, "invalid ints keep the default")
}

func TestLoadDatabaseSQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/ledger.db")
	cfg := LoadDatabase()
	assert.Equal(t, database.Config{Driver: database.DriverSQLite, Path: "/tmp/ledger.db"}, cfg)
}

func TestLoadDatabaseMySQL(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_USER", "points")
	t.Setenv("DB_PASS", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "ledger")
	cfg := LoadDatabase()
	assert.Equal(t, database.DriverMySQL, cfg.Driver)
	assert.Equal(t, "points", cfg.User)
	assert.Equal(t, "db", cfg.Host)
	assert.Equal(t, "ledger", cfg.Name)
}

func TestLoadEvents(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@broker:5672/")
	t.Setenv("EVENTS_ENABLED", "off")
	t.Setenv("EVENTS_CONSUMER", "yes")
	ev := LoadEvents()
	assert.Equal(t, "amqp://u:p@broker:5672/", ev.URL)
	assert.False(t, ev.Enabled)
	assert.True(t, ev.Consumer)

	t.Setenv("RABBITMQ_URL", "amqp://rabbit/")
	assert.Equal(t, "amqp://rabbit/", LoadEvents().URL)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_BURST", "")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)

	t.Setenv("RATE_LIMIT_BURST", "100")
	assert.Equal(t, 100, LoadRateLimitConfig().Capacity)
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_TLS", "")
	opts := RedisOptions()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Nil(t, opts.TLSConfig)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_TLS", "1")
	opts = RedisOptions()
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.NotNil(t, opts.TLSConfig)
}
