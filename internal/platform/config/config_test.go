package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := FromEnv()
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, time.Hour, cfg.BackendSessionTimeout)
		assert.Equal(t, 3, cfg.Kafka.MaxAttempts)
		assert.Empty(t, cfg.Kafka.Brokers)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("IPVCORE_ADDR", ":9090")
		t.Setenv("BACKEND_SESSION_TIMEOUT", "90m")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
		t.Setenv("REDIS_POOL_SIZE", "not-a-number")

		cfg := FromEnv()
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, 90*time.Minute, cfg.BackendSessionTimeout)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 20, cfg.Redis.PoolSize)
	})
}
