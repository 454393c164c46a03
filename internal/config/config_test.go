package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadSweepConfig(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "10ms")
	t.Setenv("SWEEP_LOOKBACK_DAYS", "-3")
	t.Setenv("SWEEP_WORKERS", "0")

	c := LoadSweepConfig()
	assert.True(t, c.Enabled)
	assert.Equal(t, time.Second, c.Interval)
	assert.Zero(t, c.LookbackDays)
	assert.Equal(t, 1, c.Workers)
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 5, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
}

func TestLoadQueueConfigFallsBackToAMQPURL(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
	t.Setenv("QUEUE_CONSUMER_ENABLED", "off")

	c := LoadQueueConfig()
	assert.Equal(t, "amqp://u:p@mq:5672/", c.URL)
	assert.False(t, c.ConsumerEnabled)
	assert.Equal(t, "logs", c.LogDir)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_INT", "12")
	assert.True(t, envBool("X_BOOL", true))
	assert.Equal(t, 12, envInt("X_INT", 0))
	assert.Equal(t, 3*time.Second, envDur("X_MISSING", 3*time.Second))
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, parseMethods(" get, head ,"))
}
