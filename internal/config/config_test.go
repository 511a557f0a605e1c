package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "remote_monitoring", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "monitor/points/+/data", cfg.MQTT.TelemetryTopic)

	assert.Equal(t, "remote-monitoring:point:", cfg.Monitoring.Cache.KeyPrefix)
	assert.Equal(t, time.Duration(0), cfg.Monitoring.Cache.TTL)
	assert.Equal(t, "remote-monitoring:alarms", cfg.Monitoring.Notify.StreamName)
	assert.Equal(t, int64(10000), cfg.Monitoring.Notify.StreamMaxLen)
	assert.Equal(t, 5*time.Second, cfg.Monitoring.Notify.WebhookTimeout)
	assert.Equal(t, "0 * * * * *", cfg.Monitoring.FormulaSchedule)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("DB_ENABLED", "false")
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "6543")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("MQTT_ENABLED", "true")
	os.Setenv("MQTT_BROKER", "tcp://broker:1883")
	os.Setenv("CACHE_POINT_TTL", "120")
	os.Setenv("FORMULA_SCHEDULE", "")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg := Load()

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, 120*time.Second, cfg.Monitoring.Cache.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestGetEnv(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	assert.Equal(t, "default", getEnv("TEST_KEY", "default"))

	os.Setenv("TEST_KEY", "value")
	assert.Equal(t, "value", getEnv("TEST_KEY", "default"))
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 5, parseInt("5", 1))
	assert.Equal(t, 1, parseInt("x", 1))
	assert.Equal(t, 1, parseInt("", 1))
}
