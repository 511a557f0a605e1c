package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/common/config"
)

// Config 远程监控服务配置
type Config struct {
	HTTP struct {
		Addr string
	}

	DBEnabled bool
	Database  commoncfg.DatabaseConfig

	RedisEnabled bool
	Redis        commoncfg.RedisConfig

	MQTT struct {
		Enabled bool
		commoncfg.MQTTConfig
		// 采集数据主题，+ 位置为 point_code，如 "monitor/points/+/data"
		TelemetryTopic string
	}

	Monitoring struct {
		// 实时值缓存
		Cache struct {
			KeyPrefix string        // 如 "remote-monitoring:point:"
			TTL       time.Duration // 0 表示不过期
		}

		// 报警通知
		Notify struct {
			StreamName     string        // Redis Stream 名称
			StreamMaxLen   int64         // Stream 最大长度（近似）
			WebhookTimeout time.Duration // Webhook 请求超时
		}

		// 虚拟表定时计算（cron 表达式，含秒），空字符串表示禁用
		FormulaSchedule string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量 + 默认值）
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// DB 不可用时回退到内存 repo
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "remote_monitoring"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 20
	cfg.Database.MaxIdle = 5
	cfg.Database.ConnMaxLifetime = 30 * time.Minute
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "remote-monitoring"
	cfg.MQTT.QoS = 1
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")
	cfg.MQTT.TelemetryTopic = getEnv("MQTT_TELEMETRY_TOPIC", "monitor/points/+/data")

	cfg.Monitoring.Cache.KeyPrefix = getEnv("CACHE_POINT_PREFIX", "remote-monitoring:point:")
	cfg.Monitoring.Cache.TTL = time.Duration(parseInt(getEnv("CACHE_POINT_TTL", "0"), 0)) * time.Second

	cfg.Monitoring.Notify.StreamName = getEnv("ALARM_STREAM", "remote-monitoring:alarms")
	cfg.Monitoring.Notify.StreamMaxLen = int64(parseInt(getEnv("ALARM_STREAM_MAXLEN", "10000"), 10000))
	cfg.Monitoring.Notify.WebhookTimeout = time.Duration(parseInt(getEnv("ALARM_WEBHOOK_TIMEOUT", "5"), 5)) * time.Second

	cfg.Monitoring.FormulaSchedule = getEnv("FORMULA_SCHEDULE", "0 * * * * *") // 每分钟

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
