// Package config loads service settings from the environment and rule
// thresholds from a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MaxIdle  int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
	TTL             int
}

type KafkaConfig struct {
	Brokers    []string
	AlertTopic string
}

// SweepConfig holds the interval of each sweep job.
type SweepConfig struct {
	CareInterval       time.Duration
	NightInterval      time.Duration
	MedicationInterval time.Duration
}

type Config struct {
	Port          string
	SessionSecret string
	WebhookSecret string
	AdminPassword string
	RulesFile     string
	Timezone      string

	Database DatabaseConfig
	Redis    RedisConfig
	Push     PushConfig
	Kafka    KafkaConfig
	Sweep    SweepConfig

	Log struct {
		Level  string
		Format string
	}
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.WebhookSecret = os.Getenv("WEBHOOK_SECRET")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	cfg.RulesFile = os.Getenv("RULES_FILE")
	cfg.Timezone = getEnv("TIMEZONE", "Europe/London")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Push.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.Push.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	cfg.Push.Subject = getEnv("VAPID_SUBJECT", "mailto:alerts@carehome.local")
	cfg.Push.TTL = getEnvInt("PUSH_TTL", 300)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	cfg.Kafka.AlertTopic = getEnv("KAFKA_ALERT_TOPIC", "carehome.alerts")

	var err error
	if cfg.Sweep.CareInterval, err = getEnvDuration("CARE_SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Sweep.NightInterval, err = getEnvDuration("NIGHT_SWEEP_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Sweep.MedicationInterval, err = getEnvDuration("MEDICATION_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// Validate checks settings that are required to serve traffic.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
