package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config aggregates application configuration loaded from the environment
// and an optional shutterbook.yaml.
type Config struct {
	Env                string
	HTTPAddr           string
	LogLevel           string
	Store              string
	DatabaseURL        string
	SQLitePath         string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	DefaultCurrency    string
	InvoiceDueDays     int
	AdminToken         string
	FixturesPath       string
}

var ErrUnknownStore = errors.New("config: unknown STORE")

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("shutterbook")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read shutterbook.yaml: %w", err)
		}
	}
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE", StoreMemory)
	v.SetDefault("SQLITE_PATH", "shutterbook.db")
	v.SetDefault("MONGO_DB", "shutterbook")
	v.SetDefault("KAFKA_TOPIC_PREFIX", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IDEMP_TTL", "168h")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "500ms")
	v.SetDefault("RETRY_BACKOFF", "1s,5s,30s")
	v.SetDefault("DEFAULT_CURRENCY", "USD")
	v.SetDefault("INVOICE_DUE_DAYS", 14)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:              v.GetString("APP_ENV"),
		HTTPAddr:         v.GetString("HTTP_ADDR"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		Store:            strings.ToLower(strings.TrimSpace(v.GetString("STORE"))),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		SQLitePath:       v.GetString("SQLITE_PATH"),
		MongoURI:         v.GetString("MONGO_URI"),
		MongoDB:          v.GetString("MONGO_DB"),
		KafkaTopicPrefix: v.GetString("KAFKA_TOPIC_PREFIX"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		DefaultCurrency:  strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
		InvoiceDueDays:   v.GetInt("INVOICE_DUE_DAYS"),
		AdminToken:       v.GetString("ADMIN_TOKEN"),
		FixturesPath:     v.GetString("FIXTURES_PATH"),
	}
	for _, raw := range strings.Split(v.GetString("KAFKA_BROKERS"), ",") {
		if b := strings.TrimSpace(raw); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	var err error
	if cfg.IdempotencyTTL, err = duration(v, "IDEMP_TTL"); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = duration(v, "OUTBOX_POLL_INTERVAL"); err != nil {
		return Config{}, err
	}
	for _, raw := range strings.Split(v.GetString("RETRY_BACKOFF"), ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORE=%s", StorePostgres)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Store)
	}
	if len(cfg.DefaultCurrency) != 3 {
		return Config{}, fmt.Errorf("invalid DEFAULT_CURRENCY %q", cfg.DefaultCurrency)
	}
	if cfg.InvoiceDueDays < 0 {
		return Config{}, fmt.Errorf("INVOICE_DUE_DAYS must not be negative")
	}
	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}
