package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// PenaltyPercent is the cancellation penalty as a percentage of the
	// shipment value, applied once offers exist.
	PenaltyPercent float64 `mapstructure:"PENALTY_PERCENT" default:"20"`
	// SweepIntervalSeconds is how often the deadline sweeper runs.
	SweepIntervalSeconds int `mapstructure:"SWEEP_INTERVAL_SECONDS" default:"30"`

	// Storage holds the persistence configuration.
	Storage StorageConfig `mapstructure:",squash"`

	// Events holds the notification and realtime-feed configuration.
	Events EventsConfig `mapstructure:",squash"`
}

// StorageConfig selects and configures the shipment store backend.
type StorageConfig struct {
	// Backend is one of "memory", "redis" or "postgres".
	Backend string `mapstructure:"STORAGE_BACKEND" default:"memory"`
	// RedisURL is the Redis connection string, required for the redis backend
	// and for the realtime feed.
	RedisURL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379"`
	// PostgresDSN is the Postgres connection string for the postgres backend.
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`
}

// EventsConfig holds the Kafka and realtime feed settings.
type EventsConfig struct {
	// KafkaBroker is the broker address for lifecycle notifications. Empty
	// disables the Kafka publisher.
	KafkaBroker string `mapstructure:"KAFKA_BROKER"`
	// KafkaTopic is the topic lifecycle events are published to.
	KafkaTopic string `mapstructure:"KAFKA_TOPIC" default:"freight.shipments"`
	// FeedChannelPrefix prefixes the per-shipment Redis pub/sub channels.
	FeedChannelPrefix string `mapstructure:"FEED_CHANNEL_PREFIX" default:"shipments"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// validate checks cross-field constraints that tags cannot express.
func (c *AppConfig) validate() error {
	switch c.Storage.Backend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN is required for the postgres backend")
	}
	if c.PenaltyPercent < 0 || c.PenaltyPercent > 100 {
		return fmt.Errorf("PENALTY_PERCENT must be between 0 and 100, got %v", c.PenaltyPercent)
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be positive, got %d", c.SweepIntervalSeconds)
	}
	return nil
}

// processTags iterates over the struct fields and sets default values in Viper.
// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
