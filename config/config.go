// Package config loads the licensectl configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/octabyte/license-client/client"
	"github.com/octabyte/license-client/otel"
	"github.com/octabyte/license-client/utils/logger"
)

// Prefix of every environment variable, e.g. LICENSE_API_URL.
const Prefix = "license"

type Config struct {
	APIURL           string        `envconfig:"API_URL" default:"http://localhost:8080" validate:"required,url"`
	Timeout          time.Duration `envconfig:"TIMEOUT" default:"30s" validate:"gt=0"`
	ServiceName      string        `envconfig:"SERVICE_NAME" default:"licensectl" validate:"required"`
	ProactiveRefresh bool          `envconfig:"PROACTIVE_REFRESH"`
	RefreshLeeway    time.Duration `envconfig:"REFRESH_LEEWAY" default:"30s" validate:"gte=0"`

	// Storage selects the session driver: memory, file or redis.
	Storage    string `envconfig:"STORAGE" default:"file" validate:"oneof=memory file redis"`
	StorageDir string `envconfig:"STORAGE_DIR"`

	Log   LogConfig   `envconfig:"LOG"`
	Redis RedisConfig `envconfig:"REDIS"`
	AMQP  AMQPConfig  `envconfig:"AMQP"`
	Otel  OtelConfig  `envconfig:"OTEL"`
}

type LogConfig struct {
	Level    string `envconfig:"LEVEL" default:"warn" validate:"oneof=debug info warn error"`
	Encoding string `envconfig:"ENCODING" default:"console" validate:"oneof=json console"`
	Env      string `envconfig:"ENV" default:"production"`
}

type RedisConfig struct {
	Addr     string        `envconfig:"ADDR" default:"localhost:6379"`
	Password string        `envconfig:"PASSWORD"`
	DB       int           `envconfig:"DB" validate:"gte=0"`
	Prefix   string        `envconfig:"PREFIX" default:"licensectl:"`
	TTL      time.Duration `envconfig:"TTL"`
}

// AMQPConfig enables publishing notifications to RabbitMQ when URI is set.
type AMQPConfig struct {
	URI   string `envconfig:"URI"`
	Queue string `envconfig:"QUEUE" default:"license.notifications"`
}

// OtelConfig enables trace and metric export when Endpoint is set.
type OtelConfig struct {
	Endpoint    string            `envconfig:"ENDPOINT"`
	Headers     map[string]string `envconfig:"HEADERS"`
	Environment string            `envconfig:"ENVIRONMENT" default:"production"`
	SampleRate  float64           `envconfig:"SAMPLE_RATE" default:"1" validate:"gte=0,lte=1"`
}

// LoadFromEnv reads an optional .env file and then the LICENSE_* variables.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Overload()

	cfg := new(Config)
	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = defaultStorageDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) Client() client.Config {
	return client.Config{
		BaseURL:          c.APIURL,
		Timeout:          c.Timeout,
		ServiceName:      c.ServiceName,
		ProactiveRefresh: c.ProactiveRefresh,
		RefreshLeeway:    c.RefreshLeeway,
	}
}

func (c *Config) Logger() *logger.Config {
	return &logger.Config{
		Level:       c.Log.Level,
		Env:         c.Log.Env,
		ServiceName: c.ServiceName,
		Encoding:    c.Log.Encoding,
	}
}

func (c *Config) Telemetry() otel.OtelConfig {
	return otel.OtelConfig{
		Enabled:     c.Otel.Endpoint != "",
		Endpoint:    c.Otel.Endpoint,
		ServiceName: c.ServiceName,
		Headers:     c.Otel.Headers,
		Environment: c.Otel.Environment,
		SampleRate:  c.Otel.SampleRate,
	}
}

func defaultStorageDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "licensectl")
	}
	return filepath.Join(os.TempDir(), "licensectl")
}
