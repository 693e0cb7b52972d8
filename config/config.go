package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	postgres_wrapper "github.com/utkarsh205-ui/order-execution-engine/pkg/infra/postgres"
	redis_wrapper "github.com/utkarsh205-ui/order-execution-engine/pkg/infra/redis"
)

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	Server      ServerConfig                     `yaml:"server"`
	OrderDB     *postgres_wrapper.PostgresConfig `yaml:"order_db"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	Queue       QueueConfig                      `yaml:"queue"`
	Pipeline    PipelineConfig                   `yaml:"pipeline"`
	Venues      []VenueConfig                    `yaml:"venues"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type QueueConfig struct {
	Name        string  `yaml:"name"`
	Concurrency int     `yaml:"concurrency"`
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelayMs int64   `yaml:"base_delay_ms"`
	Multiplier  float64 `yaml:"multiplier"`
	MaxDelayMs  int64   `yaml:"max_delay_ms"`
}

type PipelineConfig struct {
	QuoteTimeoutMs   int64 `yaml:"quote_timeout_ms"`
	ExecuteTimeoutMs int64 `yaml:"execute_timeout_ms"`
}

// VenueConfig describes one simulated venue. Order matters: the list
// position is the venue's priority when quotes tie.
type VenueConfig struct {
	Name        string  `yaml:"name"`
	Fee         float64 `yaml:"fee"`
	JitterLow   float64 `yaml:"jitter_low"`
	JitterHigh  float64 `yaml:"jitter_high"`
	FailureRate float64 `yaml:"failure_rate"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
