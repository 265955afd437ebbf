package config

import (
	"fmt"
	"os"
	"stockpile/pkg/client"
	"stockpile/pkg/logger"
	"strconv"
	"time"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port     string
	LogLevel string

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	ReservationTTL time.Duration
	SweepInterval  time.Duration
	ReserveRetries int
	SweepBatchSize int

	MaxStayNights int
	MaxBatchItems int

	EventsEnabled  bool
	EventsTopic    string
	EventsDLQTopic string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port:     getEnvStr(EnvPort, DefaultPort),
		LogLevel: getEnvStr(EnvLogLevel, DefaultLogLevel),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		ReservationTTL: getEnvDuration(EnvReservationTTL, DefaultReservationTTL),
		SweepInterval:  getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		ReserveRetries: getEnvNum(EnvReserveRetries, DefaultReserveRetries),
		SweepBatchSize: getEnvNum(EnvSweepBatchSize, DefaultSweepBatchSize),

		MaxStayNights: getEnvNum(EnvMaxStayNights, DefaultMaxStayNights),
		MaxBatchItems: getEnvNum(EnvMaxBatchItems, DefaultMaxBatchItems),

		EventsEnabled:  getEnvBool(EnvEventsEnabled, DefaultEventsEnabled),
		EventsTopic:    getEnvStr(EnvEventsTopic, DefaultEventsTopic),
		EventsDLQTopic: getEnvStr(EnvEventsDLQTopic, DefaultEventsDLQTopic),
	}

	cfg.Log = logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  logger.JSON,
		Service: serviceName,
	})

	cfg.Client = client.NewClient()
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)

	return cfg
}

func (cfg *Config) Validate() error {
	if cfg.MongoURI == "" {
		return fmt.Errorf("mongo URI cannot be empty")
	}
	if cfg.MongoDatabaseName == "" {
		return fmt.Errorf("mongo database name cannot be empty")
	}
	if cfg.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if cfg.ReservationTTL <= 0 {
		return fmt.Errorf("reservation TTL must be positive, got: %s", cfg.ReservationTTL)
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got: %s", cfg.SweepInterval)
	}
	if cfg.ReserveRetries < 1 {
		return fmt.Errorf("reserve retries must be at least 1, got: %d", cfg.ReserveRetries)
	}
	if cfg.SweepBatchSize < 1 {
		return fmt.Errorf("sweep batch size must be at least 1, got: %d", cfg.SweepBatchSize)
	}
	if cfg.MaxStayNights < 1 {
		return fmt.Errorf("max stay nights must be at least 1, got: %d", cfg.MaxStayNights)
	}
	if cfg.MaxBatchItems < 1 {
		return fmt.Errorf("max batch items must be at least 1, got: %d", cfg.MaxBatchItems)
	}
	if cfg.MaxRequestSize <= 0 {
		return fmt.Errorf("max request size must be positive, got: %d", cfg.MaxRequestSize)
	}
	if cfg.EventsEnabled && cfg.EventsTopic == "" {
		return fmt.Errorf("events topic cannot be empty when events are enabled")
	}
	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded",
		"mongo_database", cfg.MongoDatabaseName,
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"request_timeout", cfg.RequestTimeout,
		"reservation_ttl", cfg.ReservationTTL,
		"sweep_interval", cfg.SweepInterval,
		"reserve_retries", cfg.ReserveRetries,
		"sweep_batch_size", cfg.SweepBatchSize,
		"max_stay_nights", cfg.MaxStayNights,
		"max_batch_items", cfg.MaxBatchItems,
		"events_enabled", cfg.EventsEnabled,
		"events_topic", cfg.EventsTopic,
	)
}

func getEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvNum(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if num, err := strconv.Atoi(value); err == nil {
			return num
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
