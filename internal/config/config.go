package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the flow engine
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Flow Store
		Store StoreConfig

		// Archive
		ArchiveBucketURL string
		ArchivePrefix    string

		// Engine & Sweeper
		DefaultFlowTimeout time.Duration
		MaxFlowTimeout     time.Duration
		SweepInterval      time.Duration
		ShutdownTimeout    time.Duration
	}

	// StoreConfig holds Redis connection settings for the flow store
	StoreConfig struct {
		Addr     string
		Password string
		Prefix   string
		DB       int
	}
)

const (
	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "drover"
	DefaultRedisDB       = 0

	DefaultFlowTimeout     = time.Hour
	MaxFlowTimeout         = 30 * 24 * time.Hour
	DefaultSweepInterval   = 5 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second

	DefaultListLimit = 50
	MaxListLimit     = 500

	DefaultArchivePrefix = "flows/"
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrInvalidFlowTimeout   = errors.New("flow timeout must be positive")
	ErrFlowTimeoutTooLarge  = errors.New("flow timeout exceeds maximum")
	ErrInvalidSweepInterval = errors.New("sweep interval must be positive")
	ErrMissingRedisAddr     = errors.New("redis address is required")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// engine, store, and sweeper
func NewDefaultConfig() *Config {
	return &Config{
		APIPort:  DefaultAPIPort,
		APIHost:  DefaultAPIHost,
		LogLevel: "info",
		Store: StoreConfig{
			Addr:     DefaultRedisEndpoint,
			Password: "",
			DB:       DefaultRedisDB,
			Prefix:   DefaultRedisPrefix,
		},
		ArchivePrefix:      DefaultArchivePrefix,
		DefaultFlowTimeout: DefaultFlowTimeout,
		MaxFlowTimeout:     MaxFlowTimeout,
		SweepInterval:      DefaultSweepInterval,
		ShutdownTimeout:    DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Store.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Store.Password = password
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		c.Store.Prefix = prefix
	}
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if bucketURL := os.Getenv("ARCHIVE_BUCKET_URL"); bucketURL != "" {
		c.ArchiveBucketURL = bucketURL
	}
	if prefix := os.Getenv("ARCHIVE_PREFIX"); prefix != "" {
		c.ArchivePrefix = prefix
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"REDIS_DB", &c.Store.DB, -1, 15,
	); err != nil {
		return err
	}

	if err := loadEnvDurationMS(
		"FLOW_TIMEOUT_MS", &c.DefaultFlowTimeout, MaxFlowTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvDurationMS(
		"SWEEP_INTERVAL_MS", &c.SweepInterval, 24*time.Hour,
	); err != nil {
		return err
	}
	return loadEnvDurationMS(
		"SHUTDOWN_TIMEOUT_MS", &c.ShutdownTimeout, time.Hour,
	)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.Store.Addr == "" {
		return ErrMissingRedisAddr
	}

	if c.DefaultFlowTimeout <= 0 {
		return ErrInvalidFlowTimeout
	}

	if c.DefaultFlowTimeout > c.MaxFlowTimeout {
		return fmt.Errorf("%w: %s > %s",
			ErrFlowTimeoutTooLarge, c.DefaultFlowTimeout, c.MaxFlowTimeout)
	}

	if c.SweepInterval <= 0 {
		return ErrInvalidSweepInterval
	}

	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

// loadEnvDurationMS reads key as a millisecond count and sets *dst
func loadEnvDurationMS(
	key string, dst *time.Duration, max time.Duration,
) error {
	var ms int64
	if err := loadEnvInt(
		key, &ms, 0, max.Milliseconds(),
	); err != nil {
		return err
	}
	if ms != 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
	return nil
}
