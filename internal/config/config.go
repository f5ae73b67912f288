// Package config loads entitystore settings from an optional YAML file and
// ENTITYSTORE_* environment variables, the latter taking precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"entitystore/internal/blob"
	"entitystore/internal/codec"
	"entitystore/internal/persist"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "ENTITYSTORE_"

// Config is the full runtime configuration.
type Config struct {
	Store       Store  `yaml:"store" envPrefix:"STORE_"`
	Format      string `yaml:"format" env:"FORMAT"`
	Prefix      string `yaml:"prefix" env:"PREFIX"`
	Queue       Queue  `yaml:"queue" envPrefix:"QUEUE_"`
	Worker      Worker `yaml:"worker" envPrefix:"WORKER_"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
}

// Store selects the backing blob driver.
type Store struct {
	Driver      string `yaml:"driver" env:"DRIVER"`
	FSRoot      string `yaml:"fs_root" env:"FS_ROOT"`
	SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	S3          S3     `yaml:"s3" envPrefix:"S3_"`
}

// S3 configures the S3 / MinIO driver.
type S3 struct {
	Bucket          string `yaml:"bucket" env:"BUCKET"`
	Region          string `yaml:"region" env:"REGION"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT"`
	PathStyle       bool   `yaml:"path_style" env:"PATH_STYLE"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	SessionToken    string `yaml:"session_token" env:"SESSION_TOKEN"`
}

// Queue bounds admission of new tasks.
type Queue struct {
	Capacity      int           `yaml:"capacity" env:"CAPACITY"`
	SubmitTimeout time.Duration `yaml:"submit_timeout" env:"SUBMIT_TIMEOUT"`
}

// Worker tunes the worker loop and shutdown.
type Worker struct {
	PollInterval     time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	StopTimeout      time.Duration `yaml:"stop_timeout" env:"STOP_TIMEOUT"`
	StopPollInterval time.Duration `yaml:"stop_poll_interval" env:"STOP_POLL_INTERVAL"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Store:    Store{Driver: string(blob.DriverFilesystem), FSRoot: "./entitydata"},
		Format:   codec.XML.Name(),
		Queue:    Queue{Capacity: persist.DefaultQueueCapacity},
		Worker:   Worker{PollInterval: persist.DefaultPollInterval, StopTimeout: persist.DefaultStopTimeout, StopPollInterval: persist.DefaultStopPollInterval},
		LogLevel: "info",
	}
}

// Load starts from Default, overlays the YAML file at path when path is not
// empty, then applies environment variables, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch blob.Driver(c.Store.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory, blob.DriverSQLite, blob.DriverPostgres:
	case blob.DriverS3:
		if c.Store.S3.Bucket == "" {
			errs = append(errs, errors.New("store.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of fs, memory, s3, sqlite, postgres", c.Store.Driver))
	}
	if _, err := codec.FormatByName(c.Format); err != nil {
		errs = append(errs, fmt.Errorf("format: %w", err))
	}
	if strings.HasPrefix(c.Prefix, "/") || strings.Contains(c.Prefix, "..") {
		errs = append(errs, fmt.Errorf("prefix %q must be relative", c.Prefix))
	}
	if c.Queue.Capacity < 0 {
		errs = append(errs, fmt.Errorf("queue.capacity must not be negative, got %d", c.Queue.Capacity))
	}
	if c.Queue.SubmitTimeout < 0 {
		errs = append(errs, fmt.Errorf("queue.submit_timeout must not be negative"))
	}
	if c.Worker.PollInterval <= 0 || c.Worker.StopPollInterval <= 0 || c.Worker.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("worker intervals and stop timeout must be positive"))
	}
	if !contains(logLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("log_level %q is not one of %s", c.LogLevel, strings.Join(logLevels, ", ")))
	}
	return errors.Join(errs...)
}

// BlobConfig converts the store section for blob.Open.
func (c Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver:      blob.Driver(c.Store.Driver),
		FSRoot:      c.Store.FSRoot,
		SQLitePath:  c.Store.SQLitePath,
		PostgresDSN: c.Store.PostgresDSN,
		S3: blob.S3Config{
			Region:          c.Store.S3.Region,
			Bucket:          c.Store.S3.Bucket,
			Endpoint:        c.Store.S3.Endpoint,
			AccessKeyID:     c.Store.S3.AccessKeyID,
			SecretAccessKey: c.Store.S3.SecretAccessKey,
			SessionToken:    c.Store.S3.SessionToken,
			PathStyle:       c.Store.S3.PathStyle,
		},
	}
}

// CodecFormat resolves the configured wire format.
func (c Config) CodecFormat() (codec.Format, error) {
	return codec.FormatByName(c.Format)
}

// ServiceOptions translates the queue, worker and codec settings into
// persist options.
func (c Config) ServiceOptions() ([]persist.Option, error) {
	format, err := c.CodecFormat()
	if err != nil {
		return nil, err
	}
	return []persist.Option{
		persist.WithFormat(format),
		persist.WithPrefix(c.Prefix),
		persist.WithQueueCapacity(c.Queue.Capacity),
		persist.WithSubmitTimeout(c.Queue.SubmitTimeout),
		persist.WithPollInterval(c.Worker.PollInterval),
		persist.WithStopPollInterval(c.Worker.StopPollInterval),
	}, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
