package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel    string `yaml:"log_level"`
	BaseDir     string `yaml:"base_dir"`
	MetricsAddr string `yaml:"metrics_addr"`

	QueueCapacity int `yaml:"queue_capacity"`
	PoolSize      int `yaml:"pool_size"`

	JobTTL             time.Duration `yaml:"job_ttl"`
	JobCleanupInterval time.Duration `yaml:"job_cleanup_interval"`
	JobTimeout         time.Duration `yaml:"job_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`

	Redis Redis `yaml:"redis"`
	MinIO MinIO `yaml:"minio"`
	NATS  NATS  `yaml:"nats"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MinIO struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Bucket          string `yaml:"bucket"`
}

type NATS struct {
	URL           string `yaml:"url"`
	Name          string `yaml:"name"`
	MaxReconnects int    `yaml:"max_reconnects"`
	Subject       string `yaml:"subject"`
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal yaml: %w", err)
	}

	if cfg.BaseDir == "" {
		return nil, errors.New("base_dir is empty")
	}
	if cfg.Redis.Addr == "" {
		return nil, errors.New("redis.addr is empty")
	}
	if cfg.NATS.Subject == "" {
		return nil, errors.New("nats.subject is empty")
	}
	if cfg.JobTTL <= 0 {
		return nil, fmt.Errorf("job_ttl must be positive, got %s", cfg.JobTTL)
	}
	if cfg.MinIO.Enabled && cfg.MinIO.Bucket == "" {
		return nil, errors.New("minio.bucket is empty")
	}

	if cfg.JobCleanupInterval <= 0 {
		cfg.JobCleanupInterval = time.Minute
	}
	// The longest simulated run is 45s plus step overhead.
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 100
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.NATS.Name == "" {
		cfg.NATS.Name = "tasksim-distributor"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return &cfg, nil
}
