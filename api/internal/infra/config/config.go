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
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`

	BaseDir string `yaml:"base_dir"`

	QueueCapacity int `yaml:"queue_capacity"`
	PoolSize      int `yaml:"pool_size"`

	JobTTL          time.Duration `yaml:"job_ttl"`
	MaxRequestMb    int64         `yaml:"max_request_mb"`
	StatusCacheSize int           `yaml:"status_cache_size"`

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

	if cfg.Addr == "" {
		return nil, errors.New("addr is empty")
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

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxRequestMb <= 0 {
		cfg.MaxRequestMb = 1
	}
	if cfg.StatusCacheSize <= 0 {
		cfg.StatusCacheSize = 1024
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 100
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 2
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.NATS.Name == "" {
		cfg.NATS.Name = "tasksim-api"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return &cfg, nil
}
