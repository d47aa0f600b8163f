package mio

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
	BasePath        string
	Retry           RetryConfig
}

type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (r RetryConfig) withDefaults() RetryConfig {
	if r.MaxRetries <= 0 {
		r.MaxRetries = 5
	}
	if r.InitialInterval <= 0 {
		r.InitialInterval = time.Second
	}
	if r.MaxInterval <= 0 {
		r.MaxInterval = 30 * time.Second
	}
	return r
}

// NewClient creates the artifact bucket client. MinIO usually starts slower
// than the services, so connecting is retried with exponential backoff.
func NewClient(ctx context.Context, cfg Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty MinIO endpoint")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("empty MinIO bucket")
	}

	retry := cfg.Retry.withDefaults()

	var lastErr error
	interval := retry.InitialInterval

	for attempt := range retry.MaxRetries {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("context canceled before MinIO init: %w", ctx.Err())
		}

		client, err := connect(ctx, cfg)
		if err == nil {
			return client, nil
		}
		lastErr = err

		if attempt == retry.MaxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled while waiting to retry MinIO: %w", ctx.Err())
		case <-time.After(interval):
			interval = min(interval*2, retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("init MinIO failed after %d attempts: %w", retry.MaxRetries, lastErr)
}

func connect(ctx context.Context, cfg Config) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}

	if err := ensureBucket(ctx, client, cfg.Bucket); err != nil {
		return nil, err
	}
	return client, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket exists: %w", err)
	}
	if exists {
		return nil
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}
