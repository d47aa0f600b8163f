package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	mio "github.com/you-humble/tasksim/core/libs/minio"

	"github.com/minio/minio-go/v7"
)

type minioStore struct {
	db       *minio.Client
	bucket   string
	basePath string
}

func NewMinIOStore(ctx context.Context, cfg mio.Config) (*minioStore, error) {
	mioClient, err := mio.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	basePath := strings.Trim(cfg.BasePath, "/")
	if basePath != "" {
		basePath += "/"
	}

	return &minioStore{
		db:       mioClient,
		bucket:   cfg.Bucket,
		basePath: basePath,
	}, nil
}

func (s *minioStore) Save(ctx context.Context, name string, r io.Reader, size int64) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	objectName, err := s.objectName(name)
	if err != nil {
		return Object{}, err
	}

	if size <= 0 {
		size = -1
	}

	hasher := sha256.New()
	info, err := s.db.PutObject(ctx, s.bucket, objectName, io.TeeReader(r, hasher), size, minio.PutObjectOptions{})
	if err != nil {
		return Object{}, fmt.Errorf("put object: %w", err)
	}

	return Object{
		Name:     name,
		Size:     info.Size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (s *minioStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	objectName, err := s.objectName(name)
	if err != nil {
		return nil, 0, err
	}

	obj, err := s.db.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get object: %w", err)
	}

	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if resp := minio.ToErrorResponse(err); resp.Code == minio.NoSuchKey {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, 0, fmt.Errorf("stat object: %w", err)
	}

	return obj, st.Size, nil
}

func (s *minioStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	objectName, err := s.objectName(name)
	if err != nil {
		return err
	}

	err = s.db.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		var merr minio.ErrorResponse
		if errors.As(err, &merr) && merr.Code == minio.NoSuchKey {
			return nil
		}
		return fmt.Errorf("remove object: %w", err)
	}

	return nil
}

func (s *minioStore) CleanupOlderThan(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	opts := minio.ListObjectsOptions{
		Prefix:    s.basePath,
		Recursive: true,
	}

	for objectInfo := range s.db.ListObjects(ctx, s.bucket, opts) {
		if objectInfo.Err != nil {
			continue
		}
		if !objectInfo.LastModified.Before(cutoff) {
			continue
		}

		err := s.db.RemoveObject(ctx, s.bucket, objectInfo.Key, minio.RemoveObjectOptions{})
		if err != nil {
			return fmt.Errorf("remove old object %s: %w", objectInfo.Key, err)
		}
	}

	return nil
}

func (s *minioStore) objectName(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}

	return s.basePath + clean, nil
}
