package filestore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

type Store interface {
	Backend
	Delete(ctx context.Context, name string) error
	CleanupOlderThan(ctx context.Context, maxAge time.Duration) error
}

// asyncStore writes artifacts locally and replicates them to the remote
// store in the background. Reads fall back to the remote store when the
// local copy is gone. A nil remote makes it a plain local store.
type asyncStore struct {
	local      Store
	remote     Store
	replicator *Replicator
}

func NewAsyncStore(
	ctx context.Context,
	local Store,
	remote Store,
	queueSize,
	workerNum,
	maxRetries int,
) *asyncStore {
	s := &asyncStore{local: local, remote: remote}
	if remote != nil {
		s.replicator = NewReplicator(local, remote, queueSize, workerNum, maxRetries)
		s.replicator.Start(ctx)
	}
	return s
}

func (s *asyncStore) Close(ctx context.Context) error {
	if s.replicator == nil {
		return nil
	}
	return s.replicator.Stop(ctx)
}

func (s *asyncStore) Save(ctx context.Context, name string, r io.Reader, size int64) (Object, error) {
	obj, err := s.local.Save(ctx, name, r, size)
	if err != nil {
		return Object{}, err
	}

	if s.replicator == nil {
		return obj, nil
	}

	ok := s.replicator.Enqueue(ReplicateJob{
		Name:     name,
		Size:     obj.Size,
		Checksum: obj.Checksum,
	})
	if !ok {
		slog.Error("asyncStore: replication queue full, file saved only locally",
			slog.String("filename", name),
			slog.Int64("size", obj.Size),
		)
	}

	return obj, nil
}

func (s *asyncStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	rc, size, err := s.local.Open(ctx, name)
	if err == nil || s.remote == nil || !errors.Is(err, ErrNotFound) {
		return rc, size, err
	}

	return s.remote.Open(ctx, name)
}

func (s *asyncStore) Delete(ctx context.Context, name string) error {
	var firstErr error

	if err := s.local.Delete(ctx, name); err != nil {
		firstErr = err
		slog.Warn("asyncStore: delete local failed",
			slog.String("filename", name),
			slog.String("error", err.Error()),
		)
	}

	if s.remote == nil {
		return firstErr
	}

	if err := s.remote.Delete(ctx, name); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		slog.Warn("asyncStore: delete remote failed",
			slog.String("filename", name),
			slog.String("error", err.Error()),
		)
	}

	return firstErr
}

func (s *asyncStore) CleanupOlderThan(ctx context.Context, maxAge time.Duration) error {
	eg, eCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return s.local.CleanupOlderThan(eCtx, maxAge)
	})
	if s.remote != nil {
		eg.Go(func() error {
			return s.remote.CleanupOlderThan(eCtx, maxAge)
		})
	}

	return eg.Wait()
}
