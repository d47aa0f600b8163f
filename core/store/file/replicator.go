package filestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

type Backend interface {
	Save(ctx context.Context, name string, r io.Reader, size int64) (Object, error)
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
}

type ReplicateJob struct {
	Name     string
	Size     int64
	Checksum string
	Retries  int
}

// Replicator copies artifacts from the local store to the remote one in the
// background. Failed copies are requeued until maxRetries is reached.
type Replicator struct {
	local  Backend
	remote Backend

	queue      chan ReplicateJob
	workerNum  int
	maxRetries int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewReplicator(local, remote Backend, queueSize, workerNum, maxRetries int) *Replicator {
	if queueSize <= 0 {
		queueSize = 100
	}
	if workerNum <= 0 {
		workerNum = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Replicator{
		local:      local,
		remote:     remote,
		queue:      make(chan ReplicateJob, queueSize),
		workerNum:  workerNum,
		maxRetries: maxRetries,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (r *Replicator) Start(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.wg.Add(r.workerNum)
	for i := 0; i < r.workerNum; i++ {
		go r.worker()
	}
}

// Stop closes the queue and waits for in-flight copies. Jobs still queued
// when the context ends are dropped.
func (r *Replicator) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		r.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	case <-doneCh:
	}
	r.cancel()

	slog.Info("replicator: stopped")
	return nil
}

func (r *Replicator) Enqueue(job ReplicateJob) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false
	}

	select {
	case r.queue <- job:
		return true
	default:
		return false
	}
}

func (r *Replicator) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case job, ok := <-r.queue:
			if !ok {
				return
			}
			r.handle(r.ctx, job)
		}
	}
}

func (r *Replicator) handle(ctx context.Context, job ReplicateJob) {
	l := slog.With(
		slog.String("filename", job.Name),
		slog.Int("retries", job.Retries),
	)

	err := r.replicateOnce(ctx, job)
	if err == nil {
		return
	}

	if job.Retries >= r.maxRetries {
		l.Error("replication failed, max retries exceeded", slog.String("error", err.Error()))
		return
	}

	job.Retries++
	if !r.Enqueue(job) {
		l.Error("replication failed and job could not be requeued", slog.String("error", err.Error()))
		return
	}
	l.Warn("replication failed, job requeued",
		slog.String("error", err.Error()),
		slog.Int("next_retry", job.Retries),
	)
}

func (r *Replicator) replicateOnce(ctx context.Context, job ReplicateJob) error {
	rc, size, err := r.local.Open(ctx, job.Name)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer rc.Close()

	if job.Size > 0 {
		size = job.Size
	}

	obj, err := r.remote.Save(ctx, job.Name, rc, size)
	if err != nil {
		return fmt.Errorf("save to remote: %w", err)
	}

	if obj.Size <= 0 {
		return fmt.Errorf("remote save wrote zero bytes")
	}

	if job.Checksum != "" && obj.Checksum != "" && job.Checksum != obj.Checksum {
		return fmt.Errorf("checksum mismatch: local=%s remote=%s", job.Checksum, obj.Checksum)
	}

	slog.Debug("replicator: file replicated",
		slog.String("filename", job.Name),
		slog.Int64("size", obj.Size),
	)

	return nil
}
