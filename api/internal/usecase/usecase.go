package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/you-humble/tasksim/api/internal/domain"
	"github.com/you-humble/tasksim/core/job"
	simdomain "github.com/you-humble/tasksim/core/sim/domain"
	"github.com/you-humble/tasksim/core/sim/handler"
	filestore "github.com/you-humble/tasksim/core/store/file"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type EventHandler interface {
	HandleWithWebhook(ctx context.Context, ev simdomain.Event) simdomain.Envelope
}

type FileStore interface {
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
}

type JobStore interface {
	CreateJob(ctx context.Context, p job.CreateParams) (job.Job, error)
	Job(ctx context.Context, id string) (job.Job, bool)
	ByIdempotencyKey(ctx context.Context, key string) (job.Job, bool)
	UpdateStatus(ctx context.Context, id string, newStatus job.Status, errReason string)
}

type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

type usecase struct {
	jobTTL    time.Duration
	handler   EventHandler
	jobStore  JobStore
	fileStore FileStore
	queue     JobQueue
	now       func() time.Time

	// finished holds jobs already in a terminal status.
	finished *expirable.LRU[string, job.Job]
}

func New(
	jobTTL time.Duration,
	cacheSize int,
	handler EventHandler,
	jobStore JobStore,
	fileStore FileStore,
	queue JobQueue,
) *usecase {
	if cacheSize <= 0 {
		cacheSize = 1024
	}

	return &usecase{
		jobTTL:    jobTTL,
		handler:   handler,
		jobStore:  jobStore,
		fileStore: fileStore,
		queue:     queue,
		now:       time.Now,
		finished:  expirable.NewLRU[string, job.Job](cacheSize, nil, jobTTL),
	}
}

// RunSync executes the event inline. A failed envelope is still returned as
// output, only the job status changes.
func (uc *usecase) RunSync(ctx context.Context, ev simdomain.Event) domain.SyncResponse {
	env := uc.handler.HandleWithWebhook(ctx, ev)

	status := job.StatusCompleted
	if !env.Success {
		status = job.StatusFailed
	}

	return domain.SyncResponse{
		ID:     "sync-" + uuid.NewString(),
		Status: status,
		Output: &env,
	}
}

func (uc *usecase) Submit(ctx context.Context, ev simdomain.Event, idempotencyKey string) (domain.RunResponse, error) {
	if idempotencyKey != "" {
		if existing, ok := uc.jobStore.ByIdempotencyKey(ctx, idempotencyKey); ok {
			switch existing.Status {
			case job.StatusFailed, job.StatusExpired:
				slog.Info("idempotency key reused after terminal failure, creating new job",
					slog.String("previous_job_id", existing.ID),
					slog.String("previous_status", string(existing.Status)),
				)
			default:
				return domain.RunResponse{ID: existing.ID, Status: existing.Status}, nil
			}
		}
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return domain.RunResponse{}, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}

	j, err := uc.jobStore.CreateJob(ctx, job.CreateParams{
		Event:          raw,
		IdempotencyKey: idempotencyKey,
		TTL:            uc.jobTTL,
	})
	if err != nil {
		return domain.RunResponse{}, fmt.Errorf("create job: %w", err)
	}

	slog.Debug("Enqueue job", slog.String("job_id", j.ID))
	if err := uc.queue.Enqueue(ctx, j.ID); err != nil {
		slog.Error("Enqueue failed",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		uc.jobStore.UpdateStatus(ctx, j.ID, job.StatusFailed, err.Error())
		return domain.RunResponse{}, fmt.Errorf("enqueue: %w", err)
	}

	return domain.RunResponse{ID: j.ID, Status: j.Status}, nil
}

func (uc *usecase) Status(ctx context.Context, jobID string) (domain.StatusResponse, error) {
	j, err := uc.job(ctx, jobID)
	if err != nil {
		return domain.StatusResponse{}, err
	}

	resp := domain.StatusResponse{
		ID:     j.ID,
		Status: j.Status,
	}

	switch j.Status {
	case job.StatusCompleted:
		resp.Output = j.Output
		if j.ArtifactFilename != "" {
			resp.DownloadURL = fmt.Sprintf("/download/%s", j.ID)
		}
	case job.StatusFailed:
		resp.Output = j.Output
		resp.Error = j.Error
	case job.StatusExpired:
		resp.Error = j.Error
	}

	return resp, nil
}

func (uc *usecase) Artifact(ctx context.Context, jobID string) (domain.DownloadResult, error) {
	j, err := uc.job(ctx, jobID)
	if err != nil {
		return domain.DownloadResult{}, err
	}

	switch j.Status {
	case job.StatusCompleted:
		if j.ArtifactFilename == "" {
			return domain.DownloadResult{}, job.ErrNoArtifact
		}

		f, size, err := uc.fileStore.Open(ctx, filestore.Key(j.ID, j.ArtifactFilename))
		if err != nil {
			return domain.DownloadResult{}, fmt.Errorf("open artifact: %w", err)
		}

		return domain.DownloadResult{
			Status:      j.Status,
			FileName:    j.ArtifactFilename,
			ContentType: j.ArtifactContentType,
			Size:        size,
			Content:     f,
		}, nil

	case job.StatusFailed:
		return domain.DownloadResult{}, job.ErrJobFailed

	case job.StatusExpired:
		return domain.DownloadResult{}, job.ErrJobExpired

	default:
		return domain.DownloadResult{Status: j.Status}, job.ErrJobNotReady
	}
}

func (uc *usecase) Health() simdomain.Health {
	return handler.Health()
}

// job loads a job and reports it as expired once its TTL passed, even before
// the distributor cleanup has marked it.
func (uc *usecase) job(ctx context.Context, jobID string) (job.Job, error) {
	j, ok := uc.finished.Get(jobID)
	if !ok {
		j, ok = uc.jobStore.Job(ctx, jobID)
		if !ok {
			return job.Job{}, job.ErrJobNotFound
		}
		if j.Status == job.StatusCompleted || j.Status == job.StatusFailed {
			uc.finished.Add(jobID, j)
		}
	}

	if !j.ExpiresAt.IsZero() && uc.now().After(j.ExpiresAt) && j.Status != job.StatusExpired {
		j.Status = job.StatusExpired
		j.Error = "job expired"
	}

	return j, nil
}
