package distributor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/you-humble/tasksim/core/job"
	natsq "github.com/you-humble/tasksim/core/libs/nats"
	simdomain "github.com/you-humble/tasksim/core/sim/domain"
	filestore "github.com/you-humble/tasksim/core/store/file"

	"github.com/nats-io/nats.go"
)

type JobStore interface {
	Job(ctx context.Context, id string) (job.Job, bool)
	UpdateStatus(ctx context.Context, id string, newStatus job.Status, errReason string)
	SetOutput(ctx context.Context, id string, out job.Output)
	ExpiredJobs(ctx context.Context, now time.Time) []string
	DeleteExpired(ctx context.Context, now time.Time, ttl time.Duration) int
}

type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64) (filestore.Object, error)
	Delete(ctx context.Context, name string) error
	CleanupOlderThan(ctx context.Context, maxAge time.Duration) error
}

type EventHandler interface {
	HandleWithWebhook(ctx context.Context, ev simdomain.Event) simdomain.Envelope
}

type Recorder interface {
	JobStarted()
	JobFinished(status job.Status, d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) JobStarted()                           {}
func (noopRecorder) JobFinished(job.Status, time.Duration) {}

type Options struct {
	Subject         string
	PoolSize        int
	JobTTL          time.Duration
	JobTimeout      time.Duration
	CleanupInterval time.Duration
}

type natsDistributor struct {
	opts      Options
	js        nats.JetStreamContext
	jobStore  JobStore
	fileStore FileStore
	handler   EventHandler
	metrics   Recorder
	now       func() time.Time

	done chan struct{}
	sub  *nats.Subscription
}

func New(
	opts Options,
	js nats.JetStreamContext,
	jobStore JobStore,
	fileStore FileStore,
	handler EventHandler,
	metrics Recorder,
) *natsDistributor {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 1
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}

	return &natsDistributor{
		opts:      opts,
		js:        js,
		jobStore:  jobStore,
		fileStore: fileStore,
		handler:   handler,
		metrics:   metrics,
		now:       time.Now,
		done:      make(chan struct{}, opts.PoolSize),
	}
}

func (d *natsDistributor) Run(ctx context.Context) error {
	_, err := d.js.AddConsumer(natsq.JobsStream, &nats.ConsumerConfig{
		Durable:       natsq.JobsConsumer,
		AckPolicy:     nats.AckExplicitPolicy,
		FilterSubject: d.opts.Subject,
		MaxAckPending: d.opts.PoolSize * 2,
		// Jobs block for up to the job timeout before they are acked.
		AckWait: d.opts.JobTimeout + 30*time.Second,
	})
	if err != nil && !errors.Is(err, nats.ErrConsumerNameAlreadyInUse) {
		return fmt.Errorf("JetStream AddConsumer: %w", err)
	}

	sub, err := d.js.PullSubscribe(d.opts.Subject, natsq.JobsConsumer, nats.Bind(natsq.JobsStream, natsq.JobsConsumer))
	if err != nil {
		return fmt.Errorf("JetStream PullSubscribe: %w", err)
	}
	d.sub = sub

	for range d.opts.PoolSize {
		go func() {
			defer func() { d.done <- struct{}{} }()
			d.runWorker(ctx)
		}()
	}

	slog.Info("NATS distributor is running",
		slog.Int("workers", d.opts.PoolSize),
		slog.String("subject", d.opts.Subject),
	)
	return nil
}

// Stop waits for ctx to end and for every worker to return.
func (d *natsDistributor) Stop(ctx context.Context) {
	<-ctx.Done()

	if d.sub == nil {
		return
	}

	for range d.opts.PoolSize {
		<-d.done
	}

	if err := d.sub.Drain(); err != nil {
		slog.Warn("NATS subscription drain", slog.String("error", err.Error()))
	}

	slog.Info("NATS distributor stopped")
}

func (d *natsDistributor) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Worker stopping")
			return
		default:
		}

		msgs, err := d.sub.Fetch(1, nats.Context(ctx))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
				continue
			}
			slog.Warn("NATS Fetch", slog.String("error", err.Error()))
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for _, msg := range msgs {
			d.handleMsg(ctx, msg)
		}
	}
}

func (d *natsDistributor) handleMsg(ctx context.Context, msg *nats.Msg) {
	jobID := string(msg.Data)
	l := slog.With(slog.String("job_id", jobID))
	l.Debug("Got message")

	err := d.process(ctx, jobID)
	switch {
	case err == nil:
	case errors.Is(err, job.ErrJobNotFound), errors.Is(err, job.ErrJobExpired):
		l.Warn("skip job", slog.String("reason", err.Error()))
	default:
		l.Error("process", slog.String("error", err.Error()))
		if nakErr := msg.Nak(); nakErr != nil {
			l.Warn("NATS Nak", slog.String("error", nakErr.Error()))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		l.Warn("NATS Ack", slog.String("error", err.Error()))
	}
}

// process runs one queued job. A nil error means the message can be acked,
// including jobs that ended with a failed envelope.
func (d *natsDistributor) process(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j, found := d.jobStore.Job(ctx, jobID)
	if !found {
		return job.ErrJobNotFound
	}

	switch {
	case j.Status == job.StatusExpired, !j.ExpiresAt.IsZero() && d.now().After(j.ExpiresAt):
		return job.ErrJobExpired
	case j.Status == job.StatusCompleted, j.Status == job.StatusFailed:
		slog.Info("job already finished, skipping redelivery",
			slog.String("job_id", jobID),
			slog.String("status", string(j.Status)),
		)
		return nil
	}

	l := slog.With(slog.String("job_id", jobID))

	var ev simdomain.Event
	if err := json.Unmarshal(j.Event, &ev); err != nil {
		l.Error("decode event", slog.String("error", err.Error()))
		d.jobStore.SetOutput(ctx, jobID, job.Output{
			Status: job.StatusFailed,
			Error:  "invalid event: " + err.Error(),
		})
		return nil
	}
	if ev.ID == "" {
		ev.ID = jobID
	}

	l.Info("process start")
	d.jobStore.UpdateStatus(ctx, jobID, job.StatusInProgress, "")

	start := d.now()
	d.metrics.JobStarted()

	jobCtx := ctx
	if d.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, d.opts.JobTimeout)
		defer cancel()
	}

	env := d.handler.HandleWithWebhook(jobCtx, ev)

	// A shutdown mid-run puts the job back so another worker can redo it.
	if err := ctx.Err(); err != nil {
		d.metrics.JobFinished(job.StatusInQueue, d.now().Sub(start))
		d.jobStore.UpdateStatus(context.WithoutCancel(ctx), jobID, job.StatusInQueue, "")
		return err
	}

	out := job.Output{Status: job.StatusCompleted}
	if !env.Success {
		out.Status = job.StatusFailed
		out.Error = fmt.Sprintf("%s: %s", env.Error, env.Message)
	}

	if env.Success && env.Result != nil {
		a := env.Result.Artifact
		name := filestore.Key(jobID, a.Filename)
		if _, err := d.fileStore.Save(ctx, name, bytes.NewReader(a.Content), int64(len(a.Content))); err != nil {
			l.Warn("save artifact, download will be unavailable",
				slog.String("filename", a.Filename),
				slog.String("error", err.Error()),
			)
		} else {
			out.ArtifactFilename = a.Filename
			out.ArtifactContentType = a.ContentType
		}
	}

	raw, err := json.Marshal(env)
	if err != nil {
		d.metrics.JobFinished(job.StatusFailed, d.now().Sub(start))
		return fmt.Errorf("encode envelope: %w", err)
	}
	out.Envelope = raw

	d.jobStore.SetOutput(ctx, jobID, out)
	d.metrics.JobFinished(out.Status, d.now().Sub(start))
	l.Info("process done", slog.String("status", string(out.Status)))
	return nil
}

func (d *natsDistributor) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(d.opts.CleanupInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				d.cleanup(ctx, now)
			}
		}
	}()
}

// cleanup expires jobs past their TTL and drops their artifacts, then removes
// records and files older than twice the TTL.
func (d *natsDistributor) cleanup(ctx context.Context, now time.Time) {
	expired := d.jobStore.ExpiredJobs(ctx, now)
	if len(expired) > 0 {
		slog.Info("cleanup", slog.Int("count_of_expired_jobs", len(expired)))
	}

	for _, id := range expired {
		j, ok := d.jobStore.Job(ctx, id)
		if !ok || j.ArtifactFilename == "" {
			continue
		}
		if err := d.fileStore.Delete(ctx, filestore.Key(id, j.ArtifactFilename)); err != nil {
			slog.Warn("cleanup artifact", slog.String("job_id", id), slog.String("error", err.Error()))
		}
	}

	if n := d.jobStore.DeleteExpired(ctx, now, 2*d.opts.JobTTL); n > 0 {
		slog.Info("cleanup job records", slog.Int("deleted_jobs", n))
	}

	if err := d.fileStore.CleanupOlderThan(ctx, 2*d.opts.JobTTL); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("cleanup old files", slog.String("error", err.Error()))
	}
}
