package handler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/you-humble/tasksim/core/sim/domain"
	"github.com/you-humble/tasksim/core/sim/runner"
	"github.com/you-humble/tasksim/core/sim/validate"
)

const (
	ServiceName    = "runpod-test-api"
	ServiceVersion = "1.0.0"

	unknownRequestID = "unknown"
	milestoneEvery   = 20
)

type RunnerFactory interface {
	New(cfg domain.TaskConfig) *runner.Runner
}

type Handler struct {
	logger  *slog.Logger
	runners RunnerFactory
}

func New(logger *slog.Logger, runners RunnerFactory) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, runners: runners}
}

// Handle validates the event input, drives one full run and shapes the
// envelope. It blocks for the whole simulated duration.
func (h *Handler) Handle(ctx context.Context, ev domain.Event) (env domain.Envelope) {
	requestID := ev.ID
	if requestID == "" {
		requestID = unknownRequestID
	}
	l := h.logger.With(slog.String("request_id", requestID))

	cfg, err := validate.Validate(ev.Input)
	if err != nil {
		l.Error("validation error", slog.String("error", err.Error()))
		return Failure(domain.ErrKindValidation, err.Error(), "")
	}
	l.Info("validated config",
		slog.String("task_type", string(cfg.TaskType)),
		slog.Float64("duration", cfg.DurationSeconds),
		slog.String("output_format", string(cfg.OutputFormat)),
	)

	r := h.runners.New(cfg)
	l = l.With(slog.String("task_id", r.ID()))
	l.Info("starting processing", slog.Int("total_steps", r.TotalSteps()))

	defer func() {
		if rec := recover(); rec != nil {
			l.Error("panic during processing",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			env = processingFailure(fmt.Errorf("panic: %v", rec), r.ID())
		}
	}()

	updates := make([]domain.ProgressRecord, 0, r.TotalSteps())
	var result *domain.TaskResult

	for {
		step, err := r.Next(ctx)
		if err != nil {
			l.Error("unexpected error", slog.String("error", err.Error()))
			return processingFailure(err, r.ID())
		}
		if step.Final() {
			result = step.Result
			break
		}

		rec := *step.Progress
		updates = append(updates, rec)
		if rec.ProgressPercent%milestoneEvery == 0 {
			l.Info("progress",
				slog.Int("percent", rec.ProgressPercent),
				slog.String("step", rec.CurrentStep),
			)
		} else {
			l.Debug("progress",
				slog.Int("percent", rec.ProgressPercent),
				slog.String("step", rec.CurrentStep),
			)
		}
	}

	l.Info("processing completed",
		slog.Int("progress_updates", len(updates)),
		slog.String("filename", result.Artifact.Filename),
		slog.Int("size_bytes", result.Artifact.SizeBytes),
	)

	id := r.ID()
	return domain.Envelope{
		Success:         true,
		TaskID:          &id,
		TaskType:        cfg.TaskType,
		DurationSeconds: cfg.DurationSeconds,
		ProgressUpdates: updates,
		Result:          result,
		TotalSteps:      r.TotalSteps(),
		Metadata: &domain.Metadata{
			RequestID:          requestID,
			ProcessingComplete: true,
			FileIncluded:       true,
		},
	}
}

// HandleWithWebhook acknowledges events that carry a webhook URL without
// running them. Nothing is ever delivered to the webhook: the run is not
// started and no progress or result is sent. Events without a webhook are
// handled synchronously by Handle.
func (h *Handler) HandleWithWebhook(ctx context.Context, ev domain.Event) domain.Envelope {
	if ev.Webhook == nil || ev.Webhook.URL == "" {
		return h.Handle(ctx, ev)
	}

	cfg, err := validate.Validate(ev.Input)
	if err != nil {
		h.logger.Error("webhook handler error", slog.String("error", err.Error()))
		return Failure(domain.ErrKindWebhook, err.Error(), "")
	}

	id := h.runners.New(cfg).ID()
	h.logger.Warn("webhook delivery is not implemented, returning acknowledgement only",
		slog.String("task_id", id),
		slog.String("webhook_url", ev.Webhook.URL),
	)

	return domain.Envelope{
		Success:           true,
		TaskID:            &id,
		Status:            "accepted",
		Message:           "Task accepted. Webhook delivery is not implemented: no progress updates or results will be sent.",
		WebhookURL:        ev.Webhook.URL,
		EstimatedDuration: cfg.DurationSeconds,
	}
}

// Health advertises base64 and url only; json is accepted but never listed.
func Health() domain.Health {
	return domain.Health{
		Status:       "healthy",
		Service:      ServiceName,
		Version:      ServiceVersion,
		Capabilities: append([]domain.TaskType(nil), domain.TaskTypes...),
		Limits: domain.Limits{
			MinDuration:      domain.MinDurationSeconds,
			MaxDuration:      domain.MaxDurationSeconds,
			SupportedFormats: []domain.OutputFormat{domain.FormatBase64, domain.FormatURL},
		},
	}
}

// Failure builds a failed envelope. An empty taskID is rendered as null.
func Failure(kind domain.ErrorKind, message, taskID string) domain.Envelope {
	env := domain.Envelope{
		Success: false,
		Error:   kind,
		Message: message,
	}
	if taskID != "" {
		env.TaskID = &taskID
	}
	return env
}

func processingFailure(err error, taskID string) domain.Envelope {
	return Failure(domain.ErrKindProcessing, "An unexpected error occurred: "+err.Error(), taskID)
}
