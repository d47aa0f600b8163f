package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/you-humble/tasksim/api/internal/domain"
	"github.com/you-humble/tasksim/core/job"
	simdomain "github.com/you-humble/tasksim/core/sim/domain"

	"github.com/google/uuid"
)

type Usecase interface {
	RunSync(ctx context.Context, ev simdomain.Event) domain.SyncResponse
	Submit(ctx context.Context, ev simdomain.Event, idempotencyKey string) (domain.RunResponse, error)
	Status(ctx context.Context, jobID string) (domain.StatusResponse, error)
	Artifact(ctx context.Context, jobID string) (domain.DownloadResult, error)
	Health() simdomain.Health
}

type handler struct {
	maxRequestBytes int64
	usecase         Usecase
}

func NewHandler(maxRequestMb int64, uc Usecase) *handler {
	return &handler{
		maxRequestBytes: maxRequestMb << 20,
		usecase:         uc,
	}
}

func (h *handler) runSync(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "runsync")

	ev, ok := h.decodeEvent(w, r, logger)
	if !ok {
		return
	}

	resp := h.usecase.RunSync(r.Context(), ev)
	logger.Info("sync run finished",
		slog.String("id", resp.ID),
		slog.String("status", string(resp.Status)),
	)

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) run(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "run")

	ev, ok := h.decodeEvent(w, r, logger)
	if !ok {
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey != "" {
		logger = logger.With(slog.String("idempotency_key", idempotencyKey))
	}

	resp, err := h.usecase.Submit(r.Context(), ev, idempotencyKey)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEvent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("Submit usecase", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "cannot create job")
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "status")

	jobID := r.PathValue("id")
	if jobID == "" {
		logger.Error("missing ID")
		writeError(w, http.StatusBadRequest, "missing ID")
		return
	}

	resp, err := h.usecase.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		logger.Error("Status", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, "download")

	jobID := r.PathValue("id")
	if jobID == "" {
		logger.Error("missing ID")
		writeError(w, http.StatusBadRequest, "missing ID")
		return
	}

	result, err := h.usecase.Artifact(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, job.ErrNoArtifact):
			writeError(w, http.StatusNotFound, "job has no artifact")
		case errors.Is(err, job.ErrJobFailed):
			writeJSON(w, http.StatusConflict, domain.StatusResponse{
				ID:     jobID,
				Status: job.StatusFailed,
				Error:  "job failed",
			})
		case errors.Is(err, job.ErrJobExpired):
			writeJSON(w, http.StatusGone, domain.StatusResponse{
				ID:     jobID,
				Status: job.StatusExpired,
				Error:  "job expired",
			})
		case errors.Is(err, job.ErrJobNotReady):
			writeJSON(w, http.StatusTooEarly, domain.StatusResponse{
				ID:     jobID,
				Status: result.Status,
				Error:  "artifact is not ready yet",
			})
		default:
			logger.Error("Artifact", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "cannot get artifact")
		}
		return
	}
	defer result.Content.Close()

	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	if result.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(result.Size, 10))
	}

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, result.Content); err != nil {
		logger.Error("download: send file",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.usecase.Health())
}

// decodeEvent reads the {input, id, webhook} body. An empty body is an event
// without input, which runs with defaults.
func (h *handler) decodeEvent(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (simdomain.Event, bool) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)

	var ev simdomain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return simdomain.Event{}, false
		}
		logger.Warn("decode event", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return simdomain.Event{}, false
	}

	return ev, true
}

func requestLogger(r *http.Request, name string) *slog.Logger {
	return slog.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("handler", name),
		slog.String("remote_addr", r.RemoteAddr),
	)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	resp := domain.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", slog.String("error", err.Error()))
	}
}
