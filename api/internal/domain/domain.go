package domain

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/you-humble/tasksim/core/job"
	simdomain "github.com/you-humble/tasksim/core/sim/domain"
)

type RunResponse struct {
	ID     string     `json:"id"`
	Status job.Status `json:"status"`
}

type SyncResponse struct {
	ID     string              `json:"id"`
	Status job.Status          `json:"status"`
	Output *simdomain.Envelope `json:"output,omitempty"`
}

type StatusResponse struct {
	ID          string          `json:"id"`
	Status      job.Status      `json:"status"`
	Output      json.RawMessage `json:"output,omitempty"`
	DownloadURL string          `json:"download_url,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// DownloadResult carries the job status even when no artifact is returned.
type DownloadResult struct {
	Status      job.Status
	FileName    string
	ContentType string
	Size        int64
	Content     io.ReadCloser
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var ErrInvalidEvent = errors.New("invalid event")
