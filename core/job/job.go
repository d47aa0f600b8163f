// Package job describes asynchronous jobs: one handler event queued through
// /run, executed by the distributor and polled through /status.
package job

import (
	"errors"
	"time"
)

type Status string

// Values follow the serverless platform the client talks to.
const (
	StatusInQueue    Status = "IN_QUEUE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusExpired    Status = "EXPIRED"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

type Job struct {
	ID     string `json:"id"`
	Status Status `json:"status"`

	// Event is the JSON encoded handler event; Output the JSON encoded envelope.
	Event  []byte `json:"event"`
	Output []byte `json:"output,omitempty"`

	ArtifactFilename    string `json:"artifact_filename,omitempty"`
	ArtifactContentType string `json:"artifact_content_type,omitempty"`

	// meta
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Error          string    `json:"error,omitempty"`
}

type CreateParams struct {
	Event          []byte
	IdempotencyKey string

	TTL time.Duration
}

type Output struct {
	Status              Status
	Envelope            []byte
	ArtifactFilename    string
	ArtifactContentType string
	Error               string
}

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobFailed   = errors.New("job failed")
	ErrJobExpired  = errors.New("job expired")
	ErrJobNotReady = errors.New("job not ready")
	ErrNoArtifact  = errors.New("job has no artifact")
)
