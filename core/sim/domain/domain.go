package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type TaskType string

const (
	TaskTextProcessing  TaskType = "text_processing"
	TaskImageGeneration TaskType = "image_generation"
	TaskDataAnalysis    TaskType = "data_analysis"
)

var TaskTypes = []TaskType{
	TaskTextProcessing,
	TaskImageGeneration,
	TaskDataAnalysis,
}

func (t TaskType) Valid() bool {
	for _, v := range TaskTypes {
		if t == v {
			return true
		}
	}
	return false
}

// OutputFormat is carried through the run but does not change the result.
type OutputFormat string

const (
	FormatBase64 OutputFormat = "base64"
	FormatURL    OutputFormat = "url"
	FormatJSON   OutputFormat = "json"
)

const (
	MinDurationSeconds     = 5
	MaxDurationSeconds     = 45
	DefaultDurationSeconds = 20

	DefaultTaskType     = TaskTextProcessing
	DefaultOutputFormat = FormatBase64
	DefaultUserInput    = "Default test input"

	// TotalSteps is the length of every plan: 3 setup + 5 task specific + 3 teardown.
	TotalSteps = 11

	MaxArtifactBytes = 50 << 20

	TimestampLayout = "2006-01-02 15:04:05"
)

type TaskConfig struct {
	TaskType        TaskType     `json:"task_type"`
	DurationSeconds float64      `json:"duration"`
	OutputFormat    OutputFormat `json:"output_format"`
	UserInput       string       `json:"user_input"`
}

type ProcessingStep struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	Heavy bool   `json:"is_heavy"`
}

type ProgressStatus string

const (
	StatusProcessing ProgressStatus = "processing"
	StatusCompleted  ProgressStatus = "completed"
	StatusFailed     ProgressStatus = "failed"
)

type ProgressRecord struct {
	TaskID          string         `json:"task_id"`
	Status          ProgressStatus `json:"status"`
	ProgressPercent int            `json:"progress_percent"`
	CurrentStep     string         `json:"current_step"`
	StepIndex       int            `json:"step_index"`
	TotalSteps      int            `json:"total_steps"`
	ElapsedSeconds  float64        `json:"elapsed_seconds"`

	// nil until at least two steps have been recorded
	EstimatedRemainingSeconds *float64 `json:"estimated_remaining_seconds,omitempty"`
}

// Artifact is the synthetic output of a task. Content is raw; encoding/json
// renders it as standard base64 under content_base64.
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
	Content     []byte `json:"content_base64"`
	Preview     string `json:"preview"`

	// meta
	SizeHuman      string `json:"size_human"`
	CreatedAt      string `json:"created_at"`
	ChecksumSHA256 string `json:"checksum_sha256"`
}

type TaskResult struct {
	TaskID               string         `json:"task_id"`
	Status               ProgressStatus `json:"status"`
	ProgressPercent      int            `json:"progress_percent"`
	Artifact             Artifact       `json:"artifact"`
	TotalDurationSeconds float64        `json:"total_duration_seconds"`
	TaskType             TaskType       `json:"task_type"`
}

// Event is one invocation of the handler as delivered by the platform.
// A missing input leaves Input nil; an explicit null is kept as NullInput so
// it can be rejected.
type Event struct {
	ID      string   `json:"id,omitempty"`
	Input   any      `json:"input,omitempty"`
	Webhook *Webhook `json:"webhook,omitempty"`
}

// NullInput is the Input of an event that carried "input": null.
var NullInput = json.RawMessage("null")

func (e *Event) UnmarshalJSON(b []byte) error {
	type plain Event
	var aux struct {
		plain
		Input json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	*e = Event(aux.plain)
	switch {
	case aux.Input == nil:
		e.Input = nil
	case bytes.Equal(bytes.TrimSpace(aux.Input), NullInput):
		e.Input = NullInput
	default:
		if err := json.Unmarshal(aux.Input, &e.Input); err != nil {
			return err
		}
	}
	return nil
}

type Webhook struct {
	URL string `json:"url"`
}

type ErrorKind string

const (
	ErrKindValidation ErrorKind = "validation_error"
	ErrKindProcessing ErrorKind = "processing_error"
	ErrKindWebhook    ErrorKind = "webhook_error"
)

type Metadata struct {
	RequestID          string `json:"runpod_request_id"`
	ProcessingComplete bool   `json:"processing_complete"`
	FileIncluded       bool   `json:"file_included"`
}

// Envelope is the handler response. Success and failure share the struct;
// unused fields are omitted, except task_id which is null on failure.
type Envelope struct {
	Success bool    `json:"success"`
	TaskID  *string `json:"task_id"`

	TaskType        TaskType         `json:"task_type,omitempty"`
	DurationSeconds float64          `json:"duration_seconds,omitempty"`
	ProgressUpdates []ProgressRecord `json:"progress_updates,omitempty"`
	Result          *TaskResult      `json:"result,omitempty"`
	TotalSteps      int              `json:"total_steps,omitempty"`
	Metadata        *Metadata        `json:"metadata,omitempty"`

	// webhook acknowledgement
	Status            string  `json:"status,omitempty"`
	WebhookURL        string  `json:"webhook_url,omitempty"`
	EstimatedDuration float64 `json:"estimated_duration,omitempty"`

	Error   ErrorKind `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
}

func (e Envelope) ID() string {
	if e.TaskID == nil {
		return ""
	}
	return *e.TaskID
}

type Limits struct {
	MinDuration      int            `json:"min_duration"`
	MaxDuration      int            `json:"max_duration"`
	SupportedFormats []OutputFormat `json:"supported_formats"`
}

type Health struct {
	Status       string     `json:"status"`
	Service      string     `json:"service"`
	Version      string     `json:"version"`
	Capabilities []TaskType `json:"capabilities"`
	Limits       Limits     `json:"limits"`
}

// ValidationError reports malformed input. It is always recoverable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func TaskTypeList() string {
	names := make([]string, 0, len(TaskTypes))
	for _, t := range TaskTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

var (
	ErrExhausted        = errors.New("run already finished")
	ErrArtifactTooLarge = errors.New("artifact exceeds size limit")
	ErrUnknownTaskType  = errors.New("unknown task type")
)
