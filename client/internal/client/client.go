// Package client talks to a tasksim endpoint the way a serverless platform
// client would: synchronous runs, queued runs with status polling and
// artifact download.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/you-humble/tasksim/core/job"
	"github.com/you-humble/tasksim/core/sim/clock"
	"github.com/you-humble/tasksim/core/sim/domain"
)

const (
	DefaultBaseURL         = "http://localhost:8080"
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxWait         = 300 * time.Second
	DefaultMaxStatusErrors = 3
)

var (
	ErrJobFailed  = errors.New("job failed")
	ErrJobExpired = errors.New("job expired")
	ErrTimeout    = errors.New("job did not finish in time")
	ErrNoContent  = errors.New("artifact has no content")
)

// APIError is a non-2xx answer from the endpoint.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed: %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type Config struct {
	BaseURL    string
	EndpointID string
	APIKey     string
	HTTPClient *http.Client

	PollInterval time.Duration
	MaxWait      time.Duration
	// MaxStatusErrors is how many status checks in a row may fail before
	// WaitForCompletion gives up.
	MaxStatusErrors int

	Clock  clock.Clock
	Waiter clock.Waiter
	Logger *slog.Logger
}

func (c *Config) defaults() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.EndpointID != "" {
		c.BaseURL += "/v2/" + url.PathEscape(c.EndpointID)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxWait <= 0 {
		c.MaxWait = DefaultMaxWait
	}
	if c.MaxStatusErrors <= 0 {
		c.MaxStatusErrors = DefaultMaxStatusErrors
	}
	if c.Clock == nil {
		c.Clock = clock.System()
	}
	if c.Waiter == nil {
		c.Waiter = clock.Sleeper()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

type Client struct {
	cfg Config
}

func New(cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg}, nil
}

// Request is one handler event plus submission options.
type Request struct {
	ID             string
	Input          map[string]any
	WebhookURL     string
	IdempotencyKey string
}

func (r Request) event() domain.Event {
	ev := domain.Event{ID: r.ID, Input: r.Input}
	if ev.Input == nil {
		ev.Input = map[string]any{}
	}
	if r.WebhookURL != "" {
		ev.Webhook = &domain.Webhook{URL: r.WebhookURL}
	}
	return ev
}

type SyncResult struct {
	ID     string           `json:"id"`
	Status job.Status       `json:"status"`
	Output *domain.Envelope `json:"output"`
}

type JobStatus struct {
	ID          string           `json:"id"`
	Status      job.Status       `json:"status"`
	Output      *domain.Envelope `json:"output,omitempty"`
	DownloadURL string           `json:"download_url,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// SubmitSync runs the event and blocks until the envelope is ready.
func (c *Client) SubmitSync(ctx context.Context, req Request) (SyncResult, error) {
	c.cfg.Logger.Debug("submitting sync request", slog.String("url", c.cfg.BaseURL+"/runsync"))

	var res SyncResult
	if err := c.do(ctx, http.MethodPost, "/runsync", req, &res); err != nil {
		return SyncResult{}, err
	}
	return res, nil
}

// SubmitAsync queues the event and returns the job id.
func (c *Client) SubmitAsync(ctx context.Context, req Request) (string, error) {
	c.cfg.Logger.Debug("submitting async request", slog.String("url", c.cfg.BaseURL+"/run"))

	var res JobStatus
	if err := c.do(ctx, http.MethodPost, "/run", req, &res); err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", errors.New("response without job id")
	}
	return res.ID, nil
}

func (c *Client) Status(ctx context.Context, jobID string) (JobStatus, error) {
	var res JobStatus
	if err := c.do(ctx, http.MethodGet, "/status/"+url.PathEscape(jobID), nil, &res); err != nil {
		return JobStatus{}, err
	}
	return res, nil
}

// WaitForCompletion polls the job status until it finishes, MaxWait passes
// or ctx is done. onStatus, when set, sees every successful status check.
func (c *Client) WaitForCompletion(ctx context.Context, jobID string, onStatus func(JobStatus)) (*domain.Envelope, error) {
	l := c.cfg.Logger.With(slog.String("job_id", jobID))
	deadline := c.cfg.Clock.Now().Add(c.cfg.MaxWait)
	failures := 0

	for c.cfg.Clock.Now().Before(deadline) {
		st, err := c.Status(ctx, jobID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			l.Warn("status check failed", slog.Int("attempt", failures), slog.String("error", err.Error()))
			if failures >= c.cfg.MaxStatusErrors {
				return nil, fmt.Errorf("status check: %w", err)
			}
		default:
			failures = 0
			if onStatus != nil {
				onStatus(st)
			}

			switch st.Status {
			case job.StatusCompleted:
				return st.Output, nil
			case job.StatusFailed:
				return st.Output, fmt.Errorf("%w: %s", ErrJobFailed, st.Error)
			case job.StatusExpired:
				return nil, ErrJobExpired
			}
		}

		if err := c.cfg.Waiter.Wait(ctx, c.cfg.PollInterval); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %s", ErrTimeout, c.cfg.MaxWait)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var (
		payload io.Reader
		idemKey string
	)
	if r, ok := body.(Request); ok {
		raw, err := json.Marshal(r.event())
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
		idemKey = r.IdempotencyKey
	}

	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return req, nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
	}
	return apiErr
}
