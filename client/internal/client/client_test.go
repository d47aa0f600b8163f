package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/tasksim/client/internal/client"
	"github.com/you-humble/tasksim/core/sim/clock"
	"github.com/you-humble/tasksim/core/sim/domain"
)

type fakeEndpoint struct {
	mu       sync.Mutex
	statuses []string
	calls    int
	lastAuth string
	lastKey  string
	lastBody domain.Event
}

func (f *fakeEndpoint) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v2/{endpoint_id}/runsync", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		id := "job-sync"
		writeJSON(w, http.StatusOK, map[string]any{
			"id":     "sync-1",
			"status": "COMPLETED",
			"output": domain.Envelope{Success: true, TaskID: &id},
		})
	})
	mux.HandleFunc("POST /v2/{endpoint_id}/run", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusAccepted, map[string]any{"id": "job-1", "status": "IN_QUEUE"})
	})
	mux.HandleFunc("GET /v2/{endpoint_id}/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.lastAuth = r.Header.Get("Authorization")
		st := f.statuses[min(f.calls, len(f.statuses)-1)]
		f.calls++

		switch st {
		case "500":
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "message": "boom"})
		case "404":
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "job not found"})
		case "COMPLETED":
			id := "task-1"
			writeJSON(w, http.StatusOK, map[string]any{"id": r.PathValue("id"), "status": st, "output": domain.Envelope{Success: true, TaskID: &id}})
		case "FAILED":
			writeJSON(w, http.StatusOK, map[string]any{"id": r.PathValue("id"), "status": st, "error": "validation_error: bad"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"id": r.PathValue("id"), "status": st})
		}
	})
	mux.HandleFunc("GET /v2/{endpoint_id}/download/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "job-1" {
			writeJSON(w, http.StatusTooEarly, map[string]string{"error": "not_ready", "message": "job not ready"})
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="analysis_results_1234abcd.csv"`)
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	})

	return mux
}

func (f *fakeEndpoint) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastAuth = r.Header.Get("Authorization")
	f.lastKey = r.Header.Get("Idempotency-Key")
	_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, f *fakeEndpoint, maxWait time.Duration) *client.Client {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	fake := clock.NewFake(time.Unix(0, 0))
	c, err := client.New(client.Config{
		BaseURL:      srv.URL + "/",
		EndpointID:   "ep-1",
		APIKey:       "secret",
		PollInterval: time.Second,
		MaxWait:      maxWait,
		Clock:        fake,
		Waiter:       fake,
	})
	require.NoError(t, err)
	return c
}

func TestSubmitSync(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := &fakeEndpoint{}
	c := newClient(t, f, time.Minute)

	res, err := c.SubmitSync(context.Background(), client.Request{
		ID:    "req-1",
		Input: map[string]any{"task_type": "data_analysis", "duration": 8},
	})
	require.NoError(err)

	assert.Equal("sync-1", res.ID)
	assert.EqualValues("COMPLETED", res.Status)
	require.NotNil(res.Output)
	assert.True(res.Output.Success)
	assert.Equal("Bearer secret", f.lastAuth)
	assert.Equal("req-1", f.lastBody.ID)
	assert.Nil(f.lastBody.Webhook)
}

func TestSubmitAsync(t *testing.T) {
	f := &fakeEndpoint{}
	c := newClient(t, f, time.Minute)

	id, err := c.SubmitAsync(context.Background(), client.Request{
		IdempotencyKey: "key-1",
		WebhookURL:     "https://example.test/hook",
	})
	require.NoError(t, err)

	assert.Equal(t, "job-1", id)
	assert.Equal(t, "key-1", f.lastKey)
	require.NotNil(t, f.lastBody.Webhook)
	assert.Equal(t, "https://example.test/hook", f.lastBody.Webhook.URL)
}

func TestWaitForCompletion(t *testing.T) {
	tests := map[string]struct {
		statuses []string
		maxWait  time.Duration
		expErr   error
		expSeen  int
		expCalls int
	}{
		"Job that completes should return its output.": {
			statuses: []string{"IN_QUEUE", "IN_PROGRESS", "COMPLETED"},
			maxWait:  time.Minute,
			expSeen:  3,
			expCalls: 3,
		},
		"Failed job should return a job failed error.": {
			statuses: []string{"IN_PROGRESS", "FAILED"},
			maxWait:  time.Minute,
			expErr:   client.ErrJobFailed,
			expSeen:  2,
			expCalls: 2,
		},
		"Expired job should return a job expired error.": {
			statuses: []string{"EXPIRED"},
			maxWait:  time.Minute,
			expErr:   client.ErrJobExpired,
			expSeen:  1,
			expCalls: 1,
		},
		"Job that never finishes should time out.": {
			statuses: []string{"IN_PROGRESS"},
			maxWait:  3 * time.Second,
			expErr:   client.ErrTimeout,
			expSeen:  3,
			expCalls: 3,
		},
		"Transient status errors should be tolerated.": {
			statuses: []string{"500", "500", "COMPLETED"},
			maxWait:  time.Minute,
			expSeen:  1,
			expCalls: 3,
		},
		"Too many status errors in a row should stop waiting.": {
			statuses: []string{"404"},
			maxWait:  time.Minute,
			expCalls: client.DefaultMaxStatusErrors,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			f := &fakeEndpoint{statuses: test.statuses}
			c := newClient(t, f, test.maxWait)

			seen := 0
			out, err := c.WaitForCompletion(context.Background(), "job-1", func(client.JobStatus) { seen++ })

			switch {
			case test.expErr != nil:
				assert.ErrorIs(err, test.expErr)
			case test.expSeen == 0:
				var apiErr *client.APIError
				if assert.True(errors.As(err, &apiErr)) {
					assert.Equal(http.StatusNotFound, apiErr.StatusCode)
					assert.Equal("not_found", apiErr.Code)
				}
			default:
				assert.NoError(err)
				if assert.NotNil(out) {
					assert.True(out.Success)
				}
			}
			assert.Equal(test.expSeen, seen)
			assert.Equal(test.expCalls, f.calls)
			assert.Equal("Bearer secret", f.lastAuth)
		})
	}
}

func TestWaitForCompletionCanceled(t *testing.T) {
	f := &fakeEndpoint{statuses: []string{"IN_QUEUE"}}
	c := newClient(t, f, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.WaitForCompletion(ctx, "job-1", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownloadArtifact(t *testing.T) {
	f := &fakeEndpoint{}
	c := newClient(t, f, time.Minute)
	dir := t.TempDir()

	path, n, err := c.DownloadArtifact(context.Background(), "job-1", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "analysis_results_1234abcd.csv"), path)
	assert.EqualValues(t, 8, n)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))

	_, _, err = c.DownloadArtifact(context.Background(), "job-2", dir)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooEarly, apiErr.StatusCode)
}

func TestSaveArtifact(t *testing.T) {
	dir := t.TempDir()

	path, err := client.SaveArtifact(domain.Artifact{Filename: "a/b?.md", Content: []byte("# hi")}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a_b_.md"), path)

	_, err = client.SaveArtifact(domain.Artifact{Filename: "x.md"}, dir)
	assert.ErrorIs(t, err, client.ErrNoContent)
}
