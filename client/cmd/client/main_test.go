package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/tasksim/core/sim/domain"
)

func newEndpoint(t *testing.T) *httptest.Server {
	t.Helper()

	taskID := "task-1"
	env := domain.Envelope{
		Success:         true,
		TaskID:          &taskID,
		ProgressUpdates: make([]domain.ProgressRecord, 10),
		Result: &domain.TaskResult{
			TaskID: taskID,
			Artifact: domain.Artifact{
				Filename:  "text_result_task-1.md",
				Content:   []byte("# report"),
				SizeHuman: "8 B",
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /runsync", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "sync-1", "status": "COMPLETED", "output": env})
	})
	mux.HandleFunc("POST /run", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "job-1", "status": "IN_QUEUE"})
	})
	mux.HandleFunc("GET /status/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "job-1" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found", "message": "job not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "job-1", "status": "COMPLETED", "output": env})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runClient(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	base := []string{"client", "--no-color", "--base-url", srv.URL}
	err := Run(context.Background(), append(base, args...), strings.NewReader(""), &stdout, &stderr)
	return stdout.String(), err
}

func TestClientCommands(t *testing.T) {
	tests := map[string]struct {
		args   []string
		expOut []string
		expErr bool
	}{
		"Sync command should print the envelope summary.": {
			args:   []string{"sync", "--task-type", "text_processing", "--duration", "5"},
			expOut: []string{"sync-1 COMPLETED", "success", "progress updates: 10", "text_result_task-1.md"},
		},
		"Async command should print the job id.": {
			args:   []string{"async"},
			expOut: []string{"job-1"},
		},
		"Async command with wait should poll until done.": {
			args:   []string{"async", "--wait"},
			expOut: []string{"job-1\n", "job-1 COMPLETED", "success"},
		},
		"Status command should print the job status.": {
			args:   []string{"status", "job-1"},
			expOut: []string{"job-1 COMPLETED"},
		},
		"Status of an unknown job should fail.": {
			args:   []string{"status", "job-2"},
			expErr: true,
		},
		"Missing job id should be rejected.": {
			args:   []string{"wait"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := runClient(t, newEndpoint(t), test.args...)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, exp := range test.expOut {
				assert.Contains(t, out, exp)
			}
		})
	}
}

func TestSyncCommandSavesArtifact(t *testing.T) {
	dir := t.TempDir()

	_, err := runClient(t, newEndpoint(t), "sync", "--save", dir)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "text_result_task-1.md"))
	require.NoError(t, err)
	assert.Equal(t, "# report", string(got))
}
