package jobstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/tasksim/core/job"
	rediscli "github.com/you-humble/tasksim/core/libs/redis"
)

// newTestStore needs a disposable Redis database, e.g.
// TASKSIM_TEST_REDIS_ADDR=localhost:6379 go test ./core/store/job/...
func newTestStore(t *testing.T) *redisJobStore {
	t.Helper()

	addr := os.Getenv("TASKSIM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TASKSIM_TEST_REDIS_ADDR is not set")
	}

	ctx := context.Background()
	client, err := rediscli.NewClient(ctx, rediscli.Config{Addr: addr, DB: 15})
	require.NoError(t, err)
	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})

	return NewRedisJobStore(client)
}

func TestRedisJobStoreLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateJob(ctx, job.CreateParams{
		Event:          []byte(`{"input":{"task_type":"data_analysis"}}`),
		IdempotencyKey: "key-1",
		TTL:            time.Hour,
	})
	require.NoError(err)
	assert.Equal(job.StatusInQueue, created.Status)

	got, ok := s.Job(ctx, created.ID)
	require.True(ok)
	assert.Equal(created.Event, got.Event)
	assert.Empty(got.Output)

	byKey, ok := s.ByIdempotencyKey(ctx, "key-1")
	require.True(ok)
	assert.Equal(created.ID, byKey.ID)

	s.UpdateStatus(ctx, created.ID, job.StatusInProgress, "")
	got, _ = s.Job(ctx, created.ID)
	assert.Equal(job.StatusInProgress, got.Status)

	s.SetOutput(ctx, created.ID, job.Output{
		Status:              job.StatusCompleted,
		Envelope:            []byte(`{"success":true}`),
		ArtifactFilename:    "analysis_results_12345678.csv",
		ArtifactContentType: "text/csv",
	})
	got, _ = s.Job(ctx, created.ID)
	assert.Equal(job.StatusCompleted, got.Status)
	assert.JSONEq(`{"success":true}`, string(got.Output))
	assert.Equal("analysis_results_12345678.csv", got.ArtifactFilename)
	assert.Equal("text/csv", got.ArtifactContentType)
}

func TestRedisJobStoreExpiry(t *testing.T) {
	require := require.New(t)

	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-3 * time.Hour)
	s.now = func() time.Time { return base }

	j, err := s.CreateJob(ctx, job.CreateParams{IdempotencyKey: "old", TTL: time.Hour})
	require.NoError(err)

	now := base.Add(90 * time.Minute)
	assert.Equal(t, []string{j.ID}, s.ExpiredJobs(ctx, now))
	assert.Empty(t, s.ExpiredJobs(ctx, now), "already expired jobs are not reported twice")

	got, ok := s.Job(ctx, j.ID)
	require.True(ok)
	assert.Equal(t, job.StatusExpired, got.Status)

	assert.Equal(t, 0, s.DeleteExpired(ctx, now, 2*time.Hour))
	assert.Equal(t, 1, s.DeleteExpired(ctx, base.Add(3*time.Hour), 2*time.Hour))

	_, ok = s.Job(ctx, j.ID)
	assert.False(t, ok)
	_, ok = s.ByIdempotencyKey(ctx, "old")
	assert.False(t, ok)
}
