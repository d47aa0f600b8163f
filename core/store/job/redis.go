package jobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/you-humble/tasksim/core/job"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisJobStore struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewRedisJobStore(rdb redis.Cmdable) *redisJobStore {
	return &redisJobStore{rdb: rdb, now: time.Now}
}

// CreateJob stores a queued job. An idempotency key is pointed at the new
// job, replacing any previous mapping.
func (s *redisJobStore) CreateJob(ctx context.Context, p job.CreateParams) (job.Job, error) {
	now := s.now()
	j := job.Job{
		ID:             uuid.NewString(),
		Status:         job.StatusInQueue,
		Event:          p.Event,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(p.TTL),
	}

	pipe := s.rdb.TxPipeline()

	pipe.HSet(ctx, jobKey(j.ID), map[string]any{
		"id":                    j.ID,
		"status":                string(j.Status),
		"event":                 j.Event,
		"output":                "",
		"artifact_filename":     "",
		"artifact_content_type": "",
		"idempotency_key":       j.IdempotencyKey,
		"error":                 "",
		"created_at":            j.CreatedAt.UnixNano(),
		"updated_at":            j.UpdatedAt.UnixNano(),
		"expires_at":            j.ExpiresAt.UnixNano(),
	})
	pipe.ZAdd(ctx, jobsByCreatedKey(), redis.Z{
		Score:  float64(j.CreatedAt.Unix()),
		Member: j.ID,
	})
	if p.IdempotencyKey != "" {
		pipe.Set(ctx, idempKey(p.IdempotencyKey), j.ID, p.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return job.Job{}, fmt.Errorf("redis pipeline CreateJob: %w", err)
	}

	return j, nil
}

func (s *redisJobStore) Job(ctx context.Context, id string) (job.Job, bool) {
	res, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		slog.Warn("redis Job", slog.String("job_id", id), slog.String("error", err.Error()))
		return job.Job{}, false
	}
	if len(res) == 0 {
		return job.Job{}, false
	}

	j := job.Job{
		ID:                  id,
		Status:              job.Status(res["status"]),
		ArtifactFilename:    res["artifact_filename"],
		ArtifactContentType: res["artifact_content_type"],
		IdempotencyKey:      res["idempotency_key"],
		Error:               res["error"],
		CreatedAt:           parseNano(res["created_at"]),
		UpdatedAt:           parseNano(res["updated_at"]),
		ExpiresAt:           parseNano(res["expires_at"]),
	}
	if v := res["event"]; v != "" {
		j.Event = []byte(v)
	}
	if v := res["output"]; v != "" {
		j.Output = []byte(v)
	}

	return j, true
}

func (s *redisJobStore) ByIdempotencyKey(ctx context.Context, key string) (job.Job, bool) {
	id, err := s.rdb.Get(ctx, idempKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis ByIdempotencyKey", slog.String("error", err.Error()))
		}
		return job.Job{}, false
	}

	return s.Job(ctx, id)
}

func (s *redisJobStore) UpdateStatus(ctx context.Context, id string, newStatus job.Status, errReason string) {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(id),
		"status", string(newStatus),
		"error", errReason,
		"updated_at", s.now().UnixNano(),
	)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("redis UpdateStatus", slog.String("job_id", id), slog.String("error", err.Error()))
	}
}

func (s *redisJobStore) SetOutput(ctx context.Context, id string, out job.Output) {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(id),
		"status", string(out.Status),
		"output", out.Envelope,
		"artifact_filename", out.ArtifactFilename,
		"artifact_content_type", out.ArtifactContentType,
		"error", out.Error,
		"updated_at", s.now().UnixNano(),
	)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("redis SetOutput", slog.String("job_id", id), slog.String("error", err.Error()))
	}
}

// ExpiredJobs marks jobs past their expiry as expired and returns their ids.
func (s *redisJobStore) ExpiredJobs(ctx context.Context, now time.Time) []string {
	ids, err := s.rdb.ZRangeByScore(ctx, jobsByCreatedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprint(now.Unix()),
	}).Result()
	if err != nil {
		return nil
	}

	var expired []string
	for _, id := range ids {
		j, ok := s.Job(ctx, id)
		if !ok {
			continue
		}
		if now.After(j.ExpiresAt) && j.Status != job.StatusExpired {
			s.UpdateStatus(ctx, id, job.StatusExpired, "job expired")
			expired = append(expired, id)
		}
	}

	return expired
}

// DeleteExpired removes jobs created more than ttl before now.
func (s *redisJobStore) DeleteExpired(ctx context.Context, now time.Time, ttl time.Duration) int {
	border := now.Add(-ttl).Unix()

	ids, err := s.rdb.ZRangeByScore(ctx, jobsByCreatedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprint(border),
	}).Result()
	if err != nil {
		return 0
	}

	deleted := 0
	for _, id := range ids {
		j, ok := s.Job(ctx, id)

		pipe := s.rdb.TxPipeline()
		pipe.Del(ctx, jobKey(id))
		pipe.ZRem(ctx, jobsByCreatedKey(), id)
		if ok && j.IdempotencyKey != "" {
			pipe.Del(ctx, idempKey(j.IdempotencyKey))
		}

		if _, err := pipe.Exec(ctx); err == nil {
			deleted++
		}
	}

	return deleted
}

func parseNano(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func jobKey(id string) string {
	return "job:" + id
}

func idempKey(k string) string {
	return "job:idemp:" + k
}

func jobsByCreatedKey() string {
	return "jobs:by_created"
}
