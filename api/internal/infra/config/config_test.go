package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimal = `
addr: ":8080"
base_dir: "/tmp/tasksim"
job_ttl: 1h
redis:
  addr: "localhost:6379"
nats:
  subject: "tasksim.jobs"
`

func TestLoadAppliesDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(":8080", cfg.Addr)
	assert.Equal(time.Hour, cfg.JobTTL)
	assert.Equal(10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(int64(1), cfg.MaxRequestMb)
	assert.Equal(1024, cfg.StatusCacheSize)
	assert.Equal(100, cfg.QueueCapacity)
	assert.Equal(2, cfg.PoolSize)
	assert.Equal("nats://localhost:4222", cfg.NATS.URL)
	assert.Equal("info", cfg.LogLevel)
	assert.False(cfg.MinIO.Enabled)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]struct {
		body string
	}{
		"Missing addr should fail.": {body: `
base_dir: "/tmp"
job_ttl: 1h
redis: {addr: "r:6379"}
nats: {subject: "s"}
`},
		"Missing job ttl should fail.": {body: `
addr: ":1"
base_dir: "/tmp"
redis: {addr: "r:6379"}
nats: {subject: "s"}
`},
		"Enabled MinIO without bucket should fail.": {body: minimal + `
minio:
  enabled: true
  endpoint: "localhost:9000"
`},
		"Broken yaml should fail.": {body: "addr: [unterminated"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, test.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
