package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *localStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestLocalStoreSaveOpen(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	s := newLocal(t)
	ctx := context.Background()
	content := "# Text Processing Report"

	obj, err := s.Save(ctx, Key("job-1", "text_result_abcd1234.md"), strings.NewReader(content), 0)
	require.NoError(err)

	sum := sha256.Sum256([]byte(content))
	assert.Equal(int64(len(content)), obj.Size)
	assert.Equal(hex.EncodeToString(sum[:]), obj.Checksum)

	rc, size, err := s.Open(ctx, "job-1/text_result_abcd1234.md")
	require.NoError(err)
	assert.Equal(int64(len(content)), size)
	assert.Equal(content, readAll(t, rc))

	entries, err := os.ReadDir(filepath.Join(s.baseDir, "job-1"))
	require.NoError(err)
	assert.Len(entries, 1, "temp files must not be left behind")
}

func TestLocalStoreNames(t *testing.T) {
	tests := map[string]struct {
		name   string
		expErr bool
	}{
		"A plain name should be accepted.":           {name: "a.txt"},
		"A nested name should be accepted.":          {name: "job/a.txt"},
		"An empty name should be rejected.":          {name: "  ", expErr: true},
		"A parent traversal should be rejected.":     {name: "../escape.txt", expErr: true},
		"A backslash traversal should be rejected.":  {name: "..\\escape.txt", expErr: true},
		"An absolute name should stay in the store.": {name: "/abs.txt"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			s := newLocal(t)
			_, err := s.Save(context.Background(), test.name, strings.NewReader("x"), 1)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLocalStoreOpenMissing(t *testing.T) {
	_, _, err := newLocal(t).Open(context.Background(), "nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreDelete(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	name := Key("job-2", "result.txt")

	_, err := s.Save(ctx, name, strings.NewReader("x"), 1)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, name))
	require.NoError(t, s.Delete(ctx, name), "deleting twice is not an error")

	_, _, err = s.Open(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(filepath.Join(s.baseDir, "job-2"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreCleanupOlderThan(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "old/a.txt", strings.NewReader("old"), 3)
	require.NoError(t, err)
	_, err = s.Save(ctx, "new/b.txt", strings.NewReader("new"), 3)
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(s.baseDir, "old", "a.txt"), past, past))

	require.NoError(t, s.CleanupOlderThan(ctx, time.Hour))

	_, _, err = s.Open(ctx, "old/a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	rc, _, err := s.Open(ctx, "new/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", readAll(t, rc))
}

func TestAsyncStoreReplicatesAndFallsBack(t *testing.T) {
	require := require.New(t)

	local, remote := newLocal(t), newLocal(t)
	ctx := context.Background()

	s := NewAsyncStore(ctx, local, remote, 10, 2, 1)
	_, err := s.Save(ctx, "job/r.csv", strings.NewReader("metric,value"), 12)
	require.NoError(err)

	// Stop drains the queue, so the remote copy exists afterwards.
	require.NoError(s.Close(ctx))

	require.NoError(local.Delete(ctx, "job/r.csv"))

	rc, size, err := s.Open(ctx, "job/r.csv")
	require.NoError(err)
	assert.Equal(t, int64(12), size)
	assert.Equal(t, "metric,value", readAll(t, rc))

	require.NoError(s.Delete(ctx, "job/r.csv"))
	_, _, err = s.Open(ctx, "job/r.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAsyncStoreWithoutRemote(t *testing.T) {
	local := newLocal(t)
	ctx := context.Background()

	s := NewAsyncStore(ctx, local, nil, 0, 0, 0)
	_, err := s.Save(ctx, "a.txt", strings.NewReader("x"), 1)
	require.NoError(t, err)

	require.NoError(t, s.CleanupOlderThan(ctx, time.Hour))
	require.NoError(t, s.Close(ctx))

	_, _, err = s.Open(ctx, "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}
