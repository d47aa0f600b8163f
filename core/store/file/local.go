package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

type localStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*localStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir is empty")
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}

	return &localStore{baseDir: baseDir}, nil
}

// Save writes to a temp file next to the target and renames it into place,
// so readers never observe a partial artifact.
func (s *localStore) Save(ctx context.Context, name string, r io.Reader, _ int64) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	fullPath, err := s.fullPath(name)
	if err != nil {
		return Object{}, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return Object{}, fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(fullPath), filepath.Base(fullPath)+".tmp-*")
	if err != nil {
		return Object{}, fmt.Errorf("create temp file: %w", err)
	}
	tempPath := f.Name()
	defer func() {
		_ = f.Close()
		_ = os.Remove(tempPath)
	}()

	hasher := sha256.New()
	written, err := io.Copy(f, io.TeeReader(r, hasher))
	if err != nil {
		return Object{}, fmt.Errorf("write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return Object{}, fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		return Object{}, fmt.Errorf("rename temp file: %w", err)
	}

	return Object{
		Name:     name,
		Size:     written,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (s *localStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	fullPath, err := s.fullPath(name)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, 0, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat file: %w", err)
	}

	return f, info.Size(), nil
}

func (s *localStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.fullPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}

	// Job directories are removed once empty; a non-empty one stays.
	if dir := filepath.Dir(fullPath); dir != s.baseDir {
		_ = os.Remove(dir)
	}

	return nil
}

func (s *localStore) CleanupOlderThan(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	return filepath.WalkDir(s.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}

		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove old file %s: %w", p, err)
		}
		return nil
	})
}

func (s *localStore) fullPath(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}
