package filestore

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrNotFound = errors.New("artifact file not found")

// Object describes a stored artifact file.
type Object struct {
	Name     string
	Size     int64
	Checksum string
}

func cleanName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty filename")
	}

	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}

	return strings.TrimLeft(clean, "/"), nil
}

// Key is the storage name of an artifact that belongs to a job.
func Key(jobID, filename string) string {
	return jobID + "/" + filename
}
