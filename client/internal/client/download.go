package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/you-humble/tasksim/core/sim/artifact"
	"github.com/you-humble/tasksim/core/sim/domain"
)

// SaveArtifact writes the artifact carried inline in an envelope into dir
// and returns the file path.
func SaveArtifact(a domain.Artifact, dir string) (string, error) {
	if len(a.Content) == 0 {
		return "", ErrNoContent
	}

	path := filepath.Join(dir, artifact.SanitizeFilename(a.Filename))
	if err := os.WriteFile(path, a.Content, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// DownloadArtifact fetches the stored artifact of a completed job into dir.
func (c *Client) DownloadArtifact(ctx context.Context, jobID, dir string) (string, int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/download/"+url.PathEscape(jobID), nil)
	if err != nil {
		return "", 0, err
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("download %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return "", 0, err
	}

	name := jobID
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	path := filepath.Join(dir, artifact.SanitizeFilename(filepath.Base(name)))

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write %s: %w", path, err)
	}
	return path, n, nil
}
