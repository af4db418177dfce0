// Package image downloads generated images. A download is a pass-through
// fetch-and-save with no effect on session or history state.
package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/manash/visionary/internal/security"
)

// DefaultFilename matches the name the download carried in the original app.
const DefaultFilename = "generated-image.png"

const defaultTimeout = 60 * time.Second

type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Fetch retrieves the image bytes at url. The URL is validated first; the
// backend's CDN only ever hands out public HTTPS locations.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := security.ValidateImageURL(url); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Download fetches url and writes it to path, creating parent directories
// as needed. An empty path falls back to DefaultFilename.
func (f *Fetcher) Download(ctx context.Context, url, path string) error {
	if path == "" {
		path = DefaultFilename
	}
	if err := security.ValidateSavePath(path); err != nil {
		return err
	}

	data, err := f.Fetch(ctx, url)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
