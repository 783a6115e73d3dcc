// Package artwork caches book cover images on disk, keyed by URL hash.
package artwork

import (
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Downloader fetches cover images into a cache directory.
type Downloader struct {
	cacheDir string
	client   *http.Client
}

// NewDownloader creates a downloader caching under dir.
func NewDownloader(dir string) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artwork cache directory: %w", err)
	}

	return &Downloader{
		cacheDir: dir,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Download fetches a cover image, returning the cached path. An empty URL
// returns an empty path without error.
func (d *Downloader) Download(url string) (string, error) {
	if url == "" {
		return "", nil
	}

	hash := sha256.Sum256([]byte(url))
	filename := fmt.Sprintf("%x%s", hash[:8], extension(url))
	cachePath := filepath.Join(d.cacheDir, filename)

	if _, err := os.Stat(cachePath); err == nil {
		slog.Debug("Artwork cache hit", "path", cachePath)
		return cachePath, nil
	}

	resp, err := d.client.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("artwork download failed: HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(cachePath)
	if err != nil {
		return "", fmt.Errorf("failed to create artwork file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(cachePath)
		return "", fmt.Errorf("failed to save artwork: %w", err)
	}

	slog.Debug("Artwork saved", "path", cachePath)
	return cachePath, nil
}

// Cleanup removes the whole artwork cache.
func (d *Downloader) Cleanup() error {
	return os.RemoveAll(d.cacheDir)
}

// extension derives a file extension from the URL path, defaulting to
// .jpg for query-style cover endpoints.
func extension(url string) string {
	url = strings.Split(url, "?")[0]
	if ext := filepath.Ext(url); ext != "" {
		return ext
	}
	return ".jpg"
}
