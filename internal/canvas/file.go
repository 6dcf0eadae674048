// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canvas

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pdiddy/canvas-mirror/internal/httputil"
)

// File is a Canvas file record. URL is the content download URL, which
// carries its own verifier token.
type File struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`

	client *Client
}

// RemoteID returns the Canvas-assigned file ID.
func (f *File) RemoteID() int64 { return f.ID }

// Name returns the human-readable display name.
func (f *File) Name() string { return f.DisplayName }

// Download writes the file's content to localPath. The body is written to a
// temporary file in the same directory and renamed on success, so a failed
// transfer never leaves a truncated file behind.
func (f *File) Download(ctx context.Context, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.client.token)
	if f.client.ua != "" {
		req.Header.Set("User-Agent", f.client.ua)
	}

	resp, err := httputil.DoWithRetry(ctx, f.client.http, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, f.URL)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(localPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
