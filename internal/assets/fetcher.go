// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// RemoteFile is the handle the fetcher needs to pull one Canvas file:
// identity, a name to derive the local filename from, and a download method.
// canvas.File implements it.
type RemoteFile interface {
	RemoteID() int64
	Name() string
	Download(ctx context.Context, localPath string) error
}

// Recorder persists a download record beyond the current run. The manifest
// store implements it; a nil Recorder disables persistence.
type Recorder interface {
	Record(id int64, displayName, localPath string) error
}

// Fetcher downloads remote files into a target directory, consulting the
// Registry so each file ID is downloaded at most once per run.
type Fetcher struct {
	registry   *Registry
	recorder   Recorder
	downloaded int64
}

// NewFetcher returns a fetcher backed by reg. recorder may be nil.
func NewFetcher(reg *Registry, recorder Recorder) *Fetcher {
	return &Fetcher{registry: reg, recorder: recorder}
}

// Downloaded returns how many files this fetcher has actually transferred.
func (f *Fetcher) Downloaded() int64 {
	return atomic.LoadInt64(&f.downloaded)
}

// Fetch returns the local path of file under dir, downloading it first unless
// the registry already has it. dir is created if absent. On download failure
// the error is returned and nothing is recorded; callers treat that as "this
// reference could not be resolved" and skip it rather than aborting the item.
func (f *Fetcher) Fetch(ctx context.Context, file RemoteFile, dir string) (string, error) {
	if path, ok := f.registry.Path(file.RemoteID()); ok {
		logrus.WithField("file", file.Name()).Debug("already downloaded")
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	localPath := filepath.Join(dir, SanitizeFilename(file.Name()))
	logrus.WithFields(logrus.Fields{
		"file": file.Name(),
		"dest": localPath,
	}).Info("downloading")

	if err := f.download(ctx, file, localPath); err != nil {
		return "", err
	}

	path, inserted := f.registry.Record(file.RemoteID(), localPath)
	if inserted {
		atomic.AddInt64(&f.downloaded, 1)
		if f.recorder != nil {
			if err := f.recorder.Record(file.RemoteID(), file.Name(), path); err != nil {
				logrus.WithError(err).Warn("recording download in manifest")
			}
		}
	}
	return path, nil
}

func (f *Fetcher) download(ctx context.Context, file RemoteFile, localPath string) error {
	if err := file.Download(ctx, localPath); err != nil {
		return fmt.Errorf("downloading %s (ID %d): %w", file.Name(), file.RemoteID(), err)
	}
	return nil
}
