// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assets downloads Canvas files at most once per run and tracks where
// each downloaded file lives on disk.
package assets

import "sync"

// Registry maps remote file IDs to the local paths they were downloaded to.
// Check-and-record is guarded by a single lock so the at-most-once-download
// guarantee holds even if the pipeline is ever driven concurrently.
type Registry struct {
	mu    sync.Mutex
	paths map[int64]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{paths: make(map[int64]string)}
}

// Path returns the recorded local path for id, if any.
func (r *Registry) Path(id int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.paths[id]
	return path, ok
}

// Record stores the local path for id unless one is already recorded. It
// returns the path that is authoritative after the call, and whether this
// call inserted it.
func (r *Registry) Record(id int64, path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.paths[id]; ok {
		return existing, false
	}
	r.paths[id] = path
	return path, true
}

// Len returns the number of recorded files.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}
