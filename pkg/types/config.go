// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the canvas-mirror pipeline.
package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "canvas-mirror/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// MirrorConfig holds settings for a mirror run.
type MirrorConfig struct {
	HTTPConfig `yaml:",inline"`

	// OutputDir is the root directory the course tree is written under.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}
