// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canvas

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the remote-access failure kinds the pipeline
// distinguishes. Callers test with errors.Is.
var (
	// ErrUnauthorized means the API token was rejected (HTTP 401).
	ErrUnauthorized = errors.New("canvas: unauthorized")

	// ErrForbidden means access to the resource was denied (HTTP 403).
	ErrForbidden = errors.New("canvas: forbidden")

	// ErrNotFound means the remote ID does not exist (HTTP 404).
	ErrNotFound = errors.New("canvas: not found")
)

// statusError maps a non-2xx response status to the error taxonomy.
func statusError(status int, url string) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: GET %s", ErrUnauthorized, url)
	case http.StatusForbidden:
		return fmt.Errorf("%w: GET %s", ErrForbidden, url)
	case http.StatusNotFound:
		return fmt.Errorf("%w: GET %s", ErrNotFound, url)
	default:
		return fmt.Errorf("canvas: HTTP %d from %s", status, url)
	}
}
