// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across the mirror pipeline.
package httputil

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// throttled responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

const defaultMaxRetries = 5

// throttleBodyLimit bounds how much of a 403 body is read to decide whether
// the response is Canvas throttling rather than a permission denial.
const throttleBodyLimit = 4 << 10

// DoWithRetry executes an HTTP request and retries throttled responses with
// exponential backoff. Canvas signals throttling two ways: a plain HTTP 429,
// or an HTTP 403 whose body reads "Rate Limit Exceeded" (a depleted
// X-Rate-Limit-Remaining quota accompanies it). A 403 without that marker is
// a real permission denial and is returned untouched.
//
// The delay starts at RetryBaseDelay and doubles each attempt. When maxRetries
// is 0 the default (5) is used. If the context is cancelled during a backoff
// wait the function returns ctx.Err(). After exhausting retries the last
// throttled response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		throttled, err := isThrottled(resp)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		if !throttled {
			return resp, nil
		}

		// Exhausted retries: hand back the throttled response as-is.
		if attempt >= maxRetries {
			return resp, nil
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// isThrottled reports whether resp is a rate-limit response. For 403 it peeks
// at the body; the peeked bytes are stitched back so callers still see the
// full payload.
func isThrottled(resp *http.Response) (bool, error) {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true, nil
	case http.StatusForbidden:
		peeked, err := io.ReadAll(io.LimitReader(resp.Body, throttleBodyLimit))
		if err != nil {
			return false, err
		}
		rest := resp.Body
		resp.Body = readCloser{io.MultiReader(bytes.NewReader(peeked), rest), rest}
		return strings.Contains(string(peeked), "Rate Limit Exceeded"), nil
	default:
		return false, nil
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}
