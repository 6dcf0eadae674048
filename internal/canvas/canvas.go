// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package canvas is a minimal client for the Canvas LMS REST API covering the
// surface the mirror pipeline consumes: the current user, courses, modules,
// module items, pages, assignments, and files.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/canvas-mirror/internal/httputil"
	"github.com/pdiddy/canvas-mirror/pkg/types"
)

// perPage is the page size requested from list endpoints. Canvas caps
// per_page at 100.
const perPage = "100"

// Client is an authenticated session against one Canvas instance.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	ua      string
}

// NewClient returns a session for the Canvas instance at baseURL (e.g.
// "https://canvas.instructure.com") authenticating with the given API token.
func NewClient(baseURL, token string, cfg types.HTTPConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: cfg.Timeout},
		ua:      cfg.UserAgent,
	}
}

// User identifies the authenticated Canvas user.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CurrentUser fetches the profile of the token's owner. It is the cheapest
// way to verify credentials; a bad token yields ErrUnauthorized.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if _, err := c.getJSON(ctx, c.apiURL("/users/self", nil), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Courses lists all courses the authenticated user can see, following
// pagination to the end.
func (c *Client) Courses(ctx context.Context) ([]*Course, error) {
	var all []*Course
	next := c.apiURL("/courses", url.Values{"per_page": {perPage}})
	for next != "" {
		var page []*Course
		n, err := c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		next = n
	}
	for _, course := range all {
		course.client = c
	}
	return all, nil
}

// Course fetches a single course by ID.
func (c *Client) Course(ctx context.Context, id int64) (*Course, error) {
	var course Course
	if _, err := c.getJSON(ctx, c.apiURL(fmt.Sprintf("/courses/%d", id), nil), &course); err != nil {
		return nil, err
	}
	course.client = c
	return &course, nil
}

// apiURL builds an absolute /api/v1 URL for path with optional query values.
func (c *Client) apiURL(path string, query url.Values) string {
	u := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// getJSON performs an authenticated GET against urlStr, decodes the JSON body
// into out, and returns the next-page URL from the Link header (empty when
// the listing is exhausted or the endpoint is not paginated).
func (c *Client) getJSON(ctx context.Context, urlStr string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		return "", fmt.Errorf("canvas: GET %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, urlStr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("canvas: decoding %s: %w", urlStr, err)
	}
	return nextPageURL(resp.Header.Get("Link")), nil
}

// nextPageURL extracts the rel="next" target from an RFC 5988 Link header,
// the pagination scheme Canvas uses on all list endpoints.
func nextPageURL(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(strings.TrimSpace(part), ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		for _, param := range segments[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}
