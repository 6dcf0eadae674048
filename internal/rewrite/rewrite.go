// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rewrite turns Canvas file references embedded in HTML into links
// that resolve against the local mirror. It finds every /files/<id> reference
// in a fragment, downloads each referenced file once, and rewrites image and
// anchor targets to paths relative to the document that will embed them.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/pdiddy/canvas-mirror/internal/assets"
	"github.com/pdiddy/canvas-mirror/internal/canvas"
)

// fileRefPattern matches Canvas file reference paths wherever they appear:
// bare (/files/123), with a /download or /preview action and trailing
// verifier query, inside absolute or course-scoped URLs. The ID token is
// captured loosely so malformed references can be reported instead of
// silently ignored.
var fileRefPattern = regexp.MustCompile(`/files/([0-9A-Za-z_-]+)(?:/(?:download|preview)[^"'\s<>]*)?`)

// FileResolver maps a remote file ID to a downloadable handle. It fails with
// canvas.ErrNotFound when the remote service does not know the ID.
type FileResolver func(ctx context.Context, id int64) (assets.RemoteFile, error)

// Rewriter rewrites one course's HTML fragments. The fetcher's registry is
// shared across the whole run, so a file referenced from many fragments is
// still downloaded only once.
type Rewriter struct {
	fetcher *assets.Fetcher
	resolve FileResolver
}

// New returns a rewriter that resolves file IDs through resolve and downloads
// through fetcher.
func New(fetcher *assets.Fetcher, resolve FileResolver) *Rewriter {
	return &Rewriter{fetcher: fetcher, resolve: resolve}
}

// Rewrite scans fragment for file references, downloads each distinct file
// into filesDir, and rewrites img src and a href values to paths relative to
// docPath's parent directory. It returns the rewritten fragment and a
// deduplicated list of Markdown bullets for the non-image references, in
// document order.
//
// References that cannot be resolved or downloaded are logged and left
// untouched. An empty fragment is returned as-is without touching the
// filesystem.
func (rw *Rewriter) Rewrite(ctx context.Context, fragment, filesDir, docPath string) (string, []string) {
	if strings.TrimSpace(fragment) == "" {
		return fragment, nil
	}

	ids := scanFileIDs(fragment)
	if len(ids) == 0 {
		return fragment, nil
	}

	docDir := filepath.Dir(docPath)
	rels := make(map[int64]string, len(ids))
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		file, err := rw.resolve(ctx, id)
		if err != nil {
			if errors.Is(err, canvas.ErrNotFound) {
				logrus.WithField("file_id", id).Warn("embedded file not found, skipping link rewrite")
			} else {
				logrus.WithField("file_id", id).WithError(err).Error("resolving embedded file")
			}
			continue
		}

		localPath, err := rw.fetcher.Fetch(ctx, file, filesDir)
		if err != nil {
			logrus.WithField("file_id", id).WithError(err).Error("downloading embedded file")
			continue
		}

		rel, err := filepath.Rel(docDir, localPath)
		if err != nil {
			logrus.WithField("file_id", id).WithError(err).Error("computing relative path")
			continue
		}
		rels[id] = filepath.ToSlash(rel)
		names[id] = assets.SanitizeFilename(file.Name())
	}
	if len(rels) == 0 {
		return fragment, nil
	}

	return rewriteFragment(fragment, rels, names)
}

// scanFileIDs returns the distinct numeric file IDs referenced in fragment,
// in first-occurrence order. Non-numeric ID tokens are logged and dropped.
func scanFileIDs(fragment string) []int64 {
	var ids []int64
	seen := make(map[string]struct{})
	for _, m := range fileRefPattern.FindAllStringSubmatch(fragment, -1) {
		raw := m[1]
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logrus.WithField("file_id", raw).Error("malformed file reference ID")
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// rewriteFragment parses fragment into a tree, rewrites matching img src and
// a href attributes in place, and re-renders. Anchors produce side-list
// bullets; an ID appearing in both image and anchor contexts gets both
// treatments.
func rewriteFragment(fragment string, rels, names map[int64]string) (string, []string) {
	doc, err := html.Parse(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		logrus.WithError(err).Error("parsing HTML fragment, leaving links untouched")
		return fragment, nil
	}
	body := findBody(doc)
	if body == nil {
		return fragment, nil
	}

	var refs []string
	seen := make(map[int64]struct{})

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "img":
				rewriteAttr(n, "src", rels)
			case "a":
				if id, rel, ok := rewriteAttr(n, "href", rels); ok {
					// One side-list entry per file ID, labeled from the
					// first anchor that references it.
					if _, dup := seen[id]; !dup {
						seen[id] = struct{}{}
						label := strings.Join(strings.Fields(nodeText(n)), " ")
						if label == "" {
							label = names[id]
						}
						refs = append(refs, fmt.Sprintf("* [%s](%s)", label, rel))
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)

	var b strings.Builder
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			logrus.WithError(err).Error("rendering rewritten fragment")
			return fragment, refs
		}
	}
	return b.String(), refs
}

// rewriteAttr rewrites the named attribute of n when its value references a
// file we downloaded. The host and the /files/<id> portion (including any
// download/preview action and verifier query) are replaced by the relative
// path; path segments after the reference survive, query strings do not.
func rewriteAttr(n *html.Node, key string, rels map[int64]string) (int64, string, bool) {
	for i, attr := range n.Attr {
		if !strings.EqualFold(attr.Key, key) {
			continue
		}
		loc := fileRefPattern.FindStringSubmatchIndex(attr.Val)
		if loc == nil {
			return 0, "", false
		}
		id, err := strconv.ParseInt(attr.Val[loc[2]:loc[3]], 10, 64)
		if err != nil {
			return 0, "", false
		}
		rel, ok := rels[id]
		if !ok {
			return 0, "", false
		}

		suffix := attr.Val[loc[1]:]
		if cut := strings.IndexAny(suffix, "?#"); cut >= 0 {
			suffix = suffix[:cut]
		}
		n.Attr[i].Val = rel + suffix
		return id, rel, true
	}
	return 0, "", false
}

func findBody(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, "body") {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// nodeText returns the concatenated text content of n's subtree.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
