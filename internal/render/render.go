// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render maps Canvas module items to Markdown fragments. Each item
// kind gets its own shape; rich-HTML kinds (pages, assignments) run through
// the link rewriter so embedded attachments resolve locally.
package render

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/canvas-mirror/internal/assets"
	"github.com/pdiddy/canvas-mirror/internal/canvas"
	"github.com/pdiddy/canvas-mirror/internal/rewrite"
)

// filesDirName is the per-module attachment directory next to README.md.
const filesDirName = "_files"

// itemSeparator closes every fragment so module documents have visually
// distinct sections.
const itemSeparator = "\n---\n\n"

// ContentSource provides the course-scoped lookups the renderer needs.
// canvas.Course implements it.
type ContentSource interface {
	Page(ctx context.Context, slug string) (*canvas.Page, error)
	File(ctx context.Context, id int64) (*canvas.File, error)
	Assignment(ctx context.Context, id int64) (*canvas.Assignment, error)
}

// ItemRenderer renders the items of one course.
type ItemRenderer struct {
	source    ContentSource
	rewriter  *rewrite.Rewriter
	fetcher   *assets.Fetcher
	converter *Converter
}

// NewItemRenderer returns a renderer for one course's items.
func NewItemRenderer(source ContentSource, rewriter *rewrite.Rewriter, fetcher *assets.Fetcher, converter *Converter) *ItemRenderer {
	return &ItemRenderer{source: source, rewriter: rewriter, fetcher: fetcher, converter: converter}
}

// RenderItem returns the Markdown fragment for one module item, destined for
// the README.md inside moduleDir. Remote fetch failures become in-document
// notices; no error escapes, so one bad item never aborts its module.
func (r *ItemRenderer) RenderItem(ctx context.Context, item *canvas.Item, moduleDir string) string {
	title := item.Title
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Untitled_%s_%d", item.Type, item.ID)
	}
	logrus.WithFields(logrus.Fields{"item": title, "type": item.Type}).Info("processing item")

	var b strings.Builder
	if err := r.renderTyped(ctx, &b, item, title, moduleDir); err != nil {
		log := logrus.WithFields(logrus.Fields{"item": title, "type": item.Type})
		switch {
		case errors.Is(err, canvas.ErrNotFound):
			log.Error("item content not found")
			fmt.Fprintf(&b, "*Item '%s' could not be retrieved (Resource not found).*\n", title)
		case errors.Is(err, canvas.ErrForbidden):
			log.Error("item content forbidden")
			fmt.Fprintf(&b, "*Item '%s' could not be retrieved (Access forbidden).*\n", title)
		default:
			log.WithError(err).Error("processing item")
			fmt.Fprintf(&b, "*An error occurred while processing item '%s'.*\n", title)
		}
	}
	b.WriteString(itemSeparator)
	return b.String()
}

// renderTyped writes the fragment body for item into b. Content already
// written stays in the fragment even when an error follows, so a partially
// rendered item keeps its heading above the failure notice.
func (r *ItemRenderer) renderTyped(ctx context.Context, b *strings.Builder, item *canvas.Item, title, moduleDir string) error {
	filesDir := filepath.Join(moduleDir, filesDirName)
	docPath := filepath.Join(moduleDir, "README.md")

	switch item.Type {
	case canvas.TypePage:
		fmt.Fprintf(b, "## %s\n\n", title)
		page, err := r.source.Page(ctx, item.PageURL)
		if err != nil {
			return err
		}
		if strings.TrimSpace(page.Body) == "" {
			b.WriteString("*(This page has no content)*\n")
			return nil
		}
		r.renderBody(ctx, b, page.Body, filesDir, docPath)

	case canvas.TypeFile:
		file, err := r.source.File(ctx, item.ContentID)
		if err != nil {
			return err
		}
		localPath, err := r.fetcher.Fetch(ctx, file, filesDir)
		if err != nil {
			logrus.WithField("item", title).WithError(err).Error("downloading file item")
			return nil
		}
		rel, err := filepath.Rel(filepath.Dir(docPath), localPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "* **File:** [%s](%s)\n", file.DisplayName, filepath.ToSlash(rel))

	case canvas.TypeExternalURL:
		fmt.Fprintf(b, "* **External URL:** [%s](%s)\n", title, item.ExternalURL)

	case canvas.TypeSubHeader:
		fmt.Fprintf(b, "### %s\n\n", title)

	case canvas.TypeAssignment:
		fmt.Fprintf(b, "## Assignment: %s\n\n", title)
		assignment, err := r.source.Assignment(ctx, item.ContentID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(assignment.Description) == "" {
			b.WriteString("*(This assignment has no description)*\n")
		} else {
			r.renderBody(ctx, b, assignment.Description, filesDir, docPath)
		}
		if assignment.DueAt != nil {
			fmt.Fprintf(b, "\n*Due: %s*\n", assignment.DueAt.Format("2006-01-02 15:04 MST"))
		}
		if assignment.PointsPossible > 0 {
			fmt.Fprintf(b, "*Points: %g*\n", assignment.PointsPossible)
		}

	case canvas.TypeDiscussion:
		fmt.Fprintf(b, "## Discussion: %s\n\n", title)
		r.renderRemoteLink(b, "discussion", title, item.HTMLURL)

	case canvas.TypeQuiz:
		fmt.Fprintf(b, "## Quiz: %s\n\n", title)
		r.renderRemoteLink(b, "quiz", title, item.HTMLURL)

	default:
		fmt.Fprintf(b, "* **%s:** %s", item.Type, title)
		if item.HTMLURL != "" {
			fmt.Fprintf(b, " ([View on Canvas](%s))", item.HTMLURL)
		}
		b.WriteString("\n")
		logrus.WithFields(logrus.Fields{"item": title, "type": item.Type}).Warn("unsupported item type")
	}
	return nil
}

// renderBody rewrites embedded file references in html, converts the result
// to Markdown, and appends the non-image reference list when present.
func (r *ItemRenderer) renderBody(ctx context.Context, b *strings.Builder, html, filesDir, docPath string) {
	rewritten, refs := r.rewriter.Rewrite(ctx, html, filesDir, docPath)
	b.WriteString(r.converter.Convert(rewritten))
	b.WriteString("\n")
	if len(refs) > 0 {
		b.WriteString("\n\n**Referenced Files:**\n")
		b.WriteString(strings.Join(refs, "\n"))
		b.WriteString("\n")
	}
}

// renderRemoteLink emits the link-only reference used for content kinds the
// mirror does not parse deeply.
func (r *ItemRenderer) renderRemoteLink(b *strings.Builder, kind, title, htmlURL string) {
	if htmlURL != "" {
		fmt.Fprintf(b, "*Link to %s on Canvas: [%s](%s)*\n", kind, title, htmlURL)
		return
	}
	b.WriteString("*(Link not available, access through Canvas module)*\n")
}
