// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"strings"

	markdown "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/sirupsen/logrus"
)

// Converter turns HTML into Markdown. It preserves links and images and does
// not wrap lines.
type Converter struct {
	converter *markdown.Converter
}

// NewConverter returns a ready-to-use converter.
func NewConverter() *Converter {
	return &Converter{converter: markdown.NewConverter("", true, nil)}
}

// Convert returns the Markdown rendering of html. If conversion fails the
// raw HTML is returned trimmed, so the document still carries the content.
func (c *Converter) Convert(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}
	out, err := c.converter.ConvertString(html)
	if err != nil {
		logrus.WithError(err).Warn("HTML to Markdown conversion failed, keeping raw HTML")
		return html
	}
	return strings.TrimSpace(out)
}
