// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assets

import (
	"regexp"
	"strings"
)

// unsafeChars matches characters that are illegal in filenames on at least
// one of the common filesystems (NTFS being the strictest), plus control
// characters.
var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// maxFilenameLen keeps sanitized names under typical filesystem limits.
const maxFilenameLen = 200

// SanitizeFilename converts a display name into a filesystem-safe filename.
// Illegal characters are dropped, whitespace runs collapse to single spaces,
// and the result is never empty. The mapping is deterministic.
func SanitizeFilename(name string) string {
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")
	// Windows rejects trailing dots and spaces.
	name = strings.Trim(name, ". ")
	if len(name) > maxFilenameLen {
		name = strings.TrimRight(name[:maxFilenameLen], ". ")
	}
	if name == "" {
		return "untitled"
	}
	return name
}
