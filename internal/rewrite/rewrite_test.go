// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rewrite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/canvas-mirror/internal/assets"
	"github.com/pdiddy/canvas-mirror/internal/canvas"
)

// fakeFile implements assets.RemoteFile and counts downloads.
type fakeFile struct {
	id        int64
	name      string
	content   string
	err       error
	downloads int
}

func (f *fakeFile) RemoteID() int64 { return f.id }
func (f *fakeFile) Name() string    { return f.name }

func (f *fakeFile) Download(_ context.Context, localPath string) error {
	f.downloads++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(localPath, []byte(f.content), 0o644)
}

// fakeResolver maps IDs to files and counts resolutions. Unknown IDs fail
// with canvas.ErrNotFound.
type fakeResolver struct {
	files map[int64]*fakeFile
	calls map[int64]int
}

func newFakeResolver(files ...*fakeFile) *fakeResolver {
	r := &fakeResolver{files: map[int64]*fakeFile{}, calls: map[int64]int{}}
	for _, f := range files {
		r.files[f.id] = f
	}
	return r
}

func (r *fakeResolver) resolve(_ context.Context, id int64) (assets.RemoteFile, error) {
	r.calls[id]++
	f, ok := r.files[id]
	if !ok {
		return nil, canvas.ErrNotFound
	}
	return f, nil
}

// moduleLayout returns a module directory, its _files dir, and README path,
// the layout the mirror produces.
func moduleLayout(t *testing.T) (moduleDir, filesDir, docPath string) {
	t.Helper()
	moduleDir = filepath.Join(t.TempDir(), "Course X", "Module Y")
	require.NoError(t, os.MkdirAll(moduleDir, 0o755))
	return moduleDir, filepath.Join(moduleDir, "_files"), filepath.Join(moduleDir, "README.md")
}

func newTestRewriter(resolver *fakeResolver) (*Rewriter, *assets.Registry, *assets.Fetcher) {
	reg := assets.NewRegistry()
	fetcher := assets.NewFetcher(reg, nil)
	return New(fetcher, resolver.resolve), reg, fetcher
}

func TestRewriteImagePreview(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	file := &fakeFile{id: 42, name: "diagram.png", content: "png"}
	rw, reg, _ := newTestRewriter(newFakeResolver(file))

	fragment := `<p><img src="https://canvas.test/courses/1/files/42/preview" alt="d"></p>`
	out, refs := rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	assert.Contains(t, out, `src="_files/diagram.png"`)
	assert.Empty(t, refs, "image references do not join the side list")

	path, ok := reg.Path(42)
	require.True(t, ok, "registry must contain an entry for ID 42")
	assert.Equal(t, filepath.Join(filesDir, "diagram.png"), path)
}

func TestRewriteDownloadsEachDistinctIDOnce(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	f42 := &fakeFile{id: 42, name: "diagram.png", content: "png"}
	f43 := &fakeFile{id: 43, name: "notes.pdf", content: "pdf"}
	resolver := newFakeResolver(f42, f43)
	rw, _, fetcher := newTestRewriter(resolver)

	fragment := `
		<img src="/files/42/preview">
		<a href="/files/42/download?download_frd=1">the diagram</a>
		<img src="https://canvas.test/files/42/preview?verifier=zzz">
		<a href="/courses/1/files/43/download">notes</a>`
	rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	assert.Equal(t, 1, resolver.calls[42], "ID 42 resolved once despite three occurrences")
	assert.Equal(t, 1, resolver.calls[43])
	assert.Equal(t, 1, f42.downloads)
	assert.Equal(t, 1, f43.downloads)
	assert.Equal(t, int64(2), fetcher.Downloaded())
}

func TestRewriteSecondPassDoesNotRedownload(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	file := &fakeFile{id: 42, name: "diagram.png", content: "png"}
	rw, _, _ := newTestRewriter(newFakeResolver(file))

	fragment := `<img src="/files/42/preview">`
	first, _ := rw.Rewrite(context.Background(), fragment, filesDir, docPath)
	second, _ := rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	assert.Equal(t, 1, file.downloads, "registry must suppress the second download")
	assert.Equal(t, first, second)
}

func TestRewriteAnchorSideList(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	file := &fakeFile{id: 7, name: "syllabus.pdf", content: "pdf"}
	rw, _, _ := newTestRewriter(newFakeResolver(file))

	fragment := `<a href="https://canvas.test/courses/1/files/7/download?verifier=abc">Course <b>syllabus</b></a>`
	out, refs := rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	assert.Contains(t, out, `href="_files/syllabus.pdf"`)
	require.Len(t, refs, 1)
	assert.Equal(t, "* [Course syllabus](_files/syllabus.pdf)", refs[0])
}

func TestRewriteAnchorLabelFallsBackToFilename(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	file := &fakeFile{id: 7, name: "syllabus.pdf", content: "pdf"}
	rw, _, _ := newTestRewriter(newFakeResolver(file))

	fragment := `<a href="/files/7/download"><img src="/files/7/preview"></a>`
	_, refs := rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	require.Len(t, refs, 1)
	assert.Equal(t, "* [syllabus.pdf](_files/syllabus.pdf)", refs[0])
}

func TestRewriteSideListDeduplicated(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	file := &fakeFile{id: 7, name: "syllabus.pdf", content: "pdf"}
	rw, _, _ := newTestRewriter(newFakeResolver(file))

	fragment := `
		<a href="/files/7/download">syllabus.pdf</a>
		<p>see also <a href="/files/7/download">syllabus.pdf</a></p>`
	_, refs := rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	require.Len(t, refs, 1, "identical links collapse to one side-list entry")
}

func TestRewriteSideListDeduplicatedByID(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	file := &fakeFile{id: 7, name: "syllabus.pdf", content: "pdf"}
	rw, _, _ := newTestRewriter(newFakeResolver(file))

	// Same file anchored twice with different visible texts: still one
	// side-list entry, labeled from the first anchor.
	fragment := `
		<a href="/files/7/download">the syllabus</a>
		<p><a href="/files/7/download?verifier=v">click here</a></p>`
	out, refs := rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	require.Len(t, refs, 1, "one entry per file ID, whatever the anchor texts")
	assert.Equal(t, "* [the syllabus](_files/syllabus.pdf)", refs[0])
	assert.Equal(t, 2, strings.Count(out, `href="_files/syllabus.pdf"`), "both anchors still rewritten")
}

func TestRewriteIDInBothContexts(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	file := &fakeFile{id: 42, name: "diagram.png", content: "png"}
	rw, _, _ := newTestRewriter(newFakeResolver(file))

	fragment := `<img src="/files/42/preview"><a href="/files/42/download">the diagram</a>`
	out, refs := rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	// Image rewriting and side-list population are independent passes.
	assert.Contains(t, out, `src="_files/diagram.png"`)
	assert.Contains(t, out, `href="_files/diagram.png"`)
	require.Len(t, refs, 1)
	assert.Equal(t, "* [the diagram](_files/diagram.png)", refs[0])
	assert.Equal(t, 1, file.downloads)
}

func TestRewriteMalformedID(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	resolver := newFakeResolver()
	rw, _, _ := newTestRewriter(resolver)

	fragment := `<a href="/files/abc/download">broken</a>`
	out, refs := rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	assert.Equal(t, fragment, out, "fragment with only a malformed ID stays untouched")
	assert.Empty(t, refs)
	assert.Empty(t, resolver.calls, "no resolution attempted for a non-numeric ID")
	assert.NoDirExists(t, filesDir)
}

func TestRewriteUnknownIDSkipped(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	resolver := newFakeResolver() // knows no files: every ID is NotFound
	rw, _, _ := newTestRewriter(resolver)

	fragment := `<a href="/files/99/download">gone</a>`
	out, refs := rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	assert.Equal(t, fragment, out)
	assert.Empty(t, refs)
	assert.Equal(t, 1, resolver.calls[99])
}

func TestRewriteDownloadFailureSkipsReference(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	file := &fakeFile{id: 5, name: "flaky.pdf", err: errors.New("connection reset")}
	rw, _, _ := newTestRewriter(newFakeResolver(file))

	fragment := `<a href="/files/5/download">flaky</a>`
	out, refs := rw.Rewrite(context.Background(), fragment, filesDir, docPath)

	assert.Equal(t, fragment, out)
	assert.Empty(t, refs)
}

func TestRewriteEmptyFragment(t *testing.T) {
	_, filesDir, docPath := moduleLayout(t)
	rw, _, _ := newTestRewriter(newFakeResolver())

	out, refs := rw.Rewrite(context.Background(), "", filesDir, docPath)

	assert.Equal(t, "", out)
	assert.Empty(t, refs)
	assert.NoDirExists(t, filesDir)
}

func TestRewriteRelativePathResolvesFromDocument(t *testing.T) {
	moduleDir, filesDir, docPath := moduleLayout(t)
	file := &fakeFile{id: 42, name: "diagram.png", content: "png"}
	rw, _, _ := newTestRewriter(newFakeResolver(file))

	out, _ := rw.Rewrite(context.Background(), `<img src="/files/42/preview">`, filesDir, docPath)

	// Extract the rewritten src and resolve it the way a Markdown viewer
	// would: against the document's own directory.
	start := strings.Index(out, `src="`) + len(`src="`)
	end := strings.Index(out[start:], `"`) + start
	rel := out[start:end]

	resolved := filepath.Join(moduleDir, filepath.FromSlash(rel))
	_, err := os.Stat(resolved)
	require.NoError(t, err, "relative path %q must resolve to the downloaded file", rel)
}

func TestScanFileIDs(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     []int64
	}{
		{"none", "<p>hello</p>", nil},
		{"single", `<img src="/files/42/preview">`, []int64{42}},
		{"dedup keeps order", `<a href="/files/9/download">x</a><img src="/files/4/preview"><a href="/files/9/download">y</a>`, []int64{9, 4}},
		{"malformed skipped", `<a href="/files/abc/download">x</a><a href="/files/7/download">y</a>`, []int64{7}},
		{"course scoped", `<a href="https://canvas.test/courses/3/files/11/download?verifier=v">z</a>`, []int64{11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scanFileIDs(tt.fragment))
		})
	}
}
