// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "diagram.png", "diagram.png"},
		{"slashes", "week/1/notes.pdf", "week1notes.pdf"},
		{"windows illegal", `a<b>c:d"e|f?g*.txt`, "abcdefg.txt"},
		{"whitespace collapse", "  lecture   notes  .pdf", "lecture notes .pdf"},
		{"trailing dot", "name.", "name"},
		{"empty", "", "untitled"},
		{"only illegal", `\/:*?"<>|`, "untitled"},
		{"control chars", "a\x00b\x1fc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegistryRecordOnce(t *testing.T) {
	reg := NewRegistry()

	path, inserted := reg.Record(42, "/a/diagram.png")
	assert.True(t, inserted)
	assert.Equal(t, "/a/diagram.png", path)

	// Second record for the same ID keeps the first path.
	path, inserted = reg.Record(42, "/b/other.png")
	assert.False(t, inserted)
	assert.Equal(t, "/a/diagram.png", path)

	got, ok := reg.Path(42)
	assert.True(t, ok)
	assert.Equal(t, "/a/diagram.png", got)
	assert.Equal(t, 1, reg.Len())
}

// fakeFile implements RemoteFile and counts downloads.
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

type mapRecorder struct {
	records map[int64]string
}

func (m *mapRecorder) Record(id int64, _, localPath string) error {
	m.records[id] = localPath
	return nil
}

func TestFetcherDownloadsOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "_files")
	reg := NewRegistry()
	rec := &mapRecorder{records: map[int64]string{}}
	fetcher := NewFetcher(reg, rec)
	file := &fakeFile{id: 42, name: "diagram.png", content: "png bytes"}

	path1, err := fetcher.Fetch(context.Background(), file, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "diagram.png"), path1)

	path2, err := fetcher.Fetch(context.Background(), file, dir)
	require.NoError(t, err)
	assert.Equal(t, path1, path2)

	assert.Equal(t, 1, file.downloads, "same ID must download at most once")
	assert.Equal(t, int64(1), fetcher.Downloaded())
	assert.Equal(t, path1, rec.records[42], "manifest recorder should see the download")

	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
}

func TestFetcherSanitizesName(t *testing.T) {
	dir := t.TempDir()
	fetcher := NewFetcher(NewRegistry(), nil)
	file := &fakeFile{id: 7, name: `notes: "week/1"?.pdf`, content: "x"}

	path, err := fetcher.Fetch(context.Background(), file, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "notes week1.pdf"), path)
}

func TestFetcherDownloadFailure(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	fetcher := NewFetcher(reg, nil)
	file := &fakeFile{id: 9, name: "broken.pdf", err: errors.New("connection reset")}

	_, err := fetcher.Fetch(context.Background(), file, dir)
	require.Error(t, err)

	// A failed download must not be recorded; a later attempt retries.
	_, ok := reg.Path(9)
	assert.False(t, ok)
	assert.Equal(t, int64(0), fetcher.Downloaded())

	file.err = nil
	file.content = "recovered"
	path, err := fetcher.Fetch(context.Background(), file, dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestFetcherCreatesTargetDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "course", "module", "_files")
	fetcher := NewFetcher(NewRegistry(), nil)
	file := &fakeFile{id: 1, name: "a.txt", content: "a"}

	path, err := fetcher.Fetch(context.Background(), file, dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
