// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "manifest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndEntries(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record(42, "diagram.png", "/out/c/m/_files/diagram.png"))
	require.NoError(t, s.Record(7, "notes.pdf", "/out/c/m/_files/notes.pdf"))

	entries, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(7), entries[0].ID)
	assert.Equal(t, "notes.pdf", entries[0].DisplayName)
	assert.Equal(t, int64(42), entries[1].ID)
	assert.Equal(t, "/out/c/m/_files/diagram.png", entries[1].LocalPath)
	assert.False(t, entries[0].DownloadedAt.IsZero())
}

func TestRecordUpserts(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record(42, "old name.png", "/old/path.png"))
	require.NoError(t, s.Record(42, "new name.png", "/new/path.png"))

	entries, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new name.png", entries[0].DisplayName)
	assert.Equal(t, "/new/path.png", entries[0].LocalPath)
}

func TestEntriesEmpty(t *testing.T) {
	s := openTestStore(t)

	entries, err := s.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(1, "a.txt", "/a.txt"))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	entries, err := s2.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].DisplayName)
}
