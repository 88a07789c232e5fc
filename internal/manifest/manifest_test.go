package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `[
		{"id": "a", "name": "one.txt", "mime_type": "text/plain", "sha256": "abc", "size_bytes": 10},
		{"id": "b", "name": "two.txt", "mime_type": "text/plain", "sha256": "abc", "size_bytes": 10}
	]`)

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ID)
	assert.Equal(t, "abc", entries[1].SHA256)
}

func TestLoadRejectsEmptyAndInvalid(t *testing.T) {
	_, err := Load(writeManifest(t, `[]`))
	require.ErrorIs(t, err, ErrEmptyManifest)

	_, err = Load(writeManifest(t, `{not json`))
	require.Error(t, err)

	_, err = Load("/nonexistent/manifest.json")
	require.Error(t, err)
}

func TestDescriptorsAssignsIDs(t *testing.T) {
	entries := []Entry{
		{Name: "one.txt", MIMEType: "text/plain", SHA256: "abc"},
		{Name: "two.txt", MIMEType: "text/plain", SHA256: "def"},
	}

	files, err := Descriptors(entries)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.NotEmpty(t, files[0].ID)
	assert.NotEmpty(t, files[1].ID)
	assert.NotEqual(t, files[0].ID, files[1].ID)
}

func TestDescriptorsBackfillsFromPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o600))

	files, err := Descriptors([]Entry{{MIMEType: "text/plain", Path: src}})
	require.NoError(t, err)
	require.Len(t, files, 1)

	f := files[0]
	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", f.SHA256)
	assert.Equal(t, int64(5), f.SizeBytes)
	assert.NotNil(t, f.ModifiedAt)
	assert.Equal(t, "data.txt", f.Name)
}

func TestDescriptorsKeepsSuppliedFingerprints(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(src, []byte("bytes"), 0o600))

	files, err := Descriptors([]Entry{{ID: "x", MIMEType: "application/octet-stream", SHA256: "precomputed", Path: src}})
	require.NoError(t, err)
	assert.Equal(t, "precomputed", files[0].SHA256)
}

func TestDescriptorsMissingPathFails(t *testing.T) {
	_, err := Descriptors([]Entry{{MIMEType: "text/plain", Path: "/nonexistent/file"}})
	require.Error(t, err)
}
