package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipFiles(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "results.json")
	report := filepath.Join(dir, "results.md")
	require.NoError(t, os.WriteFile(archive, []byte("[]"), 0o644))
	require.NoError(t, os.WriteFile(report, []byte("# Report\n"), 0o644))

	target := filepath.Join(dir, "result.zip")
	require.NoError(t, ZipFiles(target, archive, report))

	data, _, err := ReadZipEntry(target, "results.md")
	require.NoError(t, err)
	assert.Equal(t, "# Report\n", string(data))

	data, _, err = ReadZipEntry(target, "results.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, _, err = ReadZipEntry(target, "missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestZipFiles_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := ZipFiles(filepath.Join(dir, "result.zip"), filepath.Join(dir, "nope.json"))
	assert.Error(t, err)
}
