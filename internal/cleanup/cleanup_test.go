package cleanup

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromiumTempDirs(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	stale := filepath.Join(dir, ".org.chromium.Chromium.abc")
	fresh := filepath.Join(dir, ".org.chromium.Chromium.def")
	other := filepath.Join(dir, "unrelated")
	for _, p := range []string{stale, fresh, other} {
		require.NoError(t, os.Mkdir(p, 0o755))
	}
	old := now.Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	removed := ChromiumTempDirs(dir, DefaultMaxAge, now, logger)
	assert.Equal(t, 1, removed)

	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
	assert.DirExists(t, other)
}

func TestChromiumTempDirs_MissingDir(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	assert.Equal(t, 0, ChromiumTempDirs(filepath.Join(t.TempDir(), "missing"), DefaultMaxAge, time.Now(), logger))
}
