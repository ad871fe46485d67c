package cleanup

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	chromiumTempPrefix = ".org.chromium.Chromium."
	DefaultMaxAge      = 5 * time.Minute
)

// ChromiumTempDirs removes Chromium profile directories in dir that are
// older than maxAge. Crashed browsers leave these behind. It returns the
// number of directories removed.
func ChromiumTempDirs(dir string, maxAge time.Duration, now time.Time, logger *logrus.Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.WithError(err).Warn("Failed to read temp dir for cleanup")
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), chromiumTempPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= maxAge {
			continue
		}

		fullPath := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(fullPath); err != nil {
			logger.WithError(err).WithField("path", fullPath).Warn("Failed to clean up chromium temp directory")
			continue
		}
		logger.WithFields(logrus.Fields{
			"path":        fullPath,
			"age_minutes": int(age.Minutes()),
		}).Debug("Cleaned up chromium temp directory")
		removed++
	}
	return removed
}
