package audit

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/shyim/lighthouse-compare/internal/models"
)

// LocalEngine launches a fresh headless Chrome per audit and points the
// lighthouse CLI at it. The browser is torn down when Audit returns,
// whatever the outcome.
type LocalEngine struct {
	NodeBin       string
	LighthouseBin string
	ChromePath    string
	NoSandbox     bool
	Logger        *logrus.Logger
}

func (e *LocalEngine) Audit(ctx context.Context, url string, p Profile) (*models.LighthouseReport, error) {
	userDataDir, err := os.MkdirTemp("", "lighthouse-chrome-")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chrome profile dir")
	}
	defer os.RemoveAll(userDataDir)

	// Chrome picks the debugging port itself and records it in the profile dir.
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(userDataDir),
		chromedp.Flag("remote-debugging-port", "0"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if e.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if e.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(e.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	// Running no actions starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, errors.Wrap(err, "failed to launch chrome")
	}

	port, err := waitDevToolsPort(ctx, userDataDir, devToolsPortTimeout)
	if err != nil {
		return nil, err
	}

	args := []string{e.LighthouseBin, url}
	args = append(args, lighthouseFlags(p)...)
	args = append(args, "--port="+strconv.Itoa(port))

	e.logger().WithFields(logrus.Fields{
		"url":    url,
		"device": p.Device,
		"port":   port,
	}).Debug("Starting lighthouse")

	cmd := exec.CommandContext(ctx, e.NodeBin, args...)

	var stdout bytes.Buffer
	var stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "lighthouse failed: %s", tail(stderr.String(), 2048))
	}

	return parseReport(stdout.Bytes())
}

func (e *LocalEngine) logger() *logrus.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logrus.StandardLogger()
}

const devToolsPortTimeout = 5 * time.Second

// waitDevToolsPort reads the port a running Chrome wrote to
// DevToolsActivePort in its profile dir.
func waitDevToolsPort(ctx context.Context, userDataDir string, timeout time.Duration) (int, error) {
	path := filepath.Join(userDataDir, "DevToolsActivePort")
	deadline := time.Now().Add(timeout)
	for {
		data, err := os.ReadFile(path)
		if err == nil {
			if port, perr := parseDevToolsPort(data); perr == nil {
				return port, nil
			} else if time.Now().After(deadline) {
				return 0, perr
			}
		} else if time.Now().After(deadline) {
			return 0, errors.Wrap(err, "chrome did not report its debugging port")
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// parseDevToolsPort takes the first line of DevToolsActivePort, which
// holds the port; the second line is the browser target path.
func parseDevToolsPort(data []byte) (int, error) {
	line, _, _ := strings.Cut(string(data), "\n")
	port, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || port <= 0 || port > 65535 {
		return 0, errors.Errorf("invalid DevToolsActivePort contents %q", line)
	}
	return port, nil
}
