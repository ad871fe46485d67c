package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const archive = `[
  {"url": "https://a/", "device": "desktop", "score": 95,
   "metrics": {"firstContentfulPaint": 900, "speedIndex": 1200, "largestContentfulPaint": 1800,
               "timeToInteractive": 2000, "totalBlockingTime": 50, "cumulativeLayoutShift": 0.05}},
  {"url": "https://b/", "device": "desktop", "score": 60,
   "metrics": {"firstContentfulPaint": 1500, "speedIndex": 2500, "largestContentfulPaint": 4500,
               "timeToInteractive": 5000, "totalBlockingTime": 700, "cumulativeLayoutShift": 0.3}}
]`

func TestRenderCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lighthouse-results.json")
	require.NoError(t, os.WriteFile(path, []byte(archive), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"render", "--archive", path, "--at", "2026-10-16T17:15:00Z"})
	require.NoError(t, cmd.Execute())

	md := out.String()
	assert.Contains(t, md, "**Test Date:** 10/16/2026, 5:15:00 PM")
	assert.Contains(t, md, "| **Improvement (Site 2 - Site 1)** | **-35.0** | **+0.0** |")
	assert.Contains(t, md, "**https://a/** performs better with an average score of **47.5** compared to **https://b/** with **30.0**.")
	assert.Contains(t, md, "| Largest Contentful Paint (LCP) | 4.50s | 🔴 Poor |")
}

func TestRenderCmd_ToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lighthouse-results.json")
	require.NoError(t, os.WriteFile(path, []byte(archive), 0o644))
	dest := filepath.Join(dir, "report.md")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"render", "--archive", path, "-o", dest, "--at", "2026-10-16T17:15:00Z"})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Site Comparison")
}

func TestRenderCmd_BadTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lighthouse-results.json")
	require.NoError(t, os.WriteFile(path, []byte(archive), 0o644))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"render", "--archive", path, "--at", "yesterday"})
	assert.Error(t, cmd.Execute())
}
