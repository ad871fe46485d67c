package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shyim/lighthouse-compare/internal/console"
	"github.com/shyim/lighthouse-compare/internal/models"
	"github.com/shyim/lighthouse-compare/internal/report"
	"github.com/shyim/lighthouse-compare/internal/utils"
)

type pair struct {
	url    string
	device models.Device
}

type fakeAuditor struct {
	calls []pair
	fail  map[pair]bool
}

func (f *fakeAuditor) Run(ctx context.Context, url string, device models.Device) (models.TestResult, error) {
	p := pair{url, device}
	f.calls = append(f.calls, p)
	if f.fail[p] {
		return models.TestResult{}, errors.New("navigation failed")
	}
	score := 90.0
	if device == models.Mobile {
		score = 60
	}
	return models.TestResult{URL: url, Device: device, Score: score, Metrics: models.Metrics{TotalBlockingTime: 100}}, nil
}

type recordingReporter struct {
	errs []map[string]string
}

func (r *recordingReporter) CaptureError(err error, tags map[string]string) {
	r.errs = append(r.errs, tags)
}

type recordingPublisher struct {
	name string
	got  []Artifacts
	err  error
}

func (p *recordingPublisher) Name() string { return p.name }

func (p *recordingPublisher) Publish(ctx context.Context, a Artifacts) error {
	p.got = append(p.got, a)
	return p.err
}

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newDriver(t *testing.T, auditor Auditor, out io.Writer, options ...Option) (*Driver, string) {
	t.Helper()
	dir := t.TempDir()
	options = append(options, WithClock(func() time.Time { return fixedNow }))
	return NewDriver(auditor, Options{
		URLs:        []string{"https://a/", "https://b/"},
		OutputDir:   dir,
		ArchiveName: "lighthouse-results.json",
		ReportName:  "lighthouse-results.md",
	}, console.New(out), quietLogger(), options...), dir
}

func TestDriver_RunAllPairs(t *testing.T) {
	auditor := &fakeAuditor{}
	var out bytes.Buffer
	d, dir := newDriver(t, auditor, &out)

	s, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []pair{
		{"https://a/", models.Desktop},
		{"https://a/", models.Mobile},
		{"https://b/", models.Desktop},
		{"https://b/", models.Mobile},
	}, auditor.calls)
	assert.Len(t, s.Results, 4)
	assert.NotEmpty(t, s.ID)

	archived, err := report.LoadArchive(filepath.Join(dir, "lighthouse-results.json"))
	require.NoError(t, err)
	assert.Equal(t, s.Results, archived)

	md, err := os.ReadFile(filepath.Join(dir, "lighthouse-results.md"))
	require.NoError(t, err)
	assert.Equal(t, report.Render(s.Results, fixedNow), string(md))

	assert.Contains(t, out.String(), "=== Summary ===")
	assert.Contains(t, out.String(), "  Average: 75.0/100")
}

func TestDriver_FailureIsIsolated(t *testing.T) {
	auditor := &fakeAuditor{fail: map[pair]bool{
		{"https://a/", models.Mobile}:  true,
		{"https://b/", models.Desktop}: true,
	}}
	reporter := &recordingReporter{}
	var out bytes.Buffer
	d, dir := newDriver(t, auditor, &out, WithErrorReporter(reporter))

	s, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, auditor.calls, 4, "a failure must not skip later pairs")
	require.Len(t, s.Results, 2)
	assert.Equal(t, pair{"https://a/", models.Desktop}, pair{s.Results[0].URL, s.Results[0].Device})
	assert.Equal(t, pair{"https://b/", models.Mobile}, pair{s.Results[1].URL, s.Results[1].Device})

	require.Len(t, reporter.errs, 2)
	assert.Equal(t, "https://a/", reporter.errs[0]["url"])
	assert.Equal(t, "mobile", reporter.errs[0]["device"])

	assert.Contains(t, out.String(), "✗ Failed to test https://a/ (Mobile): navigation failed")

	md, err := os.ReadFile(filepath.Join(dir, "lighthouse-results.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "| a/ | 90.0 | 0.0 |")
	assert.Contains(t, string(md), "| b/ | 0.0 | 60.0 |")
}

func TestDriver_AllFailStillPersists(t *testing.T) {
	auditor := &fakeAuditor{fail: map[pair]bool{
		{"https://a/", models.Desktop}: true,
		{"https://a/", models.Mobile}:  true,
		{"https://b/", models.Desktop}: true,
		{"https://b/", models.Mobile}:  true,
	}}
	d, dir := newDriver(t, auditor, io.Discard)

	s, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.Results)

	data, err := os.ReadFile(filepath.Join(dir, "lighthouse-results.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDriver_PersistenceFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	d := NewDriver(&fakeAuditor{}, Options{
		URLs:        []string{"https://a/"},
		OutputDir:   blocker,
		ArchiveName: "r.json",
		ReportName:  "r.md",
	}, console.New(io.Discard), quietLogger())

	_, err := d.Run(context.Background())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, blocker, perr.Path)
}

func TestDriver_Publishers(t *testing.T) {
	first := &recordingPublisher{name: "first"}
	second := &recordingPublisher{name: "second"}
	d, _ := newDriver(t, &fakeAuditor{}, io.Discard, WithPublishers(first, second))

	s, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, first.got, 1)
	require.Len(t, second.got, 1)
	a := first.got[0]
	assert.Equal(t, s.ID, a.SessionID)
	assert.Equal(t, s.ArchivePath, a.ArchivePath)
	assert.Equal(t, report.Render(s.Results, fixedNow), string(a.Report))
}

func TestDriver_PublisherFailureIsFatal(t *testing.T) {
	failing := &recordingPublisher{name: "s3", err: errors.New("access denied")}
	after := &recordingPublisher{name: "metrics"}
	d, _ := newDriver(t, &fakeAuditor{}, io.Discard, WithPublishers(failing, after))

	_, err := d.Run(context.Background())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "s3", perr.Path)
	assert.Empty(t, after.got)
}

func TestDriver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	auditor := &fakeAuditor{}
	d, _ := newDriver(t, auditor, io.Discard)

	_, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, auditor.calls)
}

// interruptingAuditor cancels the session context while running the
// given call, the way SIGINT lands mid-audit.
type interruptingAuditor struct {
	fakeAuditor
	cancel  context.CancelFunc
	onCall  int
	succeed bool
}

func (a *interruptingAuditor) Run(ctx context.Context, url string, device models.Device) (models.TestResult, error) {
	r, err := a.fakeAuditor.Run(ctx, url, device)
	if len(a.calls) != a.onCall {
		return r, err
	}
	a.cancel()
	if a.succeed {
		return r, err
	}
	return models.TestResult{}, errors.Join(errors.New("lighthouse failed"), ctx.Err())
}

func TestDriver_CancelledDuringLastPair(t *testing.T) {
	for name, succeed := range map[string]bool{"audit fails": false, "audit completes": true} {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			auditor := &interruptingAuditor{cancel: cancel, onCall: 4, succeed: succeed}
			reporter := &recordingReporter{}
			publisher := &recordingPublisher{name: "s3"}
			d, dir := newDriver(t, auditor, io.Discard, WithErrorReporter(reporter), WithPublishers(publisher))

			s, err := d.Run(ctx)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Nil(t, s)
			assert.Len(t, auditor.calls, 4)
			assert.Empty(t, reporter.errs)
			assert.Empty(t, publisher.got)

			assert.NoFileExists(t, filepath.Join(dir, "lighthouse-results.json"))
			assert.NoFileExists(t, filepath.Join(dir, "lighthouse-results.md"))
		})
	}
}

func TestDriver_CancelledMidSessionStopsMatrix(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auditor := &interruptingAuditor{cancel: cancel, onCall: 2}
	reporter := &recordingReporter{}
	d, dir := newDriver(t, auditor, io.Discard, WithErrorReporter(reporter))

	_, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, auditor.calls, 2)
	assert.Empty(t, reporter.errs)
	assert.NoFileExists(t, filepath.Join(dir, "lighthouse-results.json"))
}

type fakeUploader struct {
	key     string
	entries map[string]string
}

func (f *fakeUploader) UploadFile(ctx context.Context, key, filePath string) error {
	f.key = key
	f.entries = map[string]string{}
	for _, name := range []string{"lighthouse-results.json", "lighthouse-results.md"} {
		data, _, err := utils.ReadZipEntry(filePath, name)
		if err != nil {
			return err
		}
		f.entries[name] = string(data)
	}
	return nil
}

func TestS3Publisher(t *testing.T) {
	uploader := &fakeUploader{}
	d, _ := newDriver(t, &fakeAuditor{}, io.Discard, WithPublishers(NewS3Publisher(uploader, quietLogger())))

	s, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "results/"+s.ID+"/result.zip", uploader.key)
	assert.Equal(t, report.Render(s.Results, fixedNow), uploader.entries["lighthouse-results.md"])
	_, err = os.Stat(filepath.Join(os.TempDir(), s.ID+".zip"))
	assert.True(t, os.IsNotExist(err), "temporary zip must be removed")
}

type fakeConfigMapWriter struct {
	session string
	report  string
}

func (f *fakeConfigMapWriter) Publish(ctx context.Context, sessionID string, report, archive []byte) error {
	f.session = sessionID
	f.report = string(report)
	return nil
}

func TestConfigMapAndMetricsPublishers(t *testing.T) {
	writer := &fakeConfigMapWriter{}
	promPath := filepath.Join(t.TempDir(), "lighthouse.prom")
	d, _ := newDriver(t, &fakeAuditor{}, io.Discard, WithPublishers(
		NewConfigMapPublisher(writer),
		NewMetricsPublisher(promPath),
	))

	s, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, s.ID, writer.session)
	assert.Contains(t, writer.report, "# Lighthouse Performance Test Results")

	prom, err := os.ReadFile(promPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "lighthouse_session_results 4")
}
