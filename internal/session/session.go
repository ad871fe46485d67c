// Package session drives one audit session: every configured URL under
// every device profile, then the archive, the report and publishing.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shyim/lighthouse-compare/internal/console"
	"github.com/shyim/lighthouse-compare/internal/models"
	"github.com/shyim/lighthouse-compare/internal/report"
	"github.com/shyim/lighthouse-compare/internal/results"
)

// Auditor runs one audit. *audit.Runner implements it.
type Auditor interface {
	Run(ctx context.Context, url string, device models.Device) (models.TestResult, error)
}

// ErrorReporter forwards audit failures to an error tracker.
type ErrorReporter interface {
	CaptureError(err error, tags map[string]string)
}

// PersistenceError is a failed write of a session artifact. It ends the
// session.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type Options struct {
	URLs        []string
	OutputDir   string
	ArchiveName string
	ReportName  string
}

type Session struct {
	ID          string
	Results     []models.TestResult
	ArchivePath string
	ReportPath  string
}

type Driver struct {
	auditor    Auditor
	opts       Options
	console    *console.Console
	logger     *logrus.Logger
	reporter   ErrorReporter
	publishers []Publisher
	tracer     trace.Tracer
	now        func() time.Time
}

type Option func(*Driver)

func WithPublishers(p ...Publisher) Option {
	return func(d *Driver) { d.publishers = append(d.publishers, p...) }
}

func WithErrorReporter(r ErrorReporter) Option {
	return func(d *Driver) { d.reporter = r }
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func NewDriver(auditor Auditor, opts Options, out *console.Console, logger *logrus.Logger, options ...Option) *Driver {
	d := &Driver{
		auditor: auditor,
		opts:    opts,
		console: out,
		logger:  logger,
		tracer:  otel.Tracer("github.com/shyim/lighthouse-compare/internal/session"),
		now:     time.Now,
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// Run audits the URL x device matrix one pair at a time. Audit failures
// are logged and skipped; any persistence failure aborts the session.
func (d *Driver) Run(ctx context.Context) (*Session, error) {
	s := &Session{
		ID:          uuid.NewString(),
		ArchivePath: filepath.Join(d.opts.OutputDir, d.opts.ArchiveName),
		ReportPath:  filepath.Join(d.opts.OutputDir, d.opts.ReportName),
	}
	log := d.logger.WithField("session", s.ID)

	ctx, span := d.tracer.Start(ctx, "session.run", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.StringSlice("session.urls", d.opts.URLs),
	))
	defer span.End()

	d.console.Start()
	store := results.NewStore()

	for _, url := range d.opts.URLs {
		for _, device := range models.Devices {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			d.console.Testing(url, device)
			r, err := d.auditor.Run(ctx, url, device)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					log.WithError(err).WithFields(logrus.Fields{"url": url, "device": device}).Warn("Session interrupted")
					return nil, ctxErr
				}
				log.WithError(err).WithFields(logrus.Fields{"url": url, "device": device}).Error("Audit failed")
				d.console.Failed(url, device, engineError(err))
				if d.reporter != nil && !errors.Is(err, context.Canceled) {
					d.reporter.CaptureError(err, map[string]string{"url": url, "device": string(device), "session": s.ID})
				}
				continue
			}

			store.Append(r)
			log.WithFields(logrus.Fields{"url": url, "device": device, "score": r.Score}).Info("Audit completed")
			d.console.Passed(r)
		}
	}

	// An interrupt during the last pair must not leave a partial session behind.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.Results = store.All()
	span.SetAttributes(attribute.Int("session.results", len(s.Results)))

	art, err := d.persist(s)
	if err != nil {
		return nil, err
	}

	for _, p := range d.publishers {
		if err := p.Publish(ctx, art); err != nil {
			return nil, &PersistenceError{Path: p.Name(), Err: err}
		}
		log.WithField("publisher", p.Name()).Info("Session published")
	}

	d.console.Summary(s.Results)
	return s, nil
}

func (d *Driver) persist(s *Session) (Artifacts, error) {
	if err := os.MkdirAll(d.opts.OutputDir, 0o755); err != nil {
		return Artifacts{}, &PersistenceError{Path: d.opts.OutputDir, Err: err}
	}

	archive, err := report.EncodeArchive(s.Results)
	if err != nil {
		return Artifacts{}, &PersistenceError{Path: s.ArchivePath, Err: err}
	}
	if err := os.WriteFile(s.ArchivePath, archive, 0o644); err != nil {
		return Artifacts{}, &PersistenceError{Path: s.ArchivePath, Err: err}
	}
	d.console.Saved("Results", s.ArchivePath)

	md := []byte(report.Render(s.Results, d.now()))
	if err := os.WriteFile(s.ReportPath, md, 0o644); err != nil {
		return Artifacts{}, &PersistenceError{Path: s.ReportPath, Err: err}
	}
	d.console.Saved("Markdown report", s.ReportPath)

	return Artifacts{
		SessionID:   s.ID,
		Results:     s.Results,
		ArchivePath: s.ArchivePath,
		ReportPath:  s.ReportPath,
		Archive:     archive,
		Report:      md,
	}, nil
}

// engineError strips the per-pair wrapper so console lines do not repeat
// the url and device.
func engineError(err error) error {
	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}
	return err
}
