// Package audit runs lighthouse against one (url, device) pair and
// turns the report into a models.TestResult.
package audit

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shyim/lighthouse-compare/internal/models"
)

// ErrIncompleteReport is returned when the engine's report lacks the
// performance score or one of the extracted audits.
var ErrIncompleteReport = errors.New("incomplete lighthouse report")

// Failure is an audit that could not complete for one pair. It only
// affects that pair.
type Failure struct {
	URL    string
	Device models.Device
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("audit %s (%s): %v", f.URL, f.Device, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

type Runner struct {
	engine Engine
	logger *logrus.Logger
	tracer trace.Tracer
}

func NewRunner(engine Engine, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		engine: engine,
		logger: logger,
		tracer: otel.Tracer("github.com/shyim/lighthouse-compare/internal/audit"),
	}
}

// Run audits url under the device's profile. Any error is a *Failure.
func (r *Runner) Run(ctx context.Context, url string, device models.Device) (models.TestResult, error) {
	ctx, span := r.tracer.Start(ctx, "audit.run", trace.WithAttributes(
		attribute.String("audit.url", url),
		attribute.String("audit.device", string(device)),
	))
	defer span.End()

	res, err := r.run(ctx, url, device)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.TestResult{}, &Failure{URL: url, Device: device, Err: err}
	}

	span.SetAttributes(attribute.Float64("audit.score", res.Score))
	return res, nil
}

func (r *Runner) run(ctx context.Context, url string, device models.Device) (models.TestResult, error) {
	profile, err := ProfileFor(device)
	if err != nil {
		return models.TestResult{}, err
	}

	lhr, err := r.engine.Audit(ctx, url, profile)
	if err != nil {
		return models.TestResult{}, err
	}

	r.logger.WithFields(logrus.Fields{
		"url":       url,
		"device":    device,
		"final_url": lhr.FinalURL,
	}).Debug("Lighthouse report received")

	return normalize(url, device, lhr)
}

func normalize(url string, device models.Device, lhr *models.LighthouseReport) (models.TestResult, error) {
	if lhr == nil || lhr.Categories.Performance == nil || lhr.Categories.Performance.Score == nil {
		return models.TestResult{}, errors.Wrap(ErrIncompleteReport, "missing performance score")
	}

	var missing []string
	value := func(key string) float64 {
		a, ok := lhr.Audits[key]
		if !ok || a == nil || a.NumericValue == nil {
			missing = append(missing, key)
			return 0
		}
		return *a.NumericValue
	}

	m := models.Metrics{
		FirstContentfulPaint:   value(models.AuditFirstContentfulPaint),
		SpeedIndex:             value(models.AuditSpeedIndex),
		LargestContentfulPaint: value(models.AuditLargestContentfulPaint),
		TimeToInteractive:      value(models.AuditInteractive),
		TotalBlockingTime:      value(models.AuditTotalBlockingTime),
		CumulativeLayoutShift:  value(models.AuditCumulativeLayoutShift),
	}
	if len(missing) > 0 {
		return models.TestResult{}, errors.Wrapf(ErrIncompleteReport, "missing audits %v", missing)
	}

	return models.TestResult{
		URL:     url,
		Device:  device,
		Score:   *lhr.Categories.Performance.Score * 100,
		Metrics: m,
	}, nil
}
