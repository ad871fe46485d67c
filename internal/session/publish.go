package session

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/shyim/lighthouse-compare/internal/metrics"
	"github.com/shyim/lighthouse-compare/internal/models"
	"github.com/shyim/lighthouse-compare/internal/storage"
	"github.com/shyim/lighthouse-compare/internal/utils"
)

// Artifacts are the persisted outputs of one session.
type Artifacts struct {
	SessionID   string
	Results     []models.TestResult
	ArchivePath string
	ReportPath  string
	Archive     []byte
	Report      []byte
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, a Artifacts) error
}

type Uploader interface {
	UploadFile(ctx context.Context, key, filePath string) error
}

// S3Publisher uploads the archive and report as results/<session>/result.zip.
type S3Publisher struct {
	uploader Uploader
	logger   *logrus.Logger
}

func NewS3Publisher(uploader Uploader, logger *logrus.Logger) *S3Publisher {
	return &S3Publisher{uploader: uploader, logger: logger}
}

func (p *S3Publisher) Name() string { return "s3" }

func (p *S3Publisher) Publish(ctx context.Context, a Artifacts) error {
	zipPath := filepath.Join(os.TempDir(), a.SessionID+".zip")
	os.Remove(zipPath)
	defer os.Remove(zipPath)

	if err := utils.ZipFiles(zipPath, a.ArchivePath, a.ReportPath); err != nil {
		return errors.Wrap(err, "failed to create zip")
	}

	if info, err := os.Stat(zipPath); err == nil {
		p.logger.WithFields(logrus.Fields{
			"session": a.SessionID,
			"size":    humanize.Bytes(uint64(info.Size())),
		}).Debug("Uploading session zip")
	}

	return p.uploader.UploadFile(ctx, storage.SessionKey(a.SessionID, "result.zip"), zipPath)
}

type ConfigMapWriter interface {
	Publish(ctx context.Context, sessionID string, report, archive []byte) error
}

// ConfigMapPublisher stores the report and archive in a ConfigMap.
type ConfigMapPublisher struct {
	writer ConfigMapWriter
}

func NewConfigMapPublisher(w ConfigMapWriter) *ConfigMapPublisher {
	return &ConfigMapPublisher{writer: w}
}

func (p *ConfigMapPublisher) Name() string { return "configmap" }

func (p *ConfigMapPublisher) Publish(ctx context.Context, a Artifacts) error {
	return p.writer.Publish(ctx, a.SessionID, a.Report, a.Archive)
}

// MetricsPublisher writes the session gauges to a Prometheus textfile.
type MetricsPublisher struct {
	path string
}

func NewMetricsPublisher(path string) *MetricsPublisher {
	return &MetricsPublisher{path: path}
}

func (p *MetricsPublisher) Name() string { return "metrics" }

func (p *MetricsPublisher) Publish(ctx context.Context, a Artifacts) error {
	return metrics.WriteTextfile(p.path, a.Results)
}
