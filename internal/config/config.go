package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type S3Options struct {
	ServiceURL            string `env:"S3_SERVICE_URL"`
	AccessKey             string `env:"S3_ACCESS_KEY"`
	SecretKey             string `env:"S3_SECRET_KEY"`
	BucketName            string `env:"S3_BUCKET_NAME" envDefault:"lighthouse-results"`
	Region                string `env:"S3_REGION" envDefault:"us-east-1"`
	DisablePayloadSigning bool   `env:"S3_DISABLE_PAYLOAD_SIGNING" envDefault:"true"`
}

type EngineOptions struct {
	Kind          string `env:"LHC_ENGINE" envDefault:"local"`
	NodeBin       string `env:"NODE_BIN" envDefault:"node"`
	LighthouseBin string `env:"LIGHTHOUSE_BIN" envDefault:"node_modules/lighthouse/cli/index.js"`
	ChromePath    string `env:"CHROME_PATH"`
	NoSandbox     bool   `env:"CHROME_NO_SANDBOX" envDefault:"false"`
	DockerImage   string `env:"LHC_DOCKER_IMAGE" envDefault:"femtopixel/google-lighthouse:latest"`
}

type OutputOptions struct {
	Dir         string `env:"LHC_OUTPUT_DIR" envDefault:"."`
	ArchiveName string `env:"LHC_ARCHIVE_NAME" envDefault:"lighthouse-results.json"`
	ReportName  string `env:"LHC_REPORT_NAME" envDefault:"lighthouse-results.md"`
}

type PublishOptions struct {
	S3            bool   `env:"LHC_PUBLISH_S3" envDefault:"false"`
	ConfigMap     string `env:"LHC_PUBLISH_CONFIGMAP"`
	Namespace     string `env:"LHC_NAMESPACE"`
	MetricsFile   string `env:"LHC_METRICS_FILE"`
	CleanupChrome bool   `env:"LHC_CLEANUP_CHROME" envDefault:"true"`
}

type TelemetryOptions struct {
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"lighthouse-compare"`
	SentryDSN    string `env:"SENTRY_DSN"`
	Environment  string `env:"SENTRY_ENVIRONMENT" envDefault:"development"`
}

type Configuration struct {
	URLs      []string `env:"LHC_URLS" envSeparator:"," envDefault:"https://cordishleasing.com/,https://cordishleasing.netlify.app/"`
	Engine    EngineOptions
	Output    OutputOptions
	Publish   PublishOptions
	S3        S3Options
	Telemetry TelemetryOptions

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	Port      string `env:"PORT" envDefault:"8080"`
	AuthToken string `env:"AUTH_TOKEN"`
}

// Load reads the optional env files and then the process environment.
func Load(envFiles ...string) (*Configuration, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) Validate() error {
	urls := c.URLs[:0]
	for _, u := range c.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	c.URLs = urls
	if len(c.URLs) == 0 {
		return errors.New("LHC_URLS must contain at least one url")
	}

	switch c.Engine.Kind {
	case "local", "docker":
	default:
		return errors.Errorf("LHC_ENGINE must be 'local' or 'docker', got %q", c.Engine.Kind)
	}

	if c.Publish.S3 && c.S3.BucketName == "" {
		return errors.New("S3_BUCKET_NAME is required when LHC_PUBLISH_S3 is enabled")
	}
	return nil
}

// Comparable reports whether the URL list yields the site comparison
// sections of the report, which need exactly two sites.
func (c *Configuration) Comparable() bool {
	return len(c.URLs) == 2
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Configuration) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return errors.Wrap(godotenv.Load(existing...), "failed to load env files")
}
