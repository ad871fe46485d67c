package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shyim/lighthouse-compare/internal/audit"
	"github.com/shyim/lighthouse-compare/internal/cleanup"
	"github.com/shyim/lighthouse-compare/internal/config"
	"github.com/shyim/lighthouse-compare/internal/console"
	"github.com/shyim/lighthouse-compare/internal/kube"
	"github.com/shyim/lighthouse-compare/internal/session"
	"github.com/shyim/lighthouse-compare/internal/storage"
	"github.com/shyim/lighthouse-compare/internal/telemetry"
)

var envFiles = []string{".env", ".env.local"}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Audit every configured URL on desktop and mobile and write the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			logger := cfg.Logger()
			warnIncomparable(cfg, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tel, err := telemetry.Setup(ctx, cfg.Telemetry)
			if err != nil {
				return err
			}
			defer func() {
				if err := tel.Shutdown(context.Background()); err != nil {
					logger.WithError(err).Warn("Failed to flush telemetry")
				}
			}()

			if cfg.Publish.CleanupChrome {
				if n := cleanup.ChromiumTempDirs(os.TempDir(), cleanup.DefaultMaxAge, time.Now(), logger); n > 0 {
					logger.WithField("removed", n).Info("Removed stale chromium temp directories")
				}
			}

			engine, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}

			publishers, err := newPublishers(ctx, cfg, logger)
			if err != nil {
				return err
			}

			driver := session.NewDriver(
				audit.NewRunner(engine, logger),
				session.Options{
					URLs:        cfg.URLs,
					OutputDir:   cfg.Output.Dir,
					ArchiveName: cfg.Output.ArchiveName,
					ReportName:  cfg.Output.ReportName,
				},
				console.New(cmd.OutOrStdout()),
				logger,
				session.WithErrorReporter(tel),
				session.WithPublishers(publishers...),
			)

			s, err := driver.Run(ctx)
			if err != nil {
				tel.CaptureError(err, map[string]string{"phase": "persist"})
				return err
			}

			logger.WithFields(logrus.Fields{
				"session": s.ID,
				"results": len(s.Results),
			}).Info("Session finished")
			return nil
		},
	}
}

func warnIncomparable(cfg *config.Configuration, logger logrus.FieldLogger) {
	if !cfg.Comparable() {
		logger.WithField("urls", len(cfg.URLs)).Warn("LHC_URLS does not hold exactly two urls, the site comparison will be omitted from the report")
	}
}

func newEngine(cfg *config.Configuration, logger *logrus.Logger) (audit.Engine, error) {
	if cfg.Engine.Kind == "docker" {
		return audit.NewDockerEngine(cfg.Engine.DockerImage, logger)
	}
	return &audit.LocalEngine{
		NodeBin:       cfg.Engine.NodeBin,
		LighthouseBin: cfg.Engine.LighthouseBin,
		ChromePath:    cfg.Engine.ChromePath,
		NoSandbox:     cfg.Engine.NoSandbox,
		Logger:        logger,
	}, nil
}

func newPublishers(ctx context.Context, cfg *config.Configuration, logger *logrus.Logger) ([]session.Publisher, error) {
	var publishers []session.Publisher

	if cfg.Publish.S3 {
		svc, err := storage.NewService(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, session.NewS3Publisher(svc, logger))
	}

	if cfg.Publish.ConfigMap != "" {
		p, err := kube.NewInClusterPublisher(cfg.Publish.Namespace, cfg.Publish.ConfigMap)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, session.NewConfigMapPublisher(p))
	}

	if cfg.Publish.MetricsFile != "" {
		publishers = append(publishers, session.NewMetricsPublisher(cfg.Publish.MetricsFile))
	}

	return publishers, nil
}
