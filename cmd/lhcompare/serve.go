package main

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shyim/lighthouse-compare/internal/config"
	"github.com/shyim/lighthouse-compare/internal/handler"
	"github.com/shyim/lighthouse-compare/internal/storage"
	"github.com/shyim/lighthouse-compare/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve published sessions from object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}
			logger := cfg.Logger()
			ctx := cmd.Context()

			tel, err := telemetry.Setup(ctx, cfg.Telemetry)
			if err != nil {
				return err
			}
			defer tel.Shutdown(ctx)

			storageService, err := storage.NewService(ctx, cfg.S3)
			if err != nil {
				return err
			}

			h := handler.NewHandler(storageService, filepath.Join(os.TempDir(), "lighthouse-cache"), cfg.Output.ReportName, cfg.AuthToken, logger)

			mux := http.NewServeMux()
			h.Routes(mux)

			// Logger -> Recoverer -> Auth -> Mux
			var finalHandler http.Handler = h.AuthMiddleware(mux)
			finalHandler = recoverMiddleware(logger, finalHandler)
			finalHandler = loggingMiddleware(logger, finalHandler)

			logger.WithField("port", cfg.Port).Info("Server starting")
			return http.ListenAndServe(":"+cfg.Port, otelhttp.NewHandler(finalHandler, "lhcompare"))
		},
	}
}

func loggingMiddleware(logger *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Info("Request completed")
	})
}

func recoverMiddleware(logger *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithField("panic", err).Error("Recovered from panic")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
