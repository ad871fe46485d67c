package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shyim/lighthouse-compare/internal/models"
	"github.com/shyim/lighthouse-compare/internal/storage"
	"github.com/shyim/lighthouse-compare/internal/utils"
)

const defaultReportName = "lighthouse-results.md"

// ObjectStore is the part of storage.Service the handler needs.
type ObjectStore interface {
	DownloadFile(ctx context.Context, key, destinationPath string) error
	DeleteFile(ctx context.Context, key string) error
}

type Handler struct {
	storage    ObjectStore
	cacheDir   string
	reportName string
	authToken  string
	logger     *logrus.Logger
}

// NewHandler serves reportName when a request names no entry. An empty
// reportName falls back to lighthouse-results.md.
func NewHandler(store ObjectStore, cacheDir, reportName, authToken string, logger *logrus.Logger) *Handler {
	if reportName == "" {
		reportName = defaultReportName
	}
	return &Handler{storage: store, cacheDir: cacheDir, reportName: reportName, authToken: authToken, logger: logger}
}

// Routes registers the viewer endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /result/{id}/{path...}", h.HandleGetResult)
	mux.HandleFunc("DELETE /api/result/{id}", h.HandleDeleteResult)
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api") && h.authToken != "" {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") || authHeader[7:] != h.authToken {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// HandleGetResult serves one file out of a published session zip. The zip
// is fetched from object storage once and cached locally.
func (h *Handler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validID(id) {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	path := r.PathValue("path")
	if path == "" {
		path = h.reportName
	}

	zipPath := h.cachePath(id)
	if _, err := os.Stat(zipPath); os.IsNotExist(err) {
		if err := os.MkdirAll(h.cacheDir, 0o755); err != nil {
			renderError(w, "Failed to prepare cache", nil, http.StatusInternalServerError)
			return
		}
		if err := h.storage.DownloadFile(r.Context(), storage.SessionKey(id, "result.zip"), zipPath); err != nil {
			os.Remove(zipPath)
			h.logger.WithError(err).WithField("session", id).Debug("Session not found")
			http.NotFound(w, r)
			return
		}
	}

	data, modified, err := utils.ReadZipEntry(zipPath, path)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType(path))
	w.Header().Set("Cache-Control", "public, max-age=604800")
	w.Header().Set("Last-Modified", modified.UTC().Format(http.TimeFormat))
	w.Write(data)
}

func (h *Handler) HandleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validID(id) {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := h.storage.DeleteFile(r.Context(), storage.SessionKey(id, "result.zip")); err != nil {
		details := err.Error()
		renderError(w, "Failed to delete session", &details, http.StatusInternalServerError)
		return
	}
	os.Remove(h.cachePath(id))

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) cachePath(id string) string {
	return filepath.Join(h.cacheDir, fmt.Sprintf("%s.zip", id))
}

func validID(id string) bool {
	return id != "" && !strings.Contains(id, "..") && !strings.ContainsAny(id, `/\`)
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".json":
		return "application/json"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func renderError(w http.ResponseWriter, msg string, details *string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:   msg,
		Details: details,
	})
}
