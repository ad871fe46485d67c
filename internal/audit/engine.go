package audit

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/shyim/lighthouse-compare/internal/models"
)

// Engine audits one URL under one device profile and returns the raw
// lighthouse report.
type Engine interface {
	Audit(ctx context.Context, url string, p Profile) (*models.LighthouseReport, error)
}

// EngineFunc adapts a plain function to Engine.
type EngineFunc func(ctx context.Context, url string, p Profile) (*models.LighthouseReport, error)

func (f EngineFunc) Audit(ctx context.Context, url string, p Profile) (*models.LighthouseReport, error) {
	return f(ctx, url, p)
}

func parseReport(data []byte) (*models.LighthouseReport, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("lighthouse produced no output")
	}

	var lhr models.LighthouseReport
	if err := json.Unmarshal(data, &lhr); err != nil {
		return nil, errors.Wrap(err, "failed to parse lighthouse report")
	}
	if lhr.RuntimeError != nil && lhr.RuntimeError.Code != "" {
		return nil, errors.Errorf("lighthouse runtime error %s: %s", lhr.RuntimeError.Code, lhr.RuntimeError.Message)
	}
	return &lhr, nil
}

// tail keeps the last n bytes of engine stderr for error messages.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
