package models

import "fmt"

type Device string

const (
	Desktop Device = "desktop"
	Mobile  Device = "mobile"
)

// Devices lists the audited device profiles in report order.
var Devices = []Device{Desktop, Mobile}

// Title returns the capitalized device name used in headings.
func (d Device) Title() string {
	switch d {
	case Desktop:
		return "Desktop"
	case Mobile:
		return "Mobile"
	}
	return string(d)
}

func ParseDevice(s string) (Device, error) {
	switch Device(s) {
	case Desktop, Mobile:
		return Device(s), nil
	}
	return "", fmt.Errorf("unknown device %q", s)
}

// TestResult is one successful audit run for a (url, device) pair.
type TestResult struct {
	URL     string  `json:"url"`
	Device  Device  `json:"device"`
	Score   float64 `json:"score"`
	Metrics Metrics `json:"metrics"`
}

type Metrics struct {
	FirstContentfulPaint   float64 `json:"firstContentfulPaint"`
	SpeedIndex             float64 `json:"speedIndex"`
	LargestContentfulPaint float64 `json:"largestContentfulPaint"`
	TimeToInteractive      float64 `json:"timeToInteractive"`
	TotalBlockingTime      float64 `json:"totalBlockingTime"`
	CumulativeLayoutShift  float64 `json:"cumulativeLayoutShift"`
}

// Lighthouse report (LHR) data models

type LighthouseReport struct {
	RequestedURL string                 `json:"requestedUrl"`
	FinalURL     string                 `json:"finalUrl"`
	Categories   Categories             `json:"categories"`
	Audits       map[string]*AuditEntry `json:"audits"`
	RuntimeError *RuntimeError          `json:"runtimeError,omitempty"`
}

type Categories struct {
	Performance *Category `json:"performance"`
}

type Category struct {
	// Score is nil when lighthouse could not compute it.
	Score *float64 `json:"score"`
}

type AuditEntry struct {
	ID           string   `json:"id"`
	NumericValue *float64 `json:"numericValue"`
}

type RuntimeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Audit keys extracted into Metrics.
const (
	AuditFirstContentfulPaint   = "first-contentful-paint"
	AuditSpeedIndex             = "speed-index"
	AuditLargestContentfulPaint = "largest-contentful-paint"
	AuditInteractive            = "interactive"
	AuditTotalBlockingTime      = "total-blocking-time"
	AuditCumulativeLayoutShift  = "cumulative-layout-shift"
)

type ErrorResponse struct {
	Error   string  `json:"error"`
	Details *string `json:"details,omitempty"`
}
