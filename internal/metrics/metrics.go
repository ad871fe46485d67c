// Package metrics exports session results in the Prometheus text format,
// for the node_exporter textfile collector.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shyim/lighthouse-compare/internal/models"
)

type collectors struct {
	score   *prometheus.GaugeVec
	metric  *prometheus.GaugeVec
	results prometheus.Gauge
}

func newCollectors(reg prometheus.Registerer) *collectors {
	c := &collectors{
		score: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lighthouse_performance_score",
			Help: "Lighthouse performance score (0-100) of the last session.",
		}, []string{"url", "device"}),
		metric: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lighthouse_metric_value",
			Help: "Lighthouse metric value of the last session. Timings in milliseconds, CLS unitless.",
		}, []string{"url", "device", "metric"}),
		results: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lighthouse_session_results",
			Help: "Number of successful audit runs in the last session.",
		}),
	}
	reg.MustRegister(c.score, c.metric, c.results)
	return c
}

func (c *collectors) observe(res []models.TestResult) {
	for _, r := range res {
		device := string(r.Device)
		c.score.WithLabelValues(r.URL, device).Set(r.Score)

		m := r.Metrics
		for name, v := range map[string]float64{
			"firstContentfulPaint":   m.FirstContentfulPaint,
			"speedIndex":             m.SpeedIndex,
			"largestContentfulPaint": m.LargestContentfulPaint,
			"timeToInteractive":      m.TimeToInteractive,
			"totalBlockingTime":      m.TotalBlockingTime,
			"cumulativeLayoutShift":  m.CumulativeLayoutShift,
		} {
			c.metric.WithLabelValues(r.URL, device, name).Set(v)
		}
	}
	c.results.Set(float64(len(res)))
}

// WriteTextfile writes the session's gauges to path atomically.
func WriteTextfile(path string, res []models.TestResult) error {
	reg := prometheus.NewRegistry()
	newCollectors(reg).observe(res)

	return errors.Wrapf(prometheus.WriteToTextfile(path, reg), "write metrics %s", path)
}
