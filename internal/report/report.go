// Package report renders audit results into the markdown comparison
// report and the JSON result archive.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shyim/lighthouse-compare/internal/models"
	"github.com/shyim/lighthouse-compare/internal/rating"
	"github.com/shyim/lighthouse-compare/internal/results"
)

// TimestampLayout is the layout of the "Test Date" line.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

type metricUnit int

const (
	unitSeconds metricUnit = iota
	unitMillis
	unitRatio
)

type comparedMetric struct {
	name  string
	unit  metricUnit
	value func(models.Metrics) float64
}

// All six metrics are lower-is-better.
var comparedMetrics = []comparedMetric{
	{"First Contentful Paint", unitSeconds, func(m models.Metrics) float64 { return m.FirstContentfulPaint }},
	{"Speed Index", unitSeconds, func(m models.Metrics) float64 { return m.SpeedIndex }},
	{"Largest Contentful Paint", unitSeconds, func(m models.Metrics) float64 { return m.LargestContentfulPaint }},
	{"Time to Interactive", unitSeconds, func(m models.Metrics) float64 { return m.TimeToInteractive }},
	{"Total Blocking Time", unitMillis, func(m models.Metrics) float64 { return m.TotalBlockingTime }},
	{"Cumulative Layout Shift", unitRatio, func(m models.Metrics) float64 { return m.CumulativeLayoutShift }},
}

// Render builds the markdown report. The output depends only on the
// result sequence and the timestamp.
func Render(res []models.TestResult, at time.Time) string {
	var b bytes.Buffer
	g := results.GroupByURLThenDevice(res)

	b.WriteString("# Lighthouse Performance Test Results\n\n")
	b.WriteString(fmt.Sprintf("**Test Date:** %s\n\n", at.Format(TimestampLayout)))
	b.WriteString("---\n\n")

	writeScoreTable(&b, g)

	for _, url := range g.URLs {
		writeURLSection(&b, g, url)
	}

	if site1, site2, ok := g.Pair(); ok {
		writeSiteComparison(&b, g, site1, site2)
	}

	return b.String()
}

func writeScoreTable(b *bytes.Buffer, g *results.ByURL) {
	b.WriteString("## Performance Score Comparison\n\n")
	b.WriteString("| URL | Desktop Score | Mobile Score |\n")
	b.WriteString("|-----|--------------|--------------|")

	for _, url := range g.URLs {
		b.WriteString(fmt.Sprintf("\n| %s | %.1f | %.1f |",
			displayURL(url),
			g.Score(url, models.Desktop),
			g.Score(url, models.Mobile),
		))
	}

	if site1, site2, ok := g.Pair(); ok {
		desktopDiff := g.Score(site2, models.Desktop) - g.Score(site1, models.Desktop)
		mobileDiff := g.Score(site2, models.Mobile) - g.Score(site1, models.Mobile)
		b.WriteString(fmt.Sprintf("\n| **Improvement (Site 2 - Site 1)** | **%s** | **%s** |",
			formatDiff(desktopDiff), formatDiff(mobileDiff)))
	}

	b.WriteString("\n\n---\n\n")
}

func writeURLSection(b *bytes.Buffer, g *results.ByURL, url string) {
	b.WriteString(fmt.Sprintf("## %s\n\n", url))

	for _, device := range models.Devices {
		r, ok := g.Get(url, device)
		if !ok {
			continue
		}
		writeDeviceSection(b, r)
	}

	b.WriteString("---\n\n")
}

func writeDeviceSection(b *bytes.Buffer, r models.TestResult) {
	m := r.Metrics
	tier := rating.Overall(r.Score)

	b.WriteString(fmt.Sprintf("### %s\n\n", r.Device.Title()))
	b.WriteString(fmt.Sprintf("**Performance Score:** %.1f/100\n\n", r.Score))
	b.WriteString(fmt.Sprintf("%s %s\n\n", tier.Glyph(), tier))

	b.WriteString("#### Core Web Vitals\n\n")
	b.WriteString("| Metric | Value | Rating |\n")
	b.WriteString("|--------|-------|--------|\n")
	b.WriteString(fmt.Sprintf("| Largest Contentful Paint (LCP) | %s | %s |\n",
		formatMetric(m.LargestContentfulPaint, unitSeconds), rating.LCP(m.LargestContentfulPaint).Label()))
	b.WriteString(fmt.Sprintf("| Cumulative Layout Shift (CLS) | %s | %s |\n",
		formatMetric(m.CumulativeLayoutShift, unitRatio), rating.CLS(m.CumulativeLayoutShift).Label()))
	b.WriteString(fmt.Sprintf("| Total Blocking Time (TBT) | %s | %s |\n",
		formatMetric(m.TotalBlockingTime, unitMillis), rating.TBT(m.TotalBlockingTime).Label()))

	b.WriteString("\n#### Additional Metrics\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	b.WriteString(fmt.Sprintf("| First Contentful Paint (FCP) | %s |\n", formatMetric(m.FirstContentfulPaint, unitSeconds)))
	b.WriteString(fmt.Sprintf("| Speed Index | %s |\n", formatMetric(m.SpeedIndex, unitSeconds)))
	b.WriteString(fmt.Sprintf("| Time to Interactive (TTI) | %s |\n\n", formatMetric(m.TimeToInteractive, unitSeconds)))
}

func writeSiteComparison(b *bytes.Buffer, g *results.ByURL, site1, site2 string) {
	b.WriteString("## Site Comparison\n\n")

	avg1 := g.AverageScore(site1)
	avg2 := g.AverageScore(site2)

	better, worse := site2, site1
	if avg1 > avg2 {
		better, worse = site1, site2
	}

	b.WriteString(fmt.Sprintf("**%s** performs better with an average score of **%.1f** compared to **%s** with **%.1f**.\n\n",
		better, math.Max(avg1, avg2), worse, math.Min(avg1, avg2)))
	b.WriteString(fmt.Sprintf("**Difference:** %.1f points\n\n", math.Abs(avg1-avg2)))

	b.WriteString("### Detailed Comparison (Desktop)\n\n")
	b.WriteString(fmt.Sprintf("| Metric | %s | %s | Winner |\n", displayURL(site1), displayURL(site2)))
	b.WriteString("|--------|---------|---------|--------|\n")

	// A missing desktop run compares as all-zero metrics.
	d1, _ := g.Get(site1, models.Desktop)
	d2, _ := g.Get(site2, models.Desktop)

	for _, cm := range comparedMetrics {
		v1 := cm.value(d1.Metrics)
		v2 := cm.value(d2.Metrics)
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			cm.name, formatMetric(v1, cm.unit), formatMetric(v2, cm.unit), winner(v1, v2)))
	}

	b.WriteString("\n")
}

func winner(v1, v2 float64) string {
	switch {
	case v1 < v2:
		return "🏆 Site 1"
	case v1 > v2:
		return "🏆 Site 2"
	}
	return "🤝 Tie"
}

func formatMetric(v float64, unit metricUnit) string {
	switch unit {
	case unitMillis:
		return fmt.Sprintf("%.0fms", v)
	case unitRatio:
		return fmt.Sprintf("%.3f", v)
	}
	return fmt.Sprintf("%.2fs", v/1000)
}

func formatDiff(diff float64) string {
	if diff >= 0 {
		return fmt.Sprintf("+%.1f", diff)
	}
	return fmt.Sprintf("%.1f", diff)
}

func displayURL(url string) string {
	return strings.Replace(url, "https://", "", 1)
}
