// Package console prints session progress and the final summary for
// humans. The output is not meant to be parsed.
package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/shyim/lighthouse-compare/internal/models"
	"github.com/shyim/lighthouse-compare/internal/results"
)

var (
	success = lipgloss.Color("78")
	failure = lipgloss.Color("196")
	accent  = lipgloss.Color("63")
	subtle  = lipgloss.Color("245")
)

type Console struct {
	w       io.Writer
	ok      lipgloss.Style
	fail    lipgloss.Style
	heading lipgloss.Style
	dim     lipgloss.Style
}

// New styles output for w. Color is dropped when w is not a terminal.
func New(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:       w,
		ok:      r.NewStyle().Foreground(success),
		fail:    r.NewStyle().Foreground(failure),
		heading: r.NewStyle().Foreground(accent).Bold(true),
		dim:     r.NewStyle().Foreground(subtle),
	}
}

func (c *Console) Start() {
	fmt.Fprintln(c.w, c.heading.Render("Starting Lighthouse performance tests..."))
	fmt.Fprintln(c.w)
}

func (c *Console) Testing(url string, device models.Device) {
	fmt.Fprintf(c.w, "Testing: %s (%s)\n", url, device.Title())
}

func (c *Console) Passed(r models.TestResult) {
	fmt.Fprintln(c.w, c.ok.Render(fmt.Sprintf("✓ %s Performance Score: %.1f/100", r.Device.Title(), r.Score)))
	fmt.Fprintln(c.w)
}

func (c *Console) Failed(url string, device models.Device, err error) {
	fmt.Fprintln(c.w, c.fail.Render(fmt.Sprintf("✗ Failed to test %s (%s): %v", url, device.Title(), err)))
}

func (c *Console) Saved(what, path string) {
	fmt.Fprintln(c.w, c.dim.Render(fmt.Sprintf("%s saved to: %s", what, path)))
}

// Summary prints each URL's device scores and their average, counting a
// missing run as 0.
func (c *Console) Summary(res []models.TestResult) {
	g := results.GroupByURLThenDevice(res)

	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.heading.Render("=== Summary ==="))
	for _, url := range g.URLs {
		fmt.Fprintf(c.w, "\n%s\n", url)
		fmt.Fprintf(c.w, "  Desktop: %.1f/100\n", g.Score(url, models.Desktop))
		fmt.Fprintf(c.w, "  Mobile:  %.1f/100\n", g.Score(url, models.Mobile))
		fmt.Fprintf(c.w, "  Average: %.1f/100\n", g.AverageScore(url))
	}
}
