// Package results holds the session's audit results and groups them
// for reporting.
package results

import (
	"sync"

	"github.com/shyim/lighthouse-compare/internal/models"
)

// Store is the append-only sequence of results gathered in one session.
type Store struct {
	mu      sync.Mutex
	results []models.TestResult
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(r models.TestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

// All returns a copy of the results in insertion order.
func (s *Store) All() []models.TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TestResult, len(s.results))
	copy(out, s.results)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// ByURL is the sparse url -> device -> result lookup. URLs keeps the
// first-seen order of the input sequence.
type ByURL struct {
	URLs    []string
	entries map[string]map[models.Device]models.TestResult
}

// GroupByURLThenDevice indexes results in a single pass. A later result
// for the same (url, device) replaces the earlier one.
func GroupByURLThenDevice(results []models.TestResult) *ByURL {
	g := &ByURL{entries: make(map[string]map[models.Device]models.TestResult)}
	for _, r := range results {
		devices, ok := g.entries[r.URL]
		if !ok {
			devices = make(map[models.Device]models.TestResult)
			g.entries[r.URL] = devices
			g.URLs = append(g.URLs, r.URL)
		}
		devices[r.Device] = r
	}
	return g
}

func (g *ByURL) Get(url string, device models.Device) (models.TestResult, bool) {
	r, ok := g.entries[url][device]
	return r, ok
}

// Score returns the score for the pair, or 0 when no run was recorded.
func (g *ByURL) Score(url string, device models.Device) float64 {
	r, _ := g.Get(url, device)
	return r.Score
}

// AverageScore is the mean of the desktop and mobile scores, counting a
// missing run as 0.
func (g *ByURL) AverageScore(url string) float64 {
	return (g.Score(url, models.Desktop) + g.Score(url, models.Mobile)) / 2
}

// Pair returns the two compared sites when exactly two URLs are present.
func (g *ByURL) Pair() (site1, site2 string, ok bool) {
	if len(g.URLs) != 2 {
		return "", "", false
	}
	return g.URLs[0], g.URLs[1], true
}
