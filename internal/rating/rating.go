// Package rating maps metric values to Core Web Vitals tiers.
//
// The thresholds are fixed so that reports from different sessions
// stay comparable.
package rating

type Tier int

const (
	Good Tier = iota
	NeedsImprovement
	Poor
)

func (t Tier) String() string {
	switch t {
	case Good:
		return "Good"
	case NeedsImprovement:
		return "Needs Improvement"
	}
	return "Poor"
}

func (t Tier) Glyph() string {
	switch t {
	case Good:
		return "🟢"
	case NeedsImprovement:
		return "🟡"
	}
	return "🔴"
}

// Label is the rating cell text, e.g. "🟢 Good".
func (t Tier) Label() string {
	return t.Glyph() + " " + t.String()
}

// LCP rates a Largest Contentful Paint given in milliseconds.
func LCP(ms float64) Tier {
	s := ms / 1000
	switch {
	case s <= 2.5:
		return Good
	case s <= 4.0:
		return NeedsImprovement
	}
	return Poor
}

// CLS rates a Cumulative Layout Shift ratio.
func CLS(v float64) Tier {
	switch {
	case v <= 0.1:
		return Good
	case v <= 0.25:
		return NeedsImprovement
	}
	return Poor
}

// TBT rates a Total Blocking Time given in milliseconds.
func TBT(ms float64) Tier {
	switch {
	case ms <= 200:
		return Good
	case ms <= 600:
		return NeedsImprovement
	}
	return Poor
}

// ScoreTier is the presentation bucket for an overall 0-100 score.
type ScoreTier int

const (
	Excellent ScoreTier = iota
	ScoreNeedsImprovement
	ScorePoor
)

func Overall(score float64) ScoreTier {
	switch {
	case score >= 90:
		return Excellent
	case score >= 50:
		return ScoreNeedsImprovement
	}
	return ScorePoor
}

func (t ScoreTier) String() string {
	switch t {
	case Excellent:
		return "Excellent"
	case ScoreNeedsImprovement:
		return "Needs Improvement"
	}
	return "Poor"
}

func (t ScoreTier) Glyph() string {
	switch t {
	case Excellent:
		return "🟢"
	case ScoreNeedsImprovement:
		return "🟡"
	}
	return "🔴"
}
