// Package confidence adjusts raw pattern-match confidence using contextual
// evidence. Factors contribute bounded adjustments on top of a pattern's
// base confidence; the scorer clamps each contribution and the final score.
package confidence

import (
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/pattern"
)

// Polarity states whether a factor raises or lowers confidence.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
)

// Input is the evidence a factor detector evaluates. Context is the
// character window around the match; FullText is the whole document.
type Input struct {
	Match    *pattern.Match
	Context  string
	FullText string

	// DomainKeywords are the keywords registered for the match's domain.
	DomainKeywords []string

	// Occurrences is how many times the match value appears in the full
	// text.
	Occurrences int

	// InRelationship reports whether the match value participates in a
	// relationship-category match of the same detection run.
	InRelationship bool
}

// Detector inspects the input and returns a signed confidence adjustment.
// The scorer clamps the returned value to the factor's MaxAdjustment.
type Detector func(in Input) float64

// Factor is one named confidence adjustment rule.
type Factor struct {
	// Name identifies the factor in applied-factor records and metrics.
	Name string
	// Description says what evidence the factor looks for.
	Description string
	// Polarity documents the intended direction of the adjustment.
	Polarity Polarity
	// MaxAdjustment is the hard cap on the magnitude of this factor's
	// contribution. Zero disables the factor.
	MaxAdjustment float64
	// Categories restricts the factor to matches of these categories.
	// Empty applies to all categories.
	Categories []pattern.Category
	// Domains restricts the factor to matches of these domains. Empty
	// applies to all domains.
	Domains []string
	// Detect produces the raw adjustment for a match.
	Detect Detector
}

// AppliesTo reports whether the factor is in scope for a match's category
// and domain.
func (f *Factor) AppliesTo(category pattern.Category, domain string) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if c == category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Domains) > 0 {
		found := false
		for _, d := range f.Domains {
			if d == domain {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
