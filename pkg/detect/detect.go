// Package detect orchestrates the detection pipeline: pattern selection
// from the registry, regex matching, confidence scoring, threshold
// filtering, and document-level aggregation.
package detect

import (
	"sort"
	"strings"
	"time"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/confidence"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/metrics"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/pattern"
)

// DefaultMinConfidence drops matches whose final confidence falls below
// this threshold when the caller does not set one.
const DefaultMinConfidence = 0.5

// Options narrows a detection run.
type Options struct {
	// Domains restricts matching to these pattern domains. Empty means all.
	Domains []string
	// Categories restricts matching to these pattern categories. Empty
	// means all.
	Categories []pattern.Category
	// MinConfidence overrides the detector's threshold. Negative disables
	// filtering; zero keeps the detector default.
	MinConfidence float64
}

// Detector runs the full pipeline. Detection is read-only over the
// registry, so concurrent runs are safe.
type Detector struct {
	registry *pattern.Registry
	matcher  *pattern.Matcher
	scorer   *confidence.Scorer
	logger   logging.Logger
	metrics  *metrics.Registry

	minConfidence float64
}

// New creates a detector with the default confidence threshold.
func New(registry *pattern.Registry, matcher *pattern.Matcher, scorer *confidence.Scorer, logger logging.Logger, reg *metrics.Registry) *Detector {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Detector{
		registry:      registry,
		matcher:       matcher,
		scorer:        scorer,
		logger:        logger,
		metrics:       reg,
		minConfidence: DefaultMinConfidence,
	}
}

// SetMinConfidence changes the default threshold applied when Options does
// not set one.
func (d *Detector) SetMinConfidence(threshold float64) {
	d.minConfidence = threshold
}

// DetectPatterns matches the selected patterns against the text, scores
// each match, and returns matches at or above the confidence threshold,
// ordered by start offset then pattern ID. Running the same text twice
// yields identical results.
func (d *Detector) DetectPatterns(text string, opts Options) ([]*pattern.Match, error) {
	started := time.Now()

	defs := d.registry.Select(opts.Domains, opts.Categories)
	raw, err := d.matcher.MatchAll(defs, text)
	if err != nil {
		return nil, err
	}

	relationSpans := relationshipSpans(raw)
	occurrences := countOccurrences(raw, text)
	for _, m := range raw {
		d.scorer.Score(m, confidence.Input{
			Context:        m.Context,
			FullText:       text,
			Occurrences:    occurrences[strings.ToLower(m.Value)],
			InRelationship: participates(m, relationSpans),
		})
	}

	threshold := d.minConfidence
	if opts.MinConfidence > 0 {
		threshold = opts.MinConfidence
	} else if opts.MinConfidence < 0 {
		threshold = 0
	}

	kept := raw[:0]
	for _, m := range raw {
		if m.FinalConfidence >= threshold {
			kept = append(kept, m)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Start != kept[j].Start {
			return kept[i].Start < kept[j].Start
		}
		return kept[i].PatternID < kept[j].PatternID
	})

	d.metrics.RecordDetection(time.Since(started))
	d.logger.Debug("detection complete",
		logging.Count(len(kept)),
		logging.Latency(time.Since(started)))
	return kept, nil
}

// DetectEntities runs detection restricted to entity patterns.
func (d *Detector) DetectEntities(text string, domains []string) ([]*pattern.Match, error) {
	return d.DetectPatterns(text, Options{
		Domains:    domains,
		Categories: []pattern.Category{pattern.CategoryEntity},
	})
}

// DetectRelationships runs detection restricted to relationship patterns.
func (d *Detector) DetectRelationships(text string, domains []string) ([]*pattern.Match, error) {
	return d.DetectPatterns(text, Options{
		Domains:    domains,
		Categories: []pattern.Category{pattern.CategoryRelationship},
	})
}

// span is a half-open byte range in the input text.
type span struct{ start, end int }

// relationshipSpans collects the text ranges covered by relationship
// matches, before scoring, so entity matches can be credited for
// participating in them.
func relationshipSpans(matches []*pattern.Match) []span {
	var spans []span
	for _, m := range matches {
		if m.Category == pattern.CategoryRelationship {
			spans = append(spans, span{m.Start, m.End})
		}
	}
	return spans
}

// participates reports whether a non-relationship match overlaps any
// relationship span.
func participates(m *pattern.Match, spans []span) bool {
	if m.Category == pattern.CategoryRelationship {
		return false
	}
	for _, s := range spans {
		if m.Start < s.end && m.End > s.start {
			return true
		}
	}
	return false
}

// countOccurrences counts how often each distinct match value appears in
// the text, case-insensitively.
func countOccurrences(matches []*pattern.Match, text string) map[string]int {
	lower := strings.ToLower(text)
	counts := make(map[string]int)
	for _, m := range matches {
		key := strings.ToLower(m.Value)
		if key == "" {
			continue
		}
		if _, done := counts[key]; done {
			continue
		}
		counts[key] = strings.Count(lower, key)
	}
	return counts
}
