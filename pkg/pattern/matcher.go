package pattern

import (
	"unicode/utf8"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/metrics"
)

// DefaultContextWindow is the number of characters captured on each side of
// a match for downstream confidence evaluation.
const DefaultContextWindow = 100

// Matcher runs compiled patterns over text and produces raw matches. Raw
// matches carry the pattern's base confidence; scoring happens downstream.
type Matcher struct {
	logger        logging.Logger
	metrics       *metrics.Registry
	contextWindow int
}

// MatcherOption customizes a Matcher.
type MatcherOption func(*Matcher)

// WithContextWindow overrides the context window size in characters.
func WithContextWindow(chars int) MatcherOption {
	return func(m *Matcher) {
		if chars > 0 {
			m.contextWindow = chars
		}
	}
}

// NewMatcher creates a matcher with the default context window.
func NewMatcher(logger logging.Logger, reg *metrics.Registry, opts ...MatcherOption) *Matcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := &Matcher{
		logger:        logger,
		metrics:       reg,
		contextWindow: DefaultContextWindow,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match runs one pattern over the text and returns every occurrence with
// offsets, named capture groups, and the surrounding context window.
func (m *Matcher) Match(def *Definition, text string) ([]*Match, error) {
	re, err := def.Compiled()
	if err != nil {
		return nil, invalidPattern(def.ID, err)
	}

	indexes := re.FindAllStringSubmatchIndex(text, -1)
	if len(indexes) == 0 {
		return nil, nil
	}

	names := re.SubexpNames()
	matches := make([]*Match, 0, len(indexes))
	for _, idx := range indexes {
		start, end := idx[0], idx[1]
		match := &Match{
			PatternID:       def.ID,
			PatternName:     def.Name,
			Domain:          def.Domain,
			Category:        def.Category,
			Text:            text[start:end],
			Start:           start,
			End:             end,
			OutputType:      def.OutputType,
			Value:           text[start:end],
			BaseConfidence:  def.BaseConfidence,
			FinalConfidence: def.BaseConfidence,
			Context:         m.ExtractContext(text, start, end),
		}
		match.Groups = captureGroups(def, names, idx, text)
		if mapped, ok := match.Groups["value"]; ok && mapped != "" {
			match.Value = mapped
		}
		matches = append(matches, match)
	}

	m.metrics.RecordMatch(def.Domain, string(def.Category), len(matches))
	m.logger.Debug("pattern matched",
		logging.PatternID(def.ID),
		logging.Count(len(matches)))
	return matches, nil
}

// MatchAll runs every definition over the text in order and concatenates
// the results. Definition order is preserved, so callers passing a
// registry listing get deterministic output.
func (m *Matcher) MatchAll(defs []*Definition, text string) ([]*Match, error) {
	var all []*Match
	for _, def := range defs {
		matches, err := m.Match(def, text)
		if err != nil {
			return nil, err
		}
		all = append(all, matches...)
	}
	return all, nil
}

// ExtractContext returns the fixed-size character window around [start, end),
// clamped to the text bounds. Window edges landing inside a multi-byte rune
// widen to the rune boundary so the snippet stays valid UTF-8.
func (m *Matcher) ExtractContext(text string, start, end int) string {
	lo := start - m.contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + m.contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return text[lo:hi]
}

// captureGroups extracts named groups from a submatch index set, applying
// the definition's capture mapping to rename groups into output fields.
func captureGroups(def *Definition, names []string, idx []int, text string) map[string]string {
	groups := make(map[string]string)
	for gi, name := range names {
		if gi == 0 || name == "" {
			continue
		}
		lo, hi := idx[2*gi], idx[2*gi+1]
		if lo < 0 || hi < 0 {
			continue
		}
		key := name
		if mapped, ok := def.CaptureMapping[name]; ok && mapped != "" {
			key = mapped
		}
		groups[key] = text[lo:hi]
	}
	if len(groups) == 0 {
		return nil
	}
	return groups
}
