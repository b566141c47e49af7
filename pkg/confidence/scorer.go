package confidence

import (
	"fmt"
	"sync"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/metrics"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/pattern"
)

// Scorer applies registered factors to raw matches. Each factor's
// contribution is clamped to its MaxAdjustment, the final score is clamped
// to [0, 1], and a factor whose detector panics is skipped with a zero
// contribution so one bad factor cannot take down a detection run.
type Scorer struct {
	logger  logging.Logger
	metrics *metrics.Registry

	mu             sync.RWMutex
	factors        []*Factor
	byName         map[string]*Factor
	domainKeywords map[string][]string
}

// ScorerOption customizes a Scorer.
type ScorerOption func(*Scorer)

// WithoutBuiltins skips registration of the built-in factor catalog.
func WithoutBuiltins() ScorerOption {
	return func(s *Scorer) { s.factors = s.factors[:0]; s.byName = make(map[string]*Factor) }
}

// NewScorer creates a scorer preloaded with the built-in factor catalog.
func NewScorer(logger logging.Logger, reg *metrics.Registry, opts ...ScorerOption) *Scorer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Scorer{
		logger:         logger,
		metrics:        reg,
		byName:         make(map[string]*Factor),
		domainKeywords: make(map[string][]string),
	}
	for _, f := range builtinFactors() {
		s.factors = append(s.factors, f)
		s.byName[f.Name] = f
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a factor. Factor names are unique.
func (s *Scorer) Register(f *Factor) error {
	if f == nil || f.Name == "" {
		return fmt.Errorf("factor requires a name")
	}
	if f.Detect == nil {
		return fmt.Errorf("factor %q requires a detector", f.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[f.Name]; exists {
		return fmt.Errorf("duplicate factor name %q", f.Name)
	}
	s.factors = append(s.factors, f)
	s.byName[f.Name] = f
	return nil
}

// RegisterDomainKeywords sets the keyword list used by the domain-keyword
// density factor for one domain.
func (s *Scorer) RegisterDomainKeywords(domain string, keywords []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domainKeywords[domain] = append([]string(nil), keywords...)
}

// Factors returns a snapshot of the registered factors in registration
// order.
func (s *Scorer) Factors() []*Factor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Factor(nil), s.factors...)
}

// Score applies every in-scope factor to the match, mutating its
// FinalConfidence and AppliedFactors in place. The input's DomainKeywords
// are filled from the scorer's keyword table.
func (s *Scorer) Score(m *pattern.Match, in Input) {
	s.mu.RLock()
	factors := s.factors
	keywords := s.domainKeywords[m.Domain]
	s.mu.RUnlock()

	in.Match = m
	in.DomainKeywords = keywords
	if in.Context == "" {
		in.Context = m.Context
	}

	score := m.BaseConfidence
	applied := make([]pattern.FactorApplication, 0, 2)
	for _, f := range factors {
		if f.MaxAdjustment == 0 || !f.AppliesTo(m.Category, m.Domain) {
			continue
		}
		adjustment, ok := s.evaluate(f, in)
		if !ok {
			continue
		}
		adjustment = clamp(adjustment, -f.MaxAdjustment, f.MaxAdjustment)
		s.metrics.RecordFactor(f.Name, adjustment != 0)
		if adjustment == 0 {
			continue
		}
		score += adjustment
		applied = append(applied, pattern.FactorApplication{Name: f.Name, Adjustment: adjustment})
	}

	m.FinalConfidence = clamp(score, 0, 1)
	m.AppliedFactors = applied
}

// evaluate runs one detector, converting a panic into a skipped factor.
func (s *Scorer) evaluate(f *Factor, in Input) (adjustment float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.RecordFactorSkipped()
			s.logger.Warn("confidence factor panicked, skipping",
				logging.Factor(f.Name),
				logging.PatternID(in.Match.PatternID),
				logging.Any("panic", fmt.Sprint(r)))
			adjustment, ok = 0, false
		}
	}()
	return f.Detect(in), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
