// Package pattern defines the pattern model, the concurrent-safe pattern
// registry, and the regex matcher that produces raw matches from text.
package pattern

import (
	"regexp"
	"strings"
	"sync"
)

// Category classifies what a pattern extracts.
type Category string

const (
	CategoryEntity       Category = "entity"
	CategoryRelationship Category = "relationship"
	CategoryContext      Category = "context"
	CategoryTemporal     Category = "temporal"
	CategoryQuantitative Category = "quantitative"
)

// Valid reports whether c is a recognized category.
func (c Category) Valid() bool {
	switch c {
	case CategoryEntity, CategoryRelationship, CategoryContext, CategoryTemporal, CategoryQuantitative:
		return true
	}
	return false
}

// Priority orders patterns when several match the same text.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Rank returns the sort rank of a priority; lower sorts first. Unknown
// priorities rank as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Definition describes one registered pattern. The match expression is
// compiled exactly once and cached on the definition.
type Definition struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Domain         string            `json:"domain" yaml:"domain"`
	Category       Category          `json:"category" yaml:"category"`
	Expression     string            `json:"expression" yaml:"expression"`
	OutputType     string            `json:"output_type" yaml:"output_type"`
	CaptureMapping map[string]string `json:"capture_mapping,omitempty" yaml:"capture_mapping,omitempty"`
	BaseConfidence float64           `json:"base_confidence" yaml:"base_confidence"`
	Priority       Priority          `json:"priority" yaml:"priority"`
	Version        string            `json:"version,omitempty" yaml:"version,omitempty"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Examples       []string          `json:"examples,omitempty" yaml:"examples,omitempty"`

	compileOnce sync.Once
	compiled    *regexp.Regexp
	compileErr  error
}

// Compiled returns the compiled match expression, compiling it on first
// use. Matching is case-insensitive unless the expression already sets its
// own flags.
func (d *Definition) Compiled() (*regexp.Regexp, error) {
	d.compileOnce.Do(func() {
		expr := d.Expression
		if !strings.HasPrefix(expr, "(?") {
			expr = "(?i)" + expr
		}
		d.compiled, d.compileErr = regexp.Compile(expr)
	})
	return d.compiled, d.compileErr
}

// FactorApplication records one confidence factor that fired on a match,
// for explainability.
type FactorApplication struct {
	Name       string  `json:"name"`
	Adjustment float64 `json:"adjustment"`
}

// Match is one occurrence of a pattern in a text, with offsets, captured
// groups, and confidence scoring results.
type Match struct {
	PatternID   string   `json:"pattern_id"`
	PatternName string   `json:"pattern_name"`
	Domain      string   `json:"domain"`
	Category    Category `json:"category"`

	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`

	OutputType string            `json:"output_type"`
	Value      string            `json:"value"`
	Groups     map[string]string `json:"groups,omitempty"`

	BaseConfidence  float64             `json:"base_confidence"`
	FinalConfidence float64             `json:"final_confidence"`
	AppliedFactors  []FactorApplication `json:"applied_factors,omitempty"`

	Context  string         `json:"context,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
