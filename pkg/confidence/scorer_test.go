package confidence

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/pattern"
)

func testMatch(base float64, context string) *pattern.Match {
	return &pattern.Match{
		PatternID:       "sec.cve",
		Domain:          "security",
		Category:        pattern.CategoryEntity,
		Value:           "CVE-2021-44228",
		BaseConfidence:  base,
		FinalConfidence: base,
		Context:         context,
	}
}

func TestScoreNegationLowersConfidence(t *testing.T) {
	s := NewScorer(nil, nil)
	m := testMatch(0.9, "the scanner confirmed this is not CVE-2021-44228")

	s.Score(m, Input{FullText: m.Context})

	assert.InDelta(t, 0.7, m.FinalConfidence, 1e-9)
	require.Len(t, m.AppliedFactors, 1)
	assert.Equal(t, "negation", m.AppliedFactors[0].Name)
	assert.InDelta(t, -0.20, m.AppliedFactors[0].Adjustment, 1e-9)
}

func TestScoreUncertaintyLowersConfidence(t *testing.T) {
	s := NewScorer(nil, nil)
	m := testMatch(0.9, "the host may be affected by CVE-2021-44228")

	s.Score(m, Input{FullText: m.Context})

	assert.InDelta(t, 0.75, m.FinalConfidence, 1e-9)
}

func TestScorePositiveEvidence(t *testing.T) {
	s := NewScorer(nil, nil)

	tests := []struct {
		name    string
		context string
		factor  string
		want    float64
	}{
		{"monetary", "remediation cost $40,000 for CVE-2021-44228", "monetary", 0.15},
		{"percentage", "CVE-2021-44228 seen on 35% of hosts", "percentage", 0.10},
		{"temporal", "CVE-2021-44228 exploited on 2021-12-10", "temporal", 0.10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMatch(0.5, tt.context)
			s.Score(m, Input{FullText: tt.context})

			assert.InDelta(t, 0.5+tt.want, m.FinalConfidence, 1e-9)
			require.Len(t, m.AppliedFactors, 1)
			assert.Equal(t, tt.factor, m.AppliedFactors[0].Name)
		})
	}
}

func TestScoreClampsFinalToUnitInterval(t *testing.T) {
	s := NewScorer(nil, nil)

	high := testMatch(0.95, "on 2021-12-10, 35% of hosts, patched for $1,000")
	s.Score(high, Input{FullText: high.Context, InRelationship: true, Occurrences: 3})
	assert.Equal(t, 1.0, high.FinalConfidence)

	low := testMatch(0.1, "this is not confirmed and may never be")
	s.Score(low, Input{FullText: low.Context})
	assert.Equal(t, 0.0, low.FinalConfidence)
}

func TestScoreClampsEachFactorContribution(t *testing.T) {
	s := NewScorer(nil, nil, WithoutBuiltins())
	require.NoError(t, s.Register(&Factor{
		Name:          "runaway",
		Polarity:      PolarityPositive,
		MaxAdjustment: 0.10,
		Detect:        func(Input) float64 { return 5.0 },
	}))

	m := testMatch(0.5, "anything")
	s.Score(m, Input{FullText: m.Context})

	assert.InDelta(t, 0.6, m.FinalConfidence, 1e-9)
	require.Len(t, m.AppliedFactors, 1)
	assert.InDelta(t, 0.10, m.AppliedFactors[0].Adjustment, 1e-9)
}

func TestScoreSkipsPanickingFactor(t *testing.T) {
	s := NewScorer(nil, nil, WithoutBuiltins())
	require.NoError(t, s.Register(&Factor{
		Name:          "broken",
		MaxAdjustment: 0.10,
		Detect:        func(Input) float64 { panic("detector bug") },
	}))
	require.NoError(t, s.Register(&Factor{
		Name:          "steady",
		MaxAdjustment: 0.10,
		Detect:        func(Input) float64 { return 0.10 },
	}))

	m := testMatch(0.5, "anything")
	s.Score(m, Input{FullText: m.Context})

	// The broken factor contributes zero; the rest of the run continues.
	assert.InDelta(t, 0.6, m.FinalConfidence, 1e-9)
	require.Len(t, m.AppliedFactors, 1)
	assert.Equal(t, "steady", m.AppliedFactors[0].Name)
}

func TestFactorScopeFilters(t *testing.T) {
	s := NewScorer(nil, nil, WithoutBuiltins())
	require.NoError(t, s.Register(&Factor{
		Name:          "entities-only",
		MaxAdjustment: 0.10,
		Categories:    []pattern.Category{pattern.CategoryEntity},
		Detect:        func(Input) float64 { return 0.10 },
	}))
	require.NoError(t, s.Register(&Factor{
		Name:          "finance-only",
		MaxAdjustment: 0.10,
		Domains:       []string{"finance"},
		Detect:        func(Input) float64 { return 0.10 },
	}))

	m := testMatch(0.5, "anything")
	s.Score(m, Input{FullText: m.Context})

	require.Len(t, m.AppliedFactors, 1)
	assert.Equal(t, "entities-only", m.AppliedFactors[0].Name)

	rel := testMatch(0.5, "anything")
	rel.Category = pattern.CategoryRelationship
	s.Score(rel, Input{FullText: rel.Context})
	assert.Empty(t, rel.AppliedFactors)
}

func TestScoreRejectsDuplicateFactorName(t *testing.T) {
	s := NewScorer(nil, nil)

	err := s.Register(&Factor{Name: "negation", MaxAdjustment: 0.1, Detect: func(Input) float64 { return 0 }})
	require.Error(t, err)
}

func TestDomainKeywordDensity(t *testing.T) {
	s := NewScorer(nil, nil)
	s.RegisterDomainKeywords("security", []string{"vulnerability", "exploit", "patch"})

	m := testMatch(0.5, "vulnerability exploit reported, patch pending for CVE-2021-44228")
	s.Score(m, Input{FullText: m.Context})

	var density float64
	for _, f := range m.AppliedFactors {
		if f.Name == "domain_keyword_density" {
			density = f.Adjustment
		}
	}
	assert.Greater(t, density, 0.0)
	assert.LessOrEqual(t, density, 0.10)
}

func TestMultipleOccurrenceAndRelationship(t *testing.T) {
	s := NewScorer(nil, nil, WithoutBuiltins())
	for _, f := range builtinFactors() {
		if f.Name == "multiple_occurrence" || f.Name == "relationship_participation" {
			require.NoError(t, s.Register(f))
		}
	}

	m := testMatch(0.5, "plain context")
	s.Score(m, Input{FullText: "CVE-2021-44228 ... CVE-2021-44228 ... CVE-2021-44228", InRelationship: true})

	assert.InDelta(t, 0.75, m.FinalConfidence, 1e-9)
	assert.Len(t, m.AppliedFactors, 2)
}

// TestScoreProperties verifies the scoring invariants over arbitrary base
// confidences and contexts.
func TestScoreProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("final confidence stays in [0,1]", prop.ForAll(
		func(base float64, context string, inRel bool, occurrences int) bool {
			s := NewScorer(nil, nil)
			m := testMatch(base, context)
			s.Score(m, Input{FullText: context, InRelationship: inRel, Occurrences: occurrences})
			return m.FinalConfidence >= 0 && m.FinalConfidence <= 1
		},
		gen.Float64Range(0, 1),
		gen.AnyString(),
		gen.Bool(),
		gen.IntRange(0, 10),
	))

	properties.Property("every applied adjustment respects its factor cap", prop.ForAll(
		func(base float64, context string) bool {
			s := NewScorer(nil, nil)
			caps := make(map[string]float64)
			for _, f := range s.Factors() {
				caps[f.Name] = f.MaxAdjustment
			}
			m := testMatch(base, context)
			s.Score(m, Input{FullText: context})
			for _, appl := range m.AppliedFactors {
				limit := caps[appl.Name]
				if appl.Adjustment > limit || appl.Adjustment < -limit {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 1),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
