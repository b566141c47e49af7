package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/confidence"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/pattern"
)

func newTestDetector(t *testing.T, defs ...*pattern.Definition) *Detector {
	t.Helper()
	registry := pattern.NewRegistry(nil, nil)
	require.NoError(t, registry.RegisterAll(defs))
	matcher := pattern.NewMatcher(nil, nil)
	scorer := confidence.NewScorer(nil, nil)
	return New(registry, matcher, scorer, nil, nil)
}

func cvePattern() *pattern.Definition {
	return &pattern.Definition{
		ID:             "sec.cve",
		Name:           "CVE identifier",
		Domain:         "security",
		Category:       pattern.CategoryEntity,
		Expression:     `CVE-\d{4}-\d{4,7}`,
		OutputType:     "Vulnerability",
		BaseConfidence: 0.95,
		Priority:       pattern.PriorityCritical,
	}
}

func exploitsPattern() *pattern.Definition {
	return &pattern.Definition{
		ID:             "sec.exploits",
		Name:           "exploitation statement",
		Domain:         "security",
		Category:       pattern.CategoryRelationship,
		Expression:     `(?P<actor>\w+) exploited (?P<target>CVE-\d{4}-\d{4,7})`,
		OutputType:     "EXPLOITS",
		BaseConfidence: 0.80,
		Priority:       pattern.PriorityHigh,
	}
}

func TestDetectCVEScenario(t *testing.T) {
	d := newTestDetector(t, cvePattern())
	text := "Attackers exploited CVE-2021-44228 on 2021-12-10 against 35% of hosts."

	matches, err := d.DetectPatterns(text, Options{})
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "CVE-2021-44228", m.Value)
	assert.Equal(t, 0.95, m.BaseConfidence)
	assert.GreaterOrEqual(t, m.FinalConfidence, 0.95, "positive context must not lower the base")
	assert.LessOrEqual(t, m.FinalConfidence, 1.0)
}

func TestDetectThresholdFiltering(t *testing.T) {
	weak := cvePattern()
	weak.BaseConfidence = 0.3

	d := newTestDetector(t, weak)
	text := "mention of CVE-2020-0001 without corroborating signals"

	matches, err := d.DetectPatterns(text, Options{})
	require.NoError(t, err)
	assert.Empty(t, matches, "default threshold drops weak matches")

	matches, err = d.DetectPatterns(text, Options{MinConfidence: -1})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestDetectIsIdempotent(t *testing.T) {
	d := newTestDetector(t, cvePattern(), exploitsPattern())
	text := "Mallory exploited CVE-2021-44228. Later CVE-2021-45046 appeared."

	first, err := d.DetectPatterns(text, Options{})
	require.NoError(t, err)
	second, err := d.DetectPatterns(text, Options{})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].PatternID, second[i].PatternID)
		assert.Equal(t, first[i].Start, second[i].Start)
		assert.Equal(t, first[i].FinalConfidence, second[i].FinalConfidence)
	}
}

func TestDetectOrdering(t *testing.T) {
	d := newTestDetector(t, cvePattern(), exploitsPattern())
	text := "Mallory exploited CVE-2021-44228 and CVE-2021-45046."

	matches, err := d.DetectPatterns(text, Options{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(matches), 3)
	for i := 1; i < len(matches); i++ {
		if matches[i-1].Start == matches[i].Start {
			assert.LessOrEqual(t, matches[i-1].PatternID, matches[i].PatternID)
		} else {
			assert.Less(t, matches[i-1].Start, matches[i].Start)
		}
	}
}

func TestDetectRelationshipParticipationBoost(t *testing.T) {
	d := newTestDetector(t, cvePattern(), exploitsPattern())

	inRel, err := d.DetectPatterns("Mallory exploited CVE-2021-44228", Options{})
	require.NoError(t, err)
	alone, err := d.DetectPatterns("We observed CVE-2021-44228", Options{})
	require.NoError(t, err)

	var relScore, aloneScore float64
	for _, m := range inRel {
		if m.PatternID == "sec.cve" {
			relScore = m.FinalConfidence
		}
	}
	for _, m := range alone {
		if m.PatternID == "sec.cve" {
			aloneScore = m.FinalConfidence
		}
	}
	assert.Greater(t, relScore, aloneScore)
}

func TestDetectEntitiesAndRelationships(t *testing.T) {
	d := newTestDetector(t, cvePattern(), exploitsPattern())
	text := "Mallory exploited CVE-2021-44228 yesterday."

	entities, err := d.DetectEntities(text, []string{"security"})
	require.NoError(t, err)
	require.NotEmpty(t, entities)
	for _, m := range entities {
		assert.Equal(t, pattern.CategoryEntity, m.Category)
	}

	relationships, err := d.DetectRelationships(text, []string{"security"})
	require.NoError(t, err)
	require.Len(t, relationships, 1)
	assert.Equal(t, "sec.exploits", relationships[0].PatternID)
	assert.Equal(t, "Mallory", relationships[0].Groups["actor"])
}

func TestDetectDomainFilter(t *testing.T) {
	finance := cvePattern()
	finance.ID = "fin.cve"
	finance.Domain = "finance"

	d := newTestDetector(t, cvePattern(), finance)

	matches, err := d.DetectPatterns("CVE-2021-44228", Options{Domains: []string{"finance"}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "fin.cve", matches[0].PatternID)
}

func TestProcessDocument(t *testing.T) {
	d := newTestDetector(t, cvePattern(), exploitsPattern())
	text := "Mallory exploited CVE-2021-44228. The flaw CVE-2021-44228 was patched on 2021-12-15."

	result, err := d.ProcessDocument("doc-42", text, nil)
	require.NoError(t, err)

	assert.Equal(t, "doc-42", result.DocumentID)
	assert.NotEmpty(t, result.Entities)
	assert.Len(t, result.Relationships, 1)
	assert.Equal(t, len(result.Matches), result.Stats.TotalMatches)
	assert.Equal(t, 2, result.Stats.ByOutputType["Vulnerability"])
	assert.Equal(t, len(result.Matches), result.Stats.ByDomain["security"])
	assert.Greater(t, result.Stats.MeanConfidence, 0.0)
	assert.LessOrEqual(t, result.Stats.MeanConfidence, 1.0)

	var sum float64
	for _, m := range result.Matches {
		sum += m.FinalConfidence
	}
	assert.InDelta(t, sum/float64(len(result.Matches)), result.Stats.MeanConfidence, 1e-9)
}

func TestProcessDocumentEmpty(t *testing.T) {
	d := newTestDetector(t, cvePattern())

	result, err := d.ProcessDocument("doc-0", "nothing relevant here", nil)
	require.NoError(t, err)
	assert.Zero(t, result.Stats.TotalMatches)
	assert.Zero(t, result.Stats.MeanConfidence)
	assert.Empty(t, result.Entities)
}
