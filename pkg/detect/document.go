package detect

import (
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/pattern"
)

// Statistics aggregates one document's detection results.
type Statistics struct {
	TotalMatches   int            `json:"total_matches"`
	ByOutputType   map[string]int `json:"by_output_type,omitempty"`
	ByDomain       map[string]int `json:"by_domain,omitempty"`
	ByCategory     map[string]int `json:"by_category,omitempty"`
	MeanConfidence float64        `json:"mean_confidence"`
}

// DocumentResult is the outcome of processing one document: all scored
// matches, partitioned entity and relationship views, and summary
// statistics.
type DocumentResult struct {
	DocumentID    string           `json:"document_id"`
	Matches       []*pattern.Match `json:"matches"`
	Entities      []*pattern.Match `json:"entities"`
	Relationships []*pattern.Match `json:"relationships"`
	Stats         Statistics       `json:"stats"`
}

// ProcessDocument runs full detection over a document and aggregates the
// results. Matches that are neither entities nor relationships (context,
// temporal, quantitative) appear only in Matches and the statistics.
func (d *Detector) ProcessDocument(documentID, text string, domains []string) (*DocumentResult, error) {
	matches, err := d.DetectPatterns(text, Options{Domains: domains})
	if err != nil {
		return nil, err
	}

	result := &DocumentResult{
		DocumentID: documentID,
		Matches:    matches,
		Stats: Statistics{
			TotalMatches: len(matches),
			ByOutputType: make(map[string]int),
			ByDomain:     make(map[string]int),
			ByCategory:   make(map[string]int),
		},
	}

	var confidenceSum float64
	for _, m := range matches {
		switch m.Category {
		case pattern.CategoryEntity:
			result.Entities = append(result.Entities, m)
		case pattern.CategoryRelationship:
			result.Relationships = append(result.Relationships, m)
		}
		if m.OutputType != "" {
			result.Stats.ByOutputType[m.OutputType]++
		}
		result.Stats.ByDomain[m.Domain]++
		result.Stats.ByCategory[string(m.Category)]++
		confidenceSum += m.FinalConfidence
	}
	if len(matches) > 0 {
		result.Stats.MeanConfidence = confidenceSum / float64(len(matches))
	}

	d.logger.Info("document processed",
		logging.DocumentID(documentID),
		logging.Count(len(matches)),
		logging.Int("entities", len(result.Entities)),
		logging.Int("relationships", len(result.Relationships)))
	return result, nil
}
