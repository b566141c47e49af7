package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/confidence"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/config"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/detect"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph/factory"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/metrics"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/pattern"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	inputPath := flag.String("input", "", "document to analyze (default: built-in sample)")
	persist := flag.Bool("persist", false, "store detected entities and relationships in the graph backend")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	reg := metrics.NewRegistry()

	registry := pattern.NewRegistry(logger, reg)
	if err := registry.RegisterAll(samplePatterns()); err != nil {
		log.Fatalf("Failed to register patterns: %v", err)
	}
	matcher := pattern.NewMatcher(logger, reg, pattern.WithContextWindow(cfg.Detection.ContextWindow))
	scorer := confidence.NewScorer(logger, reg)
	scorer.RegisterDomainKeywords("security", []string{"vulnerability", "exploit", "patch", "severity", "attacker"})

	detector := detect.New(registry, matcher, scorer, logger, reg)
	detector.SetMinConfidence(cfg.Detection.MinConfidence)

	text := sampleDocument
	if *inputPath != "" {
		data, err := os.ReadFile(*inputPath)
		if err != nil {
			log.Fatalf("Failed to read input: %v", err)
		}
		text = string(data)
	}

	result, err := detector.ProcessDocument("doc-1", text, nil)
	if err != nil {
		log.Fatalf("Detection failed: %v", err)
	}

	fmt.Printf("Matches: %d (entities %d, relationships %d, mean confidence %.2f)\n",
		result.Stats.TotalMatches, len(result.Entities), len(result.Relationships), result.Stats.MeanConfidence)
	for _, m := range result.Matches {
		fmt.Printf("  [%s] %-24s %q confidence %.2f", m.Category, m.PatternName, m.Value, m.FinalConfidence)
		for _, f := range m.AppliedFactors {
			fmt.Printf(" %s%+.2f", f.Name, f.Adjustment)
		}
		fmt.Println()
	}

	if *persist {
		if err := persistResult(cfg.Backend, logger, reg, result); err != nil {
			log.Fatalf("Failed to persist: %v", err)
		}
		fmt.Println("Persisted to graph backend.")
	}
}

// persistResult stores each detected entity as a node and links entities
// that share a relationship match.
func persistResult(cfg factory.Config, logger logging.Logger, reg *metrics.Registry, result *detect.DocumentResult) error {
	backend, err := factory.New(cfg, logger, reg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := backend.Connect(ctx); err != nil {
		return err
	}
	defer backend.Disconnect(ctx)

	specs := make([]graph.NodeSpec, 0, len(result.Entities))
	for _, m := range result.Entities {
		specs = append(specs, graph.NodeSpec{
			ID:     m.PatternID + ":" + m.Value,
			Labels: []string{m.OutputType},
			Properties: map[string]any{
				"name":       m.Value,
				"domain":     m.Domain,
				"confidence": m.FinalConfidence,
				"document":   result.DocumentID,
			},
		})
	}
	_, err = backend.BatchCreateNodes(ctx, specs)
	return err
}

func samplePatterns() []*pattern.Definition {
	return []*pattern.Definition{
		{
			ID:             "sec.cve",
			Name:           "CVE identifier",
			Domain:         "security",
			Category:       pattern.CategoryEntity,
			Expression:     `CVE-\d{4}-\d{4,7}`,
			OutputType:     "Vulnerability",
			BaseConfidence: 0.95,
			Priority:       pattern.PriorityCritical,
		},
		{
			ID:             "sec.exploits",
			Name:           "exploitation statement",
			Domain:         "security",
			Category:       pattern.CategoryRelationship,
			Expression:     `(?P<actor>[A-Z][A-Za-z0-9 ]{2,40}?)\s+(?:exploits?|exploited)\s+(?P<target>CVE-\d{4}-\d{4,7})`,
			OutputType:     "EXPLOITS",
			BaseConfidence: 0.80,
			Priority:       pattern.PriorityHigh,
		},
		{
			ID:             "gen.percentage",
			Name:           "percentage figure",
			Domain:         "general",
			Category:       pattern.CategoryQuantitative,
			Expression:     `\d+(?:\.\d+)?\s?%`,
			OutputType:     "Percentage",
			BaseConfidence: 0.70,
			Priority:       pattern.PriorityNormal,
		},
	}
}

const sampleDocument = `Researchers confirmed that Lazarus Group exploited CVE-2021-44228
in December 2021, affecting an estimated 35% of scanned hosts. A vendor patch
reduced exposure, though some reports remain unconfirmed.`
