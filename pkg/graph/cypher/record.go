package cypher

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/graph"
)

// errNoRecord reports a write statement that unexpectedly produced no row.
var errNoRecord = errors.New("statement returned no record")

// errMissingEndpoint reports an edge creation whose endpoints do not exist
// or are retired.
var errMissingEndpoint = errors.New("edge endpoints not found")

// Node and relationship labels are interpolated into Cypher text, so they
// are restricted to identifier characters.
var symbolPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkSymbols rejects labels or edge types unusable as Cypher symbols.
func checkSymbols(op string, symbols []string) error {
	for _, s := range symbols {
		if !symbolPattern.MatchString(s) {
			return graph.ValidationError(op, "label", s,
				fmt.Errorf("label %q is not a valid identifier", s))
		}
	}
	return nil
}

// labelFragment renders a label set as `:A:B` for pattern interpolation.
func labelFragment(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return ":" + strings.Join(labels, ":")
}

// typeFragment renders an edge-type allow-list as `:A|B` for relationship
// patterns. Empty list matches any type.
func typeFragment(types []string) string {
	if len(types) == 0 {
		return ""
	}
	return ":" + strings.Join(types, "|")
}

// Property maps may carry nested maps, which the store cannot hold as
// native properties, so the full map travels as one JSON-encoded property
// alongside the extracted name used for ordering.

func encodeProperties(props map[string]any) (string, error) {
	if props == nil {
		props = map[string]any{}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeProperties(raw any) (map[string]any, error) {
	s, ok := raw.(string)
	if !ok || s == "" {
		return map[string]any{}, nil
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(s), &props); err != nil {
		return nil, err
	}
	return props, nil
}

func nameOf(props map[string]any) string {
	if s, ok := props["name"].(string); ok {
		return s
	}
	return ""
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw any) time.Time {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nodeFromValue converts a returned graph node value into a graph.Node.
func nodeFromValue(value any) (*graph.Node, error) {
	dbNode, ok := value.(neo4j.Node)
	if !ok {
		return nil, errors.New("record value is not a node")
	}

	props, err := decodeProperties(dbNode.Props["props"])
	if err != nil {
		return nil, err
	}
	n := &graph.Node{
		ID:         stringProp(dbNode.Props, "id"),
		Labels:     dbNode.Labels,
		Properties: props,
		CreatedAt:  parseTime(dbNode.Props["created_at"]),
		UpdatedAt:  parseTime(dbNode.Props["updated_at"]),
	}
	return n, nil
}

// edgeFromValue converts a returned relationship value into a graph.Edge.
// Endpoint ids are carried as relationship properties because the driver
// exposes only internal element ids on the relationship itself.
func edgeFromValue(value any) (*graph.Edge, error) {
	rel, ok := value.(neo4j.Relationship)
	if !ok {
		return nil, errors.New("record value is not a relationship")
	}

	props, err := decodeProperties(rel.Props["props"])
	if err != nil {
		return nil, err
	}
	e := &graph.Edge{
		ID:         stringProp(rel.Props, "id"),
		SourceID:   stringProp(rel.Props, "source_id"),
		TargetID:   stringProp(rel.Props, "target_id"),
		Type:       rel.Type,
		Properties: props,
		Weight:     floatProp(rel.Props, "weight", 1.0),
		Confidence: floatProp(rel.Props, "confidence", 1.0),
		CreatedAt:  parseTime(rel.Props["created_at"]),
	}
	return e, nil
}

func stringProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

func floatProp(props map[string]any, key string, fallback float64) float64 {
	if f, ok := props[key].(float64); ok {
		return f
	}
	return fallback
}

func toStringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
