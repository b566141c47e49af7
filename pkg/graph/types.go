// Package graph defines the backend-agnostic value types and the capability
// contract shared by every graph storage engine.
package graph

import (
	"time"
)

// Direction controls which edges a traversal follows.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// Valid reports whether d is a recognized direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth:
		return true
	}
	return false
}

// Node represents a vertex in the graph. Depth and Path are populated only on
// nodes returned from traversal and path-finding operations, never at rest.
type Node struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
	Depth      int            `json:"depth,omitempty"`
	Path       []string       `json:"path,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	RetiredAt  *time.Time     `json:"retired_at,omitempty"`
}

// Edge represents a directed, typed connection between two nodes.
// Self-loops (SourceID == TargetID) are rejected at creation.
type Edge struct {
	ID         string         `json:"id"`
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Weight     float64        `json:"weight"`
	Confidence float64        `json:"confidence"`
	CreatedAt  time.Time      `json:"created_at"`
	RetiredAt  *time.Time     `json:"retired_at,omitempty"`
}

// Path is an ordered walk through the graph. Edges[i] connects Nodes[i] and
// Nodes[i+1]. TotalWeight is the sum of transformed edge weights, so lower
// is better.
type Path struct {
	Nodes       []*Node `json:"nodes"`
	Edges       []*Edge `json:"edges"`
	TotalWeight float64 `json:"total_weight"`
	Length      int     `json:"length"`
}

// Subgraph is the induced subgraph over a node set.
type Subgraph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// TraversalParams configures a depth-bounded traversal.
type TraversalParams struct {
	MaxDepth   int       `json:"max_depth" validate:"required,min=1"`
	Direction  Direction `json:"direction"`
	EdgeTypes  []string  `json:"edge_types,omitempty"`
	NodeLabels []string  `json:"node_labels,omitempty"`
	Limit      int       `json:"limit,omitempty" validate:"omitempty,min=1"`
}

// NodeSpec describes a node to create. When ID is empty an identifier is
// generated by the backend.
type NodeSpec struct {
	ID         string         `json:"id,omitempty"`
	Labels     []string       `json:"labels" validate:"required,min=1,dive,min=1,max=64"`
	Properties map[string]any `json:"properties,omitempty"`
}

// EdgeSpec describes an edge to create. Nil Weight or Confidence default
// to 1.0.
type EdgeSpec struct {
	ID         string         `json:"id,omitempty"`
	SourceID   string         `json:"source_id" validate:"required"`
	TargetID   string         `json:"target_id" validate:"required"`
	Type       string         `json:"type" validate:"required,min=1,max=64"`
	Properties map[string]any `json:"properties,omitempty"`
	Weight     *float64       `json:"weight,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
}

// UpdateMode selects how UpdateNode/UpdateEdge treat the property map.
type UpdateMode int

const (
	// UpdateMerge merges the given properties into the existing map.
	UpdateMerge UpdateMode = iota
	// UpdateReplace discards the existing map and installs the given one.
	UpdateReplace
)

// NodeFilter selects nodes by label and property equality.
type NodeFilter struct {
	Labels     []string       `json:"labels,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

// EdgeFilter selects edges by type and property equality.
type EdgeFilter struct {
	Types      []string       `json:"types,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

// HasLabel reports whether the node carries the given label.
func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Name returns the node's "name" property, or "" when unset. Used as the
// stable secondary sort key for traversal results.
func (n *Node) Name() string {
	if s, ok := n.Properties["name"].(string); ok {
		return s
	}
	return ""
}

// Clone creates a deep copy of a node, excluding traversal annotations.
func (n *Node) Clone() *Node {
	clone := &Node{
		ID:        n.ID,
		Labels:    make([]string, len(n.Labels)),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		RetiredAt: n.RetiredAt,
	}
	copy(clone.Labels, n.Labels)
	if n.Properties != nil {
		clone.Properties = make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			clone.Properties[k] = v
		}
	}
	return clone
}

// Clone creates a deep copy of an edge.
func (e *Edge) Clone() *Edge {
	clone := &Edge{
		ID:         e.ID,
		SourceID:   e.SourceID,
		TargetID:   e.TargetID,
		Type:       e.Type,
		Weight:     e.Weight,
		Confidence: e.Confidence,
		CreatedAt:  e.CreatedAt,
		RetiredAt:  e.RetiredAt,
	}
	if e.Properties != nil {
		clone.Properties = make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			clone.Properties[k] = v
		}
	}
	return clone
}

// TransformedWeight is the traversal cost of an edge: stronger edges are
// cheaper to cross.
func (e *Edge) TransformedWeight() float64 {
	return 1.0 - e.Weight
}

// OtherEnd returns the endpoint of e that is not nodeID. Used when following
// edges in both directions.
func (e *Edge) OtherEnd(nodeID string) string {
	if e.SourceID == nodeID {
		return e.TargetID
	}
	return e.SourceID
}
