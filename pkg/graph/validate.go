package graph

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// NormalizeNodeSpec validates a node spec and fills defaults: a generated
// UUID when no identifier is supplied.
func NormalizeNodeSpec(spec NodeSpec) (NodeSpec, error) {
	if len(spec.Labels) == 0 {
		return spec, ValidationError("CreateNode", "node", spec.ID, ErrEmptyLabels)
	}
	if err := validate.Struct(&spec); err != nil {
		return spec, ValidationError("CreateNode", "node", spec.ID, err)
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	return spec, nil
}

// NormalizeEdgeSpec validates an edge spec and fills defaults: generated
// UUID, weight and confidence of 1.0 when unset. Self-loops and out-of-range
// weight/confidence values are rejected.
func NormalizeEdgeSpec(spec EdgeSpec) (EdgeSpec, error) {
	if err := validate.Struct(&spec); err != nil {
		return spec, ValidationError("CreateEdge", "edge", spec.ID, err)
	}
	if spec.SourceID == spec.TargetID {
		return spec, ValidationError("CreateEdge", "edge", spec.ID, ErrSelfLoop)
	}
	if spec.Weight == nil {
		w := 1.0
		spec.Weight = &w
	} else if *spec.Weight < 0 || *spec.Weight > 1 {
		return spec, ValidationError("CreateEdge", "edge", spec.ID, ErrWeightRange)
	}
	if spec.Confidence == nil {
		c := 1.0
		spec.Confidence = &c
	} else if *spec.Confidence < 0 || *spec.Confidence > 1 {
		return spec, ValidationError("CreateEdge", "edge", spec.ID, ErrConfidenceRange)
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	return spec, nil
}
