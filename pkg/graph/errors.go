package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for the backend contract. Callers branch on these with
// errors.Is, never by matching message text.
var (
	ErrNotConnected    = errors.New("backend not connected")
	ErrUnreachable     = errors.New("store unreachable")
	ErrUnknownBackend  = errors.New("unknown backend type")
	ErrSelfLoop        = errors.New("self-loop edges are not allowed")
	ErrWeightRange     = errors.New("weight must be in [0,1]")
	ErrConfidenceRange = errors.New("confidence must be in [0,1]")
	ErrEmptyLabels     = errors.New("node requires at least one label")
)

// Kind classifies a backend error for caller-side branching.
type Kind int

const (
	KindInternal Kind = iota
	KindConnectivity
	KindConfiguration
	KindValidation
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error provides structured error information for graph operations.
type Error struct {
	Op     string // operation that failed, e.g. "CreateNode"
	Entity string // "node", "edge", "path", "backend"
	ID     string // entity identifier, if applicable
	Kind   Kind
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a structured graph error.
func NewError(op, entity, id string, kind Kind, cause error) *Error {
	return &Error{Op: op, Entity: entity, ID: id, Kind: kind, Cause: cause}
}

// ConnectivityError wraps a store-unreachable condition. Never retried
// internally; surfaced immediately to the caller.
func ConnectivityError(op string, cause error) error {
	return &Error{Op: op, Entity: "backend", Kind: KindConnectivity, Cause: cause}
}

// ConfigurationError wraps a construction-time misconfiguration.
func ConfigurationError(op string, cause error) error {
	return &Error{Op: op, Entity: "backend", Kind: KindConfiguration, Cause: cause}
}

// ValidationError wraps a rejected input.
func ValidationError(op, entity, id string, cause error) error {
	return &Error{Op: op, Entity: entity, ID: id, Kind: KindValidation, Cause: cause}
}

// IsConnectivity reports whether err is a connectivity error.
func IsConnectivity(err error) bool {
	return hasKind(err, KindConnectivity)
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return hasKind(err, KindConfiguration)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return hasKind(err, KindValidation)
}

func hasKind(err error, kind Kind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}
