package pattern

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/logging"
	"github.com/Intelligence-Builder/Cloud-Optimizer-sub002/pkg/metrics"
)

var validate = validator.New()

// definitionSpec mirrors the validated surface of a Definition. Validation
// runs against this view so struct tags stay in one place.
type definitionSpec struct {
	ID             string  `validate:"required"`
	Name           string  `validate:"required"`
	Domain         string  `validate:"required"`
	Expression     string  `validate:"required"`
	BaseConfidence float64 `validate:"gte=0,lte=1"`
}

// Registry is a concurrent-safe store of pattern definitions keyed by ID.
// Expressions compile at registration time so a bad pattern fails fast
// instead of on first match.
type Registry struct {
	logger  logging.Logger
	metrics *metrics.Registry

	mu       sync.RWMutex
	patterns map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger, reg *metrics.Registry) *Registry {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Registry{
		logger:   logger,
		metrics:  reg,
		patterns: make(map[string]*Definition),
	}
}

// Register validates, compiles, and stores a definition. A definition whose
// ID is already registered is rejected with ErrDuplicatePattern.
func (r *Registry) Register(def *Definition) error {
	if def == nil {
		return errors.New("nil pattern definition")
	}
	if err := validate.Struct(definitionSpec{
		ID:             def.ID,
		Name:           def.Name,
		Domain:         def.Domain,
		Expression:     def.Expression,
		BaseConfidence: def.BaseConfidence,
	}); err != nil {
		return invalidPattern(def.ID, err)
	}
	if !def.Category.Valid() {
		return invalidPattern(def.ID, fmt.Errorf("unknown category %q", def.Category))
	}
	if def.Priority == "" {
		def.Priority = PriorityNormal
	}
	if _, err := def.Compiled(); err != nil {
		return invalidPattern(def.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.patterns[def.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePattern, def.ID)
	}
	r.patterns[def.ID] = def
	r.metrics.SetRegisteredPatterns(len(r.patterns))
	r.logger.Debug("pattern registered",
		logging.PatternID(def.ID),
		logging.Domain(def.Domain),
		logging.String("category", string(def.Category)))
	return nil
}

// RegisterAll registers a batch of definitions, stopping at the first
// failure.
func (r *Registry) RegisterAll(defs []*Definition) error {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes a pattern by ID.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.patterns[id]; !exists {
		return fmt.Errorf("%w: %q", ErrPatternNotFound, id)
	}
	delete(r.patterns, id)
	r.metrics.SetRegisteredPatterns(len(r.patterns))
	return nil
}

// GetByID returns the definition registered under id.
func (r *Registry) GetByID(id string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.patterns[id]
	return def, ok
}

// GetByDomain returns all patterns of one domain in deterministic order.
func (r *Registry) GetByDomain(domain string) []*Definition {
	return r.collect(func(d *Definition) bool { return d.Domain == domain })
}

// GetByCategory returns all patterns of one category in deterministic order.
func (r *Registry) GetByCategory(category Category) []*Definition {
	return r.collect(func(d *Definition) bool { return d.Category == category })
}

// List returns every registered pattern in deterministic order.
func (r *Registry) List() []*Definition {
	return r.collect(func(*Definition) bool { return true })
}

// Select returns patterns matching the optional domain and category
// filters. Empty filters match everything.
func (r *Registry) Select(domains []string, categories []Category) []*Definition {
	domainSet := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		domainSet[d] = struct{}{}
	}
	categorySet := make(map[Category]struct{}, len(categories))
	for _, c := range categories {
		categorySet[c] = struct{}{}
	}
	return r.collect(func(d *Definition) bool {
		if len(domainSet) > 0 {
			if _, ok := domainSet[d.Domain]; !ok {
				return false
			}
		}
		if len(categorySet) > 0 {
			if _, ok := categorySet[d.Category]; !ok {
				return false
			}
		}
		return true
	})
}

// Count returns the number of registered patterns.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patterns)
}

// Clear removes every registered pattern.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = make(map[string]*Definition)
	r.metrics.SetRegisteredPatterns(0)
}

// collect snapshots matching definitions sorted by priority rank then ID, so
// every listing is stable across calls.
func (r *Registry) collect(keep func(*Definition) bool) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Definition, 0, len(r.patterns))
	for _, def := range r.patterns {
		if keep(def) {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
