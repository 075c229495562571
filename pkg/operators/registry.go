package operators

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores registered operators
type Registry struct {
	operators map[string]Operator
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{operators: make(map[string]Operator)}
}

// globalRegistry is the global operator registry
var globalRegistry = NewRegistry()

// GlobalRegistry returns the global operator registry
func GlobalRegistry() *Registry {
	return globalRegistry
}

// Register registers an operator globally
func Register(op Operator) {
	globalRegistry.Register(op)
}

// Get retrieves an operator by name
func Get(name string) (Operator, error) {
	return globalRegistry.Get(name)
}

// List returns all registered operators
func List() []Operator {
	return globalRegistry.List()
}

// ListByCategory returns operators in a specific category
func ListByCategory(category Category) []Operator {
	return globalRegistry.ListByCategory(category)
}

// Register registers an operator in this registry
func (r *Registry) Register(op Operator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Allow re-registration (useful for testing)
	r.operators[op.Name()] = op
}

// Reset clears all registered operators (for testing)
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operators = make(map[string]Operator)
}

// Get retrieves an operator by name
func (r *Registry) Get(name string) (Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.operators[name]
	if !ok {
		return nil, fmt.Errorf("operator '%s' not found", name)
	}

	return op, nil
}

// List returns all registered operators sorted by name
func (r *Registry) List() []Operator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Operator, 0, len(r.operators))
	for _, op := range r.operators {
		result = append(result, op)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})

	return result
}

// ListByCategory returns operators in a specific category
func (r *Registry) ListByCategory(category Category) []Operator {
	all := r.List()
	result := []Operator{}

	for _, op := range all {
		if op.Category() == category {
			result = append(result, op)
		}
	}

	return result
}
