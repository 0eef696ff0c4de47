package workflow

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps node type names to implementations.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]SupplyDataNode
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]SupplyDataNode)}
}

// Register adds n under its description name.
func (r *Registry) Register(n SupplyDataNode) error {
	desc := n.Description()
	if desc == nil {
		return fmt.Errorf("register node: nil description")
	}
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("register node: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.nodes[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, desc.Name)
	}
	r.nodes[desc.Name] = n
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(n SupplyDataNode) {
	if err := r.Register(n); err != nil {
		panic(err)
	}
}

// Get returns the node type called name.
func (r *Registry) Get(name string) (SupplyDataNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, name)
	}
	return n, nil
}

// List returns all descriptions sorted by name.
func (r *Registry) List() []*NodeDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*NodeDescription, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n.Description())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
