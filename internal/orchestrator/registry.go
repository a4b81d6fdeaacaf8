package orchestrator

import (
	"fmt"
	"sync"

	"kliharness/internal/nodeconfig"
	"kliharness/internal/readiness"
)

// Node is what a scenario knows about one started witness.
type Node struct {
	Spec   nodeconfig.Spec
	Handle Handle
	// OOBI is set once the witness answered its readiness probe.
	OOBI *readiness.OOBI
}

// Registry maps node names to Nodes for the duration of a scenario.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []string
	nodes map[string]Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]Node)}
}

// Merge inserts update under name, or merges it into the existing entry: every
// non-zero field of update replaces the stored one, the others are kept.
// It returns the resulting entry.
func (r *Registry) Merge(name string, update Node) Node {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.nodes[name]
	if !ok {
		r.order = append(r.order, name)
	}
	if update.Spec != (nodeconfig.Spec{}) {
		cur.Spec = update.Spec
	}
	if update.Handle != nil {
		cur.Handle = update.Handle
	}
	if update.OOBI != nil {
		cur.OOBI = update.OOBI
	}
	r.nodes[name] = cur
	return cur
}

// Get returns the entry stored under name.
func (r *Registry) Get(name string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	return n, ok
}

// Lookup is Get returning ErrUnknownNode for a missing name.
func (r *Registry) Lookup(name string) (Node, error) {
	n, ok := r.Get(name)
	if !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return n, nil
}

// Names returns the registered names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Reset drops every entry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.nodes = make(map[string]Node)
}
