package radiator

import (
	"sort"
	"sync"
	"time"
)

// Registry holds the latest accepted reading per device name.
// All methods are safe for concurrent use. No method calls out while holding
// the lock, so callers never need to re-enter it.
type Registry struct {
	mu       sync.Mutex
	readings map[string]Reading
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{readings: make(map[string]Reading)}
}

// Upsert stores r under r.Name, replacing any previous reading.
// Only readings that passed Validate should be stored.
func (g *Registry) Upsert(r Reading) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Keep timestamps strictly increasing per name.
	if prev, ok := g.readings[r.Name]; ok && !r.LastUpdated.After(prev.LastUpdated) {
		r.LastUpdated = prev.LastUpdated.Add(time.Nanosecond)
	}
	g.readings[r.Name] = r
}

// Get returns the reading stored for name.
func (g *Registry) Get(name string) (Reading, bool) {
	g.mu.Lock()
	r, ok := g.readings[name]
	g.mu.Unlock()
	return r, ok
}

// EvictStale removes every reading last updated more than threshold before
// now and returns how many were removed.
func (g *Registry) EvictStale(now time.Time, threshold time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for name, r := range g.readings {
		if now.Sub(r.LastUpdated) > threshold {
			delete(g.readings, name)
			removed++
		}
	}
	return removed
}

// Names returns the current device names in sorted order.
func (g *Registry) Names() []string {
	g.mu.Lock()
	names := make([]string, 0, len(g.readings))
	for name := range g.readings {
		names = append(names, name)
	}
	g.mu.Unlock()

	sort.Strings(names)
	return names
}

// Snapshot returns a copy of all readings sorted by name.
// The copy is owned by the caller.
func (g *Registry) Snapshot() []Reading {
	g.mu.Lock()
	out := make([]Reading, 0, len(g.readings))
	for _, r := range g.readings {
		out = append(out, r)
	}
	g.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of stored readings.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.readings)
}
