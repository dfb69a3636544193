package commands

import (
	"slices"
	"sort"

	"github.com/sipeed/picoshell/pkg/logger"
)

// Registry maps command names to definitions. It is populated during
// setup and must not be modified once a session is reading from it.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry registers defs in order; a later definition replaces an
// earlier one with the same key.
func NewRegistry(defs []Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		r.Register(d)
	}
	return r
}

// Register adds or replaces d and returns the key it was stored under.
// Definitions without a handler cannot be invoked and are skipped, in
// which case the returned key is empty.
func (r *Registry) Register(d Definition) string {
	if d.Handler == nil {
		logger.WarnCF("registry", "Skipping command without handler", map[string]any{
			"name": d.Name,
		})
		return ""
	}

	key := registryKey(d)
	if key == "" {
		logger.WarnC("registry", "Skipping command with empty name")
		return ""
	}
	d.Name = key
	d.Params = slices.Clone(d.Params)

	if _, exists := r.defs[key]; exists {
		logger.DebugCF("registry", "Command replaced", map[string]any{"name": key})
	}
	r.defs[key] = d
	return key
}

func (r *Registry) Lookup(name string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	d, ok := r.defs[name]
	return d, ok
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.defs)
}

// Definitions returns every registered command sorted by name.
func (r *Registry) Definitions() []Definition {
	if r == nil {
		return nil
	}
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
