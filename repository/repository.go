// Package repository implements the Tool Repository (spec.md §4.2, C2):
// an in-memory store of every known tool descriptor, indexed by name,
// category, and capability. It is adapted from the teacher's
// internalRegistry (tool_registry.go) — the same "map guarded by one
// RWMutex, rebuild indexes on mutation" shape — generalized from a single
// name index to the three indexes spec.md's data model requires.
package repository

import (
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/toolgate/toolgate/protocol"
)

// searchCacheSize bounds how many distinct recent SearchTools queries stay
// cached; repeated identical searches (e.g. a client re-listing the same
// category during a session) skip the index scan entirely.
const searchCacheSize = 128

// Repository holds every known tool descriptor across enabled and
// discovered backends. It is distinct from (and does not replace) the
// Gate Controller's active-tool map: this store is the full catalogue,
// the gate's map is the live subset currently visible to clients.
type Repository struct {
	mu           sync.RWMutex
	byName       map[string]protocol.Tool
	byCategory   map[string]map[string]struct{} // category -> tool names
	byCapability map[string]map[string]struct{} // capability -> tool names

	searchCache *lru.Cache[string, []protocol.Tool]
}

func New() *Repository {
	cache, _ := lru.New[string, []protocol.Tool](searchCacheSize)
	return &Repository{
		byName:       make(map[string]protocol.Tool),
		byCategory:   make(map[string]map[string]struct{}),
		byCapability: make(map[string]map[string]struct{}),
		searchCache:  cache,
	}
}

func (o SearchOptions) cacheKey() string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%v", o.Name, o.Category, o.Capability, o.IncludeDeprecated)
}

// AddTool inserts or overwrites a tool descriptor and updates its indexes.
// Duplicate names overwrite the prior descriptor, per spec.md §4.2.
func (r *Repository) AddTool(tool protocol.Tool) error {
	if tool.Name == "" {
		return protocol.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[tool.Name]; ok {
		r.deindexLocked(existing)
	}

	r.byName[tool.Name] = tool
	r.indexLocked(tool)
	r.searchCache.Purge()
	return nil
}

func (r *Repository) indexLocked(tool protocol.Tool) {
	for _, cat := range tool.Categories {
		set, ok := r.byCategory[cat]
		if !ok {
			set = make(map[string]struct{})
			r.byCategory[cat] = set
		}
		set[tool.Name] = struct{}{}
	}
	for _, cap := range tool.Capabilities {
		set, ok := r.byCapability[cap]
		if !ok {
			set = make(map[string]struct{})
			r.byCapability[cap] = set
		}
		set[tool.Name] = struct{}{}
	}
}

func (r *Repository) deindexLocked(tool protocol.Tool) {
	for _, cat := range tool.Categories {
		if set, ok := r.byCategory[cat]; ok {
			delete(set, tool.Name)
			if len(set) == 0 {
				delete(r.byCategory, cat)
			}
		}
	}
	for _, cap := range tool.Capabilities {
		if set, ok := r.byCapability[cap]; ok {
			delete(set, tool.Name)
			if len(set) == 0 {
				delete(r.byCapability, cap)
			}
		}
	}
}

// RemoveTool deletes a tool by name and reports whether anything was
// deleted.
func (r *Repository) RemoveTool(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, ok := r.byName[name]
	if !ok {
		return false
	}
	r.deindexLocked(tool)
	delete(r.byName, name)
	r.searchCache.Purge()
	return true
}

// Get returns a tool descriptor by exact name.
func (r *Repository) Get(name string) (protocol.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.byName[name]
	return tool, ok
}

// SearchOptions filters SearchTools; zero value matches everything
// (subject to IncludeDeprecated defaulting to false).
type SearchOptions struct {
	Name              string // substring, case-sensitive
	Category          string // exact match
	Capability        string // exact match
	IncludeDeprecated bool
}

// SearchTools applies intersection semantics over the optional filters in
// opts, per spec.md §4.2.
func (r *Repository) SearchTools(opts SearchOptions) []protocol.Tool {
	key := opts.cacheKey()
	if cached, ok := r.searchCache.Get(key); ok {
		return cached
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidateNames map[string]struct{}
	narrow := func(names map[string]struct{}) {
		if names == nil {
			// No tool has this category/capability: the intersection is empty.
			names = map[string]struct{}{}
		}
		if candidateNames == nil {
			candidateNames = names
			return
		}
		intersected := make(map[string]struct{})
		for n := range candidateNames {
			if _, ok := names[n]; ok {
				intersected[n] = struct{}{}
			}
		}
		candidateNames = intersected
	}

	if opts.Category != "" {
		narrow(r.byCategory[opts.Category])
	}
	if opts.Capability != "" {
		narrow(r.byCapability[opts.Capability])
	}

	var results []protocol.Tool
	consider := func(tool protocol.Tool) {
		if tool.Deprecated && !opts.IncludeDeprecated {
			return
		}
		if opts.Name != "" && !strings.Contains(tool.Name, opts.Name) {
			return
		}
		results = append(results, tool)
	}

	if candidateNames != nil {
		for name := range candidateNames {
			if tool, ok := r.byName[name]; ok {
				consider(tool)
			}
		}
	} else {
		for _, tool := range r.byName {
			consider(tool)
		}
	}
	r.searchCache.Add(key, results)
	return results
}

// Clear resets all three indexes atomically.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]protocol.Tool)
	r.byCategory = make(map[string]map[string]struct{})
	r.byCapability = make(map[string]map[string]struct{})
	r.searchCache.Purge()
}

// All returns every tool currently stored, in no particular order.
func (r *Repository) All() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.Tool, 0, len(r.byName))
	for _, tool := range r.byName {
		out = append(out, tool)
	}
	return out
}

// Len returns the number of stored tools.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
