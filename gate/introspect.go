package gate

import "sort"

// ManifestInfo is the read-only view of a registered toolset's manifest
// sidecar, returned by ListManifests for discover_toolsets without paying
// the cost of loading any toolset.
type ManifestInfo struct {
	ID          string
	Name        string
	Description string
	Tools       []string
	State       string
}

// ListManifests returns every registered toolset's manifest (or a bare
// {ID, State} entry if it never registered one), sorted by id.
func (c *Controller) ListManifests() []ManifestInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]ManifestInfo, 0, len(c.toolsets))
	for id, ts := range c.toolsets {
		info := ManifestInfo{ID: id, State: c.states[id].String()}
		if ts.Manifest != nil {
			info.Name = ts.Manifest.Name
			info.Description = ts.Manifest.Description
			info.Tools = append([]string(nil), ts.Manifest.Tools...)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UsageStat is one toolset's activation/usage snapshot, returned by
// UsageStats for the gate/usage_stats built-in tool.
type UsageStat struct {
	ID         string
	State      string
	Pinned     bool
	LastUsedAt int64 // unix nanos, 0 if never activated
}

// UsageStats returns a snapshot of every registered toolset's current
// state, pin status, and last-used time.
func (c *Controller) UsageStats() []UsageStat {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]UsageStat, 0, len(c.toolsets))
	for id := range c.toolsets {
		_, pinned := c.pinnedSet[id]
		stat := UsageStat{ID: id, State: c.states[id].String(), Pinned: pinned}
		if u, ok := c.usage[id]; ok {
			stat.LastUsedAt = u.lastUsedAt.UnixNano()
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ToolsetTools returns the names of every tool currently owned by id,
// sorted. Empty if id isn't active (or doesn't exist).
func (c *Controller) ToolsetTools(id string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for name, owner := range c.owner {
		if owner == id {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ListPinned returns the ids of every currently pinned toolset, sorted.
func (c *Controller) ListPinned() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.pinnedSet))
	for id := range c.pinnedSet {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
