package gate

import (
	"time"

	"github.com/toolgate/toolgate/event"
	"github.com/toolgate/toolgate/protocol"
	"github.com/toolgate/toolgate/schemaopt"
)

// EnableToolset activates a toolset. It is idempotent: enabling an already
// active toolset is a no-op. Failure leaves the active map untouched — a
// collision aborts the whole enable, never a partial insertion.
func (c *Controller) EnableToolset(id string) error {
	c.mu.Lock()
	ts, ok := c.toolsets[id]
	if !ok {
		c.mu.Unlock()
		return protocol.ErrUnknownToolset
	}
	if c.states[id] == StateActive {
		c.touchLocked(id)
		c.mu.Unlock()
		return nil
	}
	c.states[id] = StateLoading
	c.mu.Unlock()

	tools, err := ts.Loader()
	if err != nil {
		c.mu.Lock()
		c.states[id] = StateUnloaded
		c.mu.Unlock()
		return err
	}

	optimized := make([]protocol.Tool, len(tools))
	for i, t := range tools {
		optimized[i] = schemaopt.Optimize(t)
	}

	c.mu.Lock()

	for _, t := range optimized {
		if owner, exists := c.owner[t.Name]; exists && owner != id {
			c.states[id] = StateUnloaded
			c.mu.Unlock()
			return protocol.ErrCollision
		}
	}

	for _, t := range optimized {
		c.active[t.Name] = t
		c.owner[t.Name] = id
	}
	c.states[id] = StateActive
	c.usage[id] = &usageEntry{lastUsedAt: time.Now()}
	c.reverseBuilt = false
	c.mu.Unlock()

	c.bus.Publish(event.New(event.KindBackendConnected, map[string]interface{}{"toolset": id}))

	// Insert, stamp lastUsedAt, then enforce the cap — never the other way
	// round, or the toolset just enabled could be evicted as the oldest.
	c.EnforceLRUCap()
	return nil
}

// DisableToolset removes every descriptor a toolset provided. Idempotent:
// disabling an unloaded or already-disabled toolset is a no-op. Disabling a
// pinned toolset is explicitly allowed — pinning only prevents automatic
// (TTL/LRU) disable.
func (c *Controller) DisableToolset(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disableLocked(id)
}

func (c *Controller) disableLocked(id string) {
	if c.states[id] != StateActive {
		return
	}
	for name, owner := range c.owner {
		if owner == id {
			delete(c.owner, name)
			delete(c.active, name)
		}
	}
	delete(c.usage, id)
	c.states[id] = StateDisabled
	c.reverseBuilt = false
	c.bus.Publish(event.New(event.KindBackendDisconnected, map[string]interface{}{"toolset": id}))
}

// MarkUsed refreshes the lastUsedAt of the toolset owning toolName, if any.
func (c *Controller) MarkUsed(toolName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if owner, ok := c.owner[toolName]; ok {
		c.touchLocked(owner)
	}
}

func (c *Controller) touchLocked(toolsetID string) {
	if u, ok := c.usage[toolsetID]; ok {
		u.lastUsedAt = time.Now()
	}
}

// Pin marks a toolset so it is never evicted by sweepExpired or
// enforceLRUCap. Pinning a not-yet-enabled toolset is allowed.
func (c *Controller) Pin(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinnedSet[id] = struct{}{}
}

// Unpin clears a pin.
func (c *Controller) Unpin(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pinnedSet, id)
}

// Pinned reports whether id is currently pinned.
func (c *Controller) Pinned(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pinnedSet[id]
	return ok
}

// SweepExpired disables every active, unpinned toolset whose lastUsedAt
// predates the configured TTL. It snapshots victims before disabling any of
// them so the disable calls never hold the lock across I/O performed by a
// loader (there is none on disable, but this mirrors enableToolset's
// pattern for symmetry).
func (c *Controller) SweepExpired() []string {
	if c.cfg.TTL <= 0 {
		return nil
	}
	now := time.Now()

	c.mu.Lock()
	var victims []string
	for id, u := range c.usage {
		if _, pinned := c.pinnedSet[id]; pinned {
			continue
		}
		if now.Sub(u.lastUsedAt) >= c.cfg.TTL {
			victims = append(victims, id)
		}
	}
	c.mu.Unlock()

	for _, id := range victims {
		c.DisableToolset(id)
	}
	return victims
}

// EnforceLRUCap disables the oldest unpinned active toolsets until the
// active count is at or below MaxActiveToolsets (0 = unlimited).
func (c *Controller) EnforceLRUCap() []string {
	if c.cfg.MaxActiveToolsets <= 0 {
		return nil
	}

	var disabled []string
	for {
		c.mu.Lock()
		if len(c.usage) <= c.cfg.MaxActiveToolsets {
			c.mu.Unlock()
			break
		}
		var oldestID string
		var oldestAt time.Time
		first := true
		for id, u := range c.usage {
			if _, pinned := c.pinnedSet[id]; pinned {
				continue
			}
			if first || u.lastUsedAt.Before(oldestAt) {
				oldestID = id
				oldestAt = u.lastUsedAt
				first = false
			}
		}
		if oldestID == "" {
			c.mu.Unlock()
			break
		}
		c.disableLocked(oldestID)
		c.mu.Unlock()
		disabled = append(disabled, oldestID)
	}
	return disabled
}
