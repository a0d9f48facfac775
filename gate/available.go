package gate

import (
	"github.com/toolgate/toolgate/filter"
	"github.com/toolgate/toolgate/protocol"
)

// buildReverseLocked populates the normalized-name -> candidate-toolset-id
// index from registered manifests, without invoking any loader. Must be
// called with c.mu held.
func (c *Controller) buildReverseLocked() {
	if c.reverseBuilt {
		return
	}
	c.reverse = make(map[string][]string)
	for id, ts := range c.toolsets {
		if ts.Manifest == nil {
			continue
		}
		for _, name := range ts.Manifest.Tools {
			key := c.normalize(name)
			c.reverse[key] = append(c.reverse[key], id)
		}
	}
	c.reverseBuilt = true
}

// EnsureToolAvailable implements spec.md §4.4's activation procedure: if
// the tool is already active it is a fast path; otherwise it consults the
// reverse index, selects an owner by conflict policy, checks auto-enable
// gating, and enables under an in-flight barrier shared by concurrent
// callers targeting the same toolset.
func (c *Controller) EnsureToolAvailable(toolName string) (bool, error) {
	c.mu.Lock()
	if _, ok := c.active[toolName]; ok {
		c.touchLocked(c.owner[toolName])
		c.mu.Unlock()
		return true, nil
	}

	c.buildReverseLocked()
	candidates := c.reverse[c.normalize(toolName)]
	if len(candidates) == 0 {
		c.mu.Unlock()
		return false, nil
	}

	targetID, err := c.selectOwnerLocked(candidates)
	if err != nil {
		c.mu.Unlock()
		return false, err
	}

	if !c.autoEnableAllowedLocked(toolName) {
		c.mu.Unlock()
		return false, nil
	}

	inf, leader := c.joinInflightLocked(targetID)
	c.mu.Unlock()

	if leader {
		err := c.EnableToolset(targetID)
		inf.err = err
		close(inf.done)
		c.mu.Lock()
		delete(c.inflight, targetID)
		c.mu.Unlock()
	} else {
		<-inf.done
	}

	if inf.err != nil {
		return false, inf.err
	}
	return true, nil
}

func (c *Controller) selectOwnerLocked(candidates []string) (string, error) {
	switch c.cfg.ConflictPolicy {
	case ErrorOnAmbiguous:
		if len(candidates) > 1 {
			return "", protocol.ErrAmbiguous
		}
		return candidates[0], nil
	case PreferEnabled:
		for _, id := range candidates {
			if c.states[id] == StateActive {
				return id, nil
			}
		}
		return candidates[0], nil
	default: // FirstMatch
		return candidates[0], nil
	}
}

func (c *Controller) autoEnableAllowedLocked(toolName string) bool {
	if !c.cfg.AutoEnable {
		return false
	}
	for _, blocked := range c.cfg.AutoEnableBlocklist {
		if blocked == toolName {
			return false
		}
	}
	if len(c.cfg.AutoEnableAllowlist) == 0 {
		return true
	}
	for _, allowed := range c.cfg.AutoEnableAllowlist {
		if allowed == toolName {
			return true
		}
	}
	return false
}

// joinInflightLocked returns the shared enable barrier for toolsetID,
// creating it (and marking the caller the leader) if none is in flight.
func (c *Controller) joinInflightLocked(toolsetID string) (*inflightEnable, bool) {
	if inf, ok := c.inflight[toolsetID]; ok {
		return inf, false
	}
	inf := &inflightEnable{done: make(chan struct{})}
	c.inflight[toolsetID] = inf
	return inf, true
}

// Lookup returns the descriptor currently active under toolName, if any.
// It does not trigger activation — callers needing lazy activation should
// use EnsureToolAvailable first.
func (c *Controller) Lookup(toolName string) (protocol.Tool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.active[toolName]
	return t, ok
}

// AvailableTools runs the Filter Chain over the active map and returns the
// resulting ordered view. With a nil chain the active map is returned
// unfiltered, in no particular order.
func (c *Controller) AvailableTools(ctx filter.Context) []protocol.Tool {
	c.mu.Lock()
	tools := make(filter.ToolSet, 0, len(c.active))
	for _, t := range c.active {
		tools = append(tools, t)
	}
	chain := c.chain
	c.mu.Unlock()

	if chain == nil {
		return tools
	}
	return chain.Apply(tools, ctx)
}
