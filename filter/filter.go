// Package filter implements the ordered, side-effect-free Filter Chain
// (spec.md §4.3, C3). Each filter is a pure mapping over an ordered tool
// set; none of them mutate their input, matching the small value-type
// style of the teacher's visibility.go.
package filter

import "github.com/toolgate/toolgate/protocol"

// Context carries the per-call parameters the filters read.
type Context struct {
	TaskType string
}

// ToolSet is an ordered view of active tools: a slice preserves iteration
// order so filters can reason about "first N" and stable ordering as
// spec.md requires.
type ToolSet []protocol.Tool

// Filter maps one ToolSet to another without mutating the input.
type Filter interface {
	Apply(tools ToolSet, ctx Context) ToolSet
}

// Chain runs a fixed, ordered sequence of filters. The zero value (no
// filters configured) is the identity chain.
type Chain struct {
	filters []Filter
}

// NewChain builds the fixed-order chain from spec.md §4.3: TaskType,
// then Resource, then Security. Any nil entry is a disabled filter and is
// skipped.
func NewChain(taskType, resource, security Filter) *Chain {
	c := &Chain{}
	for _, f := range []Filter{taskType, resource, security} {
		if f != nil {
			c.filters = append(c.filters, f)
		}
	}
	return c
}

// Apply runs the chain in order. It is idempotent on a fixed input because
// every stage filter is itself idempotent given unchanged ctx.
func (c *Chain) Apply(tools ToolSet, ctx Context) ToolSet {
	out := tools
	for _, f := range c.filters {
		out = f.Apply(out, ctx)
	}
	return out
}

func cloneSet(tools ToolSet) ToolSet {
	out := make(ToolSet, len(tools))
	copy(out, tools)
	return out
}
