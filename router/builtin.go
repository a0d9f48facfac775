package router

import (
	"context"
	"runtime"

	"github.com/toolgate/toolgate/protocol"
)

// handlerFunc executes a built-in tool call. args is the decoded
// "arguments" object from the tools/call request.
type handlerFunc func(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error)

// builtinTools holds the full descriptor (including InputSchema) for each
// of the 14 built-in tools from spec.md §6, built with protocol.ToolBuilder
// instead of hand-written JSON-Schema maps. tools/schema serves these
// directly; tools/list only needs the Name/Description projection.
var builtinTools = []protocol.Tool{
	protocol.NewTool("system/info", "Reports proxy version and Go runtime information.").Build(),
	protocol.NewTool("system/health", "Reports whether the proxy is healthy.").Build(),
	protocol.NewTool("tools/list", "Lists every tool name and description currently callable.").Build(),
	protocol.NewTool("tools/schema", "Returns the full descriptor for a named tool.",
		protocol.String("name", "Tool name to describe.", protocol.Required()),
	).Build(),
	protocol.NewTool("discover_tools", "Scores the full catalogue against a free-text query.",
		protocol.String("query", "Free-text search query."),
		protocol.Number("limit", "Maximum number of results to return."),
	).Build(),
	protocol.NewTool("provision_tools", "Returns the highest-scoring tools that fit a token budget.",
		protocol.String("query", "Free-text search query."),
		protocol.Number("maxTokens", "Token budget to fit the returned tools into."),
	).Build(),
	protocol.NewTool("gate/discover_toolsets", "Lists registered toolsets without loading them.").Build(),
	protocol.NewTool("gate/enable_toolset", "Activates a toolset by name.",
		protocol.String("name", "Toolset name to activate.", protocol.Required()),
	).Build(),
	protocol.NewTool("gate/disable_toolset", "Deactivates a toolset by name.",
		protocol.String("name", "Toolset name to deactivate.", protocol.Required()),
	).Build(),
	protocol.NewTool("gate/list_active_tools", "Lists the tools currently active in the gate.",
		protocol.String("taskType", "Optional task-type filter."),
	).Build(),
	protocol.NewTool("gate/pin_toolset", "Pins a toolset so it is never evicted automatically.",
		protocol.String("name", "Toolset name to pin.", protocol.Required()),
	).Build(),
	protocol.NewTool("gate/unpin_toolset", "Clears a toolset's pin.",
		protocol.String("name", "Toolset name to unpin.", protocol.Required()),
	).Build(),
	protocol.NewTool("gate/list_pinned", "Lists currently pinned toolset names.").Build(),
	protocol.NewTool("gate/usage_stats", "Reports activation state and last-used time per toolset.").Build(),
}

// builtinByName indexes builtinTools for tools/schema lookups.
var builtinByName = func() map[string]protocol.Tool {
	m := make(map[string]protocol.Tool, len(builtinTools))
	for _, t := range builtinTools {
		m[t.Name] = t
	}
	return m
}()

var builtinHandlers = map[string]handlerFunc{
	"system/info":            handleSystemInfo,
	"system/health":          handleSystemHealth,
	"tools/list":             handleToolsListTool,
	"tools/schema":           handleToolsSchema,
	"discover_tools":         handleDiscoverTools,
	"provision_tools":        handleProvisionTools,
	"gate/discover_toolsets": handleGateDiscoverToolsets,
	"gate/enable_toolset":    handleGateEnableToolset,
	"gate/disable_toolset":   handleGateDisableToolset,
	"gate/list_active_tools": handleGateListActiveTools,
	"gate/pin_toolset":       handleGatePinToolset,
	"gate/unpin_toolset":     handleGateUnpinToolset,
	"gate/list_pinned":       handleGateListPinned,
	"gate/usage_stats":       handleGateUsageStats,
}

func handleSystemInfo(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"version": r.ServerInfo.Version,
		"runtime": runtime.Version(),
	}, nil
}

func handleSystemHealth(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{"healthy": true}, nil
}

func handleToolsListTool(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	all := r.Repo.All()
	entries := make([]protocol.ToolListEntry, len(all))
	for i, t := range all {
		entries[i] = protocol.ToolListEntry{Name: t.Name, Description: t.Description}
	}
	return entries, nil
}

func handleToolsSchema(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return nil, protocol.ErrInvalidInput
	}
	if tool, ok := builtinByName[name]; ok {
		return tool, nil
	}
	tool, ok := r.Repo.Get(name)
	if !ok {
		return nil, protocol.ErrUnknownTool
	}
	return tool, nil
}

func handleDiscoverTools(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	query, _ := args["query"].(string)
	limit := 10
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	return r.Gating.Discover(query, limit), nil
}

func handleProvisionTools(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	query, _ := args["query"].(string)
	maxTokens := 0
	if v, ok := args["maxTokens"].(float64); ok {
		maxTokens = int(v)
	}
	return r.Gating.Provision(query, maxTokens), nil
}

func handleGateDiscoverToolsets(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	manifests := r.Gate.ListManifests()
	ids := make([]string, len(manifests))
	for i, m := range manifests {
		ids[i] = m.ID
	}
	return map[string]interface{}{"toolsets": ids}, nil
}

func handleGateEnableToolset(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return nil, protocol.ErrInvalidInput
	}
	if err := r.Gate.EnableToolset(name); err != nil {
		return nil, err
	}
	r.emitListChanged(ctx)
	return map[string]interface{}{"tools": r.Gate.ToolsetTools(name)}, nil
}

func handleGateDisableToolset(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return nil, protocol.ErrInvalidInput
	}
	tools := r.Gate.ToolsetTools(name)
	r.Gate.DisableToolset(name)
	r.emitListChanged(ctx)
	return map[string]interface{}{"tools": tools}, nil
}

func handleGateListActiveTools(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	active := r.Gate.AvailableTools(filterContextFrom(args))
	names := make([]string, len(active))
	for i, t := range active {
		names[i] = t.Name
	}
	return map[string]interface{}{"tools": names}, nil
}

func handleGatePinToolset(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return nil, protocol.ErrInvalidInput
	}
	r.Gate.Pin(name)
	return map[string]interface{}{"name": name, "pinned": true}, nil
}

func handleGateUnpinToolset(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return nil, protocol.ErrInvalidInput
	}
	r.Gate.Unpin(name)
	return map[string]interface{}{"name": name, "pinned": false}, nil
}

func handleGateListPinned(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{"toolsets": r.Gate.ListPinned()}, nil
}

func handleGateUsageStats(ctx context.Context, r *Router, args map[string]interface{}) (interface{}, error) {
	return r.Gate.UsageStats(), nil
}
