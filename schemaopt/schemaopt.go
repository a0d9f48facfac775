// Package schemaopt implements the Schema Optimizer (spec.md §4.1, C1): a
// pure function that shrinks a tool descriptor's footprint before it is
// shown to a client, by truncating descriptions and dropping fields an LLM
// never needs to see.
//
// There is no teacher equivalent — paularlott-mcp's ToolBuilder always
// emits the schema a caller asked for and never rewrites it after the
// fact — so this package is new, written in the teacher's small,
// single-purpose-file style (compare visibility.go).
package schemaopt

import (
	"unicode/utf8"

	"github.com/toolgate/toolgate/protocol"
)

// maxDescriptionCodePoints is the truncation length from spec.md §4.1.
const maxDescriptionCodePoints = 50

// Optimize returns a new Tool where every description (on the tool itself,
// on the root input schema, and recursively through every nested schema
// node) is truncated to at most 50 code points, and every schema node has
// its "default" and "examples" keys removed. All other keys, and array
// ordering, are preserved. The input is never mutated.
func Optimize(tool protocol.Tool) protocol.Tool {
	out := tool.Clone()
	out.Description = truncate(out.Description)
	if out.InputSchema != nil {
		out.InputSchema = optimizeNode(out.InputSchema)
	}
	return out
}

// truncate slices s to at most maxDescriptionCodePoints Unicode code
// points. It is a plain slice, not an ellipsis-suffixed truncation, per
// spec.md §4.1.
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxDescriptionCodePoints {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxDescriptionCodePoints])
}

func optimizeNode(node map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(node))
	for k, v := range node {
		if k == "default" || k == "examples" {
			continue
		}
		if k == "description" {
			if s, ok := v.(string); ok {
				out[k] = truncate(s)
				continue
			}
			// Non-string description values are left unchanged.
			out[k] = v
			continue
		}
		out[k] = optimizeValue(v)
	}
	return out
}

func optimizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return optimizeNode(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = optimizeValue(item)
		}
		return out
	default:
		return val
	}
}
