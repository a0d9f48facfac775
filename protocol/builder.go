package protocol

import "strings"

// Parameter is a single named input to a ToolBuilder schema.
type Parameter struct {
	name        string
	paramType   string // "string", "number", "boolean", "object", "array:<item-type>"
	description string
	required    bool
	properties  []Parameter // for "object" and "array:object"
}

// Option mutates a Parameter at construction time.
type Option func(*Parameter)

// Required marks a parameter as required on its enclosing schema.
func Required() Option {
	return func(p *Parameter) { p.required = true }
}

func newParam(name, ptype, description string, opts []Option) Parameter {
	p := Parameter{name: name, paramType: ptype, description: description}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func String(name, description string, opts ...Option) Parameter {
	return newParam(name, "string", description, opts)
}

func Number(name, description string, opts ...Option) Parameter {
	return newParam(name, "number", description, opts)
}

func Boolean(name, description string, opts ...Option) Parameter {
	return newParam(name, "boolean", description, opts)
}

func StringArray(name, description string, opts ...Option) Parameter {
	return newParam(name, "array:string", description, opts)
}

func Object(name, description string, properties []Parameter, opts ...Option) Parameter {
	p := newParam(name, "object", description, opts)
	p.properties = properties
	return p
}

// ToolBuilder provides a fluent API for constructing a Tool's InputSchema,
// used by the router to build the built-in gate/discovery tool schemas
// without hand-writing JSON-Schema maps (adapted from the teacher's
// declarative tool API).
type ToolBuilder struct {
	name        string
	description string
	categories  []string
	params      []Parameter
}

func NewTool(name, description string, params ...Parameter) *ToolBuilder {
	return &ToolBuilder{name: name, description: description, params: params}
}

func (b *ToolBuilder) Categories(categories ...string) *ToolBuilder {
	b.categories = categories
	return b
}

func (b *ToolBuilder) Build() Tool {
	return Tool{
		Name:        b.name,
		Description: normalizeDescription(b.description),
		InputSchema: buildSchema(b.params),
		Categories:  b.categories,
	}
}

func normalizeDescription(desc string) string {
	desc = strings.ReplaceAll(desc, "\n", " ")
	desc = strings.ReplaceAll(desc, "\t", " ")
	return strings.Join(strings.Fields(desc), " ")
}

func buildSchema(params []Parameter) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	var required []string
	for _, p := range params {
		properties[p.name] = paramSchema(p)
		if p.required {
			required = append(required, p.name)
		}
	}
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func paramSchema(p Parameter) map[string]interface{} {
	var out map[string]interface{}
	switch {
	case strings.HasPrefix(p.paramType, "array:"):
		itemType := strings.TrimPrefix(p.paramType, "array:")
		out = map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": itemType},
		}
	case p.paramType == "object" && len(p.properties) > 0:
		out = buildSchema(p.properties)
	default:
		out = map[string]interface{}{"type": p.paramType}
	}
	if p.description != "" {
		out["description"] = p.description
	}
	return out
}
