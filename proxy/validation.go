package proxy

import (
	"github.com/toolgate/toolgate/protocol"
)

// ValidateInput enforces the subset of JSON-Schema spec.md §4.7 requires:
// object-typed inputs only, unknown-property rejection (unless
// additionalProperties is explicitly true), required-property presence,
// and primitive type checks for declared property types.
func ValidateInput(schema map[string]interface{}, input map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if t, ok := schema["type"].(string); ok && t == "object" {
		if input == nil {
			return protocol.ErrInvalidInput
		}
	}

	properties, _ := schema["properties"].(map[string]interface{})
	allowAdditional, _ := schema["additionalProperties"].(bool)

	if properties != nil && !allowAdditional {
		for name := range input {
			if _, declared := properties[name]; !declared {
				return protocol.ErrUnknownProperty
			}
		}
	}

	if required, ok := schema["required"].([]interface{}); ok {
		for _, r := range required {
			name, _ := r.(string)
			if _, present := input[name]; !present {
				return protocol.ErrMissingRequired
			}
		}
	} else if required, ok := schema["required"].([]string); ok {
		for _, name := range required {
			if _, present := input[name]; !present {
				return protocol.ErrMissingRequired
			}
		}
	}

	for name, propSchema := range properties {
		value, present := input[name]
		if !present {
			continue
		}
		propMap, ok := propSchema.(map[string]interface{})
		if !ok {
			continue
		}
		declaredType, ok := propMap["type"].(string)
		if !ok {
			continue
		}
		if !matchesType(value, declaredType) {
			return protocol.ErrTypeMismatch
		}
	}

	return nil
}

func matchesType(value interface{}, declaredType string) bool {
	switch declaredType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
			return true
		default:
			return false
		}
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	case "array":
		_, ok := value.([]interface{})
		return ok
	case "null":
		return value == nil
	default:
		return true
	}
}
