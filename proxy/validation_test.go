package proxy

import (
	"testing"

	"github.com/toolgate/toolgate/protocol"
)

func objectSchema(properties map[string]interface{}, required []interface{}, additional bool) map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": additional,
	}
}

func TestValidateInputRejectsUnknownProperty(t *testing.T) {
	schema := objectSchema(map[string]interface{}{
		"path": map[string]interface{}{"type": "string"},
	}, nil, false)
	err := ValidateInput(schema, map[string]interface{}{"unexpected": "x"})
	if err != protocol.ErrUnknownProperty {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
}

func TestValidateInputAllowsAdditionalWhenExplicit(t *testing.T) {
	schema := objectSchema(map[string]interface{}{
		"path": map[string]interface{}{"type": "string"},
	}, nil, true)
	if err := ValidateInput(schema, map[string]interface{}{"unexpected": "x"}); err != nil {
		t.Fatalf("expected no error with additionalProperties=true, got %v", err)
	}
}

func TestValidateInputRejectsMissingRequired(t *testing.T) {
	schema := objectSchema(map[string]interface{}{
		"path": map[string]interface{}{"type": "string"},
	}, []interface{}{"path"}, false)
	err := ValidateInput(schema, map[string]interface{}{})
	if err != protocol.ErrMissingRequired {
		t.Fatalf("expected ErrMissingRequired, got %v", err)
	}
}

func TestValidateInputRejectsTypeMismatch(t *testing.T) {
	schema := objectSchema(map[string]interface{}{
		"count": map[string]interface{}{"type": "number"},
	}, nil, false)
	err := ValidateInput(schema, map[string]interface{}{"count": "not-a-number"})
	if err != protocol.ErrTypeMismatch {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestValidateInputAcceptsWellFormedInput(t *testing.T) {
	schema := objectSchema(map[string]interface{}{
		"path":  map[string]interface{}{"type": "string"},
		"count": map[string]interface{}{"type": "number"},
	}, []interface{}{"path"}, false)
	err := ValidateInput(schema, map[string]interface{}{"path": "/tmp", "count": float64(3)})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateInputNilSchemaAllowsAnything(t *testing.T) {
	if err := ValidateInput(nil, map[string]interface{}{"anything": true}); err != nil {
		t.Fatalf("expected no error for nil schema, got %v", err)
	}
}
