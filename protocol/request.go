package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownParameter = errors.New("parameter not found")
	ErrUnknownTool      = errors.New("unknown tool")
)

// CallArgs provides typed access to a tool call's arguments. Used by the
// router's built-in tool handlers (gate/*, discover_tools, ...) so they
// read arguments the same way the rest of the proxy validates them.
type CallArgs struct {
	args map[string]interface{}
}

func NewCallArgs(args map[string]interface{}) *CallArgs {
	if args == nil {
		args = map[string]interface{}{}
	}
	return &CallArgs{args: args}
}

func (r *CallArgs) String(name string) (string, error) {
	val, ok := r.args[name]
	if !ok {
		return "", ErrUnknownParameter
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q is not a string", name)
	}
	return str, nil
}

func (r *CallArgs) StringOr(name, def string) string {
	if v, err := r.String(name); err == nil {
		return v
	}
	return def
}

func (r *CallArgs) Int(name string) (int, error) {
	val, ok := r.args[name]
	if !ok {
		return 0, ErrUnknownParameter
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %q is not a number", name)
	}
}

func (r *CallArgs) IntOr(name string, def int) int {
	if v, err := r.Int(name); err == nil {
		return v
	}
	return def
}

func (r *CallArgs) Bool(name string) (bool, error) {
	val, ok := r.args[name]
	if !ok {
		return false, ErrUnknownParameter
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %q is not a boolean", name)
	}
	return b, nil
}

func (r *CallArgs) BoolOr(name string, def bool) bool {
	if v, err := r.Bool(name); err == nil {
		return v
	}
	return def
}

func (r *CallArgs) StringSlice(name string) ([]string, error) {
	val, ok := r.args[name]
	if !ok {
		return nil, ErrUnknownParameter
	}
	arr, ok := val.([]interface{})
	if !ok {
		return nil, fmt.Errorf("parameter %q is not an array", name)
	}
	out := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q has non-string element at index %d", name, i)
		}
		out[i] = s
	}
	return out, nil
}

func (r *CallArgs) Raw() map[string]interface{} {
	return r.args
}
