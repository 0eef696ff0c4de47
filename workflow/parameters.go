package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResolveParameter looks up name in node's parameters, falling back to the
// schema default of desc, then to the explicit fallback. Dotted names
// descend into collections and resource locators ("model.value").
// Expressions are not evaluated; values are used as stored.
func ResolveParameter(desc *NodeDescription, node *Node, name string, itemIndex int, fallback ...any) (any, error) {
	nodeName := ""
	var params map[string]any
	if node != nil {
		nodeName = node.Name
		params = node.Parameters
	}
	perr := func(reason string, args ...any) error {
		return &ParameterError{Node: nodeName, Parameter: name, ItemIndex: itemIndex, Reason: fmt.Sprintf(reason, args...)}
	}

	path := strings.Split(name, ".")
	top := path[0]

	var prop *Property
	if desc != nil {
		prop, _ = desc.Property(top)
	}

	value, ok := params[top]
	if !ok || value == nil {
		switch {
		case prop != nil && prop.Default != nil:
			value = cloneValue(prop.Default)
		case len(fallback) > 0:
			return fallback[0], nil
		case prop != nil && prop.Required:
			return nil, perr("required parameter is missing")
		default:
			return nil, perr("parameter is not set")
		}
	}

	if prop != nil {
		var err error
		if value, err = checkType(prop, value); err != nil {
			return nil, perr("%v", err)
		}
		if prop.Required && isEmpty(prop, value) {
			return nil, perr("required parameter is empty")
		}
	}

	for _, key := range path[1:] {
		m, isMap := value.(map[string]any)
		if !isMap {
			return nil, perr("cannot read %q from %T", key, value)
		}
		next, found := m[key]
		if !found || next == nil {
			if len(fallback) > 0 {
				return fallback[0], nil
			}
			return nil, perr("parameter is not set")
		}
		value = next
	}
	return value, nil
}

// checkType validates value against the declared property type, and
// normalizes resource locators given as a bare string.
func checkType(prop *Property, value any) (any, error) {
	switch prop.Type {
	case PropertyString:
		if _, ok := value.(string); !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
	case PropertyNumber:
		if _, ok := ToFloat(value); !ok {
			return nil, fmt.Errorf("expected number, got %T", value)
		}
	case PropertyBoolean:
		if _, ok := value.(bool); !ok {
			return nil, fmt.Errorf("expected boolean, got %T", value)
		}
	case PropertyCollection:
		if _, ok := value.(map[string]any); !ok {
			return nil, fmt.Errorf("expected collection, got %T", value)
		}
	case PropertyOptions:
		for _, opt := range prop.Options {
			if opt.Value == value {
				return value, nil
			}
		}
		return nil, fmt.Errorf("value %v is not one of the allowed options", value)
	case PropertyResourceLocator:
		switch v := value.(type) {
		case string:
			mode := "id"
			if len(prop.Modes) > 0 {
				mode = prop.Modes[0].Name
			}
			return map[string]any{"__rl": true, "mode": mode, "value": v}, nil
		case map[string]any:
			if _, ok := v["value"]; !ok {
				return nil, fmt.Errorf("resource locator without value")
			}
		default:
			return nil, fmt.Errorf("expected resource locator, got %T", value)
		}
	}
	return value, nil
}

func isEmpty(prop *Property, value any) bool {
	switch prop.Type {
	case PropertyString:
		return strings.TrimSpace(value.(string)) == ""
	case PropertyResourceLocator:
		s, ok := value.(map[string]any)["value"].(string)
		return ok && strings.TrimSpace(s) == ""
	}
	return false
}

// ToFloat converts the numeric shapes parameters arrive in (YAML ints,
// JSON float64, json.Number).
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	}
	return v
}

// GetString resolves a string parameter.
func GetString(fns SupplyDataFunctions, name string, itemIndex int, fallback ...any) (string, error) {
	v, err := fns.GetNodeParameter(name, itemIndex, fallback...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &ParameterError{Node: nodeName(fns), Parameter: name, ItemIndex: itemIndex, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

// GetCollection resolves a collection parameter. A nil result becomes an
// empty map.
func GetCollection(fns SupplyDataFunctions, name string, itemIndex int, fallback ...any) (map[string]any, error) {
	v, err := fns.GetNodeParameter(name, itemIndex, fallback...)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ParameterError{Node: nodeName(fns), Parameter: name, ItemIndex: itemIndex, Reason: fmt.Sprintf("expected collection, got %T", v)}
	}
	return m, nil
}

func nodeName(fns SupplyDataFunctions) string {
	if n := fns.Node(); n != nil {
		return n.Name
	}
	return ""
}
