package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// Param describes one named argument.
type Param struct {
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	Enum        []string  `json:"enum,omitempty"`
}

// Schema maps parameter names to their descriptions.
type Schema map[string]Param

// Names returns parameter names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JSONSchema renders the schema as a JSON Schema object, the form every
// model provider accepts for function parameters.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s))
	required := []string{}
	for _, name := range s.Names() {
		p := s[name]
		prop := map[string]any{"type": string(p.Type), "description": p.Description}
		if len(p.Enum) > 0 {
			prop["enum"] = append([]string(nil), p.Enum...)
		}
		props[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// validate checks args against the schema and returns a normalised copy:
// integers become int64, numbers float64, unknown keys are dropped.
func (s Schema) validate(tool string, args map[string]any) (Arguments, error) {
	out := make(Arguments, len(s))
	for _, name := range s.Names() {
		p := s[name]
		raw, present := args[name]
		if !present || raw == nil {
			if p.Required {
				return nil, &MissingParameterError{Tool: tool, Param: name}
			}
			continue
		}
		v, err := coerce(p, raw)
		if err != nil {
			return nil, &TypeMismatchError{Tool: tool, Param: name, Expected: p.Type, Detail: err.Error()}
		}
		if str, ok := v.(string); ok && p.Required && strings.TrimSpace(str) == "" {
			return nil, &MissingParameterError{Tool: tool, Param: name}
		}
		out[name] = v
	}
	return out, nil
}

func coerce(p Param, raw any) (any, error) {
	switch p.Type {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("got %s", jsonKind(raw))
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(p.Enum, ", "))
		}
		return s, nil
	case TypeInteger:
		switch n := raw.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		}
		f, ok := asFloat(raw)
		if !ok {
			return nil, fmt.Errorf("got %s", jsonKind(raw))
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("got fractional number %v", f)
		}
		// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, fmt.Errorf("%v is out of integer range", f)
		}
		return int64(f), nil
	case TypeNumber:
		f, ok := asFloat(raw)
		if !ok {
			return nil, fmt.Errorf("got %s", jsonKind(raw))
		}
		return f, nil
	case TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("got %s", jsonKind(raw))
		}
		return b, nil
	case TypeArray:
		a, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("got %s", jsonKind(raw))
		}
		return a, nil
	case TypeObject:
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("got %s", jsonKind(raw))
		}
		return m, nil
	default:
		return raw, nil
	}
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func jsonKind(raw any) string {
	switch raw.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", raw)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Arguments are validated, normalised tool arguments.
type Arguments map[string]any

// String returns the named string argument, or "" when absent.
func (a Arguments) String(name string) string {
	s, _ := a[name].(string)
	return strings.TrimSpace(s)
}

// Int returns the named integer argument.
func (a Arguments) Int(name string) (int64, bool) {
	v, ok := a[name].(int64)
	return v, ok
}

// Bool returns the named boolean argument.
func (a Arguments) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}
