package dispatcher

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Param accessors with pragmatic coercion: callers (LLMs, workflow
// nodes) frequently pass numbers and booleans as strings, so the
// accessors coerce a small primitive subset instead of failing.

// RequiredString returns a required string parameter or a VALIDATION
// error naming the missing parameter.
func (c ToolCall) RequiredString(name string) (string, error) {
	v, ok := c.Params[name]
	if !ok {
		return "", Validationf("missing required parameter %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", Validationf("parameter %q must be a string", name)
	}
	return s, nil
}

// StringParam returns a string parameter or the fallback.
func (c ToolCall) StringParam(name, fallback string) string {
	if v, ok := c.Params[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// NumberParam returns a numeric parameter, coercing numeric strings.
func (c ToolCall) NumberParam(name string, fallback float64) float64 {
	v, ok := c.Params[name]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return fallback
}

// BoolParam returns a boolean parameter, coercing "true"/"false".
func (c ToolCall) BoolParam(name string, fallback bool) bool {
	v, ok := c.Params[name]
	if !ok {
		return fallback
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.TrimSpace(strings.ToLower(b)) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return fallback
}

// MapParam returns an object parameter, accepting a JSON-encoded
// string as a fallback representation.
func (c ToolCall) MapParam(name string) map[string]interface{} {
	v, ok := c.Params[name]
	if !ok {
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	if s, ok := v.(string); ok {
		var parsed map[string]interface{}
		if json.Unmarshal([]byte(s), &parsed) == nil {
			return parsed
		}
	}
	return nil
}

// SliceParam returns an array parameter, accepting a JSON-encoded
// string as a fallback representation.
func (c ToolCall) SliceParam(name string) []interface{} {
	v, ok := c.Params[name]
	if !ok {
		return nil
	}
	if a, ok := v.([]interface{}); ok {
		return a
	}
	if s, ok := v.(string); ok {
		var parsed []interface{}
		if json.Unmarshal([]byte(s), &parsed) == nil {
			return parsed
		}
	}
	return nil
}
