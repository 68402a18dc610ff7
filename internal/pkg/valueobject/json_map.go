package valueobject

import (
	"encoding/json"
	"math"
	"strings"
)

// JSONMap stores arbitrary JSON object data, such as a request payload whose
// fields depend on the operation being performed.
type JSONMap map[string]any

// Set adds or updates a key-value pair.
func (j JSONMap) Set(key string, value any) {
	j[key] = value
}

// Get returns the raw value or nil.
func (j JSONMap) Get(key string) any {
	return j[key]
}

// Has checks if a key exists.
func (j JSONMap) Has(key string) bool {
	_, ok := j[key]
	return ok
}

// Without returns a copy of j minus the given keys.
func (j JSONMap) Without(keys ...string) JSONMap {
	out := make(JSONMap, len(j))
	for k, v := range j {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// GetString safely returns a string value. Returns "" if missing or wrong type.
func (j JSONMap) GetString(key string) string {
	if v, ok := j[key].(string); ok {
		return v
	}
	return ""
}

// LookupString returns the trimmed string under key and whether it is non-empty.
func (j JSONMap) LookupString(key string) (string, bool) {
	v := strings.TrimSpace(j.GetString(key))
	return v, v != ""
}

// LookupInt64 returns the integer under key. It accepts json.Number, float64
// without a fractional part, and numeric strings.
func (j JSONMap) LookupInt64(key string) (int64, bool) {
	switch v := j[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := json.Number(strings.TrimSpace(v)).Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// GetBool safely returns a boolean. Returns false if missing or wrong type.
func (j JSONMap) GetBool(key string) bool {
	if v, ok := j[key].(bool); ok {
		return v
	}
	return false
}
