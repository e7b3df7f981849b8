package persona

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Input is the flat questionnaire data collected for a persona. Values
// arrive as decoded JSON, so accessors accept numbers, numeric strings and
// booleans interchangeably and fall back to a default otherwise.
type Input map[string]any

// Float returns a numeric field or def.
func (in Input) Float(key string, def float64) float64 {
	switch v := in[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	case bool:
		if v {
			return 1
		}
		return 0
	}
	return def
}

// Int returns a whole-number field, truncated toward zero, or def.
func (in Input) Int(key string, def int) int {
	f := in.Float(key, math.NaN())
	if math.IsNaN(f) {
		return def
	}
	return int(f)
}

// Bool returns a yes/no field; anything unrecognized is false.
func (in Input) Bool(key string) bool {
	switch v := in[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			return true
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// String returns a text field or def when absent or empty.
func (in Input) String(key, def string) string {
	switch v := in[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return def
}

// List returns a list field. A comma-separated string is split.
func (in Input) List(key string) []string {
	var out []string
	switch v := in[key].(type) {
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Has reports whether key was supplied with a non-empty value.
func (in Input) Has(key string) bool {
	v, ok := in[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}
