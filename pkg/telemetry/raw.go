package telemetry

import "strconv"

// Tolerant accessors for raw JSON payloads. Extractors go through these
// so a missing key, wrong type, or short array reads as absence instead
// of a panic; per-field defaults then apply.

// Num reads a numeric value at key. Numbers arrive as float64 from the
// JSON decoder, but legacy firmware also emits numerics as strings
// (chain_rate), so those are parsed too.
func Num(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	return AsNum(m[key])
}

// AsNum coerces a raw value to a float64 where sensible.
func AsNum(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Str reads a string value at key.
func Str(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok
}

// Bool reads a boolean value at key.
func Bool(m map[string]any, key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	b, ok := m[key].(bool)
	return b, ok
}

// List reads an array value at key.
func List(m map[string]any, key string) ([]any, bool) {
	if m == nil {
		return nil, false
	}
	l, ok := m[key].([]any)
	return l, ok
}

// MapAt reads the i-th element of a raw array as an object.
func MapAt(l []any, i int) (map[string]any, bool) {
	if i < 0 || i >= len(l) {
		return nil, false
	}
	m, ok := l[i].(map[string]any)
	return m, ok
}

// Nums coerces a raw array to its numeric elements, dropping anything
// that is not a number.
func Nums(l []any) []float64 {
	out := make([]float64, 0, len(l))
	for _, v := range l {
		if f, ok := AsNum(v); ok {
			out = append(out, f)
		}
	}
	return out
}
