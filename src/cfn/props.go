package cfn

// Lookup helpers for rules that inspect generic property trees.

// Path walks nested maps by key and returns the value found.
func Path(v any, keys ...string) (any, bool) {
	cur := v
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// List returns v as a slice of values. A single value becomes a
// one-element slice, matching CloudFormation's scalar-or-list fields such
// as Action and Resource.
func List(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	default:
		return []any{v}
	}
}

// Bool reads a boolean property. Strings "true"/"false" are accepted the
// way CloudFormation accepts them.
func Bool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

// Int reads an integer property from the numeric shapes JSON decoding and
// literal construction produce.
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	}
	return 0, false
}
