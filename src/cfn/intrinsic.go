package cfn

// Intrinsic function constructors. Each returns the map shape
// CloudFormation expects in both JSON and YAML long form.

// Ref references a parameter or the primary identifier of a resource.
func Ref(id string) map[string]any {
	return map[string]any{"Ref": id}
}

// GetAtt reads an attribute of a resource.
func GetAtt(id, attr string) map[string]any {
	return map[string]any{"Fn::GetAtt": []any{id, attr}}
}

// Sub substitutes ${...} placeholders.
func Sub(s string) map[string]any {
	return map[string]any{"Fn::Sub": s}
}

// Join concatenates parts with sep.
func Join(sep string, parts ...any) map[string]any {
	return map[string]any{"Fn::Join": []any{sep, parts}}
}

// RefTarget returns the logical ID a Ref or GetAtt value points at, if v
// is one of those intrinsics.
func RefTarget(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	if id, ok := m["Ref"].(string); ok {
		return id, true
	}
	if args, ok := m["Fn::GetAtt"].([]any); ok && len(args) == 2 {
		if id, ok := args[0].(string); ok {
			return id, true
		}
	}
	return "", false
}

// References walks v and returns every logical ID referenced through Ref
// or Fn::GetAtt, including pseudo parameters.
func References(v any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		if id, ok := RefTarget(v); ok {
			out = append(out, id)
			return
		}
		switch t := v.(type) {
		case map[string]any:
			for _, child := range t {
				walk(child)
			}
		case []any:
			for _, child := range t {
				walk(child)
			}
		case []map[string]any:
			for _, child := range t {
				walk(child)
			}
		}
	}
	walk(v)
	return out
}
