package rules

import (
	"strings"

	"github.com/sofmeright/imagefreight/src/cfn"
)

// statements returns the statements of a policy document.
func statements(doc any) []map[string]any {
	var out []map[string]any
	raw, ok := cfn.Path(doc, "Statement")
	if !ok {
		return nil
	}
	for _, s := range cfn.List(raw) {
		if m, ok := s.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// strs collects the string leaves of v. Intrinsics contribute their
// literal parts, so Fn::Join of an ARN still yields its fixed text.
func strs(v any) []string {
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case map[string]any:
			for _, child := range t {
				walk(child)
			}
		case []any:
			for _, child := range t {
				walk(child)
			}
		case []string:
			out = append(out, t...)
		case []map[string]any:
			for _, child := range t {
				walk(child)
			}
		}
	}
	walk(v)
	return out
}

// flatten joins the string leaves of v, used to match ARN text that may
// be split across Fn::Join parts.
func flatten(v any) string {
	return strings.Join(strs(v), "")
}

func hasWildcard(values []string) bool {
	for _, s := range values {
		if strings.Contains(s, "*") {
			return true
		}
	}
	return false
}

// policyDocuments returns every permission document attached to a
// resource: the document of a policy resource, or the inline policies
// of a role, user or group.
func policyDocuments(r *cfn.Resource) []any {
	switch r.Type {
	case cfn.TypeIAMPolicy, cfn.TypeIAMManaged:
		if doc, ok := r.Properties["PolicyDocument"]; ok {
			return []any{doc}
		}
	case cfn.TypeIAMRole, cfn.TypeIAMUser, cfn.TypeIAMGroup:
		var docs []any
		for _, p := range cfn.List(r.Properties["Policies"]) {
			if doc, ok := cfn.Path(p, "PolicyDocument"); ok {
				docs = append(docs, doc)
			}
		}
		return docs
	}
	return nil
}
