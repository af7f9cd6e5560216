package nag

import (
	"github.com/sofmeright/imagefreight/src/cfn"
)

const (
	metadataKey   = "cdk_nag"
	suppressKey   = "rules_to_suppress"
	unjustifiedID = "ImageFreight-Suppression"
)

// Suppression accepts a rule violation on one resource.
type Suppression struct {
	ID     string `json:"id" yaml:"id"`
	Reason string `json:"reason" yaml:"reason"`
}

// AddResourceSuppressions records suppressions in the resource metadata,
// where they survive template emission and can be audited.
func AddResourceSuppressions(r *cfn.Resource, s ...Suppression) {
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	existing := Suppressions(r)
	list := make([]any, 0, len(existing)+len(s))
	for _, e := range append(existing, s...) {
		list = append(list, map[string]any{"id": e.ID, "reason": e.Reason})
	}
	r.Metadata[metadataKey] = map[string]any{suppressKey: list}
}

// Suppressions reads the suppressions recorded on r.
func Suppressions(r *cfn.Resource) []Suppression {
	raw, ok := cfn.Path(r.Metadata, metadataKey, suppressKey)
	if !ok {
		return nil
	}
	var out []Suppression
	for _, item := range cfn.List(raw) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		reason, _ := m["reason"].(string)
		if id == "" {
			continue
		}
		out = append(out, Suppression{ID: id, Reason: reason})
	}
	return out
}
