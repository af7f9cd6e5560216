package rules

import (
	"context"
	"strings"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/nag"
)

func init() {
	nag.Register("AwsSolutions-IAM4", func() nag.Rule { return &iamManagedPolicy{} })
	nag.Register("AwsSolutions-IAM5", func() nag.Rule { return &iamWildcard{} })
}

// awsManagedMarker appears in every AWS managed policy ARN regardless of
// partition.
const awsManagedMarker = ":iam::aws:policy/"

type iamManagedPolicy struct{}

func (iamManagedPolicy) ID() string       { return "AwsSolutions-IAM4" }
func (iamManagedPolicy) Level() nag.Level { return nag.LevelError }
func (iamManagedPolicy) Description() string {
	return "The IAM user, role, or group uses AWS managed policies."
}

func (iamManagedPolicy) Check(_ context.Context, r nag.Resource) (nag.Outcome, error) {
	switch r.Type {
	case cfn.TypeIAMRole, cfn.TypeIAMUser, cfn.TypeIAMGroup:
	default:
		return nag.NotApplicable, nil
	}
	for _, arn := range cfn.List(r.Properties["ManagedPolicyArns"]) {
		if strings.Contains(flatten(arn), awsManagedMarker) {
			return nag.NonCompliant, nil
		}
	}
	return nag.Compliant, nil
}

type iamWildcard struct{}

func (iamWildcard) ID() string       { return "AwsSolutions-IAM5" }
func (iamWildcard) Level() nag.Level { return nag.LevelError }
func (iamWildcard) Description() string {
	return "The IAM entity contains wildcard permissions."
}

// Check flags Allow statements whose actions or resources contain a
// wildcard. Deny statements are not permissions and are skipped.
func (iamWildcard) Check(_ context.Context, r nag.Resource) (nag.Outcome, error) {
	docs := policyDocuments(r.Resource)
	if docs == nil {
		return nag.NotApplicable, nil
	}
	for _, doc := range docs {
		for _, st := range statements(doc) {
			if st["Effect"] != "Allow" {
				continue
			}
			if hasWildcard(strs(st["Action"])) || hasWildcard(strs(st["Resource"])) {
				return nag.NonCompliant, nil
			}
		}
	}
	return nag.Compliant, nil
}
