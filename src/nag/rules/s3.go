package rules

import (
	"context"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/nag"
)

func init() {
	nag.Register("AwsSolutions-S1", func() nag.Rule { return &s3AccessLogs{} })
	nag.Register("AwsSolutions-S2", func() nag.Rule { return &s3PublicAccess{} })
	nag.Register("AwsSolutions-S10", func() nag.Rule { return &s3TLSOnly{} })
}

type s3AccessLogs struct{}

func (s3AccessLogs) ID() string       { return "AwsSolutions-S1" }
func (s3AccessLogs) Level() nag.Level { return nag.LevelError }
func (s3AccessLogs) Description() string {
	return "The S3 Bucket has server access logs disabled."
}

func (s3AccessLogs) Check(_ context.Context, r nag.Resource) (nag.Outcome, error) {
	if r.Type != cfn.TypeS3Bucket {
		return nag.NotApplicable, nil
	}
	if _, ok := cfn.Path(r.Properties, "LoggingConfiguration", "DestinationBucketName"); ok {
		return nag.Compliant, nil
	}
	return nag.NonCompliant, nil
}

type s3PublicAccess struct{}

func (s3PublicAccess) ID() string       { return "AwsSolutions-S2" }
func (s3PublicAccess) Level() nag.Level { return nag.LevelError }
func (s3PublicAccess) Description() string {
	return "The S3 Bucket does not have public access restricted and blocked."
}

var publicAccessFlags = []string{
	"BlockPublicAcls",
	"BlockPublicPolicy",
	"IgnorePublicAcls",
	"RestrictPublicBuckets",
}

func (s3PublicAccess) Check(_ context.Context, r nag.Resource) (nag.Outcome, error) {
	if r.Type != cfn.TypeS3Bucket {
		return nag.NotApplicable, nil
	}
	for _, flag := range publicAccessFlags {
		v, ok := cfn.Path(r.Properties, "PublicAccessBlockConfiguration", flag)
		if !ok || !cfn.Bool(v) {
			return nag.NonCompliant, nil
		}
	}
	return nag.Compliant, nil
}

type s3TLSOnly struct{}

func (s3TLSOnly) ID() string       { return "AwsSolutions-S10" }
func (s3TLSOnly) Level() nag.Level { return nag.LevelError }
func (s3TLSOnly) Description() string {
	return "The S3 Bucket or bucket policy does not require requests to use SSL."
}

// Check looks for a bucket policy in the same template that denies all
// S3 actions on this bucket when aws:SecureTransport is false.
func (s3TLSOnly) Check(_ context.Context, r nag.Resource) (nag.Outcome, error) {
	if r.Type != cfn.TypeS3Bucket {
		return nag.NotApplicable, nil
	}
	t := r.Template()
	for _, id := range t.ResourcesOfType(cfn.TypeS3BucketPolicy) {
		policy := t.Resources[id]
		target, ok := cfn.RefTarget(policy.Properties["Bucket"])
		if !ok || target != r.LogicalID {
			continue
		}
		for _, st := range statements(policy.Properties["PolicyDocument"]) {
			if denyInsecureTransport(st) {
				return nag.Compliant, nil
			}
		}
	}
	return nag.NonCompliant, nil
}

func denyInsecureTransport(st map[string]any) bool {
	if st["Effect"] != "Deny" {
		return false
	}
	allActions := false
	for _, a := range strs(st["Action"]) {
		if a == "s3:*" || a == "*" {
			allActions = true
		}
	}
	if !allActions {
		return false
	}
	v, ok := cfn.Path(st["Condition"], "Bool", "aws:SecureTransport")
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return !t
	case string:
		return t == "false"
	}
	return false
}
