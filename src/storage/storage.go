// Package storage declares the components bucket stack: a versioned,
// encrypted, access-blocked bucket, the artifact tree shipped into it,
// and the registry entry that publishes its name.
package storage

import (
	"fmt"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/nag"
	"github.com/sofmeright/imagefreight/src/stack"
)

// Logical IDs in the storage stack.
const (
	BucketID       = "rS3ImageBuilderComponents"
	BucketPolicyID = "rS3ImageBuilderComponentsPolicy"
	ParameterID    = "rComponentsBucketName"
	AssetID        = "rStackComponentDeployments"
)

const parameterDescription = "Bucket name to upload image builder components"

// BucketName returns the physical bucket name for account and region.
func BucketName(prefix, account, region string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, account, region)
}

// bucketNameValue is the literal name when the env is known, otherwise a
// Fn::Sub that resolves at deploy time.
func bucketNameValue(prefix string, env stack.Env) any {
	if env.Resolved() {
		return BucketName(prefix, env.Account, env.Region)
	}
	return cfn.Sub(prefix + "-${AWS::AccountId}-${AWS::Region}")
}

// Build declares the storage stack in app.
func Build(app *stack.App, cfg *config.Config) (*stack.Stack, error) {
	sc := cfg.Store
	env := stack.Env{Account: cfg.Account, Region: cfg.Region}

	s, err := app.NewStack(sc.StackName, "Components bucket for image builder pipelines", env)
	if err != nil {
		return nil, err
	}

	bucket, err := s.Add(BucketID, &cfn.Resource{
		Type:                cfn.TypeS3Bucket,
		UpdateReplacePolicy: "Retain",
		DeletionPolicy:      "Retain",
		Properties: map[string]any{
			"BucketName": bucketNameValue(sc.BucketPrefix, env),
			"BucketEncryption": map[string]any{
				"ServerSideEncryptionConfiguration": []any{
					map[string]any{
						"ServerSideEncryptionByDefault": map[string]any{"SSEAlgorithm": "AES256"},
					},
				},
			},
			"LifecycleConfiguration": map[string]any{
				"Rules": []any{
					map[string]any{
						"AbortIncompleteMultipartUpload": map[string]any{
							"DaysAfterInitiation": sc.AbortMultipartDays,
						},
						"NoncurrentVersionExpiration": map[string]any{
							"NoncurrentDays": sc.NoncurrentDays,
						},
						"Status": "Enabled",
					},
				},
			},
			"PublicAccessBlockConfiguration": map[string]any{
				"BlockPublicAcls":       true,
				"BlockPublicPolicy":     true,
				"IgnorePublicAcls":      true,
				"RestrictPublicBuckets": true,
			},
			"VersioningConfiguration": map[string]any{"Status": "Enabled"},
		},
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.Add(BucketPolicyID, &cfn.Resource{
		Type: cfn.TypeS3BucketPolicy,
		Properties: map[string]any{
			"Bucket":         cfn.Ref(BucketID),
			"PolicyDocument": TLSOnlyPolicy(cfn.GetAtt(BucketID, "Arn")),
		},
	}); err != nil {
		return nil, err
	}

	nag.AddResourceSuppressions(bucket, nag.Suppression{
		ID:     "AwsSolutions-S1",
		Reason: "This bucket does not need server access logs",
	})

	if _, err := s.Add(ParameterID, &cfn.Resource{
		Type: cfn.TypeSSMParameter,
		Properties: map[string]any{
			"Name":        sc.ParameterName,
			"Type":        "String",
			"Value":       cfn.Ref(BucketID),
			"Description": parameterDescription,
			"Tier":        "Standard",
		},
	}); err != nil {
		return nil, err
	}

	if err := s.Template.AddOutput("BucketName", &cfn.Output{
		Value:       cfn.Ref(BucketID),
		Description: parameterDescription,
	}); err != nil {
		return nil, err
	}

	var assetBucket string
	if env.Resolved() {
		assetBucket = BucketName(sc.BucketPrefix, env.Account, env.Region)
	}
	s.AddAsset(stack.Asset{
		ID:        AssetID,
		Source:    sc.Source,
		Bucket:    assetBucket,
		KeyPrefix: sc.KeyPrefix,
		Prune:     sc.PruneEnabled(),
	})

	return s, nil
}

// TLSOnlyPolicy returns a bucket policy document denying every request
// that does not use TLS. arn is the bucket ARN, literal or intrinsic.
func TLSOnlyPolicy(arn any) map[string]any {
	var objects any
	if s, ok := arn.(string); ok {
		objects = s + "/*"
	} else {
		objects = cfn.Join("", arn, "/*")
	}
	return map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{
				"Action":    "s3:*",
				"Condition": map[string]any{"Bool": map[string]any{"aws:SecureTransport": "false"}},
				"Effect":    "Deny",
				"Principal": map[string]any{"AWS": "*"},
				"Resource":  []any{arn, objects},
			},
		},
	}
}
