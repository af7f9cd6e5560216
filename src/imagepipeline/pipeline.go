// Package imagepipeline declares one EC2 Image Builder pipeline stack per
// configured variant: components read from the components bucket, a
// recipe over a base image, the build instance identity and network
// boundary, and the pipeline tying them together.
package imagepipeline

import (
	"context"
	"fmt"
	"path"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/lookup"
	"github.com/sofmeright/imagefreight/src/nag"
	"github.com/sofmeright/imagefreight/src/stack"
)

// Logical IDs shared by every variant.
const (
	BucketParameterID = "ComponentsBucketName"
	SecurityGroupID   = "rSecurityGroup"
)

// webEgress lists the only outbound ports a build instance may use.
var webEgress = []struct {
	port        int
	description string
}{
	{80, "Allow http traffic"},
	{443, "Allow https traffic"},
}

// IDs are the logical IDs of one variant's resources.
type IDs struct {
	Recipe          string
	Policy          string
	Role            string
	InstanceProfile string
	InfraConfig     string
	Pipeline        string
}

// LogicalIDs derives a variant's logical IDs from its name prefix.
func LogicalIDs(v config.VariantConfig) IDs {
	p := v.NamePrefix
	return IDs{
		Recipe:          p + "WorkspaceRecipe",
		Policy:          v.PolicyID(),
		Role:            "r" + p + "WorkspaceInstanceRole",
		InstanceProfile: "r" + p + "WorkspaceInstanceProfile",
		InfraConfig:     "r" + p + "WorkspaceInfraConfig",
		Pipeline:        "r" + p + "WorkspacePipeline",
	}
}

// ComponentKey returns the object key of a component document.
func ComponentKey(keyPrefix string, v config.VariantConfig, c config.ComponentConfig) string {
	return path.Join(keyPrefix, v.PlatformFolder, c.File)
}

// Build declares the pipeline stack for variant v. The VPC is resolved
// through vpcs before anything is declared; a missing lookup fails.
func Build(ctx context.Context, app *stack.App, v config.VariantConfig, cfg *config.Config, vpcs lookup.VpcProvider) (*stack.Stack, error) {
	env := stack.Env{Account: cfg.Account, Region: cfg.Region}
	ids := LogicalIDs(v)

	vpc, err := vpcs.LookupVpc(ctx, lookup.Query{
		Account: cfg.Account,
		Region:  cfg.Region,
		VpcID:   cfg.VpcID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: looking up vpc: %w", v.StackName, err)
	}
	if !vpc.HasSubnet(cfg.SubnetID) {
		return nil, fmt.Errorf("%s: subnet %s is not in vpc %s", v.StackName, cfg.SubnetID, vpc.ID)
	}

	s, err := app.NewStack(v.StackName, v.Description, env)
	if err != nil {
		return nil, err
	}

	// Registry read.
	if err := s.Template.AddParameter(BucketParameterID, &cfn.Parameter{
		Type:        cfn.ParamSSMString,
		Default:     cfg.Store.ParameterName,
		Description: "Components bucket name published by " + cfg.Store.StackName,
	}); err != nil {
		return nil, err
	}

	recipeComponents := make([]any, 0, len(v.Components))
	for _, c := range v.Components {
		if err := config.ValidateVersion(c.Version); err != nil {
			return nil, fmt.Errorf("%s: component %s: %w", v.StackName, c.Name, err)
		}
		if _, err := s.Add(c.ID, &cfn.Resource{
			Type: cfn.TypeIBComponent,
			Properties: map[string]any{
				"Name":     c.Name,
				"Platform": v.Platform,
				"Version":  c.Version,
				"Uri": cfn.Join("",
					"s3://",
					cfn.Ref(BucketParameterID),
					"/"+ComponentKey(cfg.Store.KeyPrefix, v, c),
				),
			},
		}); err != nil {
			return nil, err
		}
		recipeComponents = append(recipeComponents, map[string]any{
			"ComponentArn": cfn.GetAtt(c.ID, "Arn"),
		})
	}

	if err := config.ValidateVersion(v.Recipe.Version); err != nil {
		return nil, fmt.Errorf("%s: recipe: %w", v.StackName, err)
	}
	if _, err := s.Add(ids.Recipe, &cfn.Resource{
		Type: cfn.TypeIBRecipe,
		Properties: map[string]any{
			"Name":        "r" + ids.Recipe,
			"Version":     v.Recipe.Version,
			"Components":  recipeComponents,
			"ParentImage": v.BaseImageID,
			"BlockDeviceMappings": []any{
				map[string]any{
					"DeviceName": v.DeviceName,
					"Ebs": map[string]any{
						"VolumeSize": v.RootVolumeSize,
						"VolumeType": v.VolumeType,
					},
				},
			},
		},
	}); err != nil {
		return nil, err
	}

	policy, err := s.Add(ids.Policy, &cfn.Resource{
		Type: cfn.TypeIAMManaged,
		Properties: map[string]any{
			"Description":    "Build instance permissions for " + v.Description,
			"Path":           "/",
			"PolicyDocument": instancePolicy(),
		},
	})
	if err != nil {
		return nil, err
	}
	nag.AddResourceSuppressions(policy, nag.Suppression{ID: "AwsSolutions-IAM5", Reason: policyReason})

	if _, err := s.Add(ids.Role, &cfn.Resource{
		Type: cfn.TypeIAMRole,
		Properties: map[string]any{
			"AssumeRolePolicyDocument": assumeRolePolicy(),
			"ManagedPolicyArns":        []any{cfn.Ref(ids.Policy)},
		},
	}); err != nil {
		return nil, err
	}

	if _, err := s.Add(ids.InstanceProfile, &cfn.Resource{
		Type: cfn.TypeInstanceProfile,
		Properties: map[string]any{
			"Roles": []any{cfn.Ref(ids.Role)},
		},
	}); err != nil {
		return nil, err
	}

	egress := make([]any, 0, len(webEgress))
	for _, e := range webEgress {
		egress = append(egress, map[string]any{
			"CidrIp":      "0.0.0.0/0",
			"Description": e.description,
			"FromPort":    e.port,
			"IpProtocol":  "tcp",
			"ToPort":      e.port,
		})
	}
	if _, err := s.Add(SecurityGroupID, &cfn.Resource{
		Type: cfn.TypeSecurityGroup,
		Properties: map[string]any{
			"GroupDescription":    "Security group for " + v.Description,
			"VpcId":               vpc.ID,
			"SecurityGroupEgress": egress,
		},
	}); err != nil {
		return nil, err
	}

	infra, err := s.Add(ids.InfraConfig, &cfn.Resource{
		Type: cfn.TypeIBInfraConfig,
		Properties: map[string]any{
			"Name":                "r" + v.NamePrefix + "InfraConfig",
			"InstanceTypes":       toAny(v.InstanceTypes),
			"InstanceProfileName": cfn.Ref(ids.InstanceProfile),
			"SubnetId":            cfg.SubnetID,
			"SecurityGroupIds":    []any{cfn.GetAtt(SecurityGroupID, "GroupId")},
		},
	})
	if err != nil {
		return nil, err
	}
	// The profile must exist before Image Builder validates the config.
	infra.AddDependency(ids.InstanceProfile)

	pipeline, err := s.Add(ids.Pipeline, &cfn.Resource{
		Type: cfn.TypeIBPipeline,
		Properties: map[string]any{
			"Name":                           v.NamePrefix + "WorkspaceImagePipeline",
			"ImageRecipeArn":                 cfn.GetAtt(ids.Recipe, "Arn"),
			"InfrastructureConfigurationArn": cfn.GetAtt(ids.InfraConfig, "Arn"),
		},
	})
	if err != nil {
		return nil, err
	}
	pipeline.AddDependency(ids.InfraConfig)

	if err := s.Template.AddOutput("PipelineArn", &cfn.Output{
		Value:       cfn.GetAtt(ids.Pipeline, "Arn"),
		Description: v.Description + " pipeline",
	}); err != nil {
		return nil, err
	}

	return s, nil
}
