package imagepipeline

// Permissions of the build instance, copied from the AWS managed policies
// AmazonSSMManagedInstanceCore and EC2InstanceProfileForImageBuilder so
// the role carries no managed policy attachment.

const policyReason = "Permissions copied from AWS managed policies AmazonSSMManagedInstanceCore and EC2InstanceProfileForImageBuilder"

var ssmAgentActions = []string{
	"ssm:DescribeAssociation",
	"ssm:GetDeployablePatchSnapshotForInstance",
	"ssm:GetDocument",
	"ssm:DescribeDocument",
	"ssm:GetManifest",
	"ssm:GetParameter",
	"ssm:GetParameters",
	"ssm:ListAssociations",
	"ssm:ListInstanceAssociations",
	"ssm:PutInventory",
	"ssm:PutComplianceItems",
	"ssm:PutConfigurePackageResult",
	"ssm:UpdateAssociationStatus",
	"ssm:UpdateInstanceAssociationStatus",
	"ssm:UpdateInstanceInformation",
}

var ssmMessagesActions = []string{
	"ssmmessages:CreateControlChannel",
	"ssmmessages:CreateDataChannel",
	"ssmmessages:OpenControlChannel",
	"ssmmessages:OpenDataChannel",
}

var ec2MessagesActions = []string{
	"ec2messages:AcknowledgeMessage",
	"ec2messages:DeleteMessage",
	"ec2messages:FailMessage",
	"ec2messages:GetEndpoint",
	"ec2messages:GetMessages",
	"ec2messages:SendReply",
}

var logActions = []string{
	"logs:CreateLogStream",
	"logs:CreateLogGroup",
	"logs:PutLogEvents",
}

func allow(actions []string, resources ...string) map[string]any {
	return map[string]any{
		"Effect":   "Allow",
		"Action":   toAny(actions),
		"Resource": toAny(resources),
	}
}

// instancePolicy returns the policy document for the build instance role.
func instancePolicy() map[string]any {
	kms := allow([]string{"kms:Decrypt"}, "*")
	kms["Condition"] = map[string]any{
		"ForAnyValue:StringEquals": map[string]any{
			"kms:EncryptionContextKeys": "aws:imagebuilder:arn",
			"aws:CalledVia":             []any{"imagebuilder.amazonaws.com"},
		},
	}

	return map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			allow(ssmAgentActions, "*"),
			allow(ssmMessagesActions, "*"),
			allow(ec2MessagesActions, "*"),
			allow([]string{"imagebuilder:GetComponent"}, "*"),
			kms,
			allow([]string{"s3:GetObject"}, "arn:aws:s3:::ec2imagebuilder*"),
			allow(logActions, "arn:aws:logs:*:*:log-group:/aws/imagebuilder/*"),
		},
	}
}

// assumeRolePolicy lets EC2 instances assume the role.
func assumeRolePolicy() map[string]any {
	return map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{
			map[string]any{
				"Action":    "sts:AssumeRole",
				"Effect":    "Allow",
				"Principal": map[string]any{"Service": "ec2.amazonaws.com"},
			},
		},
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
