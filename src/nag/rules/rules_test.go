package rules

import (
	"context"
	"testing"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/nag"
	"github.com/sofmeright/imagefreight/src/stack"
)

// outcome runs rule id against r, declared as id "rTarget" in a stack
// alongside extra.
func outcome(t *testing.T, id string, r *cfn.Resource, extra map[string]*cfn.Resource) nag.Outcome {
	t.Helper()
	rule, err := nag.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	st, err := stack.NewApp().NewStack("Test", "rules", stack.Env{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.Add("rTarget", r); err != nil {
		t.Fatal(err)
	}
	for eid, er := range extra {
		if _, err := st.Add(eid, er); err != nil {
			t.Fatal(err)
		}
	}
	got, err := rule.Check(context.Background(), nag.Resource{Stack: st, LogicalID: "rTarget", Resource: r})
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func res(typ string, props map[string]any) *cfn.Resource {
	return &cfn.Resource{Type: typ, Properties: props}
}

func egress(proto string, from, to int) map[string]any {
	return map[string]any{"IpProtocol": proto, "FromPort": from, "ToPort": to, "CidrIp": "0.0.0.0/0"}
}

func allowAll(action, resource any) map[string]any {
	return map[string]any{"Statement": []any{map[string]any{"Effect": "Allow", "Action": action, "Resource": resource}}}
}

func TestRules(t *testing.T) {
	blocked := map[string]any{
		"BlockPublicAcls": true, "BlockPublicPolicy": true,
		"IgnorePublicAcls": true, "RestrictPublicBuckets": true,
	}
	partlyBlocked := map[string]any{"BlockPublicAcls": true, "BlockPublicPolicy": true}
	recipe := func(typ string, size int) *cfn.Resource {
		return res(cfn.TypeIBRecipe, map[string]any{
			"Version": "1.0.0",
			"BlockDeviceMappings": []any{map[string]any{
				"DeviceName": "/dev/xvda",
				"Ebs":        map[string]any{"VolumeType": typ, "VolumeSize": size},
			}},
		})
	}

	tests := []struct {
		name string
		rule string
		r    *cfn.Resource
		want nag.Outcome
	}{
		{"S1 no logging", "AwsSolutions-S1", res(cfn.TypeS3Bucket, nil), nag.NonCompliant},
		{"S1 logging", "AwsSolutions-S1", res(cfn.TypeS3Bucket, map[string]any{
			"LoggingConfiguration": map[string]any{"DestinationBucketName": "logs"},
		}), nag.Compliant},
		{"S1 other type", "AwsSolutions-S1", res(cfn.TypeIAMRole, nil), nag.NotApplicable},

		{"S2 blocked", "AwsSolutions-S2", res(cfn.TypeS3Bucket, map[string]any{"PublicAccessBlockConfiguration": blocked}), nag.Compliant},
		{"S2 partly blocked", "AwsSolutions-S2", res(cfn.TypeS3Bucket, map[string]any{"PublicAccessBlockConfiguration": partlyBlocked}), nag.NonCompliant},

		{"IAM4 managed", "AwsSolutions-IAM4", res(cfn.TypeIAMRole, map[string]any{
			"ManagedPolicyArns": []any{cfn.Join("", "arn:", cfn.Ref("AWS::Partition"), ":iam::aws:policy/AmazonSSMManagedInstanceCore")},
		}), nag.NonCompliant},
		{"IAM4 customer", "AwsSolutions-IAM4", res(cfn.TypeIAMRole, map[string]any{
			"ManagedPolicyArns": []any{cfn.Ref("rPolicy")},
		}), nag.Compliant},

		{"IAM5 wildcard resource", "AwsSolutions-IAM5", res(cfn.TypeIAMManaged, map[string]any{
			"PolicyDocument": allowAll("ssm:GetDocument", "*"),
		}), nag.NonCompliant},
		{"IAM5 wildcard action", "AwsSolutions-IAM5", res(cfn.TypeIAMManaged, map[string]any{
			"PolicyDocument": allowAll("s3:*", "arn:aws:s3:::bucket/key"),
		}), nag.NonCompliant},
		{"IAM5 scoped", "AwsSolutions-IAM5", res(cfn.TypeIAMManaged, map[string]any{
			"PolicyDocument": allowAll([]any{"s3:GetObject"}, "arn:aws:s3:::bucket/key"),
		}), nag.Compliant},
		{"IAM5 inline role policy", "AwsSolutions-IAM5", res(cfn.TypeIAMRole, map[string]any{
			"Policies": []any{map[string]any{"PolicyName": "p", "PolicyDocument": allowAll("ec2:*", "*")}},
		}), nag.NonCompliant},

		{"EC23 open ingress", "AwsSolutions-EC23", res(cfn.TypeSecurityGroup, map[string]any{
			"SecurityGroupIngress": []any{map[string]any{"IpProtocol": "tcp", "FromPort": 22, "ToPort": 22, "CidrIp": "0.0.0.0/0"}},
		}), nag.NonCompliant},
		{"EC23 no ingress", "AwsSolutions-EC23", res(cfn.TypeSecurityGroup, map[string]any{}), nag.Compliant},

		{"IB1 literal", "ImageFreight-IB1", res(cfn.TypeIBComponent, map[string]any{"Version": "1.2.3"}), nag.Compliant},
		{"IB1 not semver", "ImageFreight-IB1", res(cfn.TypeIBComponent, map[string]any{"Version": "1.2"}), nag.NonCompliant},
		{"IB1 intrinsic", "ImageFreight-IB1", res(cfn.TypeIBRecipe, map[string]any{"Version": cfn.Ref("pVersion")}), nag.NonCompliant},

		{"IB2 web only", "ImageFreight-IB2", res(cfn.TypeSecurityGroup, map[string]any{
			"SecurityGroupEgress": []any{egress("tcp", 80, 80), egress("tcp", 443, 443)},
		}), nag.Compliant},
		{"IB2 default egress", "ImageFreight-IB2", res(cfn.TypeSecurityGroup, map[string]any{}), nag.NonCompliant},
		{"IB2 port range", "ImageFreight-IB2", res(cfn.TypeSecurityGroup, map[string]any{
			"SecurityGroupEgress": []any{egress("tcp", 0, 65535)},
		}), nag.NonCompliant},
		{"IB2 all protocols", "ImageFreight-IB2", res(cfn.TypeSecurityGroup, map[string]any{
			"SecurityGroupEgress": []any{egress("-1", 443, 443)},
		}), nag.NonCompliant},

		{"IB3 gp3", "ImageFreight-IB3", recipe("gp3", 30), nag.Compliant},
		{"IB3 gp2", "ImageFreight-IB3", recipe("gp2", 30), nag.NonCompliant},
		{"IB3 small", "ImageFreight-IB3", recipe("gp3", 4), nag.NonCompliant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcome(t, tt.rule, tt.r, nil); got != tt.want {
				t.Errorf("outcome = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestS10(t *testing.T) {
	tlsOnly := func(target string, secure any) *cfn.Resource {
		return res(cfn.TypeS3BucketPolicy, map[string]any{
			"Bucket": cfn.Ref(target),
			"PolicyDocument": map[string]any{"Statement": []any{map[string]any{
				"Effect":    "Deny",
				"Action":    "s3:*",
				"Principal": map[string]any{"AWS": "*"},
				"Condition": map[string]any{"Bool": map[string]any{"aws:SecureTransport": secure}},
			}}},
		})
	}

	tests := []struct {
		name   string
		policy *cfn.Resource
		want   nag.Outcome
	}{
		{"no policy", nil, nag.NonCompliant},
		{"deny insecure", tlsOnly("rTarget", "false"), nag.Compliant},
		{"deny insecure bool", tlsOnly("rTarget", false), nag.Compliant},
		{"other bucket", tlsOnly("rOther", "false"), nag.NonCompliant},
		{"denies secure", tlsOnly("rTarget", "true"), nag.NonCompliant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extra := map[string]*cfn.Resource{}
			if tt.policy != nil {
				extra["rPolicy"] = tt.policy
			}
			if got := outcome(t, "AwsSolutions-S10", res(cfn.TypeS3Bucket, nil), extra); got != tt.want {
				t.Errorf("outcome = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAllRegistered(t *testing.T) {
	want := []string{
		"AwsSolutions-EC23", "AwsSolutions-IAM4", "AwsSolutions-IAM5",
		"AwsSolutions-S1", "AwsSolutions-S10", "AwsSolutions-S2",
		"ImageFreight-IB1", "ImageFreight-IB2", "ImageFreight-IB3",
	}
	got := nag.All()
	if len(got) != len(want) {
		t.Fatalf("All() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("All()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
