package rules

import (
	"context"
	"fmt"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/nag"
)

func init() {
	nag.Register("AwsSolutions-EC23", func() nag.Rule { return &openIngress{} })
	nag.Register("ImageFreight-IB2", func() nag.Rule { return &webOnlyEgress{} })
}

type openIngress struct{}

func (openIngress) ID() string       { return "AwsSolutions-EC23" }
func (openIngress) Level() nag.Level { return nag.LevelError }
func (openIngress) Description() string {
	return "The Security Group allows for 0.0.0.0/0 or ::/0 inbound access."
}

func (openIngress) Check(_ context.Context, r nag.Resource) (nag.Outcome, error) {
	if r.Type != cfn.TypeSecurityGroup {
		return nag.NotApplicable, nil
	}
	for _, rule := range cfn.List(r.Properties["SecurityGroupIngress"]) {
		if v, _ := cfn.Path(rule, "CidrIp"); v == "0.0.0.0/0" {
			return nag.NonCompliant, nil
		}
		if v, _ := cfn.Path(rule, "CidrIpv6"); v == "::/0" {
			return nag.NonCompliant, nil
		}
	}
	return nag.Compliant, nil
}

// webPorts are the only destinations a build instance may reach.
var webPorts = map[int]bool{80: true, 443: true}

type webOnlyEgress struct{}

func (webOnlyEgress) ID() string       { return "ImageFreight-IB2" }
func (webOnlyEgress) Level() nag.Level { return nag.LevelError }
func (webOnlyEgress) Description() string {
	return "The Security Group must list its egress explicitly and allow only TCP 80 and 443."
}

// Check fails a group with no explicit egress, since CloudFormation then
// allows all outbound traffic.
func (webOnlyEgress) Check(_ context.Context, r nag.Resource) (nag.Outcome, error) {
	if r.Type != cfn.TypeSecurityGroup {
		return nag.NotApplicable, nil
	}
	rules := cfn.List(r.Properties["SecurityGroupEgress"])
	if len(rules) == 0 {
		return nag.NonCompliant, nil
	}
	for _, rule := range rules {
		if err := checkEgress(rule); err != nil {
			return nag.NonCompliant, nil
		}
	}
	return nag.Compliant, nil
}

func checkEgress(rule any) error {
	proto, _ := cfn.Path(rule, "IpProtocol")
	if proto != "tcp" {
		return fmt.Errorf("protocol %v", proto)
	}
	fromRaw, _ := cfn.Path(rule, "FromPort")
	toRaw, _ := cfn.Path(rule, "ToPort")
	from, ok1 := cfn.Int(fromRaw)
	to, ok2 := cfn.Int(toRaw)
	if !ok1 || !ok2 || from != to || !webPorts[from] {
		return fmt.Errorf("port range %v-%v", fromRaw, toRaw)
	}
	return nil
}
