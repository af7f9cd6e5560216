// Package lookup resolves facts about existing infrastructure that the
// templates reference but do not declare, such as the VPC the build
// instances run in.
//
// Lookups are impure: they describe the live environment. Results are
// read from a context cache file (the cdk.context.json convention) or
// from inline configuration, so synthesis itself stays offline and
// repeatable. A lookup that cannot be answered fails synthesis.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrLookupMissing is returned when no provider can answer a query.
var ErrLookupMissing = errors.New("lookup not available")

// Query identifies a VPC in an account and region.
type Query struct {
	Account string
	Region  string
	VpcID   string
}

// Key returns the context cache key for q.
func (q Query) Key() string {
	return fmt.Sprintf("vpc-provider:account=%s:filter.vpc-id=%s:region=%s:returnAsymmetricSubnets=true",
		q.Account, q.VpcID, q.Region)
}

// Vpc is the resolved network, in the shape CDK's vpc-provider writes
// to cdk.context.json. Fields the templates do not use are dropped.
type Vpc struct {
	ID           string        `json:"vpcId"`
	CidrBlock    string        `json:"vpcCidrBlock,omitempty"`
	SubnetGroups []SubnetGroup `json:"subnetGroups,omitempty"`
}

// SubnetGroup is one tier of subnets (Public, Private, Isolated).
type SubnetGroup struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Subnets []Subnet `json:"subnets"`
}

// Subnet is one subnet of a group.
type Subnet struct {
	ID               string `json:"subnetId"`
	Cidr             string `json:"cidr,omitempty"`
	AvailabilityZone string `json:"availabilityZone,omitempty"`
	RouteTableID     string `json:"routeTableId,omitempty"`
}

// NewVpc describes a network known only by its subnet IDs, as the
// inline vpc block does. The subnets land in a single private group.
func NewVpc(id, cidr string, subnets []string) Vpc {
	v := Vpc{ID: id, CidrBlock: cidr}
	if len(subnets) > 0 {
		g := SubnetGroup{Name: "Private", Type: "Private"}
		for _, s := range subnets {
			g.Subnets = append(g.Subnets, Subnet{ID: s})
		}
		v.SubnetGroups = []SubnetGroup{g}
	}
	return v
}

// SubnetIDs returns every subnet ID across the groups, in order.
func (v *Vpc) SubnetIDs() []string {
	var out []string
	for _, g := range v.SubnetGroups {
		for _, s := range g.Subnets {
			out = append(out, s.ID)
		}
	}
	return out
}

// HasSubnet reports whether id is a known subnet of v. A VPC with no
// subnet groups means the lookup did not enumerate subnets.
func (v *Vpc) HasSubnet(id string) bool {
	ids := v.SubnetIDs()
	return len(ids) == 0 || slices.Contains(ids, id)
}

// VpcProvider answers VPC lookups.
type VpcProvider interface {
	LookupVpc(ctx context.Context, q Query) (*Vpc, error)
}

// Static answers lookups from a fixed set of VPCs.
type Static struct {
	Vpcs []Vpc
}

// LookupVpc implements VpcProvider.
func (s Static) LookupVpc(_ context.Context, q Query) (*Vpc, error) {
	for i := range s.Vpcs {
		if s.Vpcs[i].ID == q.VpcID {
			v := s.Vpcs[i]
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", q.VpcID, ErrLookupMissing)
}

// Chain asks each provider in turn and returns the first answer. Only
// ErrLookupMissing moves on to the next provider; other errors stop.
type Chain []VpcProvider

// LookupVpc implements VpcProvider.
func (c Chain) LookupVpc(ctx context.Context, q Query) (*Vpc, error) {
	for _, p := range c {
		v, err := p.LookupVpc(ctx, q)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrLookupMissing) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("vpc %s in %s/%s: %w", q.VpcID, q.Account, q.Region, ErrLookupMissing)
}
