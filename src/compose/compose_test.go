package compose

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sofmeright/imagefreight/src/cfn"
	"github.com/sofmeright/imagefreight/src/config"
	"github.com/sofmeright/imagefreight/src/imagepipeline"
	"github.com/sofmeright/imagefreight/src/lookup"
	"github.com/sofmeright/imagefreight/src/nag"
	_ "github.com/sofmeright/imagefreight/src/nag/rules"
	"github.com/sofmeright/imagefreight/src/storage"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Account = "123456789012"
	cfg.Region = "eu-west-2"
	cfg.VpcID = "vpc-0abc"
	cfg.SubnetID = "subnet-1"
	cfg.Vpc = &config.VpcConfig{ID: "vpc-0abc", Subnets: []string{"subnet-1"}}
	cfg.ContextFile = ""
	cfg.ResourceTags = map[string]string{"project": "centralised-amis"}
	for i := range cfg.Variants {
		cfg.Variants[i].BaseImageID = "ami-" + cfg.Variants[i].ID
	}
	return cfg
}

func composeAll(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	vpcs, err := Providers(cfg)
	if err != nil {
		t.Fatal(err)
	}
	app, err := App(context.Background(), cfg, vpcs, Options{})
	if err != nil {
		t.Fatalf("App: %v", err)
	}
	asm, err := app.Assemble(cfn.FormatJSON)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	var names []string
	for _, s := range asm.Stacks {
		names = append(names, s.Name)
	}
	return names
}

func TestStorageDeploysFirst(t *testing.T) {
	names := composeAll(t, testConfig())
	want := []string{"S3Ops", "Al2MateImagebuilderPipeline", "UbuntuImagebuilderPipeline"}
	if len(names) != len(want) {
		t.Fatalf("stacks = %v", names)
	}
	if names[0] != "S3Ops" {
		t.Fatalf("first stack = %s, want S3Ops", names[0])
	}
}

func TestRegistryPathShared(t *testing.T) {
	cfg := testConfig()
	cfg.Store.ParameterName = "/custom/bucket"
	vpcs, _ := Providers(cfg)
	app, err := App(context.Background(), cfg, vpcs, Options{})
	if err != nil {
		t.Fatal(err)
	}

	store, _ := app.Stack(cfg.Store.StackName)
	written, _ := store.Resource(storage.ParameterID)
	for _, v := range cfg.Variants {
		s, ok := app.Stack(v.StackName)
		if !ok {
			t.Fatalf("stack %s missing", v.StackName)
		}
		read := s.Template.Parameters[imagepipeline.BucketParameterID].Default
		if read != written.Properties["Name"] {
			t.Errorf("%s reads %q, storage writes %v", v.ID, read, written.Properties["Name"])
		}
		if deps := s.Dependencies(); len(deps) != 1 || deps[0] != cfg.Store.StackName {
			t.Errorf("%s dependencies = %v", v.StackName, deps)
		}
	}
}

func TestNoUnjustifiedViolations(t *testing.T) {
	cfg := testConfig()
	vpcs, _ := Providers(cfg)
	app, err := App(context.Background(), cfg, vpcs, Options{})
	if err != nil {
		t.Fatal(err)
	}
	asm, err := app.Assemble(cfn.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	engine, err := nag.NewEngine(cfg.Nag, false)
	if err != nil {
		t.Fatal(err)
	}
	findings, err := engine.Run(context.Background(), asm.Stacks)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range findings {
		if !f.Suppressed {
			t.Errorf("%s %s: %s", f.RuleID, f.Path, f.Message)
		}
	}
	if sum := nag.Summarize(findings); sum.Suppressed == 0 {
		t.Error("expected the documented suppressions to be reported")
	}
}

func TestVariantFilter(t *testing.T) {
	cfg := testConfig()
	vpcs, _ := Providers(cfg)
	app, err := App(context.Background(), cfg, vpcs, Options{Variants: []string{config.VariantUbuntu}})
	if err != nil {
		t.Fatal(err)
	}
	if len(app.Stacks()) != 2 {
		t.Fatalf("stacks = %d, want storage + ubuntu", len(app.Stacks()))
	}
	if _, err := App(context.Background(), cfg, vpcs, Options{Variants: []string{"windows"}}); err == nil {
		t.Fatal("expected unknown variant error")
	}
}

func TestProvidersReadContextFile(t *testing.T) {
	cfg := testConfig()
	cfg.Vpc = nil
	cfg.ContextFile = filepath.Join(t.TempDir(), "cdk.context.json")

	q := lookup.Query{Account: cfg.Account, Region: cfg.Region, VpcID: cfg.VpcID}
	content := `{"` + q.Key() + `": {"vpcId": "vpc-0abc", "vpcCidrBlock": "10.0.0.0/16", "ownerAccountId": "123456789012",
		"subnetGroups": [{"name": "Private", "type": "Private", "subnets": [
			{"subnetId": "subnet-1", "cidr": "10.0.0.0/24", "availabilityZone": "eu-west-2a", "routeTableId": "rtb-1"}]}]}}`
	if err := os.WriteFile(cfg.ContextFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if names := composeAll(t, cfg); len(names) != 3 {
		t.Fatalf("stacks = %v", names)
	}
}

func TestProvidersRejectUnknownSubnet(t *testing.T) {
	cfg := testConfig()
	cfg.Vpc = nil
	cfg.ContextFile = filepath.Join(t.TempDir(), "cdk.context.json")

	q := lookup.Query{Account: cfg.Account, Region: cfg.Region, VpcID: cfg.VpcID}
	content := `{"` + q.Key() + `": {"vpcId": "vpc-0abc", "subnetGroups": [{"name": "Private", "type": "Private",
		"subnets": [{"subnetId": "subnet-9"}]}]}}`
	if err := os.WriteFile(cfg.ContextFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	vpcs, err := Providers(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := App(context.Background(), cfg, vpcs, Options{}); err == nil {
		t.Fatal("expected subnet-1 to be rejected for a vpc holding only subnet-9")
	}
}

func TestRecordContext(t *testing.T) {
	cfg := testConfig()
	if changed, err := RecordContext(cfg); err != nil || changed {
		t.Fatalf("no context file: changed=%v err=%v", changed, err)
	}

	cfg.ContextFile = filepath.Join(t.TempDir(), "cdk.context.json")
	changed, err := RecordContext(cfg)
	if err != nil || !changed {
		t.Fatalf("first record: changed=%v err=%v", changed, err)
	}
	if changed, err := RecordContext(cfg); err != nil || changed {
		t.Fatalf("second record: changed=%v err=%v", changed, err)
	}

	// The recorded entry answers on its own once the inline block is gone.
	cfg.Vpc = nil
	if names := composeAll(t, cfg); len(names) != 3 {
		t.Fatalf("stacks = %v", names)
	}
}
