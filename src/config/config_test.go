package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLMergesVariants(t *testing.T) {
	path := writeConfig(t, "imagefreight.yml", `
version: 1
account: "111111111111"
region: eu-west-1
vpc_id: vpc-123
subnet_id: subnet-456
resource_tags:
  project: centralised-amis
variants:
  - id: ubuntu
    base_image_id: ami-ubuntu
    root_volume_size: 50
  - id: rocky
    stack_name: RockyImagebuilderPipeline
    name_prefix: Rocky
    platform_folder: rocky
    base_image_id: ami-rocky
    root_volume_size: 40
    instance_types: [m5.large]
    components:
      - {id: rComponentBase, name: RockyBase, file: base.yml, version: 2.1.0}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ubuntu := cfg.Variant(VariantUbuntu)
	if ubuntu == nil {
		t.Fatal("ubuntu variant missing")
	}
	if ubuntu.BaseImageID != "ami-ubuntu" || ubuntu.RootVolumeSize != 50 {
		t.Fatalf("ubuntu overrides not applied: %+v", ubuntu)
	}
	if len(ubuntu.Components) != 3 || ubuntu.Components[0].Name != "BasicUbuntuSetup" {
		t.Fatalf("ubuntu components should keep defaults: %+v", ubuntu.Components)
	}

	al2 := cfg.Variant(VariantAmazonLinux)
	if al2.RootVolumeSize != 30 {
		t.Fatalf("amazon linux volume changed by ubuntu override: %d", al2.RootVolumeSize)
	}

	rocky := cfg.Variant("rocky")
	if rocky == nil || rocky.Platform != "Linux" || rocky.DeviceName != "/dev/xvda" || rocky.Recipe.Version != "1.0.0" {
		t.Fatalf("new variant defaults not filled: %+v", rocky)
	}
	if cfg.ResourceTags["project"] != "centralised-amis" {
		t.Fatalf("tags = %v", cfg.ResourceTags)
	}
}

func TestLoadCDKContext(t *testing.T) {
	path := writeConfig(t, "cdk.json", `{
  "app": "imagefreight synth",
  // context mirrors the original deployment
  "context": {
    "vpc_id": "vpc-abc",
    "subnet_id": "subnet-def",
    "resource_tags": {"cost-centre": "1234"},
    "al2_config": {
      "base_image_id": "ami-al2",
      "root_volume_size": 60,
      "instance_types": ["t3.large", "t3.xlarge"],
    },
    "ubuntu_config": {"base_image_id": "ami-ubu", "root_volume_size": 40, "instance_types": ["t3.large"]}
  }
}`)
	t.Setenv("CDK_DEFAULT_ACCOUNT", "222222222222")
	t.Setenv("CDK_DEFAULT_REGION", "ap-southeast-2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Account != "222222222222" || cfg.Region != "ap-southeast-2" {
		t.Fatalf("env fallback not applied: %s %s", cfg.Account, cfg.Region)
	}
	if cfg.VpcID != "vpc-abc" || cfg.SubnetID != "subnet-def" {
		t.Fatalf("network not read: %s %s", cfg.VpcID, cfg.SubnetID)
	}
	al2 := cfg.Variant(VariantAmazonLinux)
	if al2.BaseImageID != "ami-al2" || al2.RootVolumeSize != 60 || len(al2.InstanceTypes) != 2 {
		t.Fatalf("al2_config not mapped: %+v", al2)
	}
	if got := cfg.Variant(VariantUbuntu).BaseImageID; got != "ami-ubu" {
		t.Fatalf("ubuntu_config not mapped: %s", got)
	}
	if _, err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "imagefreight.toml", `
account = "333333333333"
region = "us-east-1"
vpc_id = "vpc-1"
subnet_id = "subnet-1"

[store]
key_prefix = "docs"

[[variants]]
id = "amazon_linux"
base_image_id = "ami-1"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.KeyPrefix != "docs" || cfg.Store.ParameterName != "/centralised-amis/components-bucket-name" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Variant(VariantAmazonLinux).BaseImageID != "ami-1" {
		t.Fatal("toml variant override not applied")
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	wd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Variants) != 2 {
		t.Fatalf("expected built-in variants, got %d", len(cfg.Variants))
	}

	if _, err := Load("does-not-exist.yml"); err == nil {
		t.Fatal("explicit missing config should fail")
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := writeConfig(t, "imagefreight.yml", "version: 7\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unknown config version 7") {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.Account = "111111111111"
		cfg.Region = "eu-west-1"
		cfg.VpcID = "vpc-1"
		cfg.SubnetID = "subnet-1"
		cfg.ResourceTags["project"] = "amis"
		for i := range cfg.Variants {
			cfg.Variants[i].BaseImageID = "ami-1"
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:   "missing account",
			mutate: func(c *Config) { c.Account = "" },
			want:   "account: required",
		},
		{
			name:   "missing subnet",
			mutate: func(c *Config) { c.SubnetID = "" },
			want:   "subnet_id: required",
		},
		{
			name:   "component version not literal semver",
			mutate: func(c *Config) { c.Variants[0].Components[1].Version = "1.0" },
			want:   "components[1]: version \"1.0\" is not major.minor.patch",
		},
		{
			name:   "component version empty",
			mutate: func(c *Config) { c.Variants[1].Components[0].Version = "" },
			want:   "version is required",
		},
		{
			name:   "prerelease version",
			mutate: func(c *Config) { c.Variants[0].Components[0].Version = "1.0.0-rc.1" },
			want:   "must not carry prerelease",
		},
		{
			name:   "duplicate variant",
			mutate: func(c *Config) { c.Variants[1].ID = c.Variants[0].ID },
			want:   "duplicate variant id",
		},
		{
			name:   "zero volume",
			mutate: func(c *Config) { c.Variants[0].RootVolumeSize = 0 },
			want:   "root_volume_size must be positive",
		},
		{
			name:   "no instance types",
			mutate: func(c *Config) { c.Variants[1].InstanceTypes = nil },
			want:   "at least one instance type",
		},
		{
			name:   "escaping component path",
			mutate: func(c *Config) { c.Variants[0].Components[0].File = "../secret.yml" },
			want:   "must be relative to the platform folder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			_, err := Validate(cfg)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}
