package objectstore

import (
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Region: "eu-west-2"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"scheme in endpoint", func(c *Config) { c.Endpoint = "http://localhost:9000" }},
		{"empty endpoint", func(c *Config) { c.Endpoint = " " }},
		{"half a key pair", func(c *Config) { c.SecretKey = "" }},
		{"no region", func(c *Config) { c.Region = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvEndpoint, "minio.local:9000")
	t.Setenv(EnvAccessKey, "key")
	t.Setenv(EnvSecretKey, "secret")
	t.Setenv(EnvUseSSL, "false")
	t.Setenv(EnvRegion, "")

	cfg, err := ConfigFromEnv("eu-west-2")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoint != "minio.local:9000" || cfg.UseSSL || cfg.Region != "eu-west-2" {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv(EnvUseSSL, "maybe")
	if _, err := ConfigFromEnv("eu-west-2"); err == nil {
		t.Error("expected error for bad bool")
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	t.Setenv(EnvAccessKey, "")
	t.Setenv(EnvSecretKey, "")
	t.Setenv(EnvUseSSL, "")
	t.Setenv(EnvRegion, "us-east-1")

	cfg, err := ConfigFromEnv("eu-west-2")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Endpoint != "s3.amazonaws.com" || !cfg.UseSSL || cfg.Region != "us-east-1" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestMetaValue(t *testing.T) {
	for _, m := range []map[string]string{
		{"Blake3": "abc"},
		{"blake3": "abc"},
		{"X-Amz-Meta-Blake3": "abc"},
	} {
		if got := metaValue(m, hashMetaKey); got != "abc" {
			t.Errorf("metaValue(%v) = %q", m, got)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := contentType("components/ubuntu/install_xrdp.yml"); got != "application/x-yaml" {
		t.Errorf("yml content type = %q", got)
	}
	if got := contentType("components/blob"); got != "application/octet-stream" {
		t.Errorf("no-ext content type = %q", got)
	}
}
