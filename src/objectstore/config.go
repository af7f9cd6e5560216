// Package objectstore talks to the components bucket through the S3 API.
// It checks the bucket the storage stack owns and implements the store
// the artifact tree is mirrored into.
package objectstore

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvEndpoint  = "IMAGEFREIGHT_S3_ENDPOINT"
	EnvAccessKey = "IMAGEFREIGHT_S3_ACCESS_KEY"
	EnvSecretKey = "IMAGEFREIGHT_S3_SECRET_KEY"
	EnvUseSSL    = "IMAGEFREIGHT_S3_USE_SSL"
	EnvRegion    = "IMAGEFREIGHT_S3_REGION"
)

// Config locates the S3 endpoint. Empty keys fall back to the standard
// AWS credential sources.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// ConfigFromEnv reads Config from the environment. region is used when
// IMAGEFREIGHT_S3_REGION is unset.
func ConfigFromEnv(region string) (Config, error) {
	useSSL := true
	if raw := strings.TrimSpace(os.Getenv(EnvUseSSL)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvUseSSL, err)
		}
		useSSL = v
	}
	if r := os.Getenv(EnvRegion); r != "" {
		region = r
	}
	cfg := Config{
		Endpoint:  envOr(EnvEndpoint, "s3.amazonaws.com"),
		AccessKey: os.Getenv(EnvAccessKey),
		SecretKey: os.Getenv(EnvSecretKey),
		Region:    region,
		UseSSL:    useSSL,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the endpoint and key pairing.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("access key and secret key must be set together")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
