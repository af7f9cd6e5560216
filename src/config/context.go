package config

import (
	"encoding/json"
	"fmt"
)

// contextVariantKeys maps cdk.json context blocks onto built-in variants.
var contextVariantKeys = map[string]string{
	"al2_config":    VariantAmazonLinux,
	"ubuntu_config": VariantUbuntu,
}

// cdkContext is the shape of the "context" object in cdk.json.
type cdkContext struct {
	Account      string            `json:"account"`
	Region       string            `json:"region"`
	VpcID        string            `json:"vpc_id"`
	SubnetID     string            `json:"subnet_id"`
	ResourceTags map[string]string `json:"resource_tags"`
}

// contextVariant is one per-variant block such as al2_config.
type contextVariant struct {
	BaseImageID    string   `json:"base_image_id"`
	RootVolumeSize int      `json:"root_volume_size"`
	InstanceTypes  []string `json:"instance_types"`
}

func decodeContext(raw json.RawMessage, into *Config) error {
	var ctx cdkContext
	if err := json.Unmarshal(raw, &ctx); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	into.Account = ctx.Account
	into.Region = ctx.Region
	into.VpcID = ctx.VpcID
	into.SubnetID = ctx.SubnetID
	into.ResourceTags = ctx.ResourceTags

	var blocks map[string]json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	for _, key := range sortedKeys(contextVariantKeys) {
		data, ok := blocks[key]
		if !ok {
			continue
		}
		var cv contextVariant
		if err := json.Unmarshal(data, &cv); err != nil {
			return fmt.Errorf("context.%s: %w", key, err)
		}
		into.Variants = append(into.Variants, VariantConfig{
			ID:             contextVariantKeys[key],
			BaseImageID:    cv.BaseImageID,
			RootVolumeSize: cv.RootVolumeSize,
			InstanceTypes:  cv.InstanceTypes,
		})
	}
	return nil
}
