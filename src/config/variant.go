package config

import "sort"

// Built-in variant IDs.
const (
	VariantAmazonLinux = "amazon_linux"
	VariantUbuntu      = "ubuntu"
)

// VariantConfig describes one image pipeline. Variants share the same
// declaration sequence and differ only in these values.
type VariantConfig struct {
	// ID is the unique variant key, referenced from CLI flags and the
	// cdk.json context mapping.
	ID string `yaml:"id" toml:"id" json:"id"`

	// StackName is the deployment unit name.
	StackName string `yaml:"stack_name" toml:"stack_name" json:"stack_name"`

	// NamePrefix seeds logical IDs and physical names, e.g.
	// "Ubuntu" → rUbuntuWorkspaceInstanceRole, UbuntuWorkspaceImagePipeline.
	NamePrefix string `yaml:"name_prefix" toml:"name_prefix" json:"name_prefix"`

	// ManagedPolicyID overrides the logical ID of the instance policy.
	// Set it to the hash-suffixed ID cdk gave a deployed stack (for
	// example rAl2WorkspaceManagedPolicy3F4A9B2C) to keep that resource.
	ManagedPolicyID string `yaml:"managed_policy_id" toml:"managed_policy_id" json:"managed_policy_id"`

	// Description is used for the stack and its security group.
	Description string `yaml:"description" toml:"description" json:"description"`

	// Platform is the Image Builder component platform (Linux, Windows).
	Platform string `yaml:"platform" toml:"platform" json:"platform"`

	// PlatformFolder is the sub-directory under the components prefix
	// holding this variant's documents.
	PlatformFolder string `yaml:"platform_folder" toml:"platform_folder" json:"platform_folder"`

	// Components are installed in this order.
	Components []ComponentConfig `yaml:"components" toml:"components" json:"components"`

	Recipe RecipeConfig `yaml:"recipe" toml:"recipe" json:"recipe"`

	BaseImageID    string   `yaml:"base_image_id" toml:"base_image_id" json:"base_image_id"`
	RootVolumeSize int      `yaml:"root_volume_size" toml:"root_volume_size" json:"root_volume_size"`
	InstanceTypes  []string `yaml:"instance_types" toml:"instance_types" json:"instance_types"`
	DeviceName     string   `yaml:"device_name" toml:"device_name" json:"device_name"`
	VolumeType     string   `yaml:"volume_type" toml:"volume_type" json:"volume_type"`
}

// ComponentConfig is one named, versioned installation document.
// Version is assigned by hand: editing the document without bumping it
// redeploys under the old version.
type ComponentConfig struct {
	ID      string `yaml:"id" toml:"id" json:"id"`
	Name    string `yaml:"name" toml:"name" json:"name"`
	File    string `yaml:"file" toml:"file" json:"file"`
	Version string `yaml:"version" toml:"version" json:"version"`
}

// RecipeConfig names the image recipe.
type RecipeConfig struct {
	Version string `yaml:"version" toml:"version" json:"version"`
}

// DefaultVariants returns the two desktop images.
func DefaultVariants() []VariantConfig {
	return []VariantConfig{
		{
			ID:              VariantAmazonLinux,
			StackName:       "Al2MateImagebuilderPipeline",
			NamePrefix:      "AmazonLinuxMate",
			ManagedPolicyID: "rAl2WorkspaceManagedPolicy",
			Description:     "Amazon Linux 2 Mate custom image",
			Platform:        "Linux",
			PlatformFolder:  "amazon_linux",
			Components: []ComponentConfig{
				{ID: "rComponentFirefox", Name: "InstallFirefox", File: "install_firefox.yml", Version: "1.0.0"},
				{ID: "rComponentLibreoffice", Name: "InstallLibreoffice", File: "install_libreoffice.yml", Version: "1.0.0"},
				{ID: "rComponentXrdp", Name: "EnableXrdp", File: "enable_xrdp.yml", Version: "1.0.0"},
			},
			Recipe:         RecipeConfig{Version: "1.0.0"},
			RootVolumeSize: 30,
			InstanceTypes:  []string{"t3.medium"},
			DeviceName:     "/dev/xvda",
			VolumeType:     "gp3",
		},
		{
			ID:             VariantUbuntu,
			StackName:      "UbuntuImagebuilderPipeline",
			NamePrefix:     "Ubuntu",
			Description:    "Ubuntu Mate custom image",
			Platform:       "Linux",
			PlatformFolder: "ubuntu",
			Components: []ComponentConfig{
				{ID: "rComponentFBasicUbuntuSetup", Name: "BasicUbuntuSetup", File: "basic_ubuntu_setup.yml", Version: "1.0.0"},
				{ID: "rComponentMateDesktop", Name: "InstallMateDesktop", File: "install_ubuntu_mate_desktop.yml", Version: "1.0.0"},
				{ID: "rComponentXrdp", Name: "InstallXrdp", File: "install_xrdp.yml", Version: "1.0.0"},
			},
			Recipe:         RecipeConfig{Version: "1.0.0"},
			RootVolumeSize: 30,
			InstanceTypes:  []string{"t3.medium"},
			DeviceName:     "/dev/xvda",
			VolumeType:     "gp3",
		},
	}
}

// merge overlays non-zero fields of o. A non-empty component list
// replaces the whole list so order stays under the file's control.
func (v *VariantConfig) merge(o VariantConfig) {
	setString(&v.StackName, o.StackName)
	setString(&v.NamePrefix, o.NamePrefix)
	setString(&v.ManagedPolicyID, o.ManagedPolicyID)
	setString(&v.Description, o.Description)
	setString(&v.Platform, o.Platform)
	setString(&v.PlatformFolder, o.PlatformFolder)
	setString(&v.Recipe.Version, o.Recipe.Version)
	setString(&v.BaseImageID, o.BaseImageID)
	setString(&v.DeviceName, o.DeviceName)
	setString(&v.VolumeType, o.VolumeType)
	if o.RootVolumeSize != 0 {
		v.RootVolumeSize = o.RootVolumeSize
	}
	if len(o.InstanceTypes) > 0 {
		v.InstanceTypes = append([]string(nil), o.InstanceTypes...)
	}
	if len(o.Components) > 0 {
		v.Components = append([]ComponentConfig(nil), o.Components...)
	}
}

// PolicyID returns the logical ID of the instance policy.
func (v VariantConfig) PolicyID() string {
	if v.ManagedPolicyID != "" {
		return v.ManagedPolicyID
	}
	return "r" + v.NamePrefix + "WorkspaceManagedPolicy"
}

// clone returns a deep copy so variants never share slices.
func (v VariantConfig) clone() VariantConfig {
	out := v
	out.InstanceTypes = append([]string(nil), v.InstanceTypes...)
	out.Components = append([]ComponentConfig(nil), v.Components...)
	if out.Platform == "" {
		out.Platform = "Linux"
	}
	if out.DeviceName == "" {
		out.DeviceName = "/dev/xvda"
	}
	if out.VolumeType == "" {
		out.VolumeType = "gp3"
	}
	if out.Recipe.Version == "" {
		out.Recipe.Version = "1.0.0"
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
