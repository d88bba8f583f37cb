package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PolicySetting is a static {enabled, max_versions} pair.
type PolicySetting struct {
	Enabled     bool `yaml:"enabled"`
	MaxVersions int  `yaml:"max_versions"`
}

// OrganizationVersioning is a statically configured organization entry.
// Categories holds per-category overrides keyed by lowercase category token.
type OrganizationVersioning struct {
	OrganizationID     string                   `yaml:"organization_id"`
	DefaultEnabled     bool                     `yaml:"default_enabled"`
	DefaultMaxVersions int                      `yaml:"default_max_versions"`
	Categories         map[string]PolicySetting `yaml:"categories"`
}

// VersioningDefaults is the compiled-in or file-provided fallback used when
// an organization has no configuration in the database.
type VersioningDefaults struct {
	Default       PolicySetting            `yaml:"default"`
	Categories    map[string]PolicySetting `yaml:"categories"`
	Organizations []OrganizationVersioning `yaml:"organizations"`
}

// LoadVersioningDefaults reads static versioning defaults from a YAML file.
// An empty path yields the compiled-in defaults {enabled:false, max_versions:0}.
func LoadVersioningDefaults(path string) (*VersioningDefaults, error) {
	if path == "" {
		return &VersioningDefaults{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read versioning defaults: %w", err)
	}
	return ParseVersioningDefaults(b)
}

// ParseVersioningDefaults decodes YAML bytes and normalizes category keys.
func ParseVersioningDefaults(b []byte) (*VersioningDefaults, error) {
	var d VersioningDefaults
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse versioning defaults: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	d.Categories = lowerKeys(d.Categories)
	for i := range d.Organizations {
		d.Organizations[i].Categories = lowerKeys(d.Organizations[i].Categories)
	}
	return &d, nil
}

// Organization returns the static entry for orgID, matched case-insensitively.
func (d *VersioningDefaults) Organization(orgID string) (OrganizationVersioning, bool) {
	for _, o := range d.Organizations {
		if strings.EqualFold(o.OrganizationID, orgID) {
			return o, true
		}
	}
	return OrganizationVersioning{}, false
}

func (d *VersioningDefaults) validate() error {
	if d.Default.MaxVersions < 0 {
		return fmt.Errorf("invalid versioning defaults: default max_versions must be >= 0")
	}
	for k, v := range d.Categories {
		if v.MaxVersions < 0 {
			return fmt.Errorf("invalid versioning defaults: category %q max_versions must be >= 0", k)
		}
	}
	for _, o := range d.Organizations {
		if o.OrganizationID == "" {
			return fmt.Errorf("invalid versioning defaults: organization_id is required")
		}
		if o.DefaultMaxVersions < 0 {
			return fmt.Errorf("invalid versioning defaults: organization %q max_versions must be >= 0", o.OrganizationID)
		}
		for k, v := range o.Categories {
			if v.MaxVersions < 0 {
				return fmt.Errorf("invalid versioning defaults: organization %q category %q max_versions must be >= 0", o.OrganizationID, k)
			}
		}
	}
	return nil
}

func lowerKeys(m map[string]PolicySetting) map[string]PolicySetting {
	if len(m) == 0 {
		return m
	}
	out := make(map[string]PolicySetting, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
