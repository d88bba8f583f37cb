package model

import "time"

// VersioningPolicy is the resolved versioning behaviour for an organization
// and category. MaxVersions 0 means unlimited.
type VersioningPolicy struct {
	Enabled     bool `json:"enabled"`
	MaxVersions int  `json:"max_versions"`
}

// OrganizationVersioningConfig is the database configuration of one organization.
type OrganizationVersioningConfig struct {
	ID                 string                     `json:"id"`
	OrganizationID     string                     `json:"organization_id"`
	DefaultEnabled     bool                       `json:"default_versioning_enabled"`
	DefaultMaxVersions int                        `json:"default_max_versions"`
	IsActive           bool                       `json:"is_active"`
	Categories         []CategoryVersioningConfig `json:"categories"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

// CategoryVersioningConfig overrides the organization default for one category.
type CategoryVersioningConfig struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Enabled     bool     `json:"versioning_enabled"`
	MaxVersions int      `json:"max_versions"`
}

// CategoryOverride returns the override for c if one exists.
func (o *OrganizationVersioningConfig) CategoryOverride(c Category) (CategoryVersioningConfig, bool) {
	for _, cc := range o.Categories {
		if cc.Category == c {
			return cc, true
		}
	}
	return CategoryVersioningConfig{}, false
}
