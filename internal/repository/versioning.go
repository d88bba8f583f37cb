package repository

import (
	"context"

	"docvault/internal/model"
)

// VersioningConfigRepository persists per-organization versioning configuration.
type VersioningConfigRepository interface {
	// GetOrganizationConfig returns the configuration of orgID, active or not, with its
	// category overrides, or ErrNotFound.
	GetOrganizationConfig(ctx context.Context, orgID string) (*model.OrganizationVersioningConfig, error)

	// ListActive returns every active configuration ordered by organization.
	ListActive(ctx context.Context) ([]model.OrganizationVersioningConfig, error)

	// Save inserts cfg or, when the organization already has a row, replaces its defaults
	// and category overrides and reactivates it.
	Save(ctx context.Context, cfg *model.OrganizationVersioningConfig) (*model.OrganizationVersioningConfig, error)

	// UpdateDefaults changes the organization defaults. ErrNotFound if orgID has no row.
	UpdateDefaults(ctx context.Context, orgID string, enabled bool, maxVersions int) error

	// UpsertCategory creates or replaces one category override.
	UpsertCategory(ctx context.Context, orgID string, cc model.CategoryVersioningConfig) error

	// RemoveCategory deletes a category override. ErrNotFound if there was none.
	RemoveCategory(ctx context.Context, orgID string, category model.Category) error

	// Deactivate soft-deletes the configuration. ErrNotFound if orgID has no row.
	Deactivate(ctx context.Context, orgID string) error
}

// VersionSequenceRepository hands out per-document version numbers atomically.
type VersionSequenceRepository interface {
	// Next returns the next version of documentID. The result is always greater than
	// floor and greater than any value previously returned for documentID.
	Next(ctx context.Context, documentID string, floor int) (int, error)
}
