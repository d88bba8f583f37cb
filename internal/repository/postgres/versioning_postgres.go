package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docvault/internal/database"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// VersioningConfigPostgres stores organization defaults in organization_versioning_configurations
// and overrides in category_versioning_configurations.
type VersioningConfigPostgres struct {
	db *sql.DB
}

func NewVersioningConfigPostgres(db *sql.DB) *VersioningConfigPostgres {
	return &VersioningConfigPostgres{db: db}
}

var _ repository.VersioningConfigRepository = (*VersioningConfigPostgres)(nil)

const orgConfigColumns = `id, organization_id, default_versioning_enabled, default_max_versions, is_active, created_at, updated_at`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanOrgConfig(s scanner) (*model.OrganizationVersioningConfig, error) {
	var c model.OrganizationVersioningConfig
	if err := s.Scan(&c.ID, &c.OrganizationID, &c.DefaultEnabled, &c.DefaultMaxVersions, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	c.Categories = []model.CategoryVersioningConfig{}
	return &c, nil
}

func loadCategories(ctx context.Context, q querier, configID string) ([]model.CategoryVersioningConfig, error) {
	const qCat = `
		SELECT id, category, versioning_enabled, max_versions
		FROM category_versioning_configurations
		WHERE organization_config_id = $1
		ORDER BY category
	`
	rows, err := q.QueryContext(ctx, qCat, configID)
	if err != nil {
		return nil, fmt.Errorf("query category configs: %w", err)
	}
	defer rows.Close()

	out := make([]model.CategoryVersioningConfig, 0)
	for rows.Next() {
		var cc model.CategoryVersioningConfig
		var category string
		if err := rows.Scan(&cc.ID, &category, &cc.Enabled, &cc.MaxVersions); err != nil {
			return nil, err
		}
		cc.Category = model.Category(category)
		out = append(out, cc)
	}
	return out, rows.Err()
}

// GetOrganizationConfig loads the organization row and its category overrides.
func (r *VersioningConfigPostgres) GetOrganizationConfig(ctx context.Context, orgID string) (*model.OrganizationVersioningConfig, error) {
	q := `SELECT ` + orgConfigColumns + ` FROM organization_versioning_configurations WHERE organization_id = $1`
	cfg, err := scanOrgConfig(r.db.QueryRowContext(ctx, q, orgID))
	if err != nil {
		return nil, err
	}
	if cfg.Categories, err = loadCategories(ctx, r.db, cfg.ID); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListActive returns active configurations. Category overrides are loaded per organization.
func (r *VersioningConfigPostgres) ListActive(ctx context.Context) ([]model.OrganizationVersioningConfig, error) {
	q := `SELECT ` + orgConfigColumns + ` FROM organization_versioning_configurations WHERE is_active ORDER BY organization_id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	var out []model.OrganizationVersioningConfig
	for rows.Next() {
		cfg, err := scanOrgConfig(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *cfg)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].Categories, err = loadCategories(ctx, r.db, out[i].ID); err != nil {
			return nil, err
		}
	}
	if out == nil {
		out = []model.OrganizationVersioningConfig{}
	}
	return out, nil
}

// Save upserts the organization row and replaces its overrides in one transaction.
func (r *VersioningConfigPostgres) Save(ctx context.Context, cfg *model.OrganizationVersioningConfig) (*model.OrganizationVersioningConfig, error) {
	var saved *model.OrganizationVersioningConfig
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		q := `
			INSERT INTO organization_versioning_configurations (id, organization_id, default_versioning_enabled, default_max_versions, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, TRUE, $5, $5)
			ON CONFLICT (organization_id) DO UPDATE
			SET default_versioning_enabled = EXCLUDED.default_versioning_enabled,
			    default_max_versions = EXCLUDED.default_max_versions,
			    is_active = TRUE,
			    updated_at = EXCLUDED.updated_at
			RETURNING ` + orgConfigColumns
		row := tx.QueryRowContext(ctx, q, cfg.ID, cfg.OrganizationID, cfg.DefaultEnabled, cfg.DefaultMaxVersions, cfg.UpdatedAt)
		out, err := scanOrgConfig(row)
		if err != nil {
			return fmt.Errorf("upsert organization config: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM category_versioning_configurations WHERE organization_config_id = $1`, out.ID); err != nil {
			return fmt.Errorf("clear category configs: %w", err)
		}
		for _, cc := range cfg.Categories {
			const qIns = `
				INSERT INTO category_versioning_configurations (id, organization_config_id, category, versioning_enabled, max_versions)
				VALUES ($1, $2, $3, $4, $5)
			`
			if _, err := tx.ExecContext(ctx, qIns, cc.ID, out.ID, string(cc.Category), cc.Enabled, cc.MaxVersions); err != nil {
				return fmt.Errorf("insert category config %s: %w", cc.Category, err)
			}
		}
		if out.Categories, err = loadCategories(ctx, tx, out.ID); err != nil {
			return err
		}
		saved = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *VersioningConfigPostgres) UpdateDefaults(ctx context.Context, orgID string, enabled bool, maxVersions int) error {
	const q = `
		UPDATE organization_versioning_configurations
		SET default_versioning_enabled = $2, default_max_versions = $3, updated_at = now()
		WHERE organization_id = $1
	`
	res, err := r.db.ExecContext(ctx, q, orgID, enabled, maxVersions)
	if err != nil {
		return fmt.Errorf("update organization defaults: %w", err)
	}
	return requireAffected(res)
}

func (r *VersioningConfigPostgres) UpsertCategory(ctx context.Context, orgID string, cc model.CategoryVersioningConfig) error {
	const q = `
		INSERT INTO category_versioning_configurations (id, organization_config_id, category, versioning_enabled, max_versions)
		SELECT $1, o.id, $3, $4, $5
		FROM organization_versioning_configurations o
		WHERE o.organization_id = $2
		ON CONFLICT (organization_config_id, category) DO UPDATE
		SET versioning_enabled = EXCLUDED.versioning_enabled,
		    max_versions = EXCLUDED.max_versions
	`
	res, err := r.db.ExecContext(ctx, q, cc.ID, orgID, string(cc.Category), cc.Enabled, cc.MaxVersions)
	if err != nil {
		return fmt.Errorf("upsert category config: %w", err)
	}
	return requireAffected(res)
}

func (r *VersioningConfigPostgres) RemoveCategory(ctx context.Context, orgID string, category model.Category) error {
	const q = `
		DELETE FROM category_versioning_configurations c
		USING organization_versioning_configurations o
		WHERE c.organization_config_id = o.id AND o.organization_id = $1 AND c.category = $2
	`
	res, err := r.db.ExecContext(ctx, q, orgID, string(category))
	if err != nil {
		return fmt.Errorf("remove category config: %w", err)
	}
	return requireAffected(res)
}

func (r *VersioningConfigPostgres) Deactivate(ctx context.Context, orgID string) error {
	const q = `
		UPDATE organization_versioning_configurations
		SET is_active = FALSE, updated_at = now()
		WHERE organization_id = $1
	`
	res, err := r.db.ExecContext(ctx, q, orgID)
	if err != nil {
		return fmt.Errorf("deactivate organization config: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
