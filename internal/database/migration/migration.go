package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created by the last step; its presence means the schema is current.
const sentinelTable = "public.document_version_sequences"

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_organization_versioning_configurations",
		SQL: `CREATE TABLE IF NOT EXISTS organization_versioning_configurations (
  id                         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  organization_id            TEXT        NOT NULL UNIQUE,
  default_versioning_enabled BOOLEAN     NOT NULL DEFAULT FALSE,
  default_max_versions       INTEGER     NOT NULL DEFAULT 0 CHECK (default_max_versions >= 0),
  is_active                  BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at                 TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_category_versioning_configurations",
		SQL: `CREATE TABLE IF NOT EXISTS category_versioning_configurations (
  id                     UUID    PRIMARY KEY DEFAULT uuid_generate_v4(),
  organization_config_id UUID    NOT NULL REFERENCES organization_versioning_configurations (id) ON DELETE CASCADE,
  category               TEXT    NOT NULL,
  versioning_enabled     BOOLEAN NOT NULL,
  max_versions           INTEGER NOT NULL DEFAULT 0 CHECK (max_versions >= 0),
  UNIQUE (organization_config_id, category)
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id              UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  organization_id TEXT        NOT NULL,
  category        TEXT        NOT NULL,
  filename        TEXT        NOT NULL,
  object_key      TEXT        NOT NULL,
  size            BIGINT      NOT NULL CHECK (size >= 0),
  content_type    TEXT        NOT NULL,
  current_version INTEGER     NOT NULL DEFAULT 1 CHECK (current_version >= 1),
  description     TEXT        NOT NULL DEFAULT '',
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_organization_category",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_organization_category ON documents (organization_id, category);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
	{
		Name: "create_table_document_version_sequences",
		SQL: `CREATE TABLE IF NOT EXISTS document_version_sequences (
  document_id  TEXT        PRIMARY KEY,
  last_version INTEGER     NOT NULL CHECK (last_version >= 1),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
}

// EnsureMigrated checks for the sentinel table and runs every step if it is missing.
// Steps are idempotent, so a run interrupted halfway is completed by the next one.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With("component", "database", "db_host", dbHost)

	log.Info("db_migration_check", "status", "starting")

	var exists bool
	query := "SELECT to_regclass($1) IS NOT NULL"
	if err := db.QueryRowContext(ctx, query, sentinelTable).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel table: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info("db_migration_start", "status", "in_progress", "steps", len(steps))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info("db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
