package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docvault/internal/repository"
)

// VersionSequencePostgres allocates version numbers from document_version_sequences.
// The upsert takes a row lock, so concurrent callers for one document are serialized
// and each receives a distinct number.
type VersionSequencePostgres struct {
	db *sql.DB
}

func NewVersionSequencePostgres(db *sql.DB) *VersionSequencePostgres {
	return &VersionSequencePostgres{db: db}
}

var _ repository.VersionSequenceRepository = (*VersionSequencePostgres)(nil)

func (r *VersionSequencePostgres) Next(ctx context.Context, documentID string, floor int) (int, error) {
	const q = `
		INSERT INTO document_version_sequences AS seq (document_id, last_version, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (document_id) DO UPDATE
		SET last_version = GREATEST(seq.last_version + 1, EXCLUDED.last_version),
		    updated_at = now()
		RETURNING last_version
	`
	if floor < 0 {
		floor = 0
	}
	var next int
	if err := r.db.QueryRowContext(ctx, q, documentID, floor+1).Scan(&next); err != nil {
		return 0, fmt.Errorf("allocate version for %s: %w", documentID, err)
	}
	return next, nil
}
