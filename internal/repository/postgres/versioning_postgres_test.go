package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/repository"
)

var (
	orgCols = []string{"id", "organization_id", "default_versioning_enabled", "default_max_versions", "is_active", "created_at", "updated_at"}
	catCols = []string{"id", "category", "versioning_enabled", "max_versions"}
)

func TestVersioningConfigPostgres_GetOrganizationConfig(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		setupMocks func(mock sqlmock.Sqlmock)
		wantErr    error
		check      func(t *testing.T, cfg *model.OrganizationVersioningConfig)
	}{
		{
			name: "with category overrides",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM organization_versioning_configurations WHERE organization_id = \\$1").
					WithArgs("acme").
					WillReturnRows(sqlmock.NewRows(orgCols).AddRow("cfg-1", "acme", true, 5, true, now, now))
				mock.ExpectQuery("SELECT (.+) FROM category_versioning_configurations").
					WithArgs("cfg-1").
					WillReturnRows(sqlmock.NewRows(catCols).
						AddRow("c-1", "invoices", true, 3).
						AddRow("c-2", "legal", false, 0))
			},
			check: func(t *testing.T, cfg *model.OrganizationVersioningConfig) {
				assert.True(t, cfg.DefaultEnabled)
				assert.Equal(t, 5, cfg.DefaultMaxVersions)
				require.Len(t, cfg.Categories, 2)
				cc, ok := cfg.CategoryOverride(model.CategoryInvoices)
				require.True(t, ok)
				assert.Equal(t, 3, cc.MaxVersions)
			},
		},
		{
			name: "missing organization",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM organization_versioning_configurations").
					WithArgs("acme").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: repository.ErrNotFound,
		},
		{
			name: "category query fails",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM organization_versioning_configurations").
					WithArgs("acme").
					WillReturnRows(sqlmock.NewRows(orgCols).AddRow("cfg-1", "acme", false, 0, true, now, now))
				mock.ExpectQuery("SELECT (.+) FROM category_versioning_configurations").
					WillReturnError(errors.New("conn reset"))
			},
			wantErr: errors.New("conn reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMocks(mock)

			cfg, err := NewVersioningConfigPostgres(db).GetOrganizationConfig(ctx, "acme")
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, repository.ErrNotFound) {
					assert.ErrorIs(t, err, repository.ErrNotFound)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVersioningConfigPostgres_ListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM organization_versioning_configurations WHERE is_active").
		WillReturnRows(sqlmock.NewRows(orgCols).
			AddRow("cfg-1", "acme", true, 2, true, now, now).
			AddRow("cfg-2", "globex", false, 0, true, now, now))
	mock.ExpectQuery("SELECT (.+) FROM category_versioning_configurations").
		WithArgs("cfg-1").
		WillReturnRows(sqlmock.NewRows(catCols).AddRow("c-1", "reports", true, 1))
	mock.ExpectQuery("SELECT (.+) FROM category_versioning_configurations").
		WithArgs("cfg-2").
		WillReturnRows(sqlmock.NewRows(catCols))

	got, err := NewVersioningConfigPostgres(db).ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got[0].Categories, 1)
	assert.Empty(t, got[1].Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersioningConfigPostgres_Save(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	cfg := &model.OrganizationVersioningConfig{
		ID:                 "cfg-new",
		OrganizationID:     "acme",
		DefaultEnabled:     true,
		DefaultMaxVersions: 4,
		UpdatedAt:          now,
		Categories: []model.CategoryVersioningConfig{
			{ID: "c-1", Category: model.CategoryLegal, Enabled: false},
		},
	}

	t.Run("commits", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO organization_versioning_configurations").
			WithArgs("cfg-new", "acme", true, 4, now).
			WillReturnRows(sqlmock.NewRows(orgCols).AddRow("cfg-old", "acme", true, 4, true, now, now))
		mock.ExpectExec("DELETE FROM category_versioning_configurations").
			WithArgs("cfg-old").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("INSERT INTO category_versioning_configurations").
			WithArgs("c-1", "cfg-old", "legal", false, 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT (.+) FROM category_versioning_configurations").
			WithArgs("cfg-old").
			WillReturnRows(sqlmock.NewRows(catCols).AddRow("c-1", "legal", false, 0))
		mock.ExpectCommit()

		saved, err := NewVersioningConfigPostgres(db).Save(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, "cfg-old", saved.ID)
		assert.True(t, saved.IsActive)
		require.Len(t, saved.Categories, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on category failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO organization_versioning_configurations").
			WillReturnRows(sqlmock.NewRows(orgCols).AddRow("cfg-new", "acme", true, 4, true, now, now))
		mock.ExpectExec("DELETE FROM category_versioning_configurations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO category_versioning_configurations").
			WillReturnError(errors.New("check violation"))
		mock.ExpectRollback()

		_, err = NewVersioningConfigPostgres(db).Save(ctx, cfg)
		assert.ErrorContains(t, err, "insert category config legal")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVersioningConfigPostgres_Mutations(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		setupMocks func(mock sqlmock.Sqlmock)
		run        func(r *VersioningConfigPostgres) error
		wantErr    error
	}{
		{
			name: "update defaults",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE organization_versioning_configurations").
					WithArgs("acme", true, 3).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			run: func(r *VersioningConfigPostgres) error { return r.UpdateDefaults(ctx, "acme", true, 3) },
		},
		{
			name: "update defaults of unknown org",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE organization_versioning_configurations").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			run:     func(r *VersioningConfigPostgres) error { return r.UpdateDefaults(ctx, "nobody", true, 3) },
			wantErr: repository.ErrNotFound,
		},
		{
			name: "upsert category",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO category_versioning_configurations").
					WithArgs("c-9", "acme", "finance", true, 10).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			run: func(r *VersioningConfigPostgres) error {
				return r.UpsertCategory(ctx, "acme", model.CategoryVersioningConfig{ID: "c-9", Category: model.CategoryFinance, Enabled: true, MaxVersions: 10})
			},
		},
		{
			name: "remove missing category",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM category_versioning_configurations").
					WithArgs("acme", "finance").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			run:     func(r *VersioningConfigPostgres) error { return r.RemoveCategory(ctx, "acme", model.CategoryFinance) },
			wantErr: repository.ErrNotFound,
		},
		{
			name: "deactivate",
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE organization_versioning_configurations\\s+SET is_active = FALSE").
					WithArgs("acme").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			run: func(r *VersioningConfigPostgres) error { return r.Deactivate(ctx, "acme") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMocks(mock)

			err = tt.run(NewVersioningConfigPostgres(db))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVersionSequencePostgres_NextSequential(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	repo := NewVersionSequencePostgres(db)

	mock.ExpectQuery("INSERT INTO document_version_sequences (.+) ON CONFLICT").
		WithArgs("doc-1", 4).
		WillReturnRows(sqlmock.NewRows([]string{"last_version"}).AddRow(4))
	mock.ExpectQuery("INSERT INTO document_version_sequences").
		WithArgs("doc-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"last_version"}).AddRow(5))
	mock.ExpectQuery("INSERT INTO document_version_sequences").
		WithArgs("doc-2", 1).
		WillReturnError(errors.New("deadlock detected"))

	v, err := repo.Next(ctx, "doc-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	v, err = repo.Next(ctx, "doc-1", -1)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	_, err = repo.Next(ctx, "doc-2", 0)
	assert.ErrorContains(t, err, "allocate version for doc-2")
	assert.NoError(t, mock.ExpectationsWereMet())
}
