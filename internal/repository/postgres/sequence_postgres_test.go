package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionSequencePostgres_Next(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		floor      int
		setupMocks func(mock sqlmock.Sqlmock)
		want       int
		wantErr    string
	}{
		{
			name:  "seeded above the listed maximum",
			floor: 4,
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("INSERT INTO document_version_sequences").
					WithArgs("doc-1", 5).
					WillReturnRows(sqlmock.NewRows([]string{"last_version"}).AddRow(5))
			},
			want: 5,
		},
		{
			name:  "negative floor starts at one",
			floor: -3,
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("INSERT INTO document_version_sequences").
					WithArgs("doc-1", 1).
					WillReturnRows(sqlmock.NewRows([]string{"last_version"}).AddRow(1))
			},
			want: 1,
		},
		{
			name:  "existing sequence keeps increasing",
			floor: 2,
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("ON CONFLICT \\(document_id\\) DO UPDATE").
					WithArgs("doc-1", 3).
					WillReturnRows(sqlmock.NewRows([]string{"last_version"}).AddRow(9))
			},
			want: 9,
		},
		{
			name:  "query error",
			floor: 0,
			setupMocks: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("INSERT INTO document_version_sequences").
					WithArgs("doc-1", 1).
					WillReturnError(errors.New("deadlock detected"))
			},
			wantErr: "allocate version for doc-1: deadlock detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMocks(mock)

			got, err := NewVersionSequencePostgres(db).Next(ctx, "doc-1", tt.floor)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
