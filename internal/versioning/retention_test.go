package versioning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/storage"
)

func newTestRetention(store *storage.Memory, rec *recorder) *Retention {
	e := NewEnumerator(store, 5, func() time.Time { return testNow })
	return NewRetention(e, store, nil, rec)
}

func TestRetention_Enforce(t *testing.T) {
	tests := []struct {
		name        string
		seeded      []int
		maxVersions int
		failOn      int
		want        RetentionReport
		wantKept    int
	}{
		{
			name:        "unlimited is a no-op",
			seeded:      []int{1, 2, 3},
			maxVersions: 0,
			want:        RetentionReport{},
			wantKept:    3,
		},
		{
			name:        "negative is a no-op",
			seeded:      []int{1, 2, 3},
			maxVersions: -1,
			want:        RetentionReport{},
			wantKept:    3,
		},
		{
			name:        "under the limit",
			seeded:      []int{1, 2},
			maxVersions: 5,
			want:        RetentionReport{Listed: 2, Kept: []int{2, 1}},
			wantKept:    2,
		},
		{
			name:        "deletes oldest first",
			seeded:      []int{1, 2, 3, 4, 5},
			maxVersions: 2,
			want:        RetentionReport{Listed: 5, Kept: []int{5, 4}, Deleted: []int{1, 2, 3}},
			wantKept:    2,
		},
		{
			name:        "a failed delete does not stop the pass",
			seeded:      []int{1, 2, 3, 4, 5},
			maxVersions: 2,
			failOn:      2,
			want:        RetentionReport{Listed: 5, Kept: []int{5, 4}, Deleted: []int{1, 3}, Failed: []int{2}},
			wantKept:    3,
		},
		{
			name:        "keeps the highest versions when numbers have gaps",
			seeded:      []int{2, 7, 9, 15},
			maxVersions: 1,
			want:        RetentionReport{Listed: 4, Kept: []int{15}, Deleted: []int{2, 7, 9}},
			wantKept:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemory()
			store.SetClock(func() time.Time { return testNow })
			keys := map[int]string{}
			for _, v := range tt.seeded {
				keys[v] = seed(t, store, contractRef, 2026, v)
			}
			if tt.failOn > 0 {
				failKey := keys[tt.failOn]
				store.DeleteHook = func(key string) error {
					if key == failKey {
						return errors.New("access denied")
					}
					return nil
				}
			}
			rec := &recorder{}

			report, err := newTestRetention(store, rec).Enforce(context.Background(), contractRef, tt.maxVersions)
			require.NoError(t, err)
			assert.Equal(t, tt.want, report)
			assert.Len(t, store.Keys(), tt.wantKept)
			assert.Len(t, rec.deletions, len(tt.want.Deleted)+len(tt.want.Failed))
		})
	}
}

func TestRetention_ListingFailure(t *testing.T) {
	store := storage.NewMemory()
	store.ListHook = func(string) error { return errors.New("no such bucket") }

	report, err := newTestRetention(store, &recorder{}).Enforce(context.Background(), contractRef, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enumerate versions")
	assert.Equal(t, RetentionReport{}, report)
	assert.Equal(t, 0, store.Deletes())
}

func TestRetention_StopsCleanlyOnCancellation(t *testing.T) {
	store := storage.NewMemory()
	store.SetClock(func() time.Time { return testNow })
	for v := 1; v <= 5; v++ {
		seed(t, store, contractRef, 2026, v)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.DeleteHook = func(string) error {
		cancel()
		return nil
	}

	report, err := newTestRetention(store, &recorder{}).Enforce(ctx, contractRef, 1)
	require.NoError(t, err)
	assert.True(t, report.Abandoned)
	assert.Equal(t, []int{1}, report.Deleted)
	assert.Empty(t, report.Failed)

	versions, err := NewEnumerator(store, 5, func() time.Time { return testNow }).ListVersions(context.Background(), contractRef)
	require.NoError(t, err)
	assert.Equal(t, 5, versions[0].Version, "the highest version always survives a partial pass")
	assert.Len(t, versions, 4)
}
