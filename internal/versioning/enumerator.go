package versioning

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"docvault/internal/model"
	"docvault/internal/objectkey"
	"docvault/internal/storage"
)

// DefaultHistoryYears is the year window scanned when none is configured.
const DefaultHistoryYears = 5

const listConcurrency = 4

// Enumerator rebuilds a document's version history from object store listings.
// Keys carry the upload year, so it lists one prefix per year of the window
// ending at the current year.
type Enumerator struct {
	store  storage.Storage
	window int
	now    func() time.Time
}

// NewEnumerator scans historyYears calendar years including the current one.
func NewEnumerator(store storage.Storage, historyYears int, now func() time.Time) *Enumerator {
	if historyYears < 1 {
		historyYears = DefaultHistoryYears
	}
	if now == nil {
		now = time.Now
	}
	return &Enumerator{store: store, window: historyYears, now: now}
}

// Years returns the scanned years, newest first.
func (e *Enumerator) Years() []int {
	current := e.now().UTC().Year()
	years := make([]int, e.window)
	for i := range years {
		years[i] = current - i
	}
	return years
}

// ListVersions returns every stored version of ref ordered by descending version.
// Exactly the first element has IsCurrent set. No objects yields an empty slice.
func (e *Enumerator) ListVersions(ctx context.Context, ref model.DocumentRef) ([]model.DocumentVersion, error) {
	ctx, span := tracer.Start(ctx, "versioning.ListVersions")
	defer span.End()
	span.SetAttributes(
		attribute.String("docvault.organization_id", ref.OrganizationID),
		attribute.String("docvault.document_id", ref.DocumentID),
	)

	years := e.Years()
	listings := make([][]storage.ObjectInfo, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, year := range years {
		prefix := objectkey.DocumentPrefix(ref, year)
		g.Go(func() error {
			objs, err := e.store.List(gctx, prefix)
			if err != nil {
				return fmt.Errorf("list %s: %w", prefix, err)
			}
			listings[i] = objs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		recordError(span, err)
		return nil, err
	}

	versions := make([]model.DocumentVersion, 0)
	for _, objs := range listings {
		for _, obj := range objs {
			if !objectkey.BelongsTo(obj.Key, ref) {
				continue
			}
			p, err := objectkey.Parse(obj.Key)
			if err != nil {
				continue
			}
			versions = append(versions, model.DocumentVersion{
				Version:        p.Version,
				ObjectKey:      obj.Key,
				Size:           obj.Size,
				CreatedAt:      obj.LastModified,
				StoreVersionID: obj.VersionID,
			})
		}
	}
	sortVersions(versions)
	if len(versions) > 0 {
		versions[0].IsCurrent = true
	}
	span.SetAttributes(attribute.Int("docvault.versions", len(versions)))
	return versions, nil
}

// sortVersions orders by version descending, then newest object, then key.
func sortVersions(v []model.DocumentVersion) {
	sort.SliceStable(v, func(i, j int) bool {
		if v[i].Version != v[j].Version {
			return v[i].Version > v[j].Version
		}
		if !v[i].CreatedAt.Equal(v[j].CreatedAt) {
			return v[i].CreatedAt.After(v[j].CreatedAt)
		}
		return v[i].ObjectKey < v[j].ObjectKey
	})
}

// MaxVersion is the highest version in v, or 0.
func MaxVersion(v []model.DocumentVersion) int {
	max := 0
	for _, dv := range v {
		if dv.Version > max {
			max = dv.Version
		}
	}
	return max
}
