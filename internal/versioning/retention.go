package versioning

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"docvault/internal/logger"
	"docvault/internal/metrics"
	"docvault/internal/model"
	"docvault/internal/storage"
)

// RetentionReport describes one enforcement pass.
type RetentionReport struct {
	Listed  int   `json:"listed"`
	Kept    []int `json:"kept"`
	Deleted []int `json:"deleted"`
	Failed  []int `json:"failed"`
	// Abandoned is set when the context ended before every surplus version was handled.
	Abandoned bool `json:"abandoned"`
}

// Retention deletes the oldest versions of a document beyond a maximum count.
type Retention struct {
	enumerator *Enumerator
	store      storage.Storage
	log        *slog.Logger
	metrics    metrics.Recorder
}

func NewRetention(enumerator *Enumerator, store storage.Storage, log *slog.Logger, rec metrics.Recorder) *Retention {
	if log == nil {
		log = logger.Nop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Retention{enumerator: enumerator, store: store, log: log, metrics: rec}
}

// Enforce keeps the maxVersions highest versions of ref and deletes the rest, oldest
// first. maxVersions <= 0 means unlimited. A failed delete is recorded and the pass
// continues; only a failed listing is returned as an error.
func (r *Retention) Enforce(ctx context.Context, ref model.DocumentRef, maxVersions int) (RetentionReport, error) {
	var report RetentionReport
	if maxVersions <= 0 {
		return report, nil
	}

	ctx, span := tracer.Start(ctx, "versioning.Enforce")
	defer span.End()
	span.SetAttributes(
		attribute.String("docvault.document_id", ref.DocumentID),
		attribute.Int("docvault.max_versions", maxVersions),
	)

	versions, err := r.enumerator.ListVersions(ctx, ref)
	if err != nil {
		recordError(span, err)
		return report, fmt.Errorf("enumerate versions: %w", err)
	}
	report.Listed = len(versions)
	if len(versions) <= maxVersions {
		for _, v := range versions {
			report.Kept = append(report.Kept, v.Version)
		}
		return report, nil
	}

	for _, v := range versions[:maxVersions] {
		report.Kept = append(report.Kept, v.Version)
	}
	surplus := versions[maxVersions:]
	for i := len(surplus) - 1; i >= 0; i-- {
		v := surplus[i]
		if ctx.Err() != nil {
			report.Abandoned = true
			r.log.WarnContext(ctx, "retention_abandoned",
				"document_id", ref.DocumentID,
				"remaining", i+1,
				"error", ctx.Err(),
			)
			break
		}
		if err := r.store.Delete(ctx, v.ObjectKey); err != nil {
			report.Failed = append(report.Failed, v.Version)
			r.metrics.RetentionDeletion(metrics.ResultDeleteFailure)
			r.log.WarnContext(ctx, "retention_delete_failed",
				"document_id", ref.DocumentID,
				"version", v.Version,
				"object_key", v.ObjectKey,
				"error", err,
			)
			continue
		}
		report.Deleted = append(report.Deleted, v.Version)
		r.metrics.RetentionDeletion(metrics.ResultDeleted)
	}

	span.SetAttributes(
		attribute.Int("docvault.deleted", len(report.Deleted)),
		attribute.Int("docvault.failed", len(report.Failed)),
	)
	r.log.InfoContext(ctx, "retention_enforced",
		"document_id", ref.DocumentID,
		"max_versions", maxVersions,
		"listed", report.Listed,
		"deleted", report.Deleted,
		"failed", report.Failed,
	)
	return report, nil
}
