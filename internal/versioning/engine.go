// Package versioning implements the upload orchestration of versioned documents:
// policy resolution, version enumeration and allocation, key generation, the object
// write and retention of old versions.
package versioning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"docvault/internal/content"
	"docvault/internal/logger"
	"docvault/internal/metrics"
	"docvault/internal/model"
	"docvault/internal/objectkey"
	"docvault/internal/storage"
)

// Reserved metadata keys. Caller metadata can never override them.
const (
	MetaOriginalFilename = "original-filename"
	MetaOrganizationID   = "organization-id"
	MetaCategory         = "category"
	MetaDocumentID       = "document-id"
	MetaVersion          = "version"
	MetaChecksum         = "checksum"
)

var reservedMetadata = []string{
	MetaOriginalFilename,
	MetaOrganizationID,
	MetaCategory,
	MetaDocumentID,
	MetaVersion,
	MetaChecksum,
}

const DefaultRetentionTimeout = 30 * time.Second

// PolicyResolver resolves the versioning policy of an organization and category.
type PolicyResolver interface {
	Resolve(ctx context.Context, orgID string, category model.Category) (model.VersioningPolicy, error)
}

// UploadRequest is one upload. DocumentID empty means a new document.
// PriorKey is the object key of the current version and is required when DocumentID
// is set. DeferRetention leaves old versions in place and reports the pending limit in
// UploadOutcome.PendingRetention, for callers that must commit a record first.
type UploadRequest struct {
	Body           io.Reader
	Filename       string
	OrganizationID string
	Category       model.Category
	DocumentID     string
	PriorKey       string
	ContentType    string
	Metadata       map[string]string
	DeferRetention bool
}

// Options tune an Engine. Zero values select the defaults.
type Options struct {
	AllowedExtensions []string
	// MaxFileSize in bytes; <= 0 disables the limit.
	MaxFileSize      int64
	RetentionTimeout time.Duration
	Now              func() time.Time
	NewID            func() string
	Logger           *slog.Logger
	Metrics          metrics.Recorder
}

// Engine orchestrates uploads against a single bucket.
type Engine struct {
	store      storage.Storage
	resolver   PolicyResolver
	enumerator *Enumerator
	allocator  VersionAllocator
	retention  *Retention

	allowed          map[string]struct{}
	maxFileSize      int64
	retentionTimeout time.Duration
	now              func() time.Time
	newID            func() string
	log              *slog.Logger
	metrics          metrics.Recorder
}

// NewEngine wires an engine. A nil allocator selects ListingAllocator.
func NewEngine(store storage.Storage, resolver PolicyResolver, enumerator *Enumerator, allocator VersionAllocator, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.RetentionTimeout <= 0 {
		opts.RetentionTimeout = DefaultRetentionTimeout
	}
	if allocator == nil {
		allocator = ListingAllocator{Enumerator: enumerator}
	}
	allowed := make(map[string]struct{}, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	log := opts.Logger.With("component", "versioning")
	return &Engine{
		store:            store,
		resolver:         resolver,
		enumerator:       enumerator,
		allocator:        allocator,
		retention:        NewRetention(enumerator, store, log, opts.Metrics),
		allowed:          allowed,
		maxFileSize:      opts.MaxFileSize,
		retentionTimeout: opts.RetentionTimeout,
		now:              opts.Now,
		newID:            opts.NewID,
		log:              log,
		metrics:          opts.Metrics,
	}
}

// Upload stores one document version. Request problems return *ValidationError before
// any write. Failures reported by the object store API come back as an outcome with
// Success=false; every other failure is returned as an error.
func (e *Engine) Upload(ctx context.Context, req UploadRequest) (*model.UploadOutcome, error) {
	ctx, span := tracer.Start(ctx, "versioning.Upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("docvault.organization_id", req.OrganizationID),
		attribute.String("docvault.category", req.Category.String()),
		attribute.Bool("docvault.new_document", req.DocumentID == ""),
	)

	category, err := e.validateRequest(req)
	if err != nil {
		e.metrics.UploadFinished(metrics.ResultRejected, 0)
		return nil, err
	}

	data, err := e.buffer(ctx, req.Body)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			e.metrics.UploadFinished(metrics.ResultRejected, 0)
		} else {
			e.metrics.UploadFinished(metrics.ResultError, 0)
			recordError(span, err)
		}
		return nil, err
	}

	policy, err := e.resolver.Resolve(ctx, req.OrganizationID, category)
	if err != nil {
		e.metrics.UploadFinished(metrics.ResultError, 0)
		recordError(span, err)
		return nil, fmt.Errorf("resolve versioning policy: %w", err)
	}

	ref := model.DocumentRef{OrganizationID: req.OrganizationID, Category: category, DocumentID: req.DocumentID}
	isNew := ref.DocumentID == ""
	version := 1
	key := ""
	switch {
	case isNew:
		ref.DocumentID = e.newID()
	case req.PriorKey == "":
		e.metrics.UploadFinished(metrics.ResultRejected, 0)
		return nil, invalid(ErrPriorKeyRequired, "document %s", ref.DocumentID)
	default:
		prior, perr := objectkey.Parse(req.PriorKey)
		if perr != nil || !objectkey.BelongsTo(req.PriorKey, ref) {
			e.metrics.UploadFinished(metrics.ResultRejected, 0)
			return nil, invalid(ErrPriorKeyMismatch, "%q", req.PriorKey)
		}
		if !policy.Enabled {
			key, version = req.PriorKey, prior.Version
			break
		}
		version, err = e.allocator.NextVersion(ctx, ref, prior.Version)
		if err != nil {
			e.metrics.UploadFinished(metrics.ResultError, 0)
			recordError(span, err)
			return nil, err
		}
	}

	if key == "" {
		key, err = objectkey.Generate(objectkey.Parts{
			OrganizationID: ref.OrganizationID,
			Category:       ref.Category,
			DocumentID:     ref.DocumentID,
			Filename:       req.Filename,
			Version:        version,
			Year:           e.now().UTC().Year(),
		})
		if err != nil {
			e.metrics.UploadFinished(metrics.ResultRejected, 0)
			if errors.Is(err, objectkey.ErrInvalidDocument) {
				return nil, invalid(ErrInvalidDocumentID, "%q", ref.DocumentID)
			}
			return nil, invalid(ErrFilenameRequired, "%v", err)
		}
	}
	span.SetAttributes(attribute.Int("docvault.version", version), attribute.String("docvault.object_key", key))

	contentType := req.ContentType
	if contentType == "" {
		contentType = content.ContentType(req.Filename)
	}
	checksum := content.Checksum(data)
	md := buildMetadata(req.Metadata, map[string]string{
		MetaOriginalFilename: req.Filename,
		MetaOrganizationID:   ref.OrganizationID,
		MetaCategory:         ref.Category.String(),
		MetaDocumentID:       ref.DocumentID,
		MetaVersion:          strconv.Itoa(version),
		MetaChecksum:         checksum,
	})

	outcome := &model.UploadOutcome{
		DocumentID:        ref.DocumentID,
		ObjectKey:         key,
		Filename:          req.Filename,
		Size:              int64(len(data)),
		ContentType:       contentType,
		Version:           version,
		VersioningEnabled: policy.Enabled,
	}

	info, err := e.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata:    md,
	})
	if err != nil {
		recordError(span, err)
		if storage.IsOperationError(err) {
			e.metrics.UploadFinished(metrics.ResultStoreFailure, 0)
			e.log.WarnContext(ctx, "upload_store_failure", "document_id", ref.DocumentID, "object_key", key, "error", err)
			outcome.ErrorMessage = err.Error()
			return outcome, nil
		}
		e.metrics.UploadFinished(metrics.ResultError, 0)
		return nil, fmt.Errorf("put object: %w", err)
	}
	outcome.Success = true
	outcome.StoreVersionID = info.VersionID
	e.metrics.UploadFinished(metrics.ResultSuccess, outcome.Size)
	e.log.InfoContext(ctx, "upload_stored",
		"document_id", ref.DocumentID,
		"object_key", key,
		"version", version,
		"size", outcome.Size,
		"versioning_enabled", policy.Enabled,
	)

	if policy.Enabled && !isNew && policy.MaxVersions > 0 {
		if req.DeferRetention {
			outcome.PendingRetention = policy.MaxVersions
		} else {
			e.enforceRetention(ctx, ref, policy.MaxVersions)
		}
	}
	return outcome, nil
}

// ApplyRetention runs the retention an upload with DeferRetention left pending. Like
// the inline run it is best-effort and detached from ctx cancellation.
func (e *Engine) ApplyRetention(ctx context.Context, ref model.DocumentRef, maxVersions int) {
	if maxVersions <= 0 {
		return
	}
	e.enforceRetention(ctx, ref, maxVersions)
}

// enforceRetention runs on a context detached from the request so a cancelled caller
// does not stop cleanup halfway. It never fails the upload.
func (e *Engine) enforceRetention(ctx context.Context, ref model.DocumentRef, maxVersions int) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.retentionTimeout)
	defer cancel()
	if _, err := e.retention.Enforce(rctx, ref, maxVersions); err != nil {
		e.log.WarnContext(ctx, "retention_failed", "document_id", ref.DocumentID, "error", err)
	}
}

func (e *Engine) validateRequest(req UploadRequest) (model.Category, error) {
	if strings.TrimSpace(req.OrganizationID) == "" {
		return "", invalid(ErrOrganizationRequired, "")
	}
	category, err := model.ParseCategory(req.Category.String())
	if err != nil {
		return "", invalid(ErrInvalidCategory, "%q", req.Category)
	}
	if strings.TrimSpace(req.Filename) == "" || objectkey.Sanitize(req.Filename) == "" {
		return "", invalid(ErrFilenameRequired, "")
	}
	if req.DocumentID != "" {
		if err := objectkey.ValidateDocumentID(req.DocumentID); err != nil {
			return "", invalid(ErrInvalidDocumentID, "%q", req.DocumentID)
		}
	}
	if req.Body == nil {
		return "", invalid(ErrEmptyFile, "")
	}
	ext := content.Extension(req.Filename)
	if _, ok := e.allowed[ext]; !ok {
		return "", invalid(ErrExtensionNotAllowed, "%q", ext)
	}
	return category, nil
}

// buffer reads the whole body, checking ctx between reads.
func (e *Engine) buffer(ctx context.Context, body io.Reader) ([]byte, error) {
	r := io.Reader(ctxReader{ctx: ctx, r: body})
	if e.maxFileSize > 0 {
		r = io.LimitReader(r, e.maxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if e.maxFileSize > 0 && int64(len(data)) > e.maxFileSize {
		return nil, invalid(ErrFileTooLarge, "limit %d bytes", e.maxFileSize)
	}
	if len(data) == 0 {
		return nil, invalid(ErrEmptyFile, "")
	}
	return data, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// buildMetadata merges caller metadata under the reserved entries. Caller keys that
// equal a reserved key ignoring case are dropped.
func buildMetadata(caller, reserved map[string]string) map[string]string {
	md := make(map[string]string, len(caller)+len(reserved))
	for k, v := range caller {
		if k == "" || isReserved(k) {
			continue
		}
		md[k] = v
	}
	for k, v := range reserved {
		md[k] = v
	}
	return md
}

func isReserved(key string) bool {
	for _, r := range reservedMetadata {
		if strings.EqualFold(key, r) {
			return true
		}
	}
	return false
}

// Policy resolves the versioning policy of an organization and category.
func (e *Engine) Policy(ctx context.Context, orgID string, category model.Category) (model.VersioningPolicy, error) {
	return e.resolver.Resolve(ctx, orgID, category)
}

// Versions lists every stored version of ref, newest first.
func (e *Engine) Versions(ctx context.Context, ref model.DocumentRef) ([]model.DocumentVersion, error) {
	return e.enumerator.ListVersions(ctx, ref)
}

// EnforceRetention runs one retention pass on the caller's context.
func (e *Engine) EnforceRetention(ctx context.Context, ref model.DocumentRef, maxVersions int) (RetentionReport, error) {
	return e.retention.Enforce(ctx, ref, maxVersions)
}

func (e *Engine) PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return e.store.PresignGet(ctx, key, expiry)
}

// Download opens the object at key. The caller closes the reader.
func (e *Engine) Download(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	return e.store.Get(ctx, key)
}

// ObjectHistory returns the store's native versions of a single key.
func (e *Engine) ObjectHistory(ctx context.Context, key string) ([]storage.ObjectVersion, error) {
	return e.store.ListVersions(ctx, key)
}

// OrganizationObjects lists every object stored for an organization, in key order.
func (e *Engine) OrganizationObjects(ctx context.Context, orgID string) ([]storage.ObjectInfo, error) {
	if strings.TrimSpace(orgID) == "" || strings.ContainsAny(orgID, "/\\") {
		return nil, invalid(ErrOrganizationRequired, "%q", orgID)
	}
	objects, err := e.store.List(ctx, objectkey.OrganizationPrefix(orgID))
	if err != nil {
		return nil, fmt.Errorf("list organization objects: %w", err)
	}
	return objects, nil
}

// ObjectExists reports whether key is present in the store.
func (e *Engine) ObjectExists(ctx context.Context, key string) (bool, error) {
	return storage.Exists(ctx, e.store, key)
}

// DeleteObject removes a single object key.
func (e *Engine) DeleteObject(ctx context.Context, key string) error {
	return e.store.Delete(ctx, key)
}

// DeleteDocument deletes every stored version of ref. All deletes are attempted; the
// returned error joins the failures.
func (e *Engine) DeleteDocument(ctx context.Context, ref model.DocumentRef) ([]int, error) {
	versions, err := e.enumerator.ListVersions(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("enumerate versions: %w", err)
	}
	deleted := make([]int, 0, len(versions))
	var errs []error
	for _, v := range versions {
		if err := e.store.Delete(ctx, v.ObjectKey); err != nil {
			errs = append(errs, fmt.Errorf("delete version %d: %w", v.Version, err))
			continue
		}
		deleted = append(deleted, v.Version)
	}
	if len(errs) > 0 {
		return deleted, errors.Join(errs...)
	}
	e.log.InfoContext(ctx, "document_objects_deleted", "document_id", ref.DocumentID, "versions", deleted)
	return deleted, nil
}
