package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"docvault/internal/model"
	"docvault/internal/objectkey"
	"docvault/internal/repository"
	"docvault/internal/storage"
	"docvault/internal/versioning"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNotFound        = errors.New("document not found")
	ErrReaderNil       = errors.New("reader is nil")
	ErrVersionNotFound = errors.New("document version not found")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidExpiry   = errors.New("expiry must be between 1 minute and 7 days")
)

const (
	DefaultDownloadExpiry = 60 * time.Minute
	MaxDownloadExpiry     = 7 * 24 * time.Hour
)

// Engine is the versioning engine as seen by the document use cases.
type Engine interface {
	Upload(ctx context.Context, req versioning.UploadRequest) (*model.UploadOutcome, error)
	Versions(ctx context.Context, ref model.DocumentRef) ([]model.DocumentVersion, error)
	Policy(ctx context.Context, orgID string, category model.Category) (model.VersioningPolicy, error)
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)
	ObjectHistory(ctx context.Context, key string) ([]storage.ObjectVersion, error)
	DeleteObject(ctx context.Context, key string) error
	DeleteDocument(ctx context.Context, ref model.DocumentRef) ([]int, error)
	ApplyRetention(ctx context.Context, ref model.DocumentRef, maxVersions int)
	OrganizationObjects(ctx context.Context, orgID string) ([]storage.ObjectInfo, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// UploadInput is a file handed to Upload or UploadVersion. OrganizationID and Category
// are ignored by UploadVersion; the stored record decides them.
type UploadInput struct {
	Body           io.Reader
	Filename       string
	OrganizationID string
	Category       string
	ContentType    string
	Description    string
	Metadata       map[string]string
}

// UploadResult pairs the engine outcome with the stored record. Document is nil when
// the object store rejected the write.
type UploadResult struct {
	Document *model.Document      `json:"document,omitempty"`
	Outcome  *model.UploadOutcome `json:"outcome"`
}

// ListQuery filters and pages List.
type ListQuery struct {
	OrganizationID string
	Category       string
	Limit          int
	Offset         int
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DownloadLink is a presigned URL for one version of a document.
type DownloadLink struct {
	URL       string    `json:"url"`
	ObjectKey string    `json:"object_key"`
	Version   int       `json:"version"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Download is an open object stream. The caller closes Body.
type Download struct {
	Body     io.ReadCloser
	Info     storage.ObjectInfo
	Filename string
	Version  int
}

// StoredFile is one object of an organization listing.
type StoredFile struct {
	ObjectKey    string    `json:"object_key"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStatus tells whether the current object of a document is still in the store.
type ObjectStatus struct {
	DocumentID string `json:"document_id"`
	ObjectKey  string `json:"object_key"`
	Version    int    `json:"version"`
	Exists     bool   `json:"exists"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload stores a new document and saves its record. The object is removed again if
	// the record cannot be saved.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)

	// UploadVersion uploads new content for an existing document and moves its record
	// to the new object. Retention of old versions runs after the record is updated.
	UploadVersion(ctx context.Context, id string, in UploadInput) (*UploadResult, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, q ListQuery) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Versions lists the stored versions of a document, newest first.
	Versions(ctx context.Context, id string) ([]model.DocumentVersion, error)

	// History lists the object store's native versions of the current object.
	History(ctx context.Context, id string) ([]storage.ObjectVersion, error)

	// DownloadURL presigns a version; version 0 is the current one.
	DownloadURL(ctx context.Context, id string, version int, expiry time.Duration) (*DownloadLink, error)

	// Download opens a version; version 0 is the current one.
	Download(ctx context.Context, id string, version int) (*Download, error)

	// Delete removes every version from storage, then the record.
	Delete(ctx context.Context, id string) error

	// VersioningStatus returns the resolved policy of an organization and category.
	VersioningStatus(ctx context.Context, orgID, category string) (model.VersioningPolicy, error)

	// Files lists every stored object of an organization, record or not.
	Files(ctx context.Context, orgID string) ([]StoredFile, error)

	// ObjectStatus checks the current object of a document against the store.
	ObjectStatus(ctx context.Context, id string) (*ObjectStatus, error)
}

type documentService struct {
	engine Engine
	repo   repository.DocumentRepository
	now    func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(engine Engine, repo repository.DocumentRepository) DocumentService {
	return &documentService{engine: engine, repo: repo, now: time.Now}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Body == nil {
		return nil, ErrReaderNil
	}
	out, err := s.engine.Upload(ctx, versioning.UploadRequest{
		Body:           in.Body,
		Filename:       in.Filename,
		OrganizationID: in.OrganizationID,
		Category:       model.Category(in.Category),
		ContentType:    in.ContentType,
		Metadata:       in.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	if !out.Success {
		return &UploadResult{Outcome: out}, nil
	}

	category, _ := model.ParseCategory(in.Category)
	now := s.now().UTC()
	doc := &model.Document{
		ID:             out.DocumentID,
		OrganizationID: in.OrganizationID,
		Category:       category,
		Filename:       out.Filename,
		ObjectKey:      out.ObjectKey,
		Size:           out.Size,
		ContentType:    out.ContentType,
		CurrentVersion: out.Version,
		Description:    in.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.engine.DeleteObject(ctx, out.ObjectKey); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return &UploadResult{Document: stored, Outcome: out}, nil
}

func (s *documentService) UploadVersion(ctx context.Context, id string, in UploadInput) (*UploadResult, error) {
	if in.Body == nil {
		return nil, ErrReaderNil
	}
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.Upload(ctx, versioning.UploadRequest{
		Body:           in.Body,
		Filename:       in.Filename,
		OrganizationID: doc.OrganizationID,
		Category:       doc.Category,
		DocumentID:     doc.ID,
		PriorKey:       doc.ObjectKey,
		ContentType:    in.ContentType,
		Metadata:       in.Metadata,
		DeferRetention: true,
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	if !out.Success {
		return &UploadResult{Outcome: out}, nil
	}

	previousKey := doc.ObjectKey
	doc.Filename = out.Filename
	doc.ObjectKey = out.ObjectKey
	doc.Size = out.Size
	doc.ContentType = out.ContentType
	doc.CurrentVersion = out.Version
	if in.Description != "" {
		doc.Description = in.Description
	}
	doc.UpdatedAt = s.now().UTC()

	updated, err := s.repo.UpdateCurrentVersion(ctx, doc)
	if err != nil {
		// An overwrite in place has nothing to roll back.
		if out.ObjectKey == previousKey {
			return nil, fmt.Errorf("db update failed: %w", err)
		}
		if delErr := s.engine.DeleteObject(ctx, out.ObjectKey); delErr != nil {
			return nil, fmt.Errorf("db update failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db update failed: %w", err)
	}
	// Old versions are pruned only once the record points at the new one.
	if out.PendingRetention > 0 {
		s.engine.ApplyRetention(ctx, doc.Ref(), out.PendingRetention)
	}
	return &UploadResult{Document: updated, Outcome: out}, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, q ListQuery) (*DocumentListResult, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	var category model.Category
	if q.Category != "" {
		c, err := model.ParseCategory(q.Category)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, q.Category)
		}
		category = c
	}

	res, err := s.repo.List(ctx, repository.DocumentFilter{
		OrganizationID: q.OrganizationID,
		Category:       category,
		Page:           repository.PageQuery{Limit: q.Limit, Offset: q.Offset},
	})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	return s.find(ctx, id)
}

func (s *documentService) Versions(ctx context.Context, id string) ([]model.DocumentVersion, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Versions(ctx, doc.Ref())
}

func (s *documentService) History(ctx context.Context, id string) ([]storage.ObjectVersion, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.ObjectHistory(ctx, doc.ObjectKey)
}

func (s *documentService) DownloadURL(ctx context.Context, id string, version int, expiry time.Duration) (*DownloadLink, error) {
	if expiry == 0 {
		expiry = DefaultDownloadExpiry
	}
	if expiry < time.Minute || expiry > MaxDownloadExpiry {
		return nil, ErrInvalidExpiry
	}
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	key, v, err := s.resolveVersion(ctx, doc, version)
	if err != nil {
		return nil, err
	}
	url, err := s.engine.PresignDownload(ctx, key, expiry)
	if err != nil {
		return nil, fmt.Errorf("presign download: %w", err)
	}
	return &DownloadLink{URL: url, ObjectKey: key, Version: v, ExpiresAt: s.now().UTC().Add(expiry)}, nil
}

func (s *documentService) Download(ctx context.Context, id string, version int) (*Download, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	key, v, err := s.resolveVersion(ctx, doc, version)
	if err != nil {
		return nil, err
	}
	body, info, err := s.engine.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	filename := doc.Filename
	if name, ok := info.Metadata[versioning.MetaOriginalFilename]; ok && name != "" {
		filename = name
	}
	return &Download{Body: body, Info: info, Filename: filename, Version: v}, nil
}

// resolveVersion maps a version number to its object key; 0 selects the record's current object.
func (s *documentService) resolveVersion(ctx context.Context, doc *model.Document, version int) (string, int, error) {
	if version == 0 {
		return doc.ObjectKey, doc.CurrentVersion, nil
	}
	versions, err := s.engine.Versions(ctx, doc.Ref())
	if err != nil {
		return "", 0, err
	}
	for _, v := range versions {
		if v.Version == version {
			return v.ObjectKey, v.Version, nil
		}
	}
	return "", 0, ErrVersionNotFound
}

// Delete removes every stored version, then deletes the record. If any object
// cannot be deleted the record is kept so the call can be retried.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.engine.DeleteDocument(ctx, doc.Ref()); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}

func (s *documentService) VersioningStatus(ctx context.Context, orgID, category string) (model.VersioningPolicy, error) {
	if orgID == "" {
		return model.VersioningPolicy{}, ErrIDRequired
	}
	c, err := model.ParseCategory(category)
	if err != nil {
		return model.VersioningPolicy{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return s.engine.Policy(ctx, orgID, c)
}

func (s *documentService) Files(ctx context.Context, orgID string) ([]StoredFile, error) {
	objects, err := s.engine.OrganizationObjects(ctx, strings.TrimSpace(orgID))
	if err != nil {
		return nil, err
	}
	files := make([]StoredFile, 0, len(objects))
	for _, o := range objects {
		files = append(files, StoredFile{
			ObjectKey:    o.Key,
			Filename:     objectkey.Filename(o.Key),
			Size:         o.Size,
			LastModified: o.LastModified,
		})
	}
	return files, nil
}

func (s *documentService) ObjectStatus(ctx context.Context, id string) (*ObjectStatus, error) {
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.engine.ObjectExists(ctx, doc.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("check object: %w", err)
	}
	return &ObjectStatus{DocumentID: doc.ID, ObjectKey: doc.ObjectKey, Version: doc.CurrentVersion, Exists: exists}, nil
}

func (s *documentService) find(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}
