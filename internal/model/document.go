package model

import "time"

// Document is the persisted record of a logical document. ObjectKey, Size,
// ContentType and CurrentVersion describe the most recent successful upload.
type Document struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Category       Category  `json:"category"`
	Filename       string    `json:"filename"`
	ObjectKey      string    `json:"object_key"`
	Size           int64     `json:"size"`
	ContentType    string    `json:"content_type"`
	CurrentVersion int       `json:"current_version"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Ref returns the document identity used by the versioning engine.
func (d *Document) Ref() DocumentRef {
	return DocumentRef{
		OrganizationID: d.OrganizationID,
		Category:       d.Category,
		DocumentID:     d.ID,
	}
}

// DocumentRef identifies all versions of one logical document in the object store.
type DocumentRef struct {
	OrganizationID string
	Category       Category
	DocumentID     string
}

// DocumentVersion is derived from an object store listing; it is never persisted.
type DocumentVersion struct {
	Version        int       `json:"version"`
	ObjectKey      string    `json:"object_key"`
	Size           int64     `json:"size"`
	CreatedAt      time.Time `json:"created_at"`
	IsCurrent      bool      `json:"is_current"`
	StoreVersionID string    `json:"store_version_id,omitempty"`
}

// UploadOutcome is the immutable result of one upload call. Success=false
// with ErrorMessage set means the object store rejected the write. An unversioned
// overwrite keeps the prior key, so Version is the version already encoded in it.
// PendingRetention is the version limit left to apply when retention was deferred.
type UploadOutcome struct {
	Success           bool   `json:"success"`
	DocumentID        string `json:"document_id,omitempty"`
	ObjectKey         string `json:"object_key,omitempty"`
	Filename          string `json:"filename"`
	Size              int64  `json:"size"`
	ContentType       string `json:"content_type,omitempty"`
	Version           int    `json:"version"`
	VersioningEnabled bool   `json:"versioning_enabled"`
	StoreVersionID    string `json:"store_version_id,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	PendingRetention  int    `json:"-"`
}
