package repository

import (
	"context"
	"errors"

	"docvault/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("repository: not found")

// DocumentRepository defines data access for document records using SQL queries only.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a page of documents and the total row count for the filter.
	List(ctx context.Context, f DocumentFilter) (*PageResult[model.Document], error)

	// UpdateCurrentVersion points the record at a newer upload.
	UpdateCurrentVersion(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// DocumentFilter narrows List. Empty fields match everything.
type DocumentFilter struct {
	OrganizationID string
	Category       model.Category
	Page           PageQuery
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
