package mocks

import (
	"context"
	"io"
	"time"

	"docvault/internal/model"
	"docvault/internal/storage"
	"docvault/internal/versioning"
	"github.com/stretchr/testify/mock"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Upload(ctx context.Context, req versioning.UploadRequest) (*model.UploadOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadOutcome), args.Error(1)
}

func (m *MockEngine) Versions(ctx context.Context, ref model.DocumentRef) ([]model.DocumentVersion, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentVersion), args.Error(1)
}

func (m *MockEngine) Policy(ctx context.Context, orgID string, category model.Category) (model.VersioningPolicy, error) {
	args := m.Called(ctx, orgID, category)
	return args.Get(0).(model.VersioningPolicy), args.Error(1)
}

func (m *MockEngine) PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockEngine) Download(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	info, _ := args.Get(1).(storage.ObjectInfo)
	if args.Get(0) == nil {
		return nil, info, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), info, args.Error(2)
}

func (m *MockEngine) ObjectHistory(ctx context.Context, key string) ([]storage.ObjectVersion, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ObjectVersion), args.Error(1)
}

func (m *MockEngine) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockEngine) DeleteDocument(ctx context.Context, ref model.DocumentRef) ([]int, error) {
	args := m.Called(ctx, ref)
	deleted, _ := args.Get(0).([]int)
	return deleted, args.Error(1)
}

func (m *MockEngine) ApplyRetention(ctx context.Context, ref model.DocumentRef, maxVersions int) {
	m.Called(ctx, ref, maxVersions)
}

func (m *MockEngine) OrganizationObjects(ctx context.Context, orgID string) ([]storage.ObjectInfo, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ObjectInfo), args.Error(1)
}

func (m *MockEngine) ObjectExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
