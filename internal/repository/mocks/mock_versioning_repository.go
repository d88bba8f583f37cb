package mocks

import (
	"context"

	"docvault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockVersioningConfigRepository struct {
	mock.Mock
}

func (m *MockVersioningConfigRepository) GetOrganizationConfig(ctx context.Context, orgID string) (*model.OrganizationVersioningConfig, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrganizationVersioningConfig), args.Error(1)
}

func (m *MockVersioningConfigRepository) ListActive(ctx context.Context) ([]model.OrganizationVersioningConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrganizationVersioningConfig), args.Error(1)
}

func (m *MockVersioningConfigRepository) Save(ctx context.Context, cfg *model.OrganizationVersioningConfig) (*model.OrganizationVersioningConfig, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrganizationVersioningConfig), args.Error(1)
}

func (m *MockVersioningConfigRepository) UpdateDefaults(ctx context.Context, orgID string, enabled bool, maxVersions int) error {
	return m.Called(ctx, orgID, enabled, maxVersions).Error(0)
}

func (m *MockVersioningConfigRepository) UpsertCategory(ctx context.Context, orgID string, cc model.CategoryVersioningConfig) error {
	return m.Called(ctx, orgID, cc).Error(0)
}

func (m *MockVersioningConfigRepository) RemoveCategory(ctx context.Context, orgID string, category model.Category) error {
	return m.Called(ctx, orgID, category).Error(0)
}

func (m *MockVersioningConfigRepository) Deactivate(ctx context.Context, orgID string) error {
	return m.Called(ctx, orgID).Error(0)
}

type MockVersionSequenceRepository struct {
	mock.Mock
}

func (m *MockVersionSequenceRepository) Next(ctx context.Context, documentID string, floor int) (int, error) {
	args := m.Called(ctx, documentID, floor)
	return args.Int(0), args.Error(1)
}
