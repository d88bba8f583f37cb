package mocks

import (
	"context"

	"docvault/internal/model"
	"docvault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockVersioningService struct {
	mock.Mock
}

func (m *MockVersioningService) ListConfigs(ctx context.Context) ([]model.OrganizationVersioningConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrganizationVersioningConfig), args.Error(1)
}

func (m *MockVersioningService) GetConfig(ctx context.Context, orgID string) (*model.OrganizationVersioningConfig, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrganizationVersioningConfig), args.Error(1)
}

func (m *MockVersioningService) CreateConfig(ctx context.Context, in service.ConfigInput) (*model.OrganizationVersioningConfig, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrganizationVersioningConfig), args.Error(1)
}

func (m *MockVersioningService) UpdateDefaults(ctx context.Context, orgID string, enabled bool, maxVersions int) error {
	return m.Called(ctx, orgID, enabled, maxVersions).Error(0)
}

func (m *MockVersioningService) SetCategory(ctx context.Context, orgID string, in service.CategorySetting) error {
	return m.Called(ctx, orgID, in).Error(0)
}

func (m *MockVersioningService) RemoveCategory(ctx context.Context, orgID, category string) error {
	return m.Called(ctx, orgID, category).Error(0)
}

func (m *MockVersioningService) Deactivate(ctx context.Context, orgID string) error {
	return m.Called(ctx, orgID).Error(0)
}
