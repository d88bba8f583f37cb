package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/repository"
)

var (
	ErrConfigNotFound     = errors.New("versioning configuration not found")
	ErrAlreadyExists      = errors.New("versioning configuration already exists")
	ErrInvalidMaxVersions = errors.New("max versions must not be negative")
)

// CacheInvalidator drops cached configuration of an organization.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, orgID string) error
}

// CategorySetting is one category override as supplied by a caller.
type CategorySetting struct {
	Category    string `json:"category"`
	Enabled     bool   `json:"versioning_enabled"`
	MaxVersions int    `json:"max_versions"`
}

// ConfigInput creates an organization configuration.
type ConfigInput struct {
	OrganizationID     string            `json:"organization_id"`
	DefaultEnabled     bool              `json:"default_versioning_enabled"`
	DefaultMaxVersions int               `json:"default_max_versions"`
	Categories         []CategorySetting `json:"categories"`
}

// VersioningService manages per-organization versioning configuration.
type VersioningService interface {
	ListConfigs(ctx context.Context) ([]model.OrganizationVersioningConfig, error)
	GetConfig(ctx context.Context, orgID string) (*model.OrganizationVersioningConfig, error)
	// CreateConfig fails with ErrAlreadyExists when the organization has an active configuration.
	// An inactive one is replaced and reactivated.
	CreateConfig(ctx context.Context, in ConfigInput) (*model.OrganizationVersioningConfig, error)
	UpdateDefaults(ctx context.Context, orgID string, enabled bool, maxVersions int) error
	SetCategory(ctx context.Context, orgID string, in CategorySetting) error
	RemoveCategory(ctx context.Context, orgID, category string) error
	Deactivate(ctx context.Context, orgID string) error
}

type versioningService struct {
	repo  repository.VersioningConfigRepository
	cache CacheInvalidator
	log   *slog.Logger
}

// NewVersioningService constructs a VersioningService. cache and log may be nil.
func NewVersioningService(repo repository.VersioningConfigRepository, cache CacheInvalidator, log *slog.Logger) VersioningService {
	if log == nil {
		log = logger.Nop()
	}
	return &versioningService{repo: repo, cache: cache, log: log}
}

func (s *versioningService) ListConfigs(ctx context.Context) ([]model.OrganizationVersioningConfig, error) {
	return s.repo.ListActive(ctx)
}

func (s *versioningService) GetConfig(ctx context.Context, orgID string) (*model.OrganizationVersioningConfig, error) {
	if orgID == "" {
		return nil, ErrIDRequired
	}
	cfg, err := s.repo.GetOrganizationConfig(ctx, orgID)
	if err != nil {
		return nil, mapConfigErr(err)
	}
	if !cfg.IsActive {
		return nil, ErrConfigNotFound
	}
	return cfg, nil
}

func (s *versioningService) CreateConfig(ctx context.Context, in ConfigInput) (*model.OrganizationVersioningConfig, error) {
	if in.OrganizationID == "" {
		return nil, ErrIDRequired
	}
	if in.DefaultMaxVersions < 0 {
		return nil, ErrInvalidMaxVersions
	}
	cfg := &model.OrganizationVersioningConfig{
		OrganizationID:     in.OrganizationID,
		DefaultEnabled:     in.DefaultEnabled,
		DefaultMaxVersions: in.DefaultMaxVersions,
		IsActive:           true,
	}
	for _, cs := range in.Categories {
		cc, err := categoryConfig(cs)
		if err != nil {
			return nil, err
		}
		cfg.Categories = append(cfg.Categories, cc)
	}

	existing, err := s.repo.GetOrganizationConfig(ctx, in.OrganizationID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, err
	case existing.IsActive:
		return nil, ErrAlreadyExists
	}

	saved, err := s.repo.Save(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("save versioning config: %w", err)
	}
	s.invalidate(ctx, in.OrganizationID)
	return saved, nil
}

func (s *versioningService) UpdateDefaults(ctx context.Context, orgID string, enabled bool, maxVersions int) error {
	if orgID == "" {
		return ErrIDRequired
	}
	if maxVersions < 0 {
		return ErrInvalidMaxVersions
	}
	if err := s.repo.UpdateDefaults(ctx, orgID, enabled, maxVersions); err != nil {
		return mapConfigErr(err)
	}
	s.invalidate(ctx, orgID)
	return nil
}

func (s *versioningService) SetCategory(ctx context.Context, orgID string, in CategorySetting) error {
	if orgID == "" {
		return ErrIDRequired
	}
	cc, err := categoryConfig(in)
	if err != nil {
		return err
	}
	if err := s.repo.UpsertCategory(ctx, orgID, cc); err != nil {
		return mapConfigErr(err)
	}
	s.invalidate(ctx, orgID)
	return nil
}

func (s *versioningService) RemoveCategory(ctx context.Context, orgID, category string) error {
	if orgID == "" {
		return ErrIDRequired
	}
	c, err := model.ParseCategory(category)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	if err := s.repo.RemoveCategory(ctx, orgID, c); err != nil {
		return mapConfigErr(err)
	}
	s.invalidate(ctx, orgID)
	return nil
}

func (s *versioningService) Deactivate(ctx context.Context, orgID string) error {
	if orgID == "" {
		return ErrIDRequired
	}
	if err := s.repo.Deactivate(ctx, orgID); err != nil {
		return mapConfigErr(err)
	}
	s.invalidate(ctx, orgID)
	return nil
}

// invalidate is best-effort; a stale entry expires with its TTL.
func (s *versioningService) invalidate(ctx context.Context, orgID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, orgID); err != nil {
		s.log.Warn("cache_invalidate_failed", "organization_id", orgID, "error", err)
	}
}

func categoryConfig(cs CategorySetting) (model.CategoryVersioningConfig, error) {
	c, err := model.ParseCategory(cs.Category)
	if err != nil {
		return model.CategoryVersioningConfig{}, fmt.Errorf("%w: %q", ErrInvalidCategory, cs.Category)
	}
	if cs.MaxVersions < 0 {
		return model.CategoryVersioningConfig{}, ErrInvalidMaxVersions
	}
	return model.CategoryVersioningConfig{Category: c, Enabled: cs.Enabled, MaxVersions: cs.MaxVersions}, nil
}

func mapConfigErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrConfigNotFound
	}
	return err
}
