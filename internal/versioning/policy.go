package versioning

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"docvault/internal/config"
	"docvault/internal/model"
	"docvault/internal/repository"
)

// ConfigSource returns an organization's stored versioning configuration.
// repository.ErrNotFound is the normal "no configuration" answer.
type ConfigSource interface {
	GetOrganizationConfig(ctx context.Context, orgID string) (*model.OrganizationVersioningConfig, error)
}

// Lookup is the state shared by the layers of one resolution. The configuration
// source is read at most once per Lookup.
type Lookup struct {
	OrganizationID string
	Category       model.Category

	source ConfigSource
	once   sync.Once
	cfg    *model.OrganizationVersioningConfig
	err    error
}

// Organization returns the active stored configuration, or nil when there is none.
func (l *Lookup) Organization(ctx context.Context) (*model.OrganizationVersioningConfig, error) {
	if l.source == nil {
		return nil, nil
	}
	l.once.Do(func() {
		cfg, err := l.source.GetOrganizationConfig(ctx, l.OrganizationID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			l.err = fmt.Errorf("load versioning config for %s: %w", l.OrganizationID, err)
		case cfg != nil && cfg.IsActive:
			l.cfg = cfg
		}
	})
	return l.cfg, l.err
}

// Layer is one step of the fallback chain. ok=false passes to the next layer.
type Layer interface {
	TryResolve(ctx context.Context, l *Lookup) (p model.VersioningPolicy, ok bool, err error)
}

// CategoryOverrideLayer answers from the organization's stored category override.
type CategoryOverrideLayer struct{}

func (CategoryOverrideLayer) TryResolve(ctx context.Context, l *Lookup) (model.VersioningPolicy, bool, error) {
	cfg, err := l.Organization(ctx)
	if err != nil || cfg == nil {
		return model.VersioningPolicy{}, false, err
	}
	cc, ok := cfg.CategoryOverride(l.Category)
	if !ok {
		return model.VersioningPolicy{}, false, nil
	}
	return model.VersioningPolicy{Enabled: cc.Enabled, MaxVersions: cc.MaxVersions}, true, nil
}

// OrganizationDefaultLayer answers from the organization's stored defaults.
type OrganizationDefaultLayer struct{}

func (OrganizationDefaultLayer) TryResolve(ctx context.Context, l *Lookup) (model.VersioningPolicy, bool, error) {
	cfg, err := l.Organization(ctx)
	if err != nil || cfg == nil {
		return model.VersioningPolicy{}, false, err
	}
	return model.VersioningPolicy{Enabled: cfg.DefaultEnabled, MaxVersions: cfg.DefaultMaxVersions}, true, nil
}

// StaticOrganizationLayer answers from an organization entry of the static defaults,
// preferring its category setting over its own default.
type StaticOrganizationLayer struct {
	Defaults *config.VersioningDefaults
}

func (s StaticOrganizationLayer) TryResolve(_ context.Context, l *Lookup) (model.VersioningPolicy, bool, error) {
	if s.Defaults == nil {
		return model.VersioningPolicy{}, false, nil
	}
	org, ok := s.Defaults.Organization(l.OrganizationID)
	if !ok {
		return model.VersioningPolicy{}, false, nil
	}
	if ps, ok := org.Categories[l.Category.String()]; ok {
		return fromSetting(ps), true, nil
	}
	return model.VersioningPolicy{Enabled: org.DefaultEnabled, MaxVersions: org.DefaultMaxVersions}, true, nil
}

// StaticCategoryLayer answers from the global static setting of the category.
type StaticCategoryLayer struct {
	Defaults *config.VersioningDefaults
}

func (s StaticCategoryLayer) TryResolve(_ context.Context, l *Lookup) (model.VersioningPolicy, bool, error) {
	if s.Defaults == nil {
		return model.VersioningPolicy{}, false, nil
	}
	ps, ok := s.Defaults.Categories[l.Category.String()]
	if !ok {
		return model.VersioningPolicy{}, false, nil
	}
	return fromSetting(ps), true, nil
}

// StaticDefaultLayer always answers: the global static default, or {false, 0}.
type StaticDefaultLayer struct {
	Defaults *config.VersioningDefaults
}

func (s StaticDefaultLayer) TryResolve(context.Context, *Lookup) (model.VersioningPolicy, bool, error) {
	if s.Defaults == nil {
		return model.VersioningPolicy{}, true, nil
	}
	return fromSetting(s.Defaults.Default), true, nil
}

func fromSetting(ps config.PolicySetting) model.VersioningPolicy {
	return model.VersioningPolicy{Enabled: ps.Enabled, MaxVersions: ps.MaxVersions}
}

// Resolver walks its layers in order; the first layer that answers wins.
type Resolver struct {
	source ConfigSource
	layers []Layer
}

// NewResolver builds the standard chain: stored category override, stored organization
// default, static organization entry, static category default, static default.
// A nil source skips the stored layers.
func NewResolver(source ConfigSource, defaults *config.VersioningDefaults) *Resolver {
	return NewResolverWithLayers(source,
		CategoryOverrideLayer{},
		OrganizationDefaultLayer{},
		StaticOrganizationLayer{Defaults: defaults},
		StaticCategoryLayer{Defaults: defaults},
		StaticDefaultLayer{Defaults: defaults},
	)
}

// NewResolverWithLayers builds a resolver over a custom chain.
func NewResolverWithLayers(source ConfigSource, layers ...Layer) *Resolver {
	return &Resolver{source: source, layers: layers}
}

// Resolve returns the policy of (orgID, category). Missing configuration is never an
// error; failures of the configuration source are.
func (r *Resolver) Resolve(ctx context.Context, orgID string, category model.Category) (model.VersioningPolicy, error) {
	l := &Lookup{OrganizationID: orgID, Category: category, source: r.source}
	for _, layer := range r.layers {
		p, ok, err := layer.TryResolve(ctx, l)
		if err != nil {
			return model.VersioningPolicy{}, err
		}
		if ok {
			if p.MaxVersions < 0 {
				p.MaxVersions = 0
			}
			return p, nil
		}
	}
	return model.VersioningPolicy{}, nil
}
