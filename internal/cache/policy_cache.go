// Package cache puts a Redis read-through cache in front of the versioning
// configuration source. Cache failures are logged and never fail a lookup.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/repository"
)

const keyPrefix = "docvault:versioning:org:"

var (
	ErrEmptyURL         = errors.New("cache: redis url is empty")
	ErrConnectionFailed = errors.New("cache: redis connection failed")
)

// Client is the subset of redis.UniversalClient used here.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Source loads an organization's configuration; repository.ErrNotFound means none exists.
type Source interface {
	GetOrganizationConfig(ctx context.Context, orgID string) (*model.OrganizationVersioningConfig, error)
}

// Open connects to url (redis:// or rediss://) and pings it.
func Open(ctx context.Context, url string) (redis.UniversalClient, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, fmt.Errorf("cache: unsupported url scheme in %q", url)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return client, nil
}

// entry is the cached form. Found=false caches the absence of a configuration.
type entry struct {
	Found  bool                                `json:"found"`
	Config *model.OrganizationVersioningConfig `json:"config,omitempty"`
}

// PolicyCache caches Source lookups per organization for ttl.
type PolicyCache struct {
	client Client
	source Source
	ttl    time.Duration
	log    *slog.Logger
}

// NewPolicyCache wraps source. A nil log discards cache warnings.
func NewPolicyCache(client Client, source Source, ttl time.Duration, log *slog.Logger) *PolicyCache {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PolicyCache{client: client, source: source, ttl: ttl, log: log.With("component", "policy_cache")}
}

func cacheKey(orgID string) string {
	return keyPrefix + orgID
}

// GetOrganizationConfig serves from Redis when possible and fills it on a miss.
func (c *PolicyCache) GetOrganizationConfig(ctx context.Context, orgID string) (*model.OrganizationVersioningConfig, error) {
	key := cacheKey(orgID)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var e entry
		if jsonErr := json.Unmarshal(data, &e); jsonErr == nil {
			if !e.Found {
				return nil, repository.ErrNotFound
			}
			return e.Config, nil
		}
		c.log.Warn("cache_decode_failed", "organization_id", orgID)
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("cache_read_failed", "organization_id", orgID, "error", err)
	}

	cfg, err := c.source.GetOrganizationConfig(ctx, orgID)
	var e entry
	switch {
	case err == nil:
		e = entry{Found: true, Config: cfg}
	case errors.Is(err, repository.ErrNotFound):
		e = entry{Found: false}
	default:
		return nil, err
	}

	if b, mErr := json.Marshal(e); mErr == nil {
		if sErr := c.client.Set(ctx, key, b, c.ttl).Err(); sErr != nil {
			c.log.Warn("cache_write_failed", "organization_id", orgID, "error", sErr)
		}
	}
	if !e.Found {
		return nil, err
	}
	return cfg, nil
}

// Invalidate drops the cached configuration of orgID.
func (c *PolicyCache) Invalidate(ctx context.Context, orgID string) error {
	if err := c.client.Del(ctx, cacheKey(orgID)).Err(); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", orgID, err)
	}
	return nil
}
