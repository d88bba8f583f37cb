package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/repository/mocks"
)

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestPolicyCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	cfg := &model.OrganizationVersioningConfig{ID: "cfg-1", OrganizationID: "acme", DefaultEnabled: true, DefaultMaxVersions: 3, IsActive: true}

	tests := []struct {
		name       string
		setupMocks func(src *mocks.MockVersioningConfigRepository, rdb *fakeRedis)
		calls      int
		wantErr    error
		want       *model.OrganizationVersioningConfig
	}{
		{
			name: "second call is served from redis",
			setupMocks: func(src *mocks.MockVersioningConfigRepository, rdb *fakeRedis) {
				src.On("GetOrganizationConfig", mock.Anything, "acme").Return(cfg, nil).Once()
			},
			calls: 2,
			want:  cfg,
		},
		{
			name: "absence is cached",
			setupMocks: func(src *mocks.MockVersioningConfigRepository, rdb *fakeRedis) {
				src.On("GetOrganizationConfig", mock.Anything, "acme").Return(nil, repository.ErrNotFound).Once()
			},
			calls:   3,
			wantErr: repository.ErrNotFound,
		},
		{
			name: "redis outage falls through to source",
			setupMocks: func(src *mocks.MockVersioningConfigRepository, rdb *fakeRedis) {
				rdb.getErr = errors.New("connection refused")
				rdb.setErr = errors.New("connection refused")
				src.On("GetOrganizationConfig", mock.Anything, "acme").Return(cfg, nil).Twice()
			},
			calls: 2,
			want:  cfg,
		},
		{
			name: "source errors are not cached",
			setupMocks: func(src *mocks.MockVersioningConfigRepository, rdb *fakeRedis) {
				src.On("GetOrganizationConfig", mock.Anything, "acme").Return(nil, errors.New("db down")).Twice()
			},
			calls:   2,
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := new(mocks.MockVersioningConfigRepository)
			rdb := newFakeRedis()
			tt.setupMocks(src, rdb)
			c := NewPolicyCache(rdb, src, 30*time.Second, nil)

			for i := 0; i < tt.calls; i++ {
				got, err := c.GetOrganizationConfig(ctx, "acme")
				if tt.wantErr != nil {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.wantErr.Error())
					assert.Nil(t, got)
					continue
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want.DefaultMaxVersions, got.DefaultMaxVersions)
				assert.Equal(t, tt.want.OrganizationID, got.OrganizationID)
			}
			src.AssertExpectations(t)
		})
	}
}

func TestPolicyCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	src := new(mocks.MockVersioningConfigRepository)
	rdb := newFakeRedis()
	c := NewPolicyCache(rdb, src, time.Minute, nil)

	src.On("GetOrganizationConfig", mock.Anything, "acme").
		Return(&model.OrganizationVersioningConfig{OrganizationID: "acme", DefaultMaxVersions: 1}, nil).Once()
	src.On("GetOrganizationConfig", mock.Anything, "acme").
		Return(&model.OrganizationVersioningConfig{OrganizationID: "acme", DefaultMaxVersions: 9}, nil).Once()

	got, err := c.GetOrganizationConfig(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, got.DefaultMaxVersions)
	assert.Equal(t, time.Minute, rdb.ttls[cacheKey("acme")])

	require.NoError(t, c.Invalidate(ctx, "acme"))

	got, err = c.GetOrganizationConfig(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 9, got.DefaultMaxVersions)
	src.AssertExpectations(t)
}

func TestOpen_RejectsBadURLs(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyURL)

	_, err = Open(context.Background(), "http://localhost:6379")
	assert.ErrorContains(t, err, "unsupported url scheme")
}
