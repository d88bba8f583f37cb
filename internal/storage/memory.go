package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"docvault/internal/content"
)

// Memory is an in-process versioned bucket. It backs STORAGE_DRIVER=memory for local
// runs and the engine tests. Hooks let callers inject failures per operation.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]memoryVersion
	seq     int
	now     func() time.Time

	puts    int
	deletes int

	// PutHook, DeleteHook and ListHook run before the operation; a non-nil error aborts it.
	PutHook    func(key string) error
	DeleteHook func(key string) error
	ListHook   func(prefix string) error
}

type memoryVersion struct {
	id       string
	data     []byte
	info     ObjectInfo
	modified time.Time
	deleted  bool
}

// NewMemory returns an empty bucket.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]memoryVersion), now: time.Now}
}

// SetClock overrides the clock used for LastModified.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Memory) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: put %q: %w", key, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("storage: put %q: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutHook != nil {
		if err := m.PutHook(key); err != nil {
			return ObjectInfo{}, err
		}
	}
	m.seq++
	m.puts++
	md := make(map[string]string, len(opt.Metadata))
	for k, v := range opt.Metadata {
		md[strings.ToLower(k)] = v
	}
	info := ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         content.Checksum(data),
		ContentType:  opt.ContentType,
		LastModified: m.now().UTC(),
		Metadata:     md,
		VersionID:    strconv.Itoa(m.seq),
	}
	m.objects[key] = append(m.objects[key], memoryVersion{id: info.VersionID, data: data, info: info, modified: info.LastModified})
	return info, nil
}

func (m *Memory) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.latest(key)
	if !ok {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(v.data)), v.info, nil
}

func (m *Memory) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.latest(key)
	if !ok {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v.info, nil
}

// Delete places a delete marker on key. Deleting a missing key succeeds, as on S3.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteHook != nil {
		if err := m.DeleteHook(key); err != nil {
			return err
		}
	}
	m.deletes++
	if _, ok := m.latest(key); !ok {
		return nil
	}
	m.seq++
	m.objects[key] = append(m.objects[key], memoryVersion{id: strconv.Itoa(m.seq), modified: m.now().UTC(), deleted: true})
	return nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", prefix, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListHook != nil {
		if err := m.ListHook(prefix); err != nil {
			return nil, err
		}
	}
	var out []ObjectInfo
	for key := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if v, ok := m.latest(key); ok {
			out = append(out, v.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) ListVersions(ctx context.Context, key string) ([]ObjectVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := m.objects[key]
	out := make([]ObjectVersion, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		v := history[i]
		out = append(out, ObjectVersion{
			Key:            key,
			VersionID:      v.id,
			Size:           int64(len(v.data)),
			ETag:           v.info.ETag,
			LastModified:   v.modified,
			IsLatest:       i == len(history)-1,
			IsDeleteMarker: v.deleted,
		})
	}
	return out, nil
}

func (m *Memory) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("memory://%s?expires=%d", key, int64(expiry.Seconds())), nil
}

// Keys returns the keys that currently resolve to an object.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.objects {
		if _, ok := m.latest(key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Puts is the number of successful Put calls.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// Deletes is the number of Delete calls that passed DeleteHook.
func (m *Memory) Deletes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}

func (m *Memory) latest(key string) (memoryVersion, bool) {
	history := m.objects[key]
	if len(history) == 0 || history[len(history)-1].deleted {
		return memoryVersion{}, false
	}
	return history[len(history)-1], true
}

var _ Storage = (*Memory)(nil)
