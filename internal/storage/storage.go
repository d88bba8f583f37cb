// Package storage contains the object store abstraction used by the versioning engine
// and its S3-compatible implementations. Implementations stream through io.Reader and
// never touch local disk.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"strings"
	"time"
	"unicode"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
// VersionID is empty when the bucket is not versioned.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
	VersionID    string
}

// ObjectVersion is one entry of the store-native version history of a key.
type ObjectVersion struct {
	Key            string
	VersionID      string
	Size           int64
	ETag           string
	LastModified   time.Time
	IsLatest       bool
	IsDeleteMarker bool
}

// Storage is a reusable, S3-compatible object storage client interface.
// Implementations are safe for concurrent use.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Stat returns the object's info without its content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// List returns every object whose key starts with prefix, in key order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// ListVersions returns the store-native history of exactly one key, newest first.
	ListVersions(ctx context.Context, key string) ([]ObjectVersion, error)
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Exists reports whether key is present in s.
func Exists(ctx context.Context, s Storage, key string) (bool, error) {
	if _, err := s.Stat(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// encodeMetadata lowercases keys and RFC 2047 encodes values that S3 headers cannot carry.
func encodeMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		if !isPrintableASCII(v) {
			v = mime.QEncoding.Encode("utf-8", v)
		}
		out[strings.ToLower(k)] = v
	}
	return out
}

func decodeMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return map[string]string{}
	}
	dec := new(mime.WordDecoder)
	out := make(map[string]string, len(md))
	for k, v := range md {
		if d, err := dec.DecodeHeader(v); err == nil {
			v = d
		}
		out[strings.ToLower(k)] = v
	}
	return out
}

func isPrintableASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
