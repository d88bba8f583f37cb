package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docvault/internal/config"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *mockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func (m *mockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func (m *mockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListObjectsV2Output), args.Error(1)
}

func (m *mockS3Client) ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListObjectVersionsOutput), args.Error(1)
}

type mockPresigner struct {
	mock.Mock
}

func (m *mockPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := &s3.PresignOptions{}
	for _, fn := range optFns {
		fn(opts)
	}
	args := m.Called(ctx, params, opts.Expires)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v4.PresignedHTTPRequest), args.Error(1)
}

func newTestS3(t *testing.T) (*S3Storage, *mockS3Client, *mockPresigner) {
	t.Helper()
	client := &mockS3Client{}
	presigner := &mockPresigner{}
	st, err := NewS3(context.Background(), config.StorageConfig{Bucket: "docs", Region: "eu-west-1"},
		WithS3Client(client), WithS3Presigner(presigner))
	require.NoError(t, err)
	return st, client, presigner
}

func TestNewS3_InvalidConfig(t *testing.T) {
	_, err := NewS3(context.Background(), config.StorageConfig{Region: "eu-west-1"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestS3Storage_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		st, client, _ := newTestS3(t)
		client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return aws.ToString(in.Bucket) == "docs" &&
				aws.ToString(in.Key) == "organizations/o/2025/legal/d_v1_a.pdf" &&
				aws.ToInt64(in.ContentLength) == 3 &&
				aws.ToString(in.ContentType) == "application/pdf" &&
				in.Metadata["version"] == "1"
		})).Return(&s3.PutObjectOutput{ETag: aws.String(`"abc"`), VersionId: aws.String("v-1")}, nil).Once()

		info, err := st.Put(ctx, "organizations/o/2025/legal/d_v1_a.pdf", strings.NewReader("pdf"), PutObjectOptions{
			Size: 3, ContentType: "application/pdf", Metadata: map[string]string{"Version": "1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "abc", info.ETag)
		assert.Equal(t, "v-1", info.VersionID)
		assert.Equal(t, int64(3), info.Size)
		client.AssertExpectations(t)
	})

	t.Run("api error becomes operation error", func(t *testing.T) {
		st, client, _ := newTestS3(t)
		client.On("PutObject", ctx, mock.Anything).Return(nil, &smithy.GenericAPIError{Code: "AccessDenied"}).Once()

		_, err := st.Put(ctx, "k", strings.NewReader("x"), PutObjectOptions{Size: 1})
		require.Error(t, err)
		var oe *OperationError
		require.ErrorAs(t, err, &oe)
		assert.Equal(t, "AccessDenied", oe.Code)
	})
}

func TestS3Storage_GetAndStat(t *testing.T) {
	ctx := context.Background()
	st, client, _ := newTestS3(t)
	modified := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	client.On("GetObject", ctx, mock.Anything).Return(&s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader("body")),
		ContentLength: aws.Int64(4),
		ContentType:   aws.String("text/plain"),
		LastModified:  &modified,
		Metadata:      map[string]string{"Checksum": "c"},
	}, nil).Once()
	client.On("HeadObject", ctx, mock.Anything).Return(nil, &types.NotFound{}).Once()

	rc, info, err := st.Get(ctx, "a.txt")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "body", string(b))
	assert.Equal(t, "c", info.Metadata["checksum"])
	assert.Equal(t, modified, info.LastModified)

	_, err = st.Stat(ctx, "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3Storage_ListPaginates(t *testing.T) {
	ctx := context.Background()
	st, client, _ := newTestS3(t)

	client.On("ListObjectsV2", ctx, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		Contents:              []types.Object{{Key: aws.String("p/b"), Size: aws.Int64(2)}},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("t1"),
	}, nil).Once()
	client.On("ListObjectsV2", ctx, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.ContinuationToken) == "t1"
	})).Return(&s3.ListObjectsV2Output{
		Contents:    []types.Object{{Key: aws.String("p/a"), Size: aws.Int64(1)}},
		IsTruncated: aws.Bool(false),
	}, nil).Once()

	got, err := st.List(ctx, "p/")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p/a", got[0].Key)
	assert.Equal(t, "p/b", got[1].Key)
	client.AssertExpectations(t)
}

func TestS3Storage_ListVersions(t *testing.T) {
	ctx := context.Background()
	st, client, _ := newTestS3(t)
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	client.On("ListObjectVersions", ctx, mock.Anything).Return(&s3.ListObjectVersionsOutput{
		Versions: []types.ObjectVersion{
			{Key: aws.String("k"), VersionId: aws.String("1"), LastModified: &older, IsLatest: aws.Bool(false)},
			{Key: aws.String("k2"), VersionId: aws.String("9"), LastModified: &newer},
		},
		DeleteMarkers: []types.DeleteMarkerEntry{
			{Key: aws.String("k"), VersionId: aws.String("2"), LastModified: &newer, IsLatest: aws.Bool(true)},
		},
		IsTruncated: aws.Bool(false),
	}, nil).Once()

	got, err := st.ListVersions(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].VersionID)
	assert.True(t, got[0].IsDeleteMarker)
	assert.Equal(t, "1", got[1].VersionID)
}

func TestS3Storage_PresignGet(t *testing.T) {
	ctx := context.Background()
	st, _, presigner := newTestS3(t)
	presigner.On("PresignGetObject", ctx, mock.Anything, 15*time.Minute).
		Return(&v4.PresignedHTTPRequest{URL: "https://signed"}, nil).Once()

	u, err := st.PresignGet(ctx, "k", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://signed", u)
}

func TestS3Storage_DeleteMissingIsNotAnOperationError(t *testing.T) {
	ctx := context.Background()
	st, client, _ := newTestS3(t)
	client.On("DeleteObject", ctx, mock.Anything).Return(nil, &types.NoSuchKey{}).Once()

	err := st.Delete(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, IsOperationError(err))
}

func TestTrimETag(t *testing.T) {
	assert.Equal(t, "abc", trimETag(`"abc"`))
	assert.Equal(t, "abc", trimETag("abc"))
	assert.Equal(t, `"`, trimETag(`"`))
}
