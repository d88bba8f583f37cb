package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

var (
	ErrInvalidConfig = errors.New("storage: invalid configuration")
	ErrNotFound      = errors.New("storage: object not found")
)

// OperationError is a failure reported by the object store API itself
// (access denied, missing bucket, throttling, ...). Transport and context
// errors are never wrapped in an OperationError.
type OperationError struct {
	Op   string
	Key  string
	Code string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("storage: %s %q failed (code: %s): %v", e.Op, e.Key, e.Code, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// IsOperationError reports whether err carries an *OperationError.
func IsOperationError(err error) bool {
	var oe *OperationError
	return errors.As(err, &oe)
}

func classifyMinioError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("storage: %s %q: %w", op, key, err)
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code != "" {
		switch resp.Code {
		case "NoSuchKey", "NoSuchVersion", "NotFound":
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return &OperationError{Op: op, Key: key, Code: resp.Code, Err: err}
	}
	return fmt.Errorf("storage: %s %q: %w", op, key, err)
}

func classifyS3Error(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("storage: %s %q: %w", op, key, err)
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchVersion":
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return &OperationError{Op: op, Key: key, Code: apiErr.ErrorCode(), Err: err}
	}
	return fmt.Errorf("storage: %s %q: %w", op, key, err)
}
