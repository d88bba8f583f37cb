package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
	"docvault/internal/versioning"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

var validationCodes = map[error]string{
	versioning.ErrEmptyFile:            "EMPTY_FILE",
	versioning.ErrFilenameRequired:     "FILENAME_REQUIRED",
	versioning.ErrExtensionNotAllowed:  "EXTENSION_NOT_ALLOWED",
	versioning.ErrFileTooLarge:         "FILE_TOO_LARGE",
	versioning.ErrOrganizationRequired: "ORGANIZATION_REQUIRED",
	versioning.ErrInvalidCategory:      "INVALID_CATEGORY",
	versioning.ErrInvalidDocumentID:    "INVALID_ID",
	versioning.ErrPriorKeyRequired:     "PRIOR_KEY_REQUIRED",
	versioning.ErrPriorKeyMismatch:     "PRIOR_KEY_MISMATCH",
}

// writeServiceError maps service and engine errors onto the error envelope.
// Messages come from sentinel errors only.
func writeServiceError(c *fiber.Ctx, err error) error {
	var ve *versioning.ValidationError
	switch {
	case errors.As(err, &ve):
		code, ok := validationCodes[ve.Reason]
		if !ok {
			code = "VALIDATION_ERROR"
		}
		status := fiber.StatusBadRequest
		if ve.Reason == versioning.ErrFileTooLarge {
			status = fiber.StatusRequestEntityTooLarge
		}
		return writeError(c, status, code, ve.Reason.Error())
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "ID_REQUIRED", "id is required")
	case errors.Is(err, service.ErrInvalidCategory):
		return writeError(c, fiber.StatusBadRequest, "INVALID_CATEGORY", "invalid category")
	case errors.Is(err, service.ErrInvalidExpiry):
		return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY", service.ErrInvalidExpiry.Error())
	case errors.Is(err, service.ErrInvalidMaxVersions):
		return writeError(c, fiber.StatusBadRequest, "INVALID_MAX_VERSIONS", service.ErrInvalidMaxVersions.Error())
	case errors.Is(err, service.ErrReaderNil):
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrVersionNotFound):
		return writeError(c, fiber.StatusNotFound, "VERSION_NOT_FOUND", "document version not found")
	case errors.Is(err, service.ErrConfigNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "versioning configuration not found")
	case errors.Is(err, service.ErrAlreadyExists):
		return writeError(c, fiber.StatusConflict, "ALREADY_EXISTS", "versioning configuration already exists")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
