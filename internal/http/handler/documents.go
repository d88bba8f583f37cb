package handler

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/service"
)

// ListDocuments handles GET /documents with limit, offset, organization_id and category.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), service.ListQuery{
			OrganizationID: c.Query("organization_id"),
			Category:       c.Query("category"),
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument handles POST /documents (multipart/form-data). The file goes in
// field "file"; organization_id, category, description and a JSON metadata object
// are plain form fields.
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return upload(c, func(in service.UploadInput) (*service.UploadResult, error) {
			in.OrganizationID = c.FormValue("organization_id")
			in.Category = c.FormValue("category")
			return svc.Upload(c.UserContext(), in)
		})
	}
}

// UploadVersion handles PUT /documents/:id/versions.
func UploadVersion(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		return upload(c, func(in service.UploadInput) (*service.UploadResult, error) {
			return svc.UploadVersion(c.UserContext(), id, in)
		})
	}
}

func upload(c *fiber.Ctx, call func(service.UploadInput) (*service.UploadResult, error)) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	}

	var meta map[string]string
	if raw := c.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_METADATA", "metadata must be a JSON object of strings")
		}
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
	}
	defer f.Close()

	res, err := call(service.UploadInput{
		Body:        f,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Description: c.FormValue("description"),
		Metadata:    meta,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	if !res.Outcome.Success {
		return c.Status(fiber.StatusBadGateway).JSON(res)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// GetDocument handles GET /documents/:id.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// ListVersions handles GET /documents/:id/versions.
func ListVersions(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		versions, err := svc.Versions(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": versions, "total": len(versions)})
	}
}

// DocumentHistory handles GET /documents/:id/history.
func DocumentHistory(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		history, err := svc.History(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": history, "total": len(history)})
	}
}

// DownloadURL handles GET /documents/:id/download-url?version=&expires_in=.
// expires_in is in minutes.
func DownloadURL(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		version, err := strconv.Atoi(c.Query("version", "0"))
		if err != nil || version < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_VERSION", "invalid version")
		}
		minutes, err := strconv.Atoi(c.Query("expires_in", "0"))
		if err != nil || minutes < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY", "invalid expiry")
		}

		link, err := svc.DownloadURL(c.UserContext(), id, version, time.Duration(minutes)*time.Minute)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(link)
	}
}

// DownloadDocument handles GET /documents/:id/download?version= and streams the object.
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		version, err := strconv.Atoi(c.Query("version", "0"))
		if err != nil || version < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_VERSION", "invalid version")
		}

		d, err := svc.Download(c.UserContext(), id, version)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Attachment(d.Filename)
		if d.Info.ContentType != "" {
			c.Set(fiber.HeaderContentType, d.Info.ContentType)
		}
		c.Set("X-Document-Version", strconv.Itoa(d.Version))
		// fasthttp closes the body stream once the response is written.
		if d.Info.Size > 0 {
			return c.SendStream(d.Body, int(d.Info.Size))
		}
		return c.SendStream(d.Body)
	}
}

// DeleteDocument handles DELETE /documents/:id.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// VersioningStatus handles GET /organizations/:org/versioning/:category.
func VersioningStatus(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		org := strings.TrimSpace(c.Params("org"))
		category := c.Params("category")
		policy, err := svc.VersioningStatus(c.UserContext(), org, category)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"organization_id":    org,
			"category":           category,
			"versioning_enabled": policy.Enabled,
			"max_versions":       policy.MaxVersions,
		})
	}
}

// ListOrganizationFiles handles GET /organizations/:org/files.
func ListOrganizationFiles(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		files, err := svc.Files(c.UserContext(), c.Params("org"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": files, "total": len(files)})
	}
}

func DocumentObjectStatus(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		status, err := svc.ObjectStatus(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(status)
	}
}

func documentID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
