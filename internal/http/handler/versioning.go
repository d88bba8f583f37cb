package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

type defaultsBody struct {
	DefaultEnabled     bool `json:"default_versioning_enabled"`
	DefaultMaxVersions int  `json:"default_max_versions"`
}

// ListVersioningConfigs handles GET /versioning.
func ListVersioningConfigs(svc service.VersioningService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cfgs, err := svc.ListConfigs(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": cfgs, "total": len(cfgs)})
	}
}

// CreateVersioningConfig handles POST /versioning.
func CreateVersioningConfig(svc service.VersioningService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.ConfigInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		cfg, err := svc.CreateConfig(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(cfg)
	}
}

// GetVersioningConfig handles GET /versioning/:org.
func GetVersioningConfig(svc service.VersioningService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cfg, err := svc.GetConfig(c.UserContext(), c.Params("org"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(cfg)
	}
}

// UpdateVersioningDefaults handles PUT /versioning/:org.
func UpdateVersioningDefaults(svc service.VersioningService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body defaultsBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := svc.UpdateDefaults(c.UserContext(), c.Params("org"), body.DefaultEnabled, body.DefaultMaxVersions); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DeactivateVersioningConfig handles DELETE /versioning/:org. The organization falls
// back to the static defaults afterwards.
func DeactivateVersioningConfig(svc service.VersioningService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Deactivate(c.UserContext(), c.Params("org")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SetCategoryVersioning handles PUT /versioning/:org/categories.
func SetCategoryVersioning(svc service.VersioningService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.CategorySetting
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := svc.SetCategory(c.UserContext(), c.Params("org"), in); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func RemoveCategoryVersioning(svc service.VersioningService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.RemoveCategory(c.UserContext(), c.Params("org"), c.Params("category")); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
