package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, verSvc service.VersioningService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api/v1")

	docs := api.Group("/documents")
	docs.Get("/", ListDocuments(docSvc))
	docs.Post("/", UploadDocument(docSvc))
	docs.Get("/:id", GetDocument(docSvc))
	docs.Delete("/:id", DeleteDocument(docSvc))
	docs.Put("/:id/versions", UploadVersion(docSvc))
	docs.Get("/:id/versions", ListVersions(docSvc))
	docs.Get("/:id/history", DocumentHistory(docSvc))
	docs.Get("/:id/download-url", DownloadURL(docSvc))
	docs.Get("/:id/download", DownloadDocument(docSvc))
	docs.Get("/:id/exists", DocumentObjectStatus(docSvc))

	api.Get("/organizations/:org/files", ListOrganizationFiles(docSvc))
	api.Get("/organizations/:org/versioning/:category", VersioningStatus(docSvc))

	cfg := api.Group("/versioning")
	cfg.Get("/", ListVersioningConfigs(verSvc))
	cfg.Post("/", CreateVersioningConfig(verSvc))
	cfg.Get("/:org", GetVersioningConfig(verSvc))
	cfg.Put("/:org", UpdateVersioningDefaults(verSvc))
	cfg.Delete("/:org", DeactivateVersioningConfig(verSvc))
	cfg.Put("/:org/categories", SetCategoryVersioning(verSvc))
	cfg.Delete("/:org/categories/:category", RemoveCategoryVersioning(verSvc))
}
