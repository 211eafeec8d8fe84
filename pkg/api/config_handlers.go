package api

import (
	"fmt"
	"net/http"
	"strings"

	customlog "github.com/forcemove/controller/pkg/log"
	"github.com/forcemove/controller/services"
	"github.com/gofiber/fiber/v2"
)

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	configService services.DriveConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.DriveConfigService, logger customlog.Logger) *ConfigHandler {
	if configService == nil {
		panic("ConfigService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, configService services.DriveConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	apiGroup := app.Group("/api/v1/config")

	apiGroup.Get("/drive", h.handleGetDriveConfig)
	apiGroup.Put("/drive", h.handleUpdateDriveConfig)

	logger.Infof("Registered drive configuration API endpoints under /api/v1/config")
}

// handleGetDriveConfig handles GET requests for the current drive config YAML.
func (h *ConfigHandler) handleGetDriveConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling GET request for /api/v1/config/drive")
	yamlData, err := h.configService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to get current drive config YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to retrieve configuration: %v", err),
		})
	}

	if yamlData == nil {
		h.logger.Warnf("Drive config file exists but content is empty or initial load failed.")
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "Drive configuration not found or not yet set.",
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

// handleUpdateDriveConfig handles PUT requests to update the drive config YAML.
func (h *ConfigHandler) handleUpdateDriveConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling PUT request for /api/v1/config/drive")

	contentType := c.Get(fiber.HeaderContentType)
	if contentType != "application/x-yaml" && contentType != "application/yaml" && contentType != "text/yaml" {
		// Relaxed check: try to process anyway but log the mismatch.
		h.logger.Warnf("Received PUT request with unexpected Content-Type: %s", contentType)
	}

	newConfigYAML := c.Body()
	if len(newConfigYAML) == 0 {
		h.logger.Errorf("Received empty body in PUT request for drive config update.")
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body cannot be empty.",
		})
	}

	if err := h.configService.UpdateConfig(newConfigYAML); err != nil {
		h.logger.Errorf("Failed to update drive configuration: %v", err)
		if strings.Contains(err.Error(), "validation failed") || strings.Contains(err.Error(), "invalid YAML format") {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Configuration update failed: %v", err),
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Internal server error during configuration update: %v", err),
		})
	}

	h.logger.Infof("Successfully processed PUT request to update drive configuration.")
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Drive configuration updated successfully. Note: controller restart required for new gains to apply.",
	})
}
