package api

import (
	"net/http"

	"github.com/forcemove/controller/domain/drive"
	customlog "github.com/forcemove/controller/pkg/log"
	"github.com/forcemove/controller/pkg/processing"
	"github.com/gofiber/fiber/v2"
)

// DriveHandler holds dependencies for the drive API endpoints.
type DriveHandler struct {
	service *drive.Service
	pool    *processing.Pool
	logger  customlog.Logger
}

// NewDriveHandler creates a new handler for drive endpoints.
func NewDriveHandler(service *drive.Service, pool *processing.Pool, logger customlog.Logger) *DriveHandler {
	if service == nil {
		panic("DriveService cannot be nil in NewDriveHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewDriveHandler")
	}
	return &DriveHandler{
		service: service,
		pool:    pool,
		logger:  logger,
	}
}

// RegisterDriveRoutes registers the drive API endpoints with the Fiber app.
func RegisterDriveRoutes(app *fiber.App, service *drive.Service, pool *processing.Pool, logger customlog.Logger) {
	h := NewDriveHandler(service, pool, logger)

	driveGroup := app.Group("/api/v1/drive")

	driveGroup.Post("/command", h.handlePostCommand)
	driveGroup.Get("/odometry", h.handleGetOdometry)
	driveGroup.Get("/status", h.handleGetStatus)

	logger.Infof("Registered drive API endpoints under /api/v1/drive")
}

// handlePostCommand accepts a velocity command as a geometry_msgs/Twist
// shaped JSON body and feeds it into the command ingestion path.
func (h *DriveHandler) handlePostCommand(c *fiber.Ctx) error {
	var cmd drive.TwistCommand
	if err := c.BodyParser(&cmd); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if !h.service.EnqueueCommand(cmd) {
		h.logger.Warnf("Drive command rejected, ingestion queue unavailable")
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "command queue unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "command accepted",
		"command": cmd,
	})
}

// handleGetOdometry returns the most recently published odometry sample.
func (h *DriveHandler) handleGetOdometry(c *fiber.Ctx) error {
	odom, ok := h.service.LastOdometry()
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": "no odometry published yet",
		})
	}
	return c.JSON(odom)
}

// handleGetStatus returns the effective target velocity and ingestion
// queue state.
func (h *DriveHandler) handleGetStatus(c *fiber.Ctx) error {
	vx, vy, wz := h.service.TargetVelocity()

	status := fiber.Map{
		"target_velocity": fiber.Map{"vx": vx, "vy": vy, "wz": wz},
	}
	if h.pool != nil {
		metrics := h.pool.GetMetrics()
		status["command_queue"] = fiber.Map{
			"length":    h.pool.GetQueueLength(),
			"capacity":  h.pool.GetQueueCapacity(),
			"processed": metrics.ProcessedCount,
			"dropped":   metrics.DroppedCount,
			"errors":    metrics.ErrorCount,
		}
	}

	return c.JSON(status)
}
