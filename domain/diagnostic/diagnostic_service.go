package diagnostic

import (
	"sync"

	"github.com/gofiber/fiber/v2"
)

// DriveStats represents drive controller activity counters. Times are in
// simulation seconds.
type DriveStats struct {
	CommandsReceived  int64   `json:"commands_received"`
	OdometryPublished int64   `json:"odometry_published"`
	LastCommandTime   float64 `json:"last_command_time"`
	LastOdometryTime  float64 `json:"last_odometry_time"`
}

// Service collects drive controller statistics and serves them over the
// HTTP API.
type Service struct {
	mu    sync.RWMutex
	stats DriveStats
}

// NewService creates a new diagnostic service instance
func NewService() *Service {
	return &Service{}
}

// RecordCommand counts one accepted velocity command.
func (s *Service) RecordCommand(simTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.CommandsReceived++
	s.stats.LastCommandTime = simTime
}

// RecordOdometryPublish counts one published odometry sample.
func (s *Service) RecordOdometryPublish(simTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.OdometryPublished++
	s.stats.LastOdometryTime = simTime
}

// GetStats returns a copy of the current statistics.
func (s *Service) GetStats() DriveStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stats
}

// GetStatsHandler handles API requests for drive statistics
func (s *Service) GetStatsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "success",
		"stats":  s.GetStats(),
	})
}
