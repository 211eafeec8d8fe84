package services

import (
	"fmt"
	"os"
	"sync"

	"github.com/forcemove/controller/pkg/config"
	customlog "github.com/forcemove/controller/pkg/log"
	"gopkg.in/yaml.v3"
)

// ConfigPublisher defines the interface for publishing configuration
// update notifications, avoiding a direct dependency on the transport
// layer.
type ConfigPublisher interface {
	PublishConfigUpdatedNotification() error
}

// DriveConfigService defines the interface for managing the operational
// drive configuration.
type DriveConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.Config
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	PersistConfig(yamlData []byte) error
	SetPublisher(p ConfigPublisher)
}

type driveConfigService struct {
	operationalConfigPath string
	logger                customlog.Logger
	configPublisher       ConfigPublisher
	currentConfig         *config.Config
	mu                    sync.RWMutex
}

// NewDriveConfigService creates a new DriveConfigService and attempts an
// initial load. A missing file is not fatal at construction time: the
// config can still be provided through the update API.
func NewDriveConfigService(operationalConfigPath string, logger customlog.Logger) (DriveConfigService, error) {
	if operationalConfigPath == "" {
		return nil, fmt.Errorf("operational configuration path cannot be empty")
	}
	if logger == nil {
		logger, _ = customlog.NewLogrusLogger("info", "")
		logger.Warnf("No logger provided to DriveConfigService, using default.")
	}

	service := &driveConfigService{
		operationalConfigPath: operationalConfigPath,
		logger:                logger,
	}

	if err := service.LoadConfig(); err != nil {
		logger.Warnf("Initial load of operational config '%s' failed: %v. Service created, but config is nil.", operationalConfigPath, err)
		return service, nil
	}

	logger.Infof("DriveConfigService initialized successfully for path: %s", operationalConfigPath)
	return service, nil
}

// LoadConfig reads the operational config file from disk and updates the
// current in-memory config.
func (s *driveConfigService) LoadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading operational configuration from: %s", s.operationalConfigPath)
	data, err := os.ReadFile(s.operationalConfigPath)
	if err != nil {
		s.logger.Errorf("Error reading operational config file '%s': %v", s.operationalConfigPath, err)
		s.currentConfig = nil
		return fmt.Errorf("error reading operational config file '%s': %w", s.operationalConfigPath, err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		s.logger.Errorf("Error parsing operational config file '%s': %v", s.operationalConfigPath, err)
		s.currentConfig = nil
		return fmt.Errorf("error parsing operational config file '%s': %w", s.operationalConfigPath, err)
	}

	if err := validateConfig(&cfg); err != nil {
		s.currentConfig = nil
		return fmt.Errorf("invalid operational config '%s': %w", s.operationalConfigPath, err)
	}

	s.currentConfig = &cfg
	s.logger.Infof("Successfully loaded operational configuration ID: %s, Version: %s", cfg.ConfigID, cfg.Version)
	return nil
}

// GetCurrentConfig returns a pointer to the currently loaded operational
// configuration. Read-only; modifications go through UpdateConfig.
func (s *driveConfigService) GetCurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML reads the operational config file from disk and
// returns its raw YAML content.
func (s *driveConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	path := s.operationalConfigPath
	s.mu.RUnlock() // Unlock before file I/O

	s.logger.Debugf("Reading raw operational configuration YAML from: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Errorf("Error reading operational config file '%s' for YAML export: %v", path, err)
		return nil, fmt.Errorf("error reading operational config file '%s': %w", path, err)
	}
	return data, nil
}

// UpdateConfig validates, persists and applies a new operational
// configuration, then publishes a notification. Gains, rates and frames
// take effect on the next controller restart; this service only manages
// the persisted document.
func (s *driveConfigService) UpdateConfig(newConfigYAML []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Attempting to update operational configuration from provided YAML")

	var newCfg config.Config
	if err := yaml.Unmarshal(newConfigYAML, &newCfg); err != nil {
		s.logger.Errorf("Failed to parse provided YAML configuration: %v", err)
		return fmt.Errorf("invalid YAML format: %w", err)
	}
	if err := validateConfig(&newCfg); err != nil {
		s.logger.Errorf("Validation of provided YAML configuration failed: %v", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	// Persist before applying, so a write failure never leaves the active
	// config out of sync with disk.
	if err := s.persistConfigUnlocked(newConfigYAML); err != nil {
		return err
	}

	oldCfgID := "N/A"
	if s.currentConfig != nil {
		oldCfgID = s.currentConfig.ConfigID
	}
	s.currentConfig = &newCfg
	s.logger.Infof("Successfully updated and persisted operational configuration. ID %s -> %s, Version: %s",
		oldCfgID, s.currentConfig.ConfigID, s.currentConfig.Version)

	if s.configPublisher != nil {
		go func(publisher ConfigPublisher) {
			if err := publisher.PublishConfigUpdatedNotification(); err != nil {
				s.logger.Warnf("Failed to publish config update notification: %v", err)
			} else {
				s.logger.Infof("Published config update notification successfully.")
			}
		}(s.configPublisher)
	} else {
		s.logger.Infof("ConfigPublisher not configured, skipping update notification.")
	}

	return nil
}

// PersistConfig writes the given YAML data to the operational config file
// path. Exposed mainly for testing.
func (s *driveConfigService) PersistConfig(yamlData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistConfigUnlocked(yamlData)
}

func (s *driveConfigService) persistConfigUnlocked(yamlData []byte) error {
	s.logger.Infof("Persisting operational configuration to: %s", s.operationalConfigPath)
	if err := os.WriteFile(s.operationalConfigPath, yamlData, 0644); err != nil {
		s.logger.Errorf("Error writing operational config file '%s': %v", s.operationalConfigPath, err)
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	s.logger.Infof("Successfully persisted configuration to %s", s.operationalConfigPath)
	return nil
}

// SetPublisher allows injecting the ConfigPublisher after initialization.
func (s *driveConfigService) SetPublisher(p ConfigPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configPublisher = p
	s.logger.Infof("ConfigPublisher injected into DriveConfigService.")
}

// validateConfig checks the structural requirements of an operational
// config: identity fields, a named body with positive mass and inertia,
// and non-negative drive parameters.
func validateConfig(cfg *config.Config) error {
	if cfg.ConfigID == "" || cfg.Version == "" || cfg.RobotID == "" {
		return fmt.Errorf("missing required fields (ConfigID, Version, RobotID)")
	}
	if cfg.Body.Name == "" {
		return fmt.Errorf("body.name is required")
	}
	if cfg.Body.Mass <= 0 {
		return fmt.Errorf("body.mass must be positive, got %f", cfg.Body.Mass)
	}
	if cfg.Body.Inertia <= 0 {
		return fmt.Errorf("body.inertia must be positive, got %f", cfg.Body.Inertia)
	}
	if cfg.Drive.OdometryRate() < 0 {
		return fmt.Errorf("drive.odometry_rate_hz cannot be negative")
	}
	if cfg.Drive.CmdVelTimeout() < 0 {
		return fmt.Errorf("drive.cmd_vel_timeout_s cannot be negative")
	}
	return nil
}
