package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapConfig holds the initial configuration loaded from controller_config.yaml
type BootstrapConfig struct {
	Logging    LoggingConfig         `yaml:"logging"`
	Server     BootstrapServerConfig `yaml:"server"`
	ZeroMQ     ZeroMQBootstrap       `yaml:"zeromq"`
	Data       DataConfig            `yaml:"data"`
	Sim        SimConfig             `yaml:"sim"`
	Processing ProcessingConfig      `yaml:"processing"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// BootstrapServerConfig holds bootstrap HTTP server settings
type BootstrapServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// ZeroMQBootstrap holds ZeroMQ settings from bootstrap
type ZeroMQBootstrap struct {
	RequestBindAddress  string `yaml:"request_bind_address"`
	PublishBindAddress  string `yaml:"publish_bind_address"`
	CommandBindAddress  string `yaml:"command_bind_address"`
	MessageBufferSize   int    `yaml:"message_buffer_size"`
	ReconnectIntervalMs int    `yaml:"reconnect_interval_ms"`
}

// SimConfig holds simulation loop settings from bootstrap
type SimConfig struct {
	StepSeconds float64 `yaml:"step_seconds"`
	Realtime    bool    `yaml:"realtime"`
}

// ProcessingConfig holds command ingestion worker configuration from bootstrap
type ProcessingConfig struct {
	CommandWorkers   int `yaml:"command_workers"`
	CommandQueueSize int `yaml:"command_queue_size"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory           string `yaml:"directory"`
	DriveConfigFilename string `yaml:"drive_config_file"`
}

// LoadBootstrapConfig loads the bootstrap configuration from controller_config.yaml
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, "controller_config.yaml")

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if bootstrapCfg.ZeroMQ.RequestBindAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.request_bind_address")
	}
	if bootstrapCfg.ZeroMQ.PublishBindAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.publish_bind_address")
	}
	if bootstrapCfg.ZeroMQ.CommandBindAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: zeromq.command_bind_address")
	}
	if bootstrapCfg.Data.Directory == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if bootstrapCfg.Data.DriveConfigFilename == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.drive_config_file")
	}
	if bootstrapCfg.Sim.StepSeconds <= 0 {
		return nil, fmt.Errorf("bootstrap config sim.step_seconds must be positive, got %f", bootstrapCfg.Sim.StepSeconds)
	}

	// Sensible defaults for the command ingestion pool: one worker keeps
	// arrival order, the queue absorbs bursts.
	if bootstrapCfg.Processing.CommandWorkers <= 0 {
		bootstrapCfg.Processing.CommandWorkers = 1
	}
	if bootstrapCfg.Processing.CommandQueueSize <= 0 {
		bootstrapCfg.Processing.CommandQueueSize = 100
	}

	return &bootstrapCfg, nil
}
