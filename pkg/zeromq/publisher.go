package zeromq

import (
	"log"

	"github.com/forcemove/controller/domain/drive"
	"github.com/forcemove/controller/pkg/config"
)

// Message types published on the outbound socket
const (
	MsgTypeOdometry     = "ODOMETRY"
	MsgTypeTransform    = "TRANSFORM"
	MsgTypeConfigUpdate = "CONFIG_UPDATED"
)

// OdometryPublisher publishes odometry samples and frame transforms on
// the outbound PUB socket. It satisfies the drive service's Sink.
type OdometryPublisher struct {
	service   *ZeroMQService
	odomTopic string
	tfTopic   string
	logger    *log.Logger
}

var _ drive.Sink = (*OdometryPublisher)(nil)

// NewOdometryPublisher creates a publisher for odometry output
func NewOdometryPublisher(service *ZeroMQService, cfg *config.Config, logger *log.Logger) *OdometryPublisher {
	return &OdometryPublisher{
		service:   service,
		odomTopic: cfg.OdometryTopic(),
		tfTopic:   cfg.TfTopic(),
		logger:    logger,
	}
}

// PublishOdometry sends an odometry sample on the odometry topic
func (p *OdometryPublisher) PublishOdometry(msg drive.OdometryMsg) error {
	return p.service.PublishJSON(p.odomTopic, MsgTypeOdometry, msg)
}

// PublishTransform broadcasts the odom-to-base transform
func (p *OdometryPublisher) PublishTransform(msg drive.TransformMsg) error {
	return p.service.PublishJSON(p.tfTopic, MsgTypeTransform, msg)
}

// ConfigPublisher publishes configuration update notifications to
// subscribed gateways
type ConfigPublisher struct {
	service *ZeroMQService
	config  *config.Config
	logger  *log.Logger
}

// NewConfigPublisher creates a new publisher for configuration updates
func NewConfigPublisher(service *ZeroMQService, cfg *config.Config, logger *log.Logger) *ConfigPublisher {
	return &ConfigPublisher{
		service: service,
		config:  cfg,
		logger:  logger,
	}
}

// PublishConfigUpdate publishes the current configuration to all subscribers
func (p *ConfigPublisher) PublishConfigUpdate() error {
	p.logger.Printf("Publishing configuration update (ID: %s)", p.config.ConfigID)
	return p.service.PublishJSON("configuration.update", MsgTypeConfigResponse, p.config)
}

// PublishConfigUpdatedNotification publishes a notification that the config has changed
func (p *ConfigPublisher) PublishConfigUpdatedNotification() error {
	p.logger.Printf("Publishing configuration update notification")

	notification := map[string]interface{}{
		"config_id":    p.config.ConfigID,
		"version":      p.config.Version,
		"last_updated": p.config.LastUpdated,
	}

	return p.service.PublishJSON("configuration.notification", MsgTypeConfigUpdate, notification)
}

// RegisterConfigHandlers registers config-related handlers and returns the
// config publisher
func RegisterConfigHandlers(service *ZeroMQService, cfg *config.Config, logger *log.Logger) *ConfigPublisher {
	configHandler := NewConfigHandler(cfg, logger)
	service.RegisterHandler(MsgTypeConfigRequest, configHandler)

	publisher := NewConfigPublisher(service, cfg, logger)

	logger.Printf("Registered configuration handlers and publisher")
	return publisher
}
