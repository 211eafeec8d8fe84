package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values applied when the operational config omits a field.
const (
	DefaultYawVelocityPGain = 100.0
	DefaultXVelocityPGain   = 10000.0
	DefaultYVelocityPGain   = 10000.0
	DefaultOdometryRateHz   = 20.0
	DefaultCmdVelTimeoutS   = 0.25
	DefaultOdomFrame        = "odom"
	DefaultBaseFrame        = "base_footprint"

	DefaultCommandTopic  = "drive.control.velocity"
	DefaultOdometryTopic = "drive.state.odometry"
	DefaultTfTopic       = "drive.state.tf"
)

// Config represents the operational drive controller configuration.
type Config struct {
	Version     string         `yaml:"version" json:"version"`
	ConfigID    string         `yaml:"config_id" json:"config_id"`
	LastUpdated string         `yaml:"lastUpdated" json:"lastUpdated"`
	RobotID     string         `yaml:"robot_id" json:"robot_id"`
	Drive       DriveConfig    `yaml:"drive" json:"drive"`
	Body        BodyConfig     `yaml:"body" json:"body"`
	Topics      []TopicConfig  `yaml:"topics" json:"topics"`
	Defaults    DefaultsConfig `yaml:"defaults" json:"defaults"`
}

// DriveConfig holds the velocity controller and odometry parameters.
// Pointer fields distinguish "not set" (default applies) from an explicit
// zero: a zero gain disables an axis and a zero odometry rate disables
// publishing.
type DriveConfig struct {
	YawVelocityPGain *float64 `yaml:"yaw_velocity_p_gain" json:"yaw_velocity_p_gain"`
	XVelocityPGain   *float64 `yaml:"x_velocity_p_gain" json:"x_velocity_p_gain"`
	YVelocityPGain   *float64 `yaml:"y_velocity_p_gain" json:"y_velocity_p_gain"`
	OdometryRateHz   *float64 `yaml:"odometry_rate_hz" json:"odometry_rate_hz"`
	CmdVelTimeoutS   *float64 `yaml:"cmd_vel_timeout_s" json:"cmd_vel_timeout_s"`
	PublishOdomTf    *bool    `yaml:"publish_odom_tf" json:"publish_odom_tf"`
	OdomFrame        string   `yaml:"odom_frame" json:"odom_frame"`
	BaseFrame        string   `yaml:"base_frame" json:"base_frame"`
}

// BodyConfig names the simulated body the controller acts on and its
// physical parameters.
type BodyConfig struct {
	Name           string  `yaml:"name" json:"name"`
	Mass           float64 `yaml:"mass" json:"mass"`
	Inertia        float64 `yaml:"inertia" json:"inertia"`
	LinearDamping  float64 `yaml:"linear_damping" json:"linear_damping"`
	AngularDamping float64 `yaml:"angular_damping" json:"angular_damping"`
}

// TopicConfig maps a transport topic to a message type and direction.
type TopicConfig struct {
	Topic       string `yaml:"topic" json:"topic"`
	MessageType string `yaml:"message_type" json:"message_type"`
	Direction   string `yaml:"direction" json:"direction"`
}

// DefaultsConfig holds default values for topic entries.
type DefaultsConfig struct {
	Direction string `yaml:"direction" json:"direction"`
}

// LoadConfig loads the operational configuration from the specified file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

// --- DriveConfig accessors, defaults applied where the field is unset ---

func (d DriveConfig) YawGain() float64 {
	if d.YawVelocityPGain == nil {
		return DefaultYawVelocityPGain
	}
	return *d.YawVelocityPGain
}

func (d DriveConfig) XGain() float64 {
	if d.XVelocityPGain == nil {
		return DefaultXVelocityPGain
	}
	return *d.XVelocityPGain
}

func (d DriveConfig) YGain() float64 {
	if d.YVelocityPGain == nil {
		return DefaultYVelocityPGain
	}
	return *d.YVelocityPGain
}

func (d DriveConfig) OdometryRate() float64 {
	if d.OdometryRateHz == nil {
		return DefaultOdometryRateHz
	}
	return *d.OdometryRateHz
}

func (d DriveConfig) CmdVelTimeout() float64 {
	if d.CmdVelTimeoutS == nil {
		return DefaultCmdVelTimeoutS
	}
	return *d.CmdVelTimeoutS
}

func (d DriveConfig) PublishTf() bool {
	if d.PublishOdomTf == nil {
		return true
	}
	return *d.PublishOdomTf
}

func (d DriveConfig) OdometryFrame() string {
	if d.OdomFrame == "" {
		return DefaultOdomFrame
	}
	return d.OdomFrame
}

func (d DriveConfig) RobotBaseFrame() string {
	if d.BaseFrame == "" {
		return DefaultBaseFrame
	}
	return d.BaseFrame
}

// --- Topic lookup helpers ---

// GetTopicsByDirection returns topics filtered by direction, with the
// default direction applied to entries that omit it.
func (c *Config) GetTopicsByDirection(direction string) []TopicConfig {
	var result []TopicConfig
	for _, topic := range c.Topics {
		topicDirection := topic.Direction
		if topicDirection == "" {
			topicDirection = c.Defaults.Direction
		}
		if topicDirection == direction {
			withDefaults := topic
			withDefaults.Direction = topicDirection
			result = append(result, withDefaults)
		}
	}
	return result
}

// GetTopicByName returns the topic entry with the given name.
func (c *Config) GetTopicByName(name string) (TopicConfig, bool) {
	for _, topic := range c.Topics {
		if topic.Topic == name {
			if topic.Direction == "" {
				topic.Direction = c.Defaults.Direction
			}
			return topic, true
		}
	}
	return TopicConfig{}, false
}

// CommandTopic returns the inbound velocity command topic, falling back
// to the default name when the config does not map one.
func (c *Config) CommandTopic() string {
	for _, topic := range c.GetTopicsByDirection("INBOUND") {
		if topic.MessageType == "geometry_msgs/msg/Twist" {
			return topic.Topic
		}
	}
	return DefaultCommandTopic
}

// OdometryTopic returns the outbound odometry topic.
func (c *Config) OdometryTopic() string {
	for _, topic := range c.GetTopicsByDirection("OUTBOUND") {
		if topic.MessageType == "nav_msgs/msg/Odometry" {
			return topic.Topic
		}
	}
	return DefaultOdometryTopic
}

// TfTopic returns the outbound transform broadcast topic.
func (c *Config) TfTopic() string {
	for _, topic := range c.GetTopicsByDirection("OUTBOUND") {
		if topic.MessageType == "tf2_msgs/msg/TFMessage" {
			return topic.Topic
		}
	}
	return DefaultTfTopic
}
