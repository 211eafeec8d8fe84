package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "drive.yaml", `
version: "1.0"
config_id: "test-config"
robot_id: "robot-1"
drive:
  yaw_velocity_p_gain: 50.0
  x_velocity_p_gain: 2000.0
  odometry_rate_hz: 10.0
  cmd_vel_timeout_s: 0.5
  publish_odom_tf: false
  odom_frame: "map"
body:
  name: "chassis"
  mass: 42.0
  inertia: 3.5
topics:
  - topic: "cmd.twist"
    message_type: "geometry_msgs/msg/Twist"
    direction: "INBOUND"
  - topic: "state.odom"
    message_type: "nav_msgs/msg/Odometry"
defaults:
  direction: "OUTBOUND"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.ConfigID != "test-config" || cfg.RobotID != "robot-1" {
		t.Errorf("unexpected identity fields: %s / %s", cfg.ConfigID, cfg.RobotID)
	}
	if cfg.Body.Name != "chassis" || cfg.Body.Mass != 42.0 || cfg.Body.Inertia != 3.5 {
		t.Errorf("unexpected body config: %+v", cfg.Body)
	}

	if got := cfg.Drive.YawGain(); got != 50.0 {
		t.Errorf("YawGain = %f, want 50", got)
	}
	if got := cfg.Drive.XGain(); got != 2000.0 {
		t.Errorf("XGain = %f, want 2000", got)
	}
	// y gain omitted: default applies
	if got := cfg.Drive.YGain(); got != DefaultYVelocityPGain {
		t.Errorf("YGain = %f, want default %f", got, DefaultYVelocityPGain)
	}
	if got := cfg.Drive.OdometryRate(); got != 10.0 {
		t.Errorf("OdometryRate = %f, want 10", got)
	}
	if got := cfg.Drive.CmdVelTimeout(); got != 0.5 {
		t.Errorf("CmdVelTimeout = %f, want 0.5", got)
	}
	if cfg.Drive.PublishTf() {
		t.Error("PublishTf should be false when explicitly disabled")
	}
	if got := cfg.Drive.OdometryFrame(); got != "map" {
		t.Errorf("OdometryFrame = %s, want map", got)
	}
	if got := cfg.Drive.RobotBaseFrame(); got != DefaultBaseFrame {
		t.Errorf("RobotBaseFrame = %s, want default %s", got, DefaultBaseFrame)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDriveConfigExplicitZeroIsNotDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "drive.yaml", `
config_id: "zeros"
drive:
  x_velocity_p_gain: 0.0
  odometry_rate_hz: 0.0
body:
  name: "chassis"
  mass: 1.0
  inertia: 1.0
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Zero is a meaningful setting: it disables the axis or the publisher,
	// it must not be replaced by the default.
	if got := cfg.Drive.XGain(); got != 0.0 {
		t.Errorf("explicit zero gain replaced by default: %f", got)
	}
	if got := cfg.Drive.OdometryRate(); got != 0.0 {
		t.Errorf("explicit zero rate replaced by default: %f", got)
	}
	if cfg.Drive.YGain() != DefaultYVelocityPGain {
		t.Errorf("omitted gain should still default")
	}
}

func TestDriveConfigDefaultsWhenEmpty(t *testing.T) {
	var d DriveConfig
	if d.YawGain() != DefaultYawVelocityPGain ||
		d.XGain() != DefaultXVelocityPGain ||
		d.YGain() != DefaultYVelocityPGain {
		t.Error("empty DriveConfig should yield default gains")
	}
	if d.OdometryRate() != DefaultOdometryRateHz {
		t.Error("empty DriveConfig should yield default odometry rate")
	}
	if d.CmdVelTimeout() != DefaultCmdVelTimeoutS {
		t.Error("empty DriveConfig should yield default timeout")
	}
	if !d.PublishTf() {
		t.Error("transform broadcast should default to enabled")
	}
}

func TestTopicHelpers(t *testing.T) {
	cfg := &Config{
		Topics: []TopicConfig{
			{Topic: "cmd.twist", MessageType: "geometry_msgs/msg/Twist", Direction: "INBOUND"},
			{Topic: "state.odom", MessageType: "nav_msgs/msg/Odometry"},
			{Topic: "state.tf", MessageType: "tf2_msgs/msg/TFMessage"},
		},
		Defaults: DefaultsConfig{Direction: "OUTBOUND"},
	}

	if got := cfg.CommandTopic(); got != "cmd.twist" {
		t.Errorf("CommandTopic = %s, want cmd.twist", got)
	}
	if got := cfg.OdometryTopic(); got != "state.odom" {
		t.Errorf("OdometryTopic = %s, want state.odom", got)
	}
	if got := cfg.TfTopic(); got != "state.tf" {
		t.Errorf("TfTopic = %s, want state.tf", got)
	}

	outbound := cfg.GetTopicsByDirection("OUTBOUND")
	if len(outbound) != 2 {
		t.Fatalf("expected 2 outbound topics, got %d", len(outbound))
	}
	for _, topic := range outbound {
		if topic.Direction != "OUTBOUND" {
			t.Errorf("default direction not applied to %s", topic.Topic)
		}
	}

	topic, found := cfg.GetTopicByName("state.odom")
	if !found || topic.Direction != "OUTBOUND" {
		t.Errorf("GetTopicByName(state.odom) = %+v, found=%v", topic, found)
	}
	if _, found := cfg.GetTopicByName("missing"); found {
		t.Error("expected lookup miss for unknown topic")
	}
}

func TestTopicHelpersFallBackToDefaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.CommandTopic(); got != DefaultCommandTopic {
		t.Errorf("CommandTopic fallback = %s, want %s", got, DefaultCommandTopic)
	}
	if got := cfg.OdometryTopic(); got != DefaultOdometryTopic {
		t.Errorf("OdometryTopic fallback = %s, want %s", got, DefaultOdometryTopic)
	}
	if got := cfg.TfTopic(); got != DefaultTfTopic {
		t.Errorf("TfTopic fallback = %s, want %s", got, DefaultTfTopic)
	}
}

const validBootstrapYAML = `
logging:
  level: "debug"
server:
  http_port: 9090
zeromq:
  request_bind_address: "tcp://*:5559"
  publish_bind_address: "tcp://*:5560"
  command_bind_address: "tcp://*:5561"
  message_buffer_size: 500
data:
  directory: "config"
  drive_config_file: "drive.yaml"
sim:
  step_seconds: 0.001
  realtime: true
`

func TestLoadBootstrapConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "controller_config.yaml", validBootstrapYAML)

	cfg, err := LoadBootstrapConfig(dir)
	if err != nil {
		t.Fatalf("LoadBootstrapConfig failed: %v", err)
	}

	if cfg.Logging.Level != "debug" || cfg.Server.HTTPPort != 9090 {
		t.Errorf("unexpected logging/server config: %+v %+v", cfg.Logging, cfg.Server)
	}
	if cfg.ZeroMQ.RequestBindAddress != "tcp://*:5559" {
		t.Errorf("unexpected zeromq config: %+v", cfg.ZeroMQ)
	}
	if cfg.Sim.StepSeconds != 0.001 || !cfg.Sim.Realtime {
		t.Errorf("unexpected sim config: %+v", cfg.Sim)
	}

	// Omitted processing settings get their defaults.
	if cfg.Processing.CommandWorkers != 1 {
		t.Errorf("CommandWorkers default = %d, want 1", cfg.Processing.CommandWorkers)
	}
	if cfg.Processing.CommandQueueSize != 100 {
		t.Errorf("CommandQueueSize default = %d, want 100", cfg.Processing.CommandQueueSize)
	}
}

func TestLoadBootstrapConfigMissingRequired(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing command bind", `
zeromq:
  request_bind_address: "tcp://*:5559"
  publish_bind_address: "tcp://*:5560"
data:
  directory: "config"
  drive_config_file: "drive.yaml"
sim:
  step_seconds: 0.001
`},
		{"missing data directory", `
zeromq:
  request_bind_address: "tcp://*:5559"
  publish_bind_address: "tcp://*:5560"
  command_bind_address: "tcp://*:5561"
data:
  drive_config_file: "drive.yaml"
sim:
  step_seconds: 0.001
`},
		{"zero sim step", `
zeromq:
  request_bind_address: "tcp://*:5559"
  publish_bind_address: "tcp://*:5560"
  command_bind_address: "tcp://*:5561"
data:
  directory: "config"
  drive_config_file: "drive.yaml"
sim:
  step_seconds: 0.0
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "controller_config.yaml", tc.yaml)
			if _, err := LoadBootstrapConfig(dir); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadBootstrapConfigMissingFile(t *testing.T) {
	if _, err := LoadBootstrapConfig(t.TempDir()); err == nil {
		t.Fatal("expected error for missing bootstrap config")
	}
}
