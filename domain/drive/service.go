package drive

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/forcemove/controller/domain/diagnostic"
	"github.com/forcemove/controller/pkg/config"
	customlog "github.com/forcemove/controller/pkg/log"
	"github.com/forcemove/controller/pkg/processing"
	"github.com/forcemove/controller/pkg/sim"
	"github.com/forcemove/controller/pkg/spatial"
)

// Sink accepts outbound odometry and transform messages. Implemented by
// the transport layer.
type Sink interface {
	PublishOdometry(msg OdometryMsg) error
	PublishTransform(msg TransformMsg) error
}

// Service ties the velocity controller and odometry integrator to the
// simulated body and the transport layer.
//
// Two execution contexts drive it: the simulation loop calls Update once
// per step, and the command ingestion pool worker calls the command
// processor. Only the controller's command state is shared between them;
// everything else belongs to the simulation loop.
type Service struct {
	logger     customlog.Logger
	controller *Controller
	integrator *OdometryIntegrator
	world      *sim.World
	body       *sim.Body
	pool       *processing.Pool
	sink       Sink
	diag       *diagnostic.Service

	odomFrame    string
	baseFrame    string
	publishTf    bool
	commandTopic string

	lastMu   sync.RWMutex
	lastOdom *OdometryMsg
}

// NewService creates the drive service. The configured body must already
// exist in the world; a missing body is fatal, since a half-initialized
// controller would apply forces without safety bounds.
func NewService(
	cfg *config.Config,
	world *sim.World,
	pool *processing.Pool,
	sink Sink,
	diag *diagnostic.Service,
	logger customlog.Logger,
) (*Service, error) {
	body, err := world.Body(cfg.Body.Name)
	if err != nil {
		return nil, fmt.Errorf("drive service cannot start: %w", err)
	}

	gains := Gains{
		YawVelocityP: cfg.Drive.YawGain(),
		XVelocityP:   cfg.Drive.XGain(),
		YVelocityP:   cfg.Drive.YGain(),
	}

	logger.Infof("Drive controller using gains: yaw=%.1f x=%.1f y=%.1f",
		gains.YawVelocityP, gains.XVelocityP, gains.YVelocityP)
	logger.Infof("Drive controller body '%s', odometry %.1f Hz, command timeout %.3fs, frames %s -> %s (tf=%v)",
		cfg.Body.Name, cfg.Drive.OdometryRate(), cfg.Drive.CmdVelTimeout(),
		cfg.Drive.OdometryFrame(), cfg.Drive.RobotBaseFrame(), cfg.Drive.PublishTf())

	return &Service{
		logger:       logger,
		controller:   NewController(gains, cfg.Drive.CmdVelTimeout()),
		integrator:   NewOdometryIntegrator(cfg.Drive.OdometryRate(), world.SimTime()),
		world:        world,
		body:         body,
		pool:         pool,
		sink:         sink,
		diag:         diag,
		odomFrame:    cfg.Drive.OdometryFrame(),
		baseFrame:    cfg.Drive.RobotBaseFrame(),
		publishTf:    cfg.Drive.PublishTf(),
		commandTopic: cfg.CommandTopic(),
	}, nil
}

// Start begins command ingestion.
func (s *Service) Start() {
	s.pool.SetProcessor(s.processCommand)
	s.pool.Start()
	s.logger.Infof("Drive service started")
}

// Stop halts command ingestion and blocks until the worker has exited.
// After Stop returns, no command callback will run again.
func (s *Service) Stop() {
	s.pool.Stop()
	s.logger.Infof("Drive service stopped")
}

// Update is the per-simulation-step entry point, called by the simulation
// loop before each World.Step. It applies the control force/torque for
// this step and publishes odometry when the publish interval has elapsed.
func (s *Service) Update() {
	now := s.world.SimTime()
	linVel := s.body.RelativeLinearVel()
	angVel := s.body.WorldAngularVel()

	force, torque := s.controller.Tick(now, linVel, angVel)
	s.body.ApplyRelativeForce(force)
	s.body.ApplyTorque(torque)

	if sample, ok := s.integrator.MaybePublish(now, linVel, angVel); ok {
		s.publishSample(sample)
	}
}

// EnqueueRawCommand feeds a raw twist payload into the ingestion pool.
// Safe to call from any goroutine; never blocks.
func (s *Service) EnqueueRawCommand(topic string, payload []byte) bool {
	return s.pool.Enqueue(&processing.InboundMessage{
		Topic:       topic,
		Payload:     payload,
		TimestampNs: time.Now().UnixNano(),
	})
}

// EnqueueCommand feeds a parsed twist command into the ingestion pool.
func (s *Service) EnqueueCommand(cmd TwistCommand) bool {
	payload, err := json.Marshal(cmd)
	if err != nil {
		s.logger.Errorf("Failed to marshal twist command: %v", err)
		return false
	}
	return s.EnqueueRawCommand(s.commandTopic, payload)
}

// processCommand runs on the ingestion pool worker. It parses the twist
// payload and overwrites the controller's command state.
func (s *Service) processCommand(msg *processing.InboundMessage) error {
	var cmd TwistCommand
	if err := json.Unmarshal(msg.Payload, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal twist command: %w", err)
	}

	now := s.world.SimTime()
	s.controller.OnCommand(cmd.Linear.X, cmd.Linear.Y, cmd.Angular.Z, now)
	if s.diag != nil {
		s.diag.RecordCommand(now)
	}

	s.logger.Debugf("Command: vx=%.3f vy=%.3f wz=%.3f (t=%.3f)",
		cmd.Linear.X, cmd.Linear.Y, cmd.Angular.Z, now)
	return nil
}

// TargetVelocity returns the currently effective target velocity, after
// the timeout rule.
func (s *Service) TargetVelocity() (vx, vy, wz float64) {
	return s.controller.TargetVelocity(s.world.SimTime())
}

// LastOdometry returns the most recently published odometry message.
func (s *Service) LastOdometry() (OdometryMsg, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()

	if s.lastOdom == nil {
		return OdometryMsg{}, false
	}
	return *s.lastOdom, true
}

func (s *Service) publishSample(sample *Sample) {
	msg := s.sampleToMsg(sample)

	s.lastMu.Lock()
	s.lastOdom = &msg
	s.lastMu.Unlock()

	if s.diag != nil {
		s.diag.RecordOdometryPublish(sample.Stamp)
	}

	if err := s.sink.PublishOdometry(msg); err != nil {
		s.logger.Errorf("Failed to publish odometry: %v", err)
	}

	if s.publishTf {
		tf := TransformMsg{
			Stamp:        sample.Stamp,
			FrameID:      s.odomFrame,
			ChildFrameID: s.baseFrame,
			Translation: Vector3{
				X: sample.Pose.Translation.X,
				Y: sample.Pose.Translation.Y,
			},
			Rotation: spatial.QuaternionFromYaw(sample.Pose.Theta),
		}
		if err := s.sink.PublishTransform(tf); err != nil {
			s.logger.Errorf("Failed to publish transform: %v", err)
		}
	}
}

func (s *Service) sampleToMsg(sample *Sample) OdometryMsg {
	return OdometryMsg{
		Stamp:        sample.Stamp,
		FrameID:      s.odomFrame,
		ChildFrameID: s.baseFrame,
		Pose: PoseMsg{
			Position: Vector3{
				X: sample.Pose.Translation.X,
				Y: sample.Pose.Translation.Y,
			},
			Orientation: spatial.QuaternionFromYaw(sample.Pose.Theta),
		},
		PoseCovariance: sample.PoseCovariance,
		Twist: TwistCommand{
			Linear:  Vector3{X: sample.TwistLinear.X, Y: sample.TwistLinear.Y},
			Angular: Vector3{Z: sample.TwistAngular},
		},
		TwistCovariance: sample.TwistCovariance,
	}
}
