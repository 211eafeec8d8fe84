package drive

import (
	"sync"

	"github.com/forcemove/controller/pkg/spatial"
)

// Gains holds the proportional gains of the velocity controller. Immutable
// after construction. A zero gain disables the corresponding axis.
type Gains struct {
	YawVelocityP float64
	XVelocityP   float64
	YVelocityP   float64
}

// commandState is the latest requested velocity and when it arrived, in
// simulation seconds. Written by OnCommand, read by Tick, always under the
// controller mutex.
type commandState struct {
	vx         float64
	vy         float64
	wz         float64
	receivedAt float64
}

// Controller drives a simulated body's velocity toward the commanded
// velocity with proportional feedback. It holds no integrator state: the
// output is a pure function of target, measurement and gains at the
// instant of the call, so steady-state error under constant disturbance
// is expected.
//
// OnCommand may be called concurrently with Tick; one mutex guards the
// command state on both paths.
type Controller struct {
	mu      sync.Mutex
	cmd     commandState
	gains   Gains
	timeout float64
}

// NewController creates a controller with the given gains and command
// timeout in seconds. The initial command is zero velocity received at
// time zero.
func NewController(gains Gains, timeoutSeconds float64) *Controller {
	return &Controller{
		gains:   gains,
		timeout: timeoutSeconds,
	}
}

// OnCommand stores a new target velocity received at the given simulation
// time. Safe to call from the command-ingestion worker while the
// simulation loop is in Tick.
func (c *Controller) OnCommand(vx, vy, wz, now float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cmd = commandState{vx: vx, vy: vy, wz: wz, receivedAt: now}
}

// TargetVelocity resolves the effective target at the given time. A
// command older than the timeout decays to zero velocity: the fail-safe
// stop. The comparison is strict, so a command is still fresh at exactly
// the timeout boundary.
func (c *Controller) TargetVelocity(now float64) (vx, vy, wz float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now-c.cmd.receivedAt > c.timeout {
		return 0.0, 0.0, 0.0
	}
	return c.cmd.vx, c.cmd.vy, c.cmd.wz
}

// Tick computes the proportional force and torque that drive the measured
// velocity toward the effective target. The force is meant to be applied
// in the body's own frame, the torque in the world frame about the
// vertical axis.
func (c *Controller) Tick(now float64, bodyLinVel spatial.Vec2, bodyAngVel float64) (force spatial.Vec2, torque float64) {
	vx, vy, wz := c.TargetVelocity(now)

	torque = (wz - bodyAngVel) * c.gains.YawVelocityP
	force = spatial.Vec2{
		X: (vx - bodyLinVel.X) * c.gains.XVelocityP,
		Y: (vy - bodyLinVel.Y) * c.gains.YVelocityP,
	}
	return force, torque
}

// Gains returns the controller gains.
func (c *Controller) Gains() Gains {
	return c.gains
}

// Timeout returns the command timeout in seconds.
func (c *Controller) Timeout() float64 {
	return c.timeout
}
