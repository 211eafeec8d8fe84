package sim

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/forcemove/controller/pkg/spatial"
)

// Body is a planar rigid body. Forces accumulate between steps: callers
// apply forces and torques, then Step integrates them and clears the
// accumulators.
type Body struct {
	name    string
	mass    float64
	inertia float64

	pose   spatial.Transform2D
	linVel spatial.Vec2 // body frame
	angVel float64      // world frame, about the vertical axis

	force  spatial.Vec2 // accumulated, body frame
	torque float64      // accumulated, world frame

	linearDamping  float64
	angularDamping float64
}

// BodyParams configures a rigid body added to the world.
type BodyParams struct {
	Name           string
	Mass           float64
	Inertia        float64
	LinearDamping  float64
	AngularDamping float64
}

// Name returns the body name.
func (b *Body) Name() string {
	return b.name
}

// ApplyRelativeForce adds a force expressed in the body's own frame.
// It takes effect on the next Step.
func (b *Body) ApplyRelativeForce(f spatial.Vec2) {
	b.force = b.force.Add(f)
}

// ApplyTorque adds a world-frame torque about the vertical axis.
// It takes effect on the next Step.
func (b *Body) ApplyTorque(tau float64) {
	b.torque += tau
}

// RelativeLinearVel returns the body's linear velocity in its own frame.
func (b *Body) RelativeLinearVel() spatial.Vec2 {
	return b.linVel
}

// WorldAngularVel returns the angular velocity about the vertical axis.
func (b *Body) WorldAngularVel() float64 {
	return b.angVel
}

// WorldPose returns the body's pose in the world frame.
func (b *Body) WorldPose() spatial.Transform2D {
	return b.pose
}

// SetVelocity overrides the body's velocity state. Intended for test
// setup and scenario initialization.
func (b *Body) SetVelocity(linVel spatial.Vec2, angVel float64) {
	b.linVel = linVel
	b.angVel = angVel
}

// step integrates the accumulated force and torque over dt using
// semi-implicit Euler: velocities first, then pose from the new
// velocities.
func (b *Body) step(dt float64) {
	accel := b.force.Scale(1.0 / b.mass)
	b.linVel = b.linVel.Add(accel.Scale(dt))
	b.linVel = b.linVel.Add(b.linVel.Scale(-b.linearDamping * dt))

	b.angVel += (b.torque / b.inertia) * dt
	b.angVel -= b.angVel * b.angularDamping * dt

	b.pose.Theta += b.angVel * dt
	worldStep := b.linVel.Rotate(b.pose.Theta).Scale(dt)
	b.pose.Translation = b.pose.Translation.Add(worldStep)

	b.force = spatial.Vec2{}
	b.torque = 0.0
}

// World holds the simulated bodies and the simulation clock. Step and all
// body access belong to the single simulation-loop goroutine; only SimTime
// may be read from other goroutines.
type World struct {
	bodies  map[string]*Body
	simTime atomic.Uint64 // float64 bits
}

// NewWorld creates an empty world with the clock at zero.
func NewWorld() *World {
	return &World{
		bodies: make(map[string]*Body),
	}
}

// AddBody creates a body in the world. Mass and inertia must be positive.
func (w *World) AddBody(params BodyParams) (*Body, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("body name cannot be empty")
	}
	if params.Mass <= 0 {
		return nil, fmt.Errorf("body '%s' mass must be positive, got %f", params.Name, params.Mass)
	}
	if params.Inertia <= 0 {
		return nil, fmt.Errorf("body '%s' inertia must be positive, got %f", params.Name, params.Inertia)
	}
	if _, exists := w.bodies[params.Name]; exists {
		return nil, fmt.Errorf("body '%s' already exists", params.Name)
	}

	body := &Body{
		name:           params.Name,
		mass:           params.Mass,
		inertia:        params.Inertia,
		linearDamping:  params.LinearDamping,
		angularDamping: params.AngularDamping,
		pose:           spatial.Identity(),
	}
	w.bodies[params.Name] = body
	return body, nil
}

// Body looks up a body by name. A missing body is a setup error and fatal
// to controller initialization.
func (w *World) Body(name string) (*Body, error) {
	body, exists := w.bodies[name]
	if !exists {
		return nil, fmt.Errorf("body '%s' does not exist in the world", name)
	}
	return body, nil
}

// Step advances the simulation clock and integrates all bodies over dt.
func (w *World) Step(dt float64) {
	w.simTime.Store(math.Float64bits(w.SimTime() + dt))
	for _, body := range w.bodies {
		body.step(dt)
	}
}

// SimTime returns the current simulation time in seconds. Safe to call
// from any goroutine.
func (w *World) SimTime() float64 {
	return math.Float64frombits(w.simTime.Load())
}
