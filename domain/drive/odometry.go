package drive

import (
	"math"

	"github.com/forcemove/controller/pkg/spatial"
)

const (
	// Below this angular rate the platform is treated as driving straight:
	// the arc formula is ill-conditioned near zero curvature.
	yawEpsilon = 1e-4

	// Covariance for axes the platform cannot move in (z, roll, pitch).
	unconstrainedCov = 1e12
)

// Sample is one dead-reckoned odometry estimate: the accumulated pose, the
// body velocity it was produced from, and the fixed covariance model.
type Sample struct {
	Stamp           float64
	Pose            spatial.Transform2D
	TwistLinear     spatial.Vec2
	TwistAngular    float64
	PoseCovariance  [36]float64
	TwistCovariance [36]float64
}

// OdometryIntegrator maintains a dead-reckoned pose by composing per-step
// rigid motion deltas onto an accumulated transform, at a bounded publish
// rate. It is only touched from the simulation-step context and needs no
// lock of its own.
type OdometryIntegrator struct {
	rate        float64
	lastPublish float64
	pose        spatial.Transform2D
}

// NewOdometryIntegrator creates an integrator publishing at most rate Hz,
// starting from the identity pose. now anchors the first publish interval.
func NewOdometryIntegrator(rate float64, now float64) *OdometryIntegrator {
	return &OdometryIntegrator{
		rate:        rate,
		lastPublish: now,
		pose:        spatial.Identity(),
	}
}

// Pose returns the accumulated odometry transform.
func (o *OdometryIntegrator) Pose() spatial.Transform2D {
	return o.pose
}

// MaybePublish advances the dead-reckoned pose and produces a sample if at
// least 1/rate seconds have elapsed since the previous publish. Otherwise
// it is a no-op: no state changes, no pending work accumulates. A rate of
// zero disables publishing entirely.
func (o *OdometryIntegrator) MaybePublish(now float64, bodyLinVel spatial.Vec2, bodyAngVel float64) (*Sample, bool) {
	if o.rate <= 0.0 {
		return nil, false
	}
	dt := now - o.lastPublish
	if dt <= 1.0/o.rate {
		return nil, false
	}

	o.pose = o.pose.Compose(motionDelta(bodyLinVel.X, bodyLinVel.Y, bodyAngVel, dt))
	o.lastPublish = now

	sample := &Sample{
		Stamp:           now,
		Pose:            o.pose,
		TwistLinear:     bodyLinVel,
		TwistAngular:    bodyAngVel,
		PoseCovariance:  poseCovariance(bodyAngVel),
		TwistCovariance: twistCovariance(bodyAngVel),
	}
	return sample, true
}

// motionDelta is the rigid motion over one step under constant velocity,
// expressed in the body frame at the start of the step. Straight-line
// motion is exact; turning motion uses a first-order chord approximation
// of the arc, rotating the translation by the full step rotation rather
// than composing the exact arc length. The approximation error is small
// for small dt and is kept deliberately.
func motionDelta(vx, vy, wz, dt float64) spatial.Transform2D {
	lx := vx * dt
	ly := vy * dt

	if math.Abs(wz) < yawEpsilon {
		return spatial.Transform2D{Translation: spatial.Vec2{X: lx, Y: ly}}
	}

	theta := wz * dt
	sin, cos := math.Sincos(theta)
	return spatial.Transform2D{
		Theta: theta,
		Translation: spatial.Vec2{
			X: lx*cos - ly*sin,
			Y: lx*sin + ly*cos,
		},
	}
}

// yawCovariance drops sharply while turning: dead-reckoned heading drifts
// much faster under rotation.
func yawCovariance(angVel float64) float64 {
	if math.Abs(angVel) < yawEpsilon {
		return 0.01
	}
	return 100.0
}

func poseCovariance(angVel float64) [36]float64 {
	var cov [36]float64
	cov[0] = 0.001
	cov[7] = 0.001
	cov[14] = unconstrainedCov
	cov[21] = unconstrainedCov
	cov[28] = unconstrainedCov
	cov[35] = yawCovariance(angVel)
	return cov
}

func twistCovariance(angVel float64) [36]float64 {
	var cov [36]float64
	cov[0] = 0.001
	cov[7] = 0.001
	cov[14] = 0.001
	cov[21] = unconstrainedCov
	cov[28] = unconstrainedCov
	cov[35] = yawCovariance(angVel)
	return cov
}
