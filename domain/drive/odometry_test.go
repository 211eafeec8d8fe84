package drive

import (
	"math"
	"testing"

	"github.com/forcemove/controller/pkg/spatial"
)

const odomTol = 1e-9

func TestMaybePublishBeforeInterval(t *testing.T) {
	integ := NewOdometryIntegrator(20.0, 0.0)

	// 1/rate = 0.05s; nothing should happen before that has elapsed.
	sample, ok := integ.MaybePublish(0.04, spatial.Vec2{X: 1.0}, 0.0)
	if ok || sample != nil {
		t.Fatalf("expected no publish at dt=0.04 with rate 20")
	}
	if pose := integ.Pose(); pose.Translation.X != 0 || pose.Translation.Y != 0 || pose.Theta != 0 {
		t.Errorf("pose mutated by a skipped publish: %+v", pose)
	}

	// The skipped call must not have consumed the interval either.
	if _, ok := integ.MaybePublish(0.041, spatial.Vec2{X: 1.0}, 0.0); ok {
		t.Errorf("skipped publish advanced the interval anchor")
	}
}

func TestMaybePublishRateZeroDisables(t *testing.T) {
	integ := NewOdometryIntegrator(0.0, 0.0)
	if _, ok := integ.MaybePublish(1000.0, spatial.Vec2{X: 1.0}, 0.5); ok {
		t.Errorf("rate 0 should disable odometry publishing")
	}
}

func TestStraightLineIntegration(t *testing.T) {
	integ := NewOdometryIntegrator(20.0, 0.0)

	sample, ok := integ.MaybePublish(1.0, spatial.Vec2{X: 1.0}, 0.0)
	if !ok {
		t.Fatal("expected a publish after 1s at 20Hz")
	}

	if math.Abs(sample.Pose.Translation.X-1.0) > odomTol {
		t.Errorf("expected x=1 after 1s at 1 m/s, got %f", sample.Pose.Translation.X)
	}
	if math.Abs(sample.Pose.Translation.Y) > odomTol {
		t.Errorf("expected y=0, got %f", sample.Pose.Translation.Y)
	}
	if sample.Pose.Theta != 0 {
		t.Errorf("expected no rotation, got %f", sample.Pose.Theta)
	}
}

func TestStraightLineKeepsLateralVelocity(t *testing.T) {
	integ := NewOdometryIntegrator(20.0, 0.0)

	// Holonomic platform strafing: vy contributes even when not turning.
	sample, ok := integ.MaybePublish(2.0, spatial.Vec2{X: 0.5, Y: 0.25}, 0.0)
	if !ok {
		t.Fatal("expected a publish")
	}
	if math.Abs(sample.Pose.Translation.X-1.0) > odomTol {
		t.Errorf("expected x=1.0, got %f", sample.Pose.Translation.X)
	}
	if math.Abs(sample.Pose.Translation.Y-0.5) > odomTol {
		t.Errorf("expected y=0.5, got %f", sample.Pose.Translation.Y)
	}
}

func TestTurningIntegration(t *testing.T) {
	integ := NewOdometryIntegrator(20.0, 0.0)

	// Quarter turn over one second while moving forward: the chord model
	// rotates the forward displacement by the full step rotation.
	wz := math.Pi / 2
	sample, ok := integ.MaybePublish(1.0, spatial.Vec2{X: 1.0}, wz)
	if !ok {
		t.Fatal("expected a publish")
	}

	if math.Abs(sample.Pose.Theta-math.Pi/2) > odomTol {
		t.Errorf("expected theta=pi/2, got %f", sample.Pose.Theta)
	}
	if math.Abs(sample.Pose.Translation.X) > odomTol {
		t.Errorf("expected x~0 for a quarter-turn chord, got %f", sample.Pose.Translation.X)
	}
	if math.Abs(sample.Pose.Translation.Y-1.0) > odomTol {
		t.Errorf("expected y~1 for a quarter-turn chord, got %f", sample.Pose.Translation.Y)
	}
}

func TestDeltasComposeInBodyFrame(t *testing.T) {
	integ := NewOdometryIntegrator(1.0, 0.0)

	// First interval: rotate in place by pi/2.
	if _, ok := integ.MaybePublish(1.5, spatial.Vec2{}, math.Pi/3); !ok {
		t.Fatal("expected first publish")
	}
	theta := integ.Pose().Theta

	// Second interval: drive straight forward. The displacement must land
	// along the rotated heading, not the world x axis.
	sample, ok := integ.MaybePublish(3.0, spatial.Vec2{X: 1.0}, 0.0)
	if !ok {
		t.Fatal("expected second publish")
	}

	dt := 1.5
	wantX := dt * math.Cos(theta)
	wantY := dt * math.Sin(theta)
	if math.Abs(sample.Pose.Translation.X-wantX) > odomTol ||
		math.Abs(sample.Pose.Translation.Y-wantY) > odomTol {
		t.Errorf("expected displacement along heading (%f,%f), got (%f,%f)",
			wantX, wantY, sample.Pose.Translation.X, sample.Pose.Translation.Y)
	}
}

func TestCovarianceLayout(t *testing.T) {
	integ := NewOdometryIntegrator(20.0, 0.0)

	sample, ok := integ.MaybePublish(1.0, spatial.Vec2{X: 1.0}, 0.0)
	if !ok {
		t.Fatal("expected a publish")
	}

	pc := sample.PoseCovariance
	if pc[0] != 0.001 || pc[7] != 0.001 {
		t.Errorf("expected x/y pose covariance 0.001, got %f/%f", pc[0], pc[7])
	}
	if pc[14] != 1e12 || pc[21] != 1e12 || pc[28] != 1e12 {
		t.Errorf("expected unconstrained z/roll/pitch pose covariance, got %f/%f/%f", pc[14], pc[21], pc[28])
	}
	if pc[35] != 0.01 {
		t.Errorf("expected yaw pose covariance 0.01 while driving straight, got %f", pc[35])
	}

	tc := sample.TwistCovariance
	if tc[0] != 0.001 || tc[7] != 0.001 || tc[14] != 0.001 {
		t.Errorf("expected linear twist covariance 0.001, got %f/%f/%f", tc[0], tc[7], tc[14])
	}
	if tc[21] != 1e12 || tc[28] != 1e12 {
		t.Errorf("expected unconstrained roll/pitch twist covariance, got %f/%f", tc[21], tc[28])
	}

	// Every off-diagonal entry stays zero.
	for i, v := range pc {
		if i%7 != 0 && v != 0 {
			t.Fatalf("unexpected off-diagonal pose covariance at %d: %f", i, v)
		}
	}
}

func TestYawCovarianceThreshold(t *testing.T) {
	cases := []struct {
		wz   float64
		want float64
	}{
		{0.0, 0.01},
		{0.00009, 0.01},
		{-0.00009, 0.01},
		{0.0001, 100.0}, // at the threshold counts as turning
		{-0.5, 100.0},
	}
	for _, tc := range cases {
		if got := yawCovariance(tc.wz); got != tc.want {
			t.Errorf("yawCovariance(%g) = %g, want %g", tc.wz, got, tc.want)
		}
	}
}

func TestMotionDeltaSmallYawUsesStraightModel(t *testing.T) {
	d := motionDelta(1.0, 0.0, 5e-5, 0.1)
	if d.Theta != 0 {
		t.Errorf("expected straight-line model below the yaw threshold, got theta=%f", d.Theta)
	}
	if d.Translation.X != 0.1 || d.Translation.Y != 0 {
		t.Errorf("expected delta (0.1, 0), got (%f, %f)", d.Translation.X, d.Translation.Y)
	}
}
