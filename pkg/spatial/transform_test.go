package spatial

import (
	"math"
	"testing"
)

const tol = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tol
}

func TestVec2Rotate(t *testing.T) {
	v := Vec2{X: 1.0, Y: 0.0}

	r := v.Rotate(math.Pi / 2)
	if !almostEqual(r.X, 0.0) || !almostEqual(r.Y, 1.0) {
		t.Errorf("Expected (0,1) after 90 degree rotation, got (%f,%f)", r.X, r.Y)
	}

	r = v.Rotate(math.Pi)
	if !almostEqual(r.X, -1.0) || !almostEqual(r.Y, 0.0) {
		t.Errorf("Expected (-1,0) after 180 degree rotation, got (%f,%f)", r.X, r.Y)
	}
}

func TestComposeIdentity(t *testing.T) {
	a := Transform2D{Theta: 0.5, Translation: Vec2{X: 1.0, Y: 2.0}}

	left := Identity().Compose(a)
	if left != a {
		t.Errorf("Identity.Compose(a) should equal a, got %+v", left)
	}

	right := a.Compose(Identity())
	if right != a {
		t.Errorf("a.Compose(Identity) should equal a, got %+v", right)
	}
}

func TestComposeLocalFrame(t *testing.T) {
	// A transform rotated 90 degrees: a local +x step must come out as
	// a global +y step.
	a := Transform2D{Theta: math.Pi / 2}
	step := Transform2D{Translation: Vec2{X: 1.0}}

	c := a.Compose(step)
	if !almostEqual(c.Translation.X, 0.0) || !almostEqual(c.Translation.Y, 1.0) {
		t.Errorf("Expected translation (0,1), got (%f,%f)", c.Translation.X, c.Translation.Y)
	}
	if !almostEqual(c.Theta, math.Pi/2) {
		t.Errorf("Expected theta pi/2, got %f", c.Theta)
	}
}

func TestQuaternionYawRoundTrip(t *testing.T) {
	for _, yaw := range []float64{0.0, 0.5, -1.2, math.Pi / 2} {
		q := QuaternionFromYaw(yaw)
		got := YawFromQuaternion(q)
		if !almostEqual(got, yaw) {
			t.Errorf("Yaw round trip for %f gave %f", yaw, got)
		}
	}
}
