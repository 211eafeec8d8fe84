package spatial

import "math"

// Vec2 is a planar vector.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the component-wise sum of v and o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Rotate returns v rotated counter-clockwise by theta radians.
func (v Vec2) Rotate(theta float64) Vec2 {
	sin, cos := math.Sincos(theta)
	return Vec2{
		X: v.X*cos - v.Y*sin,
		Y: v.X*sin + v.Y*cos,
	}
}

// Transform2D is a planar rigid transform: a rotation about the vertical
// axis followed by a translation.
type Transform2D struct {
	Theta       float64 `json:"theta"`
	Translation Vec2    `json:"translation"`
}

// Identity returns the identity transform.
func Identity() Transform2D {
	return Transform2D{}
}

// Compose returns t * o, i.e. o applied in the local frame of t.
// This is the standard body-frame composition used for dead reckoning:
// the right-hand operand is the per-step motion delta expressed in the
// frame of the accumulated transform.
func (t Transform2D) Compose(o Transform2D) Transform2D {
	return Transform2D{
		Theta:       t.Theta + o.Theta,
		Translation: t.Translation.Add(o.Translation.Rotate(t.Theta)),
	}
}

// Quaternion is a unit quaternion, used when a transform crosses the wire
// in a 3D message format.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// QuaternionFromYaw builds the quaternion for a pure rotation about the
// vertical axis.
func QuaternionFromYaw(yaw float64) Quaternion {
	sin, cos := math.Sincos(yaw * 0.5)
	return Quaternion{Z: sin, W: cos}
}

// YawFromQuaternion extracts the rotation about the vertical axis. Only
// valid for quaternions produced by QuaternionFromYaw or equivalent planar
// rotations.
func YawFromQuaternion(q Quaternion) float64 {
	return 2.0 * math.Atan2(q.Z, q.W)
}
