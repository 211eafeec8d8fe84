package drive

import "github.com/forcemove/controller/pkg/spatial"

// Vector3 defines a standard 3D vector for wire messages.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// TwistCommand is a command velocity message, matching geometry_msgs/Twist.
// Only linear x/y and angular z are meaningful for a planar platform.
type TwistCommand struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// PoseMsg is a position plus orientation in a named frame.
type PoseMsg struct {
	Position    Vector3            `json:"position"`
	Orientation spatial.Quaternion `json:"orientation"`
}

// OdometryMsg is the wire form of an odometry sample, matching the shape of
// nav_msgs/Odometry: pose and twist with 6x6 covariance matrices stored as
// flat row-major arrays.
type OdometryMsg struct {
	Stamp           float64      `json:"stamp"`
	FrameID         string       `json:"frame_id"`
	ChildFrameID    string       `json:"child_frame_id"`
	Pose            PoseMsg      `json:"pose"`
	PoseCovariance  [36]float64  `json:"pose_covariance"`
	Twist           TwistCommand `json:"twist"`
	TwistCovariance [36]float64  `json:"twist_covariance"`
}

// TransformMsg is a stamped coordinate-frame transform broadcast alongside
// odometry when tf publishing is enabled.
type TransformMsg struct {
	Stamp        float64            `json:"stamp"`
	FrameID      string             `json:"frame_id"`
	ChildFrameID string             `json:"child_frame_id"`
	Translation  Vector3            `json:"translation"`
	Rotation     spatial.Quaternion `json:"rotation"`
}
