package geometry

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ReferenceFrame is an origin pose with an optional origin velocity.
// A static frame reports zero origin velocity, so velocities expressed in
// it are absolute rather than relative to a moving observer.
type ReferenceFrame struct {
	origin   r3.Vec
	attitude quat.Number
	velocity r3.Vec
	static   bool
}

// World is the static identity frame.
func World() ReferenceFrame {
	return ReferenceFrame{attitude: Identity, static: true}
}

// NewReferenceFrame builds a moving frame. The attitude is normalised and
// rejected with a *GeometryError when it is not close to unit norm.
func NewReferenceFrame(origin r3.Vec, attitude quat.Number, velocity r3.Vec) (ReferenceFrame, error) {
	q, err := NormalizeAttitude(attitude)
	if err != nil {
		return ReferenceFrame{}, err
	}
	return ReferenceFrame{origin: origin, attitude: q, velocity: velocity}, nil
}

// NewStaticFrame builds a frame with zero origin velocity.
func NewStaticFrame(origin r3.Vec, attitude quat.Number) (ReferenceFrame, error) {
	f, err := NewReferenceFrame(origin, attitude, r3.Vec{})
	if err != nil {
		return ReferenceFrame{}, err
	}
	return f.Static(), nil
}

// Static returns a copy of f with its velocity forced to zero.
func (f ReferenceFrame) Static() ReferenceFrame {
	f.velocity = r3.Vec{}
	f.static = true
	return f
}

func (f ReferenceFrame) IsStatic() bool        { return f.static }
func (f ReferenceFrame) Origin() r3.Vec        { return f.origin }
func (f ReferenceFrame) Attitude() quat.Number { return f.attitude }

// OriginVelocity is the frame's velocity; always zero for static frames.
func (f ReferenceFrame) OriginVelocity() r3.Vec {
	if f.static {
		return r3.Vec{}
	}
	return f.velocity
}

// attitudeOrErr guards against zero-value frames built without a
// constructor.
func (f ReferenceFrame) attitudeOrErr() (quat.Number, error) {
	return NormalizeAttitude(f.attitude)
}

// PointToFrame expresses a world point in f without any velocity or
// attitude handling.
func (f ReferenceFrame) PointToFrame(p r3.Vec) (r3.Vec, error) {
	q, err := f.attitudeOrErr()
	if err != nil {
		return r3.Vec{}, err
	}
	return rotateInverse(q, r3.Sub(p, f.origin)), nil
}

// PointFromFrame maps a point expressed in f back to the parent frame.
func (f ReferenceFrame) PointFromFrame(p r3.Vec) (r3.Vec, error) {
	q, err := f.attitudeOrErr()
	if err != nil {
		return r3.Vec{}, err
	}
	return r3.Add(Rotate(q, p), f.origin), nil
}
