package geometry

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Extent is the spatial size of an agent's bounding box (metres).
type Extent struct {
	Length float64
	Width  float64
	Height float64
}

// AgentState is an immutable snapshot of an agent at one timestamp.
// Velocity, attitude and extent are optional; the With* methods return
// modified copies and never touch the receiver.
type AgentState struct {
	timestamp float64 // seconds
	position  r3.Vec

	velocity    r3.Vec
	hasVelocity bool

	attitude    quat.Number
	hasAttitude bool

	extent    Extent
	hasExtent bool
}

// NewAgentState returns a state with only a timestamp and position set.
func NewAgentState(timestamp float64, position r3.Vec) AgentState {
	return AgentState{timestamp: timestamp, position: position}
}

// WithVelocity returns a copy of s with velocity v.
func (s AgentState) WithVelocity(v r3.Vec) AgentState {
	s.velocity = v
	s.hasVelocity = true
	return s
}

// WithAttitude returns a copy of s with attitude q. The quaternion is
// stored as given; NormalizeAttitude runs when the state is transformed
// or used as a reference.
func (s AgentState) WithAttitude(q quat.Number) AgentState {
	s.attitude = q
	s.hasAttitude = true
	return s
}

// WithExtent returns a copy of s with extent e.
func (s AgentState) WithExtent(e Extent) AgentState {
	s.extent = e
	s.hasExtent = true
	return s
}

// WithTimestamp returns a copy of s stamped at t.
func (s AgentState) WithTimestamp(t float64) AgentState {
	s.timestamp = t
	return s
}

func (s AgentState) Timestamp() float64 { return s.timestamp }
func (s AgentState) Position() r3.Vec   { return s.position }

// Velocity returns the velocity and whether it is set.
func (s AgentState) Velocity() (r3.Vec, bool) { return s.velocity, s.hasVelocity }

// Attitude returns the attitude and whether it is set.
func (s AgentState) Attitude() (quat.Number, bool) { return s.attitude, s.hasAttitude }

// Extent returns the extent and whether it is set.
func (s AgentState) Extent() (Extent, bool) { return s.extent, s.hasExtent }

func (s AgentState) HasVelocity() bool { return s.hasVelocity }
func (s AgentState) HasAttitude() bool { return s.hasAttitude }

// Speed returns ‖velocity‖, or 0 when velocity is unset.
func (s AgentState) Speed() float64 {
	if !s.hasVelocity {
		return 0
	}
	return r3.Norm(s.velocity)
}

// Yaw returns the heading of the state's attitude in radians, or 0 when
// the attitude is unset.
func (s AgentState) Yaw() float64 {
	if !s.hasAttitude {
		return 0
	}
	return Yaw(s.attitude)
}

// AsReference returns the moving reference frame located at this state's
// pose and travelling with its velocity. A state without velocity yields
// a frame with zero origin velocity. The attitude is required.
func (s AgentState) AsReference() (ReferenceFrame, error) {
	if !s.hasAttitude {
		return ReferenceFrame{}, missing("attitude")
	}
	var v r3.Vec
	if s.hasVelocity {
		v = s.velocity
	}
	return NewReferenceFrame(s.position, s.attitude, v)
}

// ChangeReference expresses s in frame f:
//
//	position' = Rᵗ · (position − origin)
//	velocity' = Rᵗ · (velocity − origin velocity)   (origin velocity = 0 if f is static)
//	attitude' = q_f⁻¹ ⊗ attitude
//
// Components unset on s stay unset on the result.
func (s AgentState) ChangeReference(f ReferenceFrame) (AgentState, error) {
	qf, err := f.attitudeOrErr()
	if err != nil {
		return AgentState{}, err
	}

	out := s
	out.position = rotateInverse(qf, r3.Sub(s.position, f.origin))

	if s.hasVelocity {
		out.velocity = rotateInverse(qf, r3.Sub(s.velocity, f.OriginVelocity()))
	}

	if s.hasAttitude {
		q, err := NormalizeAttitude(s.attitude)
		if err != nil {
			return AgentState{}, err
		}
		out.attitude = quat.Mul(quat.Conj(qf), q)
	}
	return out, nil
}

// RelativeYaw returns the yaw of future's attitude expressed in current's
// reference frame, in radians. Both states need an attitude.
func RelativeYaw(current, future AgentState) (float64, error) {
	if !future.hasAttitude {
		return 0, missing("attitude")
	}
	ref, err := current.AsReference()
	if err != nil {
		return 0, err
	}
	rel, err := future.ChangeReference(ref)
	if err != nil {
		return 0, err
	}
	return Yaw(rel.attitude), nil
}
