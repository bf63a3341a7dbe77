package actions

import (
	"fmt"

	"github.com/banshee-data/metalabel/internal/geometry"
)

// Longitudinal is the speed-change component of a meta-action.
type Longitudinal string

const (
	Reverse     Longitudinal = "REVERSE"
	BrakeToStop Longitudinal = "BRAKE_TO_STOP"
	Decel       Longitudinal = "DECEL"
	Maintain    Longitudinal = "MAINTAIN"
	Accel       Longitudinal = "ACCEL"
)

// longitudinalOrder lists every Longitudinal value in ascending order.
var longitudinalOrder = []Longitudinal{Reverse, BrakeToStop, Decel, Maintain, Accel}

// AllLongitudinal returns every Longitudinal value in ascending order.
func AllLongitudinal() []Longitudinal {
	return append([]Longitudinal(nil), longitudinalOrder...)
}

// Order is the rank of l in REVERSE < BRAKE_TO_STOP < DECEL < MAINTAIN <
// ACCEL, starting at 0. Unknown values return -1.
func (l Longitudinal) Order() int {
	for i, v := range longitudinalOrder {
		if v == l {
			return i
		}
	}
	return -1
}

// Code is the signed export code (REVERSE = -3 ... ACCEL = 1).
func (l Longitudinal) Code() int {
	if l.Order() < 0 {
		return 0
	}
	return l.Order() - 3
}

// Compare returns -1, 0 or +1 by Order.
func (l Longitudinal) Compare(o Longitudinal) int {
	return compareOrder(l.Order(), o.Order())
}

func (l Longitudinal) Valid() bool { return l.Order() >= 0 }

func (l Longitudinal) String() string { return string(l) }

// ParseLongitudinal converts a label name back into a Longitudinal.
func ParseLongitudinal(s string) (Longitudinal, error) {
	l := Longitudinal(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown longitudinal action %q", s)
	}
	return l, nil
}

// LongitudinalThresholds configures the speed classifier (m/s).
type LongitudinalThresholds struct {
	ChangeMps float64 // |Δspeed| at or above this is a speed change
	StopMps   float64 // Future speed at or below this counts as stopped
}

// ClassifySpeed maps current/future speeds to a Longitudinal category.
func ClassifySpeed(currentSpeed, futureSpeed float64, th LongitudinalThresholds) Longitudinal {
	dSpeed := futureSpeed - currentSpeed
	switch {
	case dSpeed >= th.ChangeMps:
		return Accel
	case dSpeed <= -th.ChangeMps:
		if futureSpeed <= th.StopMps {
			return BrakeToStop
		}
		return Decel
	default:
		return Maintain
	}
}

// EvaluateLongitudinal classifies the speed change between current and
// future. Both states need a velocity.
func EvaluateLongitudinal(current, future geometry.AgentState, th LongitudinalThresholds) (Longitudinal, error) {
	for _, s := range []geometry.AgentState{current, future} {
		if !s.HasVelocity() {
			return "", &geometry.InvalidStateError{Field: "velocity", Reason: "is required for longitudinal classification"}
		}
	}
	return ClassifySpeed(current.Speed(), future.Speed(), th), nil
}
