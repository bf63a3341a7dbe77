package actions

import (
	"fmt"
	"math"

	"github.com/banshee-data/metalabel/internal/geometry"
	"github.com/banshee-data/metalabel/internal/units"
)

// Lateral is the left/right component of a meta-action.
type Lateral string

const (
	TurnLeft        Lateral = "TURN_LEFT"
	ChangeLaneLeft  Lateral = "CHANGE_LANE_LEFT"
	VeerLeft        Lateral = "VEER_LEFT"
	Straight        Lateral = "STRAIGHT"
	VeerRight       Lateral = "VEER_RIGHT"
	ChangeLaneRight Lateral = "CHANGE_LANE_RIGHT"
	TurnRight       Lateral = "TURN_RIGHT"
)

// lateralOrder lists every Lateral value from most-left to most-right.
var lateralOrder = []Lateral{
	TurnLeft, ChangeLaneLeft, VeerLeft, Straight, VeerRight, ChangeLaneRight, TurnRight,
}

// AllLateral returns every Lateral value in ascending order.
func AllLateral() []Lateral {
	return append([]Lateral(nil), lateralOrder...)
}

// Order is the rank of l in the total order TURN_LEFT < ... < TURN_RIGHT,
// starting at 0. Unknown values return -1.
func (l Lateral) Order() int {
	for i, v := range lateralOrder {
		if v == l {
			return i
		}
	}
	return -1
}

// Code is the signed export code (TURN_LEFT = -3 ... TURN_RIGHT = 3).
func (l Lateral) Code() int {
	if l.Order() < 0 {
		return 0
	}
	return l.Order() - 3
}

// Compare returns -1, 0 or +1 by Order.
func (l Lateral) Compare(o Lateral) int {
	return compareOrder(l.Order(), o.Order())
}

// Mirror returns the left/right reflection of l (STRAIGHT maps to itself).
func (l Lateral) Mirror() Lateral {
	i := l.Order()
	if i < 0 {
		return l
	}
	return lateralOrder[len(lateralOrder)-1-i]
}

func (l Lateral) Valid() bool { return l.Order() >= 0 }

func (l Lateral) String() string { return string(l) }

// ParseLateral converts a label name back into a Lateral.
func ParseLateral(s string) (Lateral, error) {
	l := Lateral(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown lateral action %q", s)
	}
	return l, nil
}

// LateralThresholds configures the yaw classifier.
type LateralThresholds struct {
	VeerDeg        float64 // |Δyaw| at or above this is a veer
	TurnDeg        float64 // |Δyaw| at or above this is a turn
	PositiveIsLeft bool    // When false the sign of Δyaw is flipped
}

// ClassifyYaw maps a yaw delta in degrees (positive = left under the
// default convention) to a Lateral category. Both bounds are closed from
// below: |Δyaw| == TurnDeg is a turn, |Δyaw| == VeerDeg is a veer.
func ClassifyYaw(dYawDeg float64, th LateralThresholds) Lateral {
	if !th.PositiveIsLeft {
		dYawDeg = -dYawDeg
	}
	mag := math.Abs(dYawDeg)
	switch {
	case mag >= th.TurnDeg:
		if dYawDeg > 0 {
			return TurnLeft
		}
		return TurnRight
	case mag >= th.VeerDeg:
		if dYawDeg > 0 {
			return VeerLeft
		}
		return VeerRight
	default:
		return Straight
	}
}

// EvaluateLateral classifies the heading change between current and
// future. Both states need an attitude.
func EvaluateLateral(current, future geometry.AgentState, th LateralThresholds) (Lateral, error) {
	if err := requireAttitude(current, future); err != nil {
		return "", err
	}
	dYaw, err := geometry.RelativeYaw(current, future)
	if err != nil {
		return "", err
	}
	return ClassifyYaw(units.RadToDeg(dYaw), th), nil
}

func requireAttitude(states ...geometry.AgentState) error {
	for _, s := range states {
		if !s.HasAttitude() {
			return &geometry.InvalidStateError{Field: "attitude", Reason: "is required for lateral classification"}
		}
	}
	return nil
}

func compareOrder(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
