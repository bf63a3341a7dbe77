package actions

import (
	"github.com/banshee-data/metalabel/internal/config"
	"github.com/banshee-data/metalabel/internal/geometry"
)

// MetaAction is the pair of lateral and longitudinal labels for one
// (current, future) state pair.
type MetaAction struct {
	Lateral      Lateral      `json:"lateral"`
	Longitudinal Longitudinal `json:"longitudinal"`
}

// Thresholds holds the configuration for both classifiers.
type Thresholds struct {
	Lateral      LateralThresholds
	Longitudinal LongitudinalThresholds
}

// DefaultThresholds returns the stock thresholds: veer 5°, turn 20°,
// positive yaw is left, speed change 0.25 m/s, stop 0.5 m/s.
func DefaultThresholds() Thresholds {
	return ThresholdsFromConfig(config.EmptyLabelingConfig())
}

// ThresholdsFromConfig builds Thresholds from a loaded LabelingConfig.
func ThresholdsFromConfig(cfg *config.LabelingConfig) Thresholds {
	return Thresholds{
		Lateral: LateralThresholds{
			VeerDeg:        cfg.GetLateralVeerDeg(),
			TurnDeg:        cfg.GetLateralTurnDeg(),
			PositiveIsLeft: cfg.GetPositiveIsLeft(),
		},
		Longitudinal: LongitudinalThresholds{
			ChangeMps: cfg.GetLongitudinalChangeMps(),
			StopMps:   cfg.GetLongitudinalStopMps(),
		},
	}
}

// Validate rejects thresholds that cannot produce a meaningful partition.
func (t Thresholds) Validate() error {
	if t.Lateral.VeerDeg < 0 {
		return &config.ConfigError{Field: "lateral_veer_deg", Reason: "must be non-negative"}
	}
	if t.Lateral.TurnDeg <= t.Lateral.VeerDeg {
		return &config.ConfigError{Field: "lateral_turn_deg", Reason: "must be greater than lateral_veer_deg"}
	}
	if t.Longitudinal.ChangeMps <= 0 {
		return &config.ConfigError{Field: "longitudinal_change_mps", Reason: "must be positive"}
	}
	if t.Longitudinal.StopMps < 0 {
		return &config.ConfigError{Field: "longitudinal_stop_mps", Reason: "must be non-negative"}
	}
	return nil
}

// Evaluate runs both classifiers. Either state missing velocity or
// attitude fails with *geometry.InvalidStateError before any
// classification happens.
func Evaluate(current, future geometry.AgentState, th Thresholds) (MetaAction, error) {
	for _, s := range []geometry.AgentState{current, future} {
		if !s.HasVelocity() {
			return MetaAction{}, &geometry.InvalidStateError{Field: "velocity", Reason: "is required for meta-action classification"}
		}
		if !s.HasAttitude() {
			return MetaAction{}, &geometry.InvalidStateError{Field: "attitude", Reason: "is required for meta-action classification"}
		}
	}

	lat, err := EvaluateLateral(current, future, th.Lateral)
	if err != nil {
		return MetaAction{}, err
	}
	lon, err := EvaluateLongitudinal(current, future, th.Longitudinal)
	if err != nil {
		return MetaAction{}, err
	}
	return MetaAction{Lateral: lat, Longitudinal: lon}, nil
}
