package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/metalabel/internal/units"
)

// DefaultConfigPath is the path to the canonical labeling defaults file.
const DefaultConfigPath = "config/labeling.defaults.json"

// Horizon modes. A run uses exactly one of them.
const (
	HorizonModeTime  = "time"  // Continuous time offsets (seconds)
	HorizonModeFrame = "frame" // Integer frame offsets, assumes a fixed sample rate
)

// LabelingConfig is the root configuration for a labeling run. Every field
// is optional in JSON; the Get* methods supply defaults for omitted fields.
type LabelingConfig struct {
	// Lateral classifier (degrees)
	LateralVeerDeg *float64 `json:"lateral_veer_deg,omitempty"`
	LateralTurnDeg *float64 `json:"lateral_turn_deg,omitempty"`
	PositiveIsLeft *bool    `json:"positive_is_left,omitempty"`

	// Longitudinal classifier (m/s)
	LongitudinalChangeMps *float64 `json:"longitudinal_change_mps,omitempty"`
	LongitudinalStopMps   *float64 `json:"longitudinal_stop_mps,omitempty"`

	// Horizons
	HorizonMode             *string   `json:"horizon_mode,omitempty"`
	HorizonsSeconds         []float64 `json:"horizons_s,omitempty"`
	HorizonFrames           []int     `json:"horizon_frames,omitempty"`
	HorizonToleranceSeconds *float64  `json:"horizon_tolerance_s,omitempty"`

	// Surrounding-object window, in the same unit as the horizon mode
	ObjectOffsetsSeconds []float64 `json:"object_offsets_s,omitempty"`
	ObjectOffsetFrames   []int     `json:"object_offset_frames,omitempty"`

	// Run
	Dataset       *string  `json:"dataset,omitempty"`
	PrimarySensor *string  `json:"primary_sensor,omitempty"`
	Workers       *int     `json:"workers,omitempty"`
	SpeedUnits    *string  `json:"speed_units,omitempty"`
	Splits        []string `json:"splits,omitempty"`
}

// ConfigError reports an invalid or missing configuration value. It is
// fatal: a run must not start with a config that fails validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyLabelingConfig returns a LabelingConfig with all fields unset.
func EmptyLabelingConfig() *LabelingConfig {
	return &LabelingConfig{}
}

// DefaultLabelingConfig returns a config with every field populated with
// its default value.
func DefaultLabelingConfig() *LabelingConfig {
	empty := EmptyLabelingConfig()
	return &LabelingConfig{
		LateralVeerDeg:          ptrFloat64(empty.GetLateralVeerDeg()),
		LateralTurnDeg:          ptrFloat64(empty.GetLateralTurnDeg()),
		PositiveIsLeft:          ptrBool(empty.GetPositiveIsLeft()),
		LongitudinalChangeMps:   ptrFloat64(empty.GetLongitudinalChangeMps()),
		LongitudinalStopMps:     ptrFloat64(empty.GetLongitudinalStopMps()),
		HorizonMode:             ptrString(empty.GetHorizonMode()),
		HorizonsSeconds:         empty.GetHorizonsSeconds(),
		HorizonFrames:           empty.GetHorizonFrames(),
		HorizonToleranceSeconds: ptrFloat64(empty.GetHorizonToleranceSeconds()),
		Dataset:                 ptrString(empty.GetDataset()),
		PrimarySensor:           ptrString(empty.GetPrimarySensor()),
		Workers:                 ptrInt(empty.GetWorkers()),
		SpeedUnits:              ptrString(empty.GetSpeedUnits()),
		Splits:                  empty.GetSplits(),
	}
}

// LoadLabelingConfig loads a LabelingConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file fall back to defaults through the Get* methods.
func LoadLabelingConfig(path string) (*LabelingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseLabelingConfig(data)
}

// ParseLabelingConfig decodes and validates a JSON config document.
func ParseLabelingConfig(data []byte) (*LabelingConfig, error) {
	cfg := EmptyLabelingConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *LabelingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/storage/sqlite/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadLabelingConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable. The first
// problem found is returned as a *ConfigError.
func (c *LabelingConfig) Validate() error {
	veer, turn := c.GetLateralVeerDeg(), c.GetLateralTurnDeg()
	if !finite(veer) || veer < 0 {
		return configErrorf("lateral_veer_deg", "must be a non-negative number, got %v", veer)
	}
	if !finite(turn) || turn <= veer {
		return configErrorf("lateral_turn_deg", "must be greater than lateral_veer_deg (%v), got %v", veer, turn)
	}

	change, stop := c.GetLongitudinalChangeMps(), c.GetLongitudinalStopMps()
	if !finite(change) || change <= 0 {
		return configErrorf("longitudinal_change_mps", "must be positive, got %v", change)
	}
	if !finite(stop) || stop < 0 {
		return configErrorf("longitudinal_stop_mps", "must be non-negative, got %v", stop)
	}

	switch mode := c.GetHorizonMode(); mode {
	case HorizonModeTime:
		if err := validateSeconds("horizons_s", c.GetHorizonsSeconds(), false); err != nil {
			return err
		}
		if err := validateSeconds("object_offsets_s", c.ObjectOffsetsSeconds, true); err != nil {
			return err
		}
	case HorizonModeFrame:
		if err := validateFrames("horizon_frames", c.GetHorizonFrames(), false); err != nil {
			return err
		}
		if err := validateFrames("object_offset_frames", c.ObjectOffsetFrames, true); err != nil {
			return err
		}
	default:
		return configErrorf("horizon_mode", "must be %q or %q, got %q", HorizonModeTime, HorizonModeFrame, mode)
	}

	if tol := c.GetHorizonToleranceSeconds(); !finite(tol) || tol <= 0 {
		return configErrorf("horizon_tolerance_s", "must be positive, got %v", tol)
	}
	if w := c.GetWorkers(); w < 1 {
		return configErrorf("workers", "must be at least 1, got %d", w)
	}
	if u := c.GetSpeedUnits(); !units.IsValid(u) {
		return configErrorf("speed_units", "must be one of: %s, got %q", units.GetValidUnitsString(), u)
	}
	if c.GetPrimarySensor() == "" {
		return configErrorf("primary_sensor", "must not be empty")
	}
	seen := make(map[string]bool)
	for _, s := range c.GetSplits() {
		if s == "" || seen[s] {
			return configErrorf("splits", "must be non-empty and unique, got %q", c.GetSplits())
		}
		seen[s] = true
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// validateSeconds checks a horizon list. Object windows may include past
// (negative) offsets and may be empty; look-ahead horizons may not.
func validateSeconds(field string, vals []float64, allowPastAndEmpty bool) error {
	if len(vals) == 0 && !allowPastAndEmpty {
		return configErrorf(field, "must list at least one horizon")
	}
	seen := make(map[float64]bool)
	for _, v := range vals {
		if !finite(v) || v == 0 || (v < 0 && !allowPastAndEmpty) {
			return configErrorf(field, "contains invalid offset %v", v)
		}
		if seen[v] {
			return configErrorf(field, "contains duplicate offset %v", v)
		}
		seen[v] = true
	}
	return nil
}

func validateFrames(field string, vals []int, allowPastAndEmpty bool) error {
	if len(vals) == 0 && !allowPastAndEmpty {
		return configErrorf(field, "must list at least one horizon")
	}
	seen := make(map[int]bool)
	for _, v := range vals {
		if v == 0 || (v < 0 && !allowPastAndEmpty) {
			return configErrorf(field, "contains invalid offset %d", v)
		}
		if seen[v] {
			return configErrorf(field, "contains duplicate offset %d", v)
		}
		seen[v] = true
	}
	return nil
}

// GetLateralVeerDeg returns the lateral_veer_deg value or the default.
func (c *LabelingConfig) GetLateralVeerDeg() float64 {
	if c.LateralVeerDeg == nil {
		return 5
	}
	return *c.LateralVeerDeg
}

// GetLateralTurnDeg returns the lateral_turn_deg value or the default.
func (c *LabelingConfig) GetLateralTurnDeg() float64 {
	if c.LateralTurnDeg == nil {
		return 20
	}
	return *c.LateralTurnDeg
}

// GetPositiveIsLeft returns the positive_is_left value or the default.
func (c *LabelingConfig) GetPositiveIsLeft() bool {
	if c.PositiveIsLeft == nil {
		return true
	}
	return *c.PositiveIsLeft
}

// GetLongitudinalChangeMps returns the longitudinal_change_mps value or the default.
func (c *LabelingConfig) GetLongitudinalChangeMps() float64 {
	if c.LongitudinalChangeMps == nil {
		return 0.25
	}
	return *c.LongitudinalChangeMps
}

// GetLongitudinalStopMps returns the longitudinal_stop_mps value or the default.
func (c *LabelingConfig) GetLongitudinalStopMps() float64 {
	if c.LongitudinalStopMps == nil {
		return 0.50
	}
	return *c.LongitudinalStopMps
}

// GetHorizonMode returns the horizon_mode value or the default ("time").
func (c *LabelingConfig) GetHorizonMode() string {
	if c.HorizonMode == nil || *c.HorizonMode == "" {
		return HorizonModeTime
	}
	return *c.HorizonMode
}

// GetHorizonsSeconds returns the horizons_s value or the default [2, 4, 6].
func (c *LabelingConfig) GetHorizonsSeconds() []float64 {
	if len(c.HorizonsSeconds) == 0 {
		return []float64{2, 4, 6}
	}
	return append([]float64(nil), c.HorizonsSeconds...)
}

// GetHorizonFrames returns the horizon_frames value or the default [1, 5, 10].
func (c *LabelingConfig) GetHorizonFrames() []int {
	if len(c.HorizonFrames) == 0 {
		return []int{1, 5, 10}
	}
	return append([]int(nil), c.HorizonFrames...)
}

// GetHorizonToleranceSeconds returns the horizon_tolerance_s value or the default.
func (c *LabelingConfig) GetHorizonToleranceSeconds() float64 {
	if c.HorizonToleranceSeconds == nil {
		return 0.5
	}
	return *c.HorizonToleranceSeconds
}

// GetDataset returns the dataset value or the default.
func (c *LabelingConfig) GetDataset() string {
	if c.Dataset == nil || *c.Dataset == "" {
		return "nuscenes"
	}
	return *c.Dataset
}

// GetPrimarySensor returns the primary_sensor value or the default.
func (c *LabelingConfig) GetPrimarySensor() string {
	if c.PrimarySensor == nil {
		return "main_camera"
	}
	return *c.PrimarySensor
}

// GetWorkers returns the workers value or the default (1, fully sequential).
func (c *LabelingConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetSpeedUnits returns the speed_units value or the default.
func (c *LabelingConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil {
		return units.MPS
	}
	return *c.SpeedUnits
}

// GetSplits returns the splits value or the default.
func (c *LabelingConfig) GetSplits() []string {
	if len(c.Splits) == 0 {
		return []string{"train", "val", "test"}
	}
	return append([]string(nil), c.Splits...)
}
