package horizon

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/metalabel/internal/config"
)

// Mode selects how horizon offsets are interpreted.
type Mode string

const (
	ModeTime  Mode = config.HorizonModeTime
	ModeFrame Mode = config.HorizonModeFrame
)

// DefaultTolerance is the default maximum gap (seconds) between a time
// horizon's target and the sample chosen for it.
const DefaultTolerance = 0.5

// timeSlack absorbs rounding in t0 + Δ when comparing against the
// trajectory's last timestamp.
const timeSlack = 1e-9

// Horizon is one requested offset. Seconds is used in time mode, Frames in
// frame mode; the other field is zero.
type Horizon struct {
	Mode    Mode
	Seconds float64
	Frames  int
}

// Time returns a time-mode horizon.
func Time(seconds float64) Horizon { return Horizon{Mode: ModeTime, Seconds: seconds} }

// Frame returns a frame-mode horizon.
func Frame(n int) Horizon { return Horizon{Mode: ModeFrame, Frames: n} }

// Key is the stable export key: "dt_2.00" in time mode, "frame_5" in
// frame mode. Past offsets keep their sign ("dt_-1.00").
func (h Horizon) Key() string {
	if h.Mode == ModeFrame {
		return "frame_" + strconv.Itoa(h.Frames)
	}
	return fmt.Sprintf("dt_%.2f", h.Seconds)
}

func (h Horizon) String() string { return h.Key() }

// ParseKey reverses Key.
func ParseKey(key string) (Horizon, error) {
	switch {
	case strings.HasPrefix(key, "dt_"):
		v, err := strconv.ParseFloat(strings.TrimPrefix(key, "dt_"), 64)
		if err != nil {
			return Horizon{}, fmt.Errorf("invalid horizon key %q: %w", key, err)
		}
		return Time(v), nil
	case strings.HasPrefix(key, "frame_"):
		n, err := strconv.Atoi(strings.TrimPrefix(key, "frame_"))
		if err != nil {
			return Horizon{}, fmt.Errorf("invalid horizon key %q: %w", key, err)
		}
		return Frame(n), nil
	}
	return Horizon{}, fmt.Errorf("invalid horizon key %q", key)
}

// Nearest returns the index of the timestamp in ts closest to target.
// ts must be sorted in non-decreasing order. Ties go to the earlier
// timestamp. The second result is false when ts is empty, when target is
// past the last timestamp, or when the closest sample is further than tol
// from target. Targets before the first timestamp fall back on tol alone.
func Nearest(ts []float64, target, tol float64) (int, bool) {
	n := len(ts)
	if n == 0 || math.IsNaN(target) {
		return -1, false
	}
	if target > ts[n-1]+timeSlack {
		return -1, false
	}

	// First index with ts[i] >= target.
	hi := sort.SearchFloat64s(ts, target)
	best := -1
	switch {
	case hi == 0:
		best = 0
	case hi == n:
		best = n - 1
	default:
		lo := hi - 1
		if target-ts[lo] <= ts[hi]-target {
			best = lo
		} else {
			best = hi
		}
	}
	// Repeated timestamps resolve to the first sample carrying them.
	for best > 0 && ts[best-1] == ts[best] {
		best--
	}
	if math.Abs(ts[best]-target) > tol {
		return -1, false
	}
	return best, true
}
