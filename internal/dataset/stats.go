package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/metalabel/internal/labeling"
	"github.com/banshee-data/metalabel/internal/monitoring"
)

// IrregularCV is the coefficient of variation of sample intervals above
// which a split is reported as irregularly sampled.
const IrregularCV = 0.1

// Stats summarises the sampling of a set of scenes.
type Stats struct {
	Scenes         int
	Agents         int
	Samples        int
	Intervals      int     // Number of consecutive-sample gaps measured
	MedianInterval float64 // seconds
	MeanInterval   float64
	StdInterval    float64
	MaxInterval    float64
}

// CV is the coefficient of variation of the sample intervals, or 0 when
// there are none.
func (s Stats) CV() float64 {
	if s.MeanInterval == 0 {
		return 0
	}
	return s.StdInterval / s.MeanInterval
}

// Irregular reports whether intervals vary enough that frame-offset
// horizons would map to inconsistent durations.
func (s Stats) Irregular() bool { return s.CV() > IrregularCV }

// ComputeStats measures sample intervals across every trajectory.
func ComputeStats(scenes []labeling.Scene) Stats {
	var st Stats
	var gaps []float64
	for _, sc := range scenes {
		st.Scenes++
		for _, tr := range sc.Trajectories {
			st.Agents++
			st.Samples += len(tr.Samples)
			for i := 1; i < len(tr.Samples); i++ {
				gaps = append(gaps, tr.Samples[i].Timestamp()-tr.Samples[i-1].Timestamp())
			}
		}
	}
	st.Intervals = len(gaps)
	if len(gaps) == 0 {
		return st
	}

	sort.Float64s(gaps)
	st.MedianInterval = stat.Quantile(0.5, stat.Empirical, gaps, nil)
	st.MeanInterval, st.StdInterval = stat.MeanStdDev(gaps, nil)
	if math.IsNaN(st.StdInterval) {
		st.StdInterval = 0
	}
	st.MaxInterval = floats.Max(gaps)
	return st
}

// Log writes the stats through monitoring.Logf.
func (s Stats) Log(split string) {
	monitoring.Logf("[Dataset] split=%s scenes=%d agents=%d samples=%d median_dt=%.3fs mean_dt=%.3fs max_dt=%.3fs cv=%.3f",
		split, s.Scenes, s.Agents, s.Samples, s.MedianInterval, s.MeanInterval, s.MaxInterval, s.CV())
}
