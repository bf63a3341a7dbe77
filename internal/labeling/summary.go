package labeling

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/metalabel/internal/actions"
	"github.com/banshee-data/metalabel/internal/monitoring"
)

// RunSummary accumulates counts over a batch run.
type RunSummary struct {
	Scenes        int
	Agents        int
	SkippedAgents int // Trajectories rejected as malformed
	Frames        int
	FrameErrors   int
	WithFuture    int // Frames with at least one resolved horizon

	// Per horizon key.
	Unavailable  map[string]int
	Lateral      map[string]map[actions.Lateral]int
	Longitudinal map[string]map[actions.Longitudinal]int

	Duration time.Duration
}

// NewRunSummary returns an empty summary.
func NewRunSummary() *RunSummary {
	return &RunSummary{
		Unavailable:  make(map[string]int),
		Lateral:      make(map[string]map[actions.Lateral]int),
		Longitudinal: make(map[string]map[actions.Longitudinal]int),
	}
}

// Add counts one labeled frame.
func (s *RunSummary) Add(f LabeledFrame) {
	s.Frames++
	if f.HasFutureInScene {
		s.WithFuture++
	}
	for _, key := range f.HorizonKeys {
		ma := f.Actions[key]
		if ma == nil {
			s.Unavailable[key]++
			continue
		}
		if s.Lateral[key] == nil {
			s.Lateral[key] = make(map[actions.Lateral]int)
			s.Longitudinal[key] = make(map[actions.Longitudinal]int)
		}
		s.Lateral[key][ma.Lateral]++
		s.Longitudinal[key][ma.Longitudinal]++
	}
}

// Merge adds the counts of o into s.
func (s *RunSummary) Merge(o *RunSummary) {
	s.Scenes += o.Scenes
	s.Agents += o.Agents
	s.SkippedAgents += o.SkippedAgents
	s.Frames += o.Frames
	s.FrameErrors += o.FrameErrors
	s.WithFuture += o.WithFuture
	s.Duration += o.Duration
	for k, n := range o.Unavailable {
		s.Unavailable[k] += n
	}
	for k, h := range o.Lateral {
		if s.Lateral[k] == nil {
			s.Lateral[k] = make(map[actions.Lateral]int)
		}
		for l, n := range h {
			s.Lateral[k][l] += n
		}
	}
	for k, h := range o.Longitudinal {
		if s.Longitudinal[k] == nil {
			s.Longitudinal[k] = make(map[actions.Longitudinal]int)
		}
		for l, n := range h {
			s.Longitudinal[k][l] += n
		}
	}
}

// Log writes the summary through monitoring.Logf, one line per horizon.
func (s *RunSummary) Log() {
	monitoring.Logf("[Batch] scenes=%d agents=%d skipped_agents=%d frames=%d frame_errors=%d with_future=%d duration=%s",
		s.Scenes, s.Agents, s.SkippedAgents, s.Frames, s.FrameErrors, s.WithFuture, s.Duration)

	keys := make(map[string]bool)
	for k := range s.Unavailable {
		keys[k] = true
	}
	for k := range s.Lateral {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		monitoring.Logf("[Batch] horizon=%s unavailable=%d lateral={%s} longitudinal={%s}",
			k, s.Unavailable[k], formatLateral(s.Lateral[k]), formatLongitudinal(s.Longitudinal[k]))
	}
}

func formatLateral(h map[actions.Lateral]int) string {
	var parts []string
	for _, l := range actions.AllLateral() {
		if n := h[l]; n > 0 {
			parts = append(parts, l.String()+":"+strconv.Itoa(n))
		}
	}
	return strings.Join(parts, " ")
}

func formatLongitudinal(h map[actions.Longitudinal]int) string {
	var parts []string
	for _, l := range actions.AllLongitudinal() {
		if n := h[l]; n > 0 {
			parts = append(parts, l.String()+":"+strconv.Itoa(n))
		}
	}
	return strings.Join(parts, " ")
}
