package horizon

import (
	"fmt"

	"github.com/banshee-data/metalabel/internal/config"
)

// Timeline is the sorted sample index of one agent trajectory: parallel
// slices of frame indices and timestamps. Build it once per trajectory
// with NewTimeline and share it across frames.
type Timeline struct {
	frames     []int
	timestamps []float64
	byFrame    map[int]int
}

// NewTimeline validates and indexes a trajectory's samples. Timestamps must
// be non-decreasing and frame indices unique.
func NewTimeline(frames []int, timestamps []float64) (*Timeline, error) {
	if len(frames) != len(timestamps) {
		return nil, fmt.Errorf("timeline: %d frames but %d timestamps", len(frames), len(timestamps))
	}
	tl := &Timeline{
		frames:     append([]int(nil), frames...),
		timestamps: append([]float64(nil), timestamps...),
		byFrame:    make(map[int]int, len(frames)),
	}
	for i, f := range frames {
		if i > 0 && timestamps[i] < timestamps[i-1] {
			return nil, fmt.Errorf("timeline: timestamp %v at frame %d precedes %v", timestamps[i], f, timestamps[i-1])
		}
		if _, dup := tl.byFrame[f]; dup {
			return nil, fmt.Errorf("timeline: duplicate frame index %d", f)
		}
		tl.byFrame[f] = i
	}
	return tl, nil
}

// Len is the number of samples.
func (tl *Timeline) Len() int { return len(tl.timestamps) }

// Frame returns the frame index of sample i.
func (tl *Timeline) Frame(i int) int { return tl.frames[i] }

// Timestamp returns the timestamp of sample i.
func (tl *Timeline) Timestamp(i int) float64 { return tl.timestamps[i] }

// Span returns the first and last timestamps. Both are zero for an empty
// timeline.
func (tl *Timeline) Span() (float64, float64) {
	if len(tl.timestamps) == 0 {
		return 0, 0
	}
	return tl.timestamps[0], tl.timestamps[len(tl.timestamps)-1]
}

// IndexOfFrame returns the sample position of a frame index.
func (tl *Timeline) IndexOfFrame(frame int) (int, bool) {
	i, ok := tl.byFrame[frame]
	return i, ok
}

// Sampler resolves a fixed list of horizons. It is immutable and safe for
// concurrent use.
type Sampler struct {
	mode      Mode
	horizons  []Horizon
	tolerance float64
}

// NewTimeSampler builds a time-mode sampler. Offsets must be non-zero and
// finite; negative offsets look into the past.
func NewTimeSampler(offsets []float64, tolerance float64) (*Sampler, error) {
	if tolerance <= 0 {
		return nil, &config.ConfigError{Field: "horizon_tolerance_s", Reason: fmt.Sprintf("must be positive, got %v", tolerance)}
	}
	s := &Sampler{mode: ModeTime, tolerance: tolerance}
	seen := make(map[string]bool, len(offsets))
	for _, o := range offsets {
		h := Time(o)
		if o == 0 || seen[h.Key()] {
			return nil, &config.ConfigError{Field: "horizons_s", Reason: fmt.Sprintf("invalid or duplicate offset %v", o)}
		}
		seen[h.Key()] = true
		s.horizons = append(s.horizons, h)
	}
	return s, nil
}

// NewFrameSampler builds a frame-mode sampler.
func NewFrameSampler(offsets []int) (*Sampler, error) {
	s := &Sampler{mode: ModeFrame}
	seen := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		if o == 0 || seen[o] {
			return nil, &config.ConfigError{Field: "horizon_frames", Reason: fmt.Sprintf("invalid or duplicate offset %d", o)}
		}
		seen[o] = true
		s.horizons = append(s.horizons, Frame(o))
	}
	return s, nil
}

// SamplerFromConfig builds the look-ahead sampler for the configured mode.
func SamplerFromConfig(cfg *config.LabelingConfig) (*Sampler, error) {
	if Mode(cfg.GetHorizonMode()) == ModeFrame {
		return NewFrameSampler(cfg.GetHorizonFrames())
	}
	return NewTimeSampler(cfg.GetHorizonsSeconds(), cfg.GetHorizonToleranceSeconds())
}

// ObjectSamplerFromConfig builds the sampler for the surrounding-object
// window. It shares the look-ahead mode and tolerance and may be empty.
func ObjectSamplerFromConfig(cfg *config.LabelingConfig) (*Sampler, error) {
	if Mode(cfg.GetHorizonMode()) == ModeFrame {
		return NewFrameSampler(cfg.ObjectOffsetFrames)
	}
	return NewTimeSampler(cfg.ObjectOffsetsSeconds, cfg.GetHorizonToleranceSeconds())
}

// Mode returns the sampler's horizon mode.
func (s *Sampler) Mode() Mode { return s.mode }

// Tolerance returns the time-mode tolerance in seconds.
func (s *Sampler) Tolerance() float64 { return s.tolerance }

// Horizons returns a copy of the configured horizons, in configuration
// order.
func (s *Sampler) Horizons() []Horizon { return append([]Horizon(nil), s.horizons...) }

// Keys returns the horizon keys in configuration order.
func (s *Sampler) Keys() []string {
	keys := make([]string, len(s.horizons))
	for i, h := range s.horizons {
		keys[i] = h.Key()
	}
	return keys
}

// Resolve maps horizon h, taken from the sample at position current, to a
// sample position in tl. The second result is false when the horizon is
// unavailable.
func (s *Sampler) Resolve(tl *Timeline, current int, h Horizon) (int, bool) {
	if current < 0 || current >= tl.Len() {
		return -1, false
	}
	if h.Mode == ModeFrame {
		return tl.IndexOfFrame(tl.Frame(current) + h.Frames)
	}
	return Nearest(tl.timestamps, tl.Timestamp(current)+h.Seconds, s.tolerance)
}

// Resolution is the outcome of resolving one horizon.
type Resolution struct {
	Horizon   Horizon
	Index     int // Sample position in the timeline, -1 when unavailable
	Available bool
}

// ResolveAll resolves every configured horizon from sample current.
func (s *Sampler) ResolveAll(tl *Timeline, current int) []Resolution {
	out := make([]Resolution, len(s.horizons))
	for i, h := range s.horizons {
		idx, ok := s.Resolve(tl, current, h)
		out[i] = Resolution{Horizon: h, Index: idx, Available: ok}
	}
	return out
}
