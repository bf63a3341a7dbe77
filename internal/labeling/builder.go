package labeling

import (
	"fmt"

	"github.com/banshee-data/metalabel/internal/actions"
	"github.com/banshee-data/metalabel/internal/config"
	"github.com/banshee-data/metalabel/internal/geometry"
	"github.com/banshee-data/metalabel/internal/horizon"
	"github.com/banshee-data/metalabel/internal/projection"
)

// FrameError records a frame that could not be labeled. The batch keeps
// going; the error is logged and counted.
type FrameError struct {
	Scene   string
	AgentID string
	Frame   int
	Err     error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("scene %s agent %s frame %d: %v", e.Scene, e.AgentID, e.Frame, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// TrajectoryResult is everything BuildTrajectory produced for one agent.
// Frames are in sample order and exclude the frames listed in Errors.
type TrajectoryResult struct {
	Frames []LabeledFrame
	Errors []FrameError
}

// Builder labels trajectories. It is immutable once built and safe for
// concurrent use.
type Builder struct {
	thresholds actions.Thresholds
	sampler    *horizon.Sampler
	objects    *horizon.Sampler
}

// NewBuilder validates its inputs and returns a Builder. objects may be
// nil, which disables the surrounding-object window.
func NewBuilder(th actions.Thresholds, sampler, objects *horizon.Sampler) (*Builder, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	if sampler == nil || len(sampler.Horizons()) == 0 {
		return nil, &config.ConfigError{Field: "horizons", Reason: "must list at least one horizon"}
	}
	if objects != nil && objects.Mode() != sampler.Mode() {
		return nil, &config.ConfigError{Field: "horizon_mode", Reason: "object window must use the look-ahead horizon mode"}
	}
	return &Builder{thresholds: th, sampler: sampler, objects: objects}, nil
}

// BuilderFromConfig validates cfg and builds the Builder it describes.
func BuilderFromConfig(cfg *config.LabelingConfig) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sampler, err := horizon.SamplerFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	objects, err := horizon.ObjectSamplerFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewBuilder(actions.ThresholdsFromConfig(cfg), sampler, objects)
}

// Horizons returns the look-ahead horizons in configuration order.
func (b *Builder) Horizons() []horizon.Horizon { return b.sampler.Horizons() }

// HorizonKeys returns the look-ahead horizon keys in configuration order.
func (b *Builder) HorizonKeys() []string { return b.sampler.Keys() }

// Mode returns the horizon mode.
func (b *Builder) Mode() horizon.Mode { return b.sampler.Mode() }

// Thresholds returns the classifier thresholds.
func (b *Builder) Thresholds() actions.Thresholds { return b.thresholds }

// BuildTrajectory labels every sample of tr. It returns an error only when
// the trajectory itself is malformed (timestamps out of order or repeated
// frame indices); per-frame failures are collected in the result.
func (b *Builder) BuildTrajectory(tr Trajectory) (TrajectoryResult, error) {
	tl, err := tr.Timeline()
	if err != nil {
		return TrajectoryResult{}, err
	}

	var res TrajectoryResult
	if len(tr.Samples) == 0 {
		return res, nil
	}

	// local is anchored on the first pose and never moves with the agent.
	local, localErr := tr.Samples[0].State.AsReference()
	if localErr == nil {
		local = local.Static()
	}

	withObjects := b.objects != nil && hasObjects(tr)
	for i := range tr.Samples {
		f, err := b.buildFrame(tr, tl, i, local, localErr, withObjects)
		if err != nil {
			res.Errors = append(res.Errors, FrameError{
				Scene:   tr.Scene,
				AgentID: tr.AgentID,
				Frame:   tr.Samples[i].Frame,
				Err:     err,
			})
			continue
		}
		res.Frames = append(res.Frames, f)
	}
	return res, nil
}

func (b *Builder) buildFrame(tr Trajectory, tl *horizon.Timeline, i int, local geometry.ReferenceFrame, localErr error, withObjects bool) (LabeledFrame, error) {
	s := tr.Samples[i]
	cur := s.State

	views, err := buildViews(tr, i, local, localErr)
	if err != nil {
		return LabeledFrame{}, err
	}

	f := LabeledFrame{
		Split:       tr.Split,
		SceneIndex:  tr.SceneIndex,
		Scene:       tr.Scene,
		AgentID:     tr.AgentID,
		Frame:       s.Frame,
		Timestamp:   s.Timestamp(),
		Views:       views,
		HorizonKeys: b.sampler.Keys(),
		Actions:     make(map[string]*actions.MetaAction, len(b.sampler.Horizons())),
		Waypoints:   make(map[string]*Waypoint, len(b.sampler.Horizons())),
		Images:      s.Images,
	}

	for _, r := range b.sampler.ResolveAll(tl, i) {
		key := r.Horizon.Key()
		if !r.Available {
			f.Actions[key] = nil
			f.Waypoints[key] = nil
			continue
		}
		fut := tr.Samples[r.Index].State

		ma, err := actions.Evaluate(cur, fut, b.thresholds)
		if err != nil {
			return LabeledFrame{}, fmt.Errorf("horizon %s: %w", key, err)
		}
		wp, err := waypoint(cur, fut, s.Calibration)
		if err != nil {
			return LabeledFrame{}, fmt.Errorf("horizon %s waypoint: %w", key, err)
		}
		f.Actions[key] = &ma
		f.Waypoints[key] = &wp
		f.HasFutureInScene = true
	}

	if withObjects {
		objs, err := b.objectWindow(tr, tl, i)
		if err != nil {
			return LabeledFrame{}, err
		}
		f.Objects = objs
	}
	return f, nil
}

func buildViews(tr Trajectory, i int, local geometry.ReferenceFrame, localErr error) (Views, error) {
	cur := tr.Samples[i].State
	if localErr != nil {
		return Views{}, fmt.Errorf("local reference: %w", localErr)
	}
	localState, err := cur.ChangeReference(local)
	if err != nil {
		return Views{}, fmt.Errorf("local view: %w", err)
	}

	// The first sample is its own reference, so its diff view is identity.
	prev := cur
	if i > 0 {
		prev = tr.Samples[i-1].State
	}
	diffRef, err := prev.AsReference()
	if err != nil {
		return Views{}, fmt.Errorf("diff reference: %w", err)
	}
	diffState, err := cur.ChangeReference(diffRef)
	if err != nil {
		return Views{}, fmt.Errorf("diff view: %w", err)
	}
	return Views{Global: cur, Local: localState, Diff: diffState}, nil
}

// waypoint places the future position in the camera frame when a
// calibration is available, otherwise in the current ego body frame.
func waypoint(cur, fut geometry.AgentState, calib *projection.Calibration) (Waypoint, error) {
	if calib != nil {
		return projection.ProjectWaypoint(fut.Position(), *calib)
	}
	ref, err := cur.AsReference()
	if err != nil {
		return Waypoint{}, err
	}
	p, err := ref.Static().PointToFrame(fut.Position())
	if err != nil {
		return Waypoint{}, err
	}
	return Waypoint{Frame: WaypointFrameEgo, Point: p}, nil
}

// objectWindow collects surrounding objects at the current sample and at
// every resolvable object offset, expressed in the current ego's static
// frame so their velocities stay absolute.
func (b *Builder) objectWindow(tr Trajectory, tl *horizon.Timeline, i int) (map[string]map[string]geometry.AgentState, error) {
	ref, err := tr.Samples[i].State.AsReference()
	if err != nil {
		return nil, fmt.Errorf("object reference: %w", err)
	}
	ref = ref.Static()

	present := horizon.Time(0)
	if b.objects.Mode() == horizon.ModeFrame {
		present = horizon.Frame(0)
	}
	res := append([]horizon.Resolution{{Horizon: present, Index: i, Available: true}}, b.objects.ResolveAll(tl, i)...)

	out := make(map[string]map[string]geometry.AgentState, len(res))
	for _, r := range res {
		if !r.Available {
			continue
		}
		observed := tr.Samples[r.Index].Objects
		window := make(map[string]geometry.AgentState, len(observed))
		for _, o := range observed {
			st, err := o.State.ChangeReference(ref)
			if err != nil {
				return nil, fmt.Errorf("object %s at %s: %w", o.TrackID, r.Horizon.Key(), err)
			}
			window[o.TrackID] = st
		}
		out[r.Horizon.Key()] = window
	}
	return out, nil
}

func hasObjects(tr Trajectory) bool {
	for _, s := range tr.Samples {
		if len(s.Objects) > 0 {
			return true
		}
	}
	return false
}
