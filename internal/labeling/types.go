package labeling

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/metalabel/internal/actions"
	"github.com/banshee-data/metalabel/internal/geometry"
	"github.com/banshee-data/metalabel/internal/horizon"
	"github.com/banshee-data/metalabel/internal/projection"
)

// Waypoint is a future position in a named frame with an optional pixel.
type Waypoint = projection.Waypoint

// Waypoint frames. Camera waypoints use canonical camera axes; ego
// waypoints use the current agent's body axes and carry no pixel.
const (
	WaypointFrameCamera = projection.WaypointFrameCamera
	WaypointFrameEgo    = "ego"
)

// Object is a surrounding agent observed in a sample.
type Object struct {
	TrackID  string
	Category string
	State    geometry.AgentState
}

// Sample is one timestep of a trajectory.
type Sample struct {
	Frame       int
	State       geometry.AgentState
	Calibration *projection.Calibration // Primary camera; nil disables pixel waypoints
	Images      map[string]string       // Sensor name to image path
	Objects     []Object
}

// Timestamp is the sample time in seconds.
func (s Sample) Timestamp() float64 { return s.State.Timestamp() }

// Trajectory is the ordered sample sequence of one agent in one scene.
type Trajectory struct {
	Split      string
	SceneIndex int
	Scene      string
	AgentID    string
	Samples    []Sample
}

// Timeline indexes the trajectory for horizon resolution. It fails when
// timestamps decrease or frame indices repeat.
func (t Trajectory) Timeline() (*horizon.Timeline, error) {
	frames := make([]int, len(t.Samples))
	ts := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		frames[i] = s.Frame
		ts[i] = s.Timestamp()
	}
	tl, err := horizon.NewTimeline(frames, ts)
	if err != nil {
		return nil, fmt.Errorf("scene %s agent %s: %w", t.Scene, t.AgentID, err)
	}
	return tl, nil
}

// Scene groups the trajectories of one scene in a split.
type Scene struct {
	Split        string
	Index        int
	Name         string
	Trajectories []Trajectory
}

// Views are the three ego-state views of a labeled frame.
type Views struct {
	Global geometry.AgentState // World frame
	Local  geometry.AgentState // Static frame at the trajectory's first pose
	Diff   geometry.AgentState // Previous sample's moving frame; identity at the first sample
}

// LabeledFrame is the output record for one (scene, agent, frame).
// Actions and Waypoints hold a nil entry for every unavailable horizon,
// so len(Actions) always equals the number of configured horizons.
type LabeledFrame struct {
	Split            string
	SceneIndex       int
	Scene            string
	AgentID          string
	Frame            int
	Timestamp        float64
	Views            Views
	HorizonKeys      []string
	Actions          map[string]*actions.MetaAction
	Waypoints        map[string]*Waypoint
	HasFutureInScene bool
	Images           map[string]string
	// Objects maps an offset key to the surrounding objects observed at
	// that offset, keyed by track ID and expressed in the ego frame. Keys
	// for unresolved offsets are absent.
	Objects map[string]map[string]geometry.AgentState
}

// EgoView is the export summary of one ego view. HasVelocity and
// HasAttitude tell a measured zero apart from an unset component.
type EgoView struct {
	Position    [3]float64 `json:"position"`
	Velocity    [3]float64 `json:"velocity"`
	Speed       float64    `json:"speed"`
	Attitude    [4]float64 `json:"attitude"` // [w, x, y, z]
	Yaw         float64    `json:"yaw"`      // radians
	HasVelocity bool       `json:"has_velocity"`
	HasAttitude bool       `json:"has_attitude"`
}

// Summarize reduces a state to its export summary. Unset velocity and
// attitude export as zero and identity with their Has flag false.
func Summarize(s geometry.AgentState) EgoView {
	v, hasVel := s.Velocity()
	q, hasAtt := s.Attitude()
	if !hasAtt {
		q = geometry.Identity
	}
	return EgoView{
		Position:    vecArray(s.Position()),
		Velocity:    vecArray(v),
		Speed:       s.Speed(),
		Attitude:    geometry.WXYZ(q),
		Yaw:         s.Yaw(),
		HasVelocity: hasVel,
		HasAttitude: hasAtt,
	}
}

func vecArray(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }
