package export

import (
	"github.com/banshee-data/metalabel/internal/actions"
	"github.com/banshee-data/metalabel/internal/geometry"
	"github.com/banshee-data/metalabel/internal/labeling"
	"github.com/banshee-data/metalabel/internal/projection"
	"github.com/banshee-data/metalabel/internal/units"
)

// Record is the exported form of one labeled frame. Every horizon key is
// present in the per-horizon maps; unavailable horizons are null.
type Record struct {
	Frame            int                                    `json:"frame"`
	Timestamp        float64                                `json:"timestamp"`
	ImagePaths       map[string]string                      `json:"image_paths"`
	MetaActions      map[string]*ActionRecord               `json:"meta_actions"`
	HasFutureInScene bool                                   `json:"has_future_in_scene"`
	Waypoints3D      map[string]*[3]float64                 `json:"waypoints_3d"`
	WaypointsPixel   map[string]*projection.Pixel           `json:"waypoints_pixel"`
	WaypointFrames   map[string]*string                     `json:"waypoints_3d_frame"`
	AgentState       map[string]labeling.EgoView            `json:"agent_state"`
	Objects          map[string]map[string]labeling.EgoView `json:"objects,omitempty"`
}

// ActionRecord carries both the label names and their export codes.
type ActionRecord struct {
	Lateral          string `json:"lateral"`
	Longitudinal     string `json:"longitudinal"`
	LateralCode      int    `json:"lateral_code"`
	LongitudinalCode int    `json:"longitudinal_code"`
}

// NewActionRecord converts a meta-action; nil stays nil.
func NewActionRecord(ma *actions.MetaAction) *ActionRecord {
	if ma == nil {
		return nil
	}
	return &ActionRecord{
		Lateral:          ma.Lateral.String(),
		Longitudinal:     ma.Longitudinal.String(),
		LateralCode:      ma.Lateral.Code(),
		LongitudinalCode: ma.Longitudinal.Code(),
	}
}

// NewRecord converts a labeled frame. Speeds are reported in speedUnits;
// positions and velocities stay in metres and metres per second.
func NewRecord(f labeling.LabeledFrame, speedUnits string) Record {
	r := Record{
		Frame:            f.Frame,
		Timestamp:        f.Timestamp,
		ImagePaths:       f.Images,
		MetaActions:      make(map[string]*ActionRecord, len(f.HorizonKeys)),
		HasFutureInScene: f.HasFutureInScene,
		Waypoints3D:      make(map[string]*[3]float64, len(f.HorizonKeys)),
		WaypointsPixel:   make(map[string]*projection.Pixel, len(f.HorizonKeys)),
		WaypointFrames:   make(map[string]*string, len(f.HorizonKeys)),
		AgentState: map[string]labeling.EgoView{
			"global": summarize(f.Views.Global, speedUnits),
			"local":  summarize(f.Views.Local, speedUnits),
			"diff":   summarize(f.Views.Diff, speedUnits),
		},
	}
	if r.ImagePaths == nil {
		r.ImagePaths = map[string]string{}
	}

	for _, key := range f.HorizonKeys {
		r.MetaActions[key] = NewActionRecord(f.Actions[key])
		wp := f.Waypoints[key]
		if wp == nil {
			r.Waypoints3D[key] = nil
			r.WaypointsPixel[key] = nil
			r.WaypointFrames[key] = nil
			continue
		}
		p := [3]float64{wp.Point.X, wp.Point.Y, wp.Point.Z}
		frame := wp.Frame
		r.Waypoints3D[key] = &p
		r.WaypointsPixel[key] = wp.Pixel
		r.WaypointFrames[key] = &frame
	}

	if len(f.Objects) > 0 {
		r.Objects = make(map[string]map[string]labeling.EgoView, len(f.Objects))
		for key, window := range f.Objects {
			out := make(map[string]labeling.EgoView, len(window))
			for id, st := range window {
				out[id] = summarize(st, speedUnits)
			}
			r.Objects[key] = out
		}
	}
	return r
}

func summarize(st geometry.AgentState, speedUnits string) labeling.EgoView {
	v := labeling.Summarize(st)
	v.Speed = units.ConvertSpeed(v.Speed, speedUnits)
	return v
}
