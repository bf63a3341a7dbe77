package dataset

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/metalabel/internal/geometry"
	"github.com/banshee-data/metalabel/internal/labeling"
	"github.com/banshee-data/metalabel/internal/projection"
)

// SplitNames returns the splits present in the dump, sorted.
func (d *Dump) SplitNames() []string {
	names := make([]string, 0, len(d.Splits))
	for name := range d.Splits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scenes converts one split into labeling scenes, preserving scene and
// agent order. Only the primary sensor's calibration is used for
// waypoints; image paths of every camera are passed through. A split
// missing from the dump yields no scenes.
//
// Agent attitudes are carried as given so that malformed quaternions
// surface as frame-scoped errors during labeling. Calibrations are
// validated here: a bad camera mount or projection matrix fails the
// conversion.
func (d *Dump) Scenes(split, primarySensor string) ([]labeling.Scene, error) {
	docs := d.Splits[split]
	scenes := make([]labeling.Scene, 0, len(docs))
	for si, sd := range docs {
		sc := labeling.Scene{Split: split, Index: si, Name: sd.Name}
		for _, ad := range sd.Agents {
			tr := labeling.Trajectory{
				Split:      split,
				SceneIndex: si,
				Scene:      sd.Name,
				AgentID:    ad.ID,
				Samples:    make([]labeling.Sample, 0, len(ad.Samples)),
			}
			for i, s := range ad.Samples {
				sample, err := convertSample(s, primarySensor)
				if err != nil {
					return nil, fmt.Errorf("splits.%s[%d].agents[%s].samples[%d]: %w", split, si, ad.ID, i, err)
				}
				tr.Samples = append(tr.Samples, sample)
			}
			sc.Trajectories = append(sc.Trajectories, tr)
		}
		scenes = append(scenes, sc)
	}
	return scenes, nil
}

func convertSample(s SampleDoc, primarySensor string) (labeling.Sample, error) {
	out := labeling.Sample{
		Frame:  s.Frame,
		State:  agentState(s.Timestamp, s.Position, s.Velocity, s.Attitude, s.Extent),
		Images: s.Images,
	}
	if c, ok := s.Cameras[primarySensor]; ok {
		calib, err := convertCalibration(primarySensor, c)
		if err != nil {
			return labeling.Sample{}, err
		}
		out.Calibration = &calib
	}
	for _, o := range s.Objects {
		out.Objects = append(out.Objects, labeling.Object{
			TrackID:  o.TrackID,
			Category: o.Category,
			State:    agentState(s.Timestamp, o.Position, o.Velocity, o.Attitude, o.Extent),
		})
	}
	return out, nil
}

func agentState(ts float64, pos [3]float64, vel *[3]float64, att *[4]float64, ext *[3]float64) geometry.AgentState {
	st := geometry.NewAgentState(ts, vec(pos))
	if vel != nil {
		st = st.WithVelocity(vec(*vel))
	}
	if att != nil {
		st = st.WithAttitude(geometry.FromWXYZ(*att))
	}
	if ext != nil {
		st = st.WithExtent(geometry.Extent{Length: ext[0], Width: ext[1], Height: ext[2]})
	}
	return st
}

func convertCalibration(sensor string, c CalibrationDoc) (projection.Calibration, error) {
	ref, err := geometry.NewStaticFrame(vec(c.Origin), geometry.FromWXYZ(c.Attitude))
	if err != nil {
		return projection.Calibration{}, fmt.Errorf("calibration %s: %w", sensor, err)
	}
	data := make([]float64, 0, 12)
	for _, row := range c.P {
		data = append(data, row[:]...)
	}
	calib, err := projection.NewCalibration(sensor, ref, mat.NewDense(3, 4, data))
	if err != nil {
		return projection.Calibration{}, fmt.Errorf("calibration %s: %w", sensor, err)
	}
	return calib, nil
}

func vec(a [3]float64) r3.Vec { return r3.Vec{X: a[0], Y: a[1], Z: a[2]} }
