package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/metalabel/internal/config"
	"github.com/banshee-data/metalabel/internal/fsutil"
	"github.com/banshee-data/metalabel/internal/geometry"
	"github.com/banshee-data/metalabel/internal/labeling"
)

// arcFrames labels an agent driving a left arc at 8 m/s.
func arcFrames(t *testing.T, split string, scene int, agent string) []labeling.LabeledFrame {
	t.Helper()
	const (
		speed   = 8.0
		yawRate = 0.2
		dt      = 0.5
	)
	tr := labeling.Trajectory{Split: split, SceneIndex: scene, Scene: fmt.Sprintf("scene-%04d", scene), AgentID: agent}
	for i := 0; i < 20; i++ {
		ts := float64(i) * dt
		yaw := yawRate * ts
		pos := r3.Vec{X: speed / yawRate * math.Sin(yaw), Y: speed / yawRate * (1 - math.Cos(yaw))}
		st := geometry.NewAgentState(ts, pos).
			WithVelocity(r3.Vec{X: speed * math.Cos(yaw), Y: speed * math.Sin(yaw)}).
			WithAttitude(geometry.FromYaw(yaw))
		tr.Samples = append(tr.Samples, labeling.Sample{Frame: i, State: st})
	}
	b, err := labeling.BuilderFromConfig(config.EmptyLabelingConfig())
	require.NoError(t, err)
	res, err := b.BuildTrajectory(tr)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	return res.Frames
}

func TestGroupByAgent(t *testing.T) {
	t.Parallel()

	var frames []labeling.LabeledFrame
	frames = append(frames, arcFrames(t, "train", 0, "ego")...)
	frames = append(frames, arcFrames(t, "train", 0, "car-1")...)
	frames = append(frames, arcFrames(t, "train", 1, "ego")...)
	frames = append(frames, arcFrames(t, "val", 0, "ego")...)

	groups := GroupByAgent(frames)
	require.Len(t, groups, 4)
	assert.Equal(t, "car-1", groups[1].AgentID)
	assert.Equal(t, 1, groups[2].SceneIndex)
	assert.Equal(t, "val", groups[3].Split)
	for _, g := range groups {
		assert.Len(t, g.Frames, 20)
	}
	assert.Empty(t, GroupByAgent(nil))
}

func TestPlotTrajectory(t *testing.T) {
	t.Parallel()

	af := GroupByAgent(arcFrames(t, "train", 0, "ego"))[0]
	var buf bytes.Buffer
	require.NoError(t, PlotTrajectory(&buf, af, "dt_2.00"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "output is a PNG")

	assert.Error(t, PlotTrajectory(&buf, AgentFrames{AgentID: "nobody"}, "dt_2.00"))
}

func TestHorizonTarget(t *testing.T) {
	t.Parallel()

	frames := arcFrames(t, "train", 0, "ego")
	xy, ok := horizonTarget(frames, 0, "dt_2.00")
	require.True(t, ok)
	want := frames[4].Views.Global.Position()
	assert.InDelta(t, want.X, xy.X, 1e-9)
	assert.InDelta(t, want.Y, xy.Y, 1e-9)

	xy, ok = horizonTarget(frames, 2, "frame_3")
	require.True(t, ok)
	assert.InDelta(t, frames[5].Views.Global.Position().X, xy.X, 1e-9)

	_, ok = horizonTarget(frames, 19, "dt_2.00")
	assert.False(t, ok)
	_, ok = horizonTarget(frames, 0, "bogus")
	assert.False(t, ok)
}

func TestRenderTimeline(t *testing.T) {
	t.Parallel()

	af := GroupByAgent(arcFrames(t, "train", 3, "ego"))[0]
	var buf bytes.Buffer
	require.NoError(t, RenderTimeline(&buf, []AgentFrames{af}, "dt_4.00"))
	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "scene-0003")
	assert.Contains(t, html, "dt_4.00")
}

func TestWriteReports(t *testing.T) {
	t.Parallel()

	var frames []labeling.LabeledFrame
	frames = append(frames, arcFrames(t, "train", 0, "ego")...)
	frames = append(frames, arcFrames(t, "train", 0, "car/1")...)
	frames = append(frames, arcFrames(t, "train", 1, "ego")...)

	fsys := fsutil.NewMemoryFileSystem()
	paths, err := WriteReports(fsys, frames, Options{Dir: "out/plots", HorizonKey: "dt_2.00", MaxAgents: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"out/plots/train_scene-0000_ego.png",
		"out/plots/train_scene-0000_car_1.png",
		"out/plots/train_timeline.html",
	}, paths)
	assert.Equal(t, 3, len(fsys.Under("out/plots")))

	data, err := fsys.ReadFile("out/plots/train_timeline.html")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "scene-0000"))

	_, err = WriteReports(fsys, frames, Options{})
	assert.Error(t, err)
}
