package sqlite

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/metalabel/internal/actions"
	"github.com/banshee-data/metalabel/internal/geometry"
	"github.com/banshee-data/metalabel/internal/labeling"
	"github.com/banshee-data/metalabel/internal/projection"
	"github.com/banshee-data/metalabel/internal/timeutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "labels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.SetClock(timeutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	return s
}

func labeledFrame(scene int, agent string, frame int, lat actions.Lateral, lon actions.Longitudinal) labeling.LabeledFrame {
	st := geometry.NewAgentState(float64(frame)*0.5, r3.Vec{X: float64(frame)}).
		WithVelocity(r3.Vec{X: 2}).
		WithAttitude(geometry.Identity)
	ma := actions.MetaAction{Lateral: lat, Longitudinal: lon}
	return labeling.LabeledFrame{
		Split:       "train",
		SceneIndex:  scene,
		Scene:       []string{"scene-0061", "scene-0103"}[scene],
		AgentID:     agent,
		Frame:       frame,
		Timestamp:   st.Timestamp(),
		Views:       labeling.Views{Global: st, Local: st, Diff: st},
		HorizonKeys: []string{"dt_2.00", "dt_4.00"},
		Actions:     map[string]*actions.MetaAction{"dt_2.00": &ma, "dt_4.00": nil},
		Waypoints: map[string]*labeling.Waypoint{
			"dt_2.00": {Frame: labeling.WaypointFrameCamera, Point: r3.Vec{Z: 4}, Pixel: &projection.Pixel{U: 800, V: 450}},
			"dt_4.00": nil,
		},
		HasFutureInScene: true,
		Images:           map[string]string{"main_camera": "a.jpg"},
	}
}

func TestOpen_MigratesToLatest(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	v, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(LatestVersion), v)

	var journal string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	require.NoError(t, s.MigrateDown())
	v, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(LatestVersion-1), v)
	require.NoError(t, s.MigrateUp())
}

func TestRuns(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	run := &Run{
		Dataset:     "nuscenes",
		HorizonMode: "time",
		Horizons:    []string{"dt_2.00", "dt_4.00"},
		ConfigJSON:  json.RawMessage(`{"horizons_s":[2,4]}`),
		Version:     "dev",
	}
	require.NoError(t, s.InsertRun(run))
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano(), run.CreatedAtNs)

	got, err := s.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.Horizons, got.Horizons)
	assert.JSONEq(t, `{"horizons_s":[2,4]}`, string(got.ConfigJSON))
	assert.Nil(t, got.FinishedAtNs)

	summary := labeling.NewRunSummary()
	summary.Frames, summary.FrameErrors, summary.SkippedAgents = 10, 2, 1
	require.NoError(t, s.FinishRun(run.RunID, summary))
	got, err = s.GetRun(run.RunID)
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAtNs)
	assert.Equal(t, 10, got.Frames)
	assert.Equal(t, 2, got.FrameErrors)
	assert.Equal(t, 1, got.SkippedAgents)

	_, err = s.GetRun("missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(s.FinishRun("missing", summary), ErrRunNotFound))

	require.NoError(t, s.InsertRun(&Run{RunID: "second", Dataset: "nuscenes", HorizonMode: "frame", CreatedAtNs: run.CreatedAtNs + 1}))
	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].RunID)

	assert.Error(t, s.InsertRun(&Run{RunID: "second"}), "duplicate run id")
}

func TestFrameWriter_LabelsAndHistogram(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	run := &Run{Dataset: "nuscenes", HorizonMode: "time", Horizons: []string{"dt_2.00", "dt_4.00"}}
	require.NoError(t, s.InsertRun(run))

	w := s.FrameWriter(run.RunID)
	w.SetBatchSize(2)
	var sink labeling.Sink = w
	require.NoError(t, sink.WriteFrame(labeledFrame(0, "ego", 0, actions.Straight, actions.Maintain)))
	require.NoError(t, sink.WriteFrame(labeledFrame(0, "ego", 1, actions.VeerLeft, actions.Accel)))
	require.NoError(t, sink.WriteFrame(labeledFrame(1, "ped-7", 0, actions.Straight, actions.Decel)))

	// Two frames went out with the first batch; the third waits for Flush.
	n, err := s.CountFrames(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, w.Flush())
	n, err = s.CountFrames(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := s.Labels(run.RunID, LabelFilter{})
	require.NoError(t, err)
	require.Len(t, all, 6)
	first := all[0]
	assert.Equal(t, "scene-0061", first.Scene)
	assert.Equal(t, "dt_2.00", first.HorizonKey)
	assert.True(t, first.Available())
	assert.Equal(t, actions.Straight, first.Lateral)
	assert.Equal(t, "camera", first.WaypointFrame)
	assert.Equal(t, &[3]float64{0, 0, 4}, first.Waypoint)
	assert.Equal(t, &[2]float64{800, 450}, first.Pixel)
	assert.False(t, all[1].Available())
	assert.Nil(t, all[1].Waypoint)

	ped, err := s.Labels(run.RunID, LabelFilter{Scene: "scene-0103", HorizonKey: "dt_2.00"})
	require.NoError(t, err)
	require.Len(t, ped, 1)
	assert.Equal(t, "ped-7", ped[0].AgentID)
	assert.Equal(t, actions.Decel, ped[0].Longitudinal)

	hist, err := s.LabelHistogram(run.RunID)
	require.NoError(t, err)
	require.Contains(t, hist, "dt_2.00")
	h2 := hist["dt_2.00"]
	assert.Equal(t, 2, h2.Lateral[actions.Straight])
	assert.Equal(t, 1, h2.Lateral[actions.VeerLeft])
	assert.Equal(t, 1, h2.Longitudinal[actions.Accel])
	assert.Equal(t, 0, h2.Unavailable)
	assert.Equal(t, 3, h2.Total())
	assert.Equal(t, 3, hist["dt_4.00"].Unavailable)

	// Writing the same frame twice violates the primary key.
	require.NoError(t, w.WriteFrame(labeledFrame(0, "ego", 0, actions.Straight, actions.Maintain)))
	assert.Error(t, w.Flush())

	require.NoError(t, s.DeleteRun(run.RunID))
	n, err = s.CountFrames(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
