package labeling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/metalabel/internal/actions"
	"github.com/banshee-data/metalabel/internal/geometry"
	"github.com/banshee-data/metalabel/internal/monitoring"
	"github.com/banshee-data/metalabel/internal/timeutil"
)

func testScenes() []Scene {
	var scenes []Scene
	for s := 0; s < 3; s++ {
		sc := Scene{Split: "train", Index: s, Name: fmt.Sprintf("scene-%04d", s)}
		for a := 0; a < 5; a++ {
			tr := straightTrajectory(12, 0.5, float64(a+1), float64(s)*0.3)
			if a%2 == 1 {
				tr = turningTrajectory(12, 0.5, float64(a+2), 0.25)
			}
			tr.Split, tr.SceneIndex, tr.Scene = sc.Split, sc.Index, sc.Name
			tr.AgentID = fmt.Sprintf("agent-%d", a)
			sc.Trajectories = append(sc.Trajectories, tr)
		}
		scenes = append(scenes, sc)
	}
	return scenes
}

// The package logger is global, so tests that swap it do not run in
// parallel.
func muteLogs(t *testing.T) *monitoring.Recorder {
	t.Helper()
	original := monitoring.Logf
	rec := &monitoring.Recorder{}
	monitoring.SetLogger(rec.Logf)
	t.Cleanup(func() { monitoring.Logf = original })
	return rec
}

func TestBatch_DeterministicAcrossWorkers(t *testing.T) {
	muteLogs(t)
	b := defaultBuilder(t)
	scenes := testScenes()

	run := func(workers int) []LabeledFrame {
		sink := &MemorySink{}
		_, err := NewBatch(b, workers).Run(context.Background(), scenes, sink)
		require.NoError(t, err)
		return sink.Frames()
	}

	seq := run(1)
	par := run(4)
	require.Len(t, seq, 3*5*12)
	if diff := cmp.Diff(seq, par, cmp.AllowUnexported(geometry.AgentState{})); diff != "" {
		t.Errorf("parallel output differs from sequential (-seq +par):\n%s", diff)
	}

	// Scene, agent, frame order.
	assert.Equal(t, "scene-0000", seq[0].Scene)
	assert.Equal(t, "agent-0", seq[0].AgentID)
	assert.Equal(t, 0, seq[0].Frame)
	assert.Equal(t, "agent-1", seq[12].AgentID)
	assert.Equal(t, "scene-0002", seq[len(seq)-1].Scene)
	assert.Equal(t, 11, seq[len(seq)-1].Frame)
}

func TestBatch_SummaryAndLogging(t *testing.T) {
	rec := muteLogs(t)
	scenes := testScenes()

	// One malformed trajectory and one frame error.
	bad := &scenes[1].Trajectories[2]
	bad.Samples[3], bad.Samples[4] = bad.Samples[4], bad.Samples[3]
	broken := &scenes[2].Trajectories[0]
	s := broken.Samples[11].State
	q, _ := s.Attitude()
	broken.Samples[11].State = geometry.NewAgentState(s.Timestamp(), s.Position()).WithAttitude(q)

	clock := timeutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	clock.AutoStep(time.Second)
	bt := NewBatch(defaultBuilder(t), 2)
	bt.Clock = clock

	summary, err := bt.Run(context.Background(), scenes, &MemorySink{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scenes)
	assert.Equal(t, 15, summary.Agents)
	assert.Equal(t, 1, summary.SkippedAgents)
	// Frame 11 has no future, so only frames whose horizons land on it
	// fail: frame 7 (t=3.5, +2 s) and frame 3 (t=1.5, +4 s).
	assert.Equal(t, 2, summary.FrameErrors)
	assert.Equal(t, 14*12-2, summary.Frames)
	assert.Equal(t, time.Second, summary.Duration)

	// 12 samples over 5.5 s: dt_2 resolves for 8 frames, dt_6 for none.
	assert.Equal(t, 0, sumLateral(summary.Lateral["dt_6.00"]))
	assert.Equal(t, summary.Frames, summary.Unavailable["dt_6.00"])
	assert.Equal(t, summary.Frames-summary.Unavailable["dt_2.00"], sumLateral(summary.Lateral["dt_2.00"]))
	assert.Positive(t, summary.Lateral["dt_2.00"][actions.Straight])
	assert.Positive(t, summary.Lateral["dt_2.00"][actions.VeerLeft]+summary.Lateral["dt_2.00"][actions.TurnLeft])

	summary.Log()
	lines := strings.Join(rec.Lines(), "\n")
	assert.Contains(t, lines, "[Batch] skipping scene=scene-0001 agent=agent-2")
	assert.Contains(t, lines, "[Batch] frame error: scene scene-0002 agent agent-0 frame 3")
	assert.Contains(t, lines, "skipped_agents=1")
	assert.Contains(t, lines, "horizon=dt_2.00")
}

func sumLateral(h map[actions.Lateral]int) int {
	n := 0
	for _, v := range h {
		n += v
	}
	return n
}

func TestBatch_SinkErrorStopsRun(t *testing.T) {
	muteLogs(t)
	boom := errors.New("disk full")
	calls := 0
	sink := SinkFunc(func(f LabeledFrame) error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})

	_, err := NewBatch(defaultBuilder(t), 1).Run(context.Background(), testScenes(), sink)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 3, calls)
}

func TestBatch_Cancelled(t *testing.T) {
	muteLogs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &MemorySink{}
	_, err := NewBatch(defaultBuilder(t), 3).Run(ctx, testScenes(), sink)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, sink.Frames())
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	a, b := &MemorySink{}, &MemorySink{}
	failing := SinkFunc(func(LabeledFrame) error { return errors.New("nope") })

	err := MultiSink{a, failing, b}.WriteFrame(LabeledFrame{Frame: 7})
	assert.Error(t, err)
	require.Len(t, a.Frames(), 1)
	require.Len(t, b.Frames(), 1)
	assert.Equal(t, 7, b.Frames()[0].Frame)

	assert.NoError(t, MultiSink{a, b}.WriteFrame(LabeledFrame{}))
}

func TestRunSummary_Add(t *testing.T) {
	t.Parallel()

	s := NewRunSummary()
	straight := actions.MetaAction{Lateral: actions.Straight, Longitudinal: actions.Accel}
	s.Add(LabeledFrame{
		HorizonKeys:      []string{"dt_2.00", "dt_4.00"},
		Actions:          map[string]*actions.MetaAction{"dt_2.00": &straight, "dt_4.00": nil},
		HasFutureInScene: true,
	})
	s.Add(LabeledFrame{
		HorizonKeys: []string{"dt_2.00", "dt_4.00"},
		Actions:     map[string]*actions.MetaAction{"dt_2.00": nil, "dt_4.00": nil},
	})

	assert.Equal(t, 2, s.Frames)
	assert.Equal(t, 1, s.WithFuture)
	assert.Equal(t, 1, s.Unavailable["dt_2.00"])
	assert.Equal(t, 2, s.Unavailable["dt_4.00"])
	assert.Equal(t, 1, s.Lateral["dt_2.00"][actions.Straight])
	assert.Equal(t, 1, s.Longitudinal["dt_2.00"][actions.Accel])
}

func TestRunSummary_Merge(t *testing.T) {
	t.Parallel()

	straight := actions.MetaAction{Lateral: actions.Straight, Longitudinal: actions.Maintain}
	frame := LabeledFrame{
		HorizonKeys: []string{"dt_2.00", "dt_4.00"},
		Actions:     map[string]*actions.MetaAction{"dt_2.00": &straight, "dt_4.00": nil},
	}
	a, b := NewRunSummary(), NewRunSummary()
	a.Add(frame)
	b.Add(frame)
	b.Add(frame)
	b.FrameErrors, b.SkippedAgents, b.Duration = 1, 2, time.Second

	a.Merge(b)
	assert.Equal(t, 3, a.Frames)
	assert.Equal(t, 1, a.FrameErrors)
	assert.Equal(t, 2, a.SkippedAgents)
	assert.Equal(t, time.Second, a.Duration)
	assert.Equal(t, 3, a.Unavailable["dt_4.00"])
	assert.Equal(t, 3, a.Lateral["dt_2.00"][actions.Straight])
	assert.Equal(t, 3, a.Longitudinal["dt_2.00"][actions.Maintain])

	empty := NewRunSummary()
	empty.Merge(a)
	assert.Equal(t, a.Lateral, empty.Lateral)
}
