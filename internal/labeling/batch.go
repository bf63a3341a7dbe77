package labeling

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/metalabel/internal/monitoring"
	"github.com/banshee-data/metalabel/internal/timeutil"
)

// Batch runs a Builder over scenes and hands the labeled frames to a Sink.
//
// Scenes are processed one at a time. Within a scene the agents are
// labeled by up to Workers goroutines, each writing into its own result
// slot, and the slots are drained in agent order. Output order therefore
// never depends on scheduling, and Workers == 1 is fully sequential.
type Batch struct {
	Builder *Builder
	Workers int
	Clock   timeutil.Clock
}

// NewBatch returns a Batch with a real clock.
func NewBatch(b *Builder, workers int) *Batch {
	if workers < 1 {
		workers = 1
	}
	return &Batch{Builder: b, Workers: workers, Clock: timeutil.RealClock{}}
}

type agentResult struct {
	result TrajectoryResult
	err    error
}

// Run labels every scene. Frame errors and malformed trajectories are
// logged and counted; only sink failures and context cancellation stop
// the run. Cancellation is checked between agents.
func (bt *Batch) Run(ctx context.Context, scenes []Scene, sink Sink) (*RunSummary, error) {
	clock := bt.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	start := clock.Now()
	summary := NewRunSummary()

	for _, sc := range scenes {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		results, err := bt.labelScene(ctx, sc)
		if err != nil {
			return summary, err
		}

		summary.Scenes++
		for i, r := range results {
			tr := sc.Trajectories[i]
			summary.Agents++
			if r.err != nil {
				summary.SkippedAgents++
				monitoring.Logf("[Batch] skipping scene=%s agent=%s: %v", tr.Scene, tr.AgentID, r.err)
				continue
			}
			for j := range r.result.Errors {
				fe := &r.result.Errors[j]
				summary.FrameErrors++
				monitoring.Logf("[Batch] frame error: %v", fe)
			}
			for _, f := range r.result.Frames {
				if err := sink.WriteFrame(f); err != nil {
					return summary, fmt.Errorf("write scene %s agent %s frame %d: %w", f.Scene, f.AgentID, f.Frame, err)
				}
				summary.Add(f)
			}
		}
		monitoring.Logf("[Batch] split=%s scene=%s (%d) agents=%d", sc.Split, sc.Name, sc.Index, len(sc.Trajectories))
	}

	summary.Duration = clock.Since(start)
	return summary, nil
}

func (bt *Batch) labelScene(ctx context.Context, sc Scene) ([]agentResult, error) {
	results := make([]agentResult, len(sc.Trajectories))
	workers := bt.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sc.Trajectories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := bt.Builder.BuildTrajectory(sc.Trajectories[i])
			results[i] = agentResult{result: res, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
