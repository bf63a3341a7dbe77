package report

import "github.com/banshee-data/metalabel/internal/labeling"

// AgentFrames are the labeled frames of one agent in one scene, in frame
// order.
type AgentFrames struct {
	Split      string
	SceneIndex int
	Scene      string
	AgentID    string
	Frames     []labeling.LabeledFrame
}

// GroupByAgent splits a frame stream into per-agent runs. Frames arrive
// in scene, agent, frame order, so a new group starts whenever the split,
// scene or agent changes.
func GroupByAgent(frames []labeling.LabeledFrame) []AgentFrames {
	var out []AgentFrames
	for _, f := range frames {
		n := len(out)
		if n == 0 || out[n-1].Split != f.Split || out[n-1].SceneIndex != f.SceneIndex || out[n-1].AgentID != f.AgentID {
			out = append(out, AgentFrames{Split: f.Split, SceneIndex: f.SceneIndex, Scene: f.Scene, AgentID: f.AgentID})
			n++
		}
		out[n-1].Frames = append(out[n-1].Frames, f)
	}
	return out
}
