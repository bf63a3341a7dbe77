package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/metalabel/internal/fsutil"
	"github.com/banshee-data/metalabel/internal/labeling"
	"github.com/banshee-data/metalabel/internal/monitoring"
	"github.com/banshee-data/metalabel/internal/security"
)

// Options controls WriteReports.
type Options struct {
	Dir        string
	HorizonKey string
	MaxAgents  int // Agents plotted per split; 0 means all
}

// WriteReports renders a PNG per agent and one timeline page per split
// under opts.Dir and returns the paths written, in order.
func WriteReports(fsys fsutil.FileSystem, frames []labeling.LabeledFrame, opts Options) ([]string, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("report directory is empty")
	}
	if err := fsys.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}

	var written []string
	bySplit := make(map[string][]AgentFrames)
	var splits []string
	for _, af := range GroupByAgent(frames) {
		if opts.MaxAgents > 0 && len(bySplit[af.Split]) >= opts.MaxAgents {
			continue
		}
		if _, seen := bySplit[af.Split]; !seen {
			splits = append(splits, af.Split)
		}
		bySplit[af.Split] = append(bySplit[af.Split], af)

		name := security.JoinFilename(af.Split, af.Scene, af.AgentID) + ".png"
		path := filepath.Join(opts.Dir, name)
		if err := writeFile(fsys, path, func(w io.Writer) error { return PlotTrajectory(w, af, opts.HorizonKey) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	for _, split := range splits {
		path := filepath.Join(opts.Dir, security.JoinFilename(split, "timeline")+".html")
		agents := bySplit[split]
		if err := writeFile(fsys, path, func(w io.Writer) error { return RenderTimeline(w, agents, opts.HorizonKey) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	monitoring.Logf("[Report] wrote %d files to %s", len(written), opts.Dir)
	return written, nil
}

func writeFile(fsys fsutil.FileSystem, path string, render func(io.Writer) error) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}
