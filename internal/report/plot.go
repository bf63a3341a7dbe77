package report

import (
	"fmt"
	"image/color"
	"io"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/metalabel/internal/actions"
	"github.com/banshee-data/metalabel/internal/horizon"
	"github.com/banshee-data/metalabel/internal/labeling"
)

// lateralColors runs from blue (left) through grey to red (right).
var lateralColors = map[actions.Lateral]color.RGBA{
	actions.TurnLeft:        {R: 33, G: 102, B: 172, A: 255},
	actions.ChangeLaneLeft:  {R: 67, G: 147, B: 195, A: 255},
	actions.VeerLeft:        {R: 146, G: 197, B: 222, A: 255},
	actions.Straight:        {R: 120, G: 120, B: 120, A: 255},
	actions.VeerRight:       {R: 244, G: 165, B: 130, A: 255},
	actions.ChangeLaneRight: {R: 214, G: 96, B: 77, A: 255},
	actions.TurnRight:       {R: 178, G: 24, B: 43, A: 255},
}

var unavailableColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}

// Plot dimensions.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 8 * vg.Inch
)

// PlotTrajectory draws the agent's world path, colours each frame by its
// lateral label at horizonKey and marks the position the horizon resolved
// to. The PNG is written to w.
func PlotTrajectory(w io.Writer, af AgentFrames, horizonKey string) error {
	if len(af.Frames) == 0 {
		return fmt.Errorf("no frames for agent %s in scene %s", af.AgentID, af.Scene)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s / %s (%s)", af.Scene, af.AgentID, horizonKey)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	path := make(plotter.XYs, 0, len(af.Frames))
	byLabel := make(map[actions.Lateral]plotter.XYs)
	var unavailable, targets plotter.XYs
	for i, f := range af.Frames {
		pos := f.Views.Global.Position()
		path = append(path, plotter.XY{X: pos.X, Y: pos.Y})

		ma := f.Actions[horizonKey]
		if ma == nil {
			unavailable = append(unavailable, plotter.XY{X: pos.X, Y: pos.Y})
			continue
		}
		byLabel[ma.Lateral] = append(byLabel[ma.Lateral], plotter.XY{X: pos.X, Y: pos.Y})
		if t, ok := horizonTarget(af.Frames, i, horizonKey); ok {
			targets = append(targets, t)
		}
	}

	line, err := plotter.NewLine(path)
	if err != nil {
		return err
	}
	line.Color = color.Black
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("path", line)

	for _, l := range actions.AllLateral() {
		pts := byLabel[l]
		if len(pts) == 0 {
			continue
		}
		if err := addScatter(p, l.String(), pts, lateralColors[l], draw.CircleGlyph{}, 3); err != nil {
			return err
		}
	}
	if len(unavailable) > 0 {
		if err := addScatter(p, "unavailable", unavailable, unavailableColor, draw.RingGlyph{}, 3); err != nil {
			return err
		}
	}
	if len(targets) > 0 {
		if err := addScatter(p, "look-ahead", targets, color.RGBA{A: 255}, draw.CrossGlyph{}, 4); err != nil {
			return err
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func addScatter(p *plot.Plot, name string, pts plotter.XYs, c color.Color, shape draw.GlyphDrawer, radius float64) error {
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Shape = shape
	s.GlyphStyle.Radius = vg.Points(radius)
	p.Add(s)
	p.Legend.Add(name, s)
	return nil
}

// horizonTarget re-resolves the horizon among the labeled frames and
// returns the world position it lands on.
func horizonTarget(frames []labeling.LabeledFrame, i int, horizonKey string) (plotter.XY, bool) {
	h, err := horizon.ParseKey(horizonKey)
	if err != nil {
		return plotter.XY{}, false
	}
	var j int
	switch h.Mode {
	case horizon.ModeFrame:
		target := frames[i].Frame + h.Frames
		j = sort.Search(len(frames), func(k int) bool { return frames[k].Frame >= target })
		if j == len(frames) || frames[j].Frame != target {
			return plotter.XY{}, false
		}
	default:
		ts := make([]float64, len(frames))
		for k, f := range frames {
			ts[k] = f.Timestamp
		}
		var ok bool
		j, ok = horizon.Nearest(ts, frames[i].Timestamp+h.Seconds, horizon.DefaultTolerance)
		if !ok {
			return plotter.XY{}, false
		}
	}
	pos := frames[j].Views.Global.Position()
	return plotter.XY{X: pos.X, Y: pos.Y}, true
}
