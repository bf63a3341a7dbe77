package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/metalabel/internal/units"
)

// missing is how echarts marks a gap in a series.
const missing = "-"

// TimelineChart charts one agent over time: per-frame yaw change (diff
// view, degrees), speed (m/s) and the lateral and longitudinal label codes
// at horizonKey. Unavailable labels leave gaps.
func TimelineChart(af AgentFrames, horizonKey string) *charts.Line {
	x := make([]string, 0, len(af.Frames))
	dyaw := make([]opts.LineData, 0, len(af.Frames))
	speed := make([]opts.LineData, 0, len(af.Frames))
	lateral := make([]opts.LineData, 0, len(af.Frames))
	longitudinal := make([]opts.LineData, 0, len(af.Frames))

	for _, f := range af.Frames {
		x = append(x, strconv.FormatFloat(f.Timestamp, 'f', 2, 64))
		dyaw = append(dyaw, opts.LineData{Value: units.RadToDeg(f.Views.Diff.Yaw())})
		speed = append(speed, opts.LineData{Value: f.Views.Global.Speed()})
		if ma := f.Actions[horizonKey]; ma != nil {
			lateral = append(lateral, opts.LineData{Value: ma.Lateral.Code(), Name: ma.Lateral.String()})
			longitudinal = append(longitudinal, opts.LineData{Value: ma.Longitudinal.Code(), Name: ma.Longitudinal.String()})
		} else {
			lateral = append(lateral, opts.LineData{Value: missing})
			longitudinal = append(longitudinal, opts.LineData{Value: missing})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s / %s", af.Scene, af.AgentID),
			Subtitle: fmt.Sprintf("split=%s frames=%d horizon=%s", af.Split, len(af.Frames), horizonKey),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(x).
		AddSeries("Δyaw (deg)", dyaw).
		AddSeries("speed (m/s)", speed).
		AddSeries("lateral "+horizonKey, lateral).
		AddSeries("longitudinal "+horizonKey, longitudinal)
	return line
}

// RenderTimeline writes an HTML page with one timeline per agent.
func RenderTimeline(w io.Writer, agents []AgentFrames, horizonKey string) error {
	page := components.NewPage()
	for _, af := range agents {
		page.AddCharts(TimelineChart(af, horizonKey))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render timeline: %w", err)
	}
	return nil
}
