package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/metalabel/internal/actions"
	"github.com/banshee-data/metalabel/internal/config"
	"github.com/banshee-data/metalabel/internal/fsutil"
	"github.com/banshee-data/metalabel/internal/labeling"
	"github.com/banshee-data/metalabel/internal/monitoring"
	"github.com/banshee-data/metalabel/internal/projection"
	"github.com/banshee-data/metalabel/internal/timeutil"
	"github.com/banshee-data/metalabel/internal/units"
	"github.com/banshee-data/metalabel/internal/version"
)

// WaypointsReferenceMixed marks a split whose waypoints use more than one
// frame; waypoints_3d_frame then names the frame of each waypoint.
const WaypointsReferenceMixed = "mixed"

// Metadata is written alongside every split.
type Metadata struct {
	actions.ActionTable
	Dataset            string       `json:"dataset"`
	Split              string       `json:"split"`
	WaypointsReference string       `json:"waypoints_3d_reference"`
	HorizonMode        string       `json:"horizon_mode"`
	Horizons           []string     `json:"horizons"`
	SpeedUnits         string       `json:"speed_units"`
	Frames             int          `json:"frames"`
	RunID              string       `json:"run_id"`
	Version            version.Info `json:"version"`
	CreatedAt          string       `json:"created_at"`
}

// Document is the root of one split file.
type Document struct {
	Dataset  map[string]map[string]map[string]Record `json:"dataset"`
	Metadata Metadata                                `json:"metadata"`
}

// Options configures a Writer.
type Options struct {
	Prefix      string // Output path prefix; <prefix>_<split>.json
	Dataset     string
	HorizonMode string
	Horizons    []string
	SpeedUnits  string // Defaults to units.MPS
	RunID       string // Generated when empty
	FS          fsutil.FileSystem
	Clock       timeutil.Clock
}

// Writer buffers labeled frames per split and writes one document per
// split on Close. It implements labeling.Sink and is safe for concurrent
// use.
type Writer struct {
	mu     sync.Mutex
	opts   Options
	splits map[string]*Document
	frames map[string]map[string]bool // Waypoint frames seen per split
	paths  []string
	closed bool
}

// NewWriter validates opts and returns a Writer.
func NewWriter(opts Options) (*Writer, error) {
	if strings.TrimSpace(opts.Prefix) == "" {
		return nil, &config.ConfigError{Field: "output_prefix", Reason: "must not be empty"}
	}
	if opts.SpeedUnits == "" {
		opts.SpeedUnits = units.MPS
	}
	if !units.IsValid(opts.SpeedUnits) {
		return nil, &config.ConfigError{Field: "speed_units", Reason: fmt.Sprintf("must be one of: %s", units.GetValidUnitsString())}
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.FS == nil {
		opts.FS = fsutil.OSFileSystem{}
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	opts.Horizons = append([]string(nil), opts.Horizons...)
	return &Writer{opts: opts, splits: make(map[string]*Document), frames: make(map[string]map[string]bool)}, nil
}

// RunID identifies this export in every split's metadata.
func (w *Writer) RunID() string { return w.opts.RunID }

// Path returns the file a split is written to.
func (w *Writer) Path(split string) string {
	return fmt.Sprintf("%s_%s.json", w.opts.Prefix, split)
}

// AddSplit registers a split so that it is written even if no frame
// arrives for it.
func (w *Writer) AddSplit(split string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.split(split)
}

func (w *Writer) split(name string) *Document {
	doc, ok := w.splits[name]
	if !ok {
		doc = &Document{Dataset: make(map[string]map[string]map[string]Record)}
		w.splits[name] = doc
	}
	return doc
}

// WriteFrame buffers one frame under its split, scene and agent.
func (w *Writer) WriteFrame(f labeling.LabeledFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("export writer is closed")
	}

	doc := w.split(f.Split)
	sceneKey := fmt.Sprintf("scene_%d", f.SceneIndex)
	agentKey := "agent_" + f.AgentID
	scene, ok := doc.Dataset[sceneKey]
	if !ok {
		scene = make(map[string]map[string]Record)
		doc.Dataset[sceneKey] = scene
	}
	agent, ok := scene[agentKey]
	if !ok {
		agent = make(map[string]Record)
		scene[agentKey] = agent
	}
	frameKey := fmt.Sprintf("frame_%d", f.Frame)
	if _, dup := agent[frameKey]; dup {
		return fmt.Errorf("duplicate frame %s/%s/%s in split %s", sceneKey, agentKey, frameKey, f.Split)
	}
	agent[frameKey] = NewRecord(f, w.opts.SpeedUnits)
	doc.Metadata.Frames++
	for _, wp := range f.Waypoints {
		if wp == nil {
			continue
		}
		if w.frames[f.Split] == nil {
			w.frames[f.Split] = make(map[string]bool)
		}
		w.frames[f.Split][wp.Frame] = true
	}
	return nil
}

// Close writes every split document, creating parent directories as
// needed. Splits are written in name order. Calling Close twice is a
// no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	names := make([]string, 0, len(w.splits))
	for name := range w.splits {
		names = append(names, name)
	}
	sort.Strings(names)

	createdAt := timeutil.FormatRFC3339(w.opts.Clock.Now())
	for _, name := range names {
		doc := w.splits[name]
		doc.Metadata = w.metadata(name, doc.Metadata.Frames, createdAt)
		path := w.Path(name)
		if err := w.writeDocument(path, doc); err != nil {
			return err
		}
		w.paths = append(w.paths, path)
		monitoring.Logf("[Export] wrote split=%s frames=%d to %s", name, doc.Metadata.Frames, path)
	}
	return nil
}

// Paths lists the files written by Close.
func (w *Writer) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.paths...)
}

func (w *Writer) metadata(split string, frames int, createdAt string) Metadata {
	return Metadata{
		ActionTable:        actions.Table(),
		Dataset:            w.opts.Dataset,
		Split:              split,
		WaypointsReference: waypointsReference(w.frames[split]),
		HorizonMode:        w.opts.HorizonMode,
		Horizons:           w.opts.Horizons,
		SpeedUnits:         w.opts.SpeedUnits,
		Frames:             frames,
		RunID:              w.opts.RunID,
		Version:            version.Current(),
		CreatedAt:          createdAt,
	}
}

// waypointsReference names the single frame every waypoint of a split
// uses, or WaypointsReferenceMixed. A split without waypoints reports the
// camera frame.
func waypointsReference(seen map[string]bool) string {
	switch len(seen) {
	case 0:
		return projection.WaypointFrameCamera
	case 1:
		for frame := range seen {
			return frame
		}
	}
	return WaypointsReferenceMixed
}

func (w *Writer) writeDocument(path string, doc *Document) error {
	if err := fsutil.EnsureParent(w.opts.FS, path); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", path, err)
	}
	f, err := w.opts.FS.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := json.NewEncoder(f).Encode(doc); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// ReadDocument loads a split document back, mainly for inspection tools
// and tests.
func ReadDocument(fsys fsutil.FileSystem, path string) (*Document, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &doc, nil
}
