package dataset

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/metalabel/internal/fsutil"
)

// MaxDumpSize caps the size of a scene dump read into memory.
const MaxDumpSize = 512 * 1024 * 1024 // 512MB

// Dump is the root document of a scene dump.
type Dump struct {
	Dataset string                `json:"dataset"`
	Splits  map[string][]SceneDoc `json:"splits"`
}

// SceneDoc is one scene.
type SceneDoc struct {
	Name   string     `json:"name"`
	Agents []AgentDoc `json:"agents"`
}

// AgentDoc is one agent's trajectory within a scene.
type AgentDoc struct {
	ID      string      `json:"id"`
	Samples []SampleDoc `json:"samples"`
}

// SampleDoc is one timestep of an agent.
type SampleDoc struct {
	Frame     int                       `json:"frame"`
	Timestamp float64                   `json:"timestamp"`
	Position  [3]float64                `json:"position"`
	Velocity  *[3]float64               `json:"velocity,omitempty"`
	Attitude  *[4]float64               `json:"attitude,omitempty"` // [w, x, y, z]
	Extent    *[3]float64               `json:"extent,omitempty"`   // [length, width, height]
	Cameras   map[string]CalibrationDoc `json:"calibrations,omitempty"`
	Images    map[string]string         `json:"images,omitempty"`
	Objects   []ObjectDoc               `json:"objects,omitempty"`
}

// CalibrationDoc is the mount pose and projection matrix of one camera.
type CalibrationDoc struct {
	Origin   [3]float64    `json:"origin"`
	Attitude [4]float64    `json:"attitude"` // [w, x, y, z], body axes
	P        [3][4]float64 `json:"P"`
}

// ObjectDoc is a surrounding agent observed in a sample.
type ObjectDoc struct {
	TrackID  string      `json:"track_id"`
	Category string      `json:"category,omitempty"`
	Position [3]float64  `json:"position"`
	Velocity *[3]float64 `json:"velocity,omitempty"`
	Attitude *[4]float64 `json:"attitude,omitempty"`
	Extent   *[3]float64 `json:"extent,omitempty"`
}

// Load reads and validates a scene dump.
func Load(fsys fsutil.FileSystem, path string) (*Dump, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("scene dump must have .json extension, got %q", ext)
	}
	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scene dump: %w", err)
	}
	if info.Size() > MaxDumpSize {
		return nil, fmt.Errorf("scene dump too large: %d bytes (max %d)", info.Size(), MaxDumpSize)
	}
	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene dump: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scene dump document.
func Parse(data []byte) (*Dump, error) {
	var d Dump
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse scene dump: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ValidationError locates a structural problem in a dump.
type ValidationError struct {
	Path   string // e.g. splits.train[0].agents[1].samples[4]
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scene dump: %s: %s", e.Path, e.Reason)
}

// Validate checks ordering and identity constraints: agent IDs unique
// per scene, frame indices unique and timestamps non-decreasing per agent,
// object track IDs unique per sample.
func (d *Dump) Validate() error {
	if len(d.Splits) == 0 {
		return &ValidationError{Path: "splits", Reason: "no splits"}
	}
	for split, scenes := range d.Splits {
		for si, sc := range scenes {
			scenePath := fmt.Sprintf("splits.%s[%d]", split, si)
			if sc.Name == "" {
				return &ValidationError{Path: scenePath, Reason: "scene name is empty"}
			}
			agents := make(map[string]bool, len(sc.Agents))
			for ai, ag := range sc.Agents {
				agentPath := fmt.Sprintf("%s.agents[%d]", scenePath, ai)
				if ag.ID == "" || agents[ag.ID] {
					return &ValidationError{Path: agentPath, Reason: fmt.Sprintf("agent id %q is empty or repeated", ag.ID)}
				}
				agents[ag.ID] = true
				if err := validateSamples(agentPath, ag.Samples); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateSamples(agentPath string, samples []SampleDoc) error {
	frames := make(map[int]bool, len(samples))
	for i, s := range samples {
		path := fmt.Sprintf("%s.samples[%d]", agentPath, i)
		if frames[s.Frame] {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("frame %d repeated", s.Frame)}
		}
		frames[s.Frame] = true
		if i > 0 && s.Timestamp < samples[i-1].Timestamp {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("timestamp %v precedes %v", s.Timestamp, samples[i-1].Timestamp)}
		}
		tracks := make(map[string]bool, len(s.Objects))
		for oi, o := range s.Objects {
			if o.TrackID == "" || tracks[o.TrackID] {
				return &ValidationError{Path: fmt.Sprintf("%s.objects[%d]", path, oi), Reason: fmt.Sprintf("track id %q is empty or repeated", o.TrackID)}
			}
			tracks[o.TrackID] = true
		}
	}
	return nil
}
