package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/banshee-data/metalabel/internal/labeling"
)

// DefaultBatchSize is the number of frames a FrameWriter buffers before
// writing them in one transaction.
const DefaultBatchSize = 256

// FrameWriter stores labeled frames under one run. It implements
// labeling.Sink; frames are buffered and written in batches, so callers
// must Flush when the run ends.
type FrameWriter struct {
	store     *Store
	runID     string
	batchSize int

	mu      sync.Mutex
	pending []labeling.LabeledFrame
}

// FrameWriter returns a sink that writes frames under runID.
func (s *Store) FrameWriter(runID string) *FrameWriter {
	return &FrameWriter{store: s, runID: runID, batchSize: DefaultBatchSize}
}

// SetBatchSize changes the flush threshold. Values below 1 mean 1.
func (w *FrameWriter) SetBatchSize(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batchSize = max(n, 1)
}

// WriteFrame buffers f and flushes when the batch is full.
func (w *FrameWriter) WriteFrame(f labeling.LabeledFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, f)
	if len(w.pending) < w.batchSize {
		return nil
	}
	return w.flushLocked()
}

// Flush writes every buffered frame.
func (w *FrameWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *FrameWriter) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}
	tx, err := w.store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin frame batch: %w", err)
	}
	for _, f := range w.pending {
		if err := insertFrame(tx, w.runID, f); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit frame batch: %w", err)
	}
	w.pending = w.pending[:0]
	return nil
}

func insertFrame(tx *sql.Tx, runID string, f labeling.LabeledFrame) error {
	var images sql.NullString
	if len(f.Images) > 0 {
		data, err := json.Marshal(f.Images)
		if err != nil {
			return fmt.Errorf("marshal image paths: %w", err)
		}
		images = sql.NullString{String: string(data), Valid: true}
	}

	_, err := tx.Exec(`
		INSERT INTO labeled_frames (
			run_id, split, scene_index, scene, agent_id, frame, timestamp,
			has_future, speed_mps, yaw_rad, image_paths_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID, f.Split, f.SceneIndex, f.Scene, f.AgentID, f.Frame, f.Timestamp,
		boolInt(f.HasFutureInScene), f.Views.Global.Speed(), f.Views.Global.Yaw(), images,
	)
	if err != nil {
		return fmt.Errorf("insert labeled frame %s/%s/%d: %w", f.Scene, f.AgentID, f.Frame, err)
	}

	for _, key := range f.HorizonKeys {
		var lateral, longitudinal, wpFrame sql.NullString
		var x, y, z, u, v *float64
		if ma := f.Actions[key]; ma != nil {
			lateral = nullString(ma.Lateral.String())
			longitudinal = nullString(ma.Longitudinal.String())
		}
		if wp := f.Waypoints[key]; wp != nil {
			wpFrame = nullString(wp.Frame)
			x, y, z = &wp.Point.X, &wp.Point.Y, &wp.Point.Z
			if wp.Pixel != nil {
				u, v = &wp.Pixel.U, &wp.Pixel.V
			}
		}
		_, err := tx.Exec(`
			INSERT INTO horizon_labels (
				run_id, split, scene_index, agent_id, frame, horizon_key,
				lateral, longitudinal, waypoint_frame,
				waypoint_x, waypoint_y, waypoint_z, pixel_u, pixel_v
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID, f.Split, f.SceneIndex, f.AgentID, f.Frame, key,
			lateral, longitudinal, wpFrame,
			nullFloat64(x), nullFloat64(y), nullFloat64(z), nullFloat64(u), nullFloat64(v),
		)
		if err != nil {
			return fmt.Errorf("insert horizon label %s for %s/%s/%d: %w", key, f.Scene, f.AgentID, f.Frame, err)
		}
	}
	return nil
}
