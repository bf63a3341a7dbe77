package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/banshee-data/metalabel/internal/actions"
)

// HorizonLabel is one stored (frame, horizon) label. Lateral and
// Longitudinal are empty when the horizon was unavailable.
type HorizonLabel struct {
	Split         string
	SceneIndex    int
	Scene         string
	AgentID       string
	Frame         int
	Timestamp     float64
	HorizonKey    string
	Lateral       actions.Lateral
	Longitudinal  actions.Longitudinal
	WaypointFrame string
	Waypoint      *[3]float64
	Pixel         *[2]float64
}

// Available reports whether the horizon resolved.
func (l HorizonLabel) Available() bool { return l.Lateral != "" }

// LabelFilter narrows a label query. Empty fields match everything.
type LabelFilter struct {
	Split      string
	Scene      string
	AgentID    string
	HorizonKey string
}

// Labels returns the stored labels of a run in split, scene, agent, frame,
// horizon order.
func (s *Store) Labels(runID string, filter LabelFilter) ([]HorizonLabel, error) {
	where := []string{"h.run_id = ?"}
	args := []any{runID}
	for _, c := range []struct{ col, val string }{
		{"h.split", filter.Split},
		{"f.scene", filter.Scene},
		{"h.agent_id", filter.AgentID},
		{"h.horizon_key", filter.HorizonKey},
	} {
		if c.val != "" {
			where = append(where, c.col+" = ?")
			args = append(args, c.val)
		}
	}

	query := `
		SELECT h.split, h.scene_index, f.scene, h.agent_id, h.frame, f.timestamp,
		       h.horizon_key, h.lateral, h.longitudinal, h.waypoint_frame,
		       h.waypoint_x, h.waypoint_y, h.waypoint_z, h.pixel_u, h.pixel_v
		FROM horizon_labels h
		JOIN labeled_frames f
		  ON f.run_id = h.run_id AND f.split = h.split AND f.scene_index = h.scene_index
		 AND f.agent_id = h.agent_id AND f.frame = h.frame
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY h.split, h.scene_index, h.agent_id, h.frame, h.horizon_key
	`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var out []HorizonLabel
	for rows.Next() {
		var l HorizonLabel
		var lateral, longitudinal, wpFrame sql.NullString
		var x, y, z, u, v sql.NullFloat64
		err := rows.Scan(
			&l.Split, &l.SceneIndex, &l.Scene, &l.AgentID, &l.Frame, &l.Timestamp,
			&l.HorizonKey, &lateral, &longitudinal, &wpFrame,
			&x, &y, &z, &u, &v,
		)
		if err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		l.Lateral = actions.Lateral(lateral.String)
		l.Longitudinal = actions.Longitudinal(longitudinal.String)
		l.WaypointFrame = wpFrame.String
		if x.Valid && y.Valid && z.Valid {
			l.Waypoint = &[3]float64{x.Float64, y.Float64, z.Float64}
		}
		if u.Valid && v.Valid {
			l.Pixel = &[2]float64{u.Float64, v.Float64}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Histogram counts the labels of one horizon.
type Histogram struct {
	HorizonKey   string
	Lateral      map[actions.Lateral]int
	Longitudinal map[actions.Longitudinal]int
	Unavailable  int
}

// Total is the number of frames counted, available or not.
func (h *Histogram) Total() int {
	n := h.Unavailable
	for _, c := range h.Lateral {
		n += c
	}
	return n
}

// LabelHistogram counts lateral and longitudinal labels per horizon for a
// run, keyed by horizon key.
func (s *Store) LabelHistogram(runID string) (map[string]*Histogram, error) {
	rows, err := s.db.Query(`
		SELECT horizon_key, lateral, longitudinal, COUNT(*)
		FROM horizon_labels
		WHERE run_id = ?
		GROUP BY horizon_key, lateral, longitudinal
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("label histogram: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*Histogram)
	for rows.Next() {
		var key string
		var lateral, longitudinal sql.NullString
		var n int
		if err := rows.Scan(&key, &lateral, &longitudinal, &n); err != nil {
			return nil, fmt.Errorf("scan histogram row: %w", err)
		}
		h, ok := out[key]
		if !ok {
			h = &Histogram{
				HorizonKey:   key,
				Lateral:      make(map[actions.Lateral]int),
				Longitudinal: make(map[actions.Longitudinal]int),
			}
			out[key] = h
		}
		if !lateral.Valid {
			h.Unavailable += n
			continue
		}
		h.Lateral[actions.Lateral(lateral.String)] += n
		h.Longitudinal[actions.Longitudinal(longitudinal.String)] += n
	}
	return out, rows.Err()
}

// CountFrames returns the number of labeled frames stored for a run.
func (s *Store) CountFrames(runID string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM labeled_frames WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count frames: %w", err)
	}
	return n, nil
}
