package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/metalabel/internal/labeling"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("label run not found")

// Run is one labeling batch.
type Run struct {
	RunID         string          `json:"run_id"`
	Dataset       string          `json:"dataset"`
	HorizonMode   string          `json:"horizon_mode"`
	Horizons      []string        `json:"horizons"`
	ConfigJSON    json.RawMessage `json:"config_json,omitempty"`
	Version       string          `json:"version,omitempty"`
	CreatedAtNs   int64           `json:"created_at_ns"`
	FinishedAtNs  *int64          `json:"finished_at_ns,omitempty"`
	Frames        int             `json:"frames"`
	FrameErrors   int             `json:"frame_errors"`
	SkippedAgents int             `json:"skipped_agents"`
}

// InsertRun creates a run. If run.RunID is empty, a new UUID is generated.
func (s *Store) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = s.clock.Now().UnixNano()
	}
	horizons, err := json.Marshal(run.Horizons)
	if err != nil {
		return fmt.Errorf("marshal horizons: %w", err)
	}

	query := `
		INSERT INTO label_runs (
			run_id, dataset, horizon_mode, horizons_json, config_json,
			version, created_at_ns, finished_at_ns, frames, frame_errors,
			skipped_agents
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.Exec(query,
		run.RunID,
		run.Dataset,
		run.HorizonMode,
		string(horizons),
		nullString(string(run.ConfigJSON)),
		nullString(run.Version),
		run.CreatedAtNs,
		nullInt64(run.FinishedAtNs),
		run.Frames,
		run.FrameErrors,
		run.SkippedAgents,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the run with its completion time and the totals of
// summary.
func (s *Store) FinishRun(runID string, summary *labeling.RunSummary) error {
	now := s.clock.Now().UnixNano()
	res, err := s.db.Exec(`
		UPDATE label_runs
		SET finished_at_ns = ?, frames = frames + ?, frame_errors = frame_errors + ?,
		    skipped_agents = skipped_agents + ?
		WHERE run_id = ?
	`, now, summary.Frames, summary.FrameErrors, summary.SkippedAgents, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `
	run_id, dataset, horizon_mode, horizons_json, config_json, version,
	created_at_ns, finished_at_ns, frames, frame_errors, skipped_agents
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	r := &Run{}
	var horizons string
	var configJSON, version sql.NullString
	var finished sql.NullInt64
	err := row.Scan(
		&r.RunID, &r.Dataset, &r.HorizonMode, &horizons, &configJSON, &version,
		&r.CreatedAtNs, &finished, &r.Frames, &r.FrameErrors, &r.SkippedAgents,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(horizons), &r.Horizons); err != nil {
		return nil, fmt.Errorf("decode horizons of run %s: %w", r.RunID, err)
	}
	if configJSON.Valid {
		r.ConfigJSON = json.RawMessage(configJSON.String)
	}
	if version.Valid {
		r.Version = version.String
	}
	if finished.Valid {
		r.FinishedAtNs = &finished.Int64
	}
	return r, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM label_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM label_runs ORDER BY created_at_ns DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and, through cascading keys, its labels.
func (s *Store) DeleteRun(runID string) error {
	if _, err := s.db.Exec(`DELETE FROM label_runs WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
