package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/metalabel/internal/config"
	"github.com/banshee-data/metalabel/internal/export"
	"github.com/banshee-data/metalabel/internal/fsutil"
	"github.com/banshee-data/metalabel/internal/storage/sqlite"
)

// writeDump writes a one-scene dump where the ego drives straight at 5 m/s
// for n samples spaced 0.5s apart.
func writeDump(t *testing.T, dir string, n int) string {
	t.Helper()
	var samples []map[string]any
	for i := 0; i < n; i++ {
		ts := float64(i) * 0.5
		samples = append(samples, map[string]any{
			"frame":     i,
			"timestamp": ts,
			"position":  []float64{5 * ts, 0, 0},
			"velocity":  []float64{5, 0, 0},
			"attitude":  []float64{1, 0, 0, 0},
		})
	}
	dump := map[string]any{
		"dataset": "synthetic",
		"splits": map[string]any{
			"train": []any{map[string]any{
				"name":   "scene-0001",
				"agents": []any{map[string]any{"id": "ego", "samples": samples}},
			}},
			"val": []any{},
		},
	}
	data, err := json.Marshal(dump)
	require.NoError(t, err)
	path := filepath.Join(dir, "scenes.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "labeling.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	o, err := parseFlags([]string{"-input", "in.json", "-workers", "4", "-db", "x.db"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "in.json", o.input)
	assert.Equal(t, 4, o.workers)
	assert.Equal(t, "x.db", o.dbPath)
	assert.Equal(t, "labels/metalabel", o.outputPrefix)
	assert.Equal(t, 20, o.maxPlots)

	_, err = parseFlags([]string{"-nope"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = parseFlags([]string{"stray"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = parseFlags([]string{"-h"}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestRun_Version(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &out, &bytes.Buffer{}))
	assert.Contains(t, out.String(), "dev")
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := writeDump(t, dir, 4)

	err := run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "-input")

	err = run(context.Background(), []string{"-input", input, "-output-prefix", " "}, &bytes.Buffer{}, &bytes.Buffer{})
	var cerr *config.ConfigError
	require.True(t, errors.As(err, &cerr), "got %v", err)
	assert.Equal(t, "output_prefix", cerr.Field)

	bad := writeConfig(t, dir, `{"lateral_veer_deg": 30, "lateral_turn_deg": 20}`)
	err = run(context.Background(), []string{"-input", input, "-config", bad}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.True(t, errors.As(err, &cerr))

	err = run(context.Background(), []string{"-input", filepath.Join(dir, "missing.json")}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := writeDump(t, dir, 16)
	cfg := writeConfig(t, dir, `{"splits": ["train", "val"], "workers": 2}`)
	prefix := filepath.Join(dir, "out", "labels")
	dbPath := filepath.Join(dir, "runs.db")
	plots := filepath.Join(dir, "plots")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{
		"-input", input,
		"-config", cfg,
		"-output-prefix", prefix,
		"-db", dbPath,
		"-plots", plots,
	}, &out, &bytes.Buffer{}))
	assert.Contains(t, out.String(), "16 frames")

	osfs := fsutil.OSFileSystem{}
	train, err := export.ReadDocument(osfs, prefix+"_train.json")
	require.NoError(t, err)
	assert.Equal(t, "synthetic", train.Metadata.Dataset)
	assert.Equal(t, []string{"dt_2.00", "dt_4.00", "dt_6.00"}, train.Metadata.Horizons)
	assert.Equal(t, 16, train.Metadata.Frames)
	agent := train.Dataset["scene_0"]["agent_ego"]
	require.Len(t, agent, 16)

	first := agent["frame_0"]
	require.NotNil(t, first.MetaActions["dt_2.00"])
	assert.Equal(t, "STRAIGHT", first.MetaActions["dt_2.00"].Lateral)
	assert.Equal(t, "MAINTAIN", first.MetaActions["dt_2.00"].Longitudinal)
	assert.True(t, first.HasFutureInScene)
	last := agent[fmt.Sprintf("frame_%d", 15)]
	assert.Nil(t, last.MetaActions["dt_2.00"])
	assert.False(t, last.HasFutureInScene)

	val, err := export.ReadDocument(osfs, prefix+"_val.json")
	require.NoError(t, err)
	assert.Empty(t, val.Dataset)
	assert.Equal(t, train.Metadata.RunID, val.Metadata.RunID)

	store, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.GetRun(train.Metadata.RunID)
	require.NoError(t, err)
	assert.Equal(t, 16, got.Frames)
	assert.NotNil(t, got.FinishedAtNs)
	n, err := store.CountFrames(got.RunID)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	entries, err := os.ReadDir(plots)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "train_timeline.html")
	assert.Contains(t, strings.Join(names, ","), "ego.png")
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := writeDump(t, dir, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := run(ctx, []string{"-input", input, "-output-prefix", filepath.Join(dir, "out")}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}
