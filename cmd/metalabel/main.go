// Command metalabel converts a scene dump into per-split meta-action label
// files, optionally recording the run in sqlite and rendering plots.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/metalabel/internal/config"
	"github.com/banshee-data/metalabel/internal/dataset"
	"github.com/banshee-data/metalabel/internal/export"
	"github.com/banshee-data/metalabel/internal/fsutil"
	"github.com/banshee-data/metalabel/internal/horizon"
	"github.com/banshee-data/metalabel/internal/labeling"
	"github.com/banshee-data/metalabel/internal/monitoring"
	"github.com/banshee-data/metalabel/internal/report"
	"github.com/banshee-data/metalabel/internal/storage/sqlite"
	"github.com/banshee-data/metalabel/internal/version"
)

type options struct {
	input        string
	configPath   string
	outputPrefix string
	dbPath       string
	plotsDir     string
	dataset      string
	workers      int
	maxPlots     int
	showVersion  bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("metalabel", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.input, "input", "", "Scene dump to label (JSON)")
	fs.StringVar(&o.configPath, "config", "", "Labeling config (JSON); defaults apply when omitted")
	fs.StringVar(&o.outputPrefix, "output-prefix", "labels/metalabel", "Output path prefix; writes <prefix>_<split>.json")
	fs.StringVar(&o.dbPath, "db", "", "Also record the run in this sqlite database")
	fs.StringVar(&o.plotsDir, "plots", "", "Render trajectory plots and timelines into this directory")
	fs.StringVar(&o.dataset, "dataset", "", "Dataset name override")
	fs.IntVar(&o.workers, "workers", 0, "Worker count override (0 keeps the config value)")
	fs.IntVar(&o.maxPlots, "max-plots", 20, "Agents plotted per split (0 plots all)")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("metalabel: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.Current())
		return nil
	}
	if opts.input == "" {
		return fmt.Errorf("-input is required")
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	builder, err := labeling.BuilderFromConfig(cfg)
	if err != nil {
		return err
	}

	osfs := fsutil.OSFileSystem{}
	dump, err := dataset.Load(osfs, opts.input)
	if err != nil {
		return err
	}
	if opts.dataset == "" && cfg.Dataset == nil && dump.Dataset != "" {
		cfg.Dataset = &dump.Dataset
	}

	writer, err := export.NewWriter(export.Options{
		Prefix:      opts.outputPrefix,
		Dataset:     cfg.GetDataset(),
		HorizonMode: string(builder.Mode()),
		Horizons:    builder.HorizonKeys(),
		SpeedUnits:  cfg.GetSpeedUnits(),
		FS:          osfs,
	})
	if err != nil {
		return err
	}
	sinks := labeling.MultiSink{writer}

	var (
		store  *sqlite.Store
		frames *sqlite.FrameWriter
	)
	if opts.dbPath != "" {
		store, err = sqlite.Open(opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		if err := store.InsertRun(&sqlite.Run{
			RunID:       writer.RunID(),
			Dataset:     cfg.GetDataset(),
			HorizonMode: string(builder.Mode()),
			Horizons:    builder.HorizonKeys(),
			ConfigJSON:  cfgJSON,
			Version:     version.Current().Version,
		}); err != nil {
			return err
		}
		frames = store.FrameWriter(writer.RunID())
		sinks = append(sinks, frames)
	}

	var mem *labeling.MemorySink
	if opts.plotsDir != "" {
		mem = &labeling.MemorySink{}
		sinks = append(sinks, mem)
	}

	batch := labeling.NewBatch(builder, cfg.GetWorkers())
	total := labeling.NewRunSummary()
	for _, split := range cfg.GetSplits() {
		if osfs.Exists(writer.Path(split)) {
			monitoring.Logf("[Metalabel] %s exists and will be overwritten", writer.Path(split))
		}
		writer.AddSplit(split)
		scenes, err := dump.Scenes(split, cfg.GetPrimarySensor())
		if err != nil {
			return err
		}
		stats := dataset.ComputeStats(scenes)
		stats.Log(split)
		if builder.Mode() == horizon.ModeFrame && stats.Irregular() {
			monitoring.Logf("[Metalabel] warning: split=%s sample spacing is irregular (cv=%.3f); frame horizons may not match a fixed time", split, stats.CV())
		}

		summary, err := batch.Run(ctx, scenes, sinks)
		if err != nil {
			return fmt.Errorf("split %s: %w", split, err)
		}
		summary.Log()
		total.Merge(summary)
	}

	if store != nil {
		if err := frames.Flush(); err != nil {
			return err
		}
		if err := store.FinishRun(writer.RunID(), total); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	if mem != nil {
		keys := builder.HorizonKeys()
		if _, err := report.WriteReports(osfs, mem.Frames(), report.Options{
			Dir:        opts.plotsDir,
			HorizonKey: keys[0],
			MaxAgents:  opts.maxPlots,
		}); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "run %s: %d frames (%d errors, %d skipped agents) -> %v\n",
		writer.RunID(), total.Frames, total.FrameErrors, total.SkippedAgents, writer.Paths())
	return nil
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(opts *options) (*config.LabelingConfig, error) {
	cfg := config.EmptyLabelingConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadLabelingConfig(opts.configPath); err != nil {
			return nil, err
		}
	}
	if opts.dataset != "" {
		cfg.Dataset = &opts.dataset
	}
	if opts.workers != 0 {
		cfg.Workers = &opts.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
