// Plant replay feeds captured serial output through the ingest pipeline.
// Readings go to the database, or to stdout as JSON with -dry-run.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/config"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/latest"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/logging"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/pathing"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/plantdb"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/port_reader"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/types"
)

// stdoutSink prints readings instead of storing them.
type stdoutSink struct {
	w io.Writer
}

func (s stdoutSink) InsertReading(_ context.Context, reading types.PlantReading) error {
	_, err := fmt.Fprintln(s.w, string(reading.ToJsonBytes()))
	return err
}

func main() {
	configPath := flag.String("config", pathing.GetConfigPath(), "path to plant_monitor.toml")
	dbPath := flag.String("db", "", "database file (defaults to the configured one)")
	dryRun := flag.Bool("dry-run", false, "print readings as JSON instead of storing them")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] capture.log [more.log ...]\n", os.Args[0])
		fmt.Fprintln(flag.CommandLine.Output(), "Use - to read from stdin.")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	format := logging.FormatText
	var cfg *config.PlantMonitorConfig
	if !*dryRun {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		level, _ = logging.ParseLevel(cfg.LogLevel)
		format = cfg.LogFormat
	}
	// stdout carries the -dry-run output
	logger := logging.NewWithWriter(os.Stderr, level, format, "plant_replay")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sink port_reader.ReadingSink = stdoutSink{w: os.Stdout}
	if !*dryRun {
		path := *dbPath
		if path == "" {
			path = cfg.DatabaseFile()
		}
		db, err := plantdb.Open(path)
		if err != nil {
			logger.Error("failed to open database", "path", path, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := plantdb.InitializeDatabase(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		sink = plantdb.NewStore(db)
	}

	reader := port_reader.NewSensorReader(port_reader.Options{}, latest.NewStore(), sink, logger)

	failed := false
	for _, name := range flag.Args() {
		summary, err := replayFile(ctx, reader, name)
		if err != nil {
			logger.Error("replay failed", "file", name, "error", err)
			failed = true
			continue
		}
		logger.Info("replayed capture",
			"file", name,
			"lines", summary.Lines,
			"readings", summary.Readings,
			"unrecognized", summary.Unrecognized,
			"parse_errors", summary.ParseErrors,
			"decode_errors", summary.DecodeErrors,
			"persist_errors", summary.PersistErrors,
		)
	}
	if failed {
		os.Exit(1)
	}
}

func replayFile(ctx context.Context, reader *port_reader.SensorReader, name string) (port_reader.ReplaySummary, error) {
	if name == "-" {
		return reader.Replay(ctx, os.Stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return port_reader.ReplaySummary{}, err
	}
	defer f.Close()
	return reader.Replay(ctx, f)
}
