// Plant monitor reads the sensor on the serial port, stores every reading
// and serves them over HTTP.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/api"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/config"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/latest"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/logging"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/pathing"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/plantdb"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/port_reader"
	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", pathing.GetConfigPath(), "path to plant_monitor.toml")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	listen := flag.String("listen", "", "override listen address (host:port)")
	flag.Parse()

	if *listPorts {
		if err := printPorts(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(level, cfg.LogFormat, "plant_monitor")
	slog.SetDefault(logger)

	if err := run(cfg, *listen, level, logger); err != nil {
		logger.Error("plant monitor stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.PlantMonitorConfig, listenOverride string, level slog.Level, logger *slog.Logger) error {
	dbPath := cfg.DatabaseFile()
	var (
		db  *sql.DB
		err error
	)
	if level <= slog.LevelDebug {
		db, err = plantdb.OpenWithLogging(dbPath, logger)
	} else {
		db, err = plantdb.Open(dbPath)
	}
	if err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	defer db.Close()

	if err := plantdb.InitializeDatabase(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database ready", "path", dbPath)

	cache := latest.NewStore()
	store := plantdb.NewStore(db)

	reader := port_reader.NewSensorReader(port_reader.Options{
		Device:               cfg.SerialDevice,
		BaudRate:             cfg.Baudrate,
		ReadTimeout:          cfg.ReadTimeout(),
		ReadErrorBackoff:     cfg.ReadErrorBackoff(),
		ReconnectAfterErrors: cfg.ReconnectAfterErrors,
	}, cache, store, logger)

	// No retry on the first open. A missing sensor at boot is a setup error.
	if err := reader.Connect(); err != nil {
		return err
	}
	metrics.RegisterSet(reader.Metrics())

	addr := cfg.ListenAddr()
	if listenOverride != "" {
		addr = listenOverride
	}
	srv := api.NewServer(addr, api.Deps{
		Latest:   cache,
		Store:    store,
		Ingestor: reader,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reader.Run(ctx)
	})
	g.Go(func() error {
		return api.Serve(ctx, srv, logger)
	})

	err = g.Wait()
	logger.Info("shut down")
	return err
}

func printPorts() error {
	ports, err := port_reader.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		if p.IsUSB {
			fmt.Printf("%s\tUSB %s:%s\t%s\n", p.Name, p.VID, p.PID, p.Product)
		} else {
			fmt.Println(p.Name)
		}
	}
	return nil
}
