package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	shellbus "github.com/wrenshell/wren/internal/api/dbus"
	"github.com/wrenshell/wren/internal/domain/bridge"
	"github.com/wrenshell/wren/internal/infrastructure/config"
	"github.com/wrenshell/wren/internal/infrastructure/logging"
	"github.com/wrenshell/wren/internal/infrastructure/monitoring"
	"github.com/wrenshell/wren/internal/shell"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	// Flags override the environment.
	flag.StringVar(&cfg.Shell.ConfigDir, "config", cfg.Shell.ConfigDir, "configuration directory")
	flag.StringVar(&cfg.Shell.Entry, "entry", cfg.Shell.Entry, "config entry file, relative to the config directory")
	flag.StringVar(&cfg.Bus.Name, "bus-name", cfg.Bus.Name, "well-known bus name to claim")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "development logging")
	flag.BoolVar(&cfg.Metrics.Enabled, "metrics", cfg.Metrics.Enabled, "serve Prometheus metrics")
	flag.Parse()

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid logging configuration:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("shell failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	var metrics *monitoring.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetrics()
		go serveMetrics(cfg.Metrics.Addr, metrics, logger)
	}

	be, err := newBackend(logger)
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}

	app := shell.New(shell.Options{
		Backend: be,
		Logger:  logger,
		Metrics: metrics,
	})

	svc, err := shellbus.Connect(cfg.Bus.Name, cfg.Bus.ObjectPath, logger.Named("dbus"), metrics)
	if err != nil {
		return err
	}
	defer svc.Close()

	b := bridge.New(app, app.Engine(), svc.Replier(), logger.Named("bridge")).
		WithMetrics(metrics)

	// Claim the name before touching any window so a second instance dies
	// without side effects.
	if err := svc.Serve(b); err != nil {
		return err
	}

	if err := app.LoadConfig(cfg.EntryPath()); err != nil {
		app.Abort()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		app.Quit()
	}()

	logger.Info("shell ready",
		zap.String("config", cfg.EntryPath()),
		zap.String("bus", cfg.Bus.Name),
	)
	app.Run()
	<-app.Done()
	return nil
}

func serveMetrics(addr string, metrics *monitoring.Metrics, logger *logging.Logger) {
	go func() {
		for range time.Tick(15 * time.Second) {
			metrics.UpdateUptime()
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics listener failed", zap.Error(err))
	}
}
