// Package main is the entry point for the virtustack simulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/virtustack/virtustack/internal/config"
	"github.com/virtustack/virtustack/internal/domain"
	"github.com/virtustack/virtustack/internal/hypervisor"
	"github.com/virtustack/virtustack/internal/server"
	"github.com/virtustack/virtustack/internal/services/compute"
	"github.com/virtustack/virtustack/internal/services/streaming"
	"github.com/virtustack/virtustack/internal/sim"
	"github.com/virtustack/virtustack/internal/telemetry"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		println("VirtuStack Simulator")
		println("Version:", version)
		println("Commit:", commit)
		println("Build Date:", buildDate)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		println("Failed to load config:", err.Error())
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	defer logger.Sync()

	logger.Info("Starting VirtuStack Simulator",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int64("seed", cfg.Sim.Seed),
	)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil && err != context.Canceled {
		logger.Fatal("Simulation error", zap.Error(err))
	}

	logger.Info("Goodbye!")
}

// run builds the simulation from the configuration and drives it to
// completion.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	loop := sim.New()
	broker := streaming.NewBroker(logger)
	registry := prometheus.NewRegistry()
	metrics := telemetry.New(registry)
	uids := domain.NewUIDSource(cfg.Sim.Seed)

	service := compute.NewService(loop, cfg.Scheduler, broker, uids, logger,
		compute.WithTelemetry(metrics))

	// Topology: identical hosts registered at t=0.
	model := domain.HostModel{
		CPUCount:   cfg.Sim.HostCores,
		MemorySize: cfg.Sim.HostMemory,
	}
	loop.At(0, func() {
		for i := 0; i < cfg.Sim.HostCount; i++ {
			host := hypervisor.New(loop, uids.Next(), fmt.Sprintf("host-%02d", i), model, logger)
			service.AddHost(host)
		}
	})

	// Workload: submissions spread over the submit window, with flavors and
	// runtimes drawn from a stream seeded alongside the UID source.
	rng := rand.New(rand.NewSource(cfg.Sim.Seed + 1))
	for i := 0; i < cfg.Sim.ServerCount; i++ {
		name := fmt.Sprintf("vm-%03d", i)
		at := rng.Int63n(cfg.Sim.SubmitWindow + 1)
		flavor := domain.Flavor{
			CPUCount:   1 + rng.Intn(cfg.Sim.MaxServerCores),
			MemorySize: 256 + rng.Int63n(cfg.Sim.MaxServerMem-255),
		}
		image := domain.Image{
			Name:    "workload",
			Runtime: 1 + rng.Int63n(cfg.Sim.MaxRuntime),
		}
		loop.At(at, func() {
			if _, err := service.NewServer(name, image, flavor); err != nil {
				logger.Warn("Submission rejected", zap.String("server", name), zap.Error(err))
			}
		})
	}

	// Optional observation surface for metrics scraping and the live event
	// stream.
	serverErr := make(chan error, 1)
	if cfg.Server.Enabled {
		srv := server.New(cfg, broker, registry, logger)
		go func() {
			serverErr <- srv.Run(ctx)
		}()
	}

	if err := loop.Run(ctx); err != nil {
		return err
	}

	snapshot := service.Snapshot()
	logger.Info("Simulation complete",
		zap.Int64("virtual_time", loop.Now()),
		zap.Int64("submitted", snapshot.Submitted),
		zap.Int64("finished", snapshot.Finished),
		zap.Int64("running", snapshot.Running),
		zap.Int64("queued", snapshot.Queued),
		zap.Int64("unscheduled", snapshot.Unscheduled),
	)

	// Keep serving scrapes until interrupted.
	if cfg.Server.Enabled {
		logger.Info("Observation server still running, press Ctrl-C to exit")
		return <-serverErr
	}
	return nil
}

// setupLogger builds the zap logger from the logging section: production
// JSON by default, console format for interactive runs. Unknown levels fall
// back to info.
func setupLogger(cfg config.LoggingConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		panic("Failed to create logger: " + err.Error())
	}
	return logger
}
