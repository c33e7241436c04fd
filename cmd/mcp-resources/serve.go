package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/mcp-resources"
	"github.com/felixgeelhaar/mcp-resources/config"
	"github.com/felixgeelhaar/mcp-resources/logging"
	"github.com/felixgeelhaar/mcp-resources/middleware"
	"github.com/felixgeelhaar/mcp-resources/providers"
	"github.com/felixgeelhaar/mcp-resources/server"
	"github.com/felixgeelhaar/mcp-resources/status"
	"github.com/felixgeelhaar/mcp-resources/telemetry"
	"github.com/felixgeelhaar/mcp-resources/transport"
	"github.com/felixgeelhaar/mcp-resources/watch"
)

// buildServer creates the server with every built-in resource registered.
// The simulator is nil when status simulation is disabled.
func buildServer(cfg *config.Config, logger logging.Logger) (*mcp.Server, *status.Simulator, error) {
	if logger == nil {
		logger = logging.Nop{}
	}

	opts := []mcp.Option{server.WithLogger(logger)}

	var sim *status.Simulator
	if cfg.Status.Enabled {
		sim = status.NewSimulator(cfg.Status.Interval)
		opts = append(opts, server.WithInitialStatus(sim.Current()))
	}

	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
		Capabilities: mcp.Capabilities{
			Resources: true,
			Subscribe: cfg.Watch.Enabled,
		},
	}, opts...)

	err := providers.Register(srv, providers.Options{
		Root:         cfg.Resources.Root,
		ModFile:      cfg.Resources.ModFile,
		EnvDenyWords: cfg.Resources.EnvDenyWords,
	})
	if err != nil {
		return nil, nil, err
	}
	return srv, sim, nil
}

func runServe(cmd *cobra.Command, f *flags, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logFile, err := logging.OpenFile(cfg.Log.File)
	if err != nil {
		return err
	}
	logger := logging.NewSlog(logFile, level)

	sm := transport.NewShutdownManager(transport.DefaultShutdownConfig())
	// Hooks run last-registered first: the log file closes after telemetry flushes.
	sm.OnShutdown("log file", func(context.Context) error {
		return logFile.Close()
	})

	stackOpts := middleware.StackOptions{
		Timeout:       cfg.Limits.RequestTimeout,
		MaxParamBytes: cfg.Limits.MaxParamBytes,
		Rate:          cfg.Limits.Rate,
		Burst:         cfg.Limits.Burst,
	}

	if cfg.Telemetry.Enabled {
		tel, err := telemetry.New(logFile, telemetry.Config{
			ServiceName:    cfg.Server.Name,
			ServiceVersion: cfg.Server.Version,
		})
		if err != nil {
			_ = logFile.Close()
			return fmt.Errorf("starting telemetry: %w", err)
		}
		sm.OnShutdown("telemetry", tel.Shutdown)
		stackOpts.Telemetry = []middleware.OTelOption{
			middleware.WithTracerProvider(tel.TracerProvider()),
			middleware.WithMeterProvider(tel.MeterProvider()),
			middleware.WithOTelServiceName(cfg.Server.Name),
		}
	}

	srv, sim, err := buildServer(cfg, logger)
	if err != nil {
		_ = sm.Shutdown(context.Background())
		return err
	}

	serveOpts := []mcp.ServeOption{
		mcp.WithIO(stdin, stdout),
		mcp.WithLogger(logger),
		mcp.WithMiddleware(middleware.Stack(logger, stackOpts)...),
		mcp.WithShutdownManager(sm),
	}
	if sim != nil {
		serveOpts = append(serveOpts, mcp.WithStatusSimulator(sim))
	}
	if cfg.Watch.Enabled {
		w := watch.New([]watch.Target{
			{URI: providers.URICurrentDirectory, Path: cfg.Resources.Root, Dir: true},
			{URI: providers.URIPackageInfo, Path: cfg.Resources.ModFile},
		},
			watch.WithDebounce(cfg.Watch.Debounce),
			watch.WithLogger(logger),
			watch.WithIgnore(cfg.Log.File),
		)
		serveOpts = append(serveOpts, mcp.WithWatcher(w))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("server starting",
		logging.F("name", cfg.Server.Name),
		logging.F("version", cfg.Server.Version),
		logging.F("resources", len(srv.Resources())),
	)

	serveErr := mcp.ServeStdio(ctx, srv, serveOpts...)
	if serveErr != nil {
		logger.Error("server stopped", logging.Err(serveErr))
	} else {
		logger.Info("server stopped")
	}

	return errors.Join(serveErr, sm.Shutdown(context.Background()))
}
