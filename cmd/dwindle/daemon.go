package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/1broseidon/dwindle/internal/ax"
	"github.com/1broseidon/dwindle/internal/config"
	"github.com/1broseidon/dwindle/internal/daemon"
	"github.com/1broseidon/dwindle/internal/ipc"
	"github.com/1broseidon/dwindle/internal/platform"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the dwindle daemon (foreground)",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		log.Fatalf("Failed to resolve config path: %v", err)
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	logger := newLogger(os.Stderr, cfg.LogLevel)
	logger.Info("configuration loaded", "path", path, "files", len(res.Files))

	backend, err := platform.NewLinuxBackend()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer backend.Close()

	registry := ax.NewRegistry(platform.X11Accessibility{}, ax.Options{
		CreateTimeout: cfg.Discovery.SessionTimeout,
		ListTimeout:   cfg.Discovery.ListTimeout,
		Logger:        logger.With("component", "ax"),
	})
	defer registry.Close()

	ctl, err := daemon.NewController(daemon.Options{
		Backend:    backend,
		Registry:   registry,
		Config:     cfg,
		ConfigPath: path,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := ipc.NewServer(socketPath, ctl, logger.With("component", "ipc"))
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer server.Stop()

	reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval: cfg.Discovery.GCInterval,
		Logger:   logger.With("component", "reconciler"),
	}, registry, ctl)
	go reconciler.Run(ctx)

	if watcher, err := config.NewWatcher(path, 0, logger.With("component", "config")); err != nil {
		logger.Warn("config watching disabled", "error", err)
	} else {
		go watcher.Run(ctx, func(next *config.Config) {
			if err := ctl.ApplyConfig(ctx, next); err != nil {
				logger.Warn("config change rejected", "error", err)
				return
			}
			logger.Info("configuration reloaded", "path", path)
		})
	}

	// SIGHUP rereads the file explicitly.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := ctl.Reload(ctx); err != nil {
					logger.Warn("config reload failed", "error", err)
				}
			}
		}
	}()

	logger.Info("dwindle daemon started", "socket", server.SocketPath())
	err = ctl.Run(ctx)
	logger.Info("shutting down dwindle daemon")
	return err
}
