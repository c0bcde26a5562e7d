package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taskfocus/taskfocus/internal/config"
	"github.com/taskfocus/taskfocus/internal/connector"
	"github.com/taskfocus/taskfocus/internal/daemon"
	"github.com/taskfocus/taskfocus/internal/database"
	"github.com/taskfocus/taskfocus/internal/focus"
	"github.com/taskfocus/taskfocus/internal/logging"
	"github.com/taskfocus/taskfocus/internal/metrics"
	"github.com/taskfocus/taskfocus/internal/notify"
	"github.com/taskfocus/taskfocus/internal/tracker"
	"github.com/taskfocus/taskfocus/internal/uithread"
	"github.com/taskfocus/taskfocus/internal/web"
	"github.com/taskfocus/taskfocus/pkg/backend"
	"github.com/taskfocus/taskfocus/pkg/window"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var (
		port       int
		foreground bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon with its window system and web API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(port)
			if err != nil {
				return errors.Wrap(err, "invalid configuration")
			}

			dm := daemon.New(cfg.Daemon.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if running {
				return errors.Errorf("daemon is already running (PID: %d)", pid)
			}

			if foreground || daemon.IsChild() {
				return runServe(cfg, dm)
			}

			pid, err = daemon.Detach(cfg.Daemon.LogFile)
			if err != nil {
				return err
			}
			fmt.Printf("Daemon started successfully (PID: %d)\n", pid)
			fmt.Printf("Web API available at: http://%s\n", cfg.Address())
			fmt.Printf("Logs: %s\n", cfg.Daemon.LogFile)
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Web API port (overrides TASKFOCUS_WEB_PORT)")
	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in the foreground instead of detaching")
	return cmd
}

func runServe(cfg *config.Config, dm *daemon.Daemon) error {
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.Database, database.WithLogger(logger.Logger))
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return errors.Wrap(err, "failed to initialize database")
	}
	repo := database.NewRepository(db)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loop := uithread.New(64)
	loop.Start(ctx)
	defer loop.Stop()

	sys, err := backend.New(backend.Options{
		Backend:      cfg.Window.Backend,
		Display:      cfg.Window.Display,
		ScaleFactor:  cfg.Window.ScaleFactor,
		PrimaryXID:   cfg.Window.PrimaryXID,
		PrimaryLabel: focus.PrimaryLabel,
		Dispatch:     loop.Post,
		Logger:       logger.Logger,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open window system")
	}
	defer sys.Close()

	if err := loop.Do(ctx, func() error { return ensurePrimary(sys) }); err != nil {
		return errors.Wrap(err, "failed to create primary window")
	}

	hub := notify.NewHub(logger.Logger)
	defer hub.Close()

	m := metrics.New()
	hub.OnSubscribersChanged(m.SetSubscribers)

	trackerSvc := tracker.NewService(repo, logger.Logger, tracker.DefaultBuffer)

	opts := focus.DefaultOptions()
	opts.Logger = logger.Logger
	opts.Emitter = notify.New(hub, logger.Logger)
	opts.Observers = []focus.Observer{trackerSvc, m}
	opts.RetryDelay = cfg.Window.RetryDelay
	manager := focus.New(sys, opts)

	reminders := connector.New(cfg.Connector, connector.WithLogger(logger.Logger))

	server := web.NewServer(cfg, web.Deps{
		Focus:     manager,
		Loop:      loop,
		Hub:       hub,
		Repo:      repo,
		Reminders: reminders,
		Metrics:   m,
		Logger:    logger.Logger,
		Backend:   sys.Name(),
		Version:   version,
	}, 0)

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer dm.RemovePID()

	go func() {
		if err := trackerSvc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("tracker stopped", zap.Error(err))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("taskfocus daemon started",
		zap.String("version", version),
		zap.String("backend", sys.Name()),
		zap.String("tier", manager.Tier().String()),
		zap.String("addr", "http://"+server.GetAddress()),
	)
	logger.Debug(cfg.String())

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err = <-serverErr:
		logger.Error("web server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("error shutting down web server", zap.Error(shutdownErr))
	}
	trackerSvc.Stop()

	logger.Info("daemon stopped")
	return err
}

// ensurePrimary creates the primary window unless the backend adopted one
func ensurePrimary(sys window.System) error {
	if _, ok := sys.Get(focus.PrimaryLabel); ok {
		return nil
	}
	_, err := sys.Create(window.Options{
		Label:     focus.PrimaryLabel,
		Title:     "TaskFocus",
		Size:      window.Size{Width: 960, Height: 640},
		Decorated: true,
		Resizable: true,
		Visible:   true,
		Focused:   true,
	})
	return err
}
