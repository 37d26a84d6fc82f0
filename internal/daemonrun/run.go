// Package daemonrun wires the hlsforge daemon process: logging, the status
// store, the transcoder, the workflow manager, the HTTP API and the IPC
// socket, and runs them until a termination signal arrives.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"hlsforge/internal/config"
	"hlsforge/internal/daemon"
	"hlsforge/internal/ipc"
	"hlsforge/internal/logging"
	"hlsforge/internal/metrics"
	"hlsforge/internal/notifications"
	"hlsforge/internal/preflight"
	"hlsforge/internal/queue"
	"hlsforge/internal/transcode"
	"hlsforge/internal/workflow"
)

// statsRefreshInterval controls how often per-status gauges are resampled.
const statsRefreshInterval = 15 * time.Second

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the hlsforge daemon runtime loop and blocks until cmdCtx is
// canceled or SIGINT/SIGTERM is received.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.DaemonLogPath()},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	jobLogs := workflow.NewJobLogs(cfg.JobLogDir(), level)
	logging.PruneOld(logger, jobLogs.Dir(), "*.log", time.Duration(cfg.Logging.RetentionDays)*24*time.Hour)
	logPreflight(signalCtx, logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.OpenFromConfig(signalCtx, cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open status store", "store_open_failed",
			logging.String("driver", cfg.Store.Driver),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check [store] settings and database reachability"),
		)
		return err
	}

	notifier := notifications.NewService(cfg)
	managerOpts := []workflow.Option{
		workflow.WithNotifier(notifier),
		workflow.WithJobLogs(jobLogs),
	}
	daemonOpts := []daemon.Option{daemon.WithNotifier(notifier)}
	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
		managerOpts = append(managerOpts, workflow.WithObserver(recorder))
		daemonOpts = append(daemonOpts, daemon.WithMetrics(recorder))
	}

	executor := transcode.NewFFmpegExecutor(cfg, logger)
	manager := workflow.NewManager(cfg, store, executor, logger, managerOpts...)

	d, err := daemon.New(cfg, store, logger, manager, daemonOpts...)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the lock file, api_bind and status store access"),
			logging.String(logging.FieldImpact, "no uploads will be accepted or transcoded"),
		)
		return err
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	group, groupCtx := errgroup.WithContext(signalCtx)
	if recorder != nil {
		group.Go(func() error {
			return recorder.RunStatsRefresher(groupCtx, store, statsRefreshInterval, logger)
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("hlsforge daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
		return nil
	})
	return group.Wait()
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// logPreflight records the environment snapshot at startup. Failures are
// warnings: the daemon still starts so the status endpoint can report them.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, dep := range preflight.CheckSystemDeps(ctx, cfg) {
		attrs := []logging.Attr{
			logging.String("dependency", dep.Name),
			logging.String("command", dep.Command),
			logging.Bool("available", dep.Available),
		}
		if dep.Available || dep.Optional {
			logger.Info("dependency snapshot", logging.Args(append(attrs, logging.String(logging.FieldEventType, "dependency_snapshot"))...)...)
			continue
		}
		logging.WarnWithContext(logger, "dependency unavailable", "dependency_unavailable",
			append(attrs,
				logging.String("detail", dep.Detail),
				logging.String(logging.FieldImpact, "every transcode will fail until it is installed"),
			)...)
	}
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
}
