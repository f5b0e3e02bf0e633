package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vaultlens/internal/config"
	"vaultlens/internal/deps"
	"vaultlens/internal/history"
	"vaultlens/internal/httpapi"
	"vaultlens/internal/ipc"
	"vaultlens/internal/lifecycle"
	"vaultlens/internal/logging"
	"vaultlens/internal/supervisor"
)

// ErrAlreadyRunning is returned when another host holds the instance lock.
var ErrAlreadyRunning = errors.New("another vaultlens host is already running")

// Options configures host runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Quiet keeps log output in the log file only.
	Quiet bool
	// Ready, when set, is called once the command surfaces are serving.
	Ready func()
}

// Run starts the host and blocks until a close request, a termination
// signal, or ctx cancellation has been handled.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer lock.Unlock()

	runStamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("vaultlens-%s.log", runStamp))
	sessionID := uuid.NewString()

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	outputs := []string{"stdout", logPath}
	errorOutputs := []string{"stderr", logPath}
	if opts.Quiet {
		outputs = []string{logPath}
		errorOutputs = nil
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: errorOutputs,
		Development:      opts.Development,
		SessionID:        sessionID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logging.NewComponentLogger(logger, "host")

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update vaultlens.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "vaultlens-*.log", Exclude: []string{logPath}},
	)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	dependencies := deps.Check(cfg)
	logDependencySnapshot(logger, cfg, dependencies)

	var recorder supervisor.Recorder
	store := openHistory(ctx, cfg, logger)
	if store != nil {
		defer store.Close()
		recorder = store
	}

	sup, err := supervisor.NewFromConfig(cfg, logger, recorder)
	if err != nil {
		return fmt.Errorf("create supervisor: %w", err)
	}
	// Covers starts that slip in between the shutdown hook and surface teardown.
	defer sup.Stop(context.Background())

	hook := lifecycle.NewHook(sup, logger)
	stopSignals := hook.WatchSignals()
	defer stopSignals()

	info := func() ipc.StatusResponse {
		resp := ipc.StatusResponse{
			HostPID:   os.Getpid(),
			SessionID: sessionID,
			Mode:      cfg.Worker.Mode,
			LockPath:  cfg.LockPath(),
		}
		if store != nil {
			resp.HistoryPath = store.Path()
		}
		resp.Dependencies = ipc.DependencyStatuses(dependencies)
		return resp
	}

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), sup, info, func() {
		hook.Notify(lifecycle.EventCloseRequested)
	}, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	var runs httpapi.HistoryReader
	if store != nil {
		runs = store
	}
	apiServer := httpapi.New(cfg, sup, runs, sessionID, logger)
	if err := apiServer.Start(ctx); err != nil {
		logging.WarnWithContext(logger, "http api unavailable", "api_start_failed",
			logging.String("bind", cfg.Paths.APIBind),
			logging.Error(err),
			logging.String(logging.FieldImpact, "web clients cannot start or stop the worker"),
			logging.String(logging.FieldErrorHint, "check paths.api_bind or free the port"))
	}
	defer apiServer.Stop()

	logger.Info("host ready",
		logging.String(logging.FieldEventType, "host_ready"),
		logging.String("socket", cfg.SocketPath()),
		logging.String("mode", cfg.Worker.Mode),
		logging.String("log_path", logPath),
	)

	if vault := cfg.Worker.DefaultVault; vault != "" {
		if err := sup.Start(ctx, vault); err != nil {
			logging.WarnWithContext(logger, "default vault auto-start failed", "worker_autostart_failed",
				logging.String(logging.FieldVault, vault),
				logging.Error(err),
				logging.String(logging.FieldImpact, "search is unavailable until a client starts the worker"),
				logging.String(logging.FieldErrorHint, "run vaultlens status to check dependencies"))
		}
	}

	if opts.Ready != nil {
		opts.Ready()
	}

	event, hookErr := hook.Run(ctx)
	logger.Info("host shutting down", logging.String("event", event.String()))
	return hookErr
}

func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := history.OpenFromConfig(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.String("path", cfg.HistoryDBPath()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "worker runs will not be recorded"),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or delete the history database"))
		return nil
	}
	abandoned, err := store.RecoverAbandoned(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "abandoned run recovery failed", "history_recover_failed", logging.Error(err))
	} else if abandoned > 0 {
		logger.Warn("previous host exited without stopping its worker",
			logging.Int64("abandoned_runs", abandoned),
			logging.String(logging.FieldEventType, "history_abandoned_runs"),
			logging.Alert("orphaned_worker"),
			logging.String(logging.FieldImpact, "an orphaned worker process may still be running"),
			logging.String(logging.FieldErrorHint, "check for stray python processes"),
		)
	}
	return store
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config, statuses []deps.Status) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("mode", cfg.Worker.Mode),
	}
	for _, status := range statuses {
		key := strings.ReplaceAll(strings.ToLower(status.Name), " ", "_")
		attrs = append(attrs, logging.Bool(key+"_available", status.Available))
		if status.Command != "" {
			attrs = append(attrs, logging.String(key, status.Command))
		}
		if status.Detail != "" {
			attrs = append(attrs, logging.String(key+"_detail", status.Detail))
		}
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
