package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vaultlens/internal/host"
)

func newHostCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Run the VaultLens host in the foreground",
		Long: "Run the VaultLens host in the foreground.\n\n" +
			"The host owns the worker process, serves start/stop requests, and " +
			"terminates the worker when it is closed or receives SIGINT/SIGTERM/SIGHUP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			err = host.Run(cmd.Context(), cfg, host.Options{
				LogLevel:    logLevel,
				Development: ctx.development(),
				Quiet:       quiet,
			})
			if errors.Is(err, host.ErrAlreadyRunning) {
				return fmt.Errorf("%w (lock: %s)", err, cfg.LockPath())
			}
			return err
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for this run")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Write logs to the log file only")
	return cmd
}
