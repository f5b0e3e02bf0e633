package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vaultlens/internal/hostctl"
	"vaultlens/internal/ipc"
)

func newWorkerCommands(ctx *commandContext) []*cobra.Command {
	var noLaunch bool
	startCmd := &cobra.Command{
		Use:   "start <vault>",
		Short: "Start (or restart) the worker for a vault",
		Long: "Start the worker for a vault. A worker that is already running is " +
			"terminated first. The host is launched in the background when it is not running.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			vault := args[0]

			var client *ipc.Client
			if noLaunch {
				c, err := ctx.dialClient()
				if err != nil {
					return err
				}
				client = c
			} else {
				exe, err := hostExecutable()
				if err != nil {
					return err
				}
				c, launched, err := hostctl.EnsureHost(ctx.socketPath(), exe, hostLaunchOptions(ctx), 10*time.Second)
				if err != nil {
					return err
				}
				if launched {
					fmt.Fprintln(stdout, "Host not running, launched in background")
				}
				client = c
			}
			defer client.Close()

			resp, err := client.StartPython(cmd.Context(), vault)
			if err != nil {
				return fmt.Errorf("start worker: %w", err)
			}
			if !resp.OK {
				return errors.New(resp.Error)
			}
			status, err := client.Status(cmd.Context())
			if err == nil && status.Worker.Running {
				fmt.Fprintf(stdout, "Worker started for %s (pid %d)\n", status.Worker.Vault, status.Worker.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Worker started")
			return nil
		},
	}
	startCmd.Flags().BoolVar(&noLaunch, "no-launch", false, "Fail instead of launching a host")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the worker and leave the host running",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				before, _ := client.Status(cmd.Context())
				resp, err := client.StopPython(cmd.Context())
				if err != nil {
					return fmt.Errorf("stop worker: %w", err)
				}
				if !resp.OK {
					return errors.New(resp.Error)
				}
				if before == nil || !before.Worker.Running {
					fmt.Fprintln(stdout, "Worker is not running")
					return nil
				}
				fmt.Fprintf(stdout, "Worker stopped (pid %d)\n", before.Worker.PID)
				return nil
			})
		},
	}

	closeCmd := &cobra.Command{
		Use:     "close",
		Aliases: []string{"shutdown"},
		Short:   "Close the host, terminating the worker first",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := hostctl.StopHost(cmd.Context(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, hostctl.ErrHostNotRunning) {
				fmt.Fprintln(stdout, "Host is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.CloseAccepted {
				fmt.Fprintln(stdout, "Close request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Host did not exit in time, killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Host closed")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show host, worker, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := hostctl.BuildStatusSnapshot(cmd.Context(), ctx.configValue())
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, snapshot)
			}
			stdout := cmd.OutOrStdout()
			for _, line := range renderStatus(snapshot, shouldColorize(stdout)) {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit status as JSON")

	return []*cobra.Command{startCmd, stopCmd, closeCmd, statusCmd}
}

func hostExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func hostLaunchOptions(ctx *commandContext) hostctl.LaunchOptions {
	opts := hostctl.LaunchOptions{Development: ctx.development()}
	if path := strings.TrimSpace(ctx.configPath()); path != "" {
		opts.ConfigPath = path
	}
	return opts
}
