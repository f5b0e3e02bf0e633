package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vaultlens/internal/history"
)

type historyEntry struct {
	RunID     string  `json:"run_id"`
	PID       int     `json:"pid"`
	Vault     string  `json:"vault"`
	Outcome   string  `json:"outcome"`
	Reason    string  `json:"reason,omitempty"`
	ExitCode  *int    `json:"exit_code,omitempty"`
	Signal    string  `json:"signal,omitempty"`
	Forced    bool    `json:"forced"`
	StartedAt string  `json:"started_at"`
	EndedAt   string  `json:"ended_at,omitempty"`
	Seconds   float64 `json:"stop_seconds,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent worker runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.OpenFromConfig(ctx.configValue())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				entries := make([]historyEntry, 0, len(runs))
				for _, run := range runs {
					entries = append(entries, historyEntryFor(run))
				}
				return writeJSON(cmd, entries)
			}

			stdout := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(stdout, "No worker runs recorded")
				return nil
			}
			fmt.Fprint(stdout, renderHistoryTable(runs, time.Now()))
			fmt.Fprintln(stdout)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit runs as JSON")
	return cmd
}

func renderHistoryTable(runs []history.Run, now time.Time) string {
	columns := []tableColumn{
		{Header: "Started"},
		{Header: "PID", Align: alignRight},
		{Header: "Vault", MaxWidth: 40},
		{Header: "Outcome"},
		{Header: "Reason"},
		{Header: "Forced"},
		{Header: "Stop Time", Align: alignRight},
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		stopTime := ""
		if run.EndedAt != nil && run.Reason != "" {
			stopTime = run.Elapsed.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			humanize.RelTime(run.StartedAt, now, "ago", "from now"),
			strconv.Itoa(run.PID),
			run.Vault,
			run.Outcome(),
			run.Reason,
			yesNo(run.Forced),
			stopTime,
		})
	}
	return renderTable(columns, rows)
}

func historyEntryFor(run history.Run) historyEntry {
	entry := historyEntry{
		RunID:     run.RunID,
		PID:       run.PID,
		Vault:     run.Vault,
		Outcome:   run.Outcome(),
		Reason:    run.Reason,
		ExitCode:  run.ExitCode,
		Signal:    run.Signal,
		Forced:    run.Forced,
		StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
		Seconds:   run.Elapsed.Seconds(),
	}
	if run.EndedAt != nil {
		entry.EndedAt = run.EndedAt.UTC().Format(time.RFC3339)
	}
	return entry
}
