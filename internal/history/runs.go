package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vaultlens/internal/supervisor"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `run_id, pid, vault, script, command, status, reason, graceful, forced,
    exit_code, signal, elapsed_ms, started_at, ended_at`

// RecordLaunch inserts a running entry for a newly launched worker.
func (s *Store) RecordLaunch(ctx context.Context, rec supervisor.LaunchRecord) error {
	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (run_id, pid, vault, script, command, status, started_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.PID,
		rec.Vault,
		rec.Script,
		rec.Command,
		StatusRunning,
		started.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.RunID, err)
	}
	return nil
}

// RecordExit closes out a run after the worker has been reaped.
func (s *Store) RecordExit(ctx context.Context, rec supervisor.ExitRecord) error {
	ended := rec.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, reason = ?, graceful = ?, forced = ?, exit_code = ?,
            signal = ?, elapsed_ms = ?, ended_at = ?
        WHERE run_id = ?`,
		StatusExited,
		rec.Reason,
		boolToInt(rec.Graceful),
		boolToInt(rec.Forced),
		rec.ExitCode,
		nullableString(rec.Signal),
		rec.Elapsed.Milliseconds(),
		ended.UTC().Format(timeLayout),
		rec.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run %s: %w", rec.RunID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run %s: %w", rec.RunID, ErrNotFound)
	}
	return nil
}

// RecoverAbandoned marks runs left running by a previous host as abandoned
// and returns how many were changed. Call it only while holding the host lock.
func (s *Store) RecoverAbandoned(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, reason = ?, ended_at = ? WHERE status = ?`,
		StatusAbandoned,
		"host exited without stopping the worker",
		time.Now().UTC().Format(timeLayout),
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Get returns one run.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Recent returns the newest runs first. A limit <= 0 returns every run.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		status    string
		reason    sql.NullString
		graceful  int
		forced    int
		exitCode  sql.NullInt64
		signal    sql.NullString
		elapsedMS sql.NullInt64
		startedAt string
		endedAt   sql.NullString
	)
	if err := row.Scan(
		&run.RunID, &run.PID, &run.Vault, &run.Script, &run.Command, &status, &reason,
		&graceful, &forced, &exitCode, &signal, &elapsedMS, &startedAt, &endedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Status = Status(status)
	run.Reason = reason.String
	run.Graceful = graceful != 0
	run.Forced = forced != 0
	if exitCode.Valid {
		code := int(exitCode.Int64)
		run.ExitCode = &code
	}
	run.Signal = signal.String
	run.Elapsed = time.Duration(elapsedMS.Int64) * time.Millisecond
	if ts, err := time.Parse(timeLayout, startedAt); err == nil {
		run.StartedAt = ts
	}
	if endedAt.Valid {
		if ts, err := time.Parse(timeLayout, endedAt.String); err == nil {
			run.EndedAt = &ts
		}
	}
	return &run, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
