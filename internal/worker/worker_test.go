package worker_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vaultlens/internal/testsupport"
	"vaultlens/internal/worker"
)

func TestLaunchPassesVaultArgument(t *testing.T) {
	testsupport.RequireUnix(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "main.py")
	argsFile := filepath.Join(dir, "args.txt")
	testsupport.WriteStubWorker(t, script, testsupport.Cooperative.RecordingArgs(argsFile))

	vault := "/vaults/my notes"
	h, err := worker.Launch(worker.LaunchSpec{Interpreter: "/bin/sh", Script: script, VaultPath: vault})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	t.Cleanup(func() {
		_ = h.Kill()
		h.Wait()
	})

	if h.ID() == "" {
		t.Fatal("expected run id")
	}
	if h.PID() <= 0 {
		t.Fatalf("expected pid, got %d", h.PID())
	}

	got := testsupport.ReadArgs(t, argsFile)
	want := []string{script, "--vault", vault}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected args: got %q want %q", got, want)
	}
}

func TestTryWaitDoesNotBlock(t *testing.T) {
	testsupport.RequireUnix(t)
	script := filepath.Join(t.TempDir(), "main.py")
	testsupport.WriteStubWorker(t, script, testsupport.Cooperative)

	h, err := worker.Launch(worker.LaunchSpec{Interpreter: "/bin/sh", Script: script, VaultPath: "/v"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if _, exited := h.TryWait(); exited {
		t.Fatal("expected running worker")
	}

	if err := h.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	exit := h.Wait()
	if exit.Signal == "" {
		t.Fatalf("expected signal exit, got %s", exit)
	}
	if again, exited := h.TryWait(); !exited || again.Signal != exit.Signal {
		t.Fatalf("expected TryWait to report the reaped exit, got %v %v", again, exited)
	}
	if err := h.Kill(); !errors.Is(err, os.ErrProcessDone) {
		t.Fatalf("expected ErrProcessDone after reap, got %v", err)
	}
	if err := h.Signal(os.Interrupt); !errors.Is(err, os.ErrProcessDone) {
		t.Fatalf("expected ErrProcessDone from Signal after reap, got %v", err)
	}
}

func TestWaitReportsExitCode(t *testing.T) {
	testsupport.RequireUnix(t)
	script := filepath.Join(t.TempDir(), "main.py")
	testsupport.WriteStubWorker(t, script, testsupport.StubBehavior{ExitCode: 3})

	h, err := worker.Launch(worker.LaunchSpec{Interpreter: "/bin/sh", Script: script, VaultPath: "/v"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit")
	}
	exit := h.Wait()
	if exit.Code != 3 || exit.Success() {
		t.Fatalf("expected status 3, got %+v", exit)
	}
	if !strings.Contains(exit.String(), "status=3") {
		t.Fatalf("unexpected description %q", exit.String())
	}
}

func TestLaunchFailureIsSpawnFailed(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-python")
	_, err := worker.Launch(worker.LaunchSpec{Interpreter: missing, Script: "main.py", VaultPath: "/v"})
	if !errors.Is(err, worker.ErrSpawnFailed) {
		t.Fatalf("expected ErrSpawnFailed, got %v", err)
	}
	var launchErr *worker.LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("expected LaunchError, got %T", err)
	}
	if !strings.Contains(err.Error(), missing) {
		t.Fatalf("expected OS error text to be preserved, got %q", err.Error())
	}

	if _, err := worker.Launch(worker.LaunchSpec{Script: "main.py"}); !errors.Is(err, worker.ErrSpawnFailed) {
		t.Fatalf("expected empty interpreter to fail, got %v", err)
	}
}

func TestLaunchSpecCommand(t *testing.T) {
	spec := worker.LaunchSpec{Interpreter: "python3", Script: "/app/backend/main.py", VaultPath: "/vaults/a"}
	if got := spec.Command(); got != "python3 /app/backend/main.py --vault /vaults/a" {
		t.Fatalf("unexpected command %q", got)
	}
}

func TestExitSuccessDescription(t *testing.T) {
	if got := (worker.Exit{}).String(); got != "exited normally" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := (worker.Exit{Code: -1, Signal: "killed"}).String(); got != "exited with signal=killed" {
		t.Fatalf("unexpected description %q", got)
	}
}
