package hostctl_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"vaultlens/internal/config"
	"vaultlens/internal/host"
	"vaultlens/internal/hostctl"
	"vaultlens/internal/testsupport"
)

func shortConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	dir, err := os.MkdirTemp("", "vl-ctl")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	cfg.Paths.LogDir = dir
	return cfg
}

func TestStopHostWithoutHost(t *testing.T) {
	cfg := shortConfig(t)
	if _, err := hostctl.StopHost(context.Background(), cfg, time.Second); !errors.Is(err, hostctl.ErrHostNotRunning) {
		t.Fatalf("expected ErrHostNotRunning, got %v", err)
	}
}

func TestWaitForShutdownWithoutSocket(t *testing.T) {
	cfg := shortConfig(t)
	if err := hostctl.WaitForShutdown(cfg.SocketPath(), 200*time.Millisecond); err != nil {
		t.Fatalf("expected immediate success, got %v", err)
	}
}

func TestWaitForClientTimesOut(t *testing.T) {
	cfg := shortConfig(t)
	if _, err := hostctl.WaitForClient(cfg.SocketPath(), 250*time.Millisecond); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := hostctl.Launch("  ", hostctl.LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable path")
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := shortConfig(t)
	snapshot, err := hostctl.BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snapshot.HostRunning {
		t.Fatal("expected host to be reported as not running")
	}
	if snapshot.Status.LockPath != cfg.LockPath() || snapshot.Status.Mode != cfg.Worker.Mode {
		t.Fatalf("expected offline fallbacks from config, got %+v", snapshot.Status)
	}
	if len(snapshot.Status.Dependencies) == 0 {
		t.Fatal("expected local dependency check")
	}
}

func TestStopHostClosesRunningHost(t *testing.T) {
	testsupport.RequireUnix(t)

	cfg := shortConfig(t, testsupport.WithStubWorker(testsupport.Cooperative))
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- host.Run(context.Background(), cfg, host.Options{Quiet: true, Ready: func() { close(ready) }})
	}()
	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("host exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("host never became ready")
	}

	snapshot, err := hostctl.BuildStatusSnapshot(context.Background(), cfg)
	if err != nil || !snapshot.HostRunning {
		t.Fatalf("expected running host, snapshot=%+v err=%v", snapshot, err)
	}

	result, err := hostctl.StopHost(context.Background(), cfg, 5*time.Second)
	if err != nil {
		t.Fatalf("StopHost: %v", err)
	}
	if !result.CloseAccepted || result.ForcedKill {
		t.Fatalf("expected graceful close, got %+v", result)
	}
	if result.PID != os.Getpid() {
		t.Fatalf("expected host pid %d, got %d", os.Getpid(), result.PID)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("host did not exit after close")
	}
}

func TestForceKillProcessUsesPIDFile(t *testing.T) {
	testsupport.RequireUnix(t)

	cmd := exec.Command("/bin/sh", "-c", "exec sleep 30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleeper: %v", err)
	}
	waited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(waited)
	}()

	pidPath := filepath.Join(t.TempDir(), "vaultlens.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	pid, err := hostctl.ForceKillProcess(pidPath, 0)
	if err != nil {
		t.Fatalf("ForceKillProcess: %v", err)
	}
	if pid != cmd.Process.Pid {
		t.Fatalf("expected pid %d, got %d", cmd.Process.Pid, pid)
	}
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("process survived force kill")
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

func TestForceKillProcessRefusesSelf(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "missing.pid")
	if _, err := hostctl.ForceKillProcess(pidPath, os.Getpid()); err == nil {
		t.Fatal("expected refusal to kill current process")
	}
	if _, err := hostctl.ForceKillProcess(pidPath, 0); err == nil {
		t.Fatal("expected error without a pid")
	}
}
