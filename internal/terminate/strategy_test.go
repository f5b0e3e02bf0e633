package terminate_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vaultlens/internal/logging"
	"vaultlens/internal/terminate"
	"vaultlens/internal/testsupport"
	"vaultlens/internal/worker"
)

type fakeProcess struct {
	mu          sync.Mutex
	exitOnTerm  bool
	exited      bool
	signals     []os.Signal
	kills       int
	waits       int
	killErr     error
	signalErr   error
	exitOnCheck int
	checks      int
}

func (p *fakeProcess) PID() int { return 4242 }

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, sig)
	if p.signalErr != nil {
		return p.signalErr
	}
	if p.exitOnTerm {
		p.exited = true
	}
	return nil
}

func (p *fakeProcess) TryWait() (worker.Exit, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks++
	if p.exitOnCheck > 0 && p.checks >= p.exitOnCheck {
		p.exited = true
	}
	return worker.Exit{}, p.exited
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kills++
	p.exited = true
	return p.killErr
}

func (p *fakeProcess) Wait() worker.Exit {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits++
	if p.kills > 0 {
		return worker.Exit{Code: -1, Signal: "killed"}
	}
	return worker.Exit{}
}

type signalTerm struct{}

func (signalTerm) RequestExit(p terminate.Process) error { return p.Signal(os.Interrupt) }

func (signalTerm) Name() string { return "test" }

func TestTerminateGracefulExitSkipsKill(t *testing.T) {
	p := &fakeProcess{exitOnTerm: true}
	out := terminate.New(signalTerm{}, logging.NewNop()).Terminate(p)

	if !out.Graceful || out.Forced {
		t.Fatalf("expected graceful outcome, got %+v", out)
	}
	if p.kills != 0 {
		t.Fatalf("expected no kill, got %d", p.kills)
	}
	if p.waits != 1 {
		t.Fatalf("expected exactly one reap, got %d", p.waits)
	}
	if out.Elapsed >= terminate.GracePeriod {
		t.Fatalf("expected prompt exit, took %s", out.Elapsed)
	}
}

func TestTerminateExitDuringGracePeriod(t *testing.T) {
	p := &fakeProcess{exitOnCheck: 3}
	out := terminate.New(signalTerm{}, logging.NewNop()).Terminate(p)

	if !out.Graceful || p.kills != 0 {
		t.Fatalf("expected exit observed by polling, got %+v kills=%d", out, p.kills)
	}
	if out.Elapsed < 2*terminate.PollInterval {
		t.Fatalf("expected at least two poll intervals, took %s", out.Elapsed)
	}
}

func TestTerminateEscalatesAfterGracePeriod(t *testing.T) {
	p := &fakeProcess{}
	out := terminate.New(signalTerm{}, logging.NewNop()).Terminate(p)

	if !out.Forced || out.Graceful {
		t.Fatalf("expected forced outcome, got %+v", out)
	}
	if p.kills != 1 || p.waits != 1 {
		t.Fatalf("expected one kill and one reap, got kills=%d waits=%d", p.kills, p.waits)
	}
	if out.Elapsed < terminate.GracePeriod {
		t.Fatalf("expected to wait the full grace period, took %s", out.Elapsed)
	}
	if out.Elapsed > terminate.GracePeriod+500*time.Millisecond {
		t.Fatalf("termination overran grace period: %s", out.Elapsed)
	}
}

func TestTerminateSwallowsFailures(t *testing.T) {
	p := &fakeProcess{signalErr: errors.New("eperm"), killErr: errors.New("kill failed")}
	out := terminate.New(signalTerm{}, logging.NewNop()).Terminate(p)

	if out.SignalErr == nil || out.KillErr == nil {
		t.Fatalf("expected failures recorded on outcome, got %+v", out)
	}
	if p.waits != 1 {
		t.Fatalf("expected reap despite failures, got %d", p.waits)
	}
}

func TestNoopTerminatorStillKills(t *testing.T) {
	p := &fakeProcess{}
	out := terminate.New(terminate.NoopTerminator{}, logging.NewNop()).Terminate(p)
	if len(p.signals) != 0 {
		t.Fatalf("expected no signals, got %v", p.signals)
	}
	if !out.Forced || p.waits != 1 {
		t.Fatalf("expected forced kill and reap, got %+v", out)
	}
}

func TestTerminateRealWorkers(t *testing.T) {
	testsupport.RequireUnix(t)

	cases := []struct {
		name     string
		behavior testsupport.StubBehavior
		forced   bool
	}{
		{name: "cooperative", behavior: testsupport.Cooperative, forced: false},
		{name: "ignores sigterm", behavior: testsupport.Stubborn, forced: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			script := filepath.Join(dir, "main.py")
			argsFile := filepath.Join(dir, "args.txt")
			testsupport.WriteStubWorker(t, script, tc.behavior.RecordingArgs(argsFile))

			h, err := worker.Launch(worker.LaunchSpec{Interpreter: "/bin/sh", Script: script, VaultPath: "/v"})
			if err != nil {
				t.Fatalf("Launch: %v", err)
			}
			// The trap must be installed before the signal arrives.
			testsupport.ReadArgs(t, argsFile)
			pid := h.PID()

			out := terminate.New(nil, logging.NewNop()).Terminate(h)
			if out.Forced != tc.forced {
				t.Fatalf("expected forced=%v, got %+v", tc.forced, out)
			}
			if out.Elapsed > terminate.GracePeriod+2*time.Second {
				t.Fatalf("termination took too long: %s", out.Elapsed)
			}
			if out.Exit.Signal == "" {
				t.Fatalf("expected signal exit, got %s", out.Exit)
			}
			if _, reaped := h.TryWait(); !reaped {
				t.Fatal("expected worker to be reaped")
			}
			if terminate.Alive(pid) {
				t.Fatalf("pid %d still alive after terminate", pid)
			}
		})
	}
}
