package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vaultlens/internal/config"
	"vaultlens/internal/host"
	"vaultlens/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	argsDir    string
	done       chan error
	cancel     context.CancelFunc
}

// newCLIConfig writes a config file for a stub worker and returns it with
// its parsed form. The log dir lives under a short temp path so the socket
// path stays within platform limits.
func newCLIConfig(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, string) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("VAULTLENS_MODE", "")
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	logDir, err := os.MkdirTemp("", "vl-cli")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(logDir) })
	cfg.Paths.LogDir = logDir

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfg, configPath
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	testsupport.RequireUnix(t)

	argsDir := t.TempDir()
	cfg, configPath := newCLIConfig(t, testsupport.WithStubWorker(testsupport.Cooperative.RecordingArgsIn(argsDir)))

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	env := &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		argsDir:    argsDir,
		done:       make(chan error, 1),
		cancel:     cancel,
	}
	go func() {
		env.done <- host.Run(ctx, cfg, host.Options{Quiet: true, Ready: func() { close(ready) }})
	}()
	select {
	case <-ready:
	case err := <-env.done:
		cancel()
		t.Fatalf("host exited before ready: %v", err)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("host never became ready")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case <-env.done:
		case <-time.After(5 * time.Second):
		}
	})
	return env
}

func (e *cliTestEnv) waitHostExit(t *testing.T) error {
	t.Helper()
	select {
	case err := <-e.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("host did not exit")
		return nil
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
