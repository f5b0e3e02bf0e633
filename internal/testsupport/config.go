package testsupport

import (
	"path/filepath"
	"testing"

	"vaultlens/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The worker runs in packaged mode under <base>/resources with /bin/sh as the
// interpreter, so stub scripts written by WithStubWorker are launchable.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Worker.Mode = config.ModePackaged
	cfgVal.Worker.Interpreter = "/bin/sh"
	cfgVal.Worker.ResourceDir = filepath.Join(base, "resources")
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStubWorker writes a stub worker script at the packaged script location.
func WithStubWorker(behavior StubBehavior) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.cfg.Worker.ResourceDir, filepath.FromSlash(b.cfg.Worker.Script))
		WriteStubWorker(b.t, path, behavior)
	}
}

// WithAPIBind enables the HTTP command surface.
func WithAPIBind(bind, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIBind = bind
		b.cfg.Paths.APIToken = token
	}
}

// WithDefaultVault sets the vault auto-started by the host.
func WithDefaultVault(vault string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.DefaultVault = vault
	}
}

// BaseDir returns the temp root of a config built by NewConfig. It is derived
// from the state dir, which tests leave in place when moving the log dir.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
