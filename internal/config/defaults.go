package config

const (
	defaultLogDir           = "~/.local/share/vaultlens/logs"
	defaultStateDir         = "~/.local/share/vaultlens"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultAPIBind          = ""
	defaultWorkerMode       = ModePackaged
	defaultWorkerScript     = "backend/main.py"
)

// defaultDevCandidates are tried in order, relative to worker.anchor_dir.
var defaultDevCandidates = []string{
	"../backend/main.py",
	"../../backend/main.py",
	"../../../backend/main.py",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	candidates := make([]string, len(defaultDevCandidates))
	copy(candidates, defaultDevCandidates)
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
			APIBind:  defaultAPIBind,
		},
		Worker: Worker{
			Mode:          defaultWorkerMode,
			Script:        defaultWorkerScript,
			DevCandidates: candidates,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
