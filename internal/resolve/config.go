package resolve

import "vaultlens/internal/config"

// FromConfig builds a resolver from the worker configuration section.
func FromConfig(cfg *config.Config) Resolver {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	mode := ModePackaged
	if cfg.Development() {
		mode = ModeDevelopment
	}
	lookup := ExecutableResourceDir
	if cfg.Worker.ResourceDir != "" {
		lookup = StaticResourceDir(cfg.Worker.ResourceDir)
	}
	candidates := make([]string, len(cfg.Worker.DevCandidates))
	copy(candidates, cfg.Worker.DevCandidates)
	return Resolver{
		Mode: mode,
		Context: Context{
			AnchorDir:   cfg.Worker.AnchorDir,
			Candidates:  candidates,
			ResourceDir: lookup,
			Script:      cfg.Worker.Script,
		},
	}
}
