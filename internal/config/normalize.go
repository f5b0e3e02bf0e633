package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWorker(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("VAULTLENS_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeWorker() error {
	if value, ok := os.LookupEnv("VAULTLENS_MODE"); ok && strings.TrimSpace(value) != "" {
		c.Worker.Mode = value
	}
	c.Worker.Mode = strings.ToLower(strings.TrimSpace(c.Worker.Mode))
	switch c.Worker.Mode {
	case "":
		c.Worker.Mode = defaultWorkerMode
	case "dev":
		c.Worker.Mode = ModeDevelopment
	}
	c.Worker.Interpreter = strings.TrimSpace(c.Worker.Interpreter)
	c.Worker.Script = strings.TrimSpace(c.Worker.Script)
	if c.Worker.Script == "" {
		c.Worker.Script = defaultWorkerScript
	}

	var err error
	if strings.TrimSpace(c.Worker.AnchorDir) != "" {
		if c.Worker.AnchorDir, err = expandPath(strings.TrimSpace(c.Worker.AnchorDir)); err != nil {
			return fmt.Errorf("worker.anchor_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Worker.ResourceDir) != "" {
		if c.Worker.ResourceDir, err = expandPath(strings.TrimSpace(c.Worker.ResourceDir)); err != nil {
			return fmt.Errorf("worker.resource_dir: %w", err)
		}
	}

	candidates := make([]string, 0, len(c.Worker.DevCandidates))
	for _, candidate := range c.Worker.DevCandidates {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			candidates = append(candidates, trimmed)
		}
	}
	if len(candidates) == 0 {
		candidates = append(candidates, defaultDevCandidates...)
	}
	c.Worker.DevCandidates = candidates

	// The vault path is forwarded verbatim, so only surrounding whitespace is trimmed.
	c.Worker.DefaultVault = strings.TrimSpace(c.Worker.DefaultVault)
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
