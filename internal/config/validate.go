package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.APIBind != "" {
		if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
			return fmt.Errorf("paths.api_bind %q is not a host:port address: %w", c.Paths.APIBind, err)
		}
	}
	return nil
}

func (c *Config) validateWorker() error {
	switch c.Worker.Mode {
	case ModeDevelopment, ModePackaged:
	default:
		return fmt.Errorf("worker.mode must be %q or %q, got %q", ModeDevelopment, ModePackaged, c.Worker.Mode)
	}
	if filepath.IsAbs(c.Worker.Script) {
		return fmt.Errorf("worker.script must be relative to the resource directory, got %q", c.Worker.Script)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
