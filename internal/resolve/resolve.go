package resolve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Mode selects how the worker script is located.
type Mode int

const (
	ModePackaged Mode = iota
	ModeDevelopment
)

func (m Mode) String() string {
	if m == ModeDevelopment {
		return "development"
	}
	return "packaged"
}

// ErrNotFound matches every resolution failure.
var ErrNotFound = errors.New("worker script not found")

// NotFoundError lists every candidate that was tried.
type NotFoundError struct {
	Tried []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s. Tried:\n%s", ErrNotFound.Error(), strings.Join(e.Tried, "\n"))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ResourceDirError reports that the packaged resource directory could not be determined.
type ResourceDirError struct {
	Err error
}

func (e *ResourceDirError) Error() string {
	return fmt.Sprintf("resource dir error: %v", e.Err)
}

// Unwrap exposes both the resolution sentinel and the underlying cause.
func (e *ResourceDirError) Unwrap() []error { return []error{ErrNotFound, e.Err} }

// Context carries what resolution needs; it is not retained.
type Context struct {
	// AnchorDir is the base for Candidates in development mode.
	AnchorDir string
	// Candidates are relative paths tried in order.
	Candidates []string
	// ResourceDir returns the packaged resource directory.
	ResourceDir func() (string, error)
	// Script is the packaged script path relative to ResourceDir.
	Script string
}

// Resolver resolves a fixed mode and context on demand.
type Resolver struct {
	Mode    Mode
	Context Context
}

// Resolve locates the worker script using the configured mode.
func (r Resolver) Resolve() (string, error) {
	return Resolve(r.Mode, r.Context)
}

// Resolve locates the worker script.
func Resolve(mode Mode, rc Context) (string, error) {
	if mode == ModeDevelopment {
		return resolveDevelopment(rc)
	}
	return resolvePackaged(rc)
}

func resolveDevelopment(rc Context) (string, error) {
	base := rc.AnchorDir
	if strings.TrimSpace(base) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", &ResourceDirError{Err: fmt.Errorf("working directory: %w", err)}
		}
		base = wd
	}
	tried := make([]string, 0, len(rc.Candidates))
	for _, rel := range rc.Candidates {
		candidate := filepath.Join(base, rel)
		if isFile(candidate) {
			return candidate, nil
		}
		tried = append(tried, candidate)
	}
	return "", &NotFoundError{Tried: tried}
}

func resolvePackaged(rc Context) (string, error) {
	lookup := rc.ResourceDir
	if lookup == nil {
		lookup = ExecutableResourceDir
	}
	dir, err := lookup()
	if err != nil {
		return "", &ResourceDirError{Err: err}
	}
	if strings.TrimSpace(dir) == "" {
		return "", &ResourceDirError{Err: errors.New("resource directory is empty")}
	}
	path := filepath.Join(dir, filepath.FromSlash(rc.Script))
	if !isFile(path) {
		return "", &NotFoundError{Tried: []string{path}}
	}
	return path, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// StaticResourceDir returns a lookup that always yields dir.
func StaticResourceDir(dir string) func() (string, error) {
	return func() (string, error) { return dir, nil }
}

// ExecutableResourceDir derives the bundled resource directory from the
// running executable: Contents/Resources inside a macOS app bundle, the
// executable's own directory elsewhere.
func ExecutableResourceDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)
	if runtime.GOOS == "darwin" {
		return filepath.Join(dir, "..", "Resources"), nil
	}
	return dir, nil
}
