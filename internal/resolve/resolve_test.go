package resolve_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vaultlens/internal/config"
	"vaultlens/internal/resolve"
)

var devCandidates = []string{
	"../backend/main.py",
	"../../backend/main.py",
	"../../../backend/main.py",
}

func anchorDir(t *testing.T) (root, anchor string) {
	t.Helper()
	root = t.TempDir()
	anchor = filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(anchor, 0o755); err != nil {
		t.Fatalf("mkdir anchor: %v", err)
	}
	return root, anchor
}

func TestResolveDevelopmentListsEveryCandidate(t *testing.T) {
	_, anchor := anchorDir(t)

	_, err := resolve.Resolve(resolve.ModeDevelopment, resolve.Context{AnchorDir: anchor, Candidates: devCandidates})
	if err == nil {
		t.Fatal("expected resolution to fail")
	}
	if !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var notFound *resolve.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %T", err)
	}
	if len(notFound.Tried) != len(devCandidates) {
		t.Fatalf("expected %d tried paths, got %v", len(devCandidates), notFound.Tried)
	}
	for _, rel := range devCandidates {
		want := filepath.Join(anchor, rel)
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %q, got %q", want, err.Error())
		}
	}
}

func TestResolveDevelopmentReturnsFirstExisting(t *testing.T) {
	root, anchor := anchorDir(t)
	// ../../backend/main.py from a/b/c lands in a/backend.
	second := filepath.Join(root, "a", "backend", "main.py")
	third := filepath.Join(root, "backend", "main.py")
	for _, path := range []string{second, third} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("print('hi')\n"), 0o644); err != nil {
			t.Fatalf("write script: %v", err)
		}
	}

	got, err := resolve.Resolve(resolve.ModeDevelopment, resolve.Context{AnchorDir: anchor, Candidates: devCandidates})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != second {
		t.Fatalf("expected %q, got %q", second, got)
	}
}

func TestResolveDevelopmentSkipsDirectories(t *testing.T) {
	root, anchor := anchorDir(t)
	if err := os.MkdirAll(filepath.Join(root, "a", "b", "backend", "main.py"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := resolve.Resolve(resolve.ModeDevelopment, resolve.Context{AnchorDir: anchor, Candidates: devCandidates[:1]}); !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected directory candidate to be rejected, got %v", err)
	}
}

func writeScript(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("print('ok')\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func TestResolvePackaged(t *testing.T) {
	resources := t.TempDir()
	writeScript(t, filepath.Join(resources, "backend", "main.py"))
	got, err := resolve.Resolve(resolve.ModePackaged, resolve.Context{
		ResourceDir: resolve.StaticResourceDir(resources),
		Script:      "backend/main.py",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := filepath.Join(resources, "backend", "main.py"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResolvePackagedMissingScript(t *testing.T) {
	resources := t.TempDir()
	_, err := resolve.Resolve(resolve.ModePackaged, resolve.Context{
		ResourceDir: resolve.StaticResourceDir(resources),
		Script:      "backend/main.py",
	})
	var notFound *resolve.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	want := filepath.Join(resources, "backend", "main.py")
	if len(notFound.Tried) != 1 || notFound.Tried[0] != want {
		t.Fatalf("expected tried [%q], got %v", want, notFound.Tried)
	}

	// A directory at the script path does not count.
	if err := os.MkdirAll(want, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := resolve.Resolve(resolve.ModePackaged, resolve.Context{
		ResourceDir: resolve.StaticResourceDir(resources),
		Script:      "backend/main.py",
	}); !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected directory at script path to be rejected, got %v", err)
	}
}

func TestResolvePackagedResourceDirFailure(t *testing.T) {
	cause := errors.New("no bundle")
	_, err := resolve.Resolve(resolve.ModePackaged, resolve.Context{
		ResourceDir: func() (string, error) { return "", cause },
		Script:      "backend/main.py",
	})
	var dirErr *resolve.ResourceDirError
	if !errors.As(err, &dirErr) {
		t.Fatalf("expected ResourceDirError, got %v", err)
	}
	if !errors.Is(err, resolve.ErrNotFound) || !errors.Is(err, cause) {
		t.Fatalf("expected error to match ErrNotFound and cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "resource dir error") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestFromConfig(t *testing.T) {
	_, anchor := anchorDir(t)
	cfg := config.Default()
	cfg.Worker.Mode = config.ModeDevelopment
	cfg.Worker.AnchorDir = anchor

	r := resolve.FromConfig(&cfg)
	if r.Mode != resolve.ModeDevelopment {
		t.Fatalf("expected development mode, got %s", r.Mode)
	}
	if len(r.Context.Candidates) != 3 {
		t.Fatalf("expected default candidates, got %v", r.Context.Candidates)
	}

	cfg.Worker.Mode = config.ModePackaged
	cfg.Worker.ResourceDir = anchor
	writeScript(t, filepath.Join(anchor, "backend", "main.py"))
	got, err := resolve.FromConfig(&cfg).Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := filepath.Join(anchor, "backend", "main.py"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
