package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

// StubBehavior selects how a stub worker reacts to termination.
type StubBehavior struct {
	// IgnoreTerm makes the stub ignore SIGTERM so only a forced kill ends it.
	IgnoreTerm bool
	// ExitCode makes the stub exit immediately with the given status when >= 0.
	ExitCode int
	// ArgsFile receives the stub's script path and arguments, one per line.
	ArgsFile string
	// ArgsDir receives one file per worker, named after its pid, with the
	// same content as ArgsFile.
	ArgsDir string
}

var (
	// Cooperative exits on SIGTERM.
	Cooperative = StubBehavior{ExitCode: -1}
	// Stubborn ignores SIGTERM.
	Stubborn = StubBehavior{IgnoreTerm: true, ExitCode: -1}
)

// RecordingArgs returns b with its arguments recorded into path.
func (b StubBehavior) RecordingArgs(path string) StubBehavior {
	b.ArgsFile = path
	return b
}

// RecordingArgsIn returns b with its arguments recorded under dir by pid.
func (b StubBehavior) RecordingArgsIn(dir string) StubBehavior {
	b.ArgsDir = dir
	return b
}

// ArgsPath returns the file a stub recording into dir writes for pid.
func ArgsPath(dir string, pid int) string {
	return filepath.Join(dir, strconv.Itoa(pid))
}

// RequireUnix skips tests that drive real stub workers.
func RequireUnix(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub workers are shell scripts")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skipf("/bin/sh unavailable: %v", err)
	}
}

// WriteStubWorker writes a /bin/sh script at path. Arguments are recorded
// after any trap is installed, and the script replaces itself with sleep so
// no grandchild outlives a kill.
func WriteStubWorker(t testing.TB, path string, behavior StubBehavior) {
	t.Helper()

	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	if behavior.IgnoreTerm {
		script.WriteString("trap '' TERM\n")
	}
	if behavior.ArgsFile != "" {
		writeArgs(&script, "'"+behavior.ArgsFile+"'")
	}
	if behavior.ArgsDir != "" {
		writeArgs(&script, "'"+behavior.ArgsDir+"'/$$")
	}
	if behavior.ExitCode >= 0 {
		fmt.Fprintf(&script, "exit %d\n", behavior.ExitCode)
	} else {
		script.WriteString("exec sleep 30\n")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(script.String()), 0o755); err != nil {
		t.Fatalf("write stub worker %s: %v", path, err)
	}
}

func writeArgs(script *strings.Builder, target string) {
	fmt.Fprintf(script, "printf '%%s\\n' \"$0\" \"$@\" > %s.tmp && mv %s.tmp %s\n", target, target, target)
}

// ReadArgs waits for a stub to record its arguments and returns them.
func ReadArgs(t testing.TB, path string) []string {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		data, err := os.ReadFile(path)
		if err == nil {
			return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		}
		if time.Now().After(deadline) {
			t.Fatalf("stub worker never recorded args at %s: %v", path, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
