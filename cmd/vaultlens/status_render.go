package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"vaultlens/internal/hostctl"
	"vaultlens/internal/ipc"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatus(snapshot hostctl.Snapshot, colorize bool) []string {
	status := snapshot.Status
	var lines []string

	lines = append(lines, renderSectionHeader("Host", colorize)...)
	if snapshot.HostRunning {
		lines = append(lines, renderStatusLine("Host", statusOK, "Running (pid "+strconv.Itoa(status.HostPID)+")", colorize))
		lines = append(lines, renderStatusLine("Session", statusInfo, status.SessionID, colorize))
	} else {
		lines = append(lines, renderStatusLine("Host", statusWarn, "Not running", colorize))
	}
	lines = append(lines, renderStatusLine("Mode", statusInfo, status.Mode, colorize))
	if status.HistoryPath != "" {
		lines = append(lines, renderStatusLine("History", statusInfo, status.HistoryPath, colorize))
	}
	lines = append(lines, "")

	lines = append(lines, renderSectionHeader("Worker", colorize)...)
	lines = append(lines, workerLines(status.Worker, snapshot.HostRunning, colorize)...)
	lines = append(lines, "")

	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(status.Dependencies, colorize)...)
	return lines
}

func workerLines(worker ipc.WorkerStatus, hostRunning bool, colorize bool) []string {
	if !hostRunning {
		return []string{renderStatusLine("Worker", statusInfo, "Unknown (host not running)", colorize)}
	}
	if !worker.Running {
		message := "Not running"
		if worker.Exit != "" {
			message = "Not running (last " + worker.Exit + ")"
		}
		return []string{renderStatusLine("Worker", statusInfo, message, colorize)}
	}
	kind := statusOK
	state := "Running"
	if !worker.Alive {
		kind = statusWarn
		state = "Exited"
		if worker.Exit != "" {
			state = "Exited (" + worker.Exit + ")"
		}
	}
	lines := []string{
		renderStatusLine("Worker", kind, fmt.Sprintf("%s (pid %d)", state, worker.PID), colorize),
		renderStatusLine("Vault", statusInfo, worker.Vault, colorize),
		renderStatusLine("Script", statusInfo, worker.Script, colorize),
	}
	if worker.StartedAt != "" {
		lines = append(lines, renderStatusLine("Started", statusInfo, worker.StartedAt, colorize))
	}
	return lines
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
