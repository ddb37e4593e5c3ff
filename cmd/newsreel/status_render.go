package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"newsreel/internal/orchestrator"
	"newsreel/internal/runstate"
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

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// renderStatusLine formats "  Label:   [KIND] message", coloured when colorize is set.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag := "[" + statusStyles[kind].label + "]"
	if message != "" {
		tag += " " + message
	}
	return colorText(fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", tag), kind, colorize)
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

var titleCaser = cases.Title(language.English)

// statusLabel renders a status value such as "partial" as "Partial".
func statusLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Unknown"
	}
	return titleCaser.String(value)
}

func resultKind(status orchestrator.Status) statusKind {
	switch status {
	case orchestrator.StatusSuccess:
		return statusOK
	case orchestrator.StatusPartial, orchestrator.StatusInterrupted:
		return statusWarn
	case orchestrator.StatusFailed:
		return statusError
	default:
		return statusInfo
	}
}

func runStatusKind(status runstate.Status) statusKind {
	switch status {
	case runstate.StatusCompleted:
		return statusOK
	case runstate.StatusPartial:
		return statusWarn
	case runstate.StatusFailed:
		return statusError
	default:
		return statusInfo
	}
}

func colorText(text string, kind statusKind, colorize bool) string {
	if !colorize {
		return text
	}
	color := statusStyles[kind].color
	if color == "" {
		return text
	}
	return color + text + ansiReset
}
