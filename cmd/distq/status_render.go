package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

func (k statusKind) label() string {
	switch k {
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

func (k statusKind) colors() text.Colors {
	switch k {
	case statusOK:
		return text.Colors{text.FgGreen}
	case statusWarn:
		return text.Colors{text.FgYellow}
	case statusError:
		return text.Colors{text.FgRed, text.Bold}
	default:
		return nil
	}
}

func passFail(passed bool) statusKind {
	if passed {
		return statusOK
	}
	return statusError
}

const statusLabelWidth = 16

// renderStatusLine formats "  Label:  [KIND] message" as used by doctor and
// daemon status.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	badge := "[" + kind.label() + "]"
	if colorize {
		if colors := kind.colors(); colors != nil {
			badge = colors.Sprint(badge)
		}
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", badge)
	if message != "" {
		line += " " + message
	}
	return line
}

// statusWriter prints status lines, colouring badges on terminals only.
type statusWriter struct {
	out      io.Writer
	colorize bool
}

func newStatusWriter(out io.Writer) statusWriter {
	return statusWriter{out: out, colorize: shouldColorize(out)}
}

func (w statusWriter) line(label string, kind statusKind, message string) {
	fmt.Fprintln(w.out, renderStatusLine(label, kind, message, w.colorize))
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
