// Package ui holds the colored output helpers shared by the commands.
// fatih/color already honors NO_COLOR and disables itself off a TTY.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Green  = color.New(color.FgGreen)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
	Dim    = color.New(color.Faint)
)

// InitColors applies the --no-color flag.
func InitColors(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

func Successf(w io.Writer, format string, args ...any) {
	_, _ = Green.Fprintf(w, "✓ "+format+"\n", args...)
}

func Warningf(w io.Writer, format string, args ...any) {
	_, _ = Yellow.Fprintf(w, "⚠ "+format+"\n", args...)
}

func Errorf(w io.Writer, format string, args ...any) {
	_, _ = Red.Fprintf(w, "✗ "+format+"\n", args...)
}

// Header prints a bold title underlined with '='.
func Header(w io.Writer, text string) {
	_, _ = Bold.Fprintln(w, text)
	fmt.Fprintln(w, strings.Repeat("=", len(text)))
}

// Row prints one "label value" line, label padded to width.
func Row(w io.Writer, width int, label string, value any) {
	fmt.Fprintf(w, "  %s %s\n", Bold.Sprintf("%-*s", width, label), Cyan.Sprint(value))
}

func DimText(text string) string {
	return Dim.Sprint(text)
}
