// Package printer writes colored, human oriented CLI output.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

// Out and Err are swapped by tests.
var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

// Success prints a success message in green with a checkmark prefix.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(Out, msg)
}

func Info(format string, a ...any) {
	fmt.Fprintf(Out, format, a...)
}

// Warning prints a warning message in yellow with a warning prefix.
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "!") {
		msg = "! " + msg
	}
	yellow.Fprint(Out, msg)
}

// Step prints a step message with emphasis.
func Step(format string, a ...any) {
	cyan.Fprintf(Out, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints title, explanation and suggestions to Err and returns a plain
// error carrying only the title, for commands that silence cobra's own output.
func Error(title, explanation string, suggestions []string) error {
	red.Fprintf(Err, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(Err, "%s\n", explanation)
	}
	if len(suggestions) > 0 {
		fmt.Fprintf(Err, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(Err, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(Err, "Either:\n")
			for i, s := range suggestions {
				fmt.Fprintf(Err, "  %d. %s\n", i+1, s)
			}
		}
	}
	return fmt.Errorf("%s", title)
}

// Field is one line of a Summary block.
type Field struct {
	Key   string
	Value string
}

// Summary prints a bold title followed by aligned key/value lines.
func Summary(title string, fields []Field) {
	bold.Fprintf(Out, "%s\n", title)
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Key)+1)
	}
	for _, f := range fields {
		fmt.Fprintf(Out, "  %-*s  %s\n", width, f.Key+":", f.Value)
	}
}

// Counts renders m as "A=1 B=2", in the order of keys. Missing keys are skipped.
func Counts(keys []string, m map[string]int) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if n, ok := m[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
