// Package output renders command results as text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format represents the output format.
type Format string

// Output format constants.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter writes results in one format.
type Formatter struct {
	format Format
	writer io.Writer
	color  bool
}

// NewFormatter creates a formatter. FormatAuto is resolved against w.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{
		format: DetectFormat(w, format),
		writer: w,
	}
}

// WithColor enables ANSI colors for text output.
func (f *Formatter) WithColor(on bool) *Formatter {
	f.color = on && f.format == FormatText
	return f
}

// Format returns the resolved output format.
func (f *Formatter) Format() Format {
	return f.format
}

// Writer returns the output writer.
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// IsJSON returns true if the formatter outputs JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Render writes v as JSON, or calls text for text output.
func (f *Formatter) Render(v any, text func(w io.Writer) error) error {
	if f.format == FormatJSON {
		return f.printJSON(v)
	}
	return text(f.writer)
}

// Print writes v as JSON, or its String form for text output.
func (f *Formatter) Print(v any) error {
	return f.Render(v, func(w io.Writer) error {
		switch val := v.(type) {
		case string:
			_, err := fmt.Fprintln(w, val)
			return err
		case fmt.Stringer:
			_, err := fmt.Fprintln(w, val.String())
			return err
		default:
			_, err := fmt.Fprintf(w, "%v\n", val)
			return err
		}
	})
}

// Printf writes formatted text output.
func (f *Formatter) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(f.writer, format, args...)
	return err
}

// Paint wraps s in an ANSI color when colors are on.
func (f *Formatter) Paint(c Color, s string) string {
	if !f.color || c == "" {
		return s
	}
	return string(c) + s + string(ColorReset)
}

func (f *Formatter) printJSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Color is an ANSI escape sequence.
type Color string

// Colors used for approval states.
const (
	ColorReset  Color = "\033[0m"
	ColorRed    Color = "\033[31m"
	ColorGreen  Color = "\033[32m"
	ColorYellow Color = "\033[33m"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
}

// DetectFormat determines the appropriate format based on context.
// Returns JSON for non-TTY output, text for TTY, unless explicitly overridden.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto && explicit != "" {
		return explicit
	}
	if isTerminal(w) {
		return FormatText
	}
	return FormatJSON
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	default:
		return FormatAuto
	}
}

// UseColor resolves an auto|always|never setting against w.
func UseColor(w io.Writer, mode string) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	default:
		return isTerminal(w)
	}
}
