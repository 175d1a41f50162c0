// Package output renders command results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Format selects how structured results are written.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses an --output value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON, FormatYAML:
		return Format(s), nil
	case "":
		return FormatTable, nil
	default:
		return FormatTable, fmt.Errorf("invalid output format %q: must be table, json, or yaml", s)
	}
}

// ResolveColors reports whether colors should be used. NO_COLOR and a dumb
// terminal always disable them.
func ResolveColors(disabled bool) bool {
	if disabled {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// Printer writes human output to out and diagnostics to err.
type Printer struct {
	out       io.Writer
	err       io.Writer
	format    Format
	useColors bool
}

// NewPrinter creates a printer.
func NewPrinter(out, err io.Writer, format Format, useColors bool) *Printer {
	if format == "" {
		format = FormatTable
	}
	return &Printer{out: out, err: err, format: format, useColors: useColors}
}

// Out returns the result writer.
func (p *Printer) Out() io.Writer {
	return p.out
}

// Structured reports whether results are written as JSON or YAML.
func (p *Printer) Structured() bool {
	return p.format == FormatJSON || p.format == FormatYAML
}

// Encode writes v in the structured format.
func (p *Printer) Encode(v interface{}) error {
	switch p.format {
	case FormatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	}
}

// Print prints a plain line.
func (p *Printer) Print(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
	}
}

// Warning prints a warning line to the diagnostic stream.
func (p *Printer) Warning(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
	}
}

// Error prints an error line to the diagnostic stream.
func (p *Printer) Error(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
	}
}

// Header prints a section header.
func (p *Printer) Header(title string) {
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n", title)
}

// Bool renders a fact value.
func (p *Printer) Bool(v bool) string {
	switch {
	case v && p.useColors:
		return color.GreenString("true")
	case v:
		return "true"
	case p.useColors:
		return color.New(color.Faint).Sprint("false")
	default:
		return "false"
	}
}

// Status renders a lifecycle status, colored by how far along it is. rank
// runs from 0 (not started) to max (functional).
func (p *Printer) Status(status string, rank, max int) string {
	if !p.useColors {
		return status
	}
	switch {
	case rank >= max:
		return color.GreenString(status)
	case rank == 0:
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}

// Dim returns dimmed text.
func (p *Printer) Dim(text string) string {
	if p.useColors {
		return color.New(color.Faint).Sprint(text)
	}
	return text
}
