// Package output provides styled terminal output helpers (success, error,
// warning, tables) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Format selects how structured data is rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatPlain Format = "plain"
)

// ParseFormat validates a format name, defaulting to table.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatPlain:
		return FormatPlain, nil
	}
	return "", fmt.Errorf("unknown format %q (expected table, json, or plain)", s)
}

// Printer renders command output in one of the supported formats.
type Printer struct {
	format Format
	w      io.Writer
}

func NewPrinter(format Format) *Printer {
	return &Printer{format: format, w: os.Stdout}
}

// NewPrinterTo is used in tests to capture output.
func NewPrinterTo(format Format, w io.Writer) *Printer {
	return &Printer{format: format, w: w}
}

func (p *Printer) Format() Format {
	return p.format
}

// Success prints a success message
func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintln(p.w, successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintln(p.w, errorStyle.Render("ERROR: "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...interface{}) {
	fmt.Fprintln(p.w, warningStyle.Render("Warning: "+fmt.Sprintf(format, args...)))
}

// Info prints an info message
func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Title prints a bold heading
func (p *Printer) Title(s string) {
	fmt.Fprintln(p.w, titleStyle.Render(s))
}

// Subtle prints de-emphasized text
func (p *Printer) Subtle(format string, args ...interface{}) {
	fmt.Fprintln(p.w, subtleStyle.Render(fmt.Sprintf(format, args...)))
}

// JSON outputs data as indented JSON
func (p *Printer) JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(p.w, string(data))
	return nil
}

// Table renders rows under a header. In json format the raw value is
// emitted instead; in plain format columns are separated by tabs with no
// styling.
func (p *Printer) Table(headers []string, rows [][]string, raw interface{}) error {
	switch p.format {
	case FormatJSON:
		return p.JSON(raw)
	case FormatPlain:
		for _, row := range rows {
			fmt.Fprintln(p.w, strings.Join(row, "\t"))
		}
		return nil
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var header strings.Builder
	for i, h := range headers {
		header.WriteString(pad(h, widths[i]))
		if i < len(headers)-1 {
			header.WriteString("  ")
		}
	}
	fmt.Fprintln(p.w, headerStyle.Render(header.String()))

	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			if i < len(widths) {
				line.WriteString(pad(cell, widths[i]))
			} else {
				line.WriteString(cell)
			}
			if i < len(row)-1 {
				line.WriteString("  ")
			}
		}
		fmt.Fprintln(p.w, line.String())
	}
	return nil
}

// Detail renders label/value pairs for a single record. In json format the
// raw value is emitted instead.
func (p *Printer) Detail(pairs [][2]string, raw interface{}) error {
	if p.format == FormatJSON {
		return p.JSON(raw)
	}

	width := 0
	for _, pr := range pairs {
		if len(pr[0]) > width {
			width = len(pr[0])
		}
	}
	for _, pr := range pairs {
		if pr[1] == "" {
			continue
		}
		label := pad(pr[0]+":", width+1)
		if p.format == FormatPlain {
			fmt.Fprintf(p.w, "%s %s\n", label, pr[1])
		} else {
			fmt.Fprintf(p.w, "%s %s\n", subtleStyle.Render(label), pr[1])
		}
	}
	return nil
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
