// Package output renders debugctl results as colored tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

func Success(w io.Writer, format string, a ...interface{}) {
	successColor.Fprintf(w, "✓ "+format+"\n", a...)
}

func Error(w io.Writer, format string, a ...interface{}) {
	errorColor.Fprintf(w, "✗ "+format+"\n", a...)
}

func Info(w io.Writer, format string, a ...interface{}) {
	infoColor.Fprintf(w, format+"\n", a...)
}

func Warn(w io.Writer, format string, a ...interface{}) {
	warnColor.Fprintf(w, "⚠ "+format+"\n", a...)
}

// ValidateFormat rejects unknown --output values.
func ValidateFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func YAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Structured writes v as JSON or YAML. It reports false for the table
// format so the caller can render its own table.
func Structured(w io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case FormatJSON:
		return true, JSON(w, v)
	case FormatYAML:
		return true, YAML(w, v)
	default:
		return false, nil
	}
}

// Severity colors a severity tag the way the console does.
func Severity(severity string) string {
	switch severity {
	case "error":
		return color.RedString(severity)
	case "warning":
		return color.YellowString(severity)
	case "success":
		return color.GreenString(severity)
	default:
		return color.CyanString(severity)
	}
}

type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
	}
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

// Render writes the table to w. Column widths ignore ANSI color codes.
func (t *Table) Render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && visibleLen(cell) > widths[i] {
				widths[i] = visibleLen(cell)
			}
		}
	}

	for i, header := range t.headers {
		headerColor.Fprint(w, pad(header, widths[i]))
	}
	fmt.Fprintln(w)

	for i := range t.headers {
		fmt.Fprint(w, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(w)

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprint(w, pad(cell, widths[i]))
			}
		}
		fmt.Fprintln(w)
	}
}

func pad(cell string, width int) string {
	return cell + strings.Repeat(" ", width-visibleLen(cell)+2)
}

// visibleLen counts runes outside ANSI escape sequences.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			n++
		}
	}
	return n
}
