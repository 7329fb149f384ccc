// Package cli provides the command-line interface for the option screener.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer       io.Writer
	format       string
	colorEnabled bool
}

// NewOutput creates a new Output instance from the --output flag.
func NewOutput(cmd *cobra.Command) *Output {
	format, _ := cmd.Flags().GetString("output")
	if format == "" {
		format = FormatTable
	}
	w := cmd.OutOrStdout()
	return &Output{
		writer:       w,
		format:       format,
		colorEnabled: format == FormatTable && w == os.Stdout && isTerminal(),
	}
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// validFormat reports whether f is a supported --output value.
func validFormat(f string) bool {
	switch f {
	case FormatTable, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// IsStructured returns true for JSON or YAML output.
func (o *Output) IsStructured() bool {
	return o.format == FormatJSON || o.format == FormatYAML
}

// Encode writes data in the selected structured format.
func (o *Output) Encode(data interface{}) error {
	if o.format == FormatYAML {
		return o.YAML(data)
	}
	return o.JSON(data)
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// YAML outputs data as YAML.
func (o *Output) YAML(data interface{}) error {
	encoder := yaml.NewEncoder(o.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success prints a success message in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.colored(ColorGreen, format, args...)
}

// Error prints an error message in red.
func (o *Output) Error(format string, args ...interface{}) {
	o.colored(ColorRed, format, args...)
}

// Warning prints a warning message in yellow.
func (o *Output) Warning(format string, args ...interface{}) {
	o.colored(ColorYellow, format, args...)
}

// Info prints an info message in cyan.
func (o *Output) Info(format string, args ...interface{}) {
	o.colored(ColorCyan, format, args...)
}

// Bold prints a bold message.
func (o *Output) Bold(format string, args ...interface{}) {
	o.colored(ColorBold, format, args...)
}

// Dim prints a dimmed message.
func (o *Output) Dim(format string, args ...interface{}) {
	o.colored(ColorDim, format, args...)
}

func (o *Output) colored(color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if o.colorEnabled {
		fmt.Fprintf(o.writer, "%s%s%s\n", color, msg, ColorReset)
	} else {
		fmt.Fprintln(o.writer, msg)
	}
}

// Table creates a table writer over the output with the given header.
func (o *Output) Table(headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(o.writer)
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	table.Header(cells...)
	return table
}
