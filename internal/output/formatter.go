// Package output renders query results as tables, YAML, or JSON.
package output

import "fmt"

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is a YAML format for declarative configs.
	FormatYAML Format = "yaml"
	// FormatJSON is a JSON format for machine consumption.
	FormatJSON Format = "json"
)

// Report is tabular query output: a header plus data rows.
type Report struct {
	Header []string
	Rows   [][]string
}

// Formatter formats query results for output.
type Formatter interface {
	// FormatReport formats tabular rows.
	FormatReport(r *Report) (string, error)

	// FormatDocument formats a nested document, such as a machine config.
	FormatDocument(doc any) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	f := Format(format)
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}

// reportItems converts a report to a marshal-friendly shape. Single-column
// reports become a plain list of values, wider ones a list of header-keyed
// maps.
func reportItems(r *Report) any {
	if len(r.Header) == 1 {
		items := make([]string, 0, len(r.Rows))
		for _, row := range r.Rows {
			items = append(items, row[0])
		}
		return items
	}

	items := make([]map[string]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		item := make(map[string]string, len(r.Header))
		for i, key := range r.Header {
			if i < len(row) {
				item[key] = row[i]
			}
		}
		items = append(items, item)
	}
	return items
}
