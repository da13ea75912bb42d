package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// TableFormatter formats reports as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatReport formats rows as an aligned table.
func (f *TableFormatter) FormatReport(r *Report) (string, error) {
	if len(r.Rows) == 0 {
		return "No results found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders && len(r.Header) > 0 {
		_, _ = fmt.Fprintln(w, strings.Join(r.Header, "\t"))
	}
	for _, row := range r.Rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatDocument formats a nested document. Tables cannot express nesting,
// so documents render as YAML even in table mode.
func (f *TableFormatter) FormatDocument(doc any) (string, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document to YAML: %w", err)
	}
	return string(data), nil
}

// HumanSize renders a byte count in the unit admins read it in, walking
// binary units up from bytes.
func HumanSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"bytes", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%3.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%3.2f TB", size)
}
