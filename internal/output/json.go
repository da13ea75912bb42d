package output

import (
	"encoding/json"
	"fmt"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct{}

// FormatReport formats rows as a JSON array. Single-column reports render
// as a plain array of values, wider ones as objects keyed by header.
func (f *JSONFormatter) FormatReport(r *Report) (string, error) {
	data, err := json.MarshalIndent(reportItems(r), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	return string(data) + "\n", nil
}

// FormatDocument formats a nested document as JSON.
func (f *JSONFormatter) FormatDocument(doc any) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal document to JSON: %w", err)
	}
	return string(data) + "\n", nil
}
