package output

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats reports as YAML.
type YAMLFormatter struct{}

// FormatReport formats rows as a YAML list. Single-column reports render as
// a plain list of values, wider ones as maps keyed by header.
func (f *YAMLFormatter) FormatReport(r *Report) (string, error) {
	data, err := yaml.Marshal(reportItems(r))
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to YAML: %w", err)
	}
	return string(data), nil
}

// FormatDocument formats a nested document as YAML.
func (f *YAMLFormatter) FormatDocument(doc any) (string, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document to YAML: %w", err)
	}
	return string(data), nil
}
