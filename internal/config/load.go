package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	rcName     = "vctoolsrc.yaml"
	homeRCName = ".vctoolsrc.yaml"
)

// LoadMap reads a YAML document into a generic map. Documents stay in map
// form through merging and prompting so unknown keys survive a round trip.
func LoadMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", path, err)
	}

	return doc, nil
}

// Merge deep-merges two documents. Mappings merge recursively and any other
// value in second replaces the value in first. Neither input is modified.
func Merge(first, second map[string]any) map[string]any {
	merged := make(map[string]any, len(first)+len(second))
	for key, value := range first {
		merged[key] = cloneValue(value)
	}
	for key, value := range second {
		if sub, ok := value.(map[string]any); ok {
			if cur, ok := merged[key].(map[string]any); ok {
				merged[key] = Merge(cur, sub)
				continue
			}
		}
		merged[key] = cloneValue(value)
	}
	return merged
}

func cloneValue(value any) any {
	switch val := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}

// LoadRC builds the tool configuration from the rc chain: a vctoolsrc.yaml
// next to the binary, then ~/.vctoolsrc.yaml, then an explicit rcfile flag.
// Later files override earlier ones and missing files are skipped.
func LoadRC(rcfile string) (map[string]any, error) {
	doc := map[string]any{}
	for _, path := range rcPaths(rcfile) {
		overlay, err := LoadMap(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		doc = Merge(doc, overlay)
	}
	return doc, nil
}

func rcPaths(rcfile string) []string {
	var paths []string
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), rcName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, homeRCName))
	}
	if rcfile != "" {
		paths = append(paths, rcfile)
	}
	return paths
}

// Decode converts a generic document into the typed configuration and
// applies defaults.
func Decode(doc map[string]any, cfg *Config) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Normalize()
	return nil
}

// ToMap converts a typed value back into a generic document, the inverse
// of Decode. Used to fold prompt answers into the document being archived.
func ToMap(value any) (map[string]any, error) {
	data, err := yaml.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return out, nil
}

// Section returns the named nested mapping inside doc, creating it when
// absent.
func Section(doc map[string]any, name string) map[string]any {
	if sub, ok := doc[name].(map[string]any); ok {
		return sub
	}
	sub := map[string]any{}
	doc[name] = sub
	return sub
}

// Render returns the per-host document to archive after a build: the
// vmconfig section plus any boot ISO request, with credential material and
// the shared defaults removed.
func Render(doc map[string]any) ([]byte, error) {
	out := map[string]any{}
	if vm, ok := doc["vmconfig"]; ok {
		out["vmconfig"] = cloneValue(vm)
	}
	if iso, ok := doc["mkbootiso"]; ok {
		iso = cloneValue(iso)
		if sub, ok := iso.(map[string]any); ok {
			delete(sub, "defaults")
			delete(sub, "api_url")
		}
		out["mkbootiso"] = iso
	}
	scrub(out)
	return yaml.Marshal(out)
}

func scrub(doc map[string]any) {
	for key, value := range doc {
		switch key {
		case "passwd", "password", "passwd_file":
			delete(doc, key)
		default:
			if sub, ok := value.(map[string]any); ok {
				scrub(sub)
			}
		}
	}
}

// WriteServerConfig renders doc and writes it to dir/<name>.yaml, returning
// the path written.
func WriteServerConfig(dir, name string, doc map[string]any) (string, error) {
	data, err := Render(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write server config: %w", err)
	}
	return path, nil
}
