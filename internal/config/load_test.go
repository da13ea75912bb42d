package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMap(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "vctoolsrc.yaml")

	rcYAML := `general:
  host: vcenter.example.com
  domain: corp
upload:
  datastore: ISO_Templates
  dest: isos
`
	if err := os.WriteFile(path, []byte(rcYAML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	doc, err := LoadMap(path)
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	general, ok := doc["general"].(map[string]any)
	if !ok {
		t.Fatalf("Expected general section, got %T", doc["general"])
	}
	if general["host"] != "vcenter.example.com" {
		t.Errorf("Expected host 'vcenter.example.com', got %v", general["host"])
	}
}

func TestLoadMap_MissingFile(t *testing.T) {
	_, err := LoadMap(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadMap_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("general: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadMap(path)
	if err == nil {
		t.Fatal("Expected parse error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestMerge(t *testing.T) {
	first := map[string]any{
		"general": map[string]any{
			"host": "vcenter.example.com",
			"user": "admin",
		},
		"mount": map[string]any{"datastore": "ISO_Templates"},
		"nics":  []any{"old_net"},
	}
	second := map[string]any{
		"general": map[string]any{
			"user": "operator",
		},
		"nics": []any{"new_net"},
	}

	merged := Merge(first, second)

	general := merged["general"].(map[string]any)
	if general["host"] != "vcenter.example.com" {
		t.Errorf("Expected host preserved from first, got %v", general["host"])
	}
	if general["user"] != "operator" {
		t.Errorf("Expected user from second, got %v", general["user"])
	}

	mount := merged["mount"].(map[string]any)
	if mount["datastore"] != "ISO_Templates" {
		t.Errorf("Expected mount preserved, got %v", mount["datastore"])
	}

	nics := merged["nics"].([]any)
	if len(nics) != 1 || nics[0] != "new_net" {
		t.Errorf("Expected lists replaced not appended, got %v", nics)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	first := map[string]any{
		"general": map[string]any{"user": "admin"},
	}
	second := map[string]any{
		"general": map[string]any{"user": "operator"},
	}

	merged := Merge(first, second)
	merged["general"].(map[string]any)["user"] = "changed"

	if first["general"].(map[string]any)["user"] != "admin" {
		t.Errorf("First input was mutated: %v", first)
	}
	if second["general"].(map[string]any)["user"] != "operator" {
		t.Errorf("Second input was mutated: %v", second)
	}
}

func TestLoadRC_ExplicitFileWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rc.yaml")
	rcYAML := `general:
  host: override.example.com
`
	if err := os.WriteFile(path, []byte(rcYAML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	doc, err := LoadRC(path)
	if err != nil {
		t.Fatalf("LoadRC failed: %v", err)
	}

	general, ok := doc["general"].(map[string]any)
	if !ok {
		t.Fatalf("Expected general section, got %v", doc)
	}
	if general["host"] != "override.example.com" {
		t.Errorf("Expected explicit rcfile to win, got %v", general["host"])
	}
}

func TestLoadRC_MissingFilesSkipped(t *testing.T) {
	doc, err := LoadRC(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadRC failed on missing file: %v", err)
	}
	if doc == nil {
		t.Fatal("Expected empty document, got nil")
	}
}

func TestDecode(t *testing.T) {
	doc := map[string]any{
		"general": map[string]any{
			"host":   "vcenter.example.com",
			"user":   "admin",
			"domain": "corp",
		},
		"create": map[string]any{
			"power": true,
			"mount": true,
		},
		"vmconfig": map[string]any{
			"name":     "web01",
			"guestId":  "rhel7_64Guest",
			"numCPUs":  2,
			"memoryMB": 4096,
			"nics":     []any{"vlan_1234_net"},
			"disks":    []any{50},
		},
	}

	var cfg Config
	if err := Decode(doc, &cfg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if cfg.General.Host != "vcenter.example.com" {
		t.Errorf("Expected host, got %q", cfg.General.Host)
	}
	if !cfg.Create.Power || !cfg.Create.Mount {
		t.Errorf("Expected create hooks enabled, got %+v", cfg.Create)
	}
	if cfg.VMConfig == nil {
		t.Fatal("Expected vmconfig section, got nil")
	}
	if cfg.VMConfig.NumCPUs != 2 || cfg.VMConfig.MemoryMB != 4096 {
		t.Errorf("Unexpected hardware: %+v", cfg.VMConfig)
	}
	if len(cfg.VMConfig.Disks) != 1 || cfg.VMConfig.Disks[0][0] != 50 {
		t.Errorf("Unexpected disks: %v", cfg.VMConfig.Disks)
	}
	if cfg.General.Port != 443 {
		t.Errorf("Expected Normalize to run, port = %d", cfg.General.Port)
	}
}

func TestSection(t *testing.T) {
	doc := map[string]any{}

	sub := Section(doc, "mkbootiso")
	sub["filename"] = "web01.iso"

	again := Section(doc, "mkbootiso")
	if again["filename"] != "web01.iso" {
		t.Errorf("Expected same section back, got %v", again)
	}
}

func TestRender(t *testing.T) {
	doc := map[string]any{
		"general": map[string]any{
			"host":   "vcenter.example.com",
			"passwd": "hunter2",
		},
		"vmconfig": map[string]any{
			"name":    "web01",
			"guestId": "rhel7_64Guest",
		},
		"mkbootiso": map[string]any{
			"api_url": "https://tools.example.com/api/mkbootiso",
			"defaults": map[string]any{
				"rhel7_64Guest": map[string]any{"source": "/opt/isos/rhel7"},
			},
			"source":   "/opt/isos/rhel7",
			"filename": "web01.iso",
		},
	}

	data, err := Render(doc)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := string(data)
	if !strings.Contains(out, "name: web01") {
		t.Errorf("Expected vmconfig in output, got:\n%s", out)
	}
	if !strings.Contains(out, "filename: web01.iso") {
		t.Errorf("Expected mkbootiso request in output, got:\n%s", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("Expected credentials stripped, got:\n%s", out)
	}
	if strings.Contains(out, "general:") {
		t.Errorf("Expected general section dropped, got:\n%s", out)
	}
	if strings.Contains(out, "defaults:") || strings.Contains(out, "api_url:") {
		t.Errorf("Expected shared defaults dropped, got:\n%s", out)
	}
}

func TestWriteServerConfig(t *testing.T) {
	tmpDir := t.TempDir()
	doc := map[string]any{
		"vmconfig": map[string]any{"name": "web01"},
	}

	path, err := WriteServerConfig(tmpDir, "web01", doc)
	if err != nil {
		t.Fatalf("WriteServerConfig failed: %v", err)
	}
	if path != filepath.Join(tmpDir, "web01.yaml") {
		t.Errorf("Unexpected path: %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written config: %v", err)
	}
	if !strings.Contains(string(data), "name: web01") {
		t.Errorf("Unexpected file contents:\n%s", data)
	}
}
