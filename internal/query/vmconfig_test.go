package query

import (
	"reflect"
	"testing"

	"github.com/vmware/govmomi/vim25/types"
)

func TestCreateCfg(t *testing.T) {
	doc := map[string]any{
		"name":             "web01",
		"guestId":          "rhel7_64Guest",
		"memoryMB":         int32(4096),
		"numCPUs":          int32(2),
		"cpuHotAddEnabled": true,
		"annotation":       "original note",
		"disks": map[string]map[string]int64{
			"SCSI controller 0": {"Hard disk 1": 50, "Hard disk 2": 100},
			"SCSI controller 1": {"Hard disk 3": 200},
		},
		"nics": map[string][]string{
			"Network adapter 2":  {"00:50:56:aa:bb:02", "backup-net"},
			"Network adapter 1":  {"00:50:56:aa:bb:01", "prod-net"},
			"Network adapter 10": {"00:50:56:aa:bb:0a", "ten-net"},
		},
	}

	cfg, err := CreateCfg(doc, "web02")
	if err != nil {
		t.Fatalf("CreateCfg() error = %v", err)
	}

	if cfg["name"] != "web02" {
		t.Errorf("expected name web02, got %v", cfg["name"])
	}
	if cfg["annotation"] != "vctools cfg copy web01" {
		t.Errorf("expected copy annotation, got %v", cfg["annotation"])
	}
	if cfg["guestId"] != "rhel7_64Guest" {
		t.Errorf("expected guestId carried over, got %v", cfg["guestId"])
	}
	if cfg["cpuHotAddEnabled"] != true {
		t.Errorf("expected cpuHotAddEnabled carried over, got %v", cfg["cpuHotAddEnabled"])
	}
	if _, ok := cfg["memoryHotAddEnabled"]; ok {
		t.Error("memoryHotAddEnabled should be absent when the dump lacks it")
	}

	wantDisks := map[int][]int64{0: {50, 100}, 1: {200}}
	if !reflect.DeepEqual(cfg["disks"], wantDisks) {
		t.Errorf("expected disks %v, got %v", wantDisks, cfg["disks"])
	}

	// NICs ordered by adapter number, with adapter 10 after adapter 2.
	wantNICs := []string{"prod-net", "backup-net", "ten-net"}
	if !reflect.DeepEqual(cfg["nics"], wantNICs) {
		t.Errorf("expected nics %v, got %v", wantNICs, cfg["nics"])
	}
}

func TestCreateCfg_SkipsNonSCSIControllers(t *testing.T) {
	doc := map[string]any{
		"name": "web01",
		"disks": map[string]map[string]int64{
			"SCSI controller 0": {"Hard disk 1": 50},
			"IDE 0":             {"Hard disk 9": 1},
		},
		"nics": map[string][]string{},
	}

	cfg, err := CreateCfg(doc, "web02")
	if err != nil {
		t.Fatalf("CreateCfg() error = %v", err)
	}

	wantDisks := map[int][]int64{0: {50}}
	if !reflect.DeepEqual(cfg["disks"], wantDisks) {
		t.Errorf("expected disks %v, got %v", wantDisks, cfg["disks"])
	}
}

func TestLabelIndex(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		want      int
		expectErr bool
	}{
		{"disk label", "Hard disk 2", 2, false},
		{"controller label", "SCSI controller 0", 0, false},
		{"double digits", "Network adapter 10", 10, false},
		{"no index", "nonsense", 0, true},
		{"non-numeric index", "Hard disk x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := labelIndex(tt.label)
			if tt.expectErr {
				if err == nil {
					t.Fatalf("labelIndex(%q) expected error, got %d", tt.label, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("labelIndex(%q) error = %v", tt.label, err)
			}
			if got != tt.want {
				t.Errorf("labelIndex(%q) = %d, want %d", tt.label, got, tt.want)
			}
		})
	}
}

func TestSortByIndex(t *testing.T) {
	labels := []string{"Hard disk 10", "Hard disk 2", "Hard disk 1"}
	if err := sortByIndex(labels); err != nil {
		t.Fatalf("sortByIndex() error = %v", err)
	}

	want := []string{"Hard disk 1", "Hard disk 2", "Hard disk 10"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("expected %v, got %v", want, labels)
	}
}

func TestDiskGB(t *testing.T) {
	tests := []struct {
		name string
		disk *types.VirtualDisk
		want int64
	}{
		{
			name: "byte-exact capacity",
			disk: &types.VirtualDisk{CapacityInBytes: 53687091200},
			want: 50,
		},
		{
			name: "falls back to KB capacity",
			disk: &types.VirtualDisk{CapacityInKB: 52428800},
			want: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diskGB(tt.disk)
			if got != tt.want {
				t.Errorf("diskGB() = %d, want %d", got, tt.want)
			}
		})
	}
}
