package bootiso

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vctools/vctools/internal/config"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		want    string
	}{
		{
			name:    "filename from hostname option",
			request: Request{Options: map[string]string{"hostname": "web01.example.com"}},
			want:    "web01.example.com.iso",
		},
		{
			name: "explicit filename wins",
			request: Request{
				Filename: "custom.iso",
				Options:  map[string]string{"hostname": "web01.example.com"},
			},
			want: "custom.iso",
		},
		{
			name:    "no hostname leaves filename empty",
			request: Request{Options: map[string]string{"ip": "10.0.0.5"}},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.request.Normalize()
			if tt.request.Filename != tt.want {
				t.Errorf("Normalize() filename = %q, want %q", tt.request.Filename, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		wantErr string
	}{
		{
			name: "valid kickstart request",
			request: Request{
				Source:   "/srv/trees/rhel7",
				KS:       "http://ks.example.com/web01.cfg",
				Output:   "/tmp",
				Filename: "web01.iso",
			},
		},
		{
			name: "valid preseed request",
			request: Request{
				Source:   "/srv/trees/ubuntu",
				URL:      "http://mirror.example.com/preseed",
				Output:   "/tmp",
				Filename: "web01.iso",
			},
		},
		{
			name: "missing source",
			request: Request{
				KS:       "http://ks.example.com/web01.cfg",
				Output:   "/tmp",
				Filename: "web01.iso",
			},
			wantErr: "source is required",
		},
		{
			name: "missing output",
			request: Request{
				Source:   "/srv/trees/rhel7",
				KS:       "http://ks.example.com/web01.cfg",
				Filename: "web01.iso",
			},
			wantErr: "output is required",
		},
		{
			name: "missing filename",
			request: Request{
				Source: "/srv/trees/rhel7",
				KS:     "http://ks.example.com/web01.cfg",
				Output: "/tmp",
			},
			wantErr: "filename is required",
		},
		{
			name: "both ks and url",
			request: Request{
				Source:   "/srv/trees/rhel7",
				KS:       "http://ks.example.com/web01.cfg",
				URL:      "http://mirror.example.com/preseed",
				Output:   "/tmp",
				Filename: "web01.iso",
			},
			wantErr: "exactly one of ks and url",
		},
		{
			name: "neither ks nor url",
			request: Request{
				Source:   "/srv/trees/rhel7",
				Output:   "/tmp",
				Filename: "web01.iso",
			},
			wantErr: "exactly one of ks and url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want contains %q", err, tt.wantErr)
			}
		})
	}
}

func TestKernelArgs(t *testing.T) {
	r := Request{Options: map[string]string{
		"netmask":  "255.255.255.0",
		"hostname": "web01.example.com",
		"ip":       "10.0.0.5",
		"gateway":  "10.0.0.254",
	}}

	want := "gateway=10.0.0.254 hostname=web01.example.com ip=10.0.0.5 netmask=255.255.255.0"
	if got := r.KernelArgs(); got != want {
		t.Errorf("KernelArgs() = %q, want %q", got, want)
	}

	empty := Request{}
	if got := empty.KernelArgs(); got != "" {
		t.Errorf("KernelArgs() = %q, want empty", got)
	}
}

func TestWriteBootConfig_Kickstart(t *testing.T) {
	source := t.TempDir()
	if err := os.MkdirAll(filepath.Join(source, "isolinux"), 0o755); err != nil {
		t.Fatalf("failed to create isolinux dir: %v", err)
	}

	r := Request{
		Source:  source,
		KS:      "http://ks.example.com/web01.cfg",
		Options: map[string]string{"hostname": "web01.example.com", "ip": "10.0.0.5"},
	}

	bin, cat, err := r.WriteBootConfig()
	if err != nil {
		t.Fatalf("WriteBootConfig() error = %v", err)
	}
	if bin != "isolinux/isolinux.bin" {
		t.Errorf("bin = %q, want isolinux/isolinux.bin", bin)
	}
	if cat != "isolinux/boot.cat" {
		t.Errorf("cat = %q, want isolinux/boot.cat", cat)
	}

	data, err := os.ReadFile(filepath.Join(source, "isolinux", "isolinux.cfg"))
	if err != nil {
		t.Fatalf("failed to read boot config: %v", err)
	}
	cfg := string(data)

	for _, want := range []string{
		"default vesamenu.c32",
		"timeout 5",
		"kernel vmlinuz",
		"append initrd=initrd.img ks=http://ks.example.com/web01.cfg hostname=web01.example.com ip=10.0.0.5",
	} {
		if !strings.Contains(cfg, want) {
			t.Errorf("boot config missing %q:\n%s", want, cfg)
		}
	}
}

func TestWriteBootConfig_Preseed(t *testing.T) {
	source := t.TempDir()

	r := Request{
		Source: source,
		URL:    "http://mirror.example.com/preseed",
	}

	bin, cat, err := r.WriteBootConfig()
	if err != nil {
		t.Fatalf("WriteBootConfig() error = %v", err)
	}
	if bin != "isolinux.bin" {
		t.Errorf("bin = %q, want isolinux.bin", bin)
	}
	if cat != "boot.cat" {
		t.Errorf("cat = %q, want boot.cat", cat)
	}

	data, err := os.ReadFile(filepath.Join(source, "isolinux.cfg"))
	if err != nil {
		t.Fatalf("failed to read boot config: %v", err)
	}
	cfg := string(data)

	for _, want := range []string{
		"include menu.cfg",
		"prompt 1",
		"kernel linux",
		"append initrd=initrd.gz url=http://mirror.example.com/preseed\n",
	} {
		if !strings.Contains(cfg, want) {
			t.Errorf("boot config missing %q:\n%s", want, cfg)
		}
	}
}

func TestBuild_InvalidRequest(t *testing.T) {
	_, _, err := Build(context.Background(), &Request{Source: "/srv/trees/rhel7"})
	if err == nil {
		t.Fatal("Build() error = nil, want validation error")
	}
	if !config.IsInvalid(err) {
		t.Errorf("Build() error = %v, want invalid input error", err)
	}
}

func TestBuild_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("genisoimage"); err != nil {
		t.Skip("genisoimage not found, skipping test")
	}

	source := t.TempDir()
	if err := os.MkdirAll(filepath.Join(source, "isolinux"), 0o755); err != nil {
		t.Fatalf("failed to create isolinux dir: %v", err)
	}
	// genisoimage patches a boot info table into the boot image, so give
	// it a real file to work with.
	bootImage := make([]byte, 2048)
	for _, f := range []string{"isolinux.bin", "vmlinuz", "initrd.img"} {
		if err := os.WriteFile(filepath.Join(source, "isolinux", f), bootImage, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}

	r := Request{
		Source:  source,
		KS:      "http://ks.example.com/web01.cfg",
		Options: map[string]string{"hostname": "web01.example.com"},
		Output:  t.TempDir(),
	}

	path, size, err := Build(context.Background(), &r)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if filepath.Base(path) != "web01.example.com.iso" {
		t.Errorf("Build() path = %q, want web01.example.com.iso", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("built image missing: %v", err)
	}
	if size != info.Size() || size == 0 {
		t.Errorf("Build() size = %d, stat size = %d", size, info.Size())
	}
}
