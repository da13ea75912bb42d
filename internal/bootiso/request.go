// Package bootiso renders unattended-install boot configs and builds
// bootable ISO images with genisoimage.
package bootiso

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// rhelBootConfig drives kickstart installs. The installer tree keeps its
// boot files under isolinux/.
const rhelBootConfig = `default vesamenu.c32
display boot.msg
timeout 5
label linux
  menu default
  kernel vmlinuz
  append %s
`

// ubuntuBootConfig drives preseed installs. Debian-installer trees keep
// their boot files in the tree root.
const ubuntuBootConfig = `path
include menu.cfg
default vesamenu.c32
prompt 1
timeout 1
label install
  kernel linux
  append %s
`

// Request describes one boot ISO build: an unpacked install tree, the
// installer answer source, and where the finished image goes. Exactly one
// of KS (kickstart URL) and URL (preseed mirror) selects the config style.
type Request struct {
	Source   string            `json:"source" yaml:"source"`
	KS       string            `json:"ks,omitempty" yaml:"ks,omitempty"`
	URL      string            `json:"url,omitempty" yaml:"url,omitempty"`
	Options  map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
	Output   string            `json:"output" yaml:"output"`
	Filename string            `json:"filename,omitempty" yaml:"filename,omitempty"`
}

// Normalize derives the image filename from the hostname option when the
// request does not name one.
func (r *Request) Normalize() {
	if r.Filename != "" {
		return
	}
	if host := r.Options["hostname"]; host != "" {
		r.Filename = host + ".iso"
	}
}

// Validate checks the request after Normalize has run.
func (r *Request) Validate() error {
	if r.Source == "" {
		return fmt.Errorf("source is required")
	}
	if r.Output == "" {
		return fmt.Errorf("output is required")
	}
	if r.Filename == "" {
		return fmt.Errorf("filename is required when no hostname option is set")
	}
	if (r.KS == "") == (r.URL == "") {
		return fmt.Errorf("exactly one of ks and url is required")
	}
	return nil
}

// KernelArgs renders the options as sorted key=value kernel arguments.
func (r *Request) KernelArgs() string {
	keys := make([]string, 0, len(r.Options))
	for k := range r.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, k+"="+r.Options[k])
	}
	return strings.Join(args, " ")
}

// WriteBootConfig writes the isolinux config for the request into its
// source tree and returns the boot image and catalog paths genisoimage
// needs, relative to the tree root.
func (r *Request) WriteBootConfig() (bin, cat string, err error) {
	if r.URL != "" {
		args := "initrd=initrd.gz url=" + r.URL
		if opts := r.KernelArgs(); opts != "" {
			args += " " + opts
		}
		target := filepath.Join(r.Source, "isolinux.cfg")
		if err := os.WriteFile(target, []byte(fmt.Sprintf(ubuntuBootConfig, args)), 0o644); err != nil {
			return "", "", fmt.Errorf("failed to write %s: %w", target, err)
		}
		return "isolinux.bin", "boot.cat", nil
	}

	args := "initrd=initrd.img ks=" + r.KS
	if opts := r.KernelArgs(); opts != "" {
		args += " " + opts
	}
	target := filepath.Join(r.Source, "isolinux", "isolinux.cfg")
	if err := os.WriteFile(target, []byte(fmt.Sprintf(rhelBootConfig, args)), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	return "isolinux/isolinux.bin", "isolinux/boot.cat", nil
}
