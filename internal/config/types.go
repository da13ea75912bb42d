package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the merged tool configuration: the rc chain overlaid with any
// per-host document. Section names match the YAML keys the rc file uses.
type Config struct {
	General       GeneralSection `yaml:"general,omitempty"`
	Logging       LoggingSection `yaml:"logging,omitempty"`
	Create        CreateSection  `yaml:"create,omitempty"`
	Mount         MountSection   `yaml:"mount,omitempty"`
	Upload        UploadSection  `yaml:"upload,omitempty"`
	ClusterConfig DRSSection     `yaml:"clusterconfig,omitempty"`
	MkBootISO     MkBootISO      `yaml:"mkbootiso,omitempty"`
	VMConfig      *VMConfig      `yaml:"vmconfig,omitempty"`
}

// GeneralSection holds connection defaults shared by every command.
type GeneralSection struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	User       string `yaml:"user,omitempty"`
	Domain     string `yaml:"domain,omitempty"`
	Passwd     string `yaml:"passwd,omitempty"`
	PasswdFile string `yaml:"passwd_file,omitempty"`
	Datacenter string `yaml:"datacenter,omitempty"`
}

// LoggingSection mirrors the logging flags.
type LoggingSection struct {
	Level         string `yaml:"level,omitempty"`
	ConsoleLevel  string `yaml:"console_level,omitempty"`
	ConsoleStream string `yaml:"console_stream,omitempty"`
	Logfile       string `yaml:"logfile,omitempty"`
}

// CreateSection enables the post-create hooks.
type CreateSection struct {
	Power  bool `yaml:"power,omitempty"`
	Upload bool `yaml:"upload,omitempty"`
	Mount  bool `yaml:"mount,omitempty"`
}

// MountSection is the default location of installation media.
type MountSection struct {
	Datastore string `yaml:"datastore,omitempty"`
	Path      string `yaml:"path,omitempty"`
}

// UploadSection is the default upload destination for ISO images.
type UploadSection struct {
	Datastore string `yaml:"datastore,omitempty"`
	Dest      string `yaml:"dest,omitempty"`
	VerifySSL bool   `yaml:"verify_ssl,omitempty"`
}

// DRSSection configures cluster rule management.
type DRSSection struct {
	Prefix string `yaml:"prefix,omitempty"`
}

// MkBootISO configures the boot ISO service and carries a per-host request.
// Defaults are keyed by guest ID and merged under the request by the
// pre-create hook.
type MkBootISO struct {
	APIURL   string                    `yaml:"api_url,omitempty"`
	Defaults map[string]map[string]any `yaml:"defaults,omitempty"`
}

// VMConfig describes the desired hardware and placement of a virtual
// machine. Keys match the configuration settings the platform understands,
// so a document can round-trip through `query --vmconfig --createcfg`.
type VMConfig struct {
	Name                string     `yaml:"name,omitempty"`
	GuestID             string     `yaml:"guestId,omitempty"`
	Cluster             string     `yaml:"cluster,omitempty"`
	Datacenter          string     `yaml:"datacenter,omitempty"`
	Datastore           string     `yaml:"datastore,omitempty"`
	Folder              string     `yaml:"folder,omitempty"`
	NumCPUs             int32      `yaml:"numCPUs,omitempty"`
	MemoryMB            int64      `yaml:"memoryMB,omitempty"`
	Annotation          string     `yaml:"annotation,omitempty"`
	CPUHotAddEnabled    *bool      `yaml:"cpuHotAddEnabled,omitempty"`
	MemoryHotAddEnabled *bool      `yaml:"memoryHotAddEnabled,omitempty"`
	NICs                []string   `yaml:"nics,omitempty"`
	Disks               DiskLayout `yaml:"disks,omitempty"`
	SwitchType          string     `yaml:"switch_type,omitempty"`
}

// SwitchType values.
const (
	SwitchStandard    = "standard"
	SwitchDistributed = "distributed"
)

// DiskLayout maps a SCSI bus number to the GB sizes of the disks attached
// to it. The YAML form is either a plain list (one disk per bus, in order)
// or an explicit bus map:
//
//	disks: [100, 50]
//	disks:
//	  0: [100, 50]
//	  1: [500]
type DiskLayout map[int][]int

// UnmarshalYAML accepts both the list and the map form.
func (d *DiskLayout) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var sizes []int
		if err := value.Decode(&sizes); err != nil {
			return fmt.Errorf("disks: %w", err)
		}
		layout := make(DiskLayout, len(sizes))
		for bus, size := range sizes {
			layout[bus] = []int{size}
		}
		*d = layout
		return nil
	case yaml.MappingNode:
		var buses map[int][]int
		if err := value.Decode(&buses); err != nil {
			return fmt.Errorf("disks: %w", err)
		}
		*d = buses
		return nil
	default:
		return fmt.Errorf("disks: expected a list of sizes or a bus map")
	}
}

// Buses returns the SCSI bus numbers in ascending order.
func (d DiskLayout) Buses() []int {
	buses := make([]int, 0, len(d))
	for bus := range d {
		buses = append(buses, bus)
	}
	sort.Ints(buses)
	return buses
}

// Normalize sanitizes user input to consistent formats.
// This is called automatically by Decode before validation.
func (c *VMConfig) Normalize() {
	c.Name = strings.TrimSpace(c.Name)

	if c.SwitchType == "" {
		c.SwitchType = SwitchStandard
	}
}

// Validate checks a build configuration for errors. It assumes prompting has
// already filled any missing placement fields.
func (c *VMConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.GuestID == "" {
		return fmt.Errorf("guestId is required")
	}
	if c.Cluster == "" {
		return fmt.Errorf("cluster is required")
	}
	if c.Datacenter == "" {
		return fmt.Errorf("datacenter is required")
	}
	if c.Datastore == "" {
		return fmt.Errorf("datastore is required")
	}
	if c.Folder == "" {
		return fmt.Errorf("folder is required")
	}
	if c.NumCPUs <= 0 {
		return fmt.Errorf("numCPUs must be > 0, got %d", c.NumCPUs)
	}
	if c.MemoryMB <= 0 {
		return fmt.Errorf("memoryMB must be > 0, got %d", c.MemoryMB)
	}

	if len(c.NICs) == 0 {
		return fmt.Errorf("at least one nics entry is required")
	}
	for i, nic := range c.NICs {
		if strings.TrimSpace(nic) == "" {
			return fmt.Errorf("nics[%d]: network name is required", i)
		}
	}

	if len(c.Disks) == 0 {
		return fmt.Errorf("at least one disks entry is required")
	}
	if len(c.Disks) > 4 {
		return fmt.Errorf("disks: at most 4 SCSI buses are supported, got %d", len(c.Disks))
	}
	for _, bus := range c.Disks.Buses() {
		if bus < 0 || bus > 3 {
			return fmt.Errorf("disks: bus number must be 0-3, got %d", bus)
		}
		if len(c.Disks[bus]) == 0 {
			return fmt.Errorf("disks[%d]: at least one disk size is required", bus)
		}
		for i, size := range c.Disks[bus] {
			if size <= 0 {
				return fmt.Errorf("disks[%d][%d]: size must be > 0 GB, got %d", bus, i, size)
			}
		}
	}

	switch c.SwitchType {
	case SwitchStandard, SwitchDistributed:
	default:
		return fmt.Errorf("switch_type must be %q or %q, got %q", SwitchStandard, SwitchDistributed, c.SwitchType)
	}

	return nil
}

// Normalize fills section defaults.
func (c *Config) Normalize() {
	if c.General.Port == 0 {
		c.General.Port = 443
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.ConsoleLevel == "" {
		c.Logging.ConsoleLevel = "error"
	}
	if c.Logging.ConsoleStream == "" {
		c.Logging.ConsoleStream = "stderr"
	}
	if c.Logging.Logfile == "" {
		c.Logging.Logfile = "/var/log/vctools.log"
	}
	if c.ClusterConfig.Prefix == "" {
		c.ClusterConfig.Prefix = "vctools-"
	}
	if c.VMConfig != nil {
		c.VMConfig.Normalize()
	}
}
