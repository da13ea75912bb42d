// Package vm provides high-level virtual machine lifecycle operations.
package vm

import (
	"context"
	"fmt"
	"log"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/tasks"
	"github.com/vctools/vctools/internal/vsphere"
)

// Creator builds virtual machines.
type Creator struct {
	client  *vsphere.Client
	monitor *tasks.Monitor
}

// NewCreator returns a Creator using the given connection. The monitor
// reports task progress while builds run.
func NewCreator(client *vsphere.Client, monitor *tasks.Monitor) *Creator {
	return &Creator{client: client, monitor: monitor}
}

// Create builds a virtual machine from a validated configuration.
//
// The workflow:
//  1. Resolve placement (datacenter, cluster, resource pool, folder)
//  2. Reserve network backings for each NIC
//  3. Assemble the hardware spec (SCSI buses, disks, NICs, CD-ROM)
//  4. Submit the build task and poll it to completion
func (c *Creator) Create(ctx context.Context, cfg *config.VMConfig) error {
	if err := cfg.Validate(); err != nil {
		return invalidf("invalid configuration: %s", err)
	}

	// Step 1: Resolve placement
	log.Printf("Resolving datacenter '%s'...", cfg.Datacenter)
	dc, err := c.client.FindDatacenter(ctx, cfg.Datacenter)
	if err != nil {
		return err
	}

	log.Printf("Resolving cluster '%s'...", cfg.Cluster)
	cluster, err := c.client.FindCluster(ctx, cfg.Cluster)
	if err != nil {
		return err
	}
	pool, err := cluster.ResourcePool(ctx)
	if err != nil {
		return fmt.Errorf("failed to get resource pool of %s: %w", cfg.Cluster, err)
	}

	log.Printf("Resolving folder '%s'...", cfg.Folder)
	folder, err := c.client.FindVMFolder(ctx, dc, cfg.Folder)
	if err != nil {
		return err
	}

	// Step 2: Reserve network backings
	log.Printf("Resolving networks %v...", cfg.NICs)
	backings, err := c.nicBackings(ctx, cluster, cfg)
	if err != nil {
		return err
	}

	// Step 3: Assemble the hardware spec
	spec, err := BuildCreateSpec(cfg, backings)
	if err != nil {
		return err
	}

	// Step 4: Submit and wait
	log.Printf("Creating virtual machine '%s'...", cfg.Name)
	task, err := folder.CreateVM(ctx, *spec, pool, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", cfg.Name, err)
	}
	if err := c.monitor.Wait(ctx, tasks.NewStatus(c.client, task), nil); err != nil {
		return err
	}

	log.Printf("Virtual machine '%s' created successfully!", cfg.Name)
	return nil
}

// nicBackings resolves one backing per configured network, verifying each
// network is reachable from the target cluster.
func (c *Creator) nicBackings(ctx context.Context, cluster *object.ClusterComputeResource, cfg *config.VMConfig) ([]types.BaseVirtualDeviceBackingInfo, error) {
	available, err := c.client.ClusterNetworkNames(ctx, cluster)
	if err != nil {
		return nil, err
	}
	reachable := make(map[string]bool, len(available))
	for _, name := range available {
		reachable[name] = true
	}

	backings := make([]types.BaseVirtualDeviceBackingInfo, 0, len(cfg.NICs))
	for _, network := range cfg.NICs {
		if !reachable[network] {
			return nil, fmt.Errorf("network %q not found in cluster %s", network, cfg.Cluster)
		}
		if cfg.SwitchType == config.SwitchDistributed {
			port, err := c.client.DistributedPortConnection(ctx, network)
			if err != nil {
				return nil, err
			}
			backings = append(backings, DistributedBacking(*port))
			continue
		}
		backings = append(backings, StandardBacking(network))
	}
	return backings, nil
}

// BuildCreateSpec converts a validated configuration into the platform
// config spec: one paravirtual SCSI controller per disk bus, thin disks,
// one NIC per network, and an empty CD-ROM for installation media.
func BuildCreateSpec(cfg *config.VMConfig, nicBackings []types.BaseVirtualDeviceBackingInfo) (*types.VirtualMachineConfigSpec, error) {
	if len(nicBackings) != len(cfg.NICs) {
		return nil, fmt.Errorf("have %d nic backings for %d networks", len(nicBackings), len(cfg.NICs))
	}

	deviceChange := []types.BaseVirtualDeviceConfigSpec{NewCDROMSpec()}

	for _, bus := range cfg.Disks.Buses() {
		controller := SCSIControllerSpec(int32(bus))
		controllerKey := controller.Device.GetVirtualDevice().Key
		deviceChange = append(deviceChange, controller)

		for unit, sizeGB := range cfg.Disks[bus] {
			sizeKB := int64(sizeGB) * 1024 * 1024
			deviceChange = append(deviceChange, NewDiskSpec(sizeKB, controllerKey, int32(unit), cfg.Datastore))
		}
	}

	for _, backing := range nicBackings {
		nic, err := NICSpec(DriverVmxnet3, backing)
		if err != nil {
			return nil, err
		}
		deviceChange = append(deviceChange, nic)
	}

	return &types.VirtualMachineConfigSpec{
		Name:                cfg.Name,
		GuestId:             cfg.GuestID,
		NumCPUs:             cfg.NumCPUs,
		MemoryMB:            cfg.MemoryMB,
		Annotation:          cfg.Annotation,
		CpuHotAddEnabled:    cfg.CPUHotAddEnabled,
		MemoryHotAddEnabled: cfg.MemoryHotAddEnabled,
		Files: &types.VirtualMachineFileInfo{
			VmPathName: "[" + cfg.Datastore + "]",
		},
		DeviceChange: deviceChange,
	}, nil
}
