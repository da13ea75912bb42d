package vm

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/vctools/vctools/internal/prompts"
	"github.com/vctools/vctools/internal/tasks"
	"github.com/vctools/vctools/internal/vsphere"
)

// Reconfigure submits a config spec and polls the task, answering any
// question the machine raises while it runs.
func Reconfigure(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, machine *object.VirtualMachine, spec types.VirtualMachineConfigSpec) error {
	task, err := machine.Reconfigure(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to reconfigure: %w", err)
	}
	return monitor.Wait(ctx, tasks.NewStatus(client, task), tasks.NewVMQuestions(client, machine))
}

// ParseSettings splits key=value arguments into a map.
func ParseSettings(args []string) (map[string]string, error) {
	settings := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, invalidf("setting %q is not key=value", arg)
		}
		settings[key] = value
	}
	return settings, nil
}

// SettingsSpec fills a config spec from key=value settings. Only settings
// the platform accepts on a live reconfigure are allowed; digits become
// numbers, True and False become flags.
func SettingsSpec(settings map[string]string) (*types.VirtualMachineConfigSpec, error) {
	spec := &types.VirtualMachineConfigSpec{}
	for key, raw := range settings {
		switch key {
		case "name":
			spec.Name = raw
		case "guestId":
			spec.GuestId = raw
		case "annotation":
			spec.Annotation = raw
		case "memoryMB":
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, invalidf("memoryMB: %q is not a number", raw)
			}
			spec.MemoryMB = n
		case "numCPUs":
			n, err := strconv.ParseInt(raw, 10, 32)
			if err != nil {
				return nil, invalidf("numCPUs: %q is not a number", raw)
			}
			spec.NumCPUs = int32(n)
		case "cpuHotAddEnabled":
			b, err := parseFlag(raw)
			if err != nil {
				return nil, invalidf("cpuHotAddEnabled: %s", err)
			}
			spec.CpuHotAddEnabled = types.NewBool(b)
		case "memoryHotAddEnabled":
			b, err := parseFlag(raw)
			if err != nil {
				return nil, invalidf("memoryHotAddEnabled: %s", err)
			}
			spec.MemoryHotAddEnabled = types.NewBool(b)
		default:
			return nil, invalidf("unknown setting %q", key)
		}
	}
	return spec, nil
}

func parseFlag(raw string) (bool, error) {
	switch raw {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	}
	return false, fmt.Errorf("%q is not True or False", raw)
}

// CheckDiskGrowth validates a resize against the current size and the
// datastore's headroom. Growth that would leave less than 10% of the
// datastore free is refused.
func CheckDiskGrowth(currentKB, newKB, freeBytes, capacityBytes int64, cluster, datastore string) error {
	if newKB == currentKB {
		return invalidf("new size and existing size are equal")
	}
	if newKB < currentKB {
		return invalidf("size %dGB does not exceed %dGB", newKB/1024/1024, currentKB/1024/1024)
	}
	delta := (newKB - currentKB) * 1024
	if float64(freeBytes-delta)/float64(capacityBytes) < 0.10 {
		return invalidf("%s %s disk space low, aborting", cluster, datastore)
	}
	return nil
}

// GrowDisk resizes the labeled disk. Shrinking is refused, as is growth
// the backing datastore cannot absorb.
func GrowDisk(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, machine *object.VirtualMachine, label string, sizeGB int) error {
	var vm mo.VirtualMachine
	props := []string{"name", "config.hardware.device", "resourcePool"}
	if err := client.Properties(ctx, machine.Reference(), props, &vm); err != nil {
		return err
	}
	if vm.Config == nil {
		return fmt.Errorf("no hardware config for %s", vm.Name)
	}

	disk, err := FindDisk(vm.Config.Hardware.Device, label)
	if err != nil {
		return err
	}
	backing, ok := disk.Backing.(*types.VirtualDiskFlatVer2BackingInfo)
	if !ok || backing.Datastore == nil {
		return fmt.Errorf("disk %q has no datastore backing", label)
	}

	var store mo.Datastore
	if err := client.Properties(ctx, *backing.Datastore, []string{"summary"}, &store); err != nil {
		return err
	}

	cluster, err := clusterNameOf(ctx, client, vm)
	if err != nil {
		return err
	}

	newKB := int64(sizeGB) * 1024 * 1024
	if err := CheckDiskGrowth(disk.CapacityInKB, newKB, store.Summary.FreeSpace, store.Summary.Capacity, cluster, store.Summary.Name); err != nil {
		return err
	}

	log.Printf("%s label: %s current_size: %dGB new_size: %dGB",
		vm.Name, label, disk.CapacityInKB/1024/1024, sizeGB)

	spec := types.VirtualMachineConfigSpec{
		DeviceChange: []types.BaseVirtualDeviceConfigSpec{EditDiskSpec(disk, newKB)},
	}
	return Reconfigure(ctx, client, monitor, machine, spec)
}

// clusterNameOf walks resource pool -> parent to name the cluster a
// machine runs in.
func clusterNameOf(ctx context.Context, client *vsphere.Client, vm mo.VirtualMachine) (string, error) {
	if vm.ResourcePool == nil {
		return "", fmt.Errorf("no resource pool for %s", vm.Name)
	}
	var pool mo.ResourcePool
	if err := client.Properties(ctx, *vm.ResourcePool, []string{"parent"}, &pool); err != nil {
		return "", err
	}
	if pool.Parent == nil {
		return "", fmt.Errorf("resource pool of %s has no parent", vm.Name)
	}
	var owner mo.ManagedEntity
	if err := client.Properties(ctx, *pool.Parent, []string{"name"}, &owner); err != nil {
		return "", err
	}
	return owner.Name, nil
}

// RebindNIC moves the labeled adapter to a different network, keeping its
// MAC address so the guest sees the same interface.
func RebindNIC(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, machine *object.VirtualMachine, label, network, driver string) error {
	var vm mo.VirtualMachine
	if err := client.Properties(ctx, machine.Reference(), []string{"name", "config.hardware.device"}, &vm); err != nil {
		return err
	}
	if vm.Config == nil {
		return fmt.Errorf("no hardware config for %s", vm.Name)
	}

	card, err := FindNIC(vm.Config.Hardware.Device, label)
	if err != nil {
		return err
	}
	backing, err := client.NetworkBacking(ctx, network)
	if err != nil {
		return err
	}
	change, err := EditNICSpec(card.GetVirtualEthernetCard(), driver, backing)
	if err != nil {
		return err
	}

	log.Printf("Rebinding %s on %s to %s", label, vm.Name, network)
	spec := types.VirtualMachineConfigSpec{
		DeviceChange: []types.BaseVirtualDeviceConfigSpec{change},
	}
	return Reconfigure(ctx, client, monitor, machine, spec)
}

// AddNIC attaches a new adapter. With no network given, the operator picks
// one from the networks visible on the machine's current host.
func AddNIC(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, p *prompts.Prompter, machine *object.VirtualMachine, network, driver string) error {
	if network == "" {
		var vm mo.VirtualMachine
		if err := client.Properties(ctx, machine.Reference(), []string{"runtime.host"}, &vm); err != nil {
			return err
		}
		if vm.Runtime.Host == nil {
			return fmt.Errorf("machine has no host, power it on first")
		}
		names, err := client.HostNetworkNames(ctx, *vm.Runtime.Host)
		if err != nil {
			return err
		}
		picked, err := p.Networks(names)
		if err != nil {
			return err
		}
		if len(picked) == 0 {
			return invalidf("no network selected")
		}
		network = picked[0]
	}

	backing, err := client.NetworkBacking(ctx, network)
	if err != nil {
		return err
	}
	change, err := NICSpec(driver, backing)
	if err != nil {
		return err
	}

	spec := types.VirtualMachineConfigSpec{
		DeviceChange: []types.BaseVirtualDeviceConfigSpec{change},
	}
	return Reconfigure(ctx, client, monitor, machine, spec)
}

// MoveToFolder relocates the machine into another VM folder.
func MoveToFolder(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, machine *object.VirtualMachine, datacenter, folderName string) error {
	dc, err := client.FindDatacenter(ctx, datacenter)
	if err != nil {
		return err
	}
	folder, err := client.FindVMFolder(ctx, dc, folderName)
	if err != nil {
		return err
	}

	task, err := folder.MoveInto(ctx, []types.ManagedObjectReference{machine.Reference()})
	if err != nil {
		return fmt.Errorf("failed to move into %s: %w", folderName, err)
	}
	return monitor.Wait(ctx, tasks.NewStatus(client, task), nil)
}

// UpgradePolicy maps the command line policy names onto the platform's.
func UpgradePolicy(name string) (string, error) {
	switch name {
	case "always":
		return string(types.ScheduledHardwareUpgradeInfoHardwareUpgradePolicyAlways), nil
	case "never":
		return string(types.ScheduledHardwareUpgradeInfoHardwareUpgradePolicyNever), nil
	case "on_soft_poweroff":
		return string(types.ScheduledHardwareUpgradeInfoHardwareUpgradePolicyOnSoftPowerOff), nil
	}
	return "", invalidf("unknown upgrade policy %q", name)
}

// UpgradeHardware upgrades the virtual hardware, either immediately or
// scheduled for a later power cycle. version may be empty to take the
// newest the host supports.
func UpgradeHardware(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, machine *object.VirtualMachine, version string, scheduled bool, policy string) error {
	if scheduled {
		upgradePolicy, err := UpgradePolicy(policy)
		if err != nil {
			return err
		}
		spec := types.VirtualMachineConfigSpec{
			ScheduledHardwareUpgradeInfo: &types.ScheduledHardwareUpgradeInfo{
				UpgradePolicy:                  upgradePolicy,
				VersionKey:                     version,
				ScheduledHardwareUpgradeStatus: string(types.ScheduledHardwareUpgradeInfoHardwareUpgradeStatusPending),
			},
		}
		return Reconfigure(ctx, client, monitor, machine, spec)
	}

	task, err := machine.UpgradeVM(ctx, version)
	if err != nil {
		return fmt.Errorf("failed to upgrade hardware: %w", err)
	}
	return monitor.Wait(ctx, tasks.NewStatus(client, task), nil)
}

// MountISO points the machine's CD-ROM at a datastore ISO.
func MountISO(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, machine *object.VirtualMachine, datastore, isoPath string) error {
	name, key, controllerKey, err := cdromKeys(ctx, client, machine)
	if err != nil {
		return err
	}

	log.Printf("Mounting [%s] %s on %s", datastore, isoPath, name)
	spec := types.VirtualMachineConfigSpec{
		DeviceChange: []types.BaseVirtualDeviceConfigSpec{MountSpec(key, controllerKey, datastore, isoPath)},
	}
	return Reconfigure(ctx, client, monitor, machine, spec)
}

// UmountISO ejects whatever the CD-ROM holds. The guest may raise a locked
// door question, which the task monitor answers.
func UmountISO(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, machine *object.VirtualMachine) error {
	name, key, controllerKey, err := cdromKeys(ctx, client, machine)
	if err != nil {
		return err
	}

	log.Printf("Umount ISO from %s", name)
	spec := types.VirtualMachineConfigSpec{
		DeviceChange: []types.BaseVirtualDeviceConfigSpec{UmountSpec(key, controllerKey)},
	}
	return Reconfigure(ctx, client, monitor, machine, spec)
}

func cdromKeys(ctx context.Context, client *vsphere.Client, machine *object.VirtualMachine) (name string, key, controllerKey int32, err error) {
	var vm mo.VirtualMachine
	if err := client.Properties(ctx, machine.Reference(), []string{"name", "config.hardware.device"}, &vm); err != nil {
		return "", 0, 0, err
	}
	if vm.Config == nil {
		return "", 0, 0, fmt.Errorf("no hardware config for %s", vm.Name)
	}
	key, controllerKey, err = FindDeviceKeys(vm.Config.Hardware.Device, "CD/DVD")
	if err != nil {
		return "", 0, 0, fmt.Errorf("%s: %w", vm.Name, err)
	}
	return vm.Name, key, controllerKey, nil
}
