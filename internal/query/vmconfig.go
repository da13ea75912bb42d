package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/vctools/vctools/internal/vsphere"
)

// VMConfigDoc captures the live configuration of a machine as a document
// ready for YAML rendering: identity, sizing, hot-add flags, disks grouped
// by controller label, and NICs with their MAC and network.
func VMConfigDoc(ctx context.Context, client *vsphere.Client, name string) (map[string]any, error) {
	machine, err := client.FindVM(ctx, name)
	if err != nil {
		return nil, err
	}
	var vm mo.VirtualMachine
	if err := client.Properties(ctx, machine.Reference(), []string{"config"}, &vm); err != nil {
		return nil, err
	}
	if vm.Config == nil {
		return nil, fmt.Errorf("virtual machine %q has no configuration", name)
	}

	doc := map[string]any{
		"name":       vm.Config.Name,
		"guestId":    vm.Config.GuestId,
		"memoryMB":   vm.Config.Hardware.MemoryMB,
		"numCPUs":    vm.Config.Hardware.NumCPU,
		"annotation": vm.Config.Annotation,
	}
	if vm.Config.CpuHotAddEnabled != nil {
		doc["cpuHotAddEnabled"] = *vm.Config.CpuHotAddEnabled
	}
	if vm.Config.MemoryHotAddEnabled != nil {
		doc["memoryHotAddEnabled"] = *vm.Config.MemoryHotAddEnabled
	}

	labels := make(map[int32]string)
	for _, dev := range vm.Config.Hardware.Device {
		d := dev.GetVirtualDevice()
		labels[d.Key] = deviceLabel(d)
	}

	disks := make(map[string]map[string]int64)
	nics := make(map[string][]string)
	var portgroups map[string]string

	for _, dev := range vm.Config.Hardware.Device {
		if disk, ok := dev.(*types.VirtualDisk); ok {
			controller := labels[disk.ControllerKey]
			if disks[controller] == nil {
				disks[controller] = make(map[string]int64)
			}
			disks[controller][deviceLabel(&disk.VirtualDevice)] = diskGB(disk)
			continue
		}

		card, ok := dev.(types.BaseVirtualEthernetCard)
		if !ok {
			continue
		}
		eth := card.GetVirtualEthernetCard()
		network := ""
		switch b := eth.Backing.(type) {
		case *types.VirtualEthernetCardNetworkBackingInfo:
			network = b.DeviceName
		case *types.VirtualEthernetCardDistributedVirtualPortBackingInfo:
			if portgroups == nil {
				if portgroups, err = client.PortgroupNames(ctx); err != nil {
					return nil, err
				}
			}
			network = portgroups[b.Port.PortgroupKey]
		}
		nics[deviceLabel(&eth.VirtualDevice)] = []string{eth.MacAddress, network}
	}

	doc["disks"] = disks
	doc["nics"] = nics
	return doc, nil
}

// CreateCfg converts a live config dump into a config that can build a copy
// of the machine: disks keyed by SCSI bus with ordered sizes, NICs reduced
// to ordered network names, and the annotation recording the source.
func CreateCfg(doc map[string]any, newName string) (map[string]any, error) {
	cfg := map[string]any{
		"name":       newName,
		"annotation": fmt.Sprintf("vctools cfg copy %v", doc["name"]),
	}
	for _, key := range []string{"guestId", "memoryMB", "numCPUs", "cpuHotAddEnabled", "memoryHotAddEnabled"} {
		if v, ok := doc[key]; ok {
			cfg[key] = v
		}
	}

	disks, _ := doc["disks"].(map[string]map[string]int64)
	buses := make(map[int][]int64, len(disks))
	for controller, byLabel := range disks {
		if !strings.Contains(controller, "SCSI") {
			continue
		}
		bus, err := labelIndex(controller)
		if err != nil {
			return nil, err
		}
		diskLabels := make([]string, 0, len(byLabel))
		for label := range byLabel {
			diskLabels = append(diskLabels, label)
		}
		if err := sortByIndex(diskLabels); err != nil {
			return nil, err
		}
		sizes := make([]int64, 0, len(diskLabels))
		for _, label := range diskLabels {
			sizes = append(sizes, byLabel[label])
		}
		buses[bus] = sizes
	}
	cfg["disks"] = buses

	nics, _ := doc["nics"].(map[string][]string)
	nicLabels := make([]string, 0, len(nics))
	for label := range nics {
		nicLabels = append(nicLabels, label)
	}
	if err := sortByIndex(nicLabels); err != nil {
		return nil, err
	}
	networks := make([]string, 0, len(nicLabels))
	for _, label := range nicLabels {
		networks = append(networks, nics[label][1])
	}
	cfg["nics"] = networks

	return cfg, nil
}

func deviceLabel(d *types.VirtualDevice) string {
	if d.DeviceInfo == nil {
		return fmt.Sprintf("device %d", d.Key)
	}
	return d.DeviceInfo.GetDescription().Label
}

// diskGB reads a disk size in whole GB, preferring the byte-exact field.
func diskGB(d *types.VirtualDisk) int64 {
	if d.CapacityInBytes > 0 {
		return d.CapacityInBytes / (1024 * 1024 * 1024)
	}
	return d.CapacityInKB / (1024 * 1024)
}

// labelIndex parses the trailing number of a device label such as
// "Hard disk 2" or "SCSI controller 0".
func labelIndex(label string) (int, error) {
	i := strings.LastIndex(label, " ")
	if i < 0 {
		return 0, fmt.Errorf("device label %q has no index", label)
	}
	n, err := strconv.Atoi(label[i+1:])
	if err != nil {
		return 0, fmt.Errorf("device label %q has no index", label)
	}
	return n, nil
}

// sortByIndex orders device labels by their trailing number, so
// "Hard disk 10" sorts after "Hard disk 9".
func sortByIndex(labels []string) error {
	type indexed struct {
		label string
		n     int
	}
	pairs := make([]indexed, 0, len(labels))
	for _, label := range labels {
		n, err := labelIndex(label)
		if err != nil {
			return err
		}
		pairs = append(pairs, indexed{label, n})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].n < pairs[j].n })
	for i, p := range pairs {
		labels[i] = p.label
	}
	return nil
}
