package vm

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/vmware/govmomi/vim25/types"
)

// NIC driver names accepted on the command line.
const (
	DriverVmxnet3 = "vmxnet3"
	DriverE1000   = "e1000"
)

// The CD-ROM rides the second IDE controller so it never collides with the
// SCSI disk buses.
const (
	cdromKey           = int32(3002)
	cdromControllerKey = int32(201)
)

// SCSIControllerSpec adds a paravirtual SCSI controller on the given bus.
// The key is a random negative number; the platform assigns the real key
// and device specs in the same request reference the placeholder.
func SCSIControllerSpec(busNumber int32) *types.VirtualDeviceConfigSpec {
	return &types.VirtualDeviceConfigSpec{
		Operation: types.VirtualDeviceConfigSpecOperationAdd,
		Device: &types.ParaVirtualSCSIController{
			VirtualSCSIController: types.VirtualSCSIController{
				SharedBus: types.VirtualSCSISharingNoSharing,
				VirtualController: types.VirtualController{
					BusNumber: busNumber,
					VirtualDevice: types.VirtualDevice{
						Key: -(rand.Int31n(100) + 1),
					},
				},
			},
		},
	}
}

// NewDiskSpec adds a thin-provisioned disk on a controller. The size is in
// KB; the file name names only the datastore so the platform places the
// backing file itself.
func NewDiskSpec(sizeKB int64, controllerKey, unitNumber int32, datastore string) *types.VirtualDeviceConfigSpec {
	return &types.VirtualDeviceConfigSpec{
		Operation:     types.VirtualDeviceConfigSpecOperationAdd,
		FileOperation: types.VirtualDeviceConfigSpecFileOperationCreate,
		Device: &types.VirtualDisk{
			CapacityInKB: sizeKB,
			VirtualDevice: types.VirtualDevice{
				ControllerKey: controllerKey,
				UnitNumber:    types.NewInt32(unitNumber),
				Backing: &types.VirtualDiskFlatVer2BackingInfo{
					VirtualDeviceFileBackingInfo: types.VirtualDeviceFileBackingInfo{
						FileName: "[" + datastore + "]",
					},
					DiskMode:        string(types.VirtualDiskModePersistent),
					ThinProvisioned: types.NewBool(true),
					EagerlyScrub:    types.NewBool(false),
				},
			},
		},
	}
}

// EditDiskSpec resizes an existing disk in place.
func EditDiskSpec(disk *types.VirtualDisk, sizeKB int64) *types.VirtualDeviceConfigSpec {
	disk.CapacityInKB = sizeKB
	disk.CapacityInBytes = sizeKB * 1024
	return &types.VirtualDeviceConfigSpec{
		Operation: types.VirtualDeviceConfigSpecOperationEdit,
		Device:    disk,
	}
}

// NICSpec adds an ethernet card bound to the given backing.
func NICSpec(driver string, backing types.BaseVirtualDeviceBackingInfo) (*types.VirtualDeviceConfigSpec, error) {
	card, err := newEthernetCard(driver)
	if err != nil {
		return nil, err
	}
	card.GetVirtualEthernetCard().Backing = backing
	return &types.VirtualDeviceConfigSpec{
		Operation: types.VirtualDeviceConfigSpecOperationAdd,
		Device:    card.(types.BaseVirtualDevice),
	}, nil
}

// EditNICSpec rebinds an existing card to a new backing, optionally
// switching the driver. Key, MAC address and unit number carry over so the
// guest keeps the same interface.
func EditNICSpec(current *types.VirtualEthernetCard, driver string, backing types.BaseVirtualDeviceBackingInfo) (*types.VirtualDeviceConfigSpec, error) {
	card, err := newEthernetCard(driver)
	if err != nil {
		return nil, err
	}
	device := card.GetVirtualEthernetCard()
	device.Key = current.Key
	device.ControllerKey = current.ControllerKey
	device.UnitNumber = current.UnitNumber
	device.MacAddress = current.MacAddress
	device.AddressType = string(types.VirtualEthernetCardMacTypeAssigned)
	device.Backing = backing
	return &types.VirtualDeviceConfigSpec{
		Operation: types.VirtualDeviceConfigSpecOperationEdit,
		Device:    card.(types.BaseVirtualDevice),
	}, nil
}

func newEthernetCard(driver string) (types.BaseVirtualEthernetCard, error) {
	switch driver {
	case "", DriverVmxnet3:
		return &types.VirtualVmxnet3{}, nil
	case DriverE1000:
		return &types.VirtualE1000{}, nil
	default:
		return nil, invalidf("unsupported nic driver %q", driver)
	}
}

// StandardBacking binds a NIC to a standard portgroup by name.
func StandardBacking(network string) types.BaseVirtualDeviceBackingInfo {
	return &types.VirtualEthernetCardNetworkBackingInfo{
		VirtualDeviceDeviceBackingInfo: types.VirtualDeviceDeviceBackingInfo{
			DeviceName: network,
		},
	}
}

// DistributedBacking binds a NIC to a reserved distributed switch port.
func DistributedBacking(port types.DistributedVirtualSwitchPortConnection) types.BaseVirtualDeviceBackingInfo {
	return &types.VirtualEthernetCardDistributedVirtualPortBackingInfo{
		Port: port,
	}
}

// NewCDROMSpec adds an empty passthrough CD-ROM so installation media can
// be mounted after the machine exists.
func NewCDROMSpec() *types.VirtualDeviceConfigSpec {
	return &types.VirtualDeviceConfigSpec{
		Operation: types.VirtualDeviceConfigSpecOperationAdd,
		Device: &types.VirtualCdrom{
			VirtualDevice: types.VirtualDevice{
				Key:           cdromKey,
				ControllerKey: cdromControllerKey,
				Backing:       &types.VirtualCdromRemotePassthroughBackingInfo{},
				Connectable:   cdromConnectable(),
			},
		},
	}
}

// MountSpec points an existing CD-ROM at a datastore ISO.
func MountSpec(key, controllerKey int32, datastore, isoPath string) *types.VirtualDeviceConfigSpec {
	return &types.VirtualDeviceConfigSpec{
		Operation: types.VirtualDeviceConfigSpecOperationEdit,
		Device: &types.VirtualCdrom{
			VirtualDevice: types.VirtualDevice{
				Key:           key,
				ControllerKey: controllerKey,
				Backing: &types.VirtualCdromIsoBackingInfo{
					VirtualDeviceFileBackingInfo: types.VirtualDeviceFileBackingInfo{
						FileName: "[" + datastore + "] " + isoPath,
					},
				},
				Connectable: cdromConnectable(),
			},
		},
	}
}

// UmountSpec returns an existing CD-ROM to an empty passthrough backing.
func UmountSpec(key, controllerKey int32) *types.VirtualDeviceConfigSpec {
	return &types.VirtualDeviceConfigSpec{
		Operation: types.VirtualDeviceConfigSpecOperationEdit,
		Device: &types.VirtualCdrom{
			VirtualDevice: types.VirtualDevice{
				Key:           key,
				ControllerKey: controllerKey,
				Backing:       &types.VirtualCdromRemotePassthroughBackingInfo{},
				Connectable:   cdromConnectable(),
			},
		},
	}
}

func cdromConnectable() *types.VirtualDeviceConnectInfo {
	return &types.VirtualDeviceConnectInfo{
		Connected:         true,
		StartConnected:    true,
		AllowGuestControl: true,
	}
}

// ISOPath joins a datastore folder with an ISO name unless the path
// already names one. Datastore paths are relative, so leading slashes are
// stripped.
func ISOPath(path, iso string) string {
	switch {
	case strings.HasSuffix(path, ".iso"):
	case strings.HasSuffix(path, "/"):
		path += iso
	default:
		path += "/" + iso
	}
	return strings.TrimLeft(path, "/")
}

// FindDeviceKeys returns the device and controller keys of the first device
// whose label starts with prefix.
func FindDeviceKeys(devices []types.BaseVirtualDevice, prefix string) (key, controllerKey int32, err error) {
	for _, d := range devices {
		device := d.GetVirtualDevice()
		if device.DeviceInfo == nil {
			continue
		}
		if strings.HasPrefix(device.DeviceInfo.GetDescription().Label, prefix) {
			return device.Key, device.ControllerKey, nil
		}
	}
	return 0, 0, fmt.Errorf("no device labeled %q found", prefix)
}

// FindDisk returns the disk with the given label.
func FindDisk(devices []types.BaseVirtualDevice, label string) (*types.VirtualDisk, error) {
	for _, d := range devices {
		disk, ok := d.(*types.VirtualDisk)
		if !ok {
			continue
		}
		if disk.DeviceInfo != nil && disk.DeviceInfo.GetDescription().Label == label {
			return disk, nil
		}
	}
	return nil, fmt.Errorf("disk %q not found", label)
}

// FindNIC returns the ethernet card with the given label.
func FindNIC(devices []types.BaseVirtualDevice, label string) (types.BaseVirtualEthernetCard, error) {
	for _, d := range devices {
		card, ok := d.(types.BaseVirtualEthernetCard)
		if !ok {
			continue
		}
		device := card.GetVirtualEthernetCard()
		if device.DeviceInfo != nil && device.DeviceInfo.GetDescription().Label == label {
			return card, nil
		}
	}
	return nil, fmt.Errorf("network adapter %q not found", label)
}
