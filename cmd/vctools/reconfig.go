package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/vm"
)

var (
	reconfigSettings   []string
	reconfigFolder     string
	reconfigDevice     string
	reconfigDiskID     int
	reconfigDiskPrefix string
	reconfigSizeGB     int
	reconfigNICID      int
	reconfigNICPrefix  string
	reconfigNetwork    string
	reconfigDriver     string
	reconfigUpgrade    bool
	reconfigVersion    string
	reconfigScheduled  bool
	reconfigPolicy     string
)

var reconfigCmd = &cobra.Command{
	Use:   "reconfig <name>",
	Short: "Reconfigure an existing VM",
	Long: `Reconfigure hardware of an existing VM.

--cfgs changes CPU and memory settings, --folder moves the VM in the
inventory, --device grows a disk or rebinds a network adapter, and
--upgrade raises the virtual hardware version, optionally scheduled for
the next suitable power cycle.

Example:
  vctools reconfig web01.example.com --cfgs numCPUs=4,memoryMB=8192
  vctools reconfig web01.example.com --device disk --disk-id 1 --sizeGB 100
  vctools reconfig web01.example.com --device nic --nic-id 1 --network prod-net
  vctools reconfig web01.example.com --upgrade --scheduled --policy always`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		machine, err := s.client.FindVM(ctx, name)
		if err != nil {
			return err
		}

		changed := false

		if len(reconfigSettings) > 0 {
			settings, err := vm.ParseSettings(reconfigSettings)
			if err != nil {
				return err
			}
			spec, err := vm.SettingsSpec(settings)
			if err != nil {
				return err
			}
			if err := vm.Reconfigure(ctx, s.client, s.monitor, machine, *spec); err != nil {
				return err
			}
			fmt.Printf("✓ Updated settings on %s\n", name)
			changed = true
		}

		if reconfigFolder != "" {
			if err := vm.MoveToFolder(ctx, s.client, s.monitor, machine, s.cfg.General.Datacenter, reconfigFolder); err != nil {
				return err
			}
			fmt.Printf("✓ Moved %s to folder %s\n", name, reconfigFolder)
			changed = true
		}

		switch reconfigDevice {
		case "":
		case "disk":
			if reconfigSizeGB <= 0 {
				return config.Invalidf("--sizeGB is required to grow a disk")
			}
			label := fmt.Sprintf("%s %d", reconfigDiskPrefix, reconfigDiskID)
			if err := vm.GrowDisk(ctx, s.client, s.monitor, machine, label, reconfigSizeGB); err != nil {
				return err
			}
			fmt.Printf("✓ Grew %s on %s to %d GB\n", label, name, reconfigSizeGB)
			changed = true
		case "nic":
			if reconfigNetwork == "" {
				return config.Invalidf("--network is required to rebind a nic")
			}
			label := fmt.Sprintf("%s %d", reconfigNICPrefix, reconfigNICID)
			if err := vm.RebindNIC(ctx, s.client, s.monitor, machine, label, reconfigNetwork, reconfigDriver); err != nil {
				return err
			}
			fmt.Printf("✓ Rebound %s on %s to %s\n", label, name, reconfigNetwork)
			changed = true
		default:
			return config.Invalidf("unknown device %q, use disk or nic", reconfigDevice)
		}

		if reconfigUpgrade {
			if err := vm.UpgradeHardware(ctx, s.client, s.monitor, machine, reconfigVersion, reconfigScheduled, reconfigPolicy); err != nil {
				return err
			}
			fmt.Printf("✓ Hardware upgrade requested for %s\n", name)
			changed = true
		}

		if !changed {
			return config.Invalidf("nothing to do, pass --cfgs, --folder, --device or --upgrade")
		}
		return nil
	},
}

var (
	addDevice  string
	addNetwork string
	addDriver  string
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add hardware to an existing VM",
	Long: `Add a device to an existing VM. Only network adapters are supported.

Example:
  vctools add web01.example.com --device nic --network prod-net --driver vmxnet3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]
		if addDevice != "nic" {
			return config.Invalidf("unsupported device %q, only nic can be added", addDevice)
		}

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		machine, err := s.client.FindVM(ctx, name)
		if err != nil {
			return err
		}
		if err := vm.AddNIC(ctx, s.client, s.monitor, s.prompter, machine, addNetwork, addDriver); err != nil {
			return err
		}
		fmt.Printf("✓ Added nic to %s\n", name)
		return nil
	},
}

func init() {
	reconfigCmd.Flags().StringSliceVar(&reconfigSettings, "cfgs", nil, "Settings to change as key=value, e.g. numCPUs=4,memoryMB=8192")
	reconfigCmd.Flags().StringVar(&reconfigFolder, "folder", "", "Inventory folder to move the VM into")
	reconfigCmd.Flags().StringVar(&reconfigDevice, "device", "", "Device type to reconfigure: disk or nic")
	reconfigCmd.Flags().IntVar(&reconfigDiskID, "disk-id", 1, "Disk number to grow")
	reconfigCmd.Flags().StringVar(&reconfigDiskPrefix, "disk-prefix", "Hard disk", "Label prefix disks carry in the inventory")
	reconfigCmd.Flags().IntVar(&reconfigSizeGB, "sizeGB", 0, "New disk size in GB")
	reconfigCmd.Flags().IntVar(&reconfigNICID, "nic-id", 1, "Network adapter number to rebind")
	reconfigCmd.Flags().StringVar(&reconfigNICPrefix, "nic-prefix", "Network adapter", "Label prefix adapters carry in the inventory")
	reconfigCmd.Flags().StringVar(&reconfigNetwork, "network", "", "Network to bind the adapter to")
	reconfigCmd.Flags().StringVar(&reconfigDriver, "driver", vm.DriverVmxnet3, "Adapter driver: vmxnet3 or e1000")
	reconfigCmd.Flags().BoolVar(&reconfigUpgrade, "upgrade", false, "Upgrade the virtual hardware version")
	reconfigCmd.Flags().StringVar(&reconfigVersion, "version", "", "Target hardware version, e.g. vmx-13 (default: latest)")
	reconfigCmd.Flags().BoolVar(&reconfigScheduled, "scheduled", false, "Schedule the upgrade instead of running it now")
	reconfigCmd.Flags().StringVar(&reconfigPolicy, "policy", "", "Scheduled upgrade policy: always or never")

	addCmd.Flags().StringVar(&addDevice, "device", "nic", "Device type to add, only nic")
	addCmd.Flags().StringVar(&addNetwork, "network", "", "Network to bind the new adapter to (prompted when empty)")
	addCmd.Flags().StringVar(&addDriver, "driver", vm.DriverVmxnet3, "Adapter driver: vmxnet3 or e1000")
}
