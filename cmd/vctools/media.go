package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/media"
	"github.com/vctools/vctools/internal/vm"
)

var (
	mountNames     []string
	mountDatastore string
	mountPath      string
)

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount an installation ISO on one or more VMs",
	Long: `Attach an ISO from a datastore to the CD-ROM of each named VM.

The ISO path defaults to <path>/<name>.iso unless --path already names
an .iso file.

Example:
  vctools mount --name web01.example.com --datastore iso-store --path rhel7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(mountNames) == 0 {
			return config.Invalidf("at least one --name is required")
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		datastore := mountDatastore
		if datastore == "" {
			datastore = s.cfg.Mount.Datastore
		}
		isoPath := mountPath
		if isoPath == "" {
			isoPath = s.cfg.Mount.Path
		}
		if datastore == "" {
			return config.Invalidf("no datastore configured, use --datastore or the rc file")
		}

		for _, name := range mountNames {
			machine, err := s.client.FindVM(ctx, name)
			if err != nil {
				return err
			}
			if err := vm.MountISO(ctx, s.client, s.monitor, machine, datastore, vm.ISOPath(isoPath, name+".iso")); err != nil {
				return err
			}
			fmt.Printf("✓ Mounted ISO on %s\n", name)
		}
		return nil
	},
}

var umountNames []string

var umountCmd = &cobra.Command{
	Use:   "umount",
	Short: "Unmount the CD-ROM of one or more VMs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(umountNames) == 0 {
			return config.Invalidf("at least one --name is required")
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		for _, name := range umountNames {
			machine, err := s.client.FindVM(ctx, name)
			if err != nil {
				return err
			}
			if err := vm.UmountISO(ctx, s.client, s.monitor, machine); err != nil {
				return err
			}
			fmt.Printf("✓ Unmounted ISO on %s\n", name)
		}
		return nil
	},
}

var (
	uploadISOs      []string
	uploadDest      string
	uploadDatastore string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload ISO images to a datastore",
	Long: `Validate local ISO images and upload them to a datastore folder.

Example:
  vctools upload --iso web01.example.com.iso --datastore iso-store --dest isos`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(uploadISOs) == 0 {
			return config.Invalidf("at least one --iso is required")
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		datastore := uploadDatastore
		if datastore == "" {
			datastore = s.cfg.Upload.Datastore
		}
		dest := uploadDest
		if dest == "" {
			dest = s.cfg.Upload.Dest
		}
		if datastore == "" {
			return config.Invalidf("no datastore configured, use --datastore or the rc file")
		}

		uploader := media.NewUploader(s.client)
		for _, iso := range uploadISOs {
			if err := uploader.Upload(ctx, iso, s.cfg.General.Datacenter, datastore, dest); err != nil {
				return err
			}
			fmt.Printf("✓ Uploaded %s\n", iso)
		}
		return nil
	},
}

func init() {
	mountCmd.Flags().StringSliceVar(&mountNames, "name", nil, "VM name, repeatable")
	mountCmd.Flags().StringVar(&mountDatastore, "datastore", "", "Datastore holding the ISO")
	mountCmd.Flags().StringVar(&mountPath, "path", "", "Datastore folder or full ISO path")

	umountCmd.Flags().StringSliceVar(&umountNames, "name", nil, "VM name, repeatable")

	uploadCmd.Flags().StringSliceVar(&uploadISOs, "iso", nil, "Local ISO file, repeatable")
	uploadCmd.Flags().StringVar(&uploadDatastore, "datastore", "", "Destination datastore")
	uploadCmd.Flags().StringVar(&uploadDest, "dest", "", "Folder on the datastore")
	uploadCmd.Flags().Bool("verify-ssl", false, "Verify the vCenter TLS certificate")
}
