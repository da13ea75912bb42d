package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/vm"
)

var powerNames []string

var powerCmd = &cobra.Command{
	Use:   "power {on|off|reset|reboot|shutdown}",
	Short: "Change the power state of one or more VMs",
	Long: `Change the power state of the named VMs.

on, off and reset act on virtual hardware. reboot and shutdown go
through VMware Tools in the guest and require it to be running.

Example:
  vctools power on --name web01.example.com --name web02.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(powerNames) == 0 {
			return config.Invalidf("at least one --name is required")
		}
		state := args[0]
		switch state {
		case vm.PowerOn, vm.PowerOff, vm.PowerReset, vm.PowerReboot, vm.PowerShutdown:
		default:
			return config.Invalidf("unknown power state %q, use on, off, reset, reboot or shutdown", state)
		}

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		for _, name := range powerNames {
			machine, err := s.client.FindVM(ctx, name)
			if err != nil {
				return err
			}
			if err := vm.PowerOp(ctx, s.client, s.monitor, machine, state); err != nil {
				return err
			}
			fmt.Printf("✓ Power %s: %s\n", state, name)
		}
		return nil
	},
}

func init() {
	powerCmd.Flags().StringSliceVar(&powerNames, "name", nil, "VM name, repeatable")
}
