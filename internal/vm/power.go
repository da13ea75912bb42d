package vm

import (
	"context"
	"fmt"
	"log"

	"github.com/vmware/govmomi/object"

	"github.com/vctools/vctools/internal/tasks"
	"github.com/vctools/vctools/internal/vsphere"
)

// Power states accepted on the command line.
const (
	PowerOn       = "on"
	PowerOff      = "off"
	PowerReset    = "reset"
	PowerReboot   = "reboot"
	PowerShutdown = "shutdown"
)

// PowerOp changes a machine's power state. on, off and reset submit tasks
// that get monitored; reboot and shutdown ask the guest tools and return
// immediately.
func PowerOp(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, machine *object.VirtualMachine, state string) error {
	name, err := machine.ObjectName(ctx)
	if err != nil {
		name = machine.Reference().Value
	}
	log.Printf("%s changing power state to %s", name, state)

	var task *object.Task
	switch state {
	case PowerOn:
		task, err = machine.PowerOn(ctx)
	case PowerOff:
		task, err = machine.PowerOff(ctx)
	case PowerReset:
		task, err = machine.Reset(ctx)
	case PowerReboot:
		if err := machine.RebootGuest(ctx); err != nil {
			return fmt.Errorf("failed to reboot guest: %w", err)
		}
		return nil
	case PowerShutdown:
		if err := machine.ShutdownGuest(ctx); err != nil {
			return fmt.Errorf("failed to shut down guest: %w", err)
		}
		return nil
	default:
		return invalidf("unknown power state %q", state)
	}
	if err != nil {
		return fmt.Errorf("failed to change power state to %s: %w", state, err)
	}

	return monitor.Wait(ctx, tasks.NewStatus(client, task), tasks.NewVMQuestions(client, machine))
}
