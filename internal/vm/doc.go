// Package vm provides high-level VM lifecycle operations against vCenter.
//
// This package turns validated machine configurations into vSphere device
// and config specs and drives the platform through a connected client:
//
//   - Complete: prompt for settings a configuration leaves out
//   - Create: build a VM with its SCSI controller, disks, NICs and CD-ROM
//   - PreCreate/PostCreate: boot ISO request, upload, mount and power hooks
//   - Reconfigure, GrowDisk, RebindNIC, AddNIC, MoveToFolder,
//     UpgradeHardware: change hardware of an existing VM
//   - PowerOp, MountISO, UmountISO: day-two operations
//
// Every operation that talks to vCenter runs its task through a
// tasks.Monitor so installer questions get answered and failures surface
// with the platform's message.
//
// Operator mistakes (bad sizes, unknown settings, refused resizes) are
// reported as invalid-input errors so the CLI can exit with a distinct
// code.
package vm
