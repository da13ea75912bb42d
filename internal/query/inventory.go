// Package query answers inventory questions: what exists, where it lives,
// and how big it is.
package query

import (
	"context"
	"sort"
	"strings"

	"github.com/vmware/govmomi/vim25/types"

	"github.com/vctools/vctools/internal/cluster"
	"github.com/vctools/vctools/internal/output"
	"github.com/vctools/vctools/internal/vsphere"
)

// GuestIDs lists every guest OS identifier the platform understands,
// sorted.
func GuestIDs() []string {
	ids := types.VirtualMachineGuestOsIdentifier("").Values()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, string(id))
	}
	sort.Strings(names)
	return names
}

// GuestIDReport reports every known guest OS identifier.
func GuestIDReport() *output.Report {
	return singleColumn("Guest ID", GuestIDs())
}

// Datastores reports capacity and usage for the datastores visible from a
// datacenter.
func Datastores(ctx context.Context, client *vsphere.Client, datacenter string) (*output.Report, error) {
	dc, err := client.FindDatacenter(ctx, datacenter)
	if err != nil {
		return nil, err
	}
	stores, err := client.Datastores(ctx, dc)
	if err != nil {
		return nil, err
	}
	rows := DatastoreRows(stores)
	return &output.Report{Header: rows[0], Rows: rows[1:]}, nil
}

// Folders reports the VM folders of a datacenter, one sublevel deep.
func Folders(ctx context.Context, client *vsphere.Client, datacenter string) (*output.Report, error) {
	dc, err := client.FindDatacenter(ctx, datacenter)
	if err != nil {
		return nil, err
	}
	names, err := client.VMFolderNames(ctx, dc)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return singleColumn("Folder", names), nil
}

// Clusters reports every compute cluster in the inventory.
func Clusters(ctx context.Context, client *vsphere.Client) (*output.Report, error) {
	names, err := client.ClusterNames(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return singleColumn("Cluster", names), nil
}

// Networks reports the networks reachable from a cluster.
func Networks(ctx context.Context, client *vsphere.Client, clusterName string) (*output.Report, error) {
	cl, err := client.FindCluster(ctx, clusterName)
	if err != nil {
		return nil, err
	}
	names, err := client.ClusterNetworkNames(ctx, cl)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return singleColumn("Network", names), nil
}

// VMs reports every virtual machine in a datacenter with its managed
// object ID, sorted by name.
func VMs(ctx context.Context, client *vsphere.Client, datacenter string) (*output.Report, error) {
	dc, err := client.FindDatacenter(ctx, datacenter)
	if err != nil {
		return nil, err
	}
	machines, err := client.ListVMs(ctx, dc.Reference(), []string{"name"})
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(machines))
	for _, m := range machines {
		rows = append(rows, []string{m.Name, m.Self.Value})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return &output.Report{Header: []string{"Name", "MOID"}, Rows: rows}, nil
}

// VMsByDatastore reports the virtual machines stored on a datastore.
func VMsByDatastore(ctx context.Context, client *vsphere.Client, datacenter, datastore string) (*output.Report, error) {
	names, err := client.VMNamesByDatastore(ctx, datacenter, datastore)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return singleColumn("Name", names), nil
}

// AntiAffinityRules reports the DRS anti-affinity rules of a cluster.
func AntiAffinityRules(ctx context.Context, client *vsphere.Client, clusterName string) (*output.Report, error) {
	rules, err := cluster.AntiAffinityRules(ctx, client, clusterName)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, []string{r.Name, strings.Join(r.VMs, " ")})
	}
	return &output.Report{Header: []string{"Rule", "Virtual Machines"}, Rows: rows}, nil
}

func singleColumn(header string, values []string) *output.Report {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		rows = append(rows, []string{v})
	}
	return &output.Report{Header: []string{header}, Rows: rows}
}
