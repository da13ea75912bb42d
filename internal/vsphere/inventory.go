package vsphere

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

// ErrNotFound marks inventory lookups that matched nothing.
var ErrNotFound = errors.New("not found")

// DatacenterNames lists every datacenter in the inventory.
func (c *Client) DatacenterNames(ctx context.Context) ([]string, error) {
	v, err := c.containerView(ctx, []string{"Datacenter"})
	if err != nil {
		return nil, err
	}
	defer func() { _ = v.Destroy(ctx) }()

	var dcs []mo.Datacenter
	if err := v.Retrieve(ctx, []string{"Datacenter"}, []string{"name"}, &dcs); err != nil {
		return nil, fmt.Errorf("failed to list datacenters: %w", err)
	}

	names := make([]string, 0, len(dcs))
	for _, dc := range dcs {
		names = append(names, dc.Name)
	}
	return names, nil
}

// FindDatacenter resolves a datacenter by name. An empty name resolves the
// default datacenter when the inventory only has one.
func (c *Client) FindDatacenter(ctx context.Context, name string) (*object.Datacenter, error) {
	finder := find.NewFinder(c.vim, true)
	dc, err := finder.DatacenterOrDefault(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("datacenter %q not found: %w", name, err)
	}
	return dc, nil
}

// ClusterNames lists the compute clusters in the inventory.
func (c *Client) ClusterNames(ctx context.Context) ([]string, error) {
	v, err := c.containerView(ctx, []string{"ClusterComputeResource"})
	if err != nil {
		return nil, err
	}
	defer func() { _ = v.Destroy(ctx) }()

	var clusters []mo.ClusterComputeResource
	if err := v.Retrieve(ctx, []string{"ClusterComputeResource"}, []string{"name"}, &clusters); err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}

	names := make([]string, 0, len(clusters))
	for _, cluster := range clusters {
		names = append(names, cluster.Name)
	}
	return names, nil
}

// FindCluster resolves a compute cluster by name.
func (c *Client) FindCluster(ctx context.Context, name string) (*object.ClusterComputeResource, error) {
	v, err := c.containerView(ctx, []string{"ClusterComputeResource"})
	if err != nil {
		return nil, err
	}
	defer func() { _ = v.Destroy(ctx) }()

	var clusters []mo.ClusterComputeResource
	if err := v.Retrieve(ctx, []string{"ClusterComputeResource"}, []string{"name"}, &clusters); err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	for _, cluster := range clusters {
		if cluster.Name == name {
			return object.NewClusterComputeResource(c.vim, cluster.Self), nil
		}
	}
	return nil, fmt.Errorf("cluster %q: %w", name, ErrNotFound)
}

// ClusterNetworkNames lists the networks reachable from a cluster.
func (c *Client) ClusterNetworkNames(ctx context.Context, cluster *object.ClusterComputeResource) ([]string, error) {
	var ccr mo.ClusterComputeResource
	if err := c.Properties(ctx, cluster.Reference(), []string{"network"}, &ccr); err != nil {
		return nil, err
	}
	return c.EntityNames(ctx, ccr.Network)
}

// HostNetworkNames lists the networks reachable from a single host.
func (c *Client) HostNetworkNames(ctx context.Context, host types.ManagedObjectReference) ([]string, error) {
	var hs mo.HostSystem
	if err := c.Properties(ctx, host, []string{"network"}, &hs); err != nil {
		return nil, err
	}
	return c.EntityNames(ctx, hs.Network)
}

// NetworkNames lists every network in the inventory, standard and
// distributed portgroups alike.
func (c *Client) NetworkNames(ctx context.Context) ([]string, error) {
	v, err := c.containerView(ctx, []string{"Network"})
	if err != nil {
		return nil, err
	}
	defer func() { _ = v.Destroy(ctx) }()

	var nets []mo.Network
	if err := v.Retrieve(ctx, []string{"Network"}, []string{"name"}, &nets); err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}

	names := make([]string, 0, len(nets))
	for _, net := range nets {
		names = append(names, net.Name)
	}
	return names, nil
}

// DistributedPortConnection finds a free port in the named distributed
// portgroup and returns the connection a NIC backing needs.
func (c *Client) DistributedPortConnection(ctx context.Context, network string) (*types.DistributedVirtualSwitchPortConnection, error) {
	v, err := c.containerView(ctx, []string{"DistributedVirtualPortgroup"})
	if err != nil {
		return nil, err
	}
	defer func() { _ = v.Destroy(ctx) }()

	var portgroups []mo.DistributedVirtualPortgroup
	props := []string{"name", "key", "config.distributedVirtualSwitch"}
	if err := v.Retrieve(ctx, []string{"DistributedVirtualPortgroup"}, props, &portgroups); err != nil {
		return nil, fmt.Errorf("failed to list distributed portgroups: %w", err)
	}

	var portgroup *mo.DistributedVirtualPortgroup
	for i := range portgroups {
		if portgroups[i].Name == network {
			portgroup = &portgroups[i]
			break
		}
	}
	if portgroup == nil {
		return nil, fmt.Errorf("distributed portgroup %q: %w", network, ErrNotFound)
	}
	if portgroup.Config.DistributedVirtualSwitch == nil {
		return nil, fmt.Errorf("distributed portgroup %q has no switch", network)
	}

	dvs := object.NewDistributedVirtualSwitch(c.vim, *portgroup.Config.DistributedVirtualSwitch)
	criteria := types.DistributedVirtualSwitchPortCriteria{
		Connected:    types.NewBool(false),
		Inside:       types.NewBool(true),
		PortgroupKey: []string{portgroup.Key},
	}
	ports, err := dvs.FetchDVPorts(ctx, &criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ports for %q: %w", network, err)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("no available distributed virtual port found in %q", network)
	}

	port := ports[0]
	return &types.DistributedVirtualSwitchPortConnection{
		PortgroupKey: port.PortgroupKey,
		PortKey:      port.Key,
		SwitchUuid:   port.DvsUuid,
	}, nil
}

// PortgroupNames maps distributed portgroup keys to display names.
func (c *Client) PortgroupNames(ctx context.Context) (map[string]string, error) {
	v, err := c.containerView(ctx, []string{"DistributedVirtualPortgroup"})
	if err != nil {
		return nil, err
	}
	defer func() { _ = v.Destroy(ctx) }()

	var portgroups []mo.DistributedVirtualPortgroup
	if err := v.Retrieve(ctx, []string{"DistributedVirtualPortgroup"}, []string{"name", "key"}, &portgroups); err != nil {
		return nil, fmt.Errorf("failed to list distributed portgroups: %w", err)
	}

	names := make(map[string]string, len(portgroups))
	for _, pg := range portgroups {
		names[pg.Key] = pg.Name
	}
	return names, nil
}

// NetworkBacking builds the ethernet backing for a network by name. A name
// matching a distributed portgroup gets a reserved port; anything else is
// treated as a standard portgroup.
func (c *Client) NetworkBacking(ctx context.Context, network string) (types.BaseVirtualDeviceBackingInfo, error) {
	port, err := c.DistributedPortConnection(ctx, network)
	if err == nil {
		return &types.VirtualEthernetCardDistributedVirtualPortBackingInfo{Port: *port}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return &types.VirtualEthernetCardNetworkBackingInfo{
		VirtualDeviceDeviceBackingInfo: types.VirtualDeviceDeviceBackingInfo{
			DeviceName: network,
		},
	}, nil
}

// Datastores retrieves name and summary for every datastore visible from
// the datacenter.
func (c *Client) Datastores(ctx context.Context, dc *object.Datacenter) ([]mo.Datastore, error) {
	v, err := c.containerViewAt(ctx, dc.Reference(), []string{"Datastore"})
	if err != nil {
		return nil, err
	}
	defer func() { _ = v.Destroy(ctx) }()

	var stores []mo.Datastore
	if err := v.Retrieve(ctx, []string{"Datastore"}, []string{"name", "summary"}, &stores); err != nil {
		return nil, fmt.Errorf("failed to list datastores: %w", err)
	}
	return stores, nil
}

// FindDatastore resolves a datastore inside a datacenter. Going through the
// finder keeps the datacenter path attached, which file uploads need.
func (c *Client) FindDatastore(ctx context.Context, datacenter, name string) (*object.Datastore, error) {
	finder := find.NewFinder(c.vim, true)
	dc, err := finder.DatacenterOrDefault(ctx, datacenter)
	if err != nil {
		return nil, fmt.Errorf("datacenter %q not found: %w", datacenter, err)
	}
	finder.SetDatacenter(dc)

	ds, err := finder.Datastore(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("datastore %q not found: %w", name, err)
	}
	return ds, nil
}

// VMFolderNames lists the VM folders of a datacenter one sublevel deep.
// Nested folders show as "parent -> child".
func (c *Client) VMFolderNames(ctx context.Context, dc *object.Datacenter) ([]string, error) {
	folders, err := dc.Folders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get datacenter folders: %w", err)
	}

	children, err := folders.VmFolder.Children(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vm folders: %w", err)
	}

	var names []string
	for _, child := range children {
		folder, ok := child.(*object.Folder)
		if !ok {
			continue
		}
		name, err := folder.ObjectName(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve folder name: %w", err)
		}
		names = append(names, name)

		sub, err := folder.Children(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list folders under %s: %w", name, err)
		}
		for _, s := range sub {
			subfolder, ok := s.(*object.Folder)
			if !ok {
				continue
			}
			subname, err := subfolder.ObjectName(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve folder name: %w", err)
			}
			names = append(names, name+" -> "+subname)
		}
	}
	return names, nil
}

// FindVMFolder resolves a VM folder by name, searching the datacenter's
// folder tree one sublevel deep.
func (c *Client) FindVMFolder(ctx context.Context, dc *object.Datacenter, name string) (*object.Folder, error) {
	folders, err := dc.Folders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get datacenter folders: %w", err)
	}

	children, err := folders.VmFolder.Children(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vm folders: %w", err)
	}
	for _, child := range children {
		folder, ok := child.(*object.Folder)
		if !ok {
			continue
		}
		childName, err := folder.ObjectName(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve folder name: %w", err)
		}
		if childName == name {
			return folder, nil
		}

		sub, err := folder.Children(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list folders under %s: %w", childName, err)
		}
		for _, s := range sub {
			subfolder, ok := s.(*object.Folder)
			if !ok {
				continue
			}
			subname, err := subfolder.ObjectName(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve folder name: %w", err)
			}
			if subname == name {
				return subfolder, nil
			}
		}
	}
	return nil, fmt.Errorf("folder %q: %w", name, ErrNotFound)
}

// FindVM resolves a virtual machine by name anywhere in the inventory.
func (c *Client) FindVM(ctx context.Context, name string) (*object.VirtualMachine, error) {
	v, err := c.containerView(ctx, []string{"VirtualMachine"})
	if err != nil {
		return nil, err
	}
	defer func() { _ = v.Destroy(ctx) }()

	var vms []mo.VirtualMachine
	if err := v.Retrieve(ctx, []string{"VirtualMachine"}, []string{"name"}, &vms); err != nil {
		return nil, fmt.Errorf("failed to list virtual machines: %w", err)
	}
	for _, vm := range vms {
		if vm.Name == name {
			return object.NewVirtualMachine(c.vim, vm.Self), nil
		}
	}
	return nil, fmt.Errorf("virtual machine %q: %w", name, ErrNotFound)
}

// ListVMs retrieves the requested properties for every virtual machine
// under the given container, typically a datacenter.
func (c *Client) ListVMs(ctx context.Context, root types.ManagedObjectReference, props []string) ([]mo.VirtualMachine, error) {
	v, err := c.containerViewAt(ctx, root, []string{"VirtualMachine"})
	if err != nil {
		return nil, err
	}
	defer func() { _ = v.Destroy(ctx) }()

	var vms []mo.VirtualMachine
	if err := v.Retrieve(ctx, []string{"VirtualMachine"}, props, &vms); err != nil {
		return nil, fmt.Errorf("failed to list virtual machines: %w", err)
	}
	return vms, nil
}

// VMNamesByDatastore lists the names of the virtual machines stored on the
// named datastore.
func (c *Client) VMNamesByDatastore(ctx context.Context, datacenter, datastore string) ([]string, error) {
	ds, err := c.FindDatastore(ctx, datacenter, datastore)
	if err != nil {
		return nil, err
	}

	var store mo.Datastore
	if err := c.Properties(ctx, ds.Reference(), []string{"vm"}, &store); err != nil {
		return nil, err
	}
	return c.EntityNames(ctx, store.Vm)
}
