package vm

import (
	"context"
	"fmt"
	"io"

	"github.com/vmware/govmomi/object"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/prompts"
	"github.com/vctools/vctools/internal/query"
	"github.com/vctools/vctools/internal/vsphere"
)

// Complete fills the placement fields a build configuration is missing by
// asking the operator: name, guest id, datacenter, cluster, datastore,
// networks, then folder. Fields already present are left alone.
func Complete(ctx context.Context, client *vsphere.Client, p *prompts.Prompter, out io.Writer, cfg *config.VMConfig) error {
	var dc *object.Datacenter
	datacenter := func() (*object.Datacenter, error) {
		if dc != nil {
			return dc, nil
		}
		found, err := client.FindDatacenter(ctx, cfg.Datacenter)
		if err != nil {
			return nil, err
		}
		dc = found
		return dc, nil
	}

	if cfg.Name == "" {
		name, err := p.Name()
		if err != nil {
			return err
		}
		cfg.Name = name
	}

	if cfg.GuestID == "" {
		id, err := p.GuestID(query.GuestIDs())
		if err != nil {
			return err
		}
		cfg.GuestID = id
		fmt.Fprintf(out, "\n%s selected.\n", id)
	}

	if cfg.Datacenter == "" {
		names, err := client.DatacenterNames(ctx)
		if err != nil {
			return err
		}
		name, err := p.Datacenter(names)
		if err != nil {
			return err
		}
		cfg.Datacenter = name
		fmt.Fprintf(out, "\n%s selected.\n", name)
	}

	if cfg.Cluster == "" {
		names, err := client.ClusterNames(ctx)
		if err != nil {
			return err
		}
		name, err := p.Cluster(names)
		if err != nil {
			return err
		}
		cfg.Cluster = name
		fmt.Fprintf(out, "\n%s selected.\n", name)
	}

	if cfg.Datastore == "" {
		target, err := datacenter()
		if err != nil {
			return err
		}
		stores, err := client.Datastores(ctx, target)
		if err != nil {
			return err
		}
		name, err := p.Datastores(query.DatastoreRows(stores))
		if err != nil {
			return err
		}
		cfg.Datastore = name
		fmt.Fprintf(out, "\n%s selected.\n", name)
	}

	if len(cfg.NICs) == 0 {
		cluster, err := client.FindCluster(ctx, cfg.Cluster)
		if err != nil {
			return err
		}
		names, err := client.ClusterNetworkNames(ctx, cluster)
		if err != nil {
			return err
		}
		picked, err := p.Networks(names)
		if err != nil {
			return err
		}
		if len(picked) == 0 {
			return invalidf("at least one network is required")
		}
		cfg.NICs = picked
	}

	if cfg.Folder == "" {
		target, err := datacenter()
		if err != nil {
			return err
		}
		names, err := client.VMFolderNames(ctx, target)
		if err != nil {
			return err
		}
		name, err := p.Folder(names)
		if err != nil {
			return err
		}
		cfg.Folder = name
		fmt.Fprintf(out, "\n%s selected.\n", name)
	}

	return nil
}
