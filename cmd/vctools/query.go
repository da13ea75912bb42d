package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/output"
	"github.com/vctools/vctools/internal/query"
	"github.com/vctools/vctools/internal/vsphere"
)

var (
	queryDatastores   bool
	queryFolders      bool
	queryClusters     bool
	queryNetworks     bool
	queryVMs          bool
	queryByDatastore  bool
	queryGuestIDs     bool
	queryRules        bool
	queryVMConfigs    []string
	queryCreateCfg    string
	queryCluster      string
	queryDatastore    string
	queryOutputFormat string
	queryNoHeaders    bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the vCenter inventory",
	Long: `Query the vCenter inventory.

Select one or more result sets with the boolean flags. Missing
datacenter, cluster or datastore selections are prompted for.
--vmconfig dumps the configuration of existing VMs, and --createcfg
turns the first dump into a create config for a new VM.

Example:
  vctools query --datastores --output yaml
  vctools query --networks --cluster prod
  vctools query --vmconfig web01.example.com --createcfg web02.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := output.ValidateFormat(queryOutputFormat); err != nil {
			return err
		}
		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(queryOutputFormat),
			NoHeaders: queryNoHeaders,
		})
		if err != nil {
			return err
		}

		// Guest IDs are static, no session needed.
		if queryGuestIDs {
			if err := printReport(formatter, query.GuestIDReport()); err != nil {
				return err
			}
		}
		if !anyConnectedQuery() {
			if queryGuestIDs {
				return nil
			}
			return config.Invalidf("nothing to query, pass one or more query flags")
		}

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		if queryDatastores {
			if err := runDatacenterQuery(ctx, s, formatter, query.Datastores); err != nil {
				return err
			}
		}
		if queryFolders {
			if err := runDatacenterQuery(ctx, s, formatter, query.Folders); err != nil {
				return err
			}
		}
		if queryClusters {
			report, err := query.Clusters(ctx, s.client)
			if err != nil {
				return err
			}
			if err := printReport(formatter, report); err != nil {
				return err
			}
		}
		if queryNetworks {
			clusterName, err := resolveCluster(ctx, s, queryCluster)
			if err != nil {
				return err
			}
			report, err := query.Networks(ctx, s.client, clusterName)
			if err != nil {
				return err
			}
			if err := printReport(formatter, report); err != nil {
				return err
			}
		}
		if queryVMs {
			if err := runDatacenterQuery(ctx, s, formatter, query.VMs); err != nil {
				return err
			}
		}
		if queryByDatastore {
			datacenter, err := resolveDatacenter(ctx, s)
			if err != nil {
				return err
			}
			datastore, err := resolveDatastore(ctx, s, datacenter, queryDatastore)
			if err != nil {
				return err
			}
			report, err := query.VMsByDatastore(ctx, s.client, datacenter, datastore)
			if err != nil {
				return err
			}
			if err := printReport(formatter, report); err != nil {
				return err
			}
		}
		if queryRules {
			clusterName, err := resolveCluster(ctx, s, queryCluster)
			if err != nil {
				return err
			}
			report, err := query.AntiAffinityRules(ctx, s.client, clusterName)
			if err != nil {
				return err
			}
			if err := printReport(formatter, report); err != nil {
				return err
			}
		}
		if len(queryVMConfigs) > 0 {
			if err := runVMConfigQuery(ctx, s, formatter); err != nil {
				return err
			}
		}
		return nil
	},
}

func anyConnectedQuery() bool {
	return queryDatastores || queryFolders || queryClusters || queryNetworks ||
		queryVMs || queryByDatastore || queryRules || len(queryVMConfigs) > 0
}

type datacenterQuery func(ctx context.Context, client *vsphere.Client, datacenter string) (*output.Report, error)

func runDatacenterQuery(ctx context.Context, s *session, formatter output.Formatter, q datacenterQuery) error {
	datacenter, err := resolveDatacenter(ctx, s)
	if err != nil {
		return err
	}
	report, err := q(ctx, s.client, datacenter)
	if err != nil {
		return err
	}
	return printReport(formatter, report)
}

// runVMConfigQuery dumps VM configurations. With --createcfg the first
// dump becomes a create config for the new name instead.
func runVMConfigQuery(ctx context.Context, s *session, formatter output.Formatter) error {
	for _, name := range queryVMConfigs {
		doc, err := query.VMConfigDoc(ctx, s.client, name)
		if err != nil {
			return err
		}
		if queryCreateCfg != "" {
			created, err := query.CreateCfg(doc, queryCreateCfg)
			if err != nil {
				return err
			}
			return printDocument(formatter, map[string]any{"vmconfig": created})
		}
		if err := printDocument(formatter, map[string]any{"vmconfig": doc}); err != nil {
			return err
		}
	}
	return nil
}

// resolveDatastore returns name when given, otherwise asks with capacity
// details alongside.
func resolveDatastore(ctx context.Context, s *session, datacenter, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	dc, err := s.client.FindDatacenter(ctx, datacenter)
	if err != nil {
		return "", err
	}
	stores, err := s.client.Datastores(ctx, dc)
	if err != nil {
		return "", err
	}
	return s.prompter.Datastores(query.DatastoreRows(stores))
}

func printReport(formatter output.Formatter, report *output.Report) error {
	text, err := formatter.FormatReport(report)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func printDocument(formatter output.Formatter, doc any) error {
	text, err := formatter.FormatDocument(doc)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func init() {
	f := queryCmd.Flags()
	f.BoolVar(&queryDatastores, "datastores", false, "List datastores with capacity and usage")
	f.BoolVar(&queryFolders, "folders", false, "List VM folders")
	f.BoolVar(&queryClusters, "clusters", false, "List compute clusters")
	f.BoolVar(&queryNetworks, "networks", false, "List networks reachable from a cluster")
	f.BoolVar(&queryVMs, "vms", false, "List VMs in the datacenter")
	f.BoolVar(&queryByDatastore, "vm-by-datastore", false, "List VMs stored on a datastore")
	f.BoolVar(&queryGuestIDs, "vm-guest-ids", false, "List supported guest identifiers")
	f.BoolVar(&queryRules, "anti-affinity-rules", false, "List DRS anti-affinity rules in a cluster")
	f.StringSliceVar(&queryVMConfigs, "vmconfig", nil, "Dump the configuration of a VM, repeatable")
	f.StringVar(&queryCreateCfg, "createcfg", "", "Turn the --vmconfig dump into a create config for this name")
	f.StringVar(&queryCluster, "cluster", "", "Cluster for --networks and --anti-affinity-rules")
	f.StringVar(&queryDatastore, "datastore", "", "Datastore for --vm-by-datastore")
	f.StringVarP(&queryOutputFormat, "output", "o", "table", "Output format: table, yaml or json")
	f.BoolVar(&queryNoHeaders, "no-headers", false, "Omit table headers")
}
