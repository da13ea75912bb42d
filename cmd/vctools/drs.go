package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vctools/vctools/internal/cluster"
	"github.com/vctools/vctools/internal/config"
)

var (
	drsVMs     []string
	drsCluster string
	drsPrefix  string
)

var drsCmd = &cobra.Command{
	Use:   "drs",
	Short: "Manage DRS rules",
}

var antiAffinityCmd = &cobra.Command{
	Use:   "anti-affinity",
	Short: "Manage DRS anti-affinity rules",
}

var antiAffinityAddCmd = &cobra.Command{
	Use:   "add <rule-name>",
	Short: "Create an anti-affinity rule",
	Long: `Create a DRS anti-affinity rule keeping the listed VMs on separate
hosts. Rule names get the configured prefix unless they already carry
it.

Example:
  vctools drs anti-affinity add web --cluster prod --vms web01.example.com --vms web02.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(drsVMs) < 2 {
			return config.Invalidf("an anti-affinity rule needs at least two --vms")
		}
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		clusterName, err := resolveCluster(ctx, s, drsCluster)
		if err != nil {
			return err
		}
		prefix := rulePrefix(cmd, s)
		if err := cluster.AddAntiAffinityRule(ctx, s.client, s.monitor, clusterName, args[0], drsVMs, prefix); err != nil {
			return err
		}
		fmt.Printf("✓ Created anti-affinity rule %s in cluster %s\n", cluster.QualifyName(args[0], prefix), clusterName)
		return nil
	},
}

var antiAffinityDeleteCmd = &cobra.Command{
	Use:   "delete <rule-name>",
	Short: "Delete an anti-affinity rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		clusterName, err := resolveCluster(ctx, s, drsCluster)
		if err != nil {
			return err
		}
		prefix := rulePrefix(cmd, s)
		if err := cluster.DeleteAntiAffinityRule(ctx, s.client, s.monitor, clusterName, args[0], prefix); err != nil {
			return err
		}
		fmt.Printf("✓ Deleted anti-affinity rule %s from cluster %s\n", cluster.QualifyName(args[0], prefix), clusterName)
		return nil
	},
}

// rulePrefix prefers an explicit --prefix over the rc value.
func rulePrefix(cmd *cobra.Command, s *session) string {
	if cmd.Flags().Changed("prefix") {
		return drsPrefix
	}
	return s.cfg.ClusterConfig.Prefix
}

func init() {
	drsCmd.AddCommand(antiAffinityCmd)
	antiAffinityCmd.AddCommand(antiAffinityAddCmd)
	antiAffinityCmd.AddCommand(antiAffinityDeleteCmd)

	for _, c := range []*cobra.Command{antiAffinityAddCmd, antiAffinityDeleteCmd} {
		c.Flags().StringVar(&drsCluster, "cluster", "", "Cluster holding the rule (prompted when empty)")
		c.Flags().StringVar(&drsPrefix, "prefix", "", "Rule name prefix (default from the rc file)")
	}
	antiAffinityAddCmd.Flags().StringSliceVar(&drsVMs, "vms", nil, "VM to keep apart, repeatable")
}
