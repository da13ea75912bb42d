// Package cluster manages DRS rules on compute clusters.
package cluster

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/tasks"
	"github.com/vctools/vctools/internal/vsphere"
)

// Rule is a DRS anti-affinity rule with its member machines resolved to
// names.
type Rule struct {
	Key  int32
	Name string
	VMs  []string
}

// QualifyName prepends the rule prefix when the name does not already carry
// it. Prefixed names keep tool-managed rules recognizable in vCenter.
func QualifyName(name, prefix string) string {
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}

// AntiAffinityRules lists the anti-affinity rules configured on a cluster,
// sorted by rule name.
func AntiAffinityRules(ctx context.Context, client *vsphere.Client, clusterName string) ([]Rule, error) {
	cl, err := client.FindCluster(ctx, clusterName)
	if err != nil {
		return nil, err
	}
	raw, err := clusterRules(ctx, client, cl)
	if err != nil {
		return nil, err
	}

	var rules []Rule
	for _, r := range raw {
		spec, ok := r.(*types.ClusterAntiAffinityRuleSpec)
		if !ok {
			continue
		}
		names, err := client.EntityNames(ctx, spec.Vm)
		if err != nil {
			return nil, err
		}
		rules = append(rules, Rule{Key: spec.Key, Name: spec.Name, VMs: names})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules, nil
}

// AddAntiAffinityRule creates an anti-affinity rule keeping the named
// machines on separate hosts. The rule name is qualified with the prefix,
// and the machines must all live in the cluster and not already belong to
// a DRS rule.
func AddAntiAffinityRule(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, clusterName, ruleName string, vmNames []string, prefix string) error {
	ruleName = QualifyName(ruleName, prefix)
	if len(vmNames) < 2 {
		return config.Invalidf("anti-affinity rules need at least two virtual machines")
	}

	cl, err := client.FindCluster(ctx, clusterName)
	if err != nil {
		return err
	}
	raw, err := clusterRules(ctx, client, cl)
	if err != nil {
		return err
	}
	for _, r := range raw {
		if r.GetClusterRuleInfo().Name == ruleName {
			return config.Invalidf("DRS rule %q already exists in cluster %s", ruleName, clusterName)
		}
	}

	members, err := clusterMembers(ctx, client, cl)
	if err != nil {
		return err
	}
	ruled := ruledMachines(raw)

	refs := make([]types.ManagedObjectReference, 0, len(vmNames))
	for _, name := range vmNames {
		ref, ok := members[name]
		if !ok {
			return config.Invalidf("virtual machine %q not found in cluster %s", name, clusterName)
		}
		if owner, ok := ruled[ref]; ok {
			return config.Invalidf("virtual machine %q already belongs to DRS rule %q", name, owner)
		}
		refs = append(refs, ref)
	}

	spec := &types.ClusterConfigSpecEx{
		RulesSpec: []types.ClusterRuleSpec{{
			ArrayUpdateSpec: types.ArrayUpdateSpec{Operation: types.ArrayUpdateOperationAdd},
			Info: &types.ClusterAntiAffinityRuleSpec{
				ClusterRuleInfo: types.ClusterRuleInfo{
					Name:        ruleName,
					Enabled:     types.NewBool(true),
					UserCreated: types.NewBool(true),
				},
				Vm: refs,
			},
		}},
	}

	log.Printf("Creating DRS rule %q on cluster %s", ruleName, clusterName)
	task, err := cl.Reconfigure(ctx, spec, true)
	if err != nil {
		return fmt.Errorf("failed to reconfigure cluster %s: %w", clusterName, err)
	}
	if err := monitor.Wait(ctx, tasks.NewStatus(client, task), nil); err != nil {
		return err
	}
	log.Printf("DRS rule %q created", ruleName)
	return nil
}

// DeleteAntiAffinityRule removes an anti-affinity rule by name.
func DeleteAntiAffinityRule(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, clusterName, ruleName, prefix string) error {
	ruleName = QualifyName(ruleName, prefix)

	cl, err := client.FindCluster(ctx, clusterName)
	if err != nil {
		return err
	}
	raw, err := clusterRules(ctx, client, cl)
	if err != nil {
		return err
	}

	var key int32
	found := false
	for _, r := range raw {
		spec, ok := r.(*types.ClusterAntiAffinityRuleSpec)
		if !ok {
			continue
		}
		if spec.Name == ruleName {
			key = spec.Key
			found = true
			break
		}
	}
	if !found {
		return config.Invalidf("DRS rule %q not found in cluster %s", ruleName, clusterName)
	}

	spec := &types.ClusterConfigSpecEx{
		RulesSpec: []types.ClusterRuleSpec{{
			ArrayUpdateSpec: types.ArrayUpdateSpec{
				Operation: types.ArrayUpdateOperationRemove,
				RemoveKey: key,
			},
		}},
	}

	log.Printf("Deleting DRS rule %q from cluster %s", ruleName, clusterName)
	task, err := cl.Reconfigure(ctx, spec, true)
	if err != nil {
		return fmt.Errorf("failed to reconfigure cluster %s: %w", clusterName, err)
	}
	if err := monitor.Wait(ctx, tasks.NewStatus(client, task), nil); err != nil {
		return err
	}
	log.Printf("DRS rule %q deleted", ruleName)
	return nil
}

// clusterRules fetches the raw DRS rule list of a cluster.
func clusterRules(ctx context.Context, client *vsphere.Client, cl *object.ClusterComputeResource) ([]types.BaseClusterRuleInfo, error) {
	var ccr mo.ClusterComputeResource
	if err := client.Properties(ctx, cl.Reference(), []string{"configurationEx"}, &ccr); err != nil {
		return nil, err
	}
	cfg, ok := ccr.ConfigurationEx.(*types.ClusterConfigInfoEx)
	if !ok {
		return nil, nil
	}
	return cfg.Rule, nil
}

// clusterMembers maps the names of the machines in the cluster's root
// resource pool to their references.
func clusterMembers(ctx context.Context, client *vsphere.Client, cl *object.ClusterComputeResource) (map[string]types.ManagedObjectReference, error) {
	pool, err := cl.ResourcePool(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster resource pool: %w", err)
	}
	var rp mo.ResourcePool
	if err := client.Properties(ctx, pool.Reference(), []string{"vm"}, &rp); err != nil {
		return nil, err
	}
	return client.EntityMap(ctx, rp.Vm)
}

// ruledMachines maps every machine already pinned by a DRS rule to the rule
// that owns it. Affinity and anti-affinity rules both count.
func ruledMachines(raw []types.BaseClusterRuleInfo) map[types.ManagedObjectReference]string {
	ruled := make(map[types.ManagedObjectReference]string)
	for _, r := range raw {
		switch spec := r.(type) {
		case *types.ClusterAntiAffinityRuleSpec:
			for _, ref := range spec.Vm {
				ruled[ref] = spec.Name
			}
		case *types.ClusterAffinityRuleSpec:
			for _, ref := range spec.Vm {
				ruled[ref] = spec.Name
			}
		}
	}
	return ruled
}
