package cluster

import (
	"testing"

	"github.com/vmware/govmomi/vim25/types"
)

func TestQualifyName(t *testing.T) {
	tests := []struct {
		name   string
		rule   string
		prefix string
		want   string
	}{
		{"bare name gains prefix", "web", "vctools-", "vctools-web"},
		{"prefixed name unchanged", "vctools-web", "vctools-", "vctools-web"},
		{"custom prefix", "web", "ops-", "ops-web"},
		{"empty prefix", "web", "", "web"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QualifyName(tt.rule, tt.prefix)
			if got != tt.want {
				t.Errorf("QualifyName(%q, %q) = %q, want %q", tt.rule, tt.prefix, got, tt.want)
			}
		})
	}
}

func vmRef(id string) types.ManagedObjectReference {
	return types.ManagedObjectReference{Type: "VirtualMachine", Value: id}
}

func TestRuledMachines(t *testing.T) {
	raw := []types.BaseClusterRuleInfo{
		&types.ClusterAntiAffinityRuleSpec{
			ClusterRuleInfo: types.ClusterRuleInfo{Name: "vctools-web"},
			Vm:              []types.ManagedObjectReference{vmRef("vm-1"), vmRef("vm-2")},
		},
		&types.ClusterAffinityRuleSpec{
			ClusterRuleInfo: types.ClusterRuleInfo{Name: "keep-together"},
			Vm:              []types.ManagedObjectReference{vmRef("vm-3")},
		},
		// Host-group rules carry no VM list and are ignored.
		&types.ClusterVmHostRuleInfo{
			ClusterRuleInfo: types.ClusterRuleInfo{Name: "host-rule"},
		},
	}

	ruled := ruledMachines(raw)
	if len(ruled) != 3 {
		t.Fatalf("expected 3 ruled machines, got %d", len(ruled))
	}
	if ruled[vmRef("vm-1")] != "vctools-web" {
		t.Errorf("expected vm-1 owned by vctools-web, got %q", ruled[vmRef("vm-1")])
	}
	if ruled[vmRef("vm-3")] != "keep-together" {
		t.Errorf("expected vm-3 owned by keep-together, got %q", ruled[vmRef("vm-3")])
	}
	if _, ok := ruled[vmRef("vm-9")]; ok {
		t.Error("unexpected entry for vm-9")
	}
}
