package prompts

import (
	"strings"
	"testing"
)

func newTestPrompter(input string) (*Prompter, *strings.Builder) {
	var out strings.Builder
	return NewWithIO(strings.NewReader(input), &out), &out
}

func TestAsk(t *testing.T) {
	p, out := newTestPrompter("  web01  \n")

	answer, err := p.Ask("Name of VM: ")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "web01" {
		t.Errorf("Expected 'web01', got %q", answer)
	}
	if !strings.Contains(out.String(), "Name of VM: ") {
		t.Errorf("Expected label in output, got %q", out.String())
	}
}

func TestAsk_InputClosed(t *testing.T) {
	p, _ := newTestPrompter("")

	_, err := p.Ask("anything: ")
	if err == nil {
		t.Fatal("Expected error on closed input, got nil")
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		items    []string
		expected string
	}{
		{
			name:     "picks by number from sorted list",
			input:    "1\n",
			items:    []string{"zebra", "alpha"},
			expected: "alpha",
		},
		{
			name:     "re-asks on invalid number",
			input:    "nope\n99\n2\n",
			items:    []string{"alpha", "beta"},
			expected: "beta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := newTestPrompter(tt.input)

			got, err := p.Select("cluster", tt.items)
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
			if strings.Count(tt.input, "\n") > 1 && !strings.Contains(out.String(), "Invalid number.") {
				t.Errorf("Expected invalid-number notice, got %q", out.String())
			}
		})
	}
}

func TestSelect_Empty(t *testing.T) {
	p, _ := newTestPrompter("")

	_, err := p.Select("datacenter", nil)
	if err == nil {
		t.Fatal("Expected error for empty list, got nil")
	}
	if !strings.Contains(err.Error(), "no datacenters found") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestFolder_StripsParent(t *testing.T) {
	p, _ := newTestPrompter("1\n")

	got, err := p.Folder([]string{"linux -> web_servers"})
	if err != nil {
		t.Fatalf("Folder failed: %v", err)
	}
	if got != "web_servers" {
		t.Errorf("Expected 'web_servers', got %q", got)
	}
}

func TestNetworks(t *testing.T) {
	p, out := newTestPrompter("2\n1\nQ\n")

	got, err := p.Networks([]string{"vlan_20_net", "vlan_10_net"})
	if err != nil {
		t.Fatalf("Networks failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 selections, got %v", got)
	}
	if got[0] != "vlan_20_net" || got[1] != "vlan_10_net" {
		t.Errorf("Unexpected selections: %v", got)
	}

	printed := out.String()
	if !strings.Contains(printed, "2 Networks Found.") {
		t.Errorf("Expected count header, got %q", printed)
	}
	if !strings.Contains(printed, "selected: vlan_20_net") {
		t.Errorf("Expected selection echo, got %q", printed)
	}
}

func TestNetworks_InvalidInput(t *testing.T) {
	p, out := newTestPrompter("abc\n9\nS\n1\nQ\n")

	got, err := p.Networks([]string{"vlan_10_net"})
	if err != nil {
		t.Fatalf("Networks failed: %v", err)
	}
	if len(got) != 1 || got[0] != "vlan_10_net" {
		t.Errorf("Unexpected selections: %v", got)
	}

	printed := out.String()
	if !strings.Contains(printed, "Invalid option.") {
		t.Errorf("Expected invalid-option notice, got %q", printed)
	}
	if !strings.Contains(printed, "Invalid number.") {
		t.Errorf("Expected invalid-number notice, got %q", printed)
	}
	if strings.Count(printed, "1 Networks Found.") != 2 {
		t.Errorf("Expected list shown twice after S, got %q", printed)
	}
}

func TestNetworks_QuitWithoutSelection(t *testing.T) {
	p, _ := newTestPrompter("q\n")

	got, err := p.Networks([]string{"vlan_10_net"})
	if err != nil {
		t.Fatalf("Networks failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no selections, got %v", got)
	}
}

func TestDatastores(t *testing.T) {
	rows := [][]string{
		{"Datastore", "Capacity", "Provisioned", "Pct", "Free Space", "Pct"},
		{"ds001", "1.00 TB", "500.00 GB", "48.83%", "524.00 GB", "51.17%"},
		{"ds002", "2.00 TB", "1.00 TB", "50.00%", "1.00 TB", "50.00%"},
	}

	p, out := newTestPrompter("2\n")
	got, err := p.Datastores(rows)
	if err != nil {
		t.Fatalf("Datastores failed: %v", err)
	}
	if got != "ds002" {
		t.Errorf("Expected 'ds002', got %q", got)
	}

	printed := out.String()
	if !strings.Contains(printed, "Datastore") {
		t.Errorf("Expected header row, got %q", printed)
	}
	if !strings.Contains(printed, "1: ds001") {
		t.Errorf("Expected numbered rows, got %q", printed)
	}
}

func TestDatastores_NoneFound(t *testing.T) {
	p, _ := newTestPrompter("")

	_, err := p.Datastores([][]string{{"Datastore"}})
	if err == nil {
		t.Fatal("Expected error for empty inventory, got nil")
	}
	if !strings.Contains(err.Error(), "no datastores found") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestIPInfo(t *testing.T) {
	p, out := newTestPrompter("10.1.1.50\n255.255.255.0\n10.1.1.254\n")

	ip, netmask, gateway, err := p.IPInfo()
	if err != nil {
		t.Fatalf("IPInfo failed: %v", err)
	}
	if ip != "10.1.1.50" || netmask != "255.255.255.0" || gateway != "10.1.1.254" {
		t.Errorf("Unexpected answers: %q %q %q", ip, netmask, gateway)
	}
	if strings.Contains(out.String(), "Invalid address.") {
		t.Errorf("Unexpected validation notice: %q", out.String())
	}
}

func TestIPInfo_RejectsBadInput(t *testing.T) {
	p, out := newTestPrompter("not-an-ip\n10.1.1.50\n255.255.255.0\n10.1.1.254\n")

	ip, _, _, err := p.IPInfo()
	if err != nil {
		t.Fatalf("IPInfo failed: %v", err)
	}
	if ip != "10.1.1.50" {
		t.Errorf("Expected retry to succeed, got %q", ip)
	}
	if !strings.Contains(out.String(), "Invalid address.") {
		t.Errorf("Expected validation notice, got %q", out.String())
	}
}

func TestIPInfo_GatewayConflictConfirm(t *testing.T) {
	// Decline the .1 address, then supply a safe one.
	p, out := newTestPrompter("10.1.1.1\nno\n10.1.1.50\n255.255.255.0\n10.1.1.254\n")

	ip, _, _, err := p.IPInfo()
	if err != nil {
		t.Fatalf("IPInfo failed: %v", err)
	}
	if ip != "10.1.1.50" {
		t.Errorf("Expected declined address to re-ask, got %q", ip)
	}
	if !strings.Contains(out.String(), "conflict with a gateway") {
		t.Errorf("Expected conflict warning, got %q", out.String())
	}
}

func TestIPInfo_GatewayConflictAccepted(t *testing.T) {
	p, _ := newTestPrompter("10.1.1.1\nyes\n255.255.255.0\n10.1.1.254\n")

	ip, _, _, err := p.IPInfo()
	if err != nil {
		t.Fatalf("IPInfo failed: %v", err)
	}
	if ip != "10.1.1.1" {
		t.Errorf("Expected confirmed address kept, got %q", ip)
	}
}

func TestPassword_PlainIO(t *testing.T) {
	p, _ := newTestPrompter("s3cret\n")

	got, err := p.Password("password: ")
	if err != nil {
		t.Fatalf("Password failed: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Expected 's3cret', got %q", got)
	}
}
