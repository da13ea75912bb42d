// Package prompts collects interactive answers for values missing from a
// build configuration. All prompts read whole lines so the tool behaves the
// same under a terminal and under scripted input.
package prompts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

var dottedQuad = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// Prompter asks questions on out and reads answers from in.
type Prompter struct {
	in       *bufio.Reader
	out      io.Writer
	password func(label string) (string, error)
}

// New returns a Prompter bound to stdin and stdout. Passwords are read
// without echo.
func New() *Prompter {
	p := &Prompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
	}
	p.password = func(label string) (string, error) {
		fmt.Fprint(p.out, label)
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}
	return p
}

// NewWithIO returns a Prompter bound to the given streams. Passwords are
// read as plain lines, which keeps tests and pipelines simple.
func NewWithIO(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
	p.password = func(label string) (string, error) {
		return p.Ask(label)
	}
	return p
}

// Ask prints label and returns the next line of input, trimmed.
func (p *Prompter) Ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return "", fmt.Errorf("input closed")
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Name asks for the virtual machine name.
func (p *Prompter) Name() (string, error) {
	return p.Ask("Name of VM: ")
}

// FQDN asks for a fully qualified host name.
func (p *Prompter) FQDN() (string, error) {
	return p.Ask("Fully qualified hostname: ")
}

// Password asks for a secret. Under a terminal the input is not echoed.
func (p *Prompter) Password(label string) (string, error) {
	return p.password(label)
}

// Select presents a sorted, numbered list of items and returns the chosen
// one. Invalid input re-asks.
func (p *Prompter) Select(noun string, items []string) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no %ss found", noun)
	}

	sorted := make([]string, len(items))
	copy(sorted, items)
	sort.Strings(sorted)

	fmt.Fprintln(p.out)
	for i, item := range sorted {
		fmt.Fprintf(p.out, "%d: %s\n", i+1, item)
	}

	for {
		answer, err := p.Ask("\nPlease select number: ")
		if err != nil {
			return "", err
		}
		num, err := strconv.Atoi(answer)
		if err != nil || num < 1 || num > len(sorted) {
			fmt.Fprintln(p.out, "Invalid number.")
			continue
		}
		return sorted[num-1], nil
	}
}

// Datacenter picks a datacenter by name.
func (p *Prompter) Datacenter(items []string) (string, error) {
	return p.Select("datacenter", items)
}

// Cluster picks a compute cluster by name.
func (p *Prompter) Cluster(items []string) (string, error) {
	return p.Select("cluster", items)
}

// GuestID picks a guest OS identifier.
func (p *Prompter) GuestID(items []string) (string, error) {
	return p.Select("guest id", items)
}

// Folder picks a folder. Entries may be shown as "parent -> child"; only
// the child name is returned.
func (p *Prompter) Folder(items []string) (string, error) {
	selected, err := p.Select("folder", items)
	if err != nil {
		return "", err
	}
	if strings.Contains(selected, "->") {
		parts := strings.Split(selected, "->")
		selected = strings.TrimSpace(parts[len(parts)-1])
	}
	return selected, nil
}

// Networks presents a numbered list of network names and lets the operator
// pick any number of them. Q ends the selection, S reprints the list.
func (p *Prompter) Networks(items []string) ([]string, error) {
	sorted := make([]string, len(items))
	copy(sorted, items)
	sort.Strings(sorted)

	show := func() {
		fmt.Fprintf(p.out, "%d Networks Found.\n\n", len(sorted))
		for i, item := range sorted {
			fmt.Fprintf(p.out, "%d: %s\n", i+1, item)
		}
	}
	show()

	var selected []string
	for {
		answer, err := p.Ask("\nPlease select number:\n(Q)uit (S)how Networks\n")
		if err != nil {
			return nil, err
		}
		switch strings.ToUpper(answer) {
		case "Q":
			return selected, nil
		case "S":
			show()
			continue
		}
		num, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintln(p.out, "Invalid option.")
			continue
		}
		if num < 1 || num > len(sorted) {
			fmt.Fprintln(p.out, "Invalid number.")
			continue
		}
		selected = append(selected, sorted[num-1])
		fmt.Fprintf(p.out, "selected: %s\n", sorted[num-1])
	}
}

// Datastores presents datastore summary rows, header first, and returns the
// name of the chosen datastore. Rows come from the inventory query in the
// order name, capacity, provisioned, pct, free, pct.
func (p *Prompter) Datastores(rows [][]string) (string, error) {
	if len(rows) <= 1 {
		return "", fmt.Errorf("no datastores found")
	}

	header := rows[0]
	fmt.Fprintf(p.out, "\t%s\n", formatDatastoreRow(header))
	for i, row := range rows[1:] {
		fmt.Fprintf(p.out, "%d: %s\n", i+1, formatDatastoreRow(row))
	}

	for {
		answer, err := p.Ask("\nPlease select number: ")
		if err != nil {
			return "", err
		}
		num, err := strconv.Atoi(answer)
		if err != nil || num < 1 || num > len(rows)-1 {
			fmt.Fprintln(p.out, "Invalid number.")
			continue
		}
		return rows[num][0], nil
	}
}

func formatDatastoreRow(row []string) string {
	padded := make([]string, 6)
	copy(padded, row)
	return fmt.Sprintf("%-30s\t%-10s\t%-10s\t%-6s\t%-10s\t%-6s",
		padded[0], padded[1], padded[2], padded[3], padded[4], padded[5])
}

// IPInfo asks for an address, netmask and gateway, each validated as a
// dotted quad. An address ending in .1 needs confirmation since it can
// collide with a gateway.
func (p *Prompter) IPInfo() (ip, netmask, gateway string, err error) {
	for {
		ip, err = p.askDottedQuad("IP address: ")
		if err != nil {
			return "", "", "", err
		}
		if strings.HasSuffix(ip, ".1") {
			answer, err := p.Ask("IP ends in .1, which can potentially conflict with a gateway. Proceed? [yes/no] ")
			if err != nil {
				return "", "", "", err
			}
			if !strings.EqualFold(answer, "yes") && !strings.EqualFold(answer, "y") {
				continue
			}
		}
		break
	}

	netmask, err = p.askDottedQuad("Netmask: ")
	if err != nil {
		return "", "", "", err
	}
	gateway, err = p.askDottedQuad("Gateway: ")
	if err != nil {
		return "", "", "", err
	}
	return ip, netmask, gateway, nil
}

func (p *Prompter) askDottedQuad(label string) (string, error) {
	for {
		answer, err := p.Ask(label)
		if err != nil {
			return "", err
		}
		if dottedQuad.MatchString(answer) {
			return answer, nil
		}
		fmt.Fprintln(p.out, "Invalid address.")
	}
}
