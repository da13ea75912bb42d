// Package console builds browser console URLs for virtual machines.
package console

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/vctools/vctools/internal/vsphere"
)

// consolePort is where the HTML console service listens on the web host.
const consolePort = 7331

// Thumbprint extracts the host SSL thumbprint embedded in a clone ticket.
// Tickets end in a tp-AA-BB-... segment carrying the certificate
// fingerprint bytes separated by dashes.
func Thumbprint(ticket string) (string, error) {
	parts := strings.Split(ticket, "--")
	last := parts[len(parts)-1]
	if !strings.HasPrefix(last, "tp-") {
		return "", fmt.Errorf("clone ticket %q has no thumbprint segment", ticket)
	}
	return strings.ReplaceAll(strings.TrimPrefix(last, "tp-"), "-", ":"), nil
}

// WebHost derives the console web endpoint from the vCenter host by
// appending -web to its short name.
func WebHost(host string) string {
	name, domain, found := strings.Cut(host, ".")
	if !found {
		return name + "-web"
	}
	return name + "-web." + domain
}

// URL returns a browser URL for the named virtual machine's console. The
// embedded clone ticket lets the console service join the caller's
// session without a second login.
func URL(ctx context.Context, client *vsphere.Client, host, name string) (string, error) {
	machine, err := client.FindVM(ctx, name)
	if err != nil {
		return "", err
	}

	ticket, err := client.CloneTicket(ctx)
	if err != nil {
		return "", err
	}
	thumbprint, err := Thumbprint(ticket)
	if err != nil {
		return "", err
	}

	query := url.Values{
		"vmId":          {machine.Reference().Value},
		"vmName":        {name},
		"host":          {host},
		"sessionTicket": {ticket},
		"thumbprint":    {thumbprint},
	}
	return fmt.Sprintf("http://%s:%d/console/?%s", WebHost(host), consolePort, query.Encode()), nil
}
