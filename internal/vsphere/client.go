// Package vsphere wraps the govmomi SDK with the connection and inventory
// surface the tool needs.
package vsphere

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/fault"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
)

// Client wraps a govmomi connection and provides high-level operations
// against a vCenter inventory.
type Client struct {
	client *govmomi.Client
	vim    *vim25.Client
}

// Connect logs into vCenter and returns a Client that must be released via
// Logout when done. TLS verification is off unless VerifySSL is set; the
// platform is usually reached over internal networks with self-signed
// certificates.
func Connect(ctx context.Context, creds Credentials) (*Client, error) {
	u, err := soap.ParseURL(creds.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vCenter URL %s: %w", creds.Host, err)
	}
	if creds.Port != 0 && creds.Port != 443 {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(creds.Port))
	}
	u.User = url.UserPassword(creds.Username(), creds.Password)

	client, err := govmomi.NewClient(ctx, u, !creds.VerifySSL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vCenter at %s: %w", u.Hostname(), err)
	}

	return &Client{client: client, vim: client.Client}, nil
}

// Logout ends the vCenter session. It is safe to call on a nil client.
func (c *Client) Logout(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Logout(ctx); err != nil {
		return fmt.Errorf("failed to log out of vCenter: %w", err)
	}
	return nil
}

// Vim returns the underlying vim25 client for direct API access.
// This should be used sparingly; prefer higher-level methods on Client.
func (c *Client) Vim() *vim25.Client {
	return c.vim
}

// Ping verifies the session is still alive.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("client not connected")
	}
	session, err := c.client.SessionManager.UserSession(ctx)
	if err != nil {
		return fmt.Errorf("vCenter connection is dead: %w", err)
	}
	if session == nil {
		return fmt.Errorf("vCenter session expired")
	}
	return nil
}

// CloneTicket acquires a session ticket another client can log in with.
// The console URL builder embeds it.
func (c *Client) CloneTicket(ctx context.Context) (string, error) {
	ticket, err := c.client.SessionManager.AcquireCloneTicket(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire clone ticket: %w", err)
	}
	return ticket, nil
}

// IsInvalidLogin reports whether err came from a rejected login.
func IsInvalidLogin(err error) bool {
	return fault.Is(err, &types.InvalidLogin{})
}

// Properties retrieves the named properties of a single managed object.
func (c *Client) Properties(ctx context.Context, ref types.ManagedObjectReference, props []string, dst any) error {
	pc := property.DefaultCollector(c.vim)
	if err := pc.RetrieveOne(ctx, ref, props, dst); err != nil {
		return fmt.Errorf("failed to retrieve properties of %s: %w", ref.Value, err)
	}
	return nil
}

// containerView opens a recursive view over the whole inventory for the
// given object kinds. Callers must destroy the returned view.
func (c *Client) containerView(ctx context.Context, kinds []string) (*view.ContainerView, error) {
	return c.containerViewAt(ctx, c.vim.ServiceContent.RootFolder, kinds)
}

// containerViewAt opens a recursive view rooted at a specific container.
func (c *Client) containerViewAt(ctx context.Context, root types.ManagedObjectReference, kinds []string) (*view.ContainerView, error) {
	m := view.NewManager(c.vim)
	v, err := m.CreateContainerView(ctx, root, kinds, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory view: %w", err)
	}
	return v, nil
}

// EntityNames resolves the display names of arbitrary managed objects.
func (c *Client) EntityNames(ctx context.Context, refs []types.ManagedObjectReference) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	var entities []mo.ManagedEntity
	pc := property.DefaultCollector(c.vim)
	if err := pc.Retrieve(ctx, refs, []string{"name"}, &entities); err != nil {
		return nil, fmt.Errorf("failed to retrieve entity names: %w", err)
	}
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	return names, nil
}

// EntityMap resolves arbitrary managed objects into a name to reference map.
func (c *Client) EntityMap(ctx context.Context, refs []types.ManagedObjectReference) (map[string]types.ManagedObjectReference, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	var entities []mo.ManagedEntity
	pc := property.DefaultCollector(c.vim)
	if err := pc.Retrieve(ctx, refs, []string{"name"}, &entities); err != nil {
		return nil, fmt.Errorf("failed to retrieve entity names: %w", err)
	}
	byName := make(map[string]types.ManagedObjectReference, len(entities))
	for _, e := range entities {
		byName[e.Name] = e.Self
	}
	return byName, nil
}
