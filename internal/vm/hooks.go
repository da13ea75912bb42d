package vm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmware/govmomi/object"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/prompts"
	"github.com/vctools/vctools/internal/tasks"
	"github.com/vctools/vctools/internal/vsphere"
)

// isoUploader pushes a local ISO onto a datastore.
type isoUploader interface {
	Upload(ctx context.Context, localPath, datacenter, datastore, dest string) error
}

// DefaultBootISOURL is where the boot ISO request goes when the rc file
// does not name a service.
func DefaultBootISOURL() string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return "https://" + host + "/api/mkbootiso"
}

// PreCreate prepares the boot ISO for a machine about to be built. When
// the document carries a mkbootiso section, the defaults for the guest are
// merged under it, the operator answers the network questions the installer
// needs, and the finished request goes to the mkbootiso service. Documents
// without the section skip all of this.
func PreCreate(ctx context.Context, doc map[string]any, cfg *config.VMConfig, p *prompts.Prompter, apiURL string, httpClient *http.Client) error {
	raw, ok := doc["mkbootiso"]
	if !ok {
		return nil
	}
	request, ok := raw.(map[string]any)
	if !ok {
		request = map[string]any{}
	}

	if defaults, ok := request["defaults"].(map[string]any); ok {
		if guest, ok := defaults[cfg.GuestID].(map[string]any); ok {
			request = config.Merge(guest, request)
		}
		delete(request, "defaults")
	}
	doc["mkbootiso"] = request

	options := config.Section(request, "options")
	if err := collectInstallerOptions(cfg.GuestID, options, p); err != nil {
		return err
	}
	request["filename"] = cfg.Name + ".iso"

	return postBootISORequest(ctx, request, apiURL, httpClient)
}

// collectInstallerOptions asks for the host and address details the
// unattended installer wants. Debian-style guests use the netcfg keys,
// everything else the kickstart ones.
func collectInstallerOptions(guestID string, options map[string]any, p *prompts.Prompter) error {
	fqdn, err := p.FQDN()
	if err != nil {
		return err
	}
	ip, netmask, gateway, err := p.IPInfo()
	if err != nil {
		return err
	}

	if strings.Contains(guestID, "ubuntu") {
		options["netcfg/get_hostname"] = fqdn
		options["netcfg/get_ipaddress"] = ip
		options["netcfg/get_netmask"] = netmask
		options["netcfg/get_gateway"] = gateway
		return nil
	}
	options["hostname"] = fqdn
	options["ip"] = ip
	options["netmask"] = netmask
	options["gateway"] = gateway
	return nil
}

func postBootISORequest(ctx context.Context, request map[string]any, apiURL string, httpClient *http.Client) error {
	if apiURL == "" {
		apiURL = DefaultBootISOURL()
	}
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to encode boot ISO request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build boot ISO request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("boot ISO request failed: %w", err)
	}
	defer resp.Body.Close()

	reply, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("boot ISO service returned %s: %s", resp.Status, strings.TrimSpace(string(reply)))
	}
	log.Printf("Boot ISO ready: %s", strings.TrimSpace(string(reply)))
	return nil
}

// PostCreate finishes a build: upload the generated ISO, mount it, and
// power the machine on, each step as enabled by the create section.
func PostCreate(ctx context.Context, client *vsphere.Client, monitor *tasks.Monitor, uploader isoUploader, cfg *config.Config, machine *object.VirtualMachine, name string) error {
	if cfg.Create.Upload {
		iso := filepath.Join("/tmp", name+".iso")
		dest := strings.Trim(cfg.Upload.Dest, "/")
		if _, err := os.Stat(iso); err != nil {
			return fmt.Errorf("boot ISO missing: %w", err)
		}
		if err := uploader.Upload(ctx, iso, cfg.General.Datacenter, cfg.Upload.Datastore, dest); err != nil {
			return err
		}
	}

	if cfg.Create.Mount {
		path := ISOPath(cfg.Mount.Path, name+".iso")
		if err := MountISO(ctx, client, monitor, machine, cfg.Mount.Datastore, path); err != nil {
			return err
		}
	}

	if cfg.Create.Power {
		if err := PowerOp(ctx, client, monitor, machine, PowerOn); err != nil {
			return err
		}
	}
	return nil
}
