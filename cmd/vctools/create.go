package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/media"
	"github.com/vctools/vctools/internal/vm"
)

var createPower bool

var createCmd = &cobra.Command{
	Use:   "create <config.yaml>...",
	Short: "Create VMs from configuration files",
	Long: `Create one or more virtual machines from YAML configuration files.

Each file is merged over the rc defaults, missing settings are prompted
for, and the finished VM optionally gets a generated boot ISO uploaded
and mounted before power on. The completed configuration is archived as
<name>.yaml in the current directory with credentials removed.

Example:
  vctools create web01.yaml
  vctools create --power=false web01.yaml web02.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		for _, path := range args {
			if err := createOne(ctx, cmd, s, path); err != nil {
				return fmt.Errorf("failed to create from %s: %w", path, err)
			}
		}
		return nil
	},
}

func init() {
	createCmd.Flags().BoolVar(&createPower, "power", true, "Power on the VM after creation")
}

func createOne(ctx context.Context, cmd *cobra.Command, s *session, path string) error {
	fmt.Printf("Creating VM from config: %s\n", path)

	overlay, err := config.LoadMap(path)
	if err != nil {
		return err
	}
	doc := config.Merge(s.doc, overlay)

	cfg := &config.Config{}
	if err := config.Decode(doc, cfg); err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if cmd.Flags().Changed("power") {
		cfg.Create.Power = createPower
	} else if _, ok := config.Section(doc, "create")["power"]; !ok {
		cfg.Create.Power = createPower
	}

	if cfg.VMConfig == nil {
		cfg.VMConfig = &config.VMConfig{}
	}
	vmcfg := cfg.VMConfig
	if vmcfg.Datacenter == "" {
		vmcfg.Datacenter = cfg.General.Datacenter
	}

	if err := vm.Complete(ctx, s.client, s.prompter, os.Stdout, vmcfg); err != nil {
		return err
	}

	// Fold the prompt answers back into the document so the archived
	// config describes the machine actually built.
	answered, err := config.ToMap(vmcfg)
	if err != nil {
		return err
	}
	doc["vmconfig"] = config.Merge(config.Section(doc, "vmconfig"), answered)

	// The boot ISO service usually runs with a self-signed certificate.
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	if err := vm.PreCreate(ctx, doc, vmcfg, s.prompter, cfg.MkBootISO.APIURL, httpClient); err != nil {
		return err
	}

	if err := vm.NewCreator(s.client, s.monitor).Create(ctx, vmcfg); err != nil {
		return err
	}

	machine, err := s.client.FindVM(ctx, vmcfg.Name)
	if err != nil {
		return err
	}
	uploader := media.NewUploader(s.client)
	if err := vm.PostCreate(ctx, s.client, s.monitor, uploader, cfg, machine, vmcfg.Name); err != nil {
		return err
	}

	saved, err := config.WriteServerConfig(".", vmcfg.Name, doc)
	if err != nil {
		return err
	}
	fmt.Printf("✓ VM %s created, config saved to %s\n", vmcfg.Name, saved)
	return nil
}
