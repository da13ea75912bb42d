package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vctools/vctools/internal/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console <name>",
	Short: "Print the HTML5 console URL for a VM",
	Long: `Print a ready-to-open HTML5 console URL for the named VM, including a
session ticket for the web console host.

Example:
  vctools console web01.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close(ctx)

		url, err := console.URL(ctx, s.client, s.cfg.General.Host, args[0])
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	},
}
