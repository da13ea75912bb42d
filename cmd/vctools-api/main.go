package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vctools/vctools/internal/server"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	flagAddr     string
	flagPort     int
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "vctools-api",
	Short: "vctools-api - boot ISO build service",
	Long: `vctools-api serves boot ISO builds over HTTP.

POST a build request to /api/mkbootiso and the service assembles a
bootable installation image with genisoimage from a prepared source
tree. The host needs genisoimage installed and the source trees on
local disk.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupSlog(flagLogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := server.DefaultConfig()
		if cmd.Flags().Changed("addr") {
			cfg.Address = flagAddr
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = flagPort
		}

		return server.New(cfg, server.WithVersion(version)).Run(ctx)
	},
}

func setupSlog(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func init() {
	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default all interfaces, or VCTOOLS_API_ADDR)")
	rootCmd.Flags().IntVar(&flagPort, "port", 8080, "Listen port (or VCTOOLS_API_PORT)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "Log verbosity: debug, info, warn or error")
}
