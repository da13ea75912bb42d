package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vctools/vctools/internal/config"
	"github.com/vctools/vctools/internal/prompts"
	"github.com/vctools/vctools/internal/tasks"
	"github.com/vctools/vctools/internal/vsphere"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes scripts depend on.
const (
	exitFailure      = 1
	exitInvalidLogin = 2
	exitInvalidInput = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		switch {
		case errors.Is(err, context.Canceled):
			os.Exit(exitFailure)
		case vsphere.IsInvalidLogin(err):
			os.Exit(exitInvalidLogin)
		case config.IsInvalid(err):
			os.Exit(exitInvalidInput)
		}
		os.Exit(exitFailure)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vctools",
	Short: "vctools - vCenter VM automation tool",
	Long: `vctools automates virtual machine lifecycle operations against vCenter.

It provides commands to build VMs from YAML configuration files with
unattended-install boot media, reconfigure hardware, manage power state
and installation ISOs, query the inventory, and maintain DRS
anti-affinity rules.

Connection settings come from the rc chain (vctoolsrc.yaml next to the
binary, then ~/.vctoolsrc.yaml, then --rcfile) and can be overridden
with flags.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagHost         string
	flagUser         string
	flagDomain       string
	flagPasswd       string
	flagPasswdFile   string
	flagDatacenter   string
	flagRCFile       string
	flagLevel        string
	flagConsoleLevel string
	flagLogfile      string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagHost, "host", "", "vCenter host name")
	pf.StringVar(&flagUser, "user", "", "Login user (default: current OS user)")
	pf.StringVar(&flagDomain, "domain", "", "Directory domain to qualify the user with")
	pf.StringVar(&flagPasswd, "passwd", "", "Login password (prefer --passwd-file or the prompt)")
	pf.StringVar(&flagPasswdFile, "passwd-file", "", "GPG encrypted password file")
	pf.StringVar(&flagDatacenter, "datacenter", "", "Datacenter to operate in")
	pf.StringVar(&flagRCFile, "rcfile", "", "Additional rc file merged over the defaults")
	pf.StringVar(&flagLevel, "level", "", "Logfile verbosity: debug, info or off")
	pf.StringVar(&flagConsoleLevel, "console-level", "", "Console log verbosity: debug, info or error")
	pf.StringVar(&flagLogfile, "logfile", "", "Progress log destination")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(umountCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(reconfigCmd)
	rootCmd.AddCommand(drsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vctools %s (commit: %s)\n", version, commit)
	},
}

// loadConfig builds the effective configuration: the rc chain first, then
// any flag the operator set explicitly on top.
func loadConfig(cmd *cobra.Command) (*config.Config, map[string]any, error) {
	doc, err := config.LoadRC(flagRCFile)
	if err != nil {
		return nil, nil, err
	}
	cfg := &config.Config{}
	if err := config.Decode(doc, cfg); err != nil {
		return nil, nil, err
	}
	applyFlags(cmd, cfg)
	return cfg, doc, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.General.Host = flagHost
	}
	if flags.Changed("user") {
		cfg.General.User = flagUser
	}
	if flags.Changed("domain") {
		cfg.General.Domain = flagDomain
	}
	if flags.Changed("passwd") {
		cfg.General.Passwd = flagPasswd
	}
	if flags.Changed("passwd-file") {
		cfg.General.PasswdFile = flagPasswdFile
	}
	if flags.Changed("datacenter") {
		cfg.General.Datacenter = flagDatacenter
	}
	if flags.Changed("level") {
		cfg.Logging.Level = flagLevel
	}
	if flags.Changed("console-level") {
		cfg.Logging.ConsoleLevel = flagConsoleLevel
	}
	if flags.Changed("logfile") {
		cfg.Logging.Logfile = flagLogfile
	}
	if flags.Changed("verify-ssl") {
		v, _ := flags.GetBool("verify-ssl")
		cfg.Upload.VerifySSL = v
	}
}

// setupLogging routes progress logging to the configured logfile, keeping
// the console for prompts and results. A console level of debug or info
// mirrors progress onto the console stream as well.
func setupLogging(cfg *config.Config) func() {
	var sinks []io.Writer
	closer := func() {}

	if cfg.Logging.Logfile != "" && cfg.Logging.Level != "off" {
		f, err := os.OpenFile(cfg.Logging.Logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to open logfile: %v\n", err)
		} else {
			sinks = append(sinks, f)
			closer = func() {
				if err := f.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close logfile: %v\n", err)
				}
			}
		}
	}

	switch cfg.Logging.ConsoleLevel {
	case "debug", "info":
		if cfg.Logging.ConsoleStream == "stdout" {
			sinks = append(sinks, os.Stdout)
		} else {
			sinks = append(sinks, os.Stderr)
		}
	}

	if len(sinks) == 0 {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(io.MultiWriter(sinks...))
	}
	return closer
}

// session bundles what a connected command needs.
type session struct {
	cfg      *config.Config
	doc      map[string]any
	client   *vsphere.Client
	monitor  *tasks.Monitor
	prompter *prompts.Prompter
	closeLog func()
}

// newSession loads configuration, resolves the password and logs into
// vCenter. Callers must close the session when done.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, doc, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.General.Host == "" {
		return nil, config.Invalidf("no vCenter host configured, use --host or the rc file")
	}
	closeLog := setupLogging(cfg)

	p := prompts.New()
	creds := vsphere.Credentials{
		Host:       cfg.General.Host,
		Port:       cfg.General.Port,
		User:       cfg.General.User,
		Domain:     cfg.General.Domain,
		Password:   cfg.General.Passwd,
		PasswdFile: cfg.General.PasswdFile,
		VerifySSL:  cfg.Upload.VerifySSL,
	}
	if err := creds.ResolvePassword(p.Password); err != nil {
		closeLog()
		return nil, err
	}

	client, err := vsphere.Connect(cmd.Context(), creds)
	if err != nil {
		closeLog()
		return nil, err
	}

	return &session{
		cfg:      cfg,
		doc:      doc,
		client:   client,
		monitor:  tasks.NewMonitor(os.Stdout, p.Ask),
		prompter: p,
		closeLog: closeLog,
	}, nil
}

func (s *session) close(ctx context.Context) {
	if err := s.client.Logout(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	s.closeLog()
}

// resolveDatacenter returns the configured datacenter, or asks when more
// than one exists.
func resolveDatacenter(ctx context.Context, s *session) (string, error) {
	if s.cfg.General.Datacenter != "" {
		return s.cfg.General.Datacenter, nil
	}
	names, err := s.client.DatacenterNames(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 1 {
		return names[0], nil
	}
	return s.prompter.Datacenter(names)
}

// resolveCluster returns name when given, otherwise asks.
func resolveCluster(ctx context.Context, s *session, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	names, err := s.client.ClusterNames(ctx)
	if err != nil {
		return "", err
	}
	return s.prompter.Cluster(names)
}
