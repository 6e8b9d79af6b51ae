package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"wolrelay/internal/config"
)

const (
	envConfig   = "WOLRELAY_CONFIG"
	envLogLevel = "WOLRELAY_LOG_LEVEL"

	defaultConfigPath = "/etc/wolrelay/config.yaml"
)

type options struct {
	configPath string
	envFile    string
	logLevel   string
	tui        bool
	reportDir  string
}

func newRootCmd() *cobra.Command {
	return newCommand(&options{})
}

func newCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wolrelay",
		Short: "Relay Wake-on-LAN magic packets between network segments.",
		Long: `wolrelay repeats Wake-on-LAN magic packets across network boundaries, ` +
			`either as raw Ethernet frames between interfaces (layer2) or as UDP ` +
			`datagrams re-broadcast into private networks (layer4).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolveEnv(cmd); err != nil {
				return err
			}
			return run(opts)
		},
	}

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to the YAML configuration file")
	persistent.StringVar(&opts.envFile, "env-file", "", "dotenv file providing "+envConfig+" and "+envLogLevel)

	flags := cmd.Flags()
	flags.StringVar(&opts.logLevel, "log-level", "", "override log.level (trace, debug, info, warn, error)")
	flags.BoolVar(&opts.tui, "tui", false, "show the live relay dashboard")
	flags.StringVar(&opts.reportDir, "report", "", "write an HTML session report to this directory on exit")

	cmd.AddCommand(newCheckCmd(opts))

	return cmd
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print it with defaults applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolveEnv(cmd); err != nil {
				return err
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return config.Encode(cmd.OutOrStdout(), cfg)
		},
	}
}

// resolveEnv fills options not given on the command line from the
// environment, after loading the optional dotenv file.
func (o *options) resolveEnv(cmd *cobra.Command) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", o.envFile, err)
		}
	}
	if !cmd.Flags().Changed("config") {
		if v := os.Getenv(envConfig); v != "" {
			o.configPath = v
		}
	}
	if !cmd.Flags().Changed("log-level") {
		if v := os.Getenv(envLogLevel); v != "" {
			o.logLevel = v
		}
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
