// Package main provides the proxycfg entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	apiserver "github.com/rennerdo30/proxycfg/internal/api/server"
	"github.com/rennerdo30/proxycfg/internal/cli"
	"github.com/rennerdo30/proxycfg/internal/config"
	"github.com/rennerdo30/proxycfg/internal/logging"
	"github.com/rennerdo30/proxycfg/internal/sysproxy"
	"github.com/rennerdo30/proxycfg/internal/version"
)

// app carries the state shared by all commands once flags are parsed.
type app struct {
	configFile string
	logLevel   string
	cfg        config.ToolConfig

	// environ overrides the process environment in tests.
	environ func() []string
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "proxycfg.yaml"
	}
	return filepath.Join(dir, "proxycfg", "config.yaml")
}

// load reads the configuration file, falling back to defaults when it does
// not exist, and sets up logging.
func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadTool(a.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := logging.Setup(cfg.Logging); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	a.cfg = cfg
	return nil
}

// resolver builds the provider chain for this platform, minus the sources
// disabled in the configuration.
func (a *app) resolver() *sysproxy.Resolver {
	providers := sysproxy.DefaultProviders(sysproxy.Options{
		Environ:       a.environ,
		SysconfigPath: a.cfg.Sources.SysconfigPath,
	})
	return sysproxy.NewResolver(sysproxy.FilterProviders(providers, a.cfg.Sources.Disabled)...)
}

func (a *app) cliOptions() cli.Options {
	return cli.Options{
		Source: func() (cli.Source, error) {
			return a.resolver(), nil
		},
		MissingSchemeError: func() bool {
			return a.cfg.Decision.MissingSchemeIsError()
		},
	}
}

func noConfig(cmd *cobra.Command, args []string) error { return nil }

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "proxycfg",
		Short: "Discover the system proxy configuration",
		Long: `proxycfg reads the operating system's proxy settings (environment variables,
Windows Internet Settings and WinHTTP, macOS System Configuration, or
/etc/sysconfig/proxy) and tells you which proxy, if any, a URL would use.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", defaultConfigPath(), "config file path")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		cli.NewShowCommand(a.cliOptions()),
		cli.NewLookupCommand(a.cliOptions()),
		newServeCommand(a),
		newConfigCommand(a),
		&cobra.Command{
			Use:               "version",
			Short:             "Print version information",
			PersistentPreRunE: noConfig,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			},
		},
	)

	ctl := cli.NewCtlCommand()
	ctl.PersistentPreRunE = noConfig
	root.AddCommand(ctl)

	return root
}

func newConfigCommand(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:               "config",
		Short:             "Manage the configuration file",
		PersistentPreRunE: noConfig,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.configFile); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.configFile)
			}
			if err := os.MkdirAll(filepath.Dir(a.configFile), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := os.WriteFile(a.configFile, []byte(config.DefaultToolConfigTemplate), 0o600); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", a.configFile)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultToolConfig()
			if err := config.LoadAndValidate(a.configFile, &cfg); err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	}

	hashCmd := &cobra.Command{
		Use:   "hash-token TOKEN",
		Short: "Print the bcrypt hash of an API token for api.token_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := apiserver.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	configCmd.AddCommand(initCmd, validateCmd, hashCmd)
	return configCmd
}

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	logging.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
