package main

import (
	"fmt"
	"os"

	"github.com/BadgerOps/uplink/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage uplink configuration. Subcommands allow viewing the effective
configuration and writing a default config file.`,
		Example: `  uplink config show
  uplink config init --path /etc/uplink/uplink.yaml`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration in YAML format, after merging the
loaded config file with defaults.`,
		Example: `  uplink config show
  uplink config show --config /etc/uplink/uplink.yaml`,
		RunE: configShowRun,
	}

	return cmd
}

func configShowRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	data, err := yaml.Marshal(globalCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if cfgPath != "" {
		fmt.Printf("# loaded from %s\n", cfgPath)
	} else {
		fmt.Println("# built-in defaults (no config file found)")
	}
	fmt.Print(string(data))

	return nil
}

var configInitPath string

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write a config file populated with the built-in defaults. Refuses to
overwrite an existing file.`,
		Example: `  uplink config init
  uplink config init --path /etc/uplink/uplink.yaml`,
		RunE: configInitRun,
	}

	cmd.Flags().StringVar(&configInitPath, "path", "uplink.yaml", "where to write the config file")

	return cmd
}

func configInitRun(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configInitPath); err == nil {
		return fmt.Errorf("refusing to overwrite existing %s", configInitPath)
	}

	if err := config.DefaultConfig().Save(configInitPath); err != nil {
		return err
	}

	fmt.Printf("Wrote default config to %s\n", configInitPath)
	return nil
}
