package main

import (
	"github.com/aretw0/probe/internal/cli"
	"github.com/aretw0/probe/internal/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective settings",
	Long:  `Resolves the settings from flags, PROBE_* variables, the settings file and redis, and prints them as YAML.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cliOptions(cmd)
		logger := logging.New(logging.Level(opts.Debug))
		inspector, closer, err := cli.NewInspector(cmd.Context(), opts, logger)
		defer closer()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(inspector.Settings()); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
