package main

import (
	"github.com/aretw0/probe/internal/cli"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Dump a built-in graph of Go values",
	Long: `Dumps a small team of members pointing back at their team, showing
reference nodes, getters and debug methods.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, closer, err := newDumper(cmd)
		defer closer()
		if err != nil {
			return err
		}
		_, err = d.Dump(cmd.OutOrStdout(), cli.DemoValue(), "team")
		return err
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	addDumpFlags(demoCmd)
}
