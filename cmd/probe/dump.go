package main

import (
	"os"
	"path/filepath"

	"github.com/aretw0/probe"
	"github.com/aretw0/probe/internal/cli"
	"github.com/aretw0/probe/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump [file|-]",
	Short: "Dump a JSON or YAML document as a tree",
	Long: `Reads a JSON or YAML document from a file, or from standard input when the
argument is "-" or missing, and prints the analysed tree.
With --watch the file is analysed again on every change and only the
differences are printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cli.Stdin
		if len(args) > 0 {
			path = args[0]
		}
		watch, _ := cmd.Flags().GetBool("watch")

		d, closer, err := newDumper(cmd)
		defer closer()
		if err != nil {
			return err
		}

		if watch {
			tui.PrintBanner(os.Stderr, probe.Version)
			ctx, stop := cli.Interrupted(cmd.Context())
			defer stop()
			return d.Watch(ctx, cmd.OutOrStdout(), path)
		}

		doc, err := cli.ReadDocument(path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		name := "document"
		if path != cli.Stdin {
			name = filepath.Base(path)
		}
		_, err = d.Dump(cmd.OutOrStdout(), doc, name)
		return err
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	addDumpFlags(dumpCmd)
	dumpCmd.Flags().BoolP("watch", "w", false, "Print the changes every time the file is written")
}
