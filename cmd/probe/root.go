package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/probe/internal/cli"
	"github.com/aretw0/probe/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe is a bounded value introspection tool",
	Long: `Probe analyses values into a navigable tree of nodes, within limits on
nesting, collection size, runtime and memory. The CLI dumps JSON or YAML
documents, serves the analysis over HTTP and exposes it to MCP clients.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Settings file (YAML or JSON)")
	rootCmd.PersistentFlags().String("redis", "", "Address of a redis server holding the settings hash")
	rootCmd.PersistentFlags().String("redis-key", "", "Redis hash holding the settings (default probe:settings)")
	rootCmd.PersistentFlags().StringSlice("redact", nil, "Mask values whose name matches one of these patterns (e.g. '(?i)password')")
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug information to stderr")
}

// cliOptions collects the flags shared by the commands building an inspector.
func cliOptions(cmd *cobra.Command) cli.Options {
	opts := cli.Options{}
	opts.Config, _ = cmd.Flags().GetString("config")
	opts.Redis, _ = cmd.Flags().GetString("redis")
	opts.RedisKey, _ = cmd.Flags().GetString("redis-key")
	opts.Redact, _ = cmd.Flags().GetStringSlice("redact")
	opts.Debug, _ = cmd.Flags().GetBool("debug")
	if cmd.Flags().Lookup("level") != nil {
		opts.Level, _ = cmd.Flags().GetInt("level")
	}
	return opts
}

// addDumpFlags registers the output flags of dump and demo.
func addDumpFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", cli.FormatText, fmt.Sprintf("Output format: %v", cli.Formats))
	cmd.Flags().Int("level", 0, "Maximum nesting level (overrides the settings)")
	cmd.Flags().Int("budget", 0, "Maximum number of rendered nodes (0 for the default)")
	cmd.Flags().Bool("stats", false, "Print node statistics after the tree")
}

// newDumper builds a Dumper from the command flags.
// The returned function releases the settings providers.
func newDumper(cmd *cobra.Command) (*cli.Dumper, func() error, error) {
	opts := cliOptions(cmd)
	level := slog.LevelWarn
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := logging.New(level)
	inspector, closer, err := cli.NewInspector(cmd.Context(), opts, logger)
	if err != nil {
		return nil, closer, err
	}
	d := &cli.Dumper{Inspector: inspector, Logger: logger}
	d.Format, _ = cmd.Flags().GetString("format")
	d.Budget, _ = cmd.Flags().GetInt("budget")
	d.Stats, _ = cmd.Flags().GetBool("stats")
	return d, closer, nil
}
