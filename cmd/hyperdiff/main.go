// Package main provides the hyperdiff CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := newRootCmd(&app{}).Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hyperdiff",
		Short: "Structural matching of UAST trees",
		Long: `hyperdiff maps the nodes of a source UAST onto the nodes of a destination
UAST and reports what was inserted, deleted, updated and moved.

Commands:
  match     Print the node mapping of two trees
  diff      Print the edit actions between two trees
  batch     Run a manifest of tree pairs concurrently
  validate  Check trees against the UAST schema
  server    Serve matching over HTTP`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.preRun,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: hyperdiff.yaml in ., ./config, /etc/hyperdiff)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(matchCmd(a))
	rootCmd.AddCommand(diffCmd(a))
	rootCmd.AddCommand(batchCmd(a))
	rootCmd.AddCommand(validateCmd(a))
	rootCmd.AddCommand(serverCmd(a))
	rootCmd.AddCommand(completionCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Annotations: map[string]string{annotationNoSetup: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
