package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/treeio"
)

// ErrValidationFailed is returned when at least one input is invalid.
var ErrValidationFailed = errors.New("validation failed")

func validateCmd(a *app) *cobra.Command {
	var (
		colorize, nocolor bool
		format            string
	)

	cmd := &cobra.Command{
		Use:   "validate <file>... | -",
		Short: "Validate UAST trees against the UAST schema",
		Long: `Validate UAST trees (JSON or YAML, optionally .lz4) against the embedded
UAST schema. "-" reads one JSON or YAML tree from stdin, see --stdin-format.

Examples:
  hyperdiff validate tree.json
  hyperdiff validate a.yaml b.json.lz4
  hyperdiff validate --stdin-format yaml - < tree.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case nocolor:
				color.NoColor = true //nolint:reassign // intentional override of library global
			case colorize:
				color.NoColor = false //nolint:reassign // intentional override of library global
			}

			return runValidate(cmd.OutOrStdout(), cmd.InOrStdin(), args, format, a.quiet)
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")
	cmd.Flags().StringVar(&format, "stdin-format", string(treeio.JSON), "format of a tree read from stdin (json, yaml)")

	return cmd
}

func runValidate(w io.Writer, stdin io.Reader, paths []string, stdinFormat string, quiet bool) error {
	failed := 0

	for _, path := range paths {
		doc, err := loadDocument(stdin, path, stdinFormat)
		if err != nil {
			deleteColor.Fprintf(w, "%s: %v\n", path, err)

			failed++

			continue
		}

		violations, err := doc.Validate()
		if err != nil {
			return err
		}

		if len(violations) == 0 {
			if !quiet {
				insertColor.Fprintf(w, "%s: valid UAST\n", path)
			}

			continue
		}

		failed++

		deleteColor.Fprintf(w, "%s: %d schema violations\n", path, len(violations))

		for _, v := range violations {
			fmt.Fprintf(w, "  - %s: %s\n", v.Field, v.Description)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d inputs", ErrValidationFailed, failed, len(paths))
	}

	return nil
}

func loadDocument(stdin io.Reader, path, stdinFormat string) (*treeio.Document, error) {
	if path != "-" {
		return treeio.ReadFile(path, treeio.DefaultMaxBytes)
	}

	format, err := treeio.ParseFormat(stdinFormat)
	if err != nil {
		return nil, err
	}

	if stdin == nil {
		stdin = os.Stdin
	}

	return treeio.Decode(stdin, format, treeio.DefaultMaxBytes)
}
