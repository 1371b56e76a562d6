package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/treeio"
)

// pairArgCount is the number of tree arguments of match and diff.
const pairArgCount = 2

// formatText is the human-readable output format.
const formatText = "text"

// ErrUnsupportedOutput is returned for an unknown --format.
var ErrUnsupportedOutput = errors.New("unsupported output format")

// outputFlags selects where and how a command writes its result.
type outputFlags struct {
	format string
	output string
}

func (of *outputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&of.format, "format", "f", formatText, "output format (text, json, yaml)")
	cmd.Flags().StringVarP(&of.output, "output", "o", "", "output file (default: stdout)")
}

// write renders v with render for text, or encodes it.
func (of *outputFlags) write(cmd *cobra.Command, v any, render func(io.Writer) error) error {
	var writer io.Writer = cmd.OutOrStdout()

	if of.output != "" {
		outputFile, err := os.Create(of.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer outputFile.Close()

		writer = outputFile
	}

	if of.format == formatText {
		return render(writer)
	}

	format, err := treeio.ParseFormat(of.format)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedOutput, of.format)
	}

	return treeio.Encode(writer, v, format)
}

func matchCmd(a *app) *cobra.Command {
	var (
		mf matcherFlags
		of outputFlags
	)

	cmd := &cobra.Command{
		Use:   "match src dst",
		Short: "Print the node mapping of two trees",
		Long: `Match two UAST trees (JSON or YAML, optionally .lz4) and print the mapping
between their postorder indices.

Examples:
  hyperdiff match before.json after.json
  hyperdiff match -f json before.yaml after.yaml
  hyperdiff match --size-threshold 0 before.json.lz4 after.json.lz4`,
		Args: cobra.ExactArgs(pairArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.runFiles(cmd, &mf, args[0], args[1], true, false)
			if err != nil {
				return err
			}

			return of.write(cmd, report, func(w io.Writer) error {
				renderMatch(w, report, a.quiet)

				return nil
			})
		},
	}

	mf.bind(cmd.Flags())
	of.bind(cmd)

	return cmd
}

func diffCmd(a *app) *cobra.Command {
	var (
		mf matcherFlags
		of outputFlags
	)

	cmd := &cobra.Command{
		Use:   "diff src dst",
		Short: "Print the edit actions between two trees",
		Long: `Match two UAST trees and print the nodes that were inserted, deleted,
updated or moved.

Examples:
  hyperdiff diff before.json after.json
  hyperdiff diff -f yaml -o changes.yaml before.json after.json`,
		Args: cobra.ExactArgs(pairArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.runFiles(cmd, &mf, args[0], args[1], false, true)
			if err != nil {
				return err
			}

			return of.write(cmd, report, func(w io.Writer) error {
				renderDiff(w, report, a.quiet)

				return nil
			})
		},
	}

	mf.bind(cmd.Flags())
	of.bind(cmd)

	return cmd
}

func (a *app) runFiles(cmd *cobra.Command, mf *matcherFlags, srcPath, dstPath string, withPairs, withActions bool) (*Report, error) {
	mc, err := mf.apply(cmd.Flags(), a.cfg)
	if err != nil {
		return nil, err
	}

	src, dst, err := readTrees(srcPath, dstPath, treeio.DefaultMaxBytes)
	if err != nil {
		return nil, err
	}

	return runTrees(cmd.Context(), runRequest{
		src:         src,
		dst:         dst,
		matcher:     mc,
		eager:       mf.eager,
		withPairs:   withPairs,
		withActions: withActions,
		providers:   a.providers,
		srcLabel:    srcPath,
		dstLabel:    dstPath,
	})
}
