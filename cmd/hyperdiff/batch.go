package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/treeio"
)

// Sentinel errors of the batch command.
var (
	ErrEmptyManifest = errors.New("manifest lists no pairs")
	ErrBatchFailed   = errors.New("batch had failing pairs")
)

// Manifest lists the tree pairs of a batch run. Relative paths are resolved
// against the manifest's directory.
type Manifest struct {
	Pairs []ManifestPair `yaml:"pairs"`
}

// ManifestPair is one entry of a Manifest.
type ManifestPair struct {
	Name string `yaml:"name"`
	Src  string `yaml:"src"`
	Dst  string `yaml:"dst"`
}

// BatchResult is the output of a batch run.
type BatchResult struct {
	Reports  []*Report     `json:"reports"  yaml:"reports"`
	Failed   int           `json:"failed"   yaml:"failed"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

func batchCmd(a *app) *cobra.Command {
	var (
		mf       matcherFlags
		of       outputFlags
		workers  int
		failFast bool
	)

	cmd := &cobra.Command{
		Use:   "batch manifest.yaml",
		Short: "Run a manifest of tree pairs concurrently",
		Long: `Run every pair listed in a YAML manifest, each with its own store.

Manifest:
  pairs:
    - name: parser
      src: before/parser.json
      dst: after/parser.json

Examples:
  hyperdiff batch pairs.yaml
  hyperdiff batch -w 8 -f json pairs.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mc, err := mf.apply(cmd.Flags(), a.cfg)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Batch.Workers
			}

			manifest, err := loadManifest(args[0])
			if err != nil {
				return err
			}

			result := a.runBatch(cmd.Context(), manifest, mc, mf.eager, workers, failFast)

			writeErr := of.write(cmd, result, func(w io.Writer) error {
				renderBatch(w, result)

				return nil
			})
			if writeErr != nil {
				return writeErr
			}

			if result.Failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrBatchFailed, result.Failed, len(result.Reports))
			}

			return nil
		},
	}

	mf.bind(cmd.Flags())
	of.bind(cmd)
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent pairs (default: batch.workers, 0 = one per CPU)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first failing pair")

	return cmd
}

func loadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest

	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	if len(manifest.Pairs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyManifest, path)
	}

	base := filepath.Dir(path)

	for i := range manifest.Pairs {
		p := &manifest.Pairs[i]

		if p.Name == "" {
			p.Name = fmt.Sprintf("pair-%d", i+1)
		}

		for _, field := range []*string{&p.Src, &p.Dst} {
			if *field != "" && !filepath.IsAbs(*field) {
				*field = filepath.Join(base, *field)
			}
		}
	}

	return &manifest, nil
}

// runBatch matches every pair on a bounded pool. A failing pair is
// recorded in its report; with failFast it also cancels the rest.
func (a *app) runBatch(ctx context.Context, manifest *Manifest, mc matchers.Config,
	eager bool, workers int, failFast bool,
) *BatchResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	reports := make([]*Report, len(manifest.Pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, pair := range manifest.Pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				reports[i] = &Report{Name: pair.Name, Src: pair.Src, Dst: pair.Dst, Error: err.Error()}

				return nil
			}

			report, err := a.runPair(gctx, pair, mc, eager)
			if err != nil {
				reports[i] = &Report{Name: pair.Name, Src: pair.Src, Dst: pair.Dst, Error: err.Error()}
				a.logger.WarnContext(gctx, "batch pair failed", "name", pair.Name, "error", err)

				if failFast {
					return fmt.Errorf("%s: %w", pair.Name, err)
				}

				return nil
			}

			reports[i] = report

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.WarnContext(ctx, "batch stopped early", "error", err)
	}

	result := &BatchResult{Reports: reports, Duration: time.Since(start)}

	for _, r := range reports {
		if r.Error != "" {
			result.Failed++
		}
	}

	a.logger.InfoContext(ctx, "batch done",
		"pairs", len(reports), "failed", result.Failed, "workers", workers, "elapsed", result.Duration)

	return result
}

func (a *app) runPair(ctx context.Context, pair ManifestPair, mc matchers.Config, eager bool) (*Report, error) {
	src, dst, err := readTrees(pair.Src, pair.Dst, treeio.DefaultMaxBytes)
	if err != nil {
		return nil, err
	}

	return runTrees(ctx, runRequest{
		src:         src,
		dst:         dst,
		matcher:     mc,
		eager:       eager,
		withActions: true,
		providers:   a.providers,
		srcLabel:    pair.Src,
		dstLabel:    pair.Dst,
		reportName:  pair.Name,
	})
}

func renderBatch(w io.Writer, result *BatchResult) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"name", "src nodes", "dst nodes", "mappings", "ins", "del", "upd", "mov", "status"})

	for _, r := range result.Reports {
		if r.Error != "" {
			tbl.AppendRow(table.Row{r.Name, "", "", "", "", "", "", "", deleteColor.Sprint(sanitizeForTerminal(r.Error))})

			continue
		}

		sum := r.Actions.Summary
		tbl.AppendRow(table.Row{
			r.Name,
			humanize.Comma(int64(r.SrcNodes)),
			humanize.Comma(int64(r.DstNodes)),
			humanize.Comma(int64(r.Stats.Mappings)),
			sum.Inserts, sum.Deletes, sum.Updates, sum.Moves,
			insertColor.Sprint("ok"),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d pairs, %d failed, %s", len(result.Reports), result.Failed,
		result.Duration.Round(time.Millisecond))})
	tbl.Render()
}
