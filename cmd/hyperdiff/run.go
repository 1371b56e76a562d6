package main

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/actions"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/decompressed"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/diff"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/hyperast"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/observability"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/treeio"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

// PairView is one mapping with the nodes it connects.
type PairView struct {
	Src      decompressed.IdD `json:"src"                 yaml:"src"`
	Dst      decompressed.IdD `json:"dst"                 yaml:"dst"`
	Type     node.Type        `json:"type"                yaml:"type"`
	SrcLabel string           `json:"src_label,omitempty" yaml:"src_label,omitempty"`
	DstLabel string           `json:"dst_label,omitempty" yaml:"dst_label,omitempty"`
}

// Report is the outcome of one matched pair of trees.
type Report struct {
	Name     string          `json:"name,omitempty"    yaml:"name,omitempty"`
	Src      string          `json:"src,omitempty"     yaml:"src,omitempty"`
	Dst      string          `json:"dst,omitempty"     yaml:"dst,omitempty"`
	SrcNodes int             `json:"src_nodes"         yaml:"src_nodes"`
	DstNodes int             `json:"dst_nodes"         yaml:"dst_nodes"`
	Stats    diff.Stats      `json:"stats"             yaml:"stats"`
	Pairs    []PairView      `json:"pairs,omitempty"   yaml:"pairs,omitempty"`
	Actions  *actions.Script `json:"actions,omitempty" yaml:"actions,omitempty"`
	Error    string          `json:"error,omitempty"   yaml:"error,omitempty"`
}

// runRequest describes one matching run.
type runRequest struct {
	src, dst    *node.Node
	matcher     matchers.Config
	eager       bool
	withPairs   bool
	withActions bool
	providers   observability.Providers
	srcLabel    string
	dstLabel    string
	reportName  string
}

// runTrees interns both trees into a fresh store and matches them.
func runTrees(ctx context.Context, req runRequest) (*Report, error) {
	store := hyperast.NewStore()
	srcRoot := store.InternTree(req.src)
	dstRoot := store.InternTree(req.dst)

	opts := []diff.Option{diff.WithMetrics(req.providers.Match)}

	if req.providers.Logger != nil {
		opts = append(opts, diff.WithLogger(req.providers.Logger))
	}

	if req.providers.Tracer != nil {
		opts = append(opts, diff.WithTracer(req.providers.Tracer))
	}

	if req.eager {
		opts = append(opts, diff.WithEagerViews())
	}

	if !req.withActions {
		opts = append(opts, diff.WithoutActions())
	}

	res, err := diff.Run(ctx, store, srcRoot, dstRoot, req.matcher, opts...)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Name:     req.reportName,
		Src:      req.srcLabel,
		Dst:      req.dstLabel,
		SrcNodes: res.Mapper.Src.Len(),
		DstNodes: res.Mapper.Dst.Len(),
		Stats:    res.Stats,
		Actions:  res.Actions,
	}

	if req.withPairs {
		report.Pairs = pairViews(res.Mapper)
	}

	return report, nil
}

func pairViews(mp *matchers.Mapper) []PairView {
	out := make([]PairView, 0, mp.Mappings.Len())

	for _, p := range mp.Mappings.Pairs() {
		s := mp.Src.DecompressTo(p.Src)
		d := mp.Dst.DecompressTo(p.Dst)

		srcLabel, _ := mp.Store.Resolve(mp.Src.Original(s)).Label()
		dstLabel, _ := mp.Store.Resolve(mp.Dst.Original(d)).Label()

		out = append(out, PairView{Src: s, Dst: d, Type: mp.SrcType(s), SrcLabel: srcLabel, DstLabel: dstLabel})
	}

	return out
}

// readTrees loads and validates two tree files.
func readTrees(srcPath, dstPath string, maxBytes int64) (src, dst *node.Node, err error) {
	src, err = readTree(srcPath, maxBytes)
	if err != nil {
		return nil, nil, err
	}

	dst, err = readTree(dstPath, maxBytes)
	if err != nil {
		return nil, nil, err
	}

	return src, dst, nil
}

func readTree(path string, maxBytes int64) (*node.Node, error) {
	doc, err := treeio.ReadFile(path, maxBytes)
	if err != nil {
		return nil, err
	}

	tree, err := doc.ValidTree()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return tree, nil
}
