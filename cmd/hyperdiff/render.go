package main

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/actions"
)

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

func renderSummary(w io.Writer, report *Report) {
	title := color.New(color.Bold)
	title.Fprintf(w, "%s -> %s\n", sanitizeForTerminal(report.Src), sanitizeForTerminal(report.Dst))

	st := report.Stats
	fmt.Fprintf(w, "  nodes: %s -> %s, mappings: %s (top-down %s, bottom-up %s, exact %s), %s\n",
		humanize.Comma(int64(report.SrcNodes)),
		humanize.Comma(int64(report.DstNodes)),
		humanize.Comma(int64(st.Mappings)),
		humanize.Comma(int64(st.Subtree.Links)),
		humanize.Comma(int64(st.BottomUp.HeuristicLinks)),
		humanize.Comma(int64(st.BottomUp.OracleLinks)),
		st.Duration.Round(time.Microsecond),
	)
}

func renderMatch(w io.Writer, report *Report, quiet bool) {
	renderSummary(w, report)

	if quiet || len(report.Pairs) == 0 {
		return
	}

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"src", "dst", "type", "src label", "dst label"})

	for _, p := range report.Pairs {
		tbl.AppendRow(table.Row{p.Src, p.Dst, p.Type, sanitizeForTerminal(p.SrcLabel), sanitizeForTerminal(p.DstLabel)})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %s pairs", humanize.Comma(int64(len(report.Pairs))))})
	tbl.Render()
}

var (
	insertColor = color.New(color.FgGreen)
	deleteColor = color.New(color.FgRed)
	updateColor = color.New(color.FgYellow)
	moveColor   = color.New(color.FgCyan)
)

func renderDiff(w io.Writer, report *Report, quiet bool) {
	renderSummary(w, report)

	if report.Actions == nil {
		return
	}

	sum := report.Actions.Summary
	fmt.Fprintf(w, "  %s, %s, %s, %s\n",
		insertColor.Sprintf("%d inserted", sum.Inserts),
		deleteColor.Sprintf("%d deleted", sum.Deletes),
		updateColor.Sprintf("%d updated", sum.Updates),
		moveColor.Sprintf("%d moved", sum.Moves),
	)

	if quiet {
		return
	}

	for _, a := range report.Actions.Actions {
		fmt.Fprintln(w, describeAction(a))
	}
}

func describeAction(a actions.Action) string {
	switch a.Kind {
	case actions.Insert:
		return insertColor.Sprintf("+ %s %s", a.Type, quoteLabel(a.NewLabel)) + fmt.Sprintf("  @dst %d", a.Dst)
	case actions.Delete:
		return deleteColor.Sprintf("- %s %s", a.Type, quoteLabel(a.OldLabel)) + fmt.Sprintf("  @src %d", a.Src)
	case actions.Update:
		return updateColor.Sprintf("~ %s ", a.Type) + labelDiff(a.OldLabel, a.NewLabel) +
			fmt.Sprintf("  @src %d -> @dst %d", a.Src, a.Dst)
	case actions.Move:
		return moveColor.Sprintf("> %s", a.Type) + fmt.Sprintf("  @src %d -> @dst %d", a.Src, a.Dst)
	default:
		return string(a.Kind)
	}
}

func quoteLabel(label string) string {
	if label == "" {
		return ""
	}

	return fmt.Sprintf("%q", sanitizeForTerminal(label))
}

// labelDiff renders the character diff of an updated label: colored when
// color is on, with [-old-]{+new+} markers otherwise.
func labelDiff(oldLabel, newLabel string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(sanitizeForTerminal(oldLabel), sanitizeForTerminal(newLabel), false))

	if !color.NoColor {
		return dmp.DiffPrettyText(diffs)
	}

	var b strings.Builder

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		}
	}

	return b.String()
}

func sanitizeForTerminal(input string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, input)
}
