package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/actions"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/treeio"
)

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hyperdiff ")
}

func TestCompletionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "hyperdiff")

	_, err = execute(t, "completion", "tcsh")
	require.ErrorIs(t, err, ErrUnsupportedShell)
}

func TestMatchCommand_JSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeTree(t, dir, "src.json", program("x"))
	dst := writeTree(t, dir, "dst.json", program("y"))

	out, err := execute(t, "match", "-f", "json", src, dst)
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.Equal(t, 9, report.SrcNodes)
	assert.Equal(t, 9, report.Stats.Mappings)
	assert.Len(t, report.Pairs, 9)
	assert.Nil(t, report.Actions)
	assert.Contains(t, report.Pairs, PairView{Src: 2, Dst: 2, Type: "Identifier", SrcLabel: "x", DstLabel: "y"})
}

func TestMatchCommand_Text(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeTree(t, dir, "src.json", program("x"))
	dst := writeTree(t, dir, "dst.json", program("y"))

	out, err := execute(t, "match", "--eager", "--slicing", "decompress", src, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "mappings: 9")
}

func TestMatchCommand_InvalidFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeTree(t, dir, "src.json", program("x"))

	_, err := execute(t, "match", "--slicing", "sideways", src, src)
	require.ErrorIs(t, err, matchers.ErrUnknownSlicing)

	_, err = execute(t, "match", "--sim-threshold", "half", src, src)
	require.ErrorIs(t, err, matchers.ErrInvalidSimThreshold)

	_, err = execute(t, "match", "-f", "xml", src, src)
	require.ErrorIs(t, err, ErrUnsupportedOutput)
}

func TestDiffCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeTree(t, dir, "src.json", program("x"))
	dst := writeTree(t, dir, "dst.json", program("y"))

	out, err := execute(t, "diff", "-f", "yaml", src, dst)
	require.NoError(t, err)

	var fromYAML Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, 9, fromYAML.Stats.Mappings)

	jsonOut, err := execute(t, "diff", "-f", "json", src, dst)
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal([]byte(jsonOut), &report))
	require.NotNil(t, report.Actions)
	assert.Equal(t, actions.Summary{Updates: 1}, report.Actions.Summary)
}

func TestDiffCommand_RejectsInvalidTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeTree(t, dir, "src.json", program("x"))
	bad := writeFile(t, dir, "bad.json", `{"type": "File", "children": [{"token": "x"}]}`)

	_, err := execute(t, "diff", src, bad)
	require.ErrorIs(t, err, treeio.ErrInvalidTree)
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeTree(t, dir, "good.json", program("x"))
	goodYAML := writeFile(t, dir, "good.yaml", "type: File\nchildren:\n  - {type: Identifier, token: a}\n")
	bad := writeFile(t, dir, "bad.json", `{"type": "File", "children": [{"token": "x"}]}`)

	_, err := execute(t, "validate", good, goodYAML)
	require.NoError(t, err)

	out, err := execute(t, "validate", good, bad)
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, out, "schema violations")
}

func TestBatchCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTree(t, dir, "a_src.json", program("x"))
	writeTree(t, dir, "a_dst.json", program("y"))
	writeTree(t, dir, "b.json", program("z"))

	manifest := writeFile(t, dir, "pairs.yaml", `pairs:
  - name: renamed
    src: a_src.json
    dst: a_dst.json
  - name: same
    src: b.json
    dst: b.json
  - src: b.json
    dst: missing.json
`)

	out, err := execute(t, "batch", "-w", "2", "-f", "json", manifest)
	require.ErrorIs(t, err, ErrBatchFailed)

	var result BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	require.Len(t, result.Reports, 3)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "renamed", result.Reports[0].Name)
	assert.Equal(t, actions.Summary{Updates: 1}, result.Reports[0].Actions.Summary)
	assert.Zero(t, result.Reports[1].Actions.Summary.Total())
	assert.Equal(t, "pair-3", result.Reports[2].Name)
	assert.NotEmpty(t, result.Reports[2].Error)
}

func TestBatchCommand_EmptyManifest(t *testing.T) {
	t.Parallel()

	manifest := writeFile(t, t.TempDir(), "pairs.yaml", "pairs: []\n")

	_, err := execute(t, "batch", manifest)
	require.ErrorIs(t, err, ErrEmptyManifest)
}
