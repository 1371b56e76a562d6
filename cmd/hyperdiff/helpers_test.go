package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

func ident(name string) *node.Node { return node.NewNodeWithToken(node.UASTIdentifier, name) }

// program is File(Function(main, Block(Call(print, arg), Return(0)))).
func program(arg string) *node.Node {
	return node.NewInternal(node.UASTFile,
		node.NewInternal(node.UASTFunction,
			ident("main"),
			node.NewInternal(node.UASTBlock,
				node.NewInternal(node.UASTCall, ident("print"), ident(arg)),
				node.NewInternal(node.UASTReturn, node.NewNodeWithToken(node.UASTLiteral, "0")),
			),
		),
	)
}

func writeTree(t *testing.T, dir, name string, tree *node.Node) string {
	t.Helper()

	raw, err := json.Marshal(tree)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// execute runs the CLI with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := newRootCmd(&app{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--quiet"}, args...))

	err := root.Execute()

	return out.String(), err
}
