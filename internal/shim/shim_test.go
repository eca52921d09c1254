package shim

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mvdan.cc/gofumpt/format"

	"github.com/agentic-research/brightline/api"
	"github.com/agentic-research/brightline/cache"
)

func testBundle() cache.Bundle {
	return cache.Bundle{
		"page": {
			ChildParentMap: map[string]string{"row": "__root__"},
			Nodes: map[string]api.CompiledBlock{
				"__root__": {Name: "__root__", Content: "<table>{{__row__}}</table>", Variables: []string{}},
				"row":      {Name: "row", Content: "<tr>`{{cell}}`</tr>", Variables: []string{"cell"}},
			},
			NumNodes: 2,
			Tree:     map[string][]string{"__root__": {"row"}},
		},
		"empty": {
			Nodes:    map[string]api.CompiledBlock{"__root__": {Name: "__root__", Variables: []string{}}},
			NumNodes: 1,
		},
	}
}

func TestGenerate_ParsesAndEmbedsBundle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, "templates", testBundle()))
	src := buf.Bytes()

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "templates.go", src, parser.ParseComments)
	require.NoError(t, err)
	assert.Equal(t, "templates", f.Name.Name)
	assert.True(t, ast.IsGenerated(f))

	var lit string
	ast.Inspect(f, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if ok && vs.Names[0].Name == "bundle" {
			lit = vs.Values[0].(*ast.BasicLit).Value
		}
		return true
	})
	require.NotEmpty(t, lit)

	raw, err := strconv.Unquote(lit)
	require.NoError(t, err)
	got, err := cache.ReadBundle(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, testBundle()["page"].Nodes, got["page"].Nodes)
	assert.Contains(t, string(src), `var Names = []string{"empty", "page"}`)
}

func TestGenerate_IsFormatted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, "templates", testBundle()))

	again, err := format.Source(buf.Bytes(), format.Options{})
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(again))
}

func TestGenerate_RejectsBadPackage(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Generate(&buf, "not-a-package", testBundle()))
	assert.Zero(t, buf.Len())
}
