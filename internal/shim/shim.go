// Package shim writes a Go source file that embeds compiled templates and
// registers them into a cache.Store, so programs can load templates without
// reading template files at run time.
package shim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/token"
	"io"
	"sort"
	"strconv"
	"text/template"

	"mvdan.cc/gofumpt/format"

	"github.com/agentic-research/brightline/cache"
)

var shimTmpl = template.Must(template.New("shim").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`// Code generated by brightline compile; DO NOT EDIT.

package {{.Package}}

import (
	"strings"

	"github.com/agentic-research/brightline/cache"
)

// Names lists the compiled templates in this package.
var Names = []string{ {{- range $i, $n := .Names}}{{if $i}}, {{end}}{{quote $n}}{{end -}} }

const bundle = {{quote .Bundle}}

// Register stores every compiled template of this package in s.
func Register(s cache.Store) error {
	b, err := cache.ReadBundle(strings.NewReader(bundle))
	if err != nil {
		return err
	}
	return cache.Import(s, b)
}
`))

// Generate writes a gofumpt-formatted Go file for package pkg embedding b.
func Generate(w io.Writer, pkg string, b cache.Bundle) error {
	if !token.IsIdentifier(pkg) {
		return fmt.Errorf("invalid package name %q", pkg)
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	err = shimTmpl.Execute(&buf, struct {
		Package string
		Names   []string
		Bundle  string
	}{pkg, names, string(raw)})
	if err != nil {
		return err
	}

	src, err := format.Source(buf.Bytes(), format.Options{})
	if err != nil {
		return fmt.Errorf("format shim: %w", err)
	}
	_, err = w.Write(src)
	return err
}
