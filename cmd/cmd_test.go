package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/brightline/cache"
	"github.com/agentic-research/brightline/engine"
	"github.com/agentic-research/brightline/internal/discover"
)

const stoogesTpl = `<ul>
<!-- BEGIN item -->
  <li>{{name}}</li>
<!-- END item -->
</ul>
<p>{{title}}</p>
`

const stoogesOut = "<ul>\n<li>Larry</li>\n\n  <li>Moe</li>\n\n  <li>Curly</li>\n</ul>\n<p>Stooges</p>\n"

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func TestCompile_ThenRenderByName(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"templates/stooges.tpl":     stoogesTpl,
		"templates/parts/nav.tpl":   "<nav>{{home}}</nav>",
		"templates/parts/notes.txt": "ignored",
		"data.json":                 `{"title": "Stooges", "items": ["Larry", "Moe", "Curly"]}`,
	})
	cacheDir := filepath.Join(dir, "cache")

	out, _, err := run(t, "compile", filepath.Join(dir, "templates"), cacheDir, "--log-level", "OFF")
	require.NoError(t, err)
	db := filepath.Join(cacheDir, "brightline.db")
	assert.Equal(t, "Compiled 2 templates into "+db+"\n", out)

	out, _, err = run(t, "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "nav\nstooges\n", out)

	out, _, err = run(t, "render", "stooges", "--db", db,
		"--data", filepath.Join(dir, "data.json"),
		"--each", "item=$.items", "--as", "name",
		"--log-level", "OFF")
	require.NoError(t, err)
	assert.Equal(t, stoogesOut, out)
}

func TestRender_FileWithYAMLAndRecords(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"stooges.tpl": stoogesTpl,
		"data.yaml":   "title: Stooges\npeople:\n  - name: Larry\n  - name: Moe\n  - name: Curly\n",
	})

	out, _, err := run(t, "render", filepath.Join(dir, "stooges.tpl"),
		"--data", filepath.Join(dir, "data.yaml"),
		"--each", "item=$.people",
		"--log-level", "OFF")
	require.NoError(t, err)
	assert.Equal(t, stoogesOut, out)
}

func TestRender_BlockAndMinify(t *testing.T) {
	dir := writeTree(t, map[string]string{"stooges.tpl": stoogesTpl})
	tpl := filepath.Join(dir, "stooges.tpl")

	out, _, err := run(t, "render", tpl, "--block", "item", "--log-level", "OFF")
	require.NoError(t, err)
	assert.Equal(t, "<li></li>\n", out)

	out, _, err = run(t, "render", tpl, "--minify", "--log-level", "OFF")
	require.NoError(t, err)
	assert.NotContains(t, out, "\n<p>")
	assert.Contains(t, out, "<ul>")
}

func TestRender_Errors(t *testing.T) {
	dir := writeTree(t, map[string]string{"stooges.tpl": stoogesTpl})
	tpl := filepath.Join(dir, "stooges.tpl")

	_, _, err := run(t, "render", tpl, "--each", "item=$.x", "--log-level", "OFF")
	require.ErrorContains(t, err, "needs --data")

	_, _, err = run(t, "render", tpl, "--block", "nope", "--log-level", "OFF")
	require.ErrorIs(t, err, engine.ErrUnknownBlock)

	_, _, err = run(t, "render", "missing", "--db", filepath.Join(dir, "none.db"))
	require.ErrorContains(t, err, "no such template file")
}

func TestRender_UnknownCompiledName(t *testing.T) {
	dir := writeTree(t, map[string]string{"t/a.tpl": "a"})
	db := filepath.Join(dir, "c.db")
	_, _, err := run(t, "compile", filepath.Join(dir, "t"), "--db", db, "--log-level", "OFF")
	require.NoError(t, err)

	_, _, err = run(t, "render", "b", "--db", db, "--log-level", "OFF")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestCompile_JSONBundleAndGoShim(t *testing.T) {
	dir := writeTree(t, map[string]string{"t/stooges.tpl": stoogesTpl})
	jsonPath := filepath.Join(dir, "bundle.json")
	goPath := filepath.Join(dir, "templates.go")

	_, _, err := run(t, "compile", filepath.Join(dir, "t"),
		"--json", jsonPath, "--go", goPath, "--package", "views", "--log-level", "OFF")
	require.NoError(t, err)

	f, err := os.Open(jsonPath)
	require.NoError(t, err)
	defer f.Close()
	bundle, err := cache.ReadBundle(f)
	require.NoError(t, err)
	require.Contains(t, bundle, "stooges")
	assert.Equal(t, 2, bundle["stooges"].NumNodes)

	src, err := os.ReadFile(goPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(src), "// Code generated by brightline compile; DO NOT EDIT."))
	assert.Contains(t, string(src), "package views")
	assert.Contains(t, string(src), "func Register(s cache.Store) error")
}

func TestCompile_DuplicateNames(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"t/a/page.tpl": "1",
		"t/b/page.tpl": "2",
	})
	_, _, err := run(t, "compile", filepath.Join(dir, "t"), "--log-level", "OFF")
	require.ErrorIs(t, err, discover.ErrDuplicateName)
}

func TestCompile_BadTemplate(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"t/bad.tpl": "<!-- BEGIN a -->x<!-- END a --><!-- BEGIN a -->y<!-- END a -->",
	})
	_, _, err := run(t, "compile", filepath.Join(dir, "t"), "--log-level", "OFF")
	require.ErrorIs(t, err, engine.ErrDuplicateBlockName)
}

func TestCompile_NoTemplates(t *testing.T) {
	dir := t.TempDir()
	out, stderr, err := run(t, "compile", dir, "--log-level", "WARN")
	require.NoError(t, err)
	assert.Equal(t, "No templates found in "+dir+"\n", out)
	assert.Contains(t, stderr, "no templates found")
}

func TestCompile_LogsCarryInstanceName(t *testing.T) {
	dir := writeTree(t, map[string]string{"t/a.tpl": "a"})
	_, stderr, err := run(t, "compile", filepath.Join(dir, "t"), "--log-level", "INFO", "--name", "site")
	require.NoError(t, err)
	assert.Contains(t, stderr, "engine=site")
	assert.Contains(t, stderr, "compiled template")
}

func TestBlocks(t *testing.T) {
	dir := writeTree(t, map[string]string{"stooges.tpl": stoogesTpl})

	out, _, err := run(t, "blocks", filepath.Join(dir, "stooges.tpl"), "--log-level", "OFF")
	require.NoError(t, err)
	assert.Equal(t, "__root__ {{title}}\n  item {{name}}\n", out)
}

func TestConfigFile(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"t/page.html": "<b>{{x}}</b>",
		"cfg.hcl":     "extension = \".html\"\nlog_level = \"OFF\"\ndatabase = \"pages.db\"\n",
	})
	out, _, err := run(t, "compile", filepath.Join(dir, "t"), "--config", filepath.Join(dir, "cfg.hcl"))
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled 1 templates into "+filepath.Join(dir, "t", "pages.db"))

	_, _, err = run(t, "compile", filepath.Join(dir, "t"), "--log-level", "LOUD")
	require.Error(t, err)
}
