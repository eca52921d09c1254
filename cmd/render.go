package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"

	"github.com/agentic-research/brightline/cache"
	"github.com/agentic-research/brightline/engine"
	"github.com/agentic-research/brightline/internal/config"
	"github.com/agentic-research/brightline/internal/data"
)

type renderOpts struct {
	dbPath   string
	dataPath string
	each     []string
	as       string
	block    string
	minify   bool
}

func newRenderCmd(g *globals) *cobra.Command {
	o := &renderOpts{}
	c := &cobra.Command{
		Use:   "render [template]",
		Short: "Render a template file or a compiled template",
		Long: `Render prints a template with bindings from a JSON or YAML data file.

The argument is a template file, or the name of a template in the cache.
Each --each block=$.path repeats a block once per element selected from the
data; record elements bind their fields, scalar elements bind --as.
Top-level data fields are bound last and fill the remaining variables.`,
		Example: `  brightline render page.tpl --data press.json --each group=$.groups
  brightline render page --db cache/brightline.db --minify`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, g, o, args[0])
		},
	}
	c.Flags().StringVar(&o.dbPath, "db", "", "SQLite cache to load named templates from")
	c.Flags().StringVarP(&o.dataPath, "data", "d", "", "JSON or YAML file with bindings")
	c.Flags().StringArrayVar(&o.each, "each", nil, "Repeat a block per selected element, as block=jsonpath")
	c.Flags().StringVar(&o.as, "as", "", "Variable bound to scalar elements of --each")
	c.Flags().StringVarP(&o.block, "block", "b", "", "Render this block instead of the whole template")
	c.Flags().BoolVar(&o.minify, "minify", false, "Minify the output as HTML")
	return c
}

func runRender(cmd *cobra.Command, g *globals, o *renderOpts, target string) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	ecfg, err := engineConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.Database = o.dbPath
	}

	e, err := openTemplate(target, cfg, ecfg)
	if err != nil {
		return err
	}

	var doc any
	if o.dataPath != "" {
		if doc, err = data.Load(o.dataPath); err != nil {
			return err
		}
	}
	for _, spec := range o.each {
		each, err := data.ParseEach(spec)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("--each %s needs --data", spec)
		}
		items, err := data.Select(doc, each.Path)
		if err != nil {
			return err
		}
		if err := e.EachAs(items, each.Block, o.as, nil); err != nil {
			return err
		}
	}
	if doc != nil {
		e.SetValues(doc)
	}

	out, err := e.Render(o.block)
	if err != nil {
		return err
	}
	if o.minify || cfg.Minify {
		if out, err = minifyHTML(out); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

// openTemplate builds an engine from a template file, or loads a compiled
// template of that name from the cache when no such file exists.
func openTemplate(target string, cfg config.Config, ecfg engine.Config) (*engine.Engine, error) {
	src, err := os.ReadFile(target)
	if err == nil {
		return engine.New(string(src), ecfg)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if _, statErr := os.Stat(cfg.Database); statErr != nil {
		return nil, fmt.Errorf("%s: no such template file, and no cache at %s", target, cfg.Database)
	}
	store, err := cache.OpenSQLite(cfg.Database)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	return engine.Load(store, target, ecfg)
}

func minifyHTML(s string) (string, error) {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	out, err := m.String("text/html", s)
	if err != nil {
		return "", fmt.Errorf("minify: %w", err)
	}
	return out, nil
}
