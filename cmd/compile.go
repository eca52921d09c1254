package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentic-research/brightline/cache"
	"github.com/agentic-research/brightline/engine"
	"github.com/agentic-research/brightline/internal/discover"
	"github.com/agentic-research/brightline/internal/shim"
)

type compileOpts struct {
	ext      string
	dbPath   string
	jsonPath string
	goPath   string
	pkg      string
}

func newCompileCmd(g *globals) *cobra.Command {
	o := &compileOpts{}
	c := &cobra.Command{
		Use:   "compile [templates-dir] [cache-dir]",
		Short: "Compile every template below a directory into a cache",
		Long: `Compile finds template files below templates-dir, extracts their blocks and
stores each compiled tree under the file's base name in a SQLite cache in
cache-dir (templates-dir when omitted). A JSON bundle and a Go source file
that registers the templates can be written as well.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, g, o, args)
		},
	}
	c.Flags().StringVar(&o.ext, "ext", "", "Template file extension (default .tpl)")
	c.Flags().StringVar(&o.dbPath, "db", "", "SQLite cache path (default <cache-dir>/brightline.db)")
	c.Flags().StringVar(&o.jsonPath, "json", "", "Also write the compiled templates as a JSON bundle")
	c.Flags().StringVar(&o.goPath, "go", "", "Also write a Go source file registering the compiled templates")
	c.Flags().StringVar(&o.pkg, "package", "", "Package name of the --go file (default templates)")
	return c
}

func runCompile(cmd *cobra.Command, g *globals, o *compileOpts, args []string) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	if o.ext != "" {
		cfg.Extension = o.ext
	}
	if o.pkg != "" {
		cfg.Package = o.pkg
	}
	ecfg, err := engineConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log := ecfg.Logger

	srcDir := "."
	if len(args) > 0 {
		srcDir = args[0]
	}
	cacheDir := srcDir
	if len(args) > 1 {
		cacheDir = args[1]
	}
	dbPath := o.dbPath
	if dbPath == "" {
		dbPath = cfg.Database
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(cacheDir, dbPath)
		}
	}

	log.Info("searching for templates", "dir", srcDir, "ext", cfg.Extension)
	templates, err := discover.Dir(srcDir, cfg.Extension)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		log.Warn("no templates found", "dir", srcDir)
		fmt.Fprintf(cmd.OutOrStdout(), "No templates found in %s\n", srcDir)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	store, err := cache.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	bundle := make(cache.Bundle, len(templates))
	for _, t := range templates {
		log.Debug("compiling", "template", t.Name, "path", t.Path)
		e, err := engine.New(t.Source, ecfg)
		if err != nil {
			return fmt.Errorf("%s: %w", t.Path, err)
		}
		if _, err := e.Compile(store, t.Name); err != nil {
			return err
		}
		if bundle[t.Name], err = store.Get(t.Name); err != nil {
			return err
		}
	}

	if o.jsonPath != "" {
		if err := writeFile(o.jsonPath, func(f *os.File) error { return cache.WriteBundle(f, bundle) }); err != nil {
			return err
		}
	}
	if o.goPath != "" {
		if err := writeFile(o.goPath, func(f *os.File) error { return shim.Generate(f, cfg.Package, bundle) }); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Compiled %d templates into %s\n", len(templates), dbPath)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
