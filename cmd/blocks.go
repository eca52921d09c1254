package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/brightline/cache"
	"github.com/agentic-research/brightline/engine"
)

func newBlocksCmd(g *globals) *cobra.Command {
	var dbPath string
	c := &cobra.Command{
		Use:   "blocks [template]",
		Short: "Print the block tree of a template with its variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.settings()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Database = dbPath
			}
			ecfg, err := engineConfig(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			e, err := openTemplate(args[0], cfg, ecfg)
			if err != nil {
				return err
			}
			return printTree(cmd.OutOrStdout(), e, engine.RootName, 0)
		},
	}
	c.Flags().StringVar(&dbPath, "db", "", "SQLite cache to load named templates from")
	return c
}

func printTree(w io.Writer, e *engine.Engine, name string, depth int) error {
	b, err := e.Block(name)
	if err != nil {
		return err
	}
	line := strings.Repeat("  ", depth) + name
	if len(b.Variables) > 0 {
		line += " {{" + strings.Join(b.Variables, "}} {{") + "}}"
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	kids, err := e.Children(name)
	if err != nil {
		return err
	}
	for _, k := range kids {
		if err := printTree(w, e, k, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func newListCmd(g *globals) *cobra.Command {
	var dbPath string
	c := &cobra.Command{
		Use:   "list",
		Short: "List the templates in a cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.settings()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Database = dbPath
			}
			store, err := cache.OpenSQLite(cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			names, err := store.Names()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	c.Flags().StringVar(&dbPath, "db", "", "SQLite cache path (default brightline.db)")
	return c
}
