package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/brightline/engine"
	"github.com/agentic-research/brightline/internal/config"
	"github.com/agentic-research/brightline/internal/logging"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
	name       string
}

// NewRootCmd builds the brightline command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "brightline",
		Short:         "Brightline: block template compiler and renderer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to an HCL settings file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: OFF, ERROR, WARN, INFO or DEBUG")
	root.PersistentFlags().StringVar(&g.name, "name", "", "Instance name used in log records")

	root.AddCommand(
		newCompileCmd(g),
		newRenderCmd(g),
		newBlocksCmd(g),
		newListCmd(g),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// settings loads the config file and applies the persistent flags on top.
func (g *globals) settings() (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Merge(config.Config{Name: g.name, LogLevel: g.logLevel})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// engineConfig builds engine settings that log to w.
func engineConfig(cfg config.Config, w io.Writer) (engine.Config, error) {
	log, err := logging.New(w, cfg.Name, cfg.LogLevel)
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{Name: cfg.Name, LogLevel: cfg.LogLevel, Logger: log}, nil
}
