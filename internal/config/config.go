// Package config reads the optional HCL settings file of the CLI.
//
//	name      = "site"
//	log_level = "WARN"
//	extension = ".tpl"
//	database  = "cache/brightline.db"
//	package   = "templates"
//	minify    = true
//
// Every attribute is optional; unset ones keep their defaults. Command
// line flags override the file.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/agentic-research/brightline/internal/discover"
	"github.com/agentic-research/brightline/internal/logging"
)

type Config struct {
	Name      string `hcl:"name,optional" validate:"required,max=64"`
	LogLevel  string `hcl:"log_level,optional" validate:"required,oneof=OFF ERROR WARN WARNING INFO DEBUG"`
	Extension string `hcl:"extension,optional" validate:"required,startswith=.,excludes=/"`
	Database  string `hcl:"database,optional" validate:"required"`
	Package   string `hcl:"package,optional" validate:"required,alphanum,lowercase"`
	Minify    bool   `hcl:"minify,optional"`
}

// Default returns the settings used without a config file.
func Default() Config {
	return Config{
		Name:      "Brightline",
		LogLevel:  logging.Error,
		Extension: discover.DefaultExt,
		Database:  "brightline.db",
		Package:   "templates",
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load returns the defaults overlaid with the file at path. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var file Config
		if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Merge(file)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge copies the set fields of o over c.
func (c *Config) Merge(o Config) {
	if o.Name != "" {
		c.Name = o.Name
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Extension != "" {
		c.Extension = o.Extension
	}
	if o.Database != "" {
		c.Database = o.Database
	}
	if o.Package != "" {
		c.Package = o.Package
	}
	c.Minify = c.Minify || o.Minify
}

// Validate normalises the log level and checks every field.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToUpper(c.LogLevel)
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
