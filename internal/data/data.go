// Package data loads the binding documents fed to the render command.
package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"
)

var ErrFormat = errors.New("unsupported data format")

// Format names accepted by Parse.
const (
	JSON = "json"
	YAML = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrFormat, path)
}

// Load reads and decodes a JSON or YAML document.
func Load(path string) (any, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(raw, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes raw as the given format into maps, slices and scalars.
func Parse(raw []byte, format string) (any, error) {
	switch format {
	case JSON:
		return oj.Parse(raw)
	case YAML:
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrFormat, format)
}

// Select evaluates a JSONPath expression against doc. A single match is
// returned as is, so "$.items" yields the items list itself; several
// matches are returned as a list.
func Select(doc any, expr string) (any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	results := x.Get(doc)
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	}
	return results, nil
}

// Each is a parsed "block=$.path" iteration request.
type Each struct {
	Block string
	Path  string
}

// ParseEach splits a "block=$.path" flag value.
func ParseEach(s string) (Each, error) {
	block, path, ok := strings.Cut(s, "=")
	block, path = strings.TrimSpace(block), strings.TrimSpace(path)
	if !ok || block == "" || path == "" {
		return Each{}, fmt.Errorf("expected block=jsonpath, got %q", s)
	}
	return Each{Block: block, Path: path}, nil
}
