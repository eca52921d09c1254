// Package discover finds template files below a directory.
package discover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// DefaultExt is the template file extension used when none is configured.
const DefaultExt = ".tpl"

// ErrDuplicateName is returned when two templates share a base name.
var ErrDuplicateName = errors.New("duplicate template name")

// Template is one template file found during a walk.
type Template struct {
	// Name is the file base name without the extension; templates are
	// compiled under this name.
	Name   string
	Path   string
	Source string
}

// Dir walks the directory at root on the host filesystem.
func Dir(root, ext string) ([]Template, error) {
	return Walk(osfs.New(root), "/", ext)
}

// Walk returns every regular file below root whose name ends in ext,
// sorted by path. Hidden directories are skipped.
func Walk(fsys billy.Filesystem, root, ext string) ([]Template, error) {
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	var paths []string
	err := util.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if p != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() && strings.HasSuffix(info.Name(), ext) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	out := make([]Template, 0, len(paths))
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), ext)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %q at %s and %s", ErrDuplicateName, name, prev, p)
		}
		seen[name] = p

		src, err := util.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		out = append(out, Template{Name: name, Path: p, Source: string(src)})
	}
	return out, nil
}
