package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agentic-research/brightline/internal/tree"
)

// nameClass is the character class of block and variable names.
const nameClass = `[.0-9A-Za-z:|_-]+`

var (
	beginMarker = regexp.MustCompile(`<!--\s*BEGIN\s+(` + nameClass + `)\s*-->`)
	tokenRe     = regexp.MustCompile(`\{\{(` + nameClass + `)\}\}`)
)

func endMarker(name tree.ID) *regexp.Regexp {
	return regexp.MustCompile(`<!--\s*END\s+` + regexp.QuoteMeta(string(name)) + `\s*-->`)
}

func placeholder(name tree.ID) string {
	return "{{__" + string(name) + "__}}"
}

// placeholderName reports whether a token body such as "__nav__" names a
// child block.
func placeholderName(body string) (tree.ID, bool) {
	if len(body) > 4 && strings.HasPrefix(body, "__") && strings.HasSuffix(body, "__") {
		return tree.ID(body[2 : len(body)-2]), true
	}
	return "", false
}

func removePlaceholder(content string, name tree.ID) string {
	return strings.Replace(content, placeholder(name), "", 1)
}

// process builds the tree for src below a fresh root block.
func (e *Engine) process(src string) error {
	root := &Block{Name: RootName, Content: src}
	if err := e.tree.Add(root.Name, root); err != nil {
		return err
	}
	if err := e.extract(root); err != nil {
		return err
	}
	e.log.Debug("extracted blocks", "fn", "process", "blocks", e.tree.Len())
	return nil
}

// extract carves the child regions out of b.Content, depth first, then
// records the variables left in b's own text. A BEGIN marker with no
// matching END marker is kept as literal text and never claims its name.
func (e *Engine) extract(b *Block) error {
	var out strings.Builder
	rest := b.Content
	for {
		loc := beginMarker.FindStringSubmatchIndex(rest)
		if loc == nil {
			out.WriteString(rest)
			break
		}
		name := tree.ID(rest[loc[2]:loc[3]])
		body := rest[loc[1]:]
		end := endMarker(name).FindStringIndex(body)
		if end == nil {
			e.log.Warn("BEGIN without END, kept as text", "fn", "extract", "block", string(name))
			out.WriteString(rest[:loc[1]])
			rest = body
			continue
		}
		if e.tree.Has(name) {
			return fmt.Errorf("%w: %q", ErrDuplicateBlockName, name)
		}

		child := &Block{Name: name, Content: body[:end[0]]}
		if err := e.tree.AddChild(b.Name, name, child); err != nil {
			return err
		}
		out.WriteString(rest[:loc[0]])
		out.WriteString(placeholder(name))
		if err := e.extract(child); err != nil {
			return err
		}
		rest = body[end[1]:]
	}

	b.Content = out.String()
	b.Variables = scanVariables(b.Content)
	return nil
}

// scanVariables lists the distinct non-placeholder tokens of content in
// order of first appearance.
func scanVariables(content string) []string {
	vars := []string{}
	seen := make(map[string]bool)
	for _, m := range tokenRe.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if _, isChild := placeholderName(name); isChild || seen[name] {
			continue
		}
		seen[name] = true
		vars = append(vars, name)
	}
	return vars
}
