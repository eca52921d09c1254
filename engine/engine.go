// Package engine compiles block templates into a tree and renders them.
//
// A template is plain text with nested, named blocks and variables:
//
//	<ul>
//	<!-- BEGIN item -->
//	    <li>{{name}}</li>
//	<!-- END item -->
//	</ul>
//
// Blocks are emitted only when the host asks for them, with Touch, Parse or
// Each; loops and conditionals live in the host program, not the template.
//
//	e, _ := engine.New(src, engine.DefaultConfig())
//	_ = e.EachAs([]string{"Larry", "Moe", "Curly"}, "item", "name", nil)
//	out, _ := e.Render("")
//
// An Engine is not safe for concurrent use. Independent engines are.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/agentic-research/brightline/internal/logging"
	"github.com/agentic-research/brightline/internal/tree"
)

// RootName is the reserved name of the block wrapping the whole template.
const RootName = "__root__"

// Config holds per-instance settings. Name and LogLevel only affect
// diagnostics.
type Config struct {
	Name     string
	LogLevel string
	// Logger, when set, is used as is instead of a stderr logger built
	// from Name and LogLevel.
	Logger *slog.Logger
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		Name:     "Brightline",
		LogLevel: logging.Error,
	}
}

// Block is a named region of a template. Blocks are immutable once built:
// render state lives in the engine, not on the block.
type Block struct {
	Name tree.ID
	// Content is the block text with each child region replaced by its
	// placeholder, {{__child__}}.
	Content string
	// Variables lists the distinct variable names referenced by Content,
	// in order of first appearance.
	Variables []string
}

// blockState is the mutable render state of one block between passes.
type blockState struct {
	locals    map[string]string
	touch     int
	fragments []string
}

// Engine owns a block tree together with the bindings and pending output
// used to render it.
type Engine struct {
	cfg  Config
	log  *slog.Logger
	tree *tree.Tree[*Block]

	globals map[string]string
	scope   tree.ID // "" when no scope is active
	state   map[tree.ID]*blockState
}

// New extracts the blocks of src and returns an engine ready to render it.
func New(src string, cfg Config) (*Engine, error) {
	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	if err := e.process(src); err != nil {
		return nil, err
	}
	return e, nil
}

func newEngine(cfg Config) (*Engine, error) {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}

	log := cfg.Logger
	if log == nil {
		var err error
		if log, err = logging.New(os.Stderr, cfg.Name, cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	e := &Engine{cfg: cfg, log: log}
	e.reset(tree.New[*Block]())
	return e, nil
}

func (e *Engine) reset(t *tree.Tree[*Block]) {
	e.tree = t
	e.globals = make(map[string]string)
	e.scope = ""
	e.state = make(map[tree.ID]*blockState)
}

// Name returns the instance name.
func (e *Engine) Name() string { return e.cfg.Name }

// Config returns the settings the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Len returns the number of blocks, root included.
func (e *Engine) Len() int { return e.tree.Len() }

// Blocks lists every block name, parents before children.
func (e *Engine) Blocks() []string {
	var names []string
	_ = e.tree.WalkPre(RootName, func(id tree.ID, _ int) error {
		names = append(names, string(id))
		return nil
	})
	return names
}

// Block returns a copy of the named block. An empty name means the root.
func (e *Engine) Block(name string) (Block, error) {
	b, err := e.lookup(name)
	if err != nil {
		return Block{}, err
	}
	out := *b
	out.Variables = slices.Clone(b.Variables)
	return out, nil
}

// Children returns the direct child block names of name, in template order.
func (e *Engine) Children(name string) ([]string, error) {
	b, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	kids := e.tree.Children(b.Name)
	out := make([]string, len(kids))
	for i, k := range kids {
		out[i] = string(k)
	}
	return out, nil
}

// Parent returns the enclosing block of name; the root has none.
func (e *Engine) Parent(name string) (string, bool, error) {
	b, err := e.lookup(name)
	if err != nil {
		return "", false, err
	}
	p, ok := e.tree.Parent(b.Name)
	return string(p), ok, nil
}

// RemoveBlock deletes a block and everything nested in it. Its placeholder
// is dropped from the parent, so the region renders as nothing.
func (e *Engine) RemoveBlock(name string) error {
	b, err := e.lookup(name)
	if err != nil {
		return err
	}
	parentID, ok := e.tree.Parent(b.Name)
	if !ok {
		return fmt.Errorf("%w: cannot remove root block", ErrInvalidParentChild)
	}
	var gone []tree.ID
	_ = e.tree.WalkPre(b.Name, func(id tree.ID, _ int) error {
		gone = append(gone, id)
		return nil
	})

	if e.scope != "" && (e.scope == b.Name || e.tree.IsAncestor(b.Name, e.scope)) {
		e.scope = ""
	}

	parent, _ := e.tree.Get(parentID)
	trimmed := *parent
	trimmed.Content = removePlaceholder(parent.Content, b.Name)
	if err := e.tree.Replace(parentID, &trimmed); err != nil {
		return err
	}
	if err := e.tree.Remove(b.Name); err != nil {
		return err
	}

	for _, id := range gone {
		delete(e.state, id)
	}
	e.log.Debug("removed block", "fn", "removeBlock", "block", name, "blocks", len(gone))
	return nil
}

func (e *Engine) lookup(name string) (*Block, error) {
	if name == "" {
		name = RootName
	}
	b, ok := e.tree.Get(tree.ID(name))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlock, name)
	}
	return b, nil
}

func (e *Engine) stateOf(id tree.ID) *blockState {
	st, ok := e.state[id]
	if !ok {
		st = &blockState{locals: make(map[string]string)}
		e.state[id] = st
	}
	return st
}
